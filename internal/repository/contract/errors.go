package contract

import "errors"

// ErrDuplicate is returned when a write collides with an existing primary or unique key.
var ErrDuplicate = errors.New("duplicate record")

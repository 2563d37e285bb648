package service

import "errors"

var (
	ErrRecallSetNotFound    = errors.New("recall set not found")
	ErrSetArchived          = errors.New("recall set is archived")
	ErrNoDuePoints          = errors.New("no recall points are due")
	ErrSessionNotFound      = errors.New("session not found")
	ErrSessionNotInProgress = errors.New("session is not in progress")
)

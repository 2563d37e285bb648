// Package gate validates live-session connection requests before any
// per-connection state is allocated.
package gate

import (
	"errors"
	"regexp"
	"strings"

	"github.com/google/uuid"
)

const (
	// SessionIDPrefix is the literal prefix of every session identifier.
	SessionIDPrefix = "sess_"
	// SessionIDParam is the query parameter carrying the identifier.
	SessionIDParam = "sessionId"
)

var (
	ErrMissingSessionID       = errors.New("missing session id")
	ErrInvalidSessionIDFormat = errors.New("invalid session id format")
)

var sessionIDPattern = regexp.MustCompile(
	`^sess_([A-Za-z0-9_]+)(?:-([0-9a-fA-F]{8}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{12}))?$`,
)

// Kind tells a fresh connection apart from a reconnect.
type Kind int

const (
	Fresh Kind = iota
	Resumed
)

func (k Kind) String() string {
	if k == Resumed {
		return "resumed"
	}
	return "fresh"
}

// SessionID is a parsed identifier. A Resumed id carries the connection UUID
// suffix that a reconnecting client appends to the token.
type SessionID struct {
	Kind     Kind
	Token    string
	ResumeID uuid.UUID
}

// Key is the persisted session id, i.e. the identifier without the resume suffix.
func (s SessionID) Key() string {
	return SessionIDPrefix + s.Token
}

func (s SessionID) String() string {
	if s.Kind == Resumed {
		return s.Key() + "-" + s.ResumeID.String()
	}
	return s.Key()
}

// ParseSessionID validates raw against the identifier scheme.
func ParseSessionID(raw string) (SessionID, error) {
	m := sessionIDPattern.FindStringSubmatch(raw)
	if m == nil {
		return SessionID{}, ErrInvalidSessionIDFormat
	}
	if m[2] == "" {
		return SessionID{Kind: Fresh, Token: m[1]}, nil
	}
	id, err := uuid.Parse(m[2])
	if err != nil {
		return SessionID{}, ErrInvalidSessionIDFormat
	}
	return SessionID{Kind: Resumed, Token: m[1], ResumeID: id}, nil
}

// Query is the read side of a URL query string.
type Query interface {
	Has(key string) bool
	Get(key string) string
}

// ExtractSessionID reads and validates the sessionId query parameter. An absent
// parameter is ErrMissingSessionID; a present but empty one is a format error.
func ExtractSessionID(q Query) (SessionID, error) {
	if !q.Has(SessionIDParam) {
		return SessionID{}, ErrMissingSessionID
	}
	return ParseSessionID(q.Get(SessionIDParam))
}

// Request is the part of an inbound HTTP request the gate looks at.
type Request interface {
	Method() string
	Header(key string) string
}

// IsUpgradeRequest reports whether r asks for a websocket upgrade: a GET whose
// Connection header lists "upgrade" and whose Upgrade header is "websocket",
// both compared case-insensitively.
func IsUpgradeRequest(r Request) bool {
	if !strings.EqualFold(r.Method(), "GET") {
		return false
	}
	if !strings.EqualFold(strings.TrimSpace(r.Header("Upgrade")), "websocket") {
		return false
	}
	for _, token := range strings.Split(r.Header("Connection"), ",") {
		if strings.EqualFold(strings.TrimSpace(token), "upgrade") {
			return true
		}
	}
	return false
}

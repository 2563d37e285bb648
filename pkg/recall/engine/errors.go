package engine

import (
	"errors"
	"fmt"
)

var ErrSessionClosed = errors.New("session closed")

// ErrorKind groups rejections by how the engine reacts to them.
type ErrorKind string

const (
	KindValidation    ErrorKind = "validation"
	KindProtocol      ErrorKind = "protocol"
	KindUpstream      ErrorKind = "upstream"
	KindResource      ErrorKind = "resource"
	KindStateConflict ErrorKind = "state_conflict"
)

const (
	CodeMalformedMessage   = "MalformedMessage"
	CodeStreamInProgress   = "StreamInProgress"
	CodeTurnNotExpected    = "TurnNotExpected"
	CodeNoTangentProposed  = "NoTangentProposed"
	CodeNotInRabbithole    = "NotInRabbithole"
	CodeMaxDepthExceeded   = "MaxDepthExceeded"
	CodePointNotInTarget   = "PointNotInTarget"
	CodePointNotCurrent    = "PointNotCurrent"
	CodeInvalidChunkIndex  = "InvalidChunkIndex"
	CodeHeartbeatTimeout   = "HeartbeatTimeout"
	CodeUpstreamFailure    = "UpstreamFailure"
	CodeSessionUnavailable = "SessionUnavailable"
)

// Error is a rejection reported to the client as an error frame.
type Error struct {
	Kind    ErrorKind
	Code    string
	Message string
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func newError(kind ErrorKind, code, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Code: code, Message: fmt.Sprintf(format, args...)}
}

var (
	errStreamInProgress = newError(KindProtocol, CodeStreamInProgress, "an assistant turn is still streaming")
	errNoTangent        = newError(KindProtocol, CodeNoTangentProposed, "no tangent has been proposed")
	errNotInRabbithole  = newError(KindProtocol, CodeNotInRabbithole, "not inside a tangent")
)

// errorBudget counts consecutive failures; any success resets it.
type errorBudget struct {
	max   int
	count int
}

// fail records a failure and reports whether the budget is exhausted.
func (b *errorBudget) fail() bool {
	b.count++
	return b.count >= b.max
}

func (b *errorBudget) reset() {
	b.count = 0
}

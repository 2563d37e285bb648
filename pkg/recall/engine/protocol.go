package engine

import (
	"encoding/json"
	"strings"

	"github.com/go-playground/validator/v10"
)

// Inbound frame types.
const (
	TypePing              = "ping"
	TypePong              = "pong"
	TypeUserMessage       = "user_message"
	TypeEnterRabbithole   = "enter_rabbithole"
	TypeDeclineRabbithole = "decline_rabbithole"
	TypeExitRabbithole    = "exit_rabbithole"
	TypeResend            = "resend"
	TypeAbandon           = "abandon"
)

// Outbound frame types.
const (
	TypeSessionReady       = "session_ready"
	TypeAssistantChunk     = "assistant_chunk"
	TypeAssistantComplete  = "assistant_complete"
	TypeStreamReset        = "stream_reset"
	TypeEvaluationResult   = "evaluation_result"
	TypeRabbitholeProposed = "rabbithole_proposed"
	TypeRabbitholeEntered  = "rabbithole_entered"
	TypeRabbitholeDeclined = "rabbithole_declined"
	TypeRabbitholeExited   = "rabbithole_exited"
	TypeSessionComplete    = "session_complete"
	TypeError              = "error"
	TypeClosing            = "closing"
)

type CloseReason string

const (
	CloseIdle               CloseReason = "Idle"
	CloseTooManyErrors      CloseReason = "TooManyErrors"
	CloseClientDisconnect   CloseReason = "ClientDisconnect"
	CloseCompleted          CloseReason = "Completed"
	CloseAbandoned          CloseReason = "Abandoned"
	CloseSuperseded         CloseReason = "Superseded"
	CloseShutdown           CloseReason = "Shutdown"
	CloseSessionUnavailable CloseReason = "SessionUnavailable"
)

type InboundMessage struct {
	Type          string `json:"type" validate:"required,oneof=ping pong user_message enter_rabbithole decline_rabbithole exit_rabbithole resend abandon"`
	Content       string `json:"content" validate:"required_if=Type user_message,max=20000"`
	RecallPointId string `json:"recallPointId" validate:"omitempty,uuid"`
	Topic         string `json:"topic" validate:"max=200"`
	FromChunk     *int   `json:"fromChunk" validate:"required_if=Type resend,omitempty,gte=0"`
}

type OutboundMessage struct {
	Type      string      `json:"type"`
	SessionID string      `json:"sessionId"`
	Data      interface{} `json:"data,omitempty"`
}

type SessionReadyPayload struct {
	RecallSetName          string `json:"recallSetName"`
	TargetRecallPointCount int    `json:"targetRecallPointCount"`
	EvaluatedCount         int    `json:"evaluatedCount"`
	CurrentIndex           int    `json:"currentIndex"`
	Resumed                bool   `json:"resumed"`
	RabbitholeDepth        int    `json:"rabbitholeDepth"`
}

type HeartbeatPayload struct {
	Seq       int   `json:"seq,omitempty"`
	Timestamp int64 `json:"timestamp"`
}

type ChunkPayload struct {
	Index   int    `json:"index"`
	Content string `json:"content"`
}

type AssistantCompletePayload struct {
	Content       string `json:"content"`
	MessageSeq    int    `json:"messageSeq"`
	ChunkCount    int    `json:"chunkCount"`
	RecallPointId string `json:"recallPointId,omitempty"`
	Topic         string `json:"topic,omitempty"`
}

type StreamResetPayload struct {
	DiscardedChunks int `json:"discardedChunks"`
}

type EvaluationPayload struct {
	RecallPointId string  `json:"recallPointId"`
	Success       bool    `json:"success"`
	Confidence    float64 `json:"confidence"`
	Rating        string  `json:"rating"`
	Reasoning     string  `json:"reasoning"`
	Indeterminate bool    `json:"indeterminate"`
	Remaining     int     `json:"remaining"`
}

type RabbitholePayload struct {
	Topic       string `json:"topic"`
	Depth       int    `json:"depth"`
	TargetIndex *int   `json:"targetIndex,omitempty"`
}

type SessionCompletePayload struct {
	RecallRate      float64 `json:"recallRate"`
	EvaluatedPoints int     `json:"evaluatedPoints"`
	TotalPoints     int     `json:"totalPoints"`
}

type ErrorPayload struct {
	Code    string    `json:"code"`
	Kind    ErrorKind `json:"kind"`
	Message string    `json:"message"`
}

type ClosingPayload struct {
	Reason CloseReason `json:"reason"`
}

func parseInbound(v *validator.Validate, raw []byte) (*InboundMessage, *Error) {
	var msg InboundMessage
	if err := json.Unmarshal(raw, &msg); err != nil {
		return nil, newError(KindValidation, CodeMalformedMessage, "invalid JSON: %v", err)
	}
	msg.Content = strings.TrimSpace(msg.Content)
	msg.Topic = strings.TrimSpace(msg.Topic)
	if err := v.Struct(msg); err != nil {
		return nil, newError(KindValidation, CodeMalformedMessage, "%v", err)
	}
	return &msg, nil
}

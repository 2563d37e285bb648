package entity

import (
	"time"

	"github.com/google/uuid"
)

const (
	MessageRoleUser      = "user"
	MessageRoleAssistant = "assistant"
	MessageRoleSystem    = "system"
)

// EvaluationMarker opens (IsStart) or closes (IsEnd) the evaluation of one recall point.
type EvaluationMarker struct {
	IsStart       bool      `json:"isStart,omitempty"`
	IsEnd         bool      `json:"isEnd,omitempty"`
	RecallPointId uuid.UUID `json:"recallPointId"`
	Success       *bool     `json:"success,omitempty"`
	Confidence    *float64  `json:"confidence,omitempty"`
}

type RabbitholeMarker struct {
	IsTrigger bool   `json:"isTrigger,omitempty"`
	Topic     string `json:"topic"`
	Depth     int    `json:"depth"`
	IsReturn  bool   `json:"isReturn,omitempty"`
	Declined  bool   `json:"declined,omitempty"`
}

type TranscriptMessage struct {
	Id         uuid.UUID
	SessionId  string
	Seq        int
	Role       string
	Content    string
	Timestamp  time.Time
	Evaluation *EvaluationMarker
	Rabbithole *RabbitholeMarker
}

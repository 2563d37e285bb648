package dto

import (
	"time"

	"github.com/google/uuid"
)

type StartSessionRequest struct {
	RecallSetId uuid.UUID `json:"recallSetId" validate:"required"`
}

type StartSessionResponse struct {
	SessionId              string `json:"sessionId"`
	IsResume               bool   `json:"isResume"`
	TargetRecallPointCount int    `json:"targetRecallPointCount"`
}

type SessionResponse struct {
	Id                   string      `json:"id"`
	RecallSetId          uuid.UUID   `json:"recallSetId"`
	Status               string      `json:"status"`
	TargetRecallPointIds []uuid.UUID `json:"targetRecallPointIds"`
	StartedAt            time.Time   `json:"startedAt"`
	EndedAt              *time.Time  `json:"endedAt"`
}

type EvaluationMarkerResponse struct {
	IsStart       bool      `json:"isStart"`
	IsEnd         bool      `json:"isEnd"`
	RecallPointId uuid.UUID `json:"recallPointId"`
	Success       *bool     `json:"success,omitempty"`
	Confidence    *float64  `json:"confidence,omitempty"`
}

type RabbitholeMarkerResponse struct {
	IsTrigger bool   `json:"isTrigger"`
	IsReturn  bool   `json:"isReturn"`
	Declined  bool   `json:"declined"`
	Topic     string `json:"topic"`
	Depth     int    `json:"depth"`
}

type TranscriptMessageResponse struct {
	Id         uuid.UUID                 `json:"id"`
	Seq        int                       `json:"seq"`
	Role       string                    `json:"role"`
	Content    string                    `json:"content"`
	Timestamp  time.Time                 `json:"timestamp"`
	Evaluation *EvaluationMarkerResponse `json:"evaluationMarker,omitempty"`
	Rabbithole *RabbitholeMarkerResponse `json:"rabbitholeMarker,omitempty"`
}

type RecallOutcomeResponse struct {
	RecallPointId     uuid.UUID `json:"recallPointId"`
	Success           bool      `json:"success"`
	Confidence        float64   `json:"confidence"`
	Rating            string    `json:"rating"`
	Reasoning         string    `json:"reasoning"`
	MessageIndexStart int       `json:"messageIndexStart"`
	MessageIndexEnd   int       `json:"messageIndexEnd"`
	TimeSpentMs       int64     `json:"timeSpentMs"`
	Indeterminate     bool      `json:"indeterminate"`
}

type TranscriptResponse struct {
	SessionId string                       `json:"sessionId"`
	Messages  []*TranscriptMessageResponse `json:"messages"`
	Outcomes  []*RecallOutcomeResponse     `json:"outcomes"`
}

type SessionMetricsResponse struct {
	SessionId         string    `json:"sessionId"`
	RecallSetId       uuid.UUID `json:"recallSetId"`
	TotalPoints       int       `json:"totalPoints"`
	EvaluatedPoints   int       `json:"evaluatedPoints"`
	SuccessfulPoints  int       `json:"successfulPoints"`
	RecallRate        float64   `json:"recallRate"`
	AverageConfidence float64   `json:"averageConfidence"`
	RabbitholeCount   int       `json:"rabbitholeCount"`
	MessageCount      int       `json:"messageCount"`
	DurationMs        int64     `json:"durationMs"`
	TotalTimeSpentMs  int64     `json:"totalTimeSpentMs"`
	ComputedAt        time.Time `json:"computedAt"`
}

// SessionFinishedMessage is the in-process message that triggers metrics computation.
type SessionFinishedMessage struct {
	SessionId string `json:"session_id"`
	Status    string `json:"status"`
}

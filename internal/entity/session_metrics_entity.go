package entity

import (
	"time"

	"github.com/google/uuid"
)

type SessionMetrics struct {
	SessionId         string
	RecallSetId       uuid.UUID
	TotalPoints       int
	EvaluatedPoints   int
	SuccessfulPoints  int
	RecallRate        float64
	AverageConfidence float64
	RabbitholeCount   int
	MessageCount      int
	DurationMs        int64
	TotalTimeSpentMs  int64
	ComputedAt        time.Time
}

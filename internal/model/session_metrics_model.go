package model

import (
	"time"

	"github.com/google/uuid"
)

type SessionMetrics struct {
	SessionId         string    `gorm:"type:varchar(128);primaryKey"`
	RecallSetId       uuid.UUID `gorm:"type:uuid;not null;index"`
	TotalPoints       int       `gorm:"not null"`
	EvaluatedPoints   int       `gorm:"not null"`
	SuccessfulPoints  int       `gorm:"not null"`
	RecallRate        float64   `gorm:"not null"`
	AverageConfidence float64   `gorm:"not null"`
	RabbitholeCount   int       `gorm:"not null"`
	MessageCount      int       `gorm:"not null"`
	DurationMs        int64     `gorm:"not null"`
	TotalTimeSpentMs  int64     `gorm:"not null"`
	ComputedAt        time.Time `gorm:"not null"`
}

func (SessionMetrics) TableName() string {
	return "session_metrics"
}

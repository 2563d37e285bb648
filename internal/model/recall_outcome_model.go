package model

import (
	"time"

	"github.com/google/uuid"
)

type RecallOutcome struct {
	Id                uuid.UUID `gorm:"type:uuid;primaryKey"`
	SessionId         string    `gorm:"type:varchar(128);not null;uniqueIndex:idx_outcome_session_point"`
	RecallPointId     uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_outcome_session_point;index"`
	Success           bool      `gorm:"not null"`
	Confidence        float64   `gorm:"not null"`
	Rating            string    `gorm:"type:varchar(20);not null"`
	Reasoning         string    `gorm:"type:text"`
	MessageIndexStart int       `gorm:"not null"`
	MessageIndexEnd   int       `gorm:"not null"`
	TimeSpentMs       int64     `gorm:"not null"`
	Indeterminate     bool      `gorm:"not null;default:false"`
	CreatedAt         time.Time `gorm:"autoCreateTime"`
}

func (RecallOutcome) TableName() string {
	return "recall_outcomes"
}

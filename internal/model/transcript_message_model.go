package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

type TranscriptMessage struct {
	Id         uuid.UUID      `gorm:"type:uuid;primaryKey"`
	SessionId  string         `gorm:"type:varchar(128);not null;uniqueIndex:idx_transcript_session_seq"`
	Seq        int            `gorm:"not null;uniqueIndex:idx_transcript_session_seq"`
	Role       string         `gorm:"type:varchar(20);not null"`
	Content    string         `gorm:"type:text;not null"`
	Timestamp  time.Time      `gorm:"not null"`
	Evaluation datatypes.JSON `gorm:"type:jsonb"`
	Rabbithole datatypes.JSON `gorm:"type:jsonb"`
}

func (TranscriptMessage) TableName() string {
	return "session_messages"
}

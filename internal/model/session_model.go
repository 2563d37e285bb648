package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

type Session struct {
	Id                   string         `gorm:"type:varchar(128);primaryKey"`
	RecallSetId          uuid.UUID      `gorm:"type:uuid;not null;index:idx_sessions_set_status"`
	Status               string         `gorm:"type:varchar(20);not null;index:idx_sessions_set_status"`
	TargetRecallPointIds datatypes.JSON `gorm:"type:jsonb;not null"`
	StartedAt            time.Time      `gorm:"not null"`
	EndedAt              *time.Time
	UpdatedAt            time.Time `gorm:"autoUpdateTime"`
}

func (Session) TableName() string {
	return "recall_sessions"
}

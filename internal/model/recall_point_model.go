package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type RecallPoint struct {
	Id           uuid.UUID      `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	RecallSetId  uuid.UUID      `gorm:"type:uuid;not null;index"`
	Content      string         `gorm:"type:text;not null"`
	Context      string         `gorm:"type:text"`
	State        string         `gorm:"type:varchar(20);not null;default:'new';index"`
	DueAt        time.Time      `gorm:"not null;index"`
	Stability    float64        `gorm:"not null;default:0"`
	Difficulty   float64        `gorm:"not null;default:0"`
	Reps         int            `gorm:"not null;default:0"`
	Lapses       int            `gorm:"not null;default:0"`
	LastReviewAt *time.Time
	CreatedAt    time.Time      `gorm:"autoCreateTime"`
	UpdatedAt    time.Time      `gorm:"autoUpdateTime"`
	DeletedAt    gorm.DeletedAt `gorm:"index"`
}

func (RecallPoint) TableName() string {
	return "recall_points"
}

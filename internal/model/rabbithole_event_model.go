package model

import (
	"time"

	"github.com/google/uuid"
)

type RabbitholeEvent struct {
	Id          uuid.UUID `gorm:"type:uuid;primaryKey"`
	SessionId   string    `gorm:"type:varchar(128);not null;index"`
	Topic       string    `gorm:"type:text;not null"`
	Depth       int       `gorm:"not null"`
	Status      string    `gorm:"type:varchar(20);not null"`
	ResumeIndex int       `gorm:"not null"`
	ChunkIndex  int       `gorm:"not null"`
	CreatedAt   time.Time `gorm:"not null"`
}

func (RabbitholeEvent) TableName() string {
	return "rabbithole_events"
}

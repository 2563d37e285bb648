package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type RecallSet struct {
	Id               uuid.UUID      `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	Name             string         `gorm:"type:text;not null"`
	Description      string         `gorm:"type:text"`
	DiscussionPrompt string         `gorm:"type:text"`
	Status           string         `gorm:"type:varchar(20);not null;default:'active';index"`
	CreatedAt        time.Time      `gorm:"autoCreateTime"`
	UpdatedAt        time.Time      `gorm:"autoUpdateTime"`
	DeletedAt        gorm.DeletedAt `gorm:"index"`
}

func (RecallSet) TableName() string {
	return "recall_sets"
}

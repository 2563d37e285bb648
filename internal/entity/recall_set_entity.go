package entity

import (
	"time"

	"github.com/google/uuid"
)

const (
	RecallSetStatusActive   = "active"
	RecallSetStatusPaused   = "paused"
	RecallSetStatusArchived = "archived"
)

type RecallSet struct {
	Id               uuid.UUID
	Name             string
	Description      string
	DiscussionPrompt string
	Status           string
	CreatedAt        time.Time
	UpdatedAt        *time.Time
}

func (s *RecallSet) IsArchived() bool {
	return s.Status == RecallSetStatusArchived
}

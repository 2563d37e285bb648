package entity

import (
	"time"

	"github.com/google/uuid"
)

const (
	SessionStatusInProgress = "in_progress"
	SessionStatusCompleted  = "completed"
	SessionStatusAbandoned  = "abandoned"
)

type Session struct {
	Id                   string
	RecallSetId          uuid.UUID
	Status               string
	TargetRecallPointIds []uuid.UUID
	StartedAt            time.Time
	EndedAt              *time.Time
	UpdatedAt            *time.Time
}

func (s *Session) IsInProgress() bool {
	return s.Status == SessionStatusInProgress
}

// TargetIndex returns the position of pointId in the target list, or -1.
func (s *Session) TargetIndex(pointId uuid.UUID) int {
	for i, id := range s.TargetRecallPointIds {
		if id == pointId {
			return i
		}
	}
	return -1
}

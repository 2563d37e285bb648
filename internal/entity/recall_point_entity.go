package entity

import (
	"time"

	"github.com/google/uuid"
)

// Scheduler states of a recall point.
const (
	RecallPointStateNew        = "new"
	RecallPointStateLearning   = "learning"
	RecallPointStateReview     = "review"
	RecallPointStateRelearning = "relearning"
)

type RecallPoint struct {
	Id           uuid.UUID
	RecallSetId  uuid.UUID
	Content      string
	Context      string
	State        string
	DueAt        time.Time
	Stability    float64
	Difficulty   float64
	Reps         int
	Lapses       int
	LastReviewAt *time.Time
	CreatedAt    time.Time
	UpdatedAt    *time.Time
}

package entity

import (
	"time"

	"github.com/google/uuid"
)

// Qualitative rating buckets of a recall attempt.
const (
	RatingForgot = "forgot"
	RatingHard   = "hard"
	RatingGood   = "good"
	RatingEasy   = "easy"
)

type RecallOutcome struct {
	Id                uuid.UUID
	SessionId         string
	RecallPointId     uuid.UUID
	Success           bool
	Confidence        float64
	Rating            string
	Reasoning         string
	MessageIndexStart int
	MessageIndexEnd   int
	TimeSpentMs       int64
	Indeterminate     bool
	CreatedAt         time.Time
}

package entity

import (
	"time"

	"github.com/google/uuid"
)

const (
	RabbitholeStatusEntered  = "entered"
	RabbitholeStatusDeclined = "declined"
	RabbitholeStatusExited   = "exited"
)

type RabbitholeEvent struct {
	Id          uuid.UUID
	SessionId   string
	Topic       string
	Depth       int
	Status      string
	ResumeIndex int
	ChunkIndex  int
	CreatedAt   time.Time
}

package contract

import (
	"context"

	"recall-be/internal/entity"
)

type TranscriptRepository interface {
	// Append returns ErrDuplicate when the id or the (session, seq) pair already exists.
	Append(ctx context.Context, message *entity.TranscriptMessage) error
	// FindBySession returns messages ordered by Seq.
	FindBySession(ctx context.Context, sessionId string) ([]*entity.TranscriptMessage, error)
}

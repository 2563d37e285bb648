package contract

import (
	"context"

	"recall-be/internal/entity"
)

type RecallOutcomeRepository interface {
	// Create returns ErrDuplicate when the id or the (session, point) pair already exists.
	Create(ctx context.Context, outcome *entity.RecallOutcome) error
	FindBySession(ctx context.Context, sessionId string) ([]*entity.RecallOutcome, error)
}

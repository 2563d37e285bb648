package contract

import (
	"context"

	"recall-be/internal/entity"

	"github.com/google/uuid"
)

type SessionRepository interface {
	Create(ctx context.Context, session *entity.Session) error
	Update(ctx context.Context, session *entity.Session) error
	FindByID(ctx context.Context, id string) (*entity.Session, error)
	// FindInProgressByRecallSet returns the most recently started in-progress session, or nil.
	FindInProgressByRecallSet(ctx context.Context, recallSetId uuid.UUID) (*entity.Session, error)
}

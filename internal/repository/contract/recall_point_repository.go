package contract

import (
	"context"

	"recall-be/internal/entity"

	"github.com/google/uuid"
)

type RecallPointRepository interface {
	Create(ctx context.Context, point *entity.RecallPoint) error
	Update(ctx context.Context, point *entity.RecallPoint) error
	FindByID(ctx context.Context, id uuid.UUID) (*entity.RecallPoint, error)
	FindByIDs(ctx context.Context, ids []uuid.UUID) ([]*entity.RecallPoint, error)
	// FindByRecallSet returns the points of a set in creation order.
	FindByRecallSet(ctx context.Context, recallSetId uuid.UUID) ([]*entity.RecallPoint, error)
}

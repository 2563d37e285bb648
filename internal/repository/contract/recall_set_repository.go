package contract

import (
	"context"

	"recall-be/internal/entity"

	"github.com/google/uuid"
)

type RecallSetRepository interface {
	Create(ctx context.Context, set *entity.RecallSet) error
	Update(ctx context.Context, set *entity.RecallSet) error
	FindByID(ctx context.Context, id uuid.UUID) (*entity.RecallSet, error)
	FindAll(ctx context.Context) ([]*entity.RecallSet, error)
}

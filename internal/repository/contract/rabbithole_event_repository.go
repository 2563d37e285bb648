package contract

import (
	"context"

	"recall-be/internal/entity"
)

type RabbitholeEventRepository interface {
	Create(ctx context.Context, event *entity.RabbitholeEvent) error
	FindBySession(ctx context.Context, sessionId string) ([]*entity.RabbitholeEvent, error)
}

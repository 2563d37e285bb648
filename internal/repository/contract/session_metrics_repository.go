package contract

import (
	"context"

	"recall-be/internal/entity"
)

type SessionMetricsRepository interface {
	Upsert(ctx context.Context, metrics *entity.SessionMetrics) error
	FindBySession(ctx context.Context, sessionId string) (*entity.SessionMetrics, error)
}

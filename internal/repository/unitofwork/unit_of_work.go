package unitofwork

import (
	"context"

	"recall-be/internal/repository/contract"
)

type UnitOfWork interface {
	Begin(ctx context.Context) error
	Commit() error
	Rollback() error

	RecallSetRepository() contract.RecallSetRepository
	RecallPointRepository() contract.RecallPointRepository

	SessionRepository() contract.SessionRepository
	RecallOutcomeRepository() contract.RecallOutcomeRepository
	TranscriptRepository() contract.TranscriptRepository
	RabbitholeEventRepository() contract.RabbitholeEventRepository
	SessionMetricsRepository() contract.SessionMetricsRepository
}

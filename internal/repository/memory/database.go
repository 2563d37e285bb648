package memory

import (
	"context"
	"sync"

	"recall-be/internal/repository/contract"
	"recall-be/internal/repository/unitofwork"
)

// Database is an in-process stand-in for the relational store. It backs the
// server when no DSN is configured and serves as the persistence double in tests.
type Database struct {
	mu sync.RWMutex

	recallSets  map[string]*recallSetRow
	points      map[string]*pointRow
	sessions    map[string]*sessionRow
	outcomes    []*outcomeRow
	messages    []*messageRow
	rabbitholes []*rabbitholeRow
	metrics     map[string]*metricsRow

	seq int64
}

func NewDatabase() *Database {
	return &Database{
		recallSets: make(map[string]*recallSetRow),
		points:     make(map[string]*pointRow),
		sessions:   make(map[string]*sessionRow),
		metrics:    make(map[string]*metricsRow),
	}
}

// next returns a monotonically increasing insertion counter used to keep creation order stable.
func (d *Database) next() int64 {
	d.seq++
	return d.seq
}

type RepositoryFactory struct {
	db *Database
}

func NewRepositoryFactory(db *Database) unitofwork.RepositoryFactory {
	return &RepositoryFactory{db: db}
}

func (f *RepositoryFactory) NewUnitOfWork(ctx context.Context) unitofwork.UnitOfWork {
	return &UnitOfWork{db: f.db}
}

// UnitOfWork writes straight through; Begin/Commit/Rollback are accepted and ignored.
type UnitOfWork struct {
	db *Database
}

func (u *UnitOfWork) Begin(ctx context.Context) error { return nil }
func (u *UnitOfWork) Commit() error                   { return nil }
func (u *UnitOfWork) Rollback() error                 { return nil }

func (u *UnitOfWork) RecallSetRepository() contract.RecallSetRepository {
	return &RecallSetRepository{db: u.db}
}

func (u *UnitOfWork) RecallPointRepository() contract.RecallPointRepository {
	return &RecallPointRepository{db: u.db}
}

func (u *UnitOfWork) SessionRepository() contract.SessionRepository {
	return &SessionRepository{db: u.db}
}

func (u *UnitOfWork) RecallOutcomeRepository() contract.RecallOutcomeRepository {
	return &RecallOutcomeRepository{db: u.db}
}

func (u *UnitOfWork) TranscriptRepository() contract.TranscriptRepository {
	return &TranscriptRepository{db: u.db}
}

func (u *UnitOfWork) RabbitholeEventRepository() contract.RabbitholeEventRepository {
	return &RabbitholeEventRepository{db: u.db}
}

func (u *UnitOfWork) SessionMetricsRepository() contract.SessionMetricsRepository {
	return &SessionMetricsRepository{db: u.db}
}

package unitofwork

import (
	"context"
	"fmt"

	"recall-be/internal/repository/contract"
	"recall-be/internal/repository/implementation"

	"gorm.io/gorm"
)

type UnitOfWorkImpl struct {
	db *gorm.DB
	tx *gorm.DB
}

func NewUnitOfWork(db *gorm.DB) UnitOfWork {
	return &UnitOfWorkImpl{
		db: db,
	}
}

func (u *UnitOfWorkImpl) getDB() *gorm.DB {
	if u.tx != nil {
		return u.tx
	}
	return u.db
}

func (u *UnitOfWorkImpl) Begin(ctx context.Context) error {
	if u.tx != nil {
		return fmt.Errorf("transaction already started")
	}
	u.tx = u.db.WithContext(ctx).Begin()
	return u.tx.Error
}

func (u *UnitOfWorkImpl) Commit() error {
	if u.tx == nil {
		return fmt.Errorf("no transaction to commit")
	}
	err := u.tx.Commit().Error
	u.tx = nil
	return err
}

func (u *UnitOfWorkImpl) Rollback() error {
	if u.tx == nil {
		return fmt.Errorf("no transaction to rollback")
	}
	err := u.tx.Rollback().Error
	u.tx = nil
	return err
}

// Repository Accessors

func (u *UnitOfWorkImpl) RecallSetRepository() contract.RecallSetRepository {
	return implementation.NewRecallSetRepository(u.getDB())
}

func (u *UnitOfWorkImpl) RecallPointRepository() contract.RecallPointRepository {
	return implementation.NewRecallPointRepository(u.getDB())
}

func (u *UnitOfWorkImpl) SessionRepository() contract.SessionRepository {
	return implementation.NewSessionRepository(u.getDB())
}

func (u *UnitOfWorkImpl) RecallOutcomeRepository() contract.RecallOutcomeRepository {
	return implementation.NewRecallOutcomeRepository(u.getDB())
}

func (u *UnitOfWorkImpl) TranscriptRepository() contract.TranscriptRepository {
	return implementation.NewTranscriptRepository(u.getDB())
}

func (u *UnitOfWorkImpl) RabbitholeEventRepository() contract.RabbitholeEventRepository {
	return implementation.NewRabbitholeEventRepository(u.getDB())
}

func (u *UnitOfWorkImpl) SessionMetricsRepository() contract.SessionMetricsRepository {
	return implementation.NewSessionMetricsRepository(u.getDB())
}

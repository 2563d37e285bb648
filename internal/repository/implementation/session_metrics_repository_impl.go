package implementation

import (
	"context"
	"errors"

	"recall-be/internal/entity"
	"recall-be/internal/mapper"
	"recall-be/internal/model"
	"recall-be/internal/repository/contract"
	"recall-be/internal/repository/specification"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type SessionMetricsRepositoryImpl struct {
	db     *gorm.DB
	mapper *mapper.SessionMapper
}

func NewSessionMetricsRepository(db *gorm.DB) contract.SessionMetricsRepository {
	return &SessionMetricsRepositoryImpl{
		db:     db,
		mapper: mapper.NewSessionMapper(),
	}
}

func (r *SessionMetricsRepositoryImpl) Upsert(ctx context.Context, metrics *entity.SessionMetrics) error {
	m := r.mapper.MetricsToModel(metrics)
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "session_id"}},
		UpdateAll: true,
	}).Create(m).Error
}

func (r *SessionMetricsRepositoryImpl) FindBySession(ctx context.Context, sessionId string) (*entity.SessionMetrics, error) {
	var m model.SessionMetrics
	if err := applySpecifications(r.db.WithContext(ctx), specification.BySessionID{SessionID: sessionId}).First(&m).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return r.mapper.MetricsToEntity(&m), nil
}

package implementation

import (
	"context"

	"recall-be/internal/entity"
	"recall-be/internal/mapper"
	"recall-be/internal/model"
	"recall-be/internal/repository/contract"
	"recall-be/internal/repository/specification"

	"gorm.io/gorm"
)

type RecallOutcomeRepositoryImpl struct {
	db     *gorm.DB
	mapper *mapper.SessionMapper
}

func NewRecallOutcomeRepository(db *gorm.DB) contract.RecallOutcomeRepository {
	return &RecallOutcomeRepositoryImpl{
		db:     db,
		mapper: mapper.NewSessionMapper(),
	}
}

func (r *RecallOutcomeRepositoryImpl) Create(ctx context.Context, outcome *entity.RecallOutcome) error {
	m := r.mapper.OutcomeToModel(outcome)
	if err := r.db.WithContext(ctx).Create(m).Error; err != nil {
		return translateError(err)
	}
	*outcome = *r.mapper.OutcomeToEntity(m)
	return nil
}

func (r *RecallOutcomeRepositoryImpl) FindBySession(ctx context.Context, sessionId string) ([]*entity.RecallOutcome, error) {
	var models []*model.RecallOutcome
	query := applySpecifications(r.db.WithContext(ctx),
		specification.BySessionID{SessionID: sessionId},
		specification.OrderBy{Field: "message_index_end"},
	)
	if err := query.Find(&models).Error; err != nil {
		return nil, err
	}
	entities := make([]*entity.RecallOutcome, len(models))
	for i, m := range models {
		entities[i] = r.mapper.OutcomeToEntity(m)
	}
	return entities, nil
}

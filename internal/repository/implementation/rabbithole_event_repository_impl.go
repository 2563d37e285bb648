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

type RabbitholeEventRepositoryImpl struct {
	db     *gorm.DB
	mapper *mapper.SessionMapper
}

func NewRabbitholeEventRepository(db *gorm.DB) contract.RabbitholeEventRepository {
	return &RabbitholeEventRepositoryImpl{
		db:     db,
		mapper: mapper.NewSessionMapper(),
	}
}

func (r *RabbitholeEventRepositoryImpl) Create(ctx context.Context, event *entity.RabbitholeEvent) error {
	return translateError(r.db.WithContext(ctx).Create(r.mapper.RabbitholeToModel(event)).Error)
}

func (r *RabbitholeEventRepositoryImpl) FindBySession(ctx context.Context, sessionId string) ([]*entity.RabbitholeEvent, error) {
	var models []*model.RabbitholeEvent
	query := applySpecifications(r.db.WithContext(ctx),
		specification.BySessionID{SessionID: sessionId},
		specification.OrderBy{Field: "created_at"},
	)
	if err := query.Find(&models).Error; err != nil {
		return nil, err
	}
	entities := make([]*entity.RabbitholeEvent, len(models))
	for i, m := range models {
		entities[i] = r.mapper.RabbitholeToEntity(m)
	}
	return entities, nil
}

package implementation

import (
	"context"
	"errors"

	"recall-be/internal/entity"
	"recall-be/internal/mapper"
	"recall-be/internal/model"
	"recall-be/internal/repository/contract"
	"recall-be/internal/repository/specification"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type RecallSetRepositoryImpl struct {
	db     *gorm.DB
	mapper *mapper.RecallMapper
}

func NewRecallSetRepository(db *gorm.DB) contract.RecallSetRepository {
	return &RecallSetRepositoryImpl{
		db:     db,
		mapper: mapper.NewRecallMapper(),
	}
}

func (r *RecallSetRepositoryImpl) Create(ctx context.Context, set *entity.RecallSet) error {
	m := r.mapper.RecallSetToModel(set)
	if err := r.db.WithContext(ctx).Create(m).Error; err != nil {
		return translateError(err)
	}
	*set = *r.mapper.RecallSetToEntity(m)
	return nil
}

func (r *RecallSetRepositoryImpl) Update(ctx context.Context, set *entity.RecallSet) error {
	m := r.mapper.RecallSetToModel(set)
	if err := r.db.WithContext(ctx).Save(m).Error; err != nil {
		return err
	}
	*set = *r.mapper.RecallSetToEntity(m)
	return nil
}

func (r *RecallSetRepositoryImpl) FindByID(ctx context.Context, id uuid.UUID) (*entity.RecallSet, error) {
	var m model.RecallSet
	query := applySpecifications(r.db.WithContext(ctx), specification.ByID{ID: id})
	if err := query.First(&m).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return r.mapper.RecallSetToEntity(&m), nil
}

func (r *RecallSetRepositoryImpl) FindAll(ctx context.Context) ([]*entity.RecallSet, error) {
	var models []*model.RecallSet
	query := applySpecifications(r.db.WithContext(ctx), specification.OrderBy{Field: "created_at"})
	if err := query.Find(&models).Error; err != nil {
		return nil, err
	}
	entities := make([]*entity.RecallSet, len(models))
	for i, m := range models {
		entities[i] = r.mapper.RecallSetToEntity(m)
	}
	return entities, nil
}

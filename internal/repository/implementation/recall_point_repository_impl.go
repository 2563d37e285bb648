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

type RecallPointRepositoryImpl struct {
	db     *gorm.DB
	mapper *mapper.RecallMapper
}

func NewRecallPointRepository(db *gorm.DB) contract.RecallPointRepository {
	return &RecallPointRepositoryImpl{
		db:     db,
		mapper: mapper.NewRecallMapper(),
	}
}

func (r *RecallPointRepositoryImpl) Create(ctx context.Context, point *entity.RecallPoint) error {
	m := r.mapper.RecallPointToModel(point)
	if err := r.db.WithContext(ctx).Create(m).Error; err != nil {
		return translateError(err)
	}
	*point = *r.mapper.RecallPointToEntity(m)
	return nil
}

func (r *RecallPointRepositoryImpl) Update(ctx context.Context, point *entity.RecallPoint) error {
	m := r.mapper.RecallPointToModel(point)
	if err := r.db.WithContext(ctx).Save(m).Error; err != nil {
		return err
	}
	*point = *r.mapper.RecallPointToEntity(m)
	return nil
}

func (r *RecallPointRepositoryImpl) FindByID(ctx context.Context, id uuid.UUID) (*entity.RecallPoint, error) {
	var m model.RecallPoint
	if err := applySpecifications(r.db.WithContext(ctx), specification.ByID{ID: id}).First(&m).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return r.mapper.RecallPointToEntity(&m), nil
}

func (r *RecallPointRepositoryImpl) FindByIDs(ctx context.Context, ids []uuid.UUID) ([]*entity.RecallPoint, error) {
	if len(ids) == 0 {
		return []*entity.RecallPoint{}, nil
	}
	var models []*model.RecallPoint
	query := applySpecifications(r.db.WithContext(ctx),
		specification.ByIDs{IDs: ids},
		specification.OrderBy{Field: "created_at"},
	)
	if err := query.Find(&models).Error; err != nil {
		return nil, err
	}
	return r.mapper.RecallPointsToEntities(models), nil
}

func (r *RecallPointRepositoryImpl) FindByRecallSet(ctx context.Context, recallSetId uuid.UUID) ([]*entity.RecallPoint, error) {
	var models []*model.RecallPoint
	query := applySpecifications(r.db.WithContext(ctx),
		specification.ByRecallSetID{RecallSetID: recallSetId},
		specification.OrderBy{Field: "created_at"},
		specification.OrderBy{Field: "id"},
	)
	if err := query.Find(&models).Error; err != nil {
		return nil, err
	}
	return r.mapper.RecallPointsToEntities(models), nil
}

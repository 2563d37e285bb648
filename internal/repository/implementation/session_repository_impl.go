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

type SessionRepositoryImpl struct {
	db     *gorm.DB
	mapper *mapper.SessionMapper
}

func NewSessionRepository(db *gorm.DB) contract.SessionRepository {
	return &SessionRepositoryImpl{
		db:     db,
		mapper: mapper.NewSessionMapper(),
	}
}

func (r *SessionRepositoryImpl) Create(ctx context.Context, session *entity.Session) error {
	m, err := r.mapper.SessionToModel(session)
	if err != nil {
		return err
	}
	if err := r.db.WithContext(ctx).Create(m).Error; err != nil {
		return translateError(err)
	}
	res, err := r.mapper.SessionToEntity(m)
	if err != nil {
		return err
	}
	*session = *res
	return nil
}

func (r *SessionRepositoryImpl) Update(ctx context.Context, session *entity.Session) error {
	m, err := r.mapper.SessionToModel(session)
	if err != nil {
		return err
	}
	if err := r.db.WithContext(ctx).Save(m).Error; err != nil {
		return err
	}
	res, err := r.mapper.SessionToEntity(m)
	if err != nil {
		return err
	}
	*session = *res
	return nil
}

func (r *SessionRepositoryImpl) FindByID(ctx context.Context, id string) (*entity.Session, error) {
	return r.findOne(ctx, specification.ByStringID{ID: id})
}

func (r *SessionRepositoryImpl) FindInProgressByRecallSet(ctx context.Context, recallSetId uuid.UUID) (*entity.Session, error) {
	return r.findOne(ctx,
		specification.ByRecallSetID{RecallSetID: recallSetId},
		specification.ByStatus{Status: entity.SessionStatusInProgress},
		specification.OrderBy{Field: "started_at", Desc: true},
	)
}

func (r *SessionRepositoryImpl) findOne(ctx context.Context, specs ...specification.Specification) (*entity.Session, error) {
	var m model.Session
	if err := applySpecifications(r.db.WithContext(ctx), specs...).First(&m).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return r.mapper.SessionToEntity(&m)
}

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

type TranscriptRepositoryImpl struct {
	db     *gorm.DB
	mapper *mapper.SessionMapper
}

func NewTranscriptRepository(db *gorm.DB) contract.TranscriptRepository {
	return &TranscriptRepositoryImpl{
		db:     db,
		mapper: mapper.NewSessionMapper(),
	}
}

func (r *TranscriptRepositoryImpl) Append(ctx context.Context, message *entity.TranscriptMessage) error {
	m, err := r.mapper.MessageToModel(message)
	if err != nil {
		return err
	}
	return translateError(r.db.WithContext(ctx).Create(m).Error)
}

func (r *TranscriptRepositoryImpl) FindBySession(ctx context.Context, sessionId string) ([]*entity.TranscriptMessage, error) {
	var models []*model.TranscriptMessage
	query := applySpecifications(r.db.WithContext(ctx),
		specification.BySessionID{SessionID: sessionId},
		specification.OrderBy{Field: "seq"},
	)
	if err := query.Find(&models).Error; err != nil {
		return nil, err
	}
	entities := make([]*entity.TranscriptMessage, 0, len(models))
	for _, m := range models {
		e, err := r.mapper.MessageToEntity(m)
		if err != nil {
			return nil, err
		}
		entities = append(entities, e)
	}
	return entities, nil
}

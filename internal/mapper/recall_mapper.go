package mapper

import (
	"time"

	"recall-be/internal/entity"
	"recall-be/internal/model"
)

type RecallMapper struct{}

func NewRecallMapper() *RecallMapper {
	return &RecallMapper{}
}

// Recall Set Mappers

func (m *RecallMapper) RecallSetToEntity(s *model.RecallSet) *entity.RecallSet {
	if s == nil {
		return nil
	}

	var updatedAt *time.Time
	if !s.UpdatedAt.IsZero() {
		t := s.UpdatedAt
		updatedAt = &t
	}

	return &entity.RecallSet{
		Id:               s.Id,
		Name:             s.Name,
		Description:      s.Description,
		DiscussionPrompt: s.DiscussionPrompt,
		Status:           s.Status,
		CreatedAt:        s.CreatedAt,
		UpdatedAt:        updatedAt,
	}
}

func (m *RecallMapper) RecallSetToModel(s *entity.RecallSet) *model.RecallSet {
	if s == nil {
		return nil
	}

	var updatedAt time.Time
	if s.UpdatedAt != nil {
		updatedAt = *s.UpdatedAt
	}

	return &model.RecallSet{
		Id:               s.Id,
		Name:             s.Name,
		Description:      s.Description,
		DiscussionPrompt: s.DiscussionPrompt,
		Status:           s.Status,
		CreatedAt:        s.CreatedAt,
		UpdatedAt:        updatedAt,
	}
}

// Recall Point Mappers

func (m *RecallMapper) RecallPointToEntity(p *model.RecallPoint) *entity.RecallPoint {
	if p == nil {
		return nil
	}

	var updatedAt *time.Time
	if !p.UpdatedAt.IsZero() {
		t := p.UpdatedAt
		updatedAt = &t
	}

	return &entity.RecallPoint{
		Id:           p.Id,
		RecallSetId:  p.RecallSetId,
		Content:      p.Content,
		Context:      p.Context,
		State:        p.State,
		DueAt:        p.DueAt,
		Stability:    p.Stability,
		Difficulty:   p.Difficulty,
		Reps:         p.Reps,
		Lapses:       p.Lapses,
		LastReviewAt: p.LastReviewAt,
		CreatedAt:    p.CreatedAt,
		UpdatedAt:    updatedAt,
	}
}

func (m *RecallMapper) RecallPointToModel(p *entity.RecallPoint) *model.RecallPoint {
	if p == nil {
		return nil
	}

	var updatedAt time.Time
	if p.UpdatedAt != nil {
		updatedAt = *p.UpdatedAt
	}

	return &model.RecallPoint{
		Id:           p.Id,
		RecallSetId:  p.RecallSetId,
		Content:      p.Content,
		Context:      p.Context,
		State:        p.State,
		DueAt:        p.DueAt,
		Stability:    p.Stability,
		Difficulty:   p.Difficulty,
		Reps:         p.Reps,
		Lapses:       p.Lapses,
		LastReviewAt: p.LastReviewAt,
		CreatedAt:    p.CreatedAt,
		UpdatedAt:    updatedAt,
	}
}

func (m *RecallMapper) RecallPointsToEntities(points []*model.RecallPoint) []*entity.RecallPoint {
	entities := make([]*entity.RecallPoint, len(points))
	for i, p := range points {
		entities[i] = m.RecallPointToEntity(p)
	}
	return entities
}

package mapper

import (
	"encoding/json"
	"time"

	"recall-be/internal/entity"
	"recall-be/internal/model"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

type SessionMapper struct{}

func NewSessionMapper() *SessionMapper {
	return &SessionMapper{}
}

// Session Mappers

func (m *SessionMapper) SessionToEntity(s *model.Session) (*entity.Session, error) {
	if s == nil {
		return nil, nil
	}

	targets := make([]uuid.UUID, 0)
	if len(s.TargetRecallPointIds) > 0 {
		if err := json.Unmarshal(s.TargetRecallPointIds, &targets); err != nil {
			return nil, err
		}
	}

	var updatedAt *time.Time
	if !s.UpdatedAt.IsZero() {
		t := s.UpdatedAt
		updatedAt = &t
	}

	return &entity.Session{
		Id:                   s.Id,
		RecallSetId:          s.RecallSetId,
		Status:               s.Status,
		TargetRecallPointIds: targets,
		StartedAt:            s.StartedAt,
		EndedAt:              s.EndedAt,
		UpdatedAt:            updatedAt,
	}, nil
}

func (m *SessionMapper) SessionToModel(s *entity.Session) (*model.Session, error) {
	if s == nil {
		return nil, nil
	}

	targets := s.TargetRecallPointIds
	if targets == nil {
		targets = []uuid.UUID{}
	}
	raw, err := json.Marshal(targets)
	if err != nil {
		return nil, err
	}

	var updatedAt time.Time
	if s.UpdatedAt != nil {
		updatedAt = *s.UpdatedAt
	}

	return &model.Session{
		Id:                   s.Id,
		RecallSetId:          s.RecallSetId,
		Status:               s.Status,
		TargetRecallPointIds: datatypes.JSON(raw),
		StartedAt:            s.StartedAt,
		EndedAt:              s.EndedAt,
		UpdatedAt:            updatedAt,
	}, nil
}

// Outcome Mappers

func (m *SessionMapper) OutcomeToEntity(o *model.RecallOutcome) *entity.RecallOutcome {
	if o == nil {
		return nil
	}
	return &entity.RecallOutcome{
		Id:                o.Id,
		SessionId:         o.SessionId,
		RecallPointId:     o.RecallPointId,
		Success:           o.Success,
		Confidence:        o.Confidence,
		Rating:            o.Rating,
		Reasoning:         o.Reasoning,
		MessageIndexStart: o.MessageIndexStart,
		MessageIndexEnd:   o.MessageIndexEnd,
		TimeSpentMs:       o.TimeSpentMs,
		Indeterminate:     o.Indeterminate,
		CreatedAt:         o.CreatedAt,
	}
}

func (m *SessionMapper) OutcomeToModel(o *entity.RecallOutcome) *model.RecallOutcome {
	if o == nil {
		return nil
	}
	return &model.RecallOutcome{
		Id:                o.Id,
		SessionId:         o.SessionId,
		RecallPointId:     o.RecallPointId,
		Success:           o.Success,
		Confidence:        o.Confidence,
		Rating:            o.Rating,
		Reasoning:         o.Reasoning,
		MessageIndexStart: o.MessageIndexStart,
		MessageIndexEnd:   o.MessageIndexEnd,
		TimeSpentMs:       o.TimeSpentMs,
		Indeterminate:     o.Indeterminate,
		CreatedAt:         o.CreatedAt,
	}
}

// Transcript Mappers

func (m *SessionMapper) MessageToEntity(msg *model.TranscriptMessage) (*entity.TranscriptMessage, error) {
	if msg == nil {
		return nil, nil
	}

	res := &entity.TranscriptMessage{
		Id:        msg.Id,
		SessionId: msg.SessionId,
		Seq:       msg.Seq,
		Role:      msg.Role,
		Content:   msg.Content,
		Timestamp: msg.Timestamp,
	}

	if len(msg.Evaluation) > 0 && string(msg.Evaluation) != "null" {
		var marker entity.EvaluationMarker
		if err := json.Unmarshal(msg.Evaluation, &marker); err != nil {
			return nil, err
		}
		res.Evaluation = &marker
	}
	if len(msg.Rabbithole) > 0 && string(msg.Rabbithole) != "null" {
		var marker entity.RabbitholeMarker
		if err := json.Unmarshal(msg.Rabbithole, &marker); err != nil {
			return nil, err
		}
		res.Rabbithole = &marker
	}

	return res, nil
}

func (m *SessionMapper) MessageToModel(msg *entity.TranscriptMessage) (*model.TranscriptMessage, error) {
	if msg == nil {
		return nil, nil
	}

	res := &model.TranscriptMessage{
		Id:        msg.Id,
		SessionId: msg.SessionId,
		Seq:       msg.Seq,
		Role:      msg.Role,
		Content:   msg.Content,
		Timestamp: msg.Timestamp,
	}

	if msg.Evaluation != nil {
		raw, err := json.Marshal(msg.Evaluation)
		if err != nil {
			return nil, err
		}
		res.Evaluation = datatypes.JSON(raw)
	}
	if msg.Rabbithole != nil {
		raw, err := json.Marshal(msg.Rabbithole)
		if err != nil {
			return nil, err
		}
		res.Rabbithole = datatypes.JSON(raw)
	}

	return res, nil
}

// Rabbit Hole Mappers

func (m *SessionMapper) RabbitholeToEntity(e *model.RabbitholeEvent) *entity.RabbitholeEvent {
	if e == nil {
		return nil
	}
	return &entity.RabbitholeEvent{
		Id:          e.Id,
		SessionId:   e.SessionId,
		Topic:       e.Topic,
		Depth:       e.Depth,
		Status:      e.Status,
		ResumeIndex: e.ResumeIndex,
		ChunkIndex:  e.ChunkIndex,
		CreatedAt:   e.CreatedAt,
	}
}

func (m *SessionMapper) RabbitholeToModel(e *entity.RabbitholeEvent) *model.RabbitholeEvent {
	if e == nil {
		return nil
	}
	return &model.RabbitholeEvent{
		Id:          e.Id,
		SessionId:   e.SessionId,
		Topic:       e.Topic,
		Depth:       e.Depth,
		Status:      e.Status,
		ResumeIndex: e.ResumeIndex,
		ChunkIndex:  e.ChunkIndex,
		CreatedAt:   e.CreatedAt,
	}
}

// Metrics Mappers

func (m *SessionMapper) MetricsToEntity(s *model.SessionMetrics) *entity.SessionMetrics {
	if s == nil {
		return nil
	}
	return &entity.SessionMetrics{
		SessionId:         s.SessionId,
		RecallSetId:       s.RecallSetId,
		TotalPoints:       s.TotalPoints,
		EvaluatedPoints:   s.EvaluatedPoints,
		SuccessfulPoints:  s.SuccessfulPoints,
		RecallRate:        s.RecallRate,
		AverageConfidence: s.AverageConfidence,
		RabbitholeCount:   s.RabbitholeCount,
		MessageCount:      s.MessageCount,
		DurationMs:        s.DurationMs,
		TotalTimeSpentMs:  s.TotalTimeSpentMs,
		ComputedAt:        s.ComputedAt,
	}
}

func (m *SessionMapper) MetricsToModel(s *entity.SessionMetrics) *model.SessionMetrics {
	if s == nil {
		return nil
	}
	return &model.SessionMetrics{
		SessionId:         s.SessionId,
		RecallSetId:       s.RecallSetId,
		TotalPoints:       s.TotalPoints,
		EvaluatedPoints:   s.EvaluatedPoints,
		SuccessfulPoints:  s.SuccessfulPoints,
		RecallRate:        s.RecallRate,
		AverageConfidence: s.AverageConfidence,
		RabbitholeCount:   s.RabbitholeCount,
		MessageCount:      s.MessageCount,
		DurationMs:        s.DurationMs,
		TotalTimeSpentMs:  s.TotalTimeSpentMs,
		ComputedAt:        s.ComputedAt,
	}
}

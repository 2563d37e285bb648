package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"recall-be/internal/dto"
	"recall-be/internal/entity"
	"recall-be/internal/pkg/logger"
	"recall-be/internal/repository/unitofwork"
	"recall-be/pkg/events"
	"recall-be/pkg/recall/engine"
	"recall-be/pkg/recall/gate"
	"recall-be/pkg/recall/metrics"
	"recall-be/pkg/recall/scheduler"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// LiveSessions closes the live connection of a session, wherever it is attached.
type LiveSessions interface {
	CloseSession(sessionKey string, reason engine.CloseReason)
}

type ISessionService interface {
	Start(ctx context.Context, req *dto.StartSessionRequest) (*dto.StartSessionResponse, error)
	Abandon(ctx context.Context, id string) (*dto.SessionResponse, error)
	Show(ctx context.Context, id string) (*dto.SessionResponse, error)
	Transcript(ctx context.Context, id string) (*dto.TranscriptResponse, error)
	Metrics(ctx context.Context, id string) (*dto.SessionMetricsResponse, error)
}

type sessionService struct {
	uowFactory unitofwork.RepositoryFactory
	oracle     scheduler.Oracle
	publisher  events.Publisher
	live       LiveSessions
	logger     logger.ILogger
	now        func() time.Time
}

func NewSessionService(
	uowFactory unitofwork.RepositoryFactory,
	oracle scheduler.Oracle,
	publisher events.Publisher,
	live LiveSessions,
	log logger.ILogger,
) ISessionService {
	if publisher == nil {
		publisher = events.NopPublisher{}
	}
	return &sessionService{
		uowFactory: uowFactory,
		oracle:     oracle,
		publisher:  publisher,
		live:       live,
		logger:     log,
		now:        time.Now,
	}
}

// Start returns the in-progress session of the set or creates one targeting
// the points due right now. The lookup and the insert are separate operations,
// so two concurrent starts may both create a session.
func (s *sessionService) Start(ctx context.Context, req *dto.StartSessionRequest) (*dto.StartSessionResponse, error) {
	uow := s.uowFactory.NewUnitOfWork(ctx)

	set, err := uow.RecallSetRepository().FindByID(ctx, req.RecallSetId)
	if err != nil {
		return nil, err
	}
	if set == nil {
		return nil, ErrRecallSetNotFound
	}
	if set.IsArchived() {
		return nil, fmt.Errorf("%w: %q cannot be studied", ErrSetArchived, set.Name)
	}

	existing, err := uow.SessionRepository().FindInProgressByRecallSet(ctx, set.Id)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		s.publish(ctx, events.SessionResumed, existing)
		return &dto.StartSessionResponse{
			SessionId:              existing.Id,
			IsResume:               true,
			TargetRecallPointCount: len(existing.TargetRecallPointIds),
		}, nil
	}

	due, err := s.oracle.DueItems(ctx, set.Id)
	if err != nil {
		return nil, err
	}
	if len(due) == 0 {
		return nil, ErrNoDuePoints
	}

	targets := make([]uuid.UUID, 0, len(due))
	for _, p := range due {
		targets = append(targets, p.Id)
	}

	session := &entity.Session{
		Id:                   gate.SessionIDPrefix + strings.ReplaceAll(uuid.NewString(), "-", ""),
		RecallSetId:          set.Id,
		Status:               entity.SessionStatusInProgress,
		TargetRecallPointIds: targets,
		StartedAt:            s.now(),
	}
	if err := uow.SessionRepository().Create(ctx, session); err != nil {
		return nil, err
	}

	trace.SpanFromContext(ctx).SetAttributes(
		attribute.String("session.id", session.Id),
		attribute.Int("session.targets", len(targets)),
	)
	s.logger.Info("SessionService", "Session started", map[string]interface{}{
		"session_id":    session.Id,
		"recall_set_id": set.Id.String(),
		"targets":       len(targets),
	})
	s.publish(ctx, events.SessionStarted, session)

	return &dto.StartSessionResponse{
		SessionId:              session.Id,
		IsResume:               false,
		TargetRecallPointCount: len(targets),
	}, nil
}

func (s *sessionService) Abandon(ctx context.Context, id string) (*dto.SessionResponse, error) {
	uow := s.uowFactory.NewUnitOfWork(ctx)
	if err := uow.Begin(ctx); err != nil {
		return nil, err
	}
	defer uow.Rollback()

	session, err := uow.SessionRepository().FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if session == nil {
		return nil, ErrSessionNotFound
	}
	if !session.IsInProgress() {
		return nil, fmt.Errorf("%w: session is %s", ErrSessionNotInProgress, session.Status)
	}

	now := s.now()
	session.Status = entity.SessionStatusAbandoned
	session.EndedAt = &now
	session.UpdatedAt = &now
	if err := uow.SessionRepository().Update(ctx, session); err != nil {
		return nil, err
	}
	if err := uow.Commit(); err != nil {
		return nil, err
	}

	if s.live != nil {
		s.live.CloseSession(session.Id, engine.CloseAbandoned)
	}
	s.publish(ctx, events.SessionAbandoned, session)

	return toSessionResponse(session), nil
}

func (s *sessionService) Show(ctx context.Context, id string) (*dto.SessionResponse, error) {
	session, err := s.findSession(ctx, id)
	if err != nil {
		return nil, err
	}
	return toSessionResponse(session), nil
}

func (s *sessionService) Transcript(ctx context.Context, id string) (*dto.TranscriptResponse, error) {
	session, err := s.findSession(ctx, id)
	if err != nil {
		return nil, err
	}
	uow := s.uowFactory.NewUnitOfWork(ctx)

	messages, err := uow.TranscriptRepository().FindBySession(ctx, session.Id)
	if err != nil {
		return nil, err
	}
	outcomes, err := uow.RecallOutcomeRepository().FindBySession(ctx, session.Id)
	if err != nil {
		return nil, err
	}

	res := &dto.TranscriptResponse{
		SessionId: session.Id,
		Messages:  make([]*dto.TranscriptMessageResponse, 0, len(messages)),
		Outcomes:  make([]*dto.RecallOutcomeResponse, 0, len(outcomes)),
	}
	for _, m := range messages {
		res.Messages = append(res.Messages, toTranscriptMessageResponse(m))
	}
	for _, o := range outcomes {
		res.Outcomes = append(res.Outcomes, &dto.RecallOutcomeResponse{
			RecallPointId:     o.RecallPointId,
			Success:           o.Success,
			Confidence:        o.Confidence,
			Rating:            o.Rating,
			Reasoning:         o.Reasoning,
			MessageIndexStart: o.MessageIndexStart,
			MessageIndexEnd:   o.MessageIndexEnd,
			TimeSpentMs:       o.TimeSpentMs,
			Indeterminate:     o.Indeterminate,
		})
	}
	return res, nil
}

// Metrics returns the stored summary of a finished session. Sessions still in
// progress, or finished ones the consumer has not reached yet, are computed on
// the fly.
func (s *sessionService) Metrics(ctx context.Context, id string) (*dto.SessionMetricsResponse, error) {
	session, err := s.findSession(ctx, id)
	if err != nil {
		return nil, err
	}
	uow := s.uowFactory.NewUnitOfWork(ctx)

	stored, err := uow.SessionMetricsRepository().FindBySession(ctx, session.Id)
	if err != nil {
		return nil, err
	}
	if stored == nil {
		stored, err = computeSessionMetrics(ctx, uow, session, s.now())
		if err != nil {
			return nil, err
		}
	}
	return toSessionMetricsResponse(stored), nil
}

func (s *sessionService) findSession(ctx context.Context, id string) (*entity.Session, error) {
	session, err := s.uowFactory.NewUnitOfWork(ctx).SessionRepository().FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if session == nil {
		return nil, ErrSessionNotFound
	}
	return session, nil
}

func (s *sessionService) publish(ctx context.Context, eventType string, session *entity.Session) {
	err := s.publisher.Publish(ctx, events.NewSessionEvent(eventType, session.Id, map[string]interface{}{
		"recall_set_id": session.RecallSetId.String(),
		"status":        session.Status,
		"targets":       len(session.TargetRecallPointIds),
	}))
	if err != nil {
		s.logger.Warn("SessionService", "Failed to publish session event", map[string]interface{}{
			"session_id": session.Id,
			"event":      eventType,
			"error":      err,
		})
	}
}

func computeSessionMetrics(ctx context.Context, uow unitofwork.UnitOfWork, session *entity.Session, now time.Time) (*entity.SessionMetrics, error) {
	outcomes, err := uow.RecallOutcomeRepository().FindBySession(ctx, session.Id)
	if err != nil {
		return nil, err
	}
	messages, err := uow.TranscriptRepository().FindBySession(ctx, session.Id)
	if err != nil {
		return nil, err
	}
	rabbitholes, err := uow.RabbitholeEventRepository().FindBySession(ctx, session.Id)
	if err != nil {
		return nil, err
	}
	return metrics.Compute(metrics.Input{
		Session:     session,
		Outcomes:    outcomes,
		Messages:    messages,
		Rabbitholes: rabbitholes,
		Now:         now,
	}), nil
}

func toSessionResponse(s *entity.Session) *dto.SessionResponse {
	return &dto.SessionResponse{
		Id:                   s.Id,
		RecallSetId:          s.RecallSetId,
		Status:               s.Status,
		TargetRecallPointIds: s.TargetRecallPointIds,
		StartedAt:            s.StartedAt,
		EndedAt:              s.EndedAt,
	}
}

func toTranscriptMessageResponse(m *entity.TranscriptMessage) *dto.TranscriptMessageResponse {
	res := &dto.TranscriptMessageResponse{
		Id:        m.Id,
		Seq:       m.Seq,
		Role:      m.Role,
		Content:   m.Content,
		Timestamp: m.Timestamp,
	}
	if e := m.Evaluation; e != nil {
		res.Evaluation = &dto.EvaluationMarkerResponse{
			IsStart:       e.IsStart,
			IsEnd:         e.IsEnd,
			RecallPointId: e.RecallPointId,
			Success:       e.Success,
			Confidence:    e.Confidence,
		}
	}
	if r := m.Rabbithole; r != nil {
		res.Rabbithole = &dto.RabbitholeMarkerResponse{
			IsTrigger: r.IsTrigger,
			IsReturn:  r.IsReturn,
			Declined:  r.Declined,
			Topic:     r.Topic,
			Depth:     r.Depth,
		}
	}
	return res
}

func toSessionMetricsResponse(m *entity.SessionMetrics) *dto.SessionMetricsResponse {
	return &dto.SessionMetricsResponse{
		SessionId:         m.SessionId,
		RecallSetId:       m.RecallSetId,
		TotalPoints:       m.TotalPoints,
		EvaluatedPoints:   m.EvaluatedPoints,
		SuccessfulPoints:  m.SuccessfulPoints,
		RecallRate:        m.RecallRate,
		AverageConfidence: m.AverageConfidence,
		RabbitholeCount:   m.RabbitholeCount,
		MessageCount:      m.MessageCount,
		DurationMs:        m.DurationMs,
		TotalTimeSpentMs:  m.TotalTimeSpentMs,
		ComputedAt:        m.ComputedAt,
	}
}

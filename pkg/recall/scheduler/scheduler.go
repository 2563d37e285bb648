// Package scheduler decides which recall points are due and moves a point to its
// next review state after an attempt.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"time"

	"recall-be/internal/entity"
	"recall-be/internal/repository/unitofwork"

	"github.com/google/uuid"
)

var ErrPointNotFound = errors.New("recall point not found")

// Oracle is what the session engine needs from the scheduler.
type Oracle interface {
	DueItems(ctx context.Context, recallSetId uuid.UUID) ([]*entity.RecallPoint, error)
	RecordOutcome(ctx context.Context, recallPointId uuid.UUID, success bool, confidence float64) (*entity.RecallPoint, error)
}

type Option func(*Scheduler)

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(s *Scheduler) { s.now = now }
}

// WithLookahead includes points due within d of now after the due ones.
func WithLookahead(d time.Duration) Option {
	return func(s *Scheduler) { s.lookahead = d }
}

func WithModel(m *FSRS) Option {
	return func(s *Scheduler) { s.model = m }
}

type Scheduler struct {
	uowFactory unitofwork.RepositoryFactory
	model      *FSRS
	now        func() time.Time
	lookahead  time.Duration
}

func NewScheduler(uowFactory unitofwork.RepositoryFactory, opts ...Option) *Scheduler {
	s := &Scheduler{
		uowFactory: uowFactory,
		model:      NewFSRS(),
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Scheduler) DueItems(ctx context.Context, recallSetId uuid.UUID) ([]*entity.RecallPoint, error) {
	uow := s.uowFactory.NewUnitOfWork(ctx)

	set, err := uow.RecallSetRepository().FindByID(ctx, recallSetId)
	if err != nil {
		return nil, fmt.Errorf("load recall set: %w", err)
	}
	if set == nil || set.IsArchived() {
		return []*entity.RecallPoint{}, nil
	}

	points, err := uow.RecallPointRepository().FindByRecallSet(ctx, recallSetId)
	if err != nil {
		return nil, fmt.Errorf("load recall points: %w", err)
	}
	return SelectDue(points, s.now(), s.lookahead), nil
}

func (s *Scheduler) RecordOutcome(ctx context.Context, recallPointId uuid.UUID, success bool, confidence float64) (*entity.RecallPoint, error) {
	uow := s.uowFactory.NewUnitOfWork(ctx)
	if err := uow.Begin(ctx); err != nil {
		return nil, err
	}
	defer uow.Rollback()

	point, err := uow.RecallPointRepository().FindByID(ctx, recallPointId)
	if err != nil {
		return nil, fmt.Errorf("load recall point: %w", err)
	}
	if point == nil {
		return nil, ErrPointNotFound
	}

	s.model.Apply(point, GradeFor(success, confidence), s.now())

	if err := uow.RecallPointRepository().Update(ctx, point); err != nil {
		return nil, fmt.Errorf("update recall point: %w", err)
	}
	if err := uow.Commit(); err != nil {
		return nil, err
	}
	return point, nil
}

package scheduler

import (
	"context"
	"testing"
	"time"

	"recall-be/internal/entity"
	"recall-be/internal/repository/memory"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var fixedNow = time.Date(2026, 3, 10, 15, 0, 0, 0, time.UTC)

func point(state string, dueAt, createdAt time.Time) *entity.RecallPoint {
	return &entity.RecallPoint{
		Id:        uuid.New(),
		State:     state,
		DueAt:     dueAt,
		CreatedAt: createdAt,
	}
}

func TestSelectDue_Ordering(t *testing.T) {
	created := fixedNow.Add(-72 * time.Hour)

	overdueOld := point(entity.RecallPointStateReview, fixedNow.Add(-48*time.Hour), created)
	overdueNew := point(entity.RecallPointStateReview, fixedNow.Add(-30*time.Hour), created)
	dueToday := point(entity.RecallPointStateLearning, fixedNow.Add(-time.Hour), created)
	fresh := point(entity.RecallPointStateNew, fixedNow.Add(time.Hour), created)
	lookahead := point(entity.RecallPointStateReview, fixedNow.Add(2*time.Hour), created)
	future := point(entity.RecallPointStateReview, fixedNow.Add(72*time.Hour), created)

	input := []*entity.RecallPoint{future, lookahead, fresh, dueToday, overdueNew, overdueOld}

	t.Run("without lookahead", func(t *testing.T) {
		got := SelectDue(input, fixedNow, 0)
		assert.Equal(t, []*entity.RecallPoint{overdueOld, overdueNew, dueToday, fresh}, got)
	})

	t.Run("with lookahead", func(t *testing.T) {
		got := SelectDue(input, fixedNow, 3*time.Hour)
		assert.Equal(t, []*entity.RecallPoint{overdueOld, overdueNew, dueToday, fresh, lookahead}, got)
	})
}

func TestSelectDue_TieBreaks(t *testing.T) {
	due := fixedNow.Add(-time.Hour)
	first := point(entity.RecallPointStateReview, due, fixedNow.Add(-2*time.Hour))
	second := point(entity.RecallPointStateReview, due, fixedNow.Add(-time.Hour))

	got := SelectDue([]*entity.RecallPoint{second, first}, fixedNow, 0)
	assert.Equal(t, []*entity.RecallPoint{first, second}, got)
}

func TestGradeFor(t *testing.T) {
	tests := []struct {
		success    bool
		confidence float64
		want       Grade
	}{
		{false, 0.99, Again},
		{true, 0.3, Hard},
		{true, 0.85, Easy},
		{true, 0.6, Good},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, GradeFor(tt.success, tt.confidence))
	}
}

func TestFSRS_Transitions(t *testing.T) {
	model := NewFSRS()

	tests := []struct {
		name      string
		state     string
		grade     Grade
		wantState string
		minDue    time.Duration
		maxDue    time.Duration
	}{
		{"new again", entity.RecallPointStateNew, Again, entity.RecallPointStateLearning, time.Minute, time.Minute},
		{"new good", entity.RecallPointStateNew, Good, entity.RecallPointStateReview, 24 * time.Hour, 30 * 24 * time.Hour},
		{"learning hard", entity.RecallPointStateLearning, Hard, entity.RecallPointStateLearning, 10 * time.Minute, 10 * time.Minute},
		{"review again", entity.RecallPointStateReview, Again, entity.RecallPointStateRelearning, 10 * time.Minute, 10 * time.Minute},
		{"relearning good", entity.RecallPointStateRelearning, Good, entity.RecallPointStateReview, 24 * time.Hour, 365 * 24 * time.Hour},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			last := fixedNow.Add(-5 * 24 * time.Hour)
			p := &entity.RecallPoint{State: tt.state, Stability: 3, Difficulty: 5, LastReviewAt: &last}

			model.Apply(p, tt.grade, fixedNow)

			assert.Equal(t, tt.wantState, p.State)
			gap := p.DueAt.Sub(fixedNow)
			assert.GreaterOrEqual(t, gap, tt.minDue)
			assert.LessOrEqual(t, gap, tt.maxDue)
		})
	}
}

func TestFSRS_SuccessNeverShorterThanFailure(t *testing.T) {
	model := NewFSRS()
	states := []string{
		entity.RecallPointStateNew,
		entity.RecallPointStateLearning,
		entity.RecallPointStateReview,
		entity.RecallPointStateRelearning,
	}
	last := fixedNow.Add(-10 * 24 * time.Hour)

	for _, state := range states {
		for _, conf := range []float64{0, 0.4, 0.7, 1} {
			failed := &entity.RecallPoint{State: state, Stability: 4, Difficulty: 6, LastReviewAt: &last}
			passed := &entity.RecallPoint{State: state, Stability: 4, Difficulty: 6, LastReviewAt: &last}

			model.Apply(failed, GradeFor(false, conf), fixedNow)
			model.Apply(passed, GradeFor(true, conf), fixedNow)

			assert.False(t, passed.DueAt.Before(failed.DueAt), "state %s conf %.1f", state, conf)
			assert.False(t, failed.DueAt.Before(fixedNow))
		}
	}
}

func seed(t *testing.T, db *memory.Database, status string, points ...*entity.RecallPoint) uuid.UUID {
	t.Helper()
	ctx := context.Background()
	uow := memory.NewRepositoryFactory(db).NewUnitOfWork(ctx)

	set := &entity.RecallSet{Id: uuid.New(), Name: "Biology", Status: status}
	require.NoError(t, uow.RecallSetRepository().Create(ctx, set))
	for _, p := range points {
		p.RecallSetId = set.Id
		require.NoError(t, uow.RecallPointRepository().Create(ctx, p))
	}
	return set.Id
}

func TestScheduler_DueItems(t *testing.T) {
	db := memory.NewDatabase()
	due := point(entity.RecallPointStateReview, fixedNow.Add(-time.Hour), fixedNow.Add(-48*time.Hour))
	notDue := point(entity.RecallPointStateReview, fixedNow.Add(48*time.Hour), fixedNow.Add(-48*time.Hour))
	setID := seed(t, db, entity.RecallSetStatusActive, due, notDue)

	s := NewScheduler(memory.NewRepositoryFactory(db), WithClock(func() time.Time { return fixedNow }))

	items, err := s.DueItems(context.Background(), setID)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, due.Id, items[0].Id)
}

func TestScheduler_DueItems_ArchivedSetIsEmpty(t *testing.T) {
	db := memory.NewDatabase()
	setID := seed(t, db, entity.RecallSetStatusArchived, point(entity.RecallPointStateNew, fixedNow, fixedNow))

	s := NewScheduler(memory.NewRepositoryFactory(db), WithClock(func() time.Time { return fixedNow }))

	items, err := s.DueItems(context.Background(), setID)
	require.NoError(t, err)
	assert.Empty(t, items)
}

func TestScheduler_RecordOutcome(t *testing.T) {
	db := memory.NewDatabase()
	p := point(entity.RecallPointStateNew, fixedNow, fixedNow)
	seed(t, db, entity.RecallSetStatusActive, p)

	s := NewScheduler(memory.NewRepositoryFactory(db), WithClock(func() time.Time { return fixedNow }))

	updated, err := s.RecordOutcome(context.Background(), p.Id, true, 0.9)
	require.NoError(t, err)
	assert.Equal(t, entity.RecallPointStateReview, updated.State)
	assert.Equal(t, 1, updated.Reps)
	assert.True(t, updated.DueAt.After(fixedNow))

	stored, err := memory.NewRepositoryFactory(db).NewUnitOfWork(context.Background()).
		RecallPointRepository().FindByID(context.Background(), p.Id)
	require.NoError(t, err)
	assert.Equal(t, updated.DueAt, stored.DueAt)

	_, err = s.RecordOutcome(context.Background(), uuid.New(), true, 1)
	assert.ErrorIs(t, err, ErrPointNotFound)
}

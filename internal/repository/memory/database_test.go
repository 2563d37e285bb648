package memory

import (
	"context"
	"testing"
	"time"

	"recall-be/internal/entity"
	"recall-be/internal/repository/contract"
	"recall-be/pkg/store"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSessionRepository_FindInProgressByRecallSet(t *testing.T) {
	ctx := context.Background()
	uow := NewRepositoryFactory(NewDatabase()).NewUnitOfWork(ctx)
	repo := uow.SessionRepository()
	setID := uuid.New()
	base := time.Date(2026, 1, 2, 9, 0, 0, 0, time.UTC)

	none, err := repo.FindInProgressByRecallSet(ctx, setID)
	require.NoError(t, err)
	assert.Nil(t, none)

	require.NoError(t, repo.Create(ctx, &entity.Session{Id: "sess_old", RecallSetId: setID, Status: entity.SessionStatusInProgress, StartedAt: base}))
	require.NoError(t, repo.Create(ctx, &entity.Session{Id: "sess_new", RecallSetId: setID, Status: entity.SessionStatusInProgress, StartedAt: base.Add(time.Minute)}))
	require.NoError(t, repo.Create(ctx, &entity.Session{Id: "sess_done", RecallSetId: setID, Status: entity.SessionStatusCompleted, StartedAt: base.Add(time.Hour)}))
	assert.ErrorIs(t, repo.Create(ctx, &entity.Session{Id: "sess_old", RecallSetId: setID}), contract.ErrDuplicate)

	got, err := repo.FindInProgressByRecallSet(ctx, setID)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "sess_new", got.Id)

	// Returned entities are copies.
	got.Status = entity.SessionStatusAbandoned
	again, err := repo.FindByID(ctx, "sess_new")
	require.NoError(t, err)
	assert.Equal(t, entity.SessionStatusInProgress, again.Status)
}

func TestTranscriptAndOutcomes_RejectDuplicates(t *testing.T) {
	ctx := context.Background()
	uow := NewRepositoryFactory(NewDatabase()).NewUnitOfWork(ctx)
	pointID := uuid.New()

	for _, seq := range []int{2, 0, 1} {
		require.NoError(t, uow.TranscriptRepository().Append(ctx, &entity.TranscriptMessage{SessionId: "sess_a", Seq: seq, Role: "user", Content: "hi"}))
	}
	assert.ErrorIs(t, uow.TranscriptRepository().Append(ctx, &entity.TranscriptMessage{SessionId: "sess_a", Seq: 1}), contract.ErrDuplicate)
	require.NoError(t, uow.TranscriptRepository().Append(ctx, &entity.TranscriptMessage{SessionId: "sess_b", Seq: 1}))

	msgs, err := uow.TranscriptRepository().FindBySession(ctx, "sess_a")
	require.NoError(t, err)
	require.Len(t, msgs, 3)
	for i, m := range msgs {
		assert.Equal(t, i, m.Seq)
	}

	require.NoError(t, uow.RecallOutcomeRepository().Create(ctx, &entity.RecallOutcome{SessionId: "sess_a", RecallPointId: pointID, Success: true}))
	assert.ErrorIs(t, uow.RecallOutcomeRepository().Create(ctx, &entity.RecallOutcome{SessionId: "sess_a", RecallPointId: pointID}), contract.ErrDuplicate)
	require.NoError(t, uow.RecallOutcomeRepository().Create(ctx, &entity.RecallOutcome{SessionId: "sess_b", RecallPointId: pointID}))
}

func TestSnapshotRepository(t *testing.T) {
	repo := NewSnapshotRepository(time.Minute)

	_, ok := repo.Get("sess_a")
	assert.False(t, ok)

	repo.Save(&store.SessionSnapshot{SessionID: "sess_a"})
	got, ok := repo.Get("sess_a")
	require.True(t, ok)
	assert.Equal(t, "sess_a", got.SessionID)

	repo.Delete("sess_a")
	_, ok = repo.Get("sess_a")
	assert.False(t, ok)
}

func TestSnapshotRepository_Expires(t *testing.T) {
	repo := NewSnapshotRepository(20 * time.Millisecond)
	repo.Save(&store.SessionSnapshot{SessionID: "sess_a"})

	assert.Eventually(t, func() bool {
		_, ok := repo.Get("sess_a")
		return !ok
	}, time.Second, 10*time.Millisecond)
}

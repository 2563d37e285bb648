package implementation_test

import (
	"context"
	"os"
	"strings"
	"testing"
	"time"

	"recall-be/internal/entity"
	"recall-be/internal/model"
	"recall-be/internal/repository/contract"
	"recall-be/internal/repository/unitofwork"
	"recall-be/pkg/database"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newIntegrationFactory(t *testing.T) unitofwork.RepositoryFactory {
	t.Helper()
	_ = godotenv.Load("../../../.env")

	dsn := os.Getenv("DB_CONNECTION_STRING")
	if dsn == "" {
		t.Skip("Skipping integration test: DB_CONNECTION_STRING not set")
	}

	db, err := database.NewGormDBFromDSN(dsn, database.DefaultOptions())
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&model.RecallSet{},
		&model.RecallPoint{},
		&model.Session{},
		&model.TranscriptMessage{},
		&model.RecallOutcome{},
		&model.RabbitholeEvent{},
		&model.SessionMetrics{},
	))
	return unitofwork.NewRepositoryFactory(db)
}

func TestGormRepositories(t *testing.T) {
	factory := newIntegrationFactory(t)
	ctx := context.Background()
	now := time.Now().UTC().Truncate(time.Millisecond)

	uow := factory.NewUnitOfWork(ctx)
	set := &entity.RecallSet{Id: uuid.New(), Name: "integration " + uuid.NewString()[:8], Status: entity.RecallSetStatusActive}
	require.NoError(t, uow.RecallSetRepository().Create(ctx, set))

	point := &entity.RecallPoint{Id: uuid.New(), RecallSetId: set.Id, Content: "osmosis", State: entity.RecallPointStateNew, DueAt: now, CreatedAt: now}
	require.NoError(t, uow.RecallPointRepository().Create(ctx, point))

	sessionID := "sess_" + strings.ReplaceAll(uuid.NewString(), "-", "")
	session := &entity.Session{
		Id:                   sessionID,
		RecallSetId:          set.Id,
		Status:               entity.SessionStatusInProgress,
		TargetRecallPointIds: []uuid.UUID{point.Id},
		StartedAt:            now,
	}

	t.Run("Session round trip", func(t *testing.T) {
		require.NoError(t, uow.SessionRepository().Create(ctx, session))
		assert.ErrorIs(t, uow.SessionRepository().Create(ctx, session), contract.ErrDuplicate)

		got, err := uow.SessionRepository().FindInProgressByRecallSet(ctx, set.Id)
		require.NoError(t, err)
		require.NotNil(t, got)
		assert.Equal(t, sessionID, got.Id)
		assert.Equal(t, []uuid.UUID{point.Id}, got.TargetRecallPointIds)
	})

	t.Run("Transcript keeps markers and rejects duplicate seq", func(t *testing.T) {
		success := true
		require.NoError(t, uow.TranscriptRepository().Append(ctx, &entity.TranscriptMessage{
			SessionId: sessionID, Seq: 0, Role: "assistant", Content: "What is osmosis?", Timestamp: now,
			Evaluation: &entity.EvaluationMarker{IsStart: true, RecallPointId: point.Id},
		}))
		require.NoError(t, uow.TranscriptRepository().Append(ctx, &entity.TranscriptMessage{
			SessionId: sessionID, Seq: 1, Role: "system", Content: "evaluated", Timestamp: now,
			Evaluation: &entity.EvaluationMarker{IsEnd: true, RecallPointId: point.Id, Success: &success},
		}))
		err := uow.TranscriptRepository().Append(ctx, &entity.TranscriptMessage{SessionId: sessionID, Seq: 1, Role: "user", Timestamp: now})
		assert.ErrorIs(t, err, contract.ErrDuplicate)

		msgs, err := uow.TranscriptRepository().FindBySession(ctx, sessionID)
		require.NoError(t, err)
		require.Len(t, msgs, 2)
		require.NotNil(t, msgs[1].Evaluation)
		assert.True(t, msgs[1].Evaluation.IsEnd)
		require.NotNil(t, msgs[1].Evaluation.Success)
		assert.True(t, *msgs[1].Evaluation.Success)
	})

	t.Run("Outcome is unique per point", func(t *testing.T) {
		outcome := &entity.RecallOutcome{
			Id: uuid.New(), SessionId: sessionID, RecallPointId: point.Id,
			Success: true, Confidence: 0.8, Rating: entity.RatingGood, CreatedAt: now,
		}
		require.NoError(t, uow.RecallOutcomeRepository().Create(ctx, outcome))
		outcome.Id = uuid.New()
		assert.ErrorIs(t, uow.RecallOutcomeRepository().Create(ctx, outcome), contract.ErrDuplicate)
	})

	t.Run("Metrics upsert", func(t *testing.T) {
		m := &entity.SessionMetrics{SessionId: sessionID, RecallSetId: set.Id, TotalPoints: 1, EvaluatedPoints: 1, ComputedAt: now}
		require.NoError(t, uow.SessionMetricsRepository().Upsert(ctx, m))
		m.SuccessfulPoints = 1
		m.RecallRate = 1
		require.NoError(t, uow.SessionMetricsRepository().Upsert(ctx, m))

		got, err := uow.SessionMetricsRepository().FindBySession(ctx, sessionID)
		require.NoError(t, err)
		require.NotNil(t, got)
		assert.Equal(t, 1, got.SuccessfulPoints)
		assert.InDelta(t, 1.0, got.RecallRate, 1e-9)
	})
}

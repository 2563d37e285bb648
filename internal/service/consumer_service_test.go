package service

import (
	"context"
	"testing"
	"time"

	"recall-be/internal/entity"
	"recall-be/internal/pkg/logger"
	"recall-be/internal/repository/memory"
	"recall-be/pkg/events"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testTopic = "session.finished"

func TestEventBus_FinishedSessionsReachMetricsConsumer(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	factory := memory.NewRepositoryFactory(memory.NewDatabase())
	pubSub := gochannel.NewGoChannel(gochannel.Config{}, watermill.NopLogger{})
	defer pubSub.Close()

	consumer := NewConsumerService(pubSub, testTopic, factory, logger.NewNopLogger())
	require.NoError(t, consumer.Consume(ctx))

	external := &recordingPublisher{}
	bus := NewEventBus(external, NewPublisherService(testTopic, pubSub), logger.NewNopLogger())

	uow := factory.NewUnitOfWork(ctx)
	endedAt := time.Now()
	session := &entity.Session{
		Id:                   "sess_metrics",
		RecallSetId:          uuid.New(),
		Status:               entity.SessionStatusCompleted,
		TargetRecallPointIds: []uuid.UUID{uuid.New(), uuid.New()},
		StartedAt:            endedAt.Add(-time.Minute),
		EndedAt:              &endedAt,
	}
	require.NoError(t, uow.SessionRepository().Create(ctx, session))
	for i, ok := range []bool{true, false} {
		require.NoError(t, uow.RecallOutcomeRepository().Create(ctx, &entity.RecallOutcome{
			SessionId:       session.Id,
			RecallPointId:   session.TargetRecallPointIds[i],
			Success:         ok,
			Confidence:      0.5,
			MessageIndexEnd: i,
		}))
	}

	require.NoError(t, bus.Publish(ctx, events.NewSessionEvent(events.RecallOutcomeRecorded, session.Id, nil)))
	require.NoError(t, bus.Publish(ctx, events.NewSessionEvent(events.SessionCompleted, session.Id, map[string]interface{}{
		"status": entity.SessionStatusCompleted,
	})))

	var stored *entity.SessionMetrics
	require.Eventually(t, func() bool {
		m, err := factory.NewUnitOfWork(ctx).SessionMetricsRepository().FindBySession(ctx, session.Id)
		stored = m
		return err == nil && m != nil
	}, 2*time.Second, 10*time.Millisecond)

	assert.Equal(t, 2, stored.TotalPoints)
	assert.InDelta(t, 0.5, stored.RecallRate, 1e-9)
	assert.Equal(t, []string{events.RecallOutcomeRecorded, events.SessionCompleted}, external.types)
}

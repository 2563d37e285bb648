package service

import (
	"context"
	"encoding/json"
	"time"

	"recall-be/internal/dto"
	"recall-be/internal/pkg/logger"
	"recall-be/internal/repository/unitofwork"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
)

type IConsumerService interface {
	Consume(ctx context.Context) error
}

// consumerService computes and stores session metrics when a session finishes.
type consumerService struct {
	pubSub     *gochannel.GoChannel
	topicName  string
	uowFactory unitofwork.RepositoryFactory
	logger     logger.ILogger
}

func NewConsumerService(
	pubSub *gochannel.GoChannel,
	topicName string,
	uowFactory unitofwork.RepositoryFactory,
	log logger.ILogger,
) IConsumerService {
	return &consumerService{
		pubSub:     pubSub,
		topicName:  topicName,
		uowFactory: uowFactory,
		logger:     log,
	}
}

// Consume subscribes and processes messages in the background until ctx ends.
func (cs *consumerService) Consume(ctx context.Context) error {
	messages, err := cs.pubSub.Subscribe(ctx, cs.topicName)
	if err != nil {
		return err
	}

	go func() {
		for msg := range messages {
			cs.processMessage(ctx, msg)
		}
	}()

	return nil
}

func (cs *consumerService) processMessage(ctx context.Context, msg *message.Message) {
	var payload dto.SessionFinishedMessage
	if err := json.Unmarshal(msg.Payload, &payload); err != nil {
		cs.logger.Error("MetricsConsumer", "Failed to unmarshal message", map[string]interface{}{"error": err})
		msg.Ack() // a malformed payload will never succeed
		return
	}

	uow := cs.uowFactory.NewUnitOfWork(ctx)

	session, err := uow.SessionRepository().FindByID(ctx, payload.SessionId)
	if err != nil {
		cs.logger.Error("MetricsConsumer", "Failed to load session", map[string]interface{}{"session_id": payload.SessionId, "error": err})
		msg.Nack()
		return
	}
	if session == nil {
		cs.logger.Warn("MetricsConsumer", "Session not found", map[string]interface{}{"session_id": payload.SessionId})
		msg.Ack()
		return
	}

	m, err := computeSessionMetrics(ctx, uow, session, time.Now())
	if err != nil {
		cs.logger.Error("MetricsConsumer", "Failed to compute metrics", map[string]interface{}{"session_id": session.Id, "error": err})
		msg.Nack()
		return
	}

	if err := uow.SessionMetricsRepository().Upsert(ctx, m); err != nil {
		cs.logger.Error("MetricsConsumer", "Failed to store metrics", map[string]interface{}{"session_id": session.Id, "error": err})
		msg.Nack()
		return
	}

	cs.logger.Info("MetricsConsumer", "Session metrics stored", map[string]interface{}{
		"session_id":  session.Id,
		"status":      session.Status,
		"recall_rate": m.RecallRate,
		"evaluated":   m.EvaluatedPoints,
	})
	msg.Ack()
}

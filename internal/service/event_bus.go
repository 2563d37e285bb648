package service

import (
	"context"
	"encoding/json"
	"errors"

	"recall-be/internal/dto"
	"recall-be/internal/pkg/logger"
	"recall-be/pkg/events"
)

// eventBus forwards domain events to the external bus and hands finished
// sessions to the in-process metrics pipeline.
type eventBus struct {
	external events.Publisher
	finished IPublisherService
	logger   logger.ILogger
}

// NewEventBus returns the publisher used by the session service and engine.
// external may be nil when no broker is configured.
func NewEventBus(external events.Publisher, finished IPublisherService, log logger.ILogger) events.Publisher {
	if external == nil {
		external = events.NopPublisher{}
	}
	return &eventBus{
		external: external,
		finished: finished,
		logger:   log,
	}
}

func (b *eventBus) Publish(ctx context.Context, event events.Event) error {
	var errs []error

	if err := b.external.Publish(ctx, event); err != nil {
		b.logger.Warn("EventBus", "External publish failed", map[string]interface{}{
			"event": event.EventType(),
			"error": err,
		})
		errs = append(errs, err)
	}

	if b.finished != nil && events.IsSessionFinished(event.EventType()) {
		sessionID, _ := event.Payload()["session_id"].(string)
		status, _ := event.Payload()["status"].(string)
		payload, err := json.Marshal(dto.SessionFinishedMessage{SessionId: sessionID, Status: status})
		if err == nil {
			err = b.finished.Publish(ctx, payload)
		}
		if err != nil {
			b.logger.Error("EventBus", "Failed to queue metrics computation", map[string]interface{}{
				"session_id": sessionID,
				"error":      err,
			})
			errs = append(errs, err)
		}
	}

	return errors.Join(errs...)
}

package events

import "time"

const (
	SessionStarted        = "SESSION_STARTED"
	SessionResumed        = "SESSION_RESUMED"
	SessionCompleted      = "SESSION_COMPLETED"
	SessionAbandoned      = "SESSION_ABANDONED"
	RecallOutcomeRecorded = "RECALL_OUTCOME_RECORDED"
	RabbitholeEntered     = "RABBITHOLE_ENTERED"
	RabbitholeDeclined    = "RABBITHOLE_DECLINED"
	RabbitholeExited      = "RABBITHOLE_EXITED"
)

// IsSessionFinished reports whether eventType ends a session.
func IsSessionFinished(eventType string) bool {
	return eventType == SessionCompleted || eventType == SessionAbandoned
}

// NewSessionEvent builds an event whose payload always carries session_id.
func NewSessionEvent(eventType, sessionID string, data map[string]interface{}) BaseEvent {
	payload := map[string]interface{}{"session_id": sessionID}
	for k, v := range data {
		payload[k] = v
	}
	return BaseEvent{
		Type:       eventType,
		Data:       payload,
		OccurredAt: time.Now(),
	}
}

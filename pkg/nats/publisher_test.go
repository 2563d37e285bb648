package nats

import (
	"testing"

	"recall-be/pkg/events"

	"github.com/stretchr/testify/assert"
)

func TestSubject(t *testing.T) {
	tests := []struct {
		eventType string
		want      string
	}{
		{events.SessionStarted, "sessions.session_started"},
		{events.SessionCompleted, "sessions.session_completed"},
		{"CUSTOM", "sessions.custom"},
	}
	for _, tt := range tests {
		t.Run(tt.eventType, func(t *testing.T) {
			assert.Equal(t, tt.want, Subject(tt.eventType))
		})
	}
}

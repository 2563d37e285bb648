package metrics

import (
	"testing"
	"time"

	"recall-be/internal/entity"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func TestCompute(t *testing.T) {
	start := time.Date(2026, 1, 5, 9, 0, 0, 0, time.UTC)
	end := start.Add(90 * time.Second)
	session := &entity.Session{
		Id:                   "sess_abc",
		RecallSetId:          uuid.New(),
		TargetRecallPointIds: []uuid.UUID{uuid.New(), uuid.New(), uuid.New()},
		StartedAt:            start,
		EndedAt:              &end,
	}

	m := Compute(Input{
		Session: session,
		Outcomes: []*entity.RecallOutcome{
			{Success: true, Confidence: 0.85, TimeSpentMs: 4000},
			{Success: false, Confidence: 0.3, TimeSpentMs: 6000},
		},
		Messages: make([]*entity.TranscriptMessage, 7),
		Rabbitholes: []*entity.RabbitholeEvent{
			{Status: entity.RabbitholeStatusEntered},
			{Status: entity.RabbitholeStatusExited},
			{Status: entity.RabbitholeStatusDeclined},
		},
		Now: end.Add(time.Hour),
	})

	assert.Equal(t, 3, m.TotalPoints)
	assert.Equal(t, 2, m.EvaluatedPoints)
	assert.Equal(t, 1, m.SuccessfulPoints)
	assert.InDelta(t, 0.5, m.RecallRate, 1e-9)
	assert.InDelta(t, 0.575, m.AverageConfidence, 1e-9)
	assert.Equal(t, 1, m.RabbitholeCount)
	assert.Equal(t, 7, m.MessageCount)
	assert.Equal(t, int64(90000), m.DurationMs)
	assert.Equal(t, int64(10000), m.TotalTimeSpentMs)
}

func TestRecallRate_NoOutcomes(t *testing.T) {
	assert.Equal(t, 0.0, RecallRate(nil))
}

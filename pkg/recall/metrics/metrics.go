// Package metrics summarizes a finished (or in-flight) session.
package metrics

import (
	"time"

	"recall-be/internal/entity"
)

// Input is everything Compute reads. All slices may be empty.
type Input struct {
	Session     *entity.Session
	Outcomes    []*entity.RecallOutcome
	Messages    []*entity.TranscriptMessage
	Rabbitholes []*entity.RabbitholeEvent
	Now         time.Time
}

// RecallRate is successful over evaluated outcomes, 0 when nothing was evaluated.
func RecallRate(outcomes []*entity.RecallOutcome) float64 {
	if len(outcomes) == 0 {
		return 0
	}
	ok := 0
	for _, o := range outcomes {
		if o.Success {
			ok++
		}
	}
	return float64(ok) / float64(len(outcomes))
}

func Compute(in Input) *entity.SessionMetrics {
	m := &entity.SessionMetrics{
		SessionId:       in.Session.Id,
		RecallSetId:     in.Session.RecallSetId,
		TotalPoints:     len(in.Session.TargetRecallPointIds),
		EvaluatedPoints: len(in.Outcomes),
		RecallRate:      RecallRate(in.Outcomes),
		MessageCount:    len(in.Messages),
		ComputedAt:      in.Now,
	}

	confidence := 0.0
	for _, o := range in.Outcomes {
		if o.Success {
			m.SuccessfulPoints++
		}
		confidence += o.Confidence
		m.TotalTimeSpentMs += o.TimeSpentMs
	}
	if len(in.Outcomes) > 0 {
		m.AverageConfidence = confidence / float64(len(in.Outcomes))
	}

	for _, e := range in.Rabbitholes {
		if e.Status == entity.RabbitholeStatusEntered {
			m.RabbitholeCount++
		}
	}

	end := in.Now
	if in.Session.EndedAt != nil {
		end = *in.Session.EndedAt
	}
	if end.After(in.Session.StartedAt) {
		m.DurationMs = end.Sub(in.Session.StartedAt).Milliseconds()
	}
	return m
}

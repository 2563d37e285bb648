// Package judge scores a user's answer against the recall point it was asked about.
package judge

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strings"

	"recall-be/internal/entity"
	"recall-be/pkg/llm"
	"recall-be/pkg/recall/scheduler"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

var ErrUnparseableVerdict = errors.New("judge reply is not a verdict")

type Verdict struct {
	Success    bool    `json:"success"`
	Confidence float64 `json:"confidence"`
	Rating     string  `json:"rating"`
	Reasoning  string  `json:"reasoning"`
}

type Judge interface {
	Evaluate(ctx context.Context, point *entity.RecallPoint, conversation []llm.Message) (Verdict, error)
}

// normalize clamps confidence and fills a missing or unknown rating.
func normalize(v Verdict) Verdict {
	if math.IsNaN(v.Confidence) {
		v.Confidence = 0
	}
	v.Confidence = math.Max(0, math.Min(1, v.Confidence))
	switch v.Rating {
	case entity.RatingForgot, entity.RatingHard, entity.RatingGood, entity.RatingEasy:
	default:
		v.Rating = scheduler.GradeFor(v.Success, v.Confidence).Rating()
	}
	return v
}

// ParseVerdict pulls the first JSON object out of an LLM reply.
func ParseVerdict(reply string) (Verdict, error) {
	start := strings.Index(reply, "{")
	end := strings.LastIndex(reply, "}")
	if start < 0 || end <= start {
		return Verdict{}, ErrUnparseableVerdict
	}

	var raw struct {
		Success    *bool    `json:"success"`
		Confidence *float64 `json:"confidence"`
		Rating     string   `json:"rating"`
		Reasoning  string   `json:"reasoning"`
	}
	if err := json.Unmarshal([]byte(reply[start:end+1]), &raw); err != nil {
		return Verdict{}, fmt.Errorf("%w: %v", ErrUnparseableVerdict, err)
	}
	if raw.Success == nil || raw.Confidence == nil {
		return Verdict{}, fmt.Errorf("%w: missing success or confidence", ErrUnparseableVerdict)
	}

	return normalize(Verdict{
		Success:    *raw.Success,
		Confidence: *raw.Confidence,
		Rating:     strings.ToLower(strings.TrimSpace(raw.Rating)),
		Reasoning:  raw.Reasoning,
	}), nil
}

const systemPrompt = `You grade spaced-repetition recall attempts.
Given the fact the learner should remember and the conversation, decide whether the learner recalled it.
Reply with one JSON object only:
{"success": true|false, "confidence": 0.0-1.0, "rating": "forgot"|"hard"|"good"|"easy", "reasoning": "<one sentence>"}`

type LLMJudge struct {
	provider llm.LLMProvider
}

func NewLLMJudge(provider llm.LLMProvider) *LLMJudge {
	return &LLMJudge{provider: provider}
}

func (j *LLMJudge) Evaluate(ctx context.Context, point *entity.RecallPoint, conversation []llm.Message) (Verdict, error) {
	ctx, span := otel.Tracer("recall/judge").Start(ctx, "judge.Evaluate")
	defer span.End()
	span.SetAttributes(attribute.String("recall_point.id", point.Id.String()))

	var b strings.Builder
	fmt.Fprintf(&b, "Fact to recall:\n%s\n", point.Content)
	if point.Context != "" {
		fmt.Fprintf(&b, "Context:\n%s\n", point.Context)
	}
	b.WriteString("\nConversation:\n")
	for _, m := range conversation {
		fmt.Fprintf(&b, "%s: %s\n", m.Role, m.Content)
	}

	reply, err := j.provider.Chat(ctx, []llm.Message{
		{Role: llm.RoleSystem, Content: systemPrompt},
		{Role: llm.RoleUser, Content: b.String()},
	}, llm.WithJSON(), llm.WithTemperature(0))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "llm call failed")
		return Verdict{}, err
	}

	v, err := ParseVerdict(reply)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "unparseable verdict")
		return Verdict{}, err
	}
	span.SetAttributes(attribute.Bool("verdict.success", v.Success), attribute.Float64("verdict.confidence", v.Confidence))
	return v, nil
}

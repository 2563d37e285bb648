package tutor

import (
	"context"
	"fmt"

	"recall-be/internal/entity"
	"recall-be/pkg/llm"
)

const presentPrompt = `You are a friendly study partner running a spaced-repetition session.
Open a short conversation that prompts the learner to recall the fact below.
Never state the fact itself. Ask one open question. Keep it under 80 words.`

const explorePrompt = `You are a study partner on a brief side discussion about "%s".
Answer concisely and accurately. Keep answers under 120 words.`

// LLMTutor streams from a model. When the model fails before producing any text
// the scripted tutor's text is streamed instead.
type LLMTutor struct {
	provider llm.StreamingProvider
	fallback *Scripted
}

func NewLLMTutor(provider llm.StreamingProvider) *LLMTutor {
	return &LLMTutor{provider: provider, fallback: NewScripted()}
}

func (t *LLMTutor) Present(ctx context.Context, set *entity.RecallSet, point *entity.RecallPoint, emit llm.ChunkHandler) error {
	user := fmt.Sprintf("Fact (hidden from learner): %s\nContext: %s", point.Content, point.Context)
	if set != nil && set.DiscussionPrompt != "" {
		user += "\nDiscussion guidance: " + set.DiscussionPrompt
	}

	history := []llm.Message{
		{Role: llm.RoleSystem, Content: presentPrompt},
		{Role: llm.RoleUser, Content: user},
	}
	return t.streamOrFallback(ctx, history, emit, func() error {
		return t.fallback.Present(ctx, set, point, emit)
	})
}

func (t *LLMTutor) Explore(ctx context.Context, topic string, history []llm.Message, emit llm.ChunkHandler) error {
	msgs := append([]llm.Message{{Role: llm.RoleSystem, Content: fmt.Sprintf(explorePrompt, topic)}}, history...)
	if len(history) == 0 {
		msgs = append(msgs, llm.Message{Role: llm.RoleUser, Content: "Give me a short introduction to " + topic + "."})
	}
	return t.streamOrFallback(ctx, msgs, emit, func() error {
		return t.fallback.Explore(ctx, topic, history, emit)
	})
}

func (t *LLMTutor) streamOrFallback(ctx context.Context, history []llm.Message, emit llm.ChunkHandler, fallback func() error) error {
	emitted := 0
	err := t.provider.ChatStream(ctx, history, func(chunk string) error {
		emitted++
		return emit(chunk)
	})
	if err == nil {
		return nil
	}
	if emitted == 0 && ctx.Err() == nil {
		return fallback()
	}
	return err
}

// Package tutor produces the assistant side of a session: the prompt that opens
// each recall point and the replies inside a tangent.
package tutor

import (
	"context"
	"fmt"
	"strings"

	"recall-be/internal/entity"
	"recall-be/pkg/llm"
)

type Tutor interface {
	// Present opens the discussion of point without giving its content away.
	Present(ctx context.Context, set *entity.RecallSet, point *entity.RecallPoint, emit llm.ChunkHandler) error
	// Explore answers inside a tangent about topic. history ends with the user's
	// latest message, or is empty when the tangent has just been entered.
	Explore(ctx context.Context, topic string, history []llm.Message, emit llm.ChunkHandler) error
}

// Scripted is a deterministic tutor. LLMTutor falls back to it.
type Scripted struct {
	// WordsPerChunk controls how finely text is split when streamed.
	WordsPerChunk int
}

func NewScripted() *Scripted {
	return &Scripted{WordsPerChunk: 4}
}

func (s *Scripted) Present(ctx context.Context, set *entity.RecallSet, point *entity.RecallPoint, emit llm.ChunkHandler) error {
	var b strings.Builder
	if set != nil && set.DiscussionPrompt != "" {
		b.WriteString(set.DiscussionPrompt)
		b.WriteString(" ")
	}
	cue := point.Context
	if cue == "" {
		cue = "the next item in this set"
	}
	fmt.Fprintf(&b, "Let's check what you remember about %s. Explain it in your own words.", cue)
	return s.stream(ctx, b.String(), emit)
}

func (s *Scripted) Explore(ctx context.Context, topic string, history []llm.Message, emit llm.ChunkHandler) error {
	text := fmt.Sprintf("Sure, let's take a short detour into %s. What would you like to know? Say when you want to get back on track.", topic)
	if len(history) > 0 {
		text = fmt.Sprintf("That's a good question about %s. I can't go deeper without a model connected, but keep exploring or return to the session whenever you like.", topic)
	}
	return s.stream(ctx, text, emit)
}

func (s *Scripted) stream(ctx context.Context, text string, emit llm.ChunkHandler) error {
	n := s.WordsPerChunk
	if n <= 0 {
		n = 4
	}
	words := strings.Fields(text)
	for i := 0; i < len(words); i += n {
		if err := ctx.Err(); err != nil {
			return err
		}
		end := i + n
		if end > len(words) {
			end = len(words)
		}
		chunk := strings.Join(words[i:end], " ")
		if end < len(words) {
			chunk += " "
		}
		if err := emit(chunk); err != nil {
			return err
		}
	}
	return nil
}

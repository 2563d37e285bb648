// Package tangent spots when a conversation drifts off the current recall point.
package tangent

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"recall-be/pkg/llm"
)

// Proposal is a detected tangent offered to the user. Depth is the depth the
// tangent would have if entered.
type Proposal struct {
	Topic string `json:"topic"`
	Depth int    `json:"depth"`
}

// Detector returns nil when nothing worth exploring was found.
type Detector interface {
	Detect(ctx context.Context, conversation []llm.Message, currentDepth int) (*Proposal, error)
}

// Disabled never detects anything.
type Disabled struct{}

func (Disabled) Detect(ctx context.Context, conversation []llm.Message, currentDepth int) (*Proposal, error) {
	return nil, nil
}

const detectorPrompt = `You watch a study conversation. Decide whether the learner's latest message opens a
genuinely different topic that deserves its own side discussion.
Reply with one JSON object only: {"tangent": true|false, "topic": "<short topic name>"}`

type LLMDetector struct {
	provider llm.LLMProvider
}

func NewLLMDetector(provider llm.LLMProvider) *LLMDetector {
	return &LLMDetector{provider: provider}
}

func (d *LLMDetector) Detect(ctx context.Context, conversation []llm.Message, currentDepth int) (*Proposal, error) {
	if len(conversation) == 0 {
		return nil, nil
	}

	var b strings.Builder
	for _, m := range conversation {
		fmt.Fprintf(&b, "%s: %s\n", m.Role, m.Content)
	}

	reply, err := d.provider.Chat(ctx, []llm.Message{
		{Role: llm.RoleSystem, Content: detectorPrompt},
		{Role: llm.RoleUser, Content: b.String()},
	}, llm.WithJSON(), llm.WithTemperature(0))
	if err != nil {
		return nil, err
	}
	return parseDetection(reply, currentDepth)
}

func parseDetection(reply string, currentDepth int) (*Proposal, error) {
	start := strings.Index(reply, "{")
	end := strings.LastIndex(reply, "}")
	if start < 0 || end <= start {
		return nil, fmt.Errorf("detector reply has no json object")
	}

	var out struct {
		Tangent bool   `json:"tangent"`
		Topic   string `json:"topic"`
	}
	if err := json.Unmarshal([]byte(reply[start:end+1]), &out); err != nil {
		return nil, fmt.Errorf("decode detector reply: %w", err)
	}

	topic := strings.TrimSpace(out.Topic)
	if !out.Tangent || topic == "" {
		return nil, nil
	}
	return &Proposal{Topic: topic, Depth: currentDepth + 1}, nil
}

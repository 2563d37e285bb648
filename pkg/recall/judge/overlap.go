package judge

import (
	"context"
	"fmt"
	"strings"
	"unicode"

	"recall-be/internal/entity"
	"recall-be/pkg/llm"
)

var stopWords = map[string]bool{
	"the": true, "a": true, "an": true, "and": true, "or": true, "of": true, "to": true,
	"in": true, "is": true, "are": true, "it": true, "that": true, "this": true, "for": true,
	"on": true, "with": true, "as": true, "by": true, "be": true, "was": true, "were": true,
}

func keywords(s string) map[string]bool {
	out := make(map[string]bool)
	for _, w := range strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	}) {
		if len(w) > 2 && !stopWords[w] {
			out[w] = true
		}
	}
	return out
}

// OverlapJudge scores by the share of the fact's keywords found in the user's
// messages. It is used when no LLM backend is configured.
type OverlapJudge struct {
	Threshold float64
}

func NewOverlapJudge() *OverlapJudge {
	return &OverlapJudge{Threshold: 0.5}
}

func (j *OverlapJudge) Evaluate(ctx context.Context, point *entity.RecallPoint, conversation []llm.Message) (Verdict, error) {
	want := keywords(point.Content)
	if len(want) == 0 {
		return normalize(Verdict{Success: true, Confidence: 1, Reasoning: "nothing to check"}), nil
	}

	var answer strings.Builder
	for _, m := range conversation {
		if m.Role == llm.RoleUser {
			answer.WriteString(m.Content)
			answer.WriteByte(' ')
		}
	}
	got := keywords(answer.String())

	hit := 0
	for w := range want {
		if got[w] {
			hit++
		}
	}
	ratio := float64(hit) / float64(len(want))

	return normalize(Verdict{
		Success:    ratio >= j.Threshold,
		Confidence: ratio,
		Reasoning:  fmt.Sprintf("matched %d of %d key terms", hit, len(want)),
	}), nil
}

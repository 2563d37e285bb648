package tangent

import (
	"context"
	"testing"

	"recall-be/pkg/llm"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubProvider struct{ reply string }

func (s stubProvider) Chat(ctx context.Context, history []llm.Message, options ...llm.Option) (string, error) {
	return s.reply, nil
}

func (s stubProvider) Generate(ctx context.Context, prompt string, options ...llm.Option) (string, error) {
	return s.reply, nil
}

func TestParseDetection(t *testing.T) {
	tests := []struct {
		name    string
		reply   string
		depth   int
		want    *Proposal
		wantErr bool
	}{
		{"tangent", `{"tangent": true, "topic": "Krebs cycle"}`, 0, &Proposal{Topic: "Krebs cycle", Depth: 1}, false},
		{"nested", `{"tangent": true, "topic": "NADH"}`, 2, &Proposal{Topic: "NADH", Depth: 3}, false},
		{"on track", `{"tangent": false, "topic": ""}`, 0, nil, false},
		{"tangent without topic", `{"tangent": true, "topic": "  "}`, 0, nil, false},
		{"garbage", `nope`, 0, nil, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseDetection(tt.reply, tt.depth)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestLLMDetector_EmptyConversation(t *testing.T) {
	d := NewLLMDetector(stubProvider{reply: `{"tangent": true, "topic": "x"}`})

	got, err := d.Detect(context.Background(), nil, 0)
	require.NoError(t, err)
	assert.Nil(t, got)

	got, err = d.Detect(context.Background(), []llm.Message{{Role: llm.RoleUser, Content: "what about x?"}}, 0)
	require.NoError(t, err)
	assert.Equal(t, &Proposal{Topic: "x", Depth: 1}, got)
}

func TestDisabled(t *testing.T) {
	got, err := Disabled{}.Detect(context.Background(), []llm.Message{{Role: llm.RoleUser, Content: "x"}}, 0)
	assert.NoError(t, err)
	assert.Nil(t, got)
}

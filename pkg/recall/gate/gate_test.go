package gate

import (
	"net/url"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeRequest struct {
	method  string
	headers map[string]string
}

func (r fakeRequest) Method() string { return r.method }

func (r fakeRequest) Header(key string) string { return r.headers[key] }

func TestIsUpgradeRequest(t *testing.T) {
	tests := []struct {
		name    string
		method  string
		headers map[string]string
		want    bool
	}{
		{"standard", "GET", map[string]string{"Upgrade": "websocket", "Connection": "Upgrade"}, true},
		{"mixed case", "GET", map[string]string{"Upgrade": "WebSocket", "Connection": "keep-alive, upgrade"}, true},
		{"missing upgrade", "GET", map[string]string{"Connection": "Upgrade"}, false},
		{"wrong value", "GET", map[string]string{"Upgrade": "h2c", "Connection": "Upgrade"}, false},
		{"not an upgrade connection", "GET", map[string]string{"Upgrade": "websocket", "Connection": "keep-alive"}, false},
		{"post", "POST", map[string]string{"Upgrade": "websocket", "Connection": "Upgrade"}, false},
		{"no headers", "GET", map[string]string{}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := IsUpgradeRequest(fakeRequest{method: tt.method, headers: tt.headers})
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestExtractSessionID(t *testing.T) {
	resume := uuid.MustParse("6f1c2a7e-9b1d-4c3f-8e2a-1d2c3b4a5f60")

	tests := []struct {
		name    string
		query   string
		wantErr error
		kind    Kind
		token   string
	}{
		{"fresh", "sessionId=sess_abc123", nil, Fresh, "abc123"},
		{"underscores", "sessionId=sess_a_b_C_9", nil, Fresh, "a_b_C_9"},
		{"resumed", "sessionId=sess_abc123-" + resume.String(), nil, Resumed, "abc123"},
		{"missing", "other=1", ErrMissingSessionID, Fresh, ""},
		{"empty", "sessionId=", ErrInvalidSessionIDFormat, Fresh, ""},
		{"wrong prefix", "sessionId=session_abc", ErrInvalidSessionIDFormat, Fresh, ""},
		{"prefix only", "sessionId=sess_", ErrInvalidSessionIDFormat, Fresh, ""},
		{"bad body", "sessionId=sess_abc!def", ErrInvalidSessionIDFormat, Fresh, ""},
		{"bad suffix", "sessionId=sess_abc-not-a-uuid", ErrInvalidSessionIDFormat, Fresh, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q, err := url.ParseQuery(tt.query)
			require.NoError(t, err)

			id, err := ExtractSessionID(q)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.kind, id.Kind)
			assert.Equal(t, tt.token, id.Token)
			assert.Equal(t, "sess_"+tt.token, id.Key())
		})
	}
}

func TestSessionID_String(t *testing.T) {
	resume := uuid.New()
	raw := "sess_tok-" + resume.String()

	id, err := ParseSessionID(raw)
	require.NoError(t, err)
	assert.Equal(t, Resumed, id.Kind)
	assert.Equal(t, resume, id.ResumeID)
	assert.Equal(t, raw, id.String())
}

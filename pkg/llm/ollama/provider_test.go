package ollama

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"recall-be/pkg/llm"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChatStream(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req ollamaChatRequest
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.True(t, req.Stream)
		assert.Equal(t, "llama3", req.Model)

		for _, part := range []string{"Hel", "lo", ""} {
			fmt.Fprintf(w, `{"message":{"role":"assistant","content":%q},"done":%t}`+"\n", part, part == "")
		}
	}))
	defer srv.Close()

	p := NewOllamaProvider(srv.URL, "llama3")

	var chunks []string
	err := p.ChatStream(context.Background(), []llm.Message{{Role: llm.RoleUser, Content: "hi"}}, func(c string) error {
		chunks = append(chunks, c)
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"Hel", "lo"}, chunks)
}

func TestChatStream_HandlerAbort(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintln(w, `{"message":{"content":"a"},"done":false}`)
		fmt.Fprintln(w, `{"message":{"content":"b"},"done":true}`)
	}))
	defer srv.Close()

	stop := fmt.Errorf("stop")
	err := NewOllamaProvider(srv.URL, "m").ChatStream(context.Background(), nil, func(string) error { return stop })
	assert.ErrorIs(t, err, stop)
}

func TestChat(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req ollamaChatRequest
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.False(t, req.Stream)
		assert.Equal(t, "json", req.Format)
		fmt.Fprint(w, `{"message":{"role":"assistant","content":"{\"ok\":true}"},"done":true}`)
	}))
	defer srv.Close()

	out, err := NewOllamaProvider(srv.URL, "m").Chat(context.Background(), nil, llm.WithJSON())
	require.NoError(t, err)
	assert.Equal(t, `{"ok":true}`, out)
}

func TestChat_StatusError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "model not found", http.StatusNotFound)
	}))
	defer srv.Close()

	_, err := NewOllamaProvider(srv.URL, "m").Generate(context.Background(), "hi")
	assert.ErrorContains(t, err, "status 404")
}

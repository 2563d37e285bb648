package websocket

import (
	"context"
	"sync"
	"testing"
	"time"

	"recall-be/internal/pkg/logger"
	"recall-be/pkg/recall/engine"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeAttachment struct {
	key     string
	mu      sync.Mutex
	reasons []engine.CloseReason
}

func (f *fakeAttachment) SessionKey() string { return f.key }

func (f *fakeAttachment) Terminate(reason engine.CloseReason) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.reasons = append(f.reasons, reason)
}

func (f *fakeAttachment) Reasons() []engine.CloseReason {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]engine.CloseReason(nil), f.reasons...)
}

func startHub(t *testing.T) (*Hub, context.CancelFunc, chan struct{}) {
	t.Helper()
	hub := NewHub(nil, logger.NewNopLogger())
	ctx, cancel := context.WithCancel(context.Background())
	stopped := make(chan struct{})
	go func() {
		_ = hub.Run(ctx)
		close(stopped)
	}()
	return hub, cancel, stopped
}

func TestHub_NewerConnectionSupersedesOlder(t *testing.T) {
	hub, cancel, stopped := startHub(t)
	defer func() {
		cancel()
		<-stopped
	}()
	ctx := context.Background()

	first := &fakeAttachment{key: "sess_abc"}
	second := &fakeAttachment{key: "sess_abc"}
	other := &fakeAttachment{key: "sess_other"}

	require.NoError(t, hub.Attach(ctx, first))
	require.NoError(t, hub.Attach(ctx, other))
	require.NoError(t, hub.Attach(ctx, second))

	assert.Equal(t, []engine.CloseReason{engine.CloseSuperseded}, first.Reasons())
	assert.Empty(t, second.Reasons())
	assert.Empty(t, other.Reasons())
	assert.Equal(t, 2, hub.Count())

	// The superseded connection detaching must not remove its replacement.
	hub.Detach(first)
	hub.CloseSession("sess_abc", engine.CloseAbandoned)
	assert.Equal(t, []engine.CloseReason{engine.CloseAbandoned}, second.Reasons())
}

func TestHub_DetachAndShutdown(t *testing.T) {
	hub, cancel, stopped := startHub(t)
	ctx := context.Background()

	a := &fakeAttachment{key: "sess_a"}
	b := &fakeAttachment{key: "sess_b"}
	require.NoError(t, hub.Attach(ctx, a))
	require.NoError(t, hub.Attach(ctx, b))

	hub.Detach(a)
	require.Eventually(t, func() bool { return hub.Count() == 1 }, time.Second, 5*time.Millisecond)

	hub.CloseSession("sess_unknown", engine.CloseAbandoned)

	cancel()
	<-stopped
	assert.Empty(t, a.Reasons())
	assert.Equal(t, []engine.CloseReason{engine.CloseShutdown}, b.Reasons())

	assert.ErrorIs(t, hub.Attach(ctx, &fakeAttachment{key: "sess_late"}), ErrHubStopped)
	hub.Detach(b)
}

func TestHub_IgnoresOwnControlMessages(t *testing.T) {
	hub, cancel, stopped := startHub(t)
	defer func() {
		cancel()
		<-stopped
	}()
	a := &fakeAttachment{key: "sess_a"}
	require.NoError(t, hub.Attach(context.Background(), a))

	hub.handleControl([]byte(`{"origin":"` + hub.instanceID + `","session_id":"sess_a","reason":"Superseded"}`))
	assert.Empty(t, a.Reasons())

	hub.handleControl([]byte(`{"origin":"other-instance","session_id":"sess_a","reason":"Superseded"}`))
	assert.Equal(t, []engine.CloseReason{engine.CloseSuperseded}, a.Reasons())

	hub.handleControl([]byte(`not json`))
}

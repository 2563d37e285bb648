package websocket

import (
	"context"
	"encoding/json"
	"errors"
	"sync"

	"recall-be/internal/pkg/logger"
	"recall-be/pkg/recall/engine"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// controlChannel carries close requests between instances.
const controlChannel = "session_control"

var ErrHubStopped = errors.New("hub stopped")

// Attachment is one live connection bound to a session.
type Attachment interface {
	SessionKey() string
	Terminate(reason engine.CloseReason)
}

type controlMessage struct {
	Origin    string `json:"origin"`
	SessionID string `json:"session_id"`
	Reason    string `json:"reason"`
}

type registration struct {
	a    Attachment
	done chan struct{}
}

// Hub tracks the live connection of every session on this instance. At most
// one connection per session is attached; a newer one supersedes the older.
type Hub struct {
	// Attached connections: session id -> connection
	sessions map[string]Attachment

	register   chan registration
	unregister chan Attachment
	stopped    chan struct{}

	mu sync.RWMutex

	// Redis connection for cross-instance control
	rdb        *redis.Client
	instanceID string

	logger logger.ILogger
}

func NewHub(rdb *redis.Client, log logger.ILogger) *Hub {
	return &Hub{
		sessions:   make(map[string]Attachment),
		register:   make(chan registration),
		unregister: make(chan Attachment),
		stopped:    make(chan struct{}),
		rdb:        rdb,
		instanceID: uuid.NewString(),
		logger:     log,
	}
}

// Run serves registrations until ctx ends, then terminates every attached session.
func (h *Hub) Run(ctx context.Context) error {
	if h.rdb != nil {
		go h.subscribeToRedis(ctx)
	}

	for {
		select {
		case r := <-h.register:
			h.mu.Lock()
			old := h.sessions[r.a.SessionKey()]
			h.sessions[r.a.SessionKey()] = r.a
			h.mu.Unlock()
			if old != nil && old != r.a {
				h.logger.Info("Hub", "Connection superseded", map[string]interface{}{"session_id": r.a.SessionKey()})
				old.Terminate(engine.CloseSuperseded)
			}
			close(r.done)

		case a := <-h.unregister:
			h.mu.Lock()
			if h.sessions[a.SessionKey()] == a {
				delete(h.sessions, a.SessionKey())
			}
			h.mu.Unlock()

		case <-ctx.Done():
			close(h.stopped)
			h.closeAll(engine.CloseShutdown)
			return nil
		}
	}
}

// Attach registers a and supersedes any connection to the same session here
// and on other instances.
func (h *Hub) Attach(ctx context.Context, a Attachment) error {
	r := registration{a: a, done: make(chan struct{})}
	select {
	case h.register <- r:
	case <-h.stopped:
		return ErrHubStopped
	case <-ctx.Done():
		return ctx.Err()
	}
	<-r.done
	h.publish(a.SessionKey(), engine.CloseSuperseded)
	return nil
}

func (h *Hub) Detach(a Attachment) {
	select {
	case h.unregister <- a:
	case <-h.stopped:
	}
}

// CloseSession terminates the live connection of sessionKey wherever it is attached.
func (h *Hub) CloseSession(sessionKey string, reason engine.CloseReason) {
	h.closeLocal(sessionKey, reason)
	h.publish(sessionKey, reason)
}

// Count is the number of attached sessions.
func (h *Hub) Count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.sessions)
}

func (h *Hub) closeLocal(sessionKey string, reason engine.CloseReason) {
	h.mu.RLock()
	a, ok := h.sessions[sessionKey]
	h.mu.RUnlock()
	if ok {
		a.Terminate(reason)
	}
}

func (h *Hub) closeAll(reason engine.CloseReason) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, a := range h.sessions {
		a.Terminate(reason)
	}
}

func (h *Hub) publish(sessionKey string, reason engine.CloseReason) {
	if h.rdb == nil {
		return
	}
	payload, _ := json.Marshal(controlMessage{
		Origin:    h.instanceID,
		SessionID: sessionKey,
		Reason:    string(reason),
	})
	if err := h.rdb.Publish(context.Background(), controlChannel, payload).Err(); err != nil {
		h.logger.Warn("Hub", "Redis publish failed", map[string]interface{}{"session_id": sessionKey, "error": err})
	}
}

func (h *Hub) subscribeToRedis(ctx context.Context) {
	pubsub := h.rdb.Subscribe(ctx, controlChannel)
	defer pubsub.Close()

	ch := pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			h.handleControl([]byte(msg.Payload))
		}
	}
}

func (h *Hub) handleControl(raw []byte) {
	var payload controlMessage
	if err := json.Unmarshal(raw, &payload); err != nil {
		h.logger.Warn("Hub", "Redis msg parse error", map[string]interface{}{"error": err})
		return
	}
	if payload.Origin == h.instanceID {
		return
	}
	h.closeLocal(payload.SessionID, engine.CloseReason(payload.Reason))
}

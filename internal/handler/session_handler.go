package handler

import (
	"context"
	"errors"

	"recall-be/internal/pkg/logger"
	"recall-be/internal/pkg/serverutils"
	internalWS "recall-be/internal/websocket"
	"recall-be/pkg/recall/engine"
	"recall-be/pkg/recall/gate"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
)

// SessionHandler upgrades live-session connections.
type SessionHandler struct {
	ctx    context.Context
	engine *engine.Engine
	hub    *internalWS.Hub
	auth   fiber.Handler
	logger logger.ILogger
}

// NewSessionHandler builds the handler. ctx bounds every session it starts.
func NewSessionHandler(ctx context.Context, eng *engine.Engine, hub *internalWS.Hub, auth fiber.Handler, log logger.ILogger) *SessionHandler {
	if auth == nil {
		auth = serverutils.PassThrough
	}
	return &SessionHandler{
		ctx:    ctx,
		engine: eng,
		hub:    hub,
		auth:   auth,
		logger: log,
	}
}

// fiberRequest adapts a fiber request to the gate's view of it.
type fiberRequest struct{ c *fiber.Ctx }

func (r fiberRequest) Method() string           { return r.c.Method() }
func (r fiberRequest) Header(key string) string { return r.c.Get(key) }

type fiberQuery struct{ c *fiber.Ctx }

func (q fiberQuery) Has(key string) bool    { return q.c.Context().QueryArgs().Has(key) }
func (q fiberQuery) Get(key string) string { return q.c.Query(key) }

// ServeWs validates the handshake, then hands the connection to the engine.
func (h *SessionHandler) ServeWs(c *fiber.Ctx) error {
	if !gate.IsUpgradeRequest(fiberRequest{c}) {
		return c.Status(fiber.StatusUpgradeRequired).JSON(serverutils.ErrorResponse(fiber.StatusUpgradeRequired, "websocket upgrade required"))
	}

	id, err := gate.ExtractSessionID(fiberQuery{c})
	if err != nil {
		msg := "invalid session id format"
		if errors.Is(err, gate.ErrMissingSessionID) {
			msg = "missing sessionId query parameter"
		}
		h.logger.Warn("SessionHandler", "Rejected handshake", map[string]interface{}{"error": err.Error()})
		return c.Status(fiber.StatusBadRequest).JSON(serverutils.ErrorResponse(fiber.StatusBadRequest, msg))
	}

	return websocket.New(func(conn *websocket.Conn) {
		h.logger.Info("SessionHandler", "Starting live session", map[string]interface{}{"session_id": id.Key(), "kind": id.Kind.String()})
		internalWS.ServeWs(h.ctx, h.hub, h.engine, conn, id, h.logger)
		h.logger.Info("SessionHandler", "Live session ended", map[string]interface{}{"session_id": id.Key()})
	})(c)
}

// RegisterRoutes must run before the session controller so /sessions/ws is
// not captured by /sessions/:id.
func (h *SessionHandler) RegisterRoutes(router fiber.Router) {
	router.Get("/sessions/ws", h.auth, h.ServeWs)
}

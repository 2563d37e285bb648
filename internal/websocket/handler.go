package websocket

import (
	"context"

	"recall-be/internal/pkg/logger"
	"recall-be/pkg/recall/engine"
	"recall-be/pkg/recall/gate"

	"github.com/gofiber/websocket/v2"
)

// ServeWs attaches an upgraded connection to the session identified by id and
// blocks until both the session and the socket are done.
func ServeWs(ctx context.Context, hub *Hub, eng *engine.Engine, c *websocket.Conn, id gate.SessionID, log logger.ILogger) {
	client := newClient(hub, c, id.Key(), log)
	session := eng.NewSession(id, client)
	client.session = session

	if err := hub.Attach(ctx, client); err != nil {
		c.Close()
		return
	}
	defer hub.Detach(client)

	go client.writePump()
	go session.Run(ctx)

	client.readPump()

	<-session.Done()
	client.Close(session.CloseReason())
	<-client.writerDone
}

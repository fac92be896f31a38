package controller

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/syncwatch/server/internal/service"
	"github.com/syncwatch/server/pkg/ctxlogger"
)

// serveWs upgrades the request, assigns the connection its id, greets
// the client and pumps inbound messages until the transport dies. The
// service treats the read loop ending as a disconnect, not a leave.
func (c controller) serveWs(w http.ResponseWriter, r *http.Request) {
	conn, err := c.upgrader.Upgrade(w, r, nil)
	if err != nil {
		c.logger.WarnContext(r.Context(), "failed to upgrade to websocket", "error", err)
		return
	}

	connectionId := uuid.NewString()
	ctx := ctxlogger.AppendCtx(r.Context(), slog.String("connection_id", connectionId))
	ctx = context.WithValue(ctx, connectionIdCtxKey, connectionId)

	c.sender.Register(connectionId, conn)
	c.roomService.RegisterConnection(ctx, connectionId)

	c.sender.Send(ctx, connectionId, &service.Message{
		Type: "connected",
		Payload: service.ConnectedPayload{
			ConnectionId: connectionId,
			ServerTime:   time.Now().UnixMilli(),
		},
	})

	if err := c.wsmux.ServeConn(ctx, conn); err != nil {
		c.logger.DebugContext(ctx, "websocket connection closed", "error", err)
	}

	c.sender.Unregister(connectionId)

	// teardown must finish even though the request context is gone
	disconnectCtx := context.WithoutCancel(ctx)
	if err := c.roomService.Disconnect(disconnectCtx, &service.DisconnectParams{ConnectionId: connectionId}); err != nil {
		c.logger.ErrorContext(disconnectCtx, "failed to handle disconnect", "error", err)
	}

	conn.Close()
}

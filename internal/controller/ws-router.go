package controller

import (
	"context"

	"github.com/gorilla/websocket"
	"github.com/syncwatch/server/internal/service"
	"github.com/syncwatch/server/pkg/wsrouter"
)

// getWSRouter registers the complete inbound vocabulary. Message types
// outside this set are answered with an error frame, never a close.
func (c controller) getWSRouter() *wsrouter.WSRouter {
	mux := wsrouter.New()

	mux.Use(c.wsRequestIdWSMw())
	mux.Use(c.wsLoggingWSMw())

	mux.SetValidator(func(i any) error {
		if validationErrors, ok := c.validate.Validate(i); !ok {
			return validationErrors[0]
		}
		return nil
	})

	mux.OnError(func(ctx context.Context, conn *websocket.Conn, err error) {
		connectionId := c.getConnectionIdFromCtx(ctx)
		c.logger.WarnContext(ctx, "websocket message rejected", "error", err)
		c.sender.Send(ctx, connectionId, &service.Message{
			Type:    "error",
			Payload: service.ErrorPayload{Message: err.Error()},
		})
	})

	// session
	wsrouter.Handle(mux, "joinRoom", c.handleJoinRoom)
	wsrouter.Handle(mux, "create-room", c.handleCreateRoom)
	wsrouter.Handle(mux, "sendMessage", c.handleSendMessage)

	// playback sync
	wsrouter.Handle(mux, "videoStateChange", c.handleVideoStateChange)
	wsrouter.Handle(mux, "videoSeekOperation", c.handleVideoSeekOperation)
	wsrouter.Handle(mux, "fallback-sync-state", c.handleFallbackSyncState)

	// streaming
	wsrouter.Handle(mux, "streaming-status-update", c.handleStreamingStatusUpdate)
	wsrouter.Handle(mux, "streamingAboutToStart", c.handleStreamingAboutToStart)
	wsrouter.Handle(mux, "videoUrlChange", c.handleVideoUrlChange)

	// presence
	wsrouter.Handle(mux, "heartbeat", c.handleHeartbeat)
	wsrouter.Handle(mux, "connection-health-check", c.handleConnectionHealthCheck)

	// webrtc signaling
	wsrouter.Handle(mux, "peer-id", c.handlePeerId)
	wsrouter.Handle(mux, "webrtc-signal", c.handleWebrtcSignal)
	wsrouter.Handle(mux, "webrtc-ice-candidate", c.handleWebrtcIceCandidate)
	wsrouter.Handle(mux, "webrtc-connection-failed", c.handleWebrtcConnectionFailed)
	wsrouter.Handle(mux, "request-reconnection", c.handleRequestReconnection)

	return mux
}

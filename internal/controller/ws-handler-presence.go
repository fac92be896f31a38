package controller

import (
	"context"
	"fmt"

	"github.com/gorilla/websocket"
	"github.com/syncwatch/server/internal/service"
)

// HeartbeatInput carries no required fields: clients heartbeat from the
// moment the socket opens, before any room is joined.
type HeartbeatInput struct {
	RoomId    string `json:"roomId"`
	Timestamp int64  `json:"timestamp"`
	IsHost    bool   `json:"isHost"`
}

func (c controller) handleHeartbeat(ctx context.Context, _ *websocket.Conn, input HeartbeatInput) error {
	if err := c.roomService.Heartbeat(ctx, &service.HeartbeatParams{
		ConnectionId: c.getConnectionIdFromCtx(ctx),
		RoomId:       input.RoomId,
		Timestamp:    input.Timestamp,
		IsHost:       input.IsHost,
	}); err != nil {
		return fmt.Errorf("failed to process heartbeat: %w", err)
	}

	return nil
}

type ConnectionHealthCheckInput struct {
	RoomId string `json:"roomId"`
}

func (c controller) handleConnectionHealthCheck(ctx context.Context, _ *websocket.Conn, input ConnectionHealthCheckInput) error {
	if err := c.roomService.CheckConnectionHealth(ctx, &service.CheckConnectionHealthParams{
		ConnectionId: c.getConnectionIdFromCtx(ctx),
		RoomId:       input.RoomId,
	}); err != nil {
		return fmt.Errorf("failed to check connection health: %w", err)
	}

	return nil
}

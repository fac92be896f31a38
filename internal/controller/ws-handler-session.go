package controller

import (
	"context"
	"fmt"

	"github.com/gorilla/websocket"
	"github.com/syncwatch/server/internal/service"
)

type EmptyInput struct{}

type JoinRoomInput struct {
	RoomId     string `json:"roomId" validate:"required,len=8,alphanum"`
	Username   string `json:"username" validate:"required,max=32"`
	IsHost     bool   `json:"isHost"`
	IsChatOnly bool   `json:"isChatOnly"`
}

func (c controller) handleJoinRoom(ctx context.Context, _ *websocket.Conn, input JoinRoomInput) error {
	if _, err := c.roomService.JoinRoom(ctx, &service.JoinRoomParams{
		ConnectionId: c.getConnectionIdFromCtx(ctx),
		RoomId:       input.RoomId,
		Username:     input.Username,
		IsHost:       input.IsHost,
		IsChatOnly:   input.IsChatOnly,
	}); err != nil {
		return fmt.Errorf("failed to join room: %w", err)
	}

	return nil
}

func (c controller) handleCreateRoom(ctx context.Context, _ *websocket.Conn, _ EmptyInput) error {
	resp, err := c.roomService.CreateRoom(ctx)
	if err != nil {
		return fmt.Errorf("failed to create room: %w", err)
	}

	c.sender.Send(ctx, c.getConnectionIdFromCtx(ctx), &service.Message{
		Type:    "roomCreated",
		Payload: service.RoomCreatedPayload{RoomId: resp.RoomId},
	})

	return nil
}

type SendMessageInput struct {
	RoomId   string `json:"roomId" validate:"required"`
	Message  string `json:"message" validate:"required,max=2000"`
	Username string `json:"username" validate:"max=32"`
}

func (c controller) handleSendMessage(ctx context.Context, _ *websocket.Conn, input SendMessageInput) error {
	if err := c.roomService.SendMessage(ctx, &service.SendMessageParams{
		ConnectionId: c.getConnectionIdFromCtx(ctx),
		RoomId:       input.RoomId,
		Message:      input.Message,
		Username:     input.Username,
	}); err != nil {
		return fmt.Errorf("failed to send message: %w", err)
	}

	return nil
}

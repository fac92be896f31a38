package controller

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/gorilla/websocket"
	"github.com/syncwatch/server/internal/service"
)

type PeerIdInput struct {
	RoomId               string `json:"roomId" validate:"required"`
	PeerId               string `json:"peerId" validate:"required,max=64"`
	IsHost               bool   `json:"isHost"`
	PreviousConnectionId string `json:"previousConnectionId"`
}

func (c controller) handlePeerId(ctx context.Context, _ *websocket.Conn, input PeerIdInput) error {
	if err := c.roomService.RegisterPeer(ctx, &service.RegisterPeerParams{
		ConnectionId:         c.getConnectionIdFromCtx(ctx),
		RoomId:               input.RoomId,
		PeerId:               input.PeerId,
		IsHost:               input.IsHost,
		PreviousConnectionId: input.PreviousConnectionId,
	}); err != nil {
		return fmt.Errorf("failed to register peer: %w", err)
	}

	return nil
}

type WebrtcSignalInput struct {
	RoomId             string          `json:"roomId" validate:"required"`
	TargetConnectionId string          `json:"targetConnectionId" validate:"required"`
	Payload            json.RawMessage `json:"payload"`
}

func (c controller) handleWebrtcSignal(ctx context.Context, _ *websocket.Conn, input WebrtcSignalInput) error {
	if err := c.roomService.ForwardSignal(ctx, &service.ForwardSignalParams{
		FromConnectionId:   c.getConnectionIdFromCtx(ctx),
		RoomId:             input.RoomId,
		TargetConnectionId: input.TargetConnectionId,
		Payload:            input.Payload,
	}); err != nil {
		return fmt.Errorf("failed to forward signal: %w", err)
	}

	return nil
}

type WebrtcIceCandidateInput struct {
	RoomId             string          `json:"roomId" validate:"required"`
	TargetConnectionId string          `json:"targetConnectionId" validate:"required"`
	Candidate          json.RawMessage `json:"candidate"`
}

func (c controller) handleWebrtcIceCandidate(ctx context.Context, _ *websocket.Conn, input WebrtcIceCandidateInput) error {
	if err := c.roomService.ForwardIceCandidate(ctx, &service.ForwardIceCandidateParams{
		FromConnectionId:   c.getConnectionIdFromCtx(ctx),
		RoomId:             input.RoomId,
		TargetConnectionId: input.TargetConnectionId,
		Candidate:          input.Candidate,
	}); err != nil {
		return fmt.Errorf("failed to forward ice candidate: %w", err)
	}

	return nil
}

type WebrtcConnectionFailedInput struct {
	RoomId       string `json:"roomId" validate:"required"`
	TargetPeerId string `json:"targetPeerId" validate:"required"`
}

func (c controller) handleWebrtcConnectionFailed(ctx context.Context, _ *websocket.Conn, input WebrtcConnectionFailedInput) error {
	if err := c.roomService.ReportConnectionFailure(ctx, &service.ReportConnectionFailureParams{
		ConnectionId: c.getConnectionIdFromCtx(ctx),
		RoomId:       input.RoomId,
		TargetPeerId: input.TargetPeerId,
	}); err != nil {
		return fmt.Errorf("failed to report connection failure: %w", err)
	}

	return nil
}

type RequestReconnectionInput struct {
	RoomId string `json:"roomId" validate:"required"`
	PeerId string `json:"peerId"`
}

func (c controller) handleRequestReconnection(ctx context.Context, _ *websocket.Conn, input RequestReconnectionInput) error {
	if err := c.roomService.RequestReconnection(ctx, &service.RequestReconnectionParams{
		ConnectionId: c.getConnectionIdFromCtx(ctx),
		RoomId:       input.RoomId,
		PeerId:       input.PeerId,
	}); err != nil {
		return fmt.Errorf("failed to request reconnection: %w", err)
	}

	return nil
}

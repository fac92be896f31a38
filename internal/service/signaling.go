package service

import (
	"context"
	"encoding/json"
	"fmt"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/syncwatch/server/internal/repository/room"
)

type RegisterPeerParams struct {
	ConnectionId         string `json:"connection_id"`
	RoomId               string `json:"room_id"`
	PeerId               string `json:"peer_id"`
	IsHost               bool   `json:"is_host"`
	PreviousConnectionId string `json:"previous_connection_id"`
}

// RegisterPeer binds a connection to its signaling peer id and
// announces it to the room. A previous connection id marks a
// reconnection: the old identity is reclaimed before the new mapping is
// recorded.
func (s *service) RegisterPeer(ctx context.Context, params *RegisterPeerParams) error {
	if err := validation.ValidateStructWithContext(ctx, params,
		validation.Field(&params.PeerId, PeerIdRule...),
	); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.roomRepo.RoomExists(ctx, params.RoomId) {
		return ErrRoomNotFound
	}

	if params.PreviousConnectionId != "" && params.PreviousConnectionId != params.ConnectionId {
		if !s.reclaimLocked(ctx, params.RoomId, params.PreviousConnectionId, params.ConnectionId) {
			s.logger.WarnContext(ctx, "identity reclaim failed",
				"room_id", params.RoomId,
				"previous_connection_id", params.PreviousConnectionId,
				"connection_id", params.ConnectionId,
			)
		}
	}

	s.peerRepo.Set(ctx, params.ConnectionId, params.PeerId)

	if err := s.roomRepo.TouchRoom(ctx, params.RoomId); err != nil {
		return fmt.Errorf("failed to touch room: %w", err)
	}

	hostId, err := s.roomRepo.GetHost(ctx, params.RoomId)
	if err != nil {
		return fmt.Errorf("failed to get host: %w", err)
	}

	s.broadcastViewers(ctx, params.RoomId, params.ConnectionId, &Message{
		Type: "peer-id",
		Payload: PeerIdPayload{
			PeerId:       params.PeerId,
			ConnectionId: params.ConnectionId,
			IsHost:       hostId == params.ConnectionId,
		},
	})

	s.logger.DebugContext(ctx, "peer registered",
		"room_id", params.RoomId,
		"connection_id", params.ConnectionId,
		"peer_id", params.PeerId,
	)

	return nil
}

type ForwardSignalParams struct {
	FromConnectionId   string          `json:"from_connection_id"`
	RoomId             string          `json:"room_id"`
	TargetConnectionId string          `json:"target_connection_id"`
	Payload            json.RawMessage `json:"payload"`
}

// ForwardSignal relays an opaque negotiation payload to a room peer.
// A vanished target is dropped quietly; negotiation retries are the
// client's problem.
func (s *service) ForwardSignal(ctx context.Context, params *ForwardSignalParams) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.roomRepo.GetParticipant(ctx, &room.GetParticipantParams{
		RoomId:       params.RoomId,
		ConnectionId: params.TargetConnectionId,
	}); err != nil {
		s.logger.DebugContext(ctx, "signal target gone",
			"room_id", params.RoomId,
			"target_connection_id", params.TargetConnectionId,
		)
		return nil
	}

	s.sender.Send(ctx, params.TargetConnectionId, &Message{
		Type: "webrtc-signal",
		Payload: WebrtcSignalPayload{
			FromConnectionId: params.FromConnectionId,
			Payload:          params.Payload,
		},
	})

	return nil
}

type ForwardIceCandidateParams struct {
	FromConnectionId   string          `json:"from_connection_id"`
	RoomId             string          `json:"room_id"`
	TargetConnectionId string          `json:"target_connection_id"`
	Candidate          json.RawMessage `json:"candidate"`
}

func (s *service) ForwardIceCandidate(ctx context.Context, params *ForwardIceCandidateParams) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.roomRepo.GetParticipant(ctx, &room.GetParticipantParams{
		RoomId:       params.RoomId,
		ConnectionId: params.TargetConnectionId,
	}); err != nil {
		s.logger.DebugContext(ctx, "ice candidate target gone",
			"room_id", params.RoomId,
			"target_connection_id", params.TargetConnectionId,
		)
		return nil
	}

	s.sender.Send(ctx, params.TargetConnectionId, &Message{
		Type: "webrtc-ice-candidate",
		Payload: WebrtcIceCandidatePayload{
			FromConnectionId: params.FromConnectionId,
			Candidate:        params.Candidate,
		},
	})

	return nil
}

type ReportConnectionFailureParams struct {
	ConnectionId string `json:"connection_id"`
	RoomId       string `json:"room_id"`
	TargetPeerId string `json:"target_peer_id"`
}

// ReportConnectionFailure handles a viewer whose direct peer link
// broke. A reachable target is asked to renegotiate; otherwise the
// reporter learns why the target cannot serve.
func (s *service) ReportConnectionFailure(ctx context.Context, params *ReportConnectionFailureParams) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.roomRepo.RoomExists(ctx, params.RoomId) {
		return ErrRoomNotFound
	}

	unreachable := func(reason string) {
		s.sender.Send(ctx, params.ConnectionId, &Message{
			Type:    "webrtc-target-unreachable",
			Payload: WebrtcTargetUnreachablePayload{TargetPeerId: params.TargetPeerId, Reason: reason},
		})
	}

	targetConnectionId, err := s.peerRepo.GetConnectionId(ctx, params.TargetPeerId)
	if err != nil {
		unreachable("not-found")
		return nil
	}

	target, err := s.roomRepo.GetParticipant(ctx, &room.GetParticipantParams{
		RoomId:       params.RoomId,
		ConnectionId: targetConnectionId,
	})
	if err != nil {
		unreachable("not-found")
		return nil
	}

	if target.IsChatOnly {
		unreachable("chat-only")
		return nil
	}

	fromPeerId, _ := s.peerRepo.GetPeerId(ctx, params.ConnectionId)
	s.sender.Send(ctx, targetConnectionId, &Message{
		Type: "webrtc-reconnect-requested",
		Payload: WebrtcReconnectRequestedPayload{
			FromConnectionId: params.ConnectionId,
			FromPeerId:       fromPeerId,
		},
	})

	s.logger.InfoContext(ctx, "peer connection failure reported",
		"room_id", params.RoomId,
		"connection_id", params.ConnectionId,
		"target_peer_id", params.TargetPeerId,
	)

	return nil
}

type RequestReconnectionParams struct {
	ConnectionId string `json:"connection_id"`
	RoomId       string `json:"room_id"`
	PeerId       string `json:"peer_id"`
}

// RequestReconnection lets a viewer ask the host for a fresh offer. A
// room without a live host cannot help and says so.
func (s *service) RequestReconnection(ctx context.Context, params *RequestReconnectionParams) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.roomRepo.RoomExists(ctx, params.RoomId) {
		return ErrRoomNotFound
	}

	noHost := func() {
		s.sender.Send(ctx, params.ConnectionId, &Message{
			Type:    "reconnection-failed",
			Payload: ReconnectionFailedPayload{Reason: "no-host"},
		})
	}

	hostId, err := s.roomRepo.GetHost(ctx, params.RoomId)
	if err != nil || hostId == "" {
		noHost()
		return nil
	}

	host, err := s.roomRepo.GetParticipant(ctx, &room.GetParticipantParams{
		RoomId:       params.RoomId,
		ConnectionId: hostId,
	})
	if err != nil || !host.Active {
		noHost()
		return nil
	}

	s.sender.Send(ctx, hostId, &Message{
		Type: "viewer-reconnection-request",
		Payload: ViewerReconnectionRequestPayload{
			ViewerConnectionId: params.ConnectionId,
			ViewerPeerId:       params.PeerId,
		},
	})

	return nil
}

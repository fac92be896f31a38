package service

import (
	"context"
	"fmt"
	"time"

	"github.com/syncwatch/server/internal/repository/room"
)

// RegisterConnection opens the per-connection health record. Called
// once per websocket upgrade, before any room membership exists.
func (s *service) RegisterConnection(ctx context.Context, connectionId string) {
	s.healthRepo.Add(ctx, connectionId, time.Now())
	s.logger.DebugContext(ctx, "connection registered", "connection_id", connectionId)
}

type DisconnectParams struct {
	ConnectionId string `json:"connection_id"`
}

// Disconnect is phase one of the two-phase departure: the participant
// is only marked inactive and a removal task is scheduled. Reconnecting
// within the grace window cancels it and keeps membership intact.
func (s *service) Disconnect(ctx context.Context, params *DisconnectParams) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()

	if err := s.healthRepo.SetConnected(ctx, params.ConnectionId, false, now); err != nil {
		s.logger.DebugContext(ctx, "no health record on disconnect", "connection_id", params.ConnectionId)
	}

	roomId, err := s.sessionRepo.GetRoomId(ctx, params.ConnectionId)
	if err != nil {
		// never joined a room, nothing to keep
		return nil
	}

	p, err := s.roomRepo.GetParticipant(ctx, &room.GetParticipantParams{
		RoomId:       roomId,
		ConnectionId: params.ConnectionId,
	})
	if err != nil {
		s.sessionRepo.Remove(ctx, params.ConnectionId)
		return nil
	}

	if err := s.roomRepo.SetParticipantActive(ctx, &room.SetParticipantActiveParams{
		RoomId:         roomId,
		ConnectionId:   params.ConnectionId,
		Active:         false,
		DisconnectedAt: now,
	}); err != nil {
		return fmt.Errorf("failed to mark participant inactive: %w", err)
	}

	if err := s.roomRepo.TouchRoom(ctx, roomId); err != nil {
		return fmt.Errorf("failed to touch room: %w", err)
	}

	users, err := s.roomUsers(ctx, roomId)
	if err != nil {
		return err
	}

	s.broadcast(ctx, roomId, params.ConnectionId, &Message{
		Type:    "userDisconnected",
		Payload: UserDisconnectedPayload{ConnectionId: params.ConnectionId, Username: p.Username, Users: users},
	})

	removalCtx := context.WithoutCancel(ctx)
	s.scheduler.Schedule(params.ConnectionId, s.gracePeriod, func() {
		s.expireDisconnected(removalCtx, roomId, params.ConnectionId)
	})

	s.logger.InfoContext(ctx, "participant disconnected",
		"room_id", roomId,
		"connection_id", params.ConnectionId,
		"grace_period", s.gracePeriod,
	)

	return nil
}

// expireDisconnected runs when the grace window closes. A participant
// who reconnected in the meantime is left alone.
func (s *service) expireDisconnected(ctx context.Context, roomId, connectionId string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, err := s.roomRepo.GetParticipant(ctx, &room.GetParticipantParams{
		RoomId:       roomId,
		ConnectionId: connectionId,
	})
	if err != nil || p.Active {
		return
	}

	if _, err := s.leaveLocked(ctx, roomId, connectionId); err != nil {
		s.logger.ErrorContext(ctx, "failed to remove expired participant",
			"room_id", roomId,
			"connection_id", connectionId,
			"error", err,
		)
	}
}

type HeartbeatParams struct {
	ConnectionId string `json:"connection_id"`
	RoomId       string `json:"room_id"`
	Timestamp    int64  `json:"timestamp"`
	IsHost       bool   `json:"is_host"`
}

func (s *service) Heartbeat(ctx context.Context, params *HeartbeatParams) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()

	if err := s.healthRepo.SetHeartbeat(ctx, params.ConnectionId, now); err != nil {
		// connections that raced the sweep get their record back
		s.healthRepo.Add(ctx, params.ConnectionId, now)
	}

	ack := HeartbeatAckPayload{
		ServerTime: now.UnixMilli(),
		ClientTime: params.Timestamp,
	}

	if params.RoomId != "" && s.roomRepo.RoomExists(ctx, params.RoomId) {
		if err := s.roomRepo.SetParticipantHeartbeat(ctx, &room.SetParticipantHeartbeatParams{
			RoomId:       params.RoomId,
			ConnectionId: params.ConnectionId,
			At:           now,
		}); err != nil {
			s.logger.DebugContext(ctx, "heartbeat from non-participant",
				"room_id", params.RoomId,
				"connection_id", params.ConnectionId,
			)
		}
		if err := s.roomRepo.TouchRoom(ctx, params.RoomId); err == nil {
			ack.ViewerCount, ack.ChatOnlyCount, ack.HostConnected = s.occupancy(ctx, params.RoomId)
		}
	}

	s.sender.Send(ctx, params.ConnectionId, &Message{Type: "heartbeat-ack", Payload: ack})

	return nil
}

// reclaimLocked transfers a disconnected participant's identity to a
// fresh connection: role and join order survive, the pending removal is
// cancelled, and stale session, health and peer entries are dropped.
func (s *service) reclaimLocked(ctx context.Context, roomId, previousConnectionId, connectionId string) bool {
	s.scheduler.Cancel(previousConnectionId)

	old, err := s.roomRepo.GetParticipant(ctx, &room.GetParticipantParams{
		RoomId:       roomId,
		ConnectionId: previousConnectionId,
	})
	if err != nil {
		// grace window already expired, nothing left to reclaim
		return false
	}

	_, err = s.roomRepo.GetParticipant(ctx, &room.GetParticipantParams{
		RoomId:       roomId,
		ConnectionId: connectionId,
	})
	alreadyJoined := err == nil

	if alreadyJoined {
		// the client re-joined before the handshake arrived; fold the
		// stale record into the new one
		if err := s.roomRepo.RemoveParticipant(ctx, &room.RemoveParticipantParams{
			RoomId:       roomId,
			ConnectionId: previousConnectionId,
		}); err != nil {
			s.logger.ErrorContext(ctx, "failed to fold stale participant", "room_id", roomId, "error", err)
			return false
		}
		if p, err := s.roomRepo.GetParticipant(ctx, &room.GetParticipantParams{
			RoomId:       roomId,
			ConnectionId: connectionId,
		}); err == nil {
			p.JoinedAt = old.JoinedAt
			s.roomRepo.SetParticipant(ctx, &room.SetParticipantParams{RoomId: roomId, Participant: p})
		}
		if old.IsHost {
			s.roomRepo.SetHost(ctx, &room.SetHostParams{RoomId: roomId, ConnectionId: connectionId})
		}
		s.sessionRepo.Remove(ctx, previousConnectionId)
	} else {
		if err := s.roomRepo.RekeyParticipant(ctx, &room.RekeyParticipantParams{
			RoomId:          roomId,
			OldConnectionId: previousConnectionId,
			NewConnectionId: connectionId,
		}); err != nil {
			s.logger.ErrorContext(ctx, "failed to rekey participant", "room_id", roomId, "error", err)
			return false
		}
		if err := s.sessionRepo.Rekey(ctx, previousConnectionId, connectionId); err != nil {
			s.sessionRepo.Set(ctx, connectionId, roomId)
		}
	}

	now := time.Now()
	s.roomRepo.SetParticipantActive(ctx, &room.SetParticipantActiveParams{
		RoomId:       roomId,
		ConnectionId: connectionId,
		Active:       true,
	})
	s.roomRepo.SetParticipantHeartbeat(ctx, &room.SetParticipantHeartbeatParams{
		RoomId:       roomId,
		ConnectionId: connectionId,
		At:           now,
	})
	s.healthRepo.Remove(ctx, previousConnectionId)
	s.peerRepo.RemoveByConnectionId(ctx, previousConnectionId)

	if users, err := s.roomUsers(ctx, roomId); err == nil {
		if p, err := s.roomRepo.GetParticipant(ctx, &room.GetParticipantParams{
			RoomId:       roomId,
			ConnectionId: connectionId,
		}); err == nil {
			s.broadcast(ctx, roomId, "", &Message{
				Type:    "userJoined",
				Payload: UserJoinedPayload{User: toUser(p), Users: users},
			})
		}
	}

	s.logger.InfoContext(ctx, "identity reclaimed",
		"room_id", roomId,
		"previous_connection_id", previousConnectionId,
		"connection_id", connectionId,
	)

	return true
}

type CheckConnectionHealthParams struct {
	ConnectionId string `json:"connection_id"`
	RoomId       string `json:"room_id"`
}

func (s *service) CheckConnectionHealth(ctx context.Context, params *CheckConnectionHealthParams) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()

	payload := ConnectionHealthPayload{
		ConnectionId: params.ConnectionId,
		ServerTime:   now.UnixMilli(),
	}
	if rec, err := s.healthRepo.Get(ctx, params.ConnectionId); err == nil {
		payload.Connected = rec.Connected
		if !rec.LastHeartbeatAt.IsZero() {
			payload.LastHeartbeatAt = rec.LastHeartbeatAt.UnixMilli()
		}
	}

	s.sender.Send(ctx, params.ConnectionId, &Message{Type: "connection-health-response", Payload: payload})

	if params.RoomId != "" && s.roomRepo.RoomExists(ctx, params.RoomId) {
		s.sender.Send(ctx, params.ConnectionId, s.roomHealthMessage(ctx, params.RoomId, now))
	}

	return nil
}

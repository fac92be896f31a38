package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/syncwatch/server/internal/repository/room"
)

type CreateRoomResponse struct {
	RoomId string `json:"room_id"`
}

func (s *service) CreateRoom(ctx context.Context) (CreateRoomResponse, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	roomId := s.newRoomIdLocked(ctx)
	if err := s.roomRepo.CreateRoom(ctx, &room.CreateRoomParams{RoomId: roomId}); err != nil {
		return CreateRoomResponse{}, fmt.Errorf("failed to create room: %w", err)
	}

	s.logger.InfoContext(ctx, "room created", "room_id", roomId)

	return CreateRoomResponse{RoomId: roomId}, nil
}

// newRoomIdLocked retries until the generated id does not collide with
// a live room. Collisions are resolved internally, never surfaced.
func (s *service) newRoomIdLocked(ctx context.Context) string {
	for {
		roomId := s.generator.GenerateRandomString(roomIdLength)
		if !s.roomRepo.RoomExists(ctx, roomId) {
			return roomId
		}
	}
}

type JoinRoomParams struct {
	ConnectionId string `json:"connection_id"`
	RoomId       string `json:"room_id"`
	Username     string `json:"username"`
	IsHost       bool   `json:"is_host"`
	IsChatOnly   bool   `json:"is_chat_only"`
}

type JoinRoomResponse struct {
	User              User
	Users             []User
	HostClaimRejected bool
}

func (s *service) JoinRoom(ctx context.Context, params *JoinRoomParams) (JoinRoomResponse, error) {
	if err := validation.ValidateStructWithContext(ctx, params,
		validation.Field(&params.RoomId, RoomIdRule...),
		validation.Field(&params.Username, UsernameRule...),
	); err != nil {
		return JoinRoomResponse{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()

	if !s.roomRepo.RoomExists(ctx, params.RoomId) {
		if err := s.roomRepo.CreateRoom(ctx, &room.CreateRoomParams{RoomId: params.RoomId}); err != nil {
			return JoinRoomResponse{}, fmt.Errorf("failed to create room: %w", err)
		}
		s.logger.InfoContext(ctx, "room created on join", "room_id", params.RoomId)
	}

	existing, err := s.roomRepo.GetParticipant(ctx, &room.GetParticipantParams{
		RoomId:       params.RoomId,
		ConnectionId: params.ConnectionId,
	})
	rejoining := err == nil

	if !rejoining {
		participants, err := s.roomRepo.GetParticipants(ctx, params.RoomId)
		if err != nil {
			return JoinRoomResponse{}, fmt.Errorf("failed to get participants: %w", err)
		}
		if len(participants) >= s.membersLimit {
			return JoinRoomResponse{}, ErrRoomFull
		}
	}

	hostId, err := s.roomRepo.GetHost(ctx, params.RoomId)
	if err != nil {
		return JoinRoomResponse{}, fmt.Errorf("failed to get host: %w", err)
	}

	// first host wins: a claim against an occupied seat is a non-fatal
	// conflict, the joiner stays a regular participant
	hostClaimRejected := false
	if params.IsHost && hostId != "" && hostId != params.ConnectionId {
		hostClaimRejected = true
		s.logger.WarnContext(ctx, "host claim rejected",
			"room_id", params.RoomId,
			"connection_id", params.ConnectionId,
			"host_id", hostId,
		)
	}

	p := room.Participant{
		ConnectionId:    params.ConnectionId,
		Username:        params.Username,
		IsChatOnly:      params.IsChatOnly,
		Active:          true,
		JoinedAt:        now,
		LastHeartbeatAt: now,
	}
	if rejoining {
		p.JoinedAt = existing.JoinedAt
	}

	if err := s.roomRepo.SetParticipant(ctx, &room.SetParticipantParams{
		RoomId:      params.RoomId,
		Participant: p,
	}); err != nil {
		return JoinRoomResponse{}, fmt.Errorf("failed to set participant: %w", err)
	}

	if params.IsHost && hostId == "" {
		hostId = params.ConnectionId
	}
	if hostId != "" {
		if err := s.roomRepo.SetHost(ctx, &room.SetHostParams{
			RoomId:       params.RoomId,
			ConnectionId: hostId,
		}); err != nil {
			return JoinRoomResponse{}, fmt.Errorf("failed to set host: %w", err)
		}
	}

	s.sessionRepo.Set(ctx, params.ConnectionId, params.RoomId)
	// a rejoin during the grace window keeps membership
	s.scheduler.Cancel(params.ConnectionId)

	if err := s.roomRepo.TouchRoom(ctx, params.RoomId); err != nil {
		return JoinRoomResponse{}, fmt.Errorf("failed to touch room: %w", err)
	}

	users, err := s.roomUsers(ctx, params.RoomId)
	if err != nil {
		return JoinRoomResponse{}, err
	}

	user := toUser(p)
	user.IsHost = hostId == params.ConnectionId

	s.broadcast(ctx, params.RoomId, "", &Message{
		Type:    "userJoined",
		Payload: UserJoinedPayload{User: user, Users: users},
	})

	if info, err := s.roomRepo.GetStreaming(ctx, params.RoomId); err == nil {
		s.sender.Send(ctx, params.ConnectionId, streamingStatusMessage(info))
	}

	// fresh cached playback state helps a late viewer catch up before
	// the first host update arrives
	if !user.IsHost && !params.IsChatOnly {
		if state, err := s.roomRepo.GetSyncState(ctx, params.RoomId); err == nil && state != nil {
			if now.Sub(state.ProducedAt) < s.snapshotFreshness {
				s.sender.Send(ctx, params.ConnectionId, fallbackSyncMessage(state, state.ProducedAt.UnixMilli(), ""))
			}
		}
	}

	s.logger.InfoContext(ctx, "user joined",
		"room_id", params.RoomId,
		"connection_id", params.ConnectionId,
		"username", params.Username,
		"is_host", user.IsHost,
		"is_chat_only", params.IsChatOnly,
	)

	return JoinRoomResponse{User: user, Users: users, HostClaimRejected: hostClaimRejected}, nil
}

type LeaveRoomParams struct {
	ConnectionId string `json:"connection_id"`
}

type LeaveRoomResponse struct {
	RoomId      string `json:"room_id"`
	RoomDeleted bool   `json:"room_deleted"`
}

func (s *service) LeaveRoom(ctx context.Context, params *LeaveRoomParams) (LeaveRoomResponse, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	roomId, err := s.sessionRepo.GetRoomId(ctx, params.ConnectionId)
	if err != nil {
		return LeaveRoomResponse{}, ErrParticipantNotFound
	}

	deleted, err := s.leaveLocked(ctx, roomId, params.ConnectionId)
	if err != nil {
		return LeaveRoomResponse{}, err
	}

	return LeaveRoomResponse{RoomId: roomId, RoomDeleted: deleted}, nil
}

// leaveLocked removes a participant for good: explicit leave, grace
// expiry and the retention sweep all end here. Reports whether the room
// was deleted because it emptied.
func (s *service) leaveLocked(ctx context.Context, roomId, connectionId string) (bool, error) {
	p, err := s.roomRepo.GetParticipant(ctx, &room.GetParticipantParams{
		RoomId:       roomId,
		ConnectionId: connectionId,
	})
	if err != nil {
		if errors.Is(err, room.ErrRoomNotFound) || errors.Is(err, room.ErrParticipantNotFound) {
			return false, ErrParticipantNotFound
		}
		return false, fmt.Errorf("failed to get participant: %w", err)
	}

	wasHost := p.IsHost

	if err := s.roomRepo.RemoveParticipant(ctx, &room.RemoveParticipantParams{
		RoomId:       roomId,
		ConnectionId: connectionId,
	}); err != nil {
		return false, fmt.Errorf("failed to remove participant: %w", err)
	}

	s.sessionRepo.Remove(ctx, connectionId)
	s.peerRepo.RemoveByConnectionId(ctx, connectionId)
	s.scheduler.Cancel(connectionId)

	// the departing host takes the stream with them; the repository
	// already cleared the room's host id
	if wasHost {
		s.stopStreamingLocked(ctx, roomId)
	}

	users, err := s.roomUsers(ctx, roomId)
	if err != nil {
		return false, err
	}

	s.broadcast(ctx, roomId, "", &Message{
		Type:    "userLeft",
		Payload: UserLeftPayload{ConnectionId: connectionId, Username: p.Username, Users: users},
	})

	s.logger.InfoContext(ctx, "user left",
		"room_id", roomId,
		"connection_id", connectionId,
		"username", p.Username,
		"was_host", wasHost,
	)

	if len(users) == 0 {
		if err := s.roomRepo.DeleteRoom(ctx, roomId); err != nil {
			return false, fmt.Errorf("failed to delete room: %w", err)
		}
		s.logger.InfoContext(ctx, "room deleted", "room_id", roomId, "reason", "empty")
		return true, nil
	}

	if err := s.roomRepo.TouchRoom(ctx, roomId); err != nil {
		return false, fmt.Errorf("failed to touch room: %w", err)
	}

	return false, nil
}

func (s *service) stopStreamingLocked(ctx context.Context, roomId string) {
	info, err := s.roomRepo.GetStreaming(ctx, roomId)
	if err != nil || !info.IsStreaming {
		return
	}

	info.IsStreaming = false
	if err := s.roomRepo.SetStreaming(ctx, &room.SetStreamingParams{RoomId: roomId, Info: info}); err != nil {
		s.logger.ErrorContext(ctx, "failed to stop streaming", "room_id", roomId, "error", err)
		return
	}

	s.broadcastViewers(ctx, roomId, "", streamingStatusMessage(info))
}

// deleteRoomLocked removes a room wholesale along with every index
// entry its participants still hold.
func (s *service) deleteRoomLocked(ctx context.Context, rm *room.Room, reason string) {
	for _, p := range rm.Participants {
		s.sessionRepo.Remove(ctx, p.ConnectionId)
		s.peerRepo.RemoveByConnectionId(ctx, p.ConnectionId)
		s.scheduler.Cancel(p.ConnectionId)
	}

	if err := s.roomRepo.DeleteRoom(ctx, rm.Id); err != nil {
		s.logger.ErrorContext(ctx, "failed to delete room", "room_id", rm.Id, "error", err)
		return
	}

	s.logger.InfoContext(ctx, "room deleted", "room_id", rm.Id, "reason", reason)
}

package service

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/syncwatch/server/internal/repository/room"
)

type UpdateVideoStateParams struct {
	ConnectionId string  `json:"connection_id"`
	RoomId       string  `json:"room_id"`
	CurrentTime  float64 `json:"current_time"`
	IsPlaying    bool    `json:"is_playing"`
	Timestamp    int64   `json:"timestamp"`
	Seeked       bool    `json:"seeked"`
}

// UpdateVideoState is the authoritative playback path. Only the host
// mutates the room's sync state; anyone else gets a corrective snapshot
// back and nothing is broadcast.
func (s *service) UpdateVideoState(ctx context.Context, params *UpdateVideoStateParams) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.roomRepo.RoomExists(ctx, params.RoomId) {
		return ErrRoomNotFound
	}

	now := time.Now()

	hostId, err := s.roomRepo.GetHost(ctx, params.RoomId)
	if err != nil {
		return fmt.Errorf("failed to get host: %w", err)
	}
	if hostId != params.ConnectionId {
		s.sendCorrectiveStateLocked(ctx, params.RoomId, params.ConnectionId, now)
		return nil
	}

	current, err := s.roomRepo.GetSyncState(ctx, params.RoomId)
	if err != nil {
		return fmt.Errorf("failed to get sync state: %w", err)
	}

	// suppress insignificant drift so follower players are not jittered
	// by every timeupdate tick
	if current != nil && current.IsPlaying == params.IsPlaying &&
		math.Abs(params.CurrentTime-current.CurrentTime) <= s.seekThreshold {
		if err := s.roomRepo.TouchRoom(ctx, params.RoomId); err != nil {
			return fmt.Errorf("failed to touch room: %w", err)
		}
		return nil
	}

	state := room.SyncState{
		CurrentTime: params.CurrentTime,
		IsPlaying:   params.IsPlaying,
		ProducedAt:  now,
		ProducerId:  params.ConnectionId,
		Seeked:      params.Seeked,
	}
	if err := s.roomRepo.SetSyncState(ctx, &room.SetSyncStateParams{RoomId: params.RoomId, State: state}); err != nil {
		return fmt.Errorf("failed to set sync state: %w", err)
	}

	s.broadcastViewers(ctx, params.RoomId, params.ConnectionId, &Message{
		Type: "videoStateUpdate",
		Payload: VideoStateUpdatePayload{
			CurrentTime: state.CurrentTime,
			IsPlaying:   state.IsPlaying,
			Timestamp:   now.UnixMilli(),
		},
	})

	if err := s.roomRepo.TouchRoom(ctx, params.RoomId); err != nil {
		return fmt.Errorf("failed to touch room: %w", err)
	}

	return nil
}

type ApplySeekParams struct {
	ConnectionId    string  `json:"connection_id"`
	RoomId          string  `json:"room_id"`
	SeekTime        float64 `json:"seek_time"`
	IsPlaying       bool    `json:"is_playing"`
	SourceTimestamp int64   `json:"source_timestamp"`
}

// ApplySeek propagates an explicit host seek. Seeks bypass the
// significance threshold: a deliberate jump always reaches followers,
// stamped with the one-way relay latency.
func (s *service) ApplySeek(ctx context.Context, params *ApplySeekParams) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.roomRepo.RoomExists(ctx, params.RoomId) {
		return ErrRoomNotFound
	}

	now := time.Now()

	hostId, err := s.roomRepo.GetHost(ctx, params.RoomId)
	if err != nil {
		return fmt.Errorf("failed to get host: %w", err)
	}
	if hostId != params.ConnectionId {
		s.sendCorrectiveStateLocked(ctx, params.RoomId, params.ConnectionId, now)
		return nil
	}

	state := room.SyncState{
		CurrentTime: params.SeekTime,
		IsPlaying:   params.IsPlaying,
		ProducedAt:  now,
		ProducerId:  params.ConnectionId,
		Seeked:      true,
	}
	if err := s.roomRepo.SetSyncState(ctx, &room.SetSyncStateParams{RoomId: params.RoomId, State: state}); err != nil {
		return fmt.Errorf("failed to set sync state: %w", err)
	}

	serverTimestamp := now.UnixMilli()
	s.broadcastViewers(ctx, params.RoomId, params.ConnectionId, &Message{
		Type: "videoSeekOperation",
		Payload: VideoSeekPayload{
			SeekTime:        params.SeekTime,
			IsPlaying:       params.IsPlaying,
			SourceTimestamp: params.SourceTimestamp,
			ServerTimestamp: serverTimestamp,
			Latency:         serverTimestamp - params.SourceTimestamp,
		},
	})

	if err := s.roomRepo.TouchRoom(ctx, params.RoomId); err != nil {
		return fmt.Errorf("failed to touch room: %w", err)
	}

	return nil
}

type FallbackSyncParams struct {
	ConnectionId       string  `json:"connection_id"`
	RoomId             string  `json:"room_id"`
	CurrentTime        float64 `json:"current_time"`
	IsPlaying          bool    `json:"is_playing"`
	Timestamp          int64   `json:"timestamp"`
	TargetConnectionId string  `json:"target_connection_id"`
}

// FallbackSync is the weak-authority recovery path: any participant may
// push a snapshot when the direct peer channel degrades. The snapshot
// is cached for late joiners and relayed to the named target, or to all
// viewers when no target is given or the target is gone.
func (s *service) FallbackSync(ctx context.Context, params *FallbackSyncParams) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.roomRepo.RoomExists(ctx, params.RoomId) {
		return ErrRoomNotFound
	}

	now := time.Now()

	state := room.SyncState{
		CurrentTime: params.CurrentTime,
		IsPlaying:   params.IsPlaying,
		ProducedAt:  now,
		ProducerId:  params.ConnectionId,
	}
	if err := s.roomRepo.SetSyncState(ctx, &room.SetSyncStateParams{RoomId: params.RoomId, State: state}); err != nil {
		return fmt.Errorf("failed to set sync state: %w", err)
	}

	msg := fallbackSyncMessage(&state, params.Timestamp, params.ConnectionId)

	if params.TargetConnectionId != "" {
		_, err := s.roomRepo.GetParticipant(ctx, &room.GetParticipantParams{
			RoomId:       params.RoomId,
			ConnectionId: params.TargetConnectionId,
		})
		if err == nil {
			s.sender.Send(ctx, params.TargetConnectionId, msg)
			return s.roomRepo.TouchRoom(ctx, params.RoomId)
		}
		s.logger.WarnContext(ctx, "fallback target gone, broadcasting",
			"room_id", params.RoomId,
			"target_connection_id", params.TargetConnectionId,
		)
	}

	s.broadcastViewers(ctx, params.RoomId, params.ConnectionId, msg)

	return s.roomRepo.TouchRoom(ctx, params.RoomId)
}

// sendCorrectiveStateLocked resyncs a participant whose update was
// rejected on the authoritative path. Nothing is broadcast and no error
// is surfaced to the offender beyond the snapshot itself.
func (s *service) sendCorrectiveStateLocked(ctx context.Context, roomId, connectionId string, now time.Time) {
	state, err := s.roomRepo.GetSyncState(ctx, roomId)
	if err != nil {
		return
	}

	payload := VideoStateUpdatePayload{Timestamp: now.UnixMilli()}
	if state != nil {
		payload.CurrentTime = state.CurrentTime
		payload.IsPlaying = state.IsPlaying
		payload.Timestamp = state.ProducedAt.UnixMilli()
	}

	s.sender.Send(ctx, connectionId, &Message{Type: "videoStateUpdate", Payload: payload})

	s.logger.InfoContext(ctx, "rejected state update from non-host",
		"room_id", roomId,
		"connection_id", connectionId,
	)
}

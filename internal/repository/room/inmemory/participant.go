package inmemory

import (
	"context"

	"github.com/syncwatch/server/internal/repository/room"
)

func (s *roomState) findParticipant(connectionId string) int {
	for i := range s.participants {
		if s.participants[i].ConnectionId == connectionId {
			return i
		}
	}

	return -1
}

// SetParticipant adds the participant or, when the connection id is already
// present, replaces the record in place keeping its join position.
func (r *repo) SetParticipant(ctx context.Context, params *room.SetParticipantParams) error {
	r.logger.DebugContext(ctx, "called", "params", params)
	r.mu.Lock()
	defer r.mu.Unlock()

	state, ok := r.rooms[params.RoomId]
	if !ok {
		r.logger.DebugContext(ctx, "returned", "error", room.ErrRoomNotFound)
		return room.ErrRoomNotFound
	}

	if i := state.findParticipant(params.Participant.ConnectionId); i >= 0 {
		state.participants[i] = params.Participant
		return nil
	}

	state.participants = append(state.participants, params.Participant)

	return nil
}

func (r *repo) RemoveParticipant(ctx context.Context, params *room.RemoveParticipantParams) error {
	r.logger.DebugContext(ctx, "called", "params", params)
	r.mu.Lock()
	defer r.mu.Unlock()

	state, ok := r.rooms[params.RoomId]
	if !ok {
		r.logger.DebugContext(ctx, "returned", "error", room.ErrRoomNotFound)
		return room.ErrRoomNotFound
	}

	i := state.findParticipant(params.ConnectionId)
	if i < 0 {
		r.logger.DebugContext(ctx, "returned", "error", room.ErrParticipantNotFound)
		return room.ErrParticipantNotFound
	}

	state.participants = append(state.participants[:i], state.participants[i+1:]...)
	if state.hostId == params.ConnectionId {
		state.hostId = ""
	}

	return nil
}

func (r *repo) GetParticipant(ctx context.Context, params *room.GetParticipantParams) (room.Participant, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	state, ok := r.rooms[params.RoomId]
	if !ok {
		return room.Participant{}, room.ErrRoomNotFound
	}

	i := state.findParticipant(params.ConnectionId)
	if i < 0 {
		return room.Participant{}, room.ErrParticipantNotFound
	}

	return state.participants[i], nil
}

func (r *repo) GetParticipants(ctx context.Context, roomId string) ([]room.Participant, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	state, ok := r.rooms[roomId]
	if !ok {
		return nil, room.ErrRoomNotFound
	}

	participants := make([]room.Participant, len(state.participants))
	copy(participants, state.participants)

	return participants, nil
}

func (r *repo) SetParticipantActive(ctx context.Context, params *room.SetParticipantActiveParams) error {
	r.logger.DebugContext(ctx, "called", "params", params)
	r.mu.Lock()
	defer r.mu.Unlock()

	state, ok := r.rooms[params.RoomId]
	if !ok {
		r.logger.DebugContext(ctx, "returned", "error", room.ErrRoomNotFound)
		return room.ErrRoomNotFound
	}

	i := state.findParticipant(params.ConnectionId)
	if i < 0 {
		r.logger.DebugContext(ctx, "returned", "error", room.ErrParticipantNotFound)
		return room.ErrParticipantNotFound
	}

	state.participants[i].Active = params.Active
	state.participants[i].DisconnectedAt = params.DisconnectedAt

	return nil
}

func (r *repo) SetParticipantHeartbeat(ctx context.Context, params *room.SetParticipantHeartbeatParams) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	state, ok := r.rooms[params.RoomId]
	if !ok {
		return room.ErrRoomNotFound
	}

	i := state.findParticipant(params.ConnectionId)
	if i < 0 {
		return room.ErrParticipantNotFound
	}

	state.participants[i].LastHeartbeatAt = params.At

	return nil
}

func (r *repo) RekeyParticipant(ctx context.Context, params *room.RekeyParticipantParams) error {
	r.logger.DebugContext(ctx, "called", "params", params)
	r.mu.Lock()
	defer r.mu.Unlock()

	state, ok := r.rooms[params.RoomId]
	if !ok {
		r.logger.DebugContext(ctx, "returned", "error", room.ErrRoomNotFound)
		return room.ErrRoomNotFound
	}

	i := state.findParticipant(params.OldConnectionId)
	if i < 0 {
		r.logger.DebugContext(ctx, "returned", "error", room.ErrParticipantNotFound)
		return room.ErrParticipantNotFound
	}

	state.participants[i].ConnectionId = params.NewConnectionId
	if state.hostId == params.OldConnectionId {
		state.hostId = params.NewConnectionId
	}

	return nil
}

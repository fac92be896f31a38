package inmemory

import (
	"context"

	"github.com/syncwatch/server/internal/repository/room"
)

// SetHost installs a new host (or clears it with an empty connection id) and
// realigns every participant's IsHost flag so at most one carries it.
func (r *repo) SetHost(ctx context.Context, params *room.SetHostParams) error {
	r.logger.DebugContext(ctx, "called", "params", params)
	r.mu.Lock()
	defer r.mu.Unlock()

	state, ok := r.rooms[params.RoomId]
	if !ok {
		r.logger.DebugContext(ctx, "returned", "error", room.ErrRoomNotFound)
		return room.ErrRoomNotFound
	}

	if params.ConnectionId != "" && state.findParticipant(params.ConnectionId) < 0 {
		r.logger.DebugContext(ctx, "returned", "error", room.ErrParticipantNotFound)
		return room.ErrParticipantNotFound
	}

	state.hostId = params.ConnectionId
	for i := range state.participants {
		state.participants[i].IsHost = state.participants[i].ConnectionId == params.ConnectionId
	}

	return nil
}

func (r *repo) GetHost(ctx context.Context, roomId string) (string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	state, ok := r.rooms[roomId]
	if !ok {
		return "", room.ErrRoomNotFound
	}

	return state.hostId, nil
}

func (r *repo) SetSyncState(ctx context.Context, params *room.SetSyncStateParams) error {
	r.logger.DebugContext(ctx, "called", "params", params)
	r.mu.Lock()
	defer r.mu.Unlock()

	state, ok := r.rooms[params.RoomId]
	if !ok {
		r.logger.DebugContext(ctx, "returned", "error", room.ErrRoomNotFound)
		return room.ErrRoomNotFound
	}

	snapshot := params.State
	state.syncState = &snapshot

	return nil
}

func (r *repo) GetSyncState(ctx context.Context, roomId string) (*room.SyncState, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	state, ok := r.rooms[roomId]
	if !ok {
		return nil, room.ErrRoomNotFound
	}

	if state.syncState == nil {
		return nil, nil
	}

	snapshot := *state.syncState

	return &snapshot, nil
}

func (r *repo) SetStreaming(ctx context.Context, params *room.SetStreamingParams) error {
	r.logger.DebugContext(ctx, "called", "params", params)
	r.mu.Lock()
	defer r.mu.Unlock()

	state, ok := r.rooms[params.RoomId]
	if !ok {
		r.logger.DebugContext(ctx, "returned", "error", room.ErrRoomNotFound)
		return room.ErrRoomNotFound
	}

	state.streaming = params.Info

	return nil
}

func (r *repo) GetStreaming(ctx context.Context, roomId string) (room.StreamingInfo, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	state, ok := r.rooms[roomId]
	if !ok {
		return room.StreamingInfo{}, room.ErrRoomNotFound
	}

	return state.streaming, nil
}

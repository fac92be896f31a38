package inmemory

import (
	"context"
	"errors"
	"log/slog"
	"sync"
)

var ErrNotFound = errors.New("not found")

// repo indexes which room each connection has joined, so transport-level
// events that carry no payload can be resolved back to a room.
type repo struct {
	mu     sync.RWMutex
	rooms  map[string]string
	logger *slog.Logger
}

func NewRepo(logger *slog.Logger) *repo {
	return &repo{
		rooms:  make(map[string]string),
		logger: logger,
	}
}

func (r *repo) Set(ctx context.Context, connectionId, roomId string) {
	r.logger.DebugContext(ctx, "called", "params", map[string]any{
		"connection_id": connectionId,
		"room_id":       roomId,
	})
	r.mu.Lock()
	defer r.mu.Unlock()

	r.rooms[connectionId] = roomId
}

func (r *repo) GetRoomId(ctx context.Context, connectionId string) (string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	roomId, ok := r.rooms[connectionId]
	if !ok {
		return "", ErrNotFound
	}

	return roomId, nil
}

func (r *repo) Remove(ctx context.Context, connectionId string) error {
	r.logger.DebugContext(ctx, "called", "params", map[string]any{"connection_id": connectionId})
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.rooms[connectionId]; !ok {
		return ErrNotFound
	}

	delete(r.rooms, connectionId)

	return nil
}

func (r *repo) Rekey(ctx context.Context, oldConnectionId, newConnectionId string) error {
	r.logger.DebugContext(ctx, "called", "params", map[string]any{
		"old_connection_id": oldConnectionId,
		"new_connection_id": newConnectionId,
	})
	r.mu.Lock()
	defer r.mu.Unlock()

	roomId, ok := r.rooms[oldConnectionId]
	if !ok {
		return ErrNotFound
	}

	delete(r.rooms, oldConnectionId)
	r.rooms[newConnectionId] = roomId

	return nil
}

func (r *repo) Count(ctx context.Context) int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return len(r.rooms)
}

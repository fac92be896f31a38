package inmemory

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/syncwatch/server/internal/repository/room"
	"golang.org/x/exp/maps"
)

type roomState struct {
	participants []room.Participant
	hostId       string
	streaming    room.StreamingInfo
	syncState    *room.SyncState
	createdAt    time.Time
	lastActiveAt time.Time
}

func (s *roomState) snapshot(id string) room.Room {
	r := room.Room{
		Id:           id,
		HostId:       s.hostId,
		Streaming:    s.streaming,
		CreatedAt:    s.createdAt,
		LastActiveAt: s.lastActiveAt,
		Participants: make([]room.Participant, len(s.participants)),
	}
	copy(r.Participants, s.participants)

	if s.syncState != nil {
		state := *s.syncState
		r.SyncState = &state
	}

	return r
}

type repo struct {
	mu     sync.RWMutex
	rooms  map[string]*roomState
	logger *slog.Logger
}

func NewRepo(logger *slog.Logger) *repo {
	return &repo{
		rooms:  make(map[string]*roomState),
		logger: logger,
	}
}

func (r *repo) CreateRoom(ctx context.Context, params *room.CreateRoomParams) error {
	r.logger.DebugContext(ctx, "called", "params", params)
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.rooms[params.RoomId]; ok {
		r.logger.DebugContext(ctx, "returned", "error", room.ErrRoomAlreadyExists)
		return room.ErrRoomAlreadyExists
	}

	now := time.Now()
	r.rooms[params.RoomId] = &roomState{
		createdAt:    now,
		lastActiveAt: now,
	}

	return nil
}

func (r *repo) GetRoom(ctx context.Context, roomId string) (room.Room, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	state, ok := r.rooms[roomId]
	if !ok {
		return room.Room{}, room.ErrRoomNotFound
	}

	return state.snapshot(roomId), nil
}

func (r *repo) RoomExists(ctx context.Context, roomId string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	_, ok := r.rooms[roomId]

	return ok
}

func (r *repo) DeleteRoom(ctx context.Context, roomId string) error {
	r.logger.DebugContext(ctx, "called", "params", map[string]any{"room_id": roomId})
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.rooms[roomId]; !ok {
		r.logger.DebugContext(ctx, "returned", "error", room.ErrRoomNotFound)
		return room.ErrRoomNotFound
	}

	delete(r.rooms, roomId)

	return nil
}

func (r *repo) TouchRoom(ctx context.Context, roomId string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	state, ok := r.rooms[roomId]
	if !ok {
		return room.ErrRoomNotFound
	}

	state.lastActiveAt = time.Now()

	return nil
}

func (r *repo) GetRoomIds(ctx context.Context) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return maps.Keys(r.rooms)
}

func (r *repo) GetRoomCount(ctx context.Context) int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return len(r.rooms)
}

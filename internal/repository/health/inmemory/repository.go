package inmemory

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/syncwatch/server/internal/repository/health"
)

type repo struct {
	mu      sync.RWMutex
	records map[string]health.Record
	logger  *slog.Logger
}

func NewRepo(logger *slog.Logger) *repo {
	return &repo{
		records: make(map[string]health.Record),
		logger:  logger,
	}
}

// Add registers a freshly opened connection as connected and heartbeating.
func (r *repo) Add(ctx context.Context, connectionId string, at time.Time) {
	r.logger.DebugContext(ctx, "called", "params", map[string]any{"connection_id": connectionId})
	r.mu.Lock()
	defer r.mu.Unlock()

	r.records[connectionId] = health.Record{
		ConnectionId:    connectionId,
		Connected:       true,
		LastHeartbeatAt: at,
	}
}

func (r *repo) Get(ctx context.Context, connectionId string) (health.Record, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	record, ok := r.records[connectionId]
	if !ok {
		return health.Record{}, health.ErrNotFound
	}

	return record, nil
}

func (r *repo) SetHeartbeat(ctx context.Context, connectionId string, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	record, ok := r.records[connectionId]
	if !ok {
		return health.ErrNotFound
	}

	record.LastHeartbeatAt = at
	r.records[connectionId] = record

	return nil
}

func (r *repo) SetConnected(ctx context.Context, connectionId string, connected bool, at time.Time) error {
	r.logger.DebugContext(ctx, "called", "params", map[string]any{
		"connection_id": connectionId,
		"connected":     connected,
	})
	r.mu.Lock()
	defer r.mu.Unlock()

	record, ok := r.records[connectionId]
	if !ok {
		return health.ErrNotFound
	}

	record.Connected = connected
	if connected {
		record.DisconnectedAt = time.Time{}
	} else {
		record.DisconnectedAt = at
	}
	r.records[connectionId] = record

	return nil
}

func (r *repo) Remove(ctx context.Context, connectionId string) error {
	r.logger.DebugContext(ctx, "called", "params", map[string]any{"connection_id": connectionId})
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.records[connectionId]; !ok {
		return health.ErrNotFound
	}

	delete(r.records, connectionId)

	return nil
}

// PurgeDisconnectedBefore removes records of connections that dropped before
// the cutoff and returns their ids.
func (r *repo) PurgeDisconnectedBefore(ctx context.Context, cutoff time.Time) []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	var purged []string
	for id, record := range r.records {
		if !record.Connected && record.DisconnectedAt.Before(cutoff) {
			delete(r.records, id)
			purged = append(purged, id)
		}
	}

	if len(purged) > 0 {
		r.logger.DebugContext(ctx, "purged health records", "connection_ids", purged)
	}

	return purged
}

func (r *repo) CountConnected(ctx context.Context) int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	count := 0
	for _, record := range r.records {
		if record.Connected {
			count++
		}
	}

	return count
}

package inmemory

import (
	"context"
	"errors"
	"log/slog"
	"sync"
)

var ErrNotFound = errors.New("not found")

// repo keeps the bidirectional peer-identifier <-> connection-identifier
// mapping used to route direct-connection signaling. It owns nothing else.
type repo struct {
	mu         sync.RWMutex
	peerByConn map[string]string
	connByPeer map[string]string
	logger     *slog.Logger
}

func NewRepo(logger *slog.Logger) *repo {
	return &repo{
		peerByConn: make(map[string]string),
		connByPeer: make(map[string]string),
		logger:     logger,
	}
}

// Set records the mapping, displacing any previous binding of either side.
func (r *repo) Set(ctx context.Context, connectionId, peerId string) {
	r.logger.DebugContext(ctx, "called", "params", map[string]any{
		"connection_id": connectionId,
		"peer_id":       peerId,
	})
	r.mu.Lock()
	defer r.mu.Unlock()

	if prevPeer, ok := r.peerByConn[connectionId]; ok {
		delete(r.connByPeer, prevPeer)
	}
	if prevConn, ok := r.connByPeer[peerId]; ok {
		delete(r.peerByConn, prevConn)
	}

	r.peerByConn[connectionId] = peerId
	r.connByPeer[peerId] = connectionId
}

func (r *repo) GetPeerId(ctx context.Context, connectionId string) (string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	peerId, ok := r.peerByConn[connectionId]
	if !ok {
		return "", ErrNotFound
	}

	return peerId, nil
}

func (r *repo) GetConnectionId(ctx context.Context, peerId string) (string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	connectionId, ok := r.connByPeer[peerId]
	if !ok {
		return "", ErrNotFound
	}

	return connectionId, nil
}

func (r *repo) RemoveByConnectionId(ctx context.Context, connectionId string) error {
	r.logger.DebugContext(ctx, "called", "params", map[string]any{"connection_id": connectionId})
	r.mu.Lock()
	defer r.mu.Unlock()

	peerId, ok := r.peerByConn[connectionId]
	if !ok {
		return ErrNotFound
	}

	delete(r.peerByConn, connectionId)
	delete(r.connByPeer, peerId)

	return nil
}

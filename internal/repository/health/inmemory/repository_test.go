package inmemory

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/syncwatch/server/internal/repository/health"
)

func TestRecordLifecycle(t *testing.T) {
	r := NewRepo(slog.Default())
	ctx := context.Background()
	now := time.Now()

	r.Add(ctx, "c1", now)

	record, err := r.Get(ctx, "c1")
	require.NoError(t, err)
	assert.True(t, record.Connected)
	assert.Equal(t, now, record.LastHeartbeatAt)
	assert.True(t, record.DisconnectedAt.IsZero())

	later := now.Add(time.Second)
	require.NoError(t, r.SetHeartbeat(ctx, "c1", later))
	record, err = r.Get(ctx, "c1")
	require.NoError(t, err)
	assert.Equal(t, later, record.LastHeartbeatAt)

	require.NoError(t, r.SetConnected(ctx, "c1", false, later))
	record, err = r.Get(ctx, "c1")
	require.NoError(t, err)
	assert.False(t, record.Connected)
	assert.Equal(t, later, record.DisconnectedAt)

	require.NoError(t, r.SetConnected(ctx, "c1", true, later.Add(time.Second)))
	record, err = r.Get(ctx, "c1")
	require.NoError(t, err)
	assert.True(t, record.Connected)
	assert.True(t, record.DisconnectedAt.IsZero(), "reconnect must clear the disconnect mark")

	require.NoError(t, r.Remove(ctx, "c1"))
	_, err = r.Get(ctx, "c1")
	assert.ErrorIs(t, err, health.ErrNotFound)
	assert.ErrorIs(t, r.SetHeartbeat(ctx, "c1", later), health.ErrNotFound)
}

func TestPurgeDisconnectedBefore(t *testing.T) {
	r := NewRepo(slog.Default())
	ctx := context.Background()
	now := time.Now()

	r.Add(ctx, "live", now)
	r.Add(ctx, "recent", now)
	r.Add(ctx, "stale", now)

	require.NoError(t, r.SetConnected(ctx, "recent", false, now.Add(-time.Minute)))
	require.NoError(t, r.SetConnected(ctx, "stale", false, now.Add(-10*time.Minute)))

	purged := r.PurgeDisconnectedBefore(ctx, now.Add(-5*time.Minute))
	assert.Equal(t, []string{"stale"}, purged)

	_, err := r.Get(ctx, "stale")
	assert.ErrorIs(t, err, health.ErrNotFound)
	_, err = r.Get(ctx, "recent")
	assert.NoError(t, err, "recently disconnected record must survive the purge")

	assert.Equal(t, 1, r.CountConnected(ctx))
}

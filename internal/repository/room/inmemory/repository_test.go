package inmemory

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/syncwatch/server/internal/repository/room"
)

func newTestRepo() *repo {
	return NewRepo(slog.Default())
}

func TestRoomLifecycle(t *testing.T) {
	r := newTestRepo()
	ctx := context.Background()

	err := r.CreateRoom(ctx, &room.CreateRoomParams{RoomId: "abc12345"})
	require.NoError(t, err)

	err = r.CreateRoom(ctx, &room.CreateRoomParams{RoomId: "abc12345"})
	assert.ErrorIs(t, err, room.ErrRoomAlreadyExists, "duplicate id must be rejected")

	assert.True(t, r.RoomExists(ctx, "abc12345"))
	assert.False(t, r.RoomExists(ctx, "missing"))
	assert.Equal(t, 1, r.GetRoomCount(ctx))
	assert.Equal(t, []string{"abc12345"}, r.GetRoomIds(ctx))

	got, err := r.GetRoom(ctx, "abc12345")
	require.NoError(t, err)
	assert.Empty(t, got.Participants)
	assert.False(t, got.LastActiveAt.IsZero())

	before := got.LastActiveAt
	time.Sleep(5 * time.Millisecond)
	require.NoError(t, r.TouchRoom(ctx, "abc12345"))
	got, err = r.GetRoom(ctx, "abc12345")
	require.NoError(t, err)
	assert.True(t, got.LastActiveAt.After(before), "touch must advance last activity")

	require.NoError(t, r.DeleteRoom(ctx, "abc12345"))
	_, err = r.GetRoom(ctx, "abc12345")
	assert.ErrorIs(t, err, room.ErrRoomNotFound)
	assert.ErrorIs(t, r.DeleteRoom(ctx, "abc12345"), room.ErrRoomNotFound)
}

func TestParticipantsOrderedAndReplacedInPlace(t *testing.T) {
	r := newTestRepo()
	ctx := context.Background()

	require.NoError(t, r.CreateRoom(ctx, &room.CreateRoomParams{RoomId: "r1"}))

	for _, id := range []string{"c1", "c2", "c3"} {
		err := r.SetParticipant(ctx, &room.SetParticipantParams{
			RoomId:      "r1",
			Participant: room.Participant{ConnectionId: id, Username: "u-" + id, Active: true, JoinedAt: time.Now()},
		})
		require.NoError(t, err)
	}

	// replacing c2 must keep its position
	err := r.SetParticipant(ctx, &room.SetParticipantParams{
		RoomId:      "r1",
		Participant: room.Participant{ConnectionId: "c2", Username: "renamed", Active: true},
	})
	require.NoError(t, err)

	participants, err := r.GetParticipants(ctx, "r1")
	require.NoError(t, err)
	require.Len(t, participants, 3)
	assert.Equal(t, "c2", participants[1].ConnectionId, "replace must not change join order")
	assert.Equal(t, "renamed", participants[1].Username)

	p, err := r.GetParticipant(ctx, &room.GetParticipantParams{RoomId: "r1", ConnectionId: "c3"})
	require.NoError(t, err)
	assert.Equal(t, "u-c3", p.Username)

	_, err = r.GetParticipant(ctx, &room.GetParticipantParams{RoomId: "r1", ConnectionId: "nope"})
	assert.ErrorIs(t, err, room.ErrParticipantNotFound)
}

func TestHostFlagsStayConsistent(t *testing.T) {
	r := newTestRepo()
	ctx := context.Background()

	require.NoError(t, r.CreateRoom(ctx, &room.CreateRoomParams{RoomId: "r1"}))
	for _, id := range []string{"c1", "c2"} {
		require.NoError(t, r.SetParticipant(ctx, &room.SetParticipantParams{
			RoomId:      "r1",
			Participant: room.Participant{ConnectionId: id, Active: true},
		}))
	}

	require.NoError(t, r.SetHost(ctx, &room.SetHostParams{RoomId: "r1", ConnectionId: "c1"}))
	require.NoError(t, r.SetHost(ctx, &room.SetHostParams{RoomId: "r1", ConnectionId: "c2"}))

	participants, err := r.GetParticipants(ctx, "r1")
	require.NoError(t, err)

	hosts := 0
	for _, p := range participants {
		if p.IsHost {
			hosts++
			assert.Equal(t, "c2", p.ConnectionId)
		}
	}
	assert.Equal(t, 1, hosts, "exactly one participant may hold the host flag")

	hostId, err := r.GetHost(ctx, "r1")
	require.NoError(t, err)
	assert.Equal(t, "c2", hostId)

	err = r.SetHost(ctx, &room.SetHostParams{RoomId: "r1", ConnectionId: "ghost"})
	assert.ErrorIs(t, err, room.ErrParticipantNotFound)

	// removing the host clears it
	require.NoError(t, r.RemoveParticipant(ctx, &room.RemoveParticipantParams{RoomId: "r1", ConnectionId: "c2"}))
	hostId, err = r.GetHost(ctx, "r1")
	require.NoError(t, err)
	assert.Empty(t, hostId)
}

func TestRekeyParticipantCarriesHost(t *testing.T) {
	r := newTestRepo()
	ctx := context.Background()

	require.NoError(t, r.CreateRoom(ctx, &room.CreateRoomParams{RoomId: "r1"}))
	require.NoError(t, r.SetParticipant(ctx, &room.SetParticipantParams{
		RoomId:      "r1",
		Participant: room.Participant{ConnectionId: "old", Username: "h", Active: true},
	}))
	require.NoError(t, r.SetParticipant(ctx, &room.SetParticipantParams{
		RoomId:      "r1",
		Participant: room.Participant{ConnectionId: "v1", Active: true},
	}))
	require.NoError(t, r.SetHost(ctx, &room.SetHostParams{RoomId: "r1", ConnectionId: "old"}))

	require.NoError(t, r.RekeyParticipant(ctx, &room.RekeyParticipantParams{
		RoomId:          "r1",
		OldConnectionId: "old",
		NewConnectionId: "new",
	}))

	participants, err := r.GetParticipants(ctx, "r1")
	require.NoError(t, err)
	assert.Equal(t, "new", participants[0].ConnectionId, "rekey must keep join order")
	assert.Equal(t, "h", participants[0].Username)

	hostId, err := r.GetHost(ctx, "r1")
	require.NoError(t, err)
	assert.Equal(t, "new", hostId, "host id must follow the rekeyed participant")
}

func TestSyncStateIsCopied(t *testing.T) {
	r := newTestRepo()
	ctx := context.Background()

	require.NoError(t, r.CreateRoom(ctx, &room.CreateRoomParams{RoomId: "r1"}))

	state, err := r.GetSyncState(ctx, "r1")
	require.NoError(t, err)
	assert.Nil(t, state, "fresh room has no sync state")

	stored := room.SyncState{CurrentTime: 12.5, IsPlaying: true, ProducerId: "c1", ProducedAt: time.Now()}
	require.NoError(t, r.SetSyncState(ctx, &room.SetSyncStateParams{RoomId: "r1", State: stored}))

	state, err = r.GetSyncState(ctx, "r1")
	require.NoError(t, err)
	require.NotNil(t, state)
	assert.Equal(t, 12.5, state.CurrentTime)

	state.CurrentTime = 99
	again, err := r.GetSyncState(ctx, "r1")
	require.NoError(t, err)
	assert.Equal(t, 12.5, again.CurrentTime, "callers must not mutate stored state")
}

func TestStreamingInfo(t *testing.T) {
	r := newTestRepo()
	ctx := context.Background()

	require.NoError(t, r.CreateRoom(ctx, &room.CreateRoomParams{RoomId: "r1"}))

	info, err := r.GetStreaming(ctx, "r1")
	require.NoError(t, err)
	assert.False(t, info.IsStreaming)

	require.NoError(t, r.SetStreaming(ctx, &room.SetStreamingParams{
		RoomId: "r1",
		Info:   room.StreamingInfo{IsStreaming: true, FileName: "movie.mp4", FileType: "video/mp4"},
	}))

	info, err = r.GetStreaming(ctx, "r1")
	require.NoError(t, err)
	assert.True(t, info.IsStreaming)
	assert.Equal(t, "movie.mp4", info.FileName)
}

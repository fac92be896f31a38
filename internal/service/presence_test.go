package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/syncwatch/server/internal/repository/room"
)

func TestHeartbeatAck(t *testing.T) {
	svc, sender, _ := newTestService(t, testConfig())
	ctx := context.Background()

	roomId := "room0001"
	join(t, svc, sender, "conn-h", roomId, "host", true, false)
	join(t, svc, sender, "conn-v", roomId, "viewer", false, false)
	join(t, svc, sender, "conn-c", roomId, "lurker", false, true)

	require.NoError(t, svc.Heartbeat(ctx, &HeartbeatParams{
		ConnectionId: "conn-v",
		RoomId:       roomId,
		Timestamp:    12345,
	}))

	ack := sender.last("conn-v", "heartbeat-ack")
	require.NotNil(t, ack)
	payload := ack.Payload.(HeartbeatAckPayload)
	assert.Equal(t, int64(12345), payload.ClientTime, "client time is echoed for RTT measurement")
	assert.NotZero(t, payload.ServerTime)
	assert.Equal(t, 2, payload.ViewerCount)
	assert.Equal(t, 1, payload.ChatOnlyCount)
	assert.True(t, payload.HostConnected)

	rec, err := svc.healthRepo.Get(ctx, "conn-v")
	require.NoError(t, err)
	assert.True(t, rec.Connected)
	assert.False(t, rec.LastHeartbeatAt.IsZero())
}

func TestHeartbeatWithoutRoom(t *testing.T) {
	svc, sender, _ := newTestService(t, testConfig())
	ctx := context.Background()

	svc.RegisterConnection(ctx, "conn-x")
	sender.connect("conn-x")

	require.NoError(t, svc.Heartbeat(ctx, &HeartbeatParams{ConnectionId: "conn-x", Timestamp: 7}))

	ack := sender.last("conn-x", "heartbeat-ack")
	require.NotNil(t, ack, "heartbeats are acked even before joining a room")
	assert.Zero(t, ack.Payload.(HeartbeatAckPayload).ViewerCount)
}

func TestDisconnectStartsGracePhase(t *testing.T) {
	svc, sender, scheduler := newTestService(t, testConfig())
	ctx := context.Background()

	roomId := "room0001"
	join(t, svc, sender, "conn-h", roomId, "host", true, false)
	join(t, svc, sender, "conn-v", roomId, "viewer", false, false)

	sender.drop("conn-v")
	require.NoError(t, svc.Disconnect(ctx, &DisconnectParams{ConnectionId: "conn-v"}))

	disconnected := sender.last("conn-h", "userDisconnected")
	require.NotNil(t, disconnected, "the room learns about the disconnect immediately")
	payload := disconnected.Payload.(UserDisconnectedPayload)
	assert.Equal(t, "conn-v", payload.ConnectionId)
	require.Len(t, payload.Users, 2, "participant stays listed during the grace window")
	assert.False(t, payload.Users[1].Active)

	assert.True(t, scheduler.pending("conn-v"), "removal must be scheduled, not immediate")
	assert.Zero(t, sender.count("conn-h", "userLeft"), "no removal before the grace window closes")

	rec, err := svc.healthRepo.Get(ctx, "conn-v")
	require.NoError(t, err)
	assert.False(t, rec.Connected)
}

func TestGraceExpiryRemovesExactlyOnce(t *testing.T) {
	svc, sender, scheduler := newTestService(t, testConfig())
	ctx := context.Background()

	roomId := "room0001"
	join(t, svc, sender, "conn-h", roomId, "host", true, false)
	join(t, svc, sender, "conn-v", roomId, "viewer", false, false)

	sender.drop("conn-v")
	require.NoError(t, svc.Disconnect(ctx, &DisconnectParams{ConnectionId: "conn-v"}))

	require.True(t, scheduler.fire("conn-v"), "the removal task must be pending")

	assert.Equal(t, 1, sender.count("conn-h", "userLeft"), "followers get userLeft exactly once")
	left := sender.last("conn-h", "userLeft")
	assert.Len(t, left.Payload.(UserLeftPayload).Users, 1)

	participants, err := svc.roomRepo.GetParticipants(ctx, roomId)
	require.NoError(t, err)
	assert.Len(t, participants, 1)

	assert.False(t, scheduler.fire("conn-v"), "expiry must not be re-runnable")
	assert.Equal(t, 1, sender.count("conn-h", "userLeft"))
}

// Scenario: the host drops and reconnects within the grace window using
// the previous-identifier handshake. The viewer never sees userLeft and
// the host seat follows the new connection id.
func TestReconnectionReclaimsIdentity(t *testing.T) {
	svc, sender, scheduler := newTestService(t, testConfig())
	ctx := context.Background()

	roomId := "room0001"
	join(t, svc, sender, "conn-h", roomId, "host", true, false)
	join(t, svc, sender, "conn-v", roomId, "viewer", false, false)

	sender.drop("conn-h")
	require.NoError(t, svc.Disconnect(ctx, &DisconnectParams{ConnectionId: "conn-h"}))
	require.True(t, scheduler.pending("conn-h"))

	svc.RegisterConnection(ctx, "conn-h2")
	sender.connect("conn-h2")
	require.NoError(t, svc.RegisterPeer(ctx, &RegisterPeerParams{
		ConnectionId:         "conn-h2",
		RoomId:               roomId,
		PeerId:               "peer-h",
		IsHost:               true,
		PreviousConnectionId: "conn-h",
	}))

	assert.Zero(t, sender.count("conn-v", "userLeft"), "reconnection within grace must never surface as a departure")
	assert.False(t, scheduler.pending("conn-h"), "pending removal must be cancelled")
	assert.False(t, scheduler.fire("conn-h"))

	hostId, err := svc.roomRepo.GetHost(ctx, roomId)
	require.NoError(t, err)
	assert.Equal(t, "conn-h2", hostId, "host seat follows the reclaimed identity")

	participants, err := svc.roomRepo.GetParticipants(ctx, roomId)
	require.NoError(t, err)
	require.Len(t, participants, 2, "membership is retained, not duplicated")
	assert.Equal(t, "conn-h2", participants[0].ConnectionId, "join order survives the rekey")
	assert.True(t, participants[0].Active)
	assert.True(t, participants[0].IsHost)

	rejoined := sender.last("conn-v", "userJoined")
	require.NotNil(t, rejoined)
	assert.Equal(t, "conn-h2", rejoined.Payload.(UserJoinedPayload).User.ConnectionId)
	assert.True(t, rejoined.Payload.(UserJoinedPayload).User.IsHost)

	// indexes moved over
	gotRoomId, err := svc.sessionRepo.GetRoomId(ctx, "conn-h2")
	require.NoError(t, err)
	assert.Equal(t, roomId, gotRoomId)
	_, err = svc.sessionRepo.GetRoomId(ctx, "conn-h")
	assert.Error(t, err)

	mapped, err := svc.peerRepo.GetConnectionId(ctx, "peer-h")
	require.NoError(t, err)
	assert.Equal(t, "conn-h2", mapped)

	_, err = svc.healthRepo.Get(ctx, "conn-h")
	assert.Error(t, err, "the stale health record is dropped")
}

func TestReclaimAfterRejoinFoldsRecords(t *testing.T) {
	svc, sender, _ := newTestService(t, testConfig())
	ctx := context.Background()

	roomId := "room0001"
	join(t, svc, sender, "conn-h", roomId, "host", true, false)
	join(t, svc, sender, "conn-v", roomId, "viewer", false, false)

	sender.drop("conn-h")
	require.NoError(t, svc.Disconnect(ctx, &DisconnectParams{ConnectionId: "conn-h"}))

	// the client re-joins on the new connection before the peer
	// handshake arrives
	join(t, svc, sender, "conn-h2", roomId, "host", true, false)
	require.NoError(t, svc.RegisterPeer(ctx, &RegisterPeerParams{
		ConnectionId:         "conn-h2",
		RoomId:               roomId,
		PeerId:               "peer-h",
		IsHost:               true,
		PreviousConnectionId: "conn-h",
	}))

	participants, err := svc.roomRepo.GetParticipants(ctx, roomId)
	require.NoError(t, err)
	assert.Len(t, participants, 2, "stale record must be folded, not kept alongside")

	hostId, err := svc.roomRepo.GetHost(ctx, roomId)
	require.NoError(t, err)
	assert.Equal(t, "conn-h2", hostId, "host role transfers to the surviving record")
}

func TestReclaimAfterExpiryRegistersPlainPeer(t *testing.T) {
	svc, sender, scheduler := newTestService(t, testConfig())
	ctx := context.Background()

	roomId := "room0001"
	join(t, svc, sender, "conn-h", roomId, "host", true, false)
	join(t, svc, sender, "conn-v", roomId, "viewer", false, false)

	sender.drop("conn-v")
	require.NoError(t, svc.Disconnect(ctx, &DisconnectParams{ConnectionId: "conn-v"}))
	require.True(t, scheduler.fire("conn-v"))

	svc.RegisterConnection(ctx, "conn-v2")
	sender.connect("conn-v2")
	require.NoError(t, svc.RegisterPeer(ctx, &RegisterPeerParams{
		ConnectionId:         "conn-v2",
		RoomId:               roomId,
		PeerId:               "peer-v",
		PreviousConnectionId: "conn-v",
	}))

	// too late: the identity is gone, only the mapping is recorded
	mapped, err := svc.peerRepo.GetConnectionId(ctx, "peer-v")
	require.NoError(t, err)
	assert.Equal(t, "conn-v2", mapped)

	_, err = svc.roomRepo.GetParticipant(ctx, &room.GetParticipantParams{RoomId: roomId, ConnectionId: "conn-v2"})
	assert.Error(t, err, "an expired identity is not resurrected by the handshake")
}

func TestSweepMarksConfirmedLostConnections(t *testing.T) {
	cfg := testConfig()
	cfg.HeartbeatTimeout = 40 * time.Millisecond
	svc, sender, _ := newTestService(t, cfg)
	ctx := context.Background()

	roomId := "room0001"
	join(t, svc, sender, "conn-h", roomId, "host", true, false)
	join(t, svc, sender, "conn-v", roomId, "viewer", false, false)

	time.Sleep(60 * time.Millisecond)

	// both heartbeats are stale, but only the dropped transport counts
	// as lost
	sender.drop("conn-v")
	report := svc.Sweep(ctx)
	assert.Equal(t, 1, report.LostConnections)

	lost := sender.last("conn-h", "userConnectionLost")
	require.NotNil(t, lost)
	assert.Equal(t, "conn-v", lost.Payload.(UserConnectionLostPayload).ConnectionId)

	p, err := svc.roomRepo.GetParticipant(ctx, &room.GetParticipantParams{RoomId: roomId, ConnectionId: "conn-v"})
	require.NoError(t, err)
	assert.False(t, p.Active)

	rec, err := svc.healthRepo.Get(ctx, "conn-v")
	require.NoError(t, err)
	assert.False(t, rec.Connected)

	require.NotNil(t, sender.last("conn-h", "room-health-status"), "mutated rooms report their health")

	// a second pass finds nothing new
	report = svc.Sweep(ctx)
	assert.Zero(t, report.LostConnections, "sweep must be idempotent")
}

func TestSweepSparesResponsiveConnections(t *testing.T) {
	cfg := testConfig()
	cfg.HeartbeatTimeout = 40 * time.Millisecond
	svc, sender, _ := newTestService(t, cfg)
	ctx := context.Background()

	roomId := "room0001"
	join(t, svc, sender, "conn-h", roomId, "host", true, false)

	time.Sleep(60 * time.Millisecond)

	// stale heartbeat but the transport still answers pings
	report := svc.Sweep(ctx)
	assert.Zero(t, report.LostConnections, "a responsive transport is not a lost connection")

	p, err := svc.roomRepo.GetParticipant(ctx, &room.GetParticipantParams{RoomId: roomId, ConnectionId: "conn-h"})
	require.NoError(t, err)
	assert.True(t, p.Active)
}

func TestSweepHostLossClearsHostAndStopsStreaming(t *testing.T) {
	cfg := testConfig()
	cfg.HeartbeatTimeout = 40 * time.Millisecond
	svc, sender, _ := newTestService(t, cfg)
	ctx := context.Background()

	roomId := "room0001"
	join(t, svc, sender, "conn-h", roomId, "host", true, false)
	join(t, svc, sender, "conn-v", roomId, "viewer", false, false)

	require.NoError(t, svc.UpdateStreamingStatus(ctx, &UpdateStreamingStatusParams{
		ConnectionId: "conn-h",
		RoomId:       roomId,
		Streaming:    true,
		FileName:     "movie.mkv",
	}))

	time.Sleep(60 * time.Millisecond)
	require.NoError(t, svc.Heartbeat(ctx, &HeartbeatParams{ConnectionId: "conn-v", RoomId: roomId}))

	sender.drop("conn-h")
	report := svc.Sweep(ctx)
	require.Equal(t, 1, report.LostConnections)

	hostLost := sender.last("conn-v", "hostConnectionLost")
	require.NotNil(t, hostLost, "viewers get the distinguished host loss notice")
	assert.Equal(t, "conn-h", hostLost.Payload.(HostConnectionLostPayload).ConnectionId)

	hostId, err := svc.roomRepo.GetHost(ctx, roomId)
	require.NoError(t, err)
	assert.Empty(t, hostId, "a lost host loses the seat")

	status := sender.last("conn-v", "streaming-status")
	require.NotNil(t, status)
	assert.False(t, status.Payload.(StreamingStatusPayload).Streaming)
}

func TestSweepRetentionHardRemoves(t *testing.T) {
	cfg := testConfig()
	cfg.RetentionWindow = 40 * time.Millisecond
	svc, sender, scheduler := newTestService(t, cfg)
	ctx := context.Background()

	roomId := "room0001"
	join(t, svc, sender, "conn-h", roomId, "host", true, false)
	join(t, svc, sender, "conn-v", roomId, "viewer", false, false)

	sender.drop("conn-v")
	require.NoError(t, svc.Disconnect(ctx, &DisconnectParams{ConnectionId: "conn-v"}))

	time.Sleep(60 * time.Millisecond)
	require.NoError(t, svc.Heartbeat(ctx, &HeartbeatParams{ConnectionId: "conn-h", RoomId: roomId}))

	report := svc.Sweep(ctx)
	assert.Equal(t, 1, report.RemovedParticipants)
	assert.Equal(t, 1, sender.count("conn-h", "userLeft"))
	assert.False(t, scheduler.pending("conn-v"), "retention removal cancels the leftover grace task")

	participants, err := svc.roomRepo.GetParticipants(ctx, roomId)
	require.NoError(t, err)
	assert.Len(t, participants, 1)
}

func TestSweepDeletesEmptyAndIdleRooms(t *testing.T) {
	cfg := testConfig()
	cfg.GracePeriod = 20 * time.Millisecond
	cfg.RoomInactivityTimeout = 50 * time.Millisecond
	cfg.HeartbeatTimeout = time.Hour
	svc, sender, _ := newTestService(t, cfg)
	ctx := context.Background()

	// an empty room past the grace window
	emptyResp, err := svc.CreateRoom(ctx)
	require.NoError(t, err)

	// an idle room with a zombie participant entry
	idleRoomId := "room0002"
	join(t, svc, sender, "conn-z", idleRoomId, "zombie", false, false)

	time.Sleep(70 * time.Millisecond)

	report := svc.Sweep(ctx)
	assert.Equal(t, 2, report.DeletedRooms)
	assert.False(t, svc.roomRepo.RoomExists(ctx, emptyResp.RoomId))
	assert.False(t, svc.roomRepo.RoomExists(ctx, idleRoomId), "rooms idle beyond the timeout die even with stale entries")

	_, err = svc.sessionRepo.GetRoomId(ctx, "conn-z")
	assert.Error(t, err, "index entries of a deleted room are cleaned up")
}

func TestSweepPurgesOldHealthRecords(t *testing.T) {
	cfg := testConfig()
	cfg.RetentionWindow = 30 * time.Millisecond
	svc, _, _ := newTestService(t, cfg)
	ctx := context.Background()

	svc.RegisterConnection(ctx, "conn-x")
	require.NoError(t, svc.Disconnect(ctx, &DisconnectParams{ConnectionId: "conn-x"}))

	time.Sleep(50 * time.Millisecond)

	report := svc.Sweep(ctx)
	assert.Equal(t, 1, report.PurgedHealthRecords)

	_, err := svc.healthRepo.Get(ctx, "conn-x")
	assert.Error(t, err)
}

func TestCheckConnectionHealth(t *testing.T) {
	svc, sender, _ := newTestService(t, testConfig())
	ctx := context.Background()

	roomId := "room0001"
	join(t, svc, sender, "conn-h", roomId, "host", true, false)
	require.NoError(t, svc.Heartbeat(ctx, &HeartbeatParams{ConnectionId: "conn-h", RoomId: roomId}))

	require.NoError(t, svc.CheckConnectionHealth(ctx, &CheckConnectionHealthParams{
		ConnectionId: "conn-h",
		RoomId:       roomId,
	}))

	resp := sender.last("conn-h", "connection-health-response")
	require.NotNil(t, resp)
	payload := resp.Payload.(ConnectionHealthPayload)
	assert.True(t, payload.Connected)
	assert.NotZero(t, payload.LastHeartbeatAt)

	status := sender.last("conn-h", "room-health-status")
	require.NotNil(t, status, "a room-scoped check includes the room summary")
	statusPayload := status.Payload.(RoomHealthStatusPayload)
	assert.Equal(t, 1, statusPayload.ParticipantCount)
	assert.Equal(t, 1, statusPayload.ActiveCount)
	assert.True(t, statusPayload.HostConnected)

	// unknown connections still get an answer
	sender.connect("conn-ghost")
	require.NoError(t, svc.CheckConnectionHealth(ctx, &CheckConnectionHealthParams{ConnectionId: "conn-ghost"}))
	ghost := sender.last("conn-ghost", "connection-health-response")
	require.NotNil(t, ghost)
	assert.False(t, ghost.Payload.(ConnectionHealthPayload).Connected)
}

func TestDisconnectWithoutRoomIsQuiet(t *testing.T) {
	svc, _, scheduler := newTestService(t, testConfig())
	ctx := context.Background()

	svc.RegisterConnection(ctx, "conn-x")
	require.NoError(t, svc.Disconnect(ctx, &DisconnectParams{ConnectionId: "conn-x"}))

	assert.False(t, scheduler.pending("conn-x"), "no removal task without membership")

	rec, err := svc.healthRepo.Get(ctx, "conn-x")
	require.NoError(t, err)
	assert.False(t, rec.Connected)
}

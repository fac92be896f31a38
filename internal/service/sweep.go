package service

import (
	"context"
	"time"

	"github.com/syncwatch/server/internal/repository/room"
)

type SweepReport struct {
	LostConnections     int `json:"lost_connections"`
	RemovedParticipants int `json:"removed_participants"`
	DeletedRooms        int `json:"deleted_rooms"`
	PurgedHealthRecords int `json:"purged_health_records"`
}

type lostCandidate struct {
	roomId       string
	connectionId string
	transportUp  bool
}

// Sweep reconciles presence state: silent disconnects, retention of
// long-inactive participants, room expiry and health record purging.
// Idempotent; runs every sweep interval and is safe to call directly.
//
// Ping probes are blocking transport I/O, so the sweep runs in three
// steps: collect candidates under the turn lock, probe unlocked, then
// re-verify and apply under the lock again.
func (s *service) Sweep(ctx context.Context) SweepReport {
	now := time.Now()

	candidates := s.collectLostCandidates(ctx, now)

	confirmedClosed := make(map[string]bool, len(candidates))
	for _, c := range candidates {
		alive := c.transportUp && s.sender.Ping(c.connectionId)
		confirmedClosed[c.connectionId] = !alive
	}

	return s.applySweep(ctx, now, candidates, confirmedClosed)
}

func (s *service) collectLostCandidates(ctx context.Context, now time.Time) []lostCandidate {
	s.mu.Lock()
	defer s.mu.Unlock()

	var candidates []lostCandidate
	for _, roomId := range s.roomRepo.GetRoomIds(ctx) {
		participants, err := s.roomRepo.GetParticipants(ctx, roomId)
		if err != nil {
			continue
		}
		for _, p := range participants {
			if p.Active && now.Sub(p.LastHeartbeatAt) > s.heartbeatTimeout {
				candidates = append(candidates, lostCandidate{
					roomId:       roomId,
					connectionId: p.ConnectionId,
					transportUp:  s.sender.IsConnected(p.ConnectionId),
				})
			}
		}
	}

	return candidates
}

func (s *service) applySweep(ctx context.Context, now time.Time, candidates []lostCandidate, confirmedClosed map[string]bool) SweepReport {
	s.mu.Lock()
	defer s.mu.Unlock()

	var report SweepReport
	touched := make(map[string]bool)

	for _, c := range candidates {
		if !confirmedClosed[c.connectionId] {
			continue
		}

		// state may have moved on while the probe ran
		p, err := s.roomRepo.GetParticipant(ctx, &room.GetParticipantParams{
			RoomId:       c.roomId,
			ConnectionId: c.connectionId,
		})
		if err != nil || !p.Active || now.Sub(p.LastHeartbeatAt) <= s.heartbeatTimeout {
			continue
		}

		if err := s.roomRepo.SetParticipantActive(ctx, &room.SetParticipantActiveParams{
			RoomId:         c.roomId,
			ConnectionId:   c.connectionId,
			Active:         false,
			DisconnectedAt: now,
		}); err != nil {
			continue
		}
		s.healthRepo.SetConnected(ctx, c.connectionId, false, now)
		report.LostConnections++
		touched[c.roomId] = true

		users, err := s.roomUsers(ctx, c.roomId)
		if err != nil {
			continue
		}

		s.broadcast(ctx, c.roomId, c.connectionId, &Message{
			Type:    "userConnectionLost",
			Payload: UserConnectionLostPayload{ConnectionId: c.connectionId, Username: p.Username, Users: users},
		})

		if p.IsHost {
			s.roomRepo.SetHost(ctx, &room.SetHostParams{RoomId: c.roomId})
			s.broadcastViewers(ctx, c.roomId, c.connectionId, &Message{
				Type:    "hostConnectionLost",
				Payload: HostConnectionLostPayload{ConnectionId: c.connectionId, Username: p.Username},
			})
			s.stopStreamingLocked(ctx, c.roomId)
			s.logger.WarnContext(ctx, "host connection lost",
				"room_id", c.roomId,
				"connection_id", c.connectionId,
			)
		}
	}

	for _, roomId := range s.roomRepo.GetRoomIds(ctx) {
		rm, err := s.roomRepo.GetRoom(ctx, roomId)
		if err != nil {
			continue
		}

		for _, p := range rm.Participants {
			if !p.Active && !p.DisconnectedAt.IsZero() && now.Sub(p.DisconnectedAt) > s.retentionWindow {
				if _, err := s.leaveLocked(ctx, roomId, p.ConnectionId); err == nil {
					report.RemovedParticipants++
					touched[roomId] = true
				}
			}
		}

		// retention may have emptied and deleted the room
		rm, err = s.roomRepo.GetRoom(ctx, roomId)
		if err != nil {
			continue
		}

		switch {
		case len(rm.Participants) == 0 && now.Sub(rm.LastActiveAt) > s.gracePeriod:
			s.deleteRoomLocked(ctx, &rm, "empty")
			report.DeletedRooms++
			delete(touched, roomId)
		case now.Sub(rm.LastActiveAt) > s.roomInactivityTimeout:
			s.deleteRoomLocked(ctx, &rm, "inactive")
			report.DeletedRooms++
			delete(touched, roomId)
		}
	}

	report.PurgedHealthRecords = len(s.healthRepo.PurgeDisconnectedBefore(ctx, now.Add(-s.retentionWindow)))

	for roomId := range touched {
		s.broadcast(ctx, roomId, "", s.roomHealthMessage(ctx, roomId, now))
	}

	if report != (SweepReport{}) {
		s.logger.InfoContext(ctx, "sweep completed",
			"lost_connections", report.LostConnections,
			"removed_participants", report.RemovedParticipants,
			"deleted_rooms", report.DeletedRooms,
			"purged_health_records", report.PurgedHealthRecords,
		)
	}

	return report
}

// StartSweeper runs the periodic sweep until ctx is cancelled.
func (s *service) StartSweeper(ctx context.Context) {
	go func() {
		ticker := time.NewTicker(s.sweepInterval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				s.Sweep(context.WithoutCancel(ctx))
			}
		}
	}()
}

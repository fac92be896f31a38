package service

import (
	"context"
	"time"
)

type Stats struct {
	RoomCount        int   `json:"roomCount"`
	LiveConnections  int   `json:"liveConnections"`
	ParticipantCount int   `json:"participantCount"`
	ChatOnlyCount    int   `json:"chatOnlyCount"`
	Uptime           int64 `json:"uptime"`
	ServerTime       int64 `json:"serverTime"`
}

// GetStats aggregates diagnostics for the health endpoint. Reads go
// straight to the repositories, which lock themselves, so a scrape
// never contends with coordination turns.
func (s *service) GetStats(ctx context.Context) Stats {
	stats := Stats{
		RoomCount:       s.roomRepo.GetRoomCount(ctx),
		LiveConnections: s.healthRepo.CountConnected(ctx),
		Uptime:          int64(time.Since(s.startedAt).Seconds()),
		ServerTime:      time.Now().UnixMilli(),
	}

	for _, roomId := range s.roomRepo.GetRoomIds(ctx) {
		participants, err := s.roomRepo.GetParticipants(ctx, roomId)
		if err != nil {
			continue
		}
		stats.ParticipantCount += len(participants)
		for _, p := range participants {
			if p.IsChatOnly {
				stats.ChatOnlyCount++
			}
		}
	}

	return stats
}

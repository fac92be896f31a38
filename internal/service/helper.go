package service

import (
	"context"
	"fmt"
	"time"

	"github.com/syncwatch/server/internal/repository/room"
)

func toUser(p room.Participant) User {
	return User{
		ConnectionId: p.ConnectionId,
		Username:     p.Username,
		IsHost:       p.IsHost,
		IsChatOnly:   p.IsChatOnly,
		Active:       p.Active,
	}
}

func (s *service) roomUsers(ctx context.Context, roomId string) ([]User, error) {
	participants, err := s.roomRepo.GetParticipants(ctx, roomId)
	if err != nil {
		return nil, fmt.Errorf("failed to get participants: %w", err)
	}

	users := make([]User, 0, len(participants))
	for _, p := range participants {
		users = append(users, toUser(p))
	}

	return users, nil
}

// occupancy counts active participants. Viewers include the host.
func (s *service) occupancy(ctx context.Context, roomId string) (viewers, chatOnly int, hostConnected bool) {
	participants, err := s.roomRepo.GetParticipants(ctx, roomId)
	if err != nil {
		return 0, 0, false
	}

	for _, p := range participants {
		if !p.Active {
			continue
		}
		if p.IsChatOnly {
			chatOnly++
			continue
		}
		viewers++
		if p.IsHost {
			hostConnected = true
		}
	}

	return viewers, chatOnly, hostConnected
}

func (s *service) roomHealthMessage(ctx context.Context, roomId string, now time.Time) *Message {
	payload := RoomHealthStatusPayload{ServerTime: now.UnixMilli()}

	participants, err := s.roomRepo.GetParticipants(ctx, roomId)
	if err == nil {
		payload.ParticipantCount = len(participants)
		for _, p := range participants {
			if p.Active {
				payload.ActiveCount++
			}
			if p.IsChatOnly {
				payload.ChatOnlyCount++
			}
			if p.IsHost && p.Active {
				payload.HostConnected = true
			}
		}
	}

	if info, err := s.roomRepo.GetStreaming(ctx, roomId); err == nil {
		payload.IsStreaming = info.IsStreaming
	}

	return &Message{Type: "room-health-status", Payload: payload}
}

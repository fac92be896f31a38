package service

import (
	"context"

	"github.com/syncwatch/server/internal/repository/room"
)

// broadcast fans a message out to every active participant of a room,
// skipping excludeId. Delivery is fire-and-forget.
func (s *service) broadcast(ctx context.Context, roomId, excludeId string, msg *Message) {
	participants, err := s.roomRepo.GetParticipants(ctx, roomId)
	if err != nil {
		s.logger.WarnContext(ctx, "broadcast to missing room", "room_id", roomId, "message_type", msg.Type)
		return
	}

	for _, p := range participants {
		if !p.Active || p.ConnectionId == excludeId {
			continue
		}
		s.sender.Send(ctx, p.ConnectionId, msg)
	}
}

// broadcastViewers is broadcast restricted to non-chat-only
// participants. Chat-only members never receive playback or peer
// signaling traffic.
func (s *service) broadcastViewers(ctx context.Context, roomId, excludeId string, msg *Message) {
	participants, err := s.roomRepo.GetParticipants(ctx, roomId)
	if err != nil {
		s.logger.WarnContext(ctx, "broadcast to missing room", "room_id", roomId, "message_type", msg.Type)
		return
	}

	for _, p := range participants {
		if !p.Active || p.IsChatOnly || p.ConnectionId == excludeId {
			continue
		}
		s.sender.Send(ctx, p.ConnectionId, msg)
	}
}

func streamingStatusMessage(info room.StreamingInfo) *Message {
	return &Message{
		Type: "streaming-status",
		Payload: StreamingStatusPayload{
			Streaming: info.IsStreaming,
			FileName:  info.FileName,
			FileType:  info.FileType,
			VideoUrl:  info.VideoURL,
		},
	}
}

func fallbackSyncMessage(state *room.SyncState, timestamp int64, fromConnectionId string) *Message {
	return &Message{
		Type: "fallback-sync-state",
		Payload: FallbackSyncPayload{
			CurrentTime:      state.CurrentTime,
			IsPlaying:        state.IsPlaying,
			Timestamp:        timestamp,
			FromConnectionId: fromConnectionId,
		},
	}
}

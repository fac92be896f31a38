package service

import (
	"context"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/syncwatch/server/internal/repository/room"
)

type SendMessageParams struct {
	ConnectionId string `json:"connection_id"`
	RoomId       string `json:"room_id"`
	Message      string `json:"message"`
	Username     string `json:"username"`
}

// SendMessage fans a chat line out to the whole room, chat-only
// participants included.
func (s *service) SendMessage(ctx context.Context, params *SendMessageParams) error {
	if err := validation.ValidateStructWithContext(ctx, params,
		validation.Field(&params.Message, MessageRule...),
	); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.roomRepo.RoomExists(ctx, params.RoomId) {
		return ErrRoomNotFound
	}

	username := params.Username
	if username == "" {
		if p, err := s.roomRepo.GetParticipant(ctx, &room.GetParticipantParams{
			RoomId:       params.RoomId,
			ConnectionId: params.ConnectionId,
		}); err == nil {
			username = p.Username
		}
	}

	s.broadcast(ctx, params.RoomId, "", &Message{
		Type: "newMessage",
		Payload: NewMessagePayload{
			User: username,
			Text: params.Message,
			Time: time.Now().UnixMilli(),
		},
	})

	return s.roomRepo.TouchRoom(ctx, params.RoomId)
}

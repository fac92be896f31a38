package service

import (
	"context"
	"fmt"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/syncwatch/server/internal/repository/room"
)

type UpdateStreamingStatusParams struct {
	ConnectionId string `json:"connection_id"`
	RoomId       string `json:"room_id"`
	Streaming    bool   `json:"streaming"`
	FileName     string `json:"file_name"`
	FileType     string `json:"file_type"`
	VideoUrl     string `json:"video_url"`
}

// UpdateStreamingStatus is host-gated like the playback path: a
// non-host update gets the current status back and nothing changes.
func (s *service) UpdateStreamingStatus(ctx context.Context, params *UpdateStreamingStatusParams) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.roomRepo.RoomExists(ctx, params.RoomId) {
		return ErrRoomNotFound
	}

	hostId, err := s.roomRepo.GetHost(ctx, params.RoomId)
	if err != nil {
		return fmt.Errorf("failed to get host: %w", err)
	}
	if hostId != params.ConnectionId {
		if info, err := s.roomRepo.GetStreaming(ctx, params.RoomId); err == nil {
			s.sender.Send(ctx, params.ConnectionId, streamingStatusMessage(info))
		}
		s.logger.InfoContext(ctx, "rejected streaming update from non-host",
			"room_id", params.RoomId,
			"connection_id", params.ConnectionId,
		)
		return nil
	}

	prev, err := s.roomRepo.GetStreaming(ctx, params.RoomId)
	if err != nil {
		return fmt.Errorf("failed to get streaming info: %w", err)
	}

	info := room.StreamingInfo{
		IsStreaming: params.Streaming,
		FileName:    params.FileName,
		FileType:    params.FileType,
		VideoURL:    params.VideoUrl,
	}
	if info.VideoURL == "" {
		info.VideoURL = prev.VideoURL
	}

	if err := s.roomRepo.SetStreaming(ctx, &room.SetStreamingParams{RoomId: params.RoomId, Info: info}); err != nil {
		return fmt.Errorf("failed to set streaming info: %w", err)
	}

	s.broadcastViewers(ctx, params.RoomId, params.ConnectionId, streamingStatusMessage(info))

	if err := s.roomRepo.TouchRoom(ctx, params.RoomId); err != nil {
		return fmt.Errorf("failed to touch room: %w", err)
	}

	s.logger.InfoContext(ctx, "streaming status updated",
		"room_id", params.RoomId,
		"streaming", params.Streaming,
		"file_name", params.FileName,
	)

	return nil
}

type AnnounceStreamingStartParams struct {
	ConnectionId string `json:"connection_id"`
	RoomId       string `json:"room_id"`
}

// AnnounceStreamingStart forwards the pre-roll notice so viewers can
// prepare their players before the first media frames arrive.
func (s *service) AnnounceStreamingStart(ctx context.Context, params *AnnounceStreamingStartParams) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.roomRepo.RoomExists(ctx, params.RoomId) {
		return ErrRoomNotFound
	}

	s.broadcastViewers(ctx, params.RoomId, params.ConnectionId, &Message{Type: "streamingAboutToStart"})

	return s.roomRepo.TouchRoom(ctx, params.RoomId)
}

type UpdateVideoUrlParams struct {
	ConnectionId string `json:"connection_id"`
	RoomId       string `json:"room_id"`
	VideoUrl     string `json:"video_url"`
}

func (s *service) UpdateVideoUrl(ctx context.Context, params *UpdateVideoUrlParams) error {
	if err := validation.ValidateStructWithContext(ctx, params,
		validation.Field(&params.VideoUrl, VideoUrlRule...),
	); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.roomRepo.RoomExists(ctx, params.RoomId) {
		return ErrRoomNotFound
	}

	hostId, err := s.roomRepo.GetHost(ctx, params.RoomId)
	if err != nil {
		return fmt.Errorf("failed to get host: %w", err)
	}
	if hostId != params.ConnectionId {
		if info, err := s.roomRepo.GetStreaming(ctx, params.RoomId); err == nil && info.VideoURL != "" {
			s.sender.Send(ctx, params.ConnectionId, &Message{
				Type:    "videoUrlUpdate",
				Payload: VideoUrlUpdatePayload{VideoUrl: info.VideoURL},
			})
		}
		s.logger.InfoContext(ctx, "rejected video url update from non-host",
			"room_id", params.RoomId,
			"connection_id", params.ConnectionId,
		)
		return nil
	}

	info, err := s.roomRepo.GetStreaming(ctx, params.RoomId)
	if err != nil {
		return fmt.Errorf("failed to get streaming info: %w", err)
	}

	info.VideoURL = params.VideoUrl
	if err := s.roomRepo.SetStreaming(ctx, &room.SetStreamingParams{RoomId: params.RoomId, Info: info}); err != nil {
		return fmt.Errorf("failed to set streaming info: %w", err)
	}

	s.broadcastViewers(ctx, params.RoomId, params.ConnectionId, &Message{
		Type:    "videoUrlUpdate",
		Payload: VideoUrlUpdatePayload{VideoUrl: params.VideoUrl},
	})

	return s.roomRepo.TouchRoom(ctx, params.RoomId)
}

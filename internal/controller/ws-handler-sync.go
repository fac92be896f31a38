package controller

import (
	"context"
	"fmt"

	"github.com/gorilla/websocket"
	"github.com/syncwatch/server/internal/service"
)

type VideoStateInput struct {
	CurrentTime float64 `json:"currentTime"`
	IsPlaying   bool    `json:"isPlaying"`
	Timestamp   int64   `json:"timestamp"`
	Seeked      bool    `json:"seeked"`
}

type VideoStateChangeInput struct {
	RoomId     string          `json:"roomId" validate:"required"`
	VideoState VideoStateInput `json:"videoState"`
}

func (c controller) handleVideoStateChange(ctx context.Context, _ *websocket.Conn, input VideoStateChangeInput) error {
	if err := c.roomService.UpdateVideoState(ctx, &service.UpdateVideoStateParams{
		ConnectionId: c.getConnectionIdFromCtx(ctx),
		RoomId:       input.RoomId,
		CurrentTime:  input.VideoState.CurrentTime,
		IsPlaying:    input.VideoState.IsPlaying,
		Timestamp:    input.VideoState.Timestamp,
		Seeked:       input.VideoState.Seeked,
	}); err != nil {
		return fmt.Errorf("failed to update video state: %w", err)
	}

	return nil
}

type VideoSeekOperationInput struct {
	RoomId          string  `json:"roomId" validate:"required"`
	SeekTime        float64 `json:"seekTime"`
	IsPlaying       bool    `json:"isPlaying"`
	SourceTimestamp int64   `json:"sourceTimestamp"`
}

func (c controller) handleVideoSeekOperation(ctx context.Context, _ *websocket.Conn, input VideoSeekOperationInput) error {
	if err := c.roomService.ApplySeek(ctx, &service.ApplySeekParams{
		ConnectionId:    c.getConnectionIdFromCtx(ctx),
		RoomId:          input.RoomId,
		SeekTime:        input.SeekTime,
		IsPlaying:       input.IsPlaying,
		SourceTimestamp: input.SourceTimestamp,
	}); err != nil {
		return fmt.Errorf("failed to apply seek: %w", err)
	}

	return nil
}

type FallbackSyncStateInput struct {
	RoomId             string  `json:"roomId" validate:"required"`
	CurrentTime        float64 `json:"currentTime"`
	IsPlaying          bool    `json:"isPlaying"`
	Timestamp          int64   `json:"timestamp"`
	TargetConnectionId string  `json:"targetConnectionId"`
}

func (c controller) handleFallbackSyncState(ctx context.Context, _ *websocket.Conn, input FallbackSyncStateInput) error {
	if err := c.roomService.FallbackSync(ctx, &service.FallbackSyncParams{
		ConnectionId:       c.getConnectionIdFromCtx(ctx),
		RoomId:             input.RoomId,
		CurrentTime:        input.CurrentTime,
		IsPlaying:          input.IsPlaying,
		Timestamp:          input.Timestamp,
		TargetConnectionId: input.TargetConnectionId,
	}); err != nil {
		return fmt.Errorf("failed to apply fallback sync: %w", err)
	}

	return nil
}

type StreamingStatusUpdateInput struct {
	RoomId    string `json:"roomId" validate:"required"`
	Streaming bool   `json:"streaming"`
	FileName  string `json:"fileName" validate:"max=255"`
	FileType  string `json:"fileType" validate:"max=128"`
	VideoUrl  string `json:"videoUrl" validate:"max=2048"`
}

func (c controller) handleStreamingStatusUpdate(ctx context.Context, _ *websocket.Conn, input StreamingStatusUpdateInput) error {
	if err := c.roomService.UpdateStreamingStatus(ctx, &service.UpdateStreamingStatusParams{
		ConnectionId: c.getConnectionIdFromCtx(ctx),
		RoomId:       input.RoomId,
		Streaming:    input.Streaming,
		FileName:     input.FileName,
		FileType:     input.FileType,
		VideoUrl:     input.VideoUrl,
	}); err != nil {
		return fmt.Errorf("failed to update streaming status: %w", err)
	}

	return nil
}

type StreamingAboutToStartInput struct {
	RoomId string `json:"roomId" validate:"required"`
}

func (c controller) handleStreamingAboutToStart(ctx context.Context, _ *websocket.Conn, input StreamingAboutToStartInput) error {
	if err := c.roomService.AnnounceStreamingStart(ctx, &service.AnnounceStreamingStartParams{
		ConnectionId: c.getConnectionIdFromCtx(ctx),
		RoomId:       input.RoomId,
	}); err != nil {
		return fmt.Errorf("failed to announce streaming start: %w", err)
	}

	return nil
}

type VideoUrlChangeInput struct {
	RoomId   string `json:"roomId" validate:"required"`
	VideoUrl string `json:"videoUrl" validate:"required,max=2048"`
}

func (c controller) handleVideoUrlChange(ctx context.Context, _ *websocket.Conn, input VideoUrlChangeInput) error {
	if err := c.roomService.UpdateVideoUrl(ctx, &service.UpdateVideoUrlParams{
		ConnectionId: c.getConnectionIdFromCtx(ctx),
		RoomId:       input.RoomId,
		VideoUrl:     input.VideoUrl,
	}); err != nil {
		return fmt.Errorf("failed to update video url: %w", err)
	}

	return nil
}

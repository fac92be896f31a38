package service

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/skewb1k/goutils/randstr"
	"github.com/syncwatch/server/internal/repository/health"
	"github.com/syncwatch/server/internal/repository/room"
)

var (
	ErrRoomNotFound        = errors.New("room not found")
	ErrParticipantNotFound = errors.New("participant not found")
	ErrRoomFull            = errors.New("room is full")
)

const roomIdLength = 8

type iRoomRepo interface {
	// room
	CreateRoom(context.Context, *room.CreateRoomParams) error
	GetRoom(context.Context, string) (room.Room, error)
	RoomExists(context.Context, string) bool
	DeleteRoom(context.Context, string) error
	TouchRoom(context.Context, string) error
	GetRoomIds(context.Context) []string
	GetRoomCount(context.Context) int
	// participant
	SetParticipant(context.Context, *room.SetParticipantParams) error
	RemoveParticipant(context.Context, *room.RemoveParticipantParams) error
	GetParticipant(context.Context, *room.GetParticipantParams) (room.Participant, error)
	GetParticipants(context.Context, string) ([]room.Participant, error)
	SetParticipantActive(context.Context, *room.SetParticipantActiveParams) error
	SetParticipantHeartbeat(context.Context, *room.SetParticipantHeartbeatParams) error
	RekeyParticipant(context.Context, *room.RekeyParticipantParams) error
	// state
	SetHost(context.Context, *room.SetHostParams) error
	GetHost(context.Context, string) (string, error)
	SetSyncState(context.Context, *room.SetSyncStateParams) error
	GetSyncState(context.Context, string) (*room.SyncState, error)
	SetStreaming(context.Context, *room.SetStreamingParams) error
	GetStreaming(context.Context, string) (room.StreamingInfo, error)
}

type iSessionRepo interface {
	Set(ctx context.Context, connectionId, roomId string)
	GetRoomId(ctx context.Context, connectionId string) (string, error)
	Remove(ctx context.Context, connectionId string) error
	Rekey(ctx context.Context, oldConnectionId, newConnectionId string) error
	Count(ctx context.Context) int
}

type iHealthRepo interface {
	Add(ctx context.Context, connectionId string, at time.Time)
	Get(ctx context.Context, connectionId string) (health.Record, error)
	SetHeartbeat(ctx context.Context, connectionId string, at time.Time) error
	SetConnected(ctx context.Context, connectionId string, connected bool, at time.Time) error
	Remove(ctx context.Context, connectionId string) error
	PurgeDisconnectedBefore(ctx context.Context, cutoff time.Time) []string
	CountConnected(ctx context.Context) int
}

type iPeerRepo interface {
	Set(ctx context.Context, connectionId, peerId string)
	GetPeerId(ctx context.Context, connectionId string) (string, error)
	GetConnectionId(ctx context.Context, peerId string) (string, error)
	RemoveByConnectionId(ctx context.Context, connectionId string) error
}

// iMessageSender is the transport boundary. Send must never block the
// caller; delivery to dead connections is a no-op.
type iMessageSender interface {
	Send(ctx context.Context, connectionId string, msg *Message)
	IsConnected(connectionId string) bool
	Ping(connectionId string) bool
}

type iGenerator interface {
	GenerateRandomString(length int) string
}

// iScheduler holds at most one pending task per key. Scheduling an
// existing key replaces the pending task.
type iScheduler interface {
	Schedule(key string, delay time.Duration, fn func())
	Cancel(key string) bool
}

type service struct {
	roomRepo    iRoomRepo
	sessionRepo iSessionRepo
	healthRepo  iHealthRepo
	peerRepo    iPeerRepo
	sender      iMessageSender
	scheduler   iScheduler
	generator   iGenerator
	logger      *slog.Logger

	membersLimit          int
	gracePeriod           time.Duration
	sweepInterval         time.Duration
	heartbeatTimeout      time.Duration
	retentionWindow       time.Duration
	roomInactivityTimeout time.Duration
	snapshotFreshness     time.Duration
	seekThreshold         float64

	startedAt time.Time

	// mu serializes coordination turns: inbound events, deferred
	// removals and sweep mutations. Repositories carry their own locks,
	// so read-only diagnostics stay out of the turn.
	mu sync.Mutex
}

type Config struct {
	MembersLimit          int
	GracePeriod           time.Duration
	SweepInterval         time.Duration
	HeartbeatTimeout      time.Duration
	RetentionWindow       time.Duration
	RoomInactivityTimeout time.Duration
	SnapshotFreshness     time.Duration
	SeekThreshold         float64
}

func New(roomRepo iRoomRepo, sessionRepo iSessionRepo, healthRepo iHealthRepo, peerRepo iPeerRepo, sender iMessageSender, scheduler iScheduler, logger *slog.Logger, cfg *Config) *service {
	letterBytes := []byte("abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789")

	return &service{
		roomRepo:              roomRepo,
		sessionRepo:           sessionRepo,
		healthRepo:            healthRepo,
		peerRepo:              peerRepo,
		sender:                sender,
		scheduler:             scheduler,
		generator:             randstr.New(letterBytes),
		logger:                logger,
		membersLimit:          cfg.MembersLimit,
		gracePeriod:           cfg.GracePeriod,
		sweepInterval:         cfg.SweepInterval,
		heartbeatTimeout:      cfg.HeartbeatTimeout,
		retentionWindow:       cfg.RetentionWindow,
		roomInactivityTimeout: cfg.RoomInactivityTimeout,
		snapshotFreshness:     cfg.SnapshotFreshness,
		seekThreshold:         cfg.SeekThreshold,
		startedAt:             time.Now(),
	}
}

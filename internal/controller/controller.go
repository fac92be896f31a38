package controller

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/gorilla/websocket"
	"github.com/syncwatch/server/internal/service"
	"github.com/syncwatch/server/pkg/validator"
	"github.com/syncwatch/server/pkg/wsrouter"
)

type iRoomService interface {
	CreateRoom(context.Context) (service.CreateRoomResponse, error)
	JoinRoom(context.Context, *service.JoinRoomParams) (service.JoinRoomResponse, error)
	SendMessage(context.Context, *service.SendMessageParams) error
	RegisterConnection(ctx context.Context, connectionId string)
	Disconnect(context.Context, *service.DisconnectParams) error
	Heartbeat(context.Context, *service.HeartbeatParams) error
	CheckConnectionHealth(context.Context, *service.CheckConnectionHealthParams) error
	UpdateVideoState(context.Context, *service.UpdateVideoStateParams) error
	ApplySeek(context.Context, *service.ApplySeekParams) error
	FallbackSync(context.Context, *service.FallbackSyncParams) error
	UpdateStreamingStatus(context.Context, *service.UpdateStreamingStatusParams) error
	AnnounceStreamingStart(context.Context, *service.AnnounceStreamingStartParams) error
	UpdateVideoUrl(context.Context, *service.UpdateVideoUrlParams) error
	RegisterPeer(context.Context, *service.RegisterPeerParams) error
	ForwardSignal(context.Context, *service.ForwardSignalParams) error
	ForwardIceCandidate(context.Context, *service.ForwardIceCandidateParams) error
	ReportConnectionFailure(context.Context, *service.ReportConnectionFailureParams) error
	RequestReconnection(context.Context, *service.RequestReconnectionParams) error
	GetStats(context.Context) service.Stats
}

type controller struct {
	roomService iRoomService
	sender      *WsSender
	upgrader    websocket.Upgrader
	wsmux       *wsrouter.WSRouter
	validate    *validator.Validator
	logger      *slog.Logger
}

func NewController(roomService iRoomService, sender *WsSender, logger *slog.Logger) *controller {
	c := &controller{
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
		roomService: roomService,
		sender:      sender,
		validate:    validator.NewValidator(),
		logger:      logger,
	}
	c.wsmux = c.getWSRouter()

	return c
}

package app

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/syncwatch/server/internal/controller"
	healthinmemory "github.com/syncwatch/server/internal/repository/health/inmemory"
	peerinmemory "github.com/syncwatch/server/internal/repository/peer/inmemory"
	roominmemory "github.com/syncwatch/server/internal/repository/room/inmemory"
	sessioninmemory "github.com/syncwatch/server/internal/repository/session/inmemory"
	"github.com/syncwatch/server/internal/service"
	"github.com/syncwatch/server/pkg/ctxlogger"
	"github.com/syncwatch/server/pkg/delayqueue"
)

type AppConfig struct {
	Host                  string        `json:"host"`
	Port                  int           `json:"port"`
	LogLevel              string        `json:"log_level"`
	MembersLimit          int           `json:"members_limit"`
	GracePeriod           time.Duration `json:"grace_period"`
	SweepInterval         time.Duration `json:"sweep_interval"`
	HeartbeatTimeout      time.Duration `json:"heartbeat_timeout"`
	RetentionWindow       time.Duration `json:"retention_window"`
	RoomInactivityTimeout time.Duration `json:"room_inactivity_timeout"`
	SnapshotFreshness     time.Duration `json:"snapshot_freshness"`
	SeekThreshold         float64       `json:"seek_threshold"`
}

func (cfg *AppConfig) Validate() error {
	if cfg.MembersLimit < 1 {
		return fmt.Errorf("members limit must be greater than 0")
	}
	if cfg.GracePeriod <= 0 {
		return fmt.Errorf("grace period must be positive")
	}
	if cfg.SweepInterval <= 0 {
		return fmt.Errorf("sweep interval must be positive")
	}
	if cfg.HeartbeatTimeout <= 0 {
		return fmt.Errorf("heartbeat timeout must be positive")
	}
	if cfg.RetentionWindow < cfg.GracePeriod {
		return fmt.Errorf("retention window must not be shorter than the grace period")
	}
	if cfg.RoomInactivityTimeout <= 0 {
		return fmt.Errorf("room inactivity timeout must be positive")
	}
	if cfg.SnapshotFreshness <= 0 {
		return fmt.Errorf("snapshot freshness must be positive")
	}
	if cfg.SeekThreshold <= 0 {
		return fmt.Errorf("seek threshold must be positive")
	}
	return nil
}

func Run(ctx context.Context, cfg *AppConfig) error {
	logLevel := slog.LevelInfo
	if err := logLevel.UnmarshalText([]byte(strings.ToUpper(cfg.LogLevel))); err != nil {
		return fmt.Errorf("failed to parse log level: %w", err)
	}

	h := ctxlogger.ContextHandler{
		Handler: slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
			Level:     logLevel,
			AddSource: true,
		}),
	}

	logger := slog.New(&h)

	roomRepo := roominmemory.NewRepo(logger)
	sessionRepo := sessioninmemory.NewRepo(logger)
	healthRepo := healthinmemory.NewRepo(logger)
	peerRepo := peerinmemory.NewRepo(logger)

	scheduler := delayqueue.New()
	defer scheduler.Stop()

	sender := controller.NewWsSender(logger)
	roomService := service.New(roomRepo, sessionRepo, healthRepo, peerRepo, sender, scheduler, logger, &service.Config{
		MembersLimit:          cfg.MembersLimit,
		GracePeriod:           cfg.GracePeriod,
		SweepInterval:         cfg.SweepInterval,
		HeartbeatTimeout:      cfg.HeartbeatTimeout,
		RetentionWindow:       cfg.RetentionWindow,
		RoomInactivityTimeout: cfg.RoomInactivityTimeout,
		SnapshotFreshness:     cfg.SnapshotFreshness,
		SeekThreshold:         cfg.SeekThreshold,
	})
	controller := controller.NewController(roomService, sender, logger)
	server := &http.Server{Addr: fmt.Sprintf("%s:%d", cfg.Host, cfg.Port), Handler: controller.GetMux()}

	// graceful shutdown
	serverCtx, serverStopCtx := context.WithCancel(ctx)

	roomService.StartSweeper(serverCtx)

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGHUP, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)
	go func() {
		<-sig

		shutdownCtx, c := context.WithTimeout(serverCtx, 30*time.Second)
		defer c()

		go func() {
			<-shutdownCtx.Done()
			if shutdownCtx.Err() == context.DeadlineExceeded {
				log.Fatal("graceful shutdown timed out.. forcing exit.")
			}
		}()

		err := server.Shutdown(shutdownCtx)
		if err != nil {
			log.Fatal(err)
		}
		serverStopCtx()
	}()

	logger.InfoContext(serverCtx, "starting server", "address", server.Addr)
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}

	<-serverCtx.Done()

	return nil
}

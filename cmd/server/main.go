package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/syncwatch/server/internal/app"
)

type configVar[T any] struct {
	envKey       string
	flagKey      string
	defaultValue T
}

var (
	host = configVar[string]{
		envKey:       "SERVER_HOST",
		flagKey:      "host",
		defaultValue: "0.0.0.0",
	}
	port = configVar[int]{
		envKey:       "SERVER_PORT",
		flagKey:      "port",
		defaultValue: 80,
	}
	logLevel = configVar[string]{
		envKey:       "SERVER_LOG_LEVEL",
		flagKey:      "log-level",
		defaultValue: "INFO",
	}
	membersLimit = configVar[int]{
		envKey:       "SERVER_MEMBERS_LIMIT",
		flagKey:      "members-limit",
		defaultValue: 10,
	}
	gracePeriod = configVar[time.Duration]{
		envKey:       "SERVER_GRACE_PERIOD",
		flagKey:      "grace-period",
		defaultValue: 30 * time.Second,
	}
	sweepInterval = configVar[time.Duration]{
		envKey:       "SERVER_SWEEP_INTERVAL",
		flagKey:      "sweep-interval",
		defaultValue: 15 * time.Second,
	}
	heartbeatTimeout = configVar[time.Duration]{
		envKey:       "SERVER_HEARTBEAT_TIMEOUT",
		flagKey:      "heartbeat-timeout",
		defaultValue: 30 * time.Second,
	}
	retentionWindow = configVar[time.Duration]{
		envKey:       "SERVER_RETENTION_WINDOW",
		flagKey:      "retention-window",
		defaultValue: 5 * time.Minute,
	}
	roomInactivityTimeout = configVar[time.Duration]{
		envKey:       "SERVER_ROOM_INACTIVITY_TIMEOUT",
		flagKey:      "room-inactivity-timeout",
		defaultValue: 30 * time.Minute,
	}
	snapshotFreshness = configVar[time.Duration]{
		envKey:       "SERVER_SNAPSHOT_FRESHNESS",
		flagKey:      "snapshot-freshness",
		defaultValue: 2 * time.Minute,
	}
	seekThreshold = configVar[float64]{
		envKey:       "SERVER_SEEK_THRESHOLD",
		flagKey:      "seek-threshold",
		defaultValue: 0.5,
	}
)

func loadAppConfig() *app.AppConfig {
	pflag.String(host.flagKey, host.defaultValue, "Server host")
	pflag.Int(port.flagKey, port.defaultValue, "Server port")
	pflag.String(logLevel.flagKey, logLevel.defaultValue, "Logging level")
	pflag.Int(membersLimit.flagKey, membersLimit.defaultValue, "Maximum number of members in the room")
	pflag.Duration(gracePeriod.flagKey, gracePeriod.defaultValue, "Reconnection grace period for disconnected members")
	pflag.Duration(sweepInterval.flagKey, sweepInterval.defaultValue, "Interval between presence sweeps")
	pflag.Duration(heartbeatTimeout.flagKey, heartbeatTimeout.defaultValue, "Heartbeat silence after which a connection counts as dead")
	pflag.Duration(retentionWindow.flagKey, retentionWindow.defaultValue, "How long inactive members and health records are retained")
	pflag.Duration(roomInactivityTimeout.flagKey, roomInactivityTimeout.defaultValue, "Inactivity after which a room is deleted")
	pflag.Duration(snapshotFreshness.flagKey, snapshotFreshness.defaultValue, "Maximum age of a sync snapshot replayed to joiners")
	pflag.Float64(seekThreshold.flagKey, seekThreshold.defaultValue, "Playback drift in seconds that triggers propagation")
	pflag.Parse()

	viper.BindPFlags(pflag.CommandLine)

	viper.BindEnv(host.flagKey, host.envKey)
	viper.BindEnv(port.flagKey, port.envKey)
	viper.BindEnv(logLevel.flagKey, logLevel.envKey)
	viper.BindEnv(membersLimit.flagKey, membersLimit.envKey)
	viper.BindEnv(gracePeriod.flagKey, gracePeriod.envKey)
	viper.BindEnv(sweepInterval.flagKey, sweepInterval.envKey)
	viper.BindEnv(heartbeatTimeout.flagKey, heartbeatTimeout.envKey)
	viper.BindEnv(retentionWindow.flagKey, retentionWindow.envKey)
	viper.BindEnv(roomInactivityTimeout.flagKey, roomInactivityTimeout.envKey)
	viper.BindEnv(snapshotFreshness.flagKey, snapshotFreshness.envKey)
	viper.BindEnv(seekThreshold.flagKey, seekThreshold.envKey)

	viper.SetDefault(host.flagKey, host.defaultValue)
	viper.SetDefault(port.flagKey, port.defaultValue)
	viper.SetDefault(logLevel.flagKey, logLevel.defaultValue)
	viper.SetDefault(membersLimit.flagKey, membersLimit.defaultValue)
	viper.SetDefault(gracePeriod.flagKey, gracePeriod.defaultValue)
	viper.SetDefault(sweepInterval.flagKey, sweepInterval.defaultValue)
	viper.SetDefault(heartbeatTimeout.flagKey, heartbeatTimeout.defaultValue)
	viper.SetDefault(retentionWindow.flagKey, retentionWindow.defaultValue)
	viper.SetDefault(roomInactivityTimeout.flagKey, roomInactivityTimeout.defaultValue)
	viper.SetDefault(snapshotFreshness.flagKey, snapshotFreshness.defaultValue)
	viper.SetDefault(seekThreshold.flagKey, seekThreshold.defaultValue)

	config := &app.AppConfig{
		Host:                  viper.GetString(host.flagKey),
		Port:                  viper.GetInt(port.flagKey),
		LogLevel:              viper.GetString(logLevel.flagKey),
		MembersLimit:          viper.GetInt(membersLimit.flagKey),
		GracePeriod:           viper.GetDuration(gracePeriod.flagKey),
		SweepInterval:         viper.GetDuration(sweepInterval.flagKey),
		HeartbeatTimeout:      viper.GetDuration(heartbeatTimeout.flagKey),
		RetentionWindow:       viper.GetDuration(retentionWindow.flagKey),
		RoomInactivityTimeout: viper.GetDuration(roomInactivityTimeout.flagKey),
		SnapshotFreshness:     viper.GetDuration(snapshotFreshness.flagKey),
		SeekThreshold:         viper.GetFloat64(seekThreshold.flagKey),
	}

	return config
}

func main() {
	ctx := context.Background()

	appConfig := loadAppConfig()
	if err := appConfig.Validate(); err != nil {
		log.Fatal(err)
	}

	jsonConfig, _ := json.MarshalIndent(appConfig, "", "  ")
	fmt.Printf("starting app with config: %s\n", jsonConfig)

	log.Fatal(app.Run(ctx, appConfig))
}

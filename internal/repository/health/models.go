package health

import (
	"errors"
	"time"
)

var ErrNotFound = errors.New("health record not found")

// Record tracks a connection's transport health independently of any room
// membership.
type Record struct {
	ConnectionId    string    `json:"connection_id"`
	Connected       bool      `json:"connected"`
	LastHeartbeatAt time.Time `json:"last_heartbeat_at"`
	// set only while Connected is false
	DisconnectedAt time.Time `json:"disconnected_at"`
}

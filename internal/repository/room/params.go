package room

import "time"

type CreateRoomParams struct {
	RoomId string `json:"room_id"`
}

type SetParticipantParams struct {
	RoomId      string      `json:"room_id"`
	Participant Participant `json:"participant"`
}

type RemoveParticipantParams struct {
	RoomId       string `json:"room_id"`
	ConnectionId string `json:"connection_id"`
}

type GetParticipantParams struct {
	RoomId       string `json:"room_id"`
	ConnectionId string `json:"connection_id"`
}

type SetParticipantActiveParams struct {
	RoomId       string `json:"room_id"`
	ConnectionId string `json:"connection_id"`
	Active       bool   `json:"active"`
	// zero when Active is true
	DisconnectedAt time.Time `json:"disconnected_at"`
}

type SetParticipantHeartbeatParams struct {
	RoomId       string    `json:"room_id"`
	ConnectionId string    `json:"connection_id"`
	At           time.Time `json:"at"`
}

// RekeyParticipantParams re-binds a participant to a new connection id,
// preserving join order. The room's host id follows when the participant
// held it.
type RekeyParticipantParams struct {
	RoomId          string `json:"room_id"`
	OldConnectionId string `json:"old_connection_id"`
	NewConnectionId string `json:"new_connection_id"`
}

type SetHostParams struct {
	RoomId string `json:"room_id"`
	// empty clears the host
	ConnectionId string `json:"connection_id"`
}

type SetSyncStateParams struct {
	RoomId string    `json:"room_id"`
	State  SyncState `json:"state"`
}

type SetStreamingParams struct {
	RoomId string        `json:"room_id"`
	Info   StreamingInfo `json:"info"`
}

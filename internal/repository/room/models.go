package room

import "time"

type Participant struct {
	ConnectionId    string    `json:"connection_id"`
	Username        string    `json:"username"`
	IsHost          bool      `json:"is_host"`
	IsChatOnly      bool      `json:"is_chat_only"`
	Active          bool      `json:"active"`
	JoinedAt        time.Time `json:"joined_at"`
	LastHeartbeatAt time.Time `json:"last_heartbeat_at"`
	// set only while Active is false
	DisconnectedAt time.Time `json:"disconnected_at"`
}

type SyncState struct {
	CurrentTime float64   `json:"current_time"`
	IsPlaying   bool      `json:"is_playing"`
	ProducedAt  time.Time `json:"produced_at"`
	ProducerId  string    `json:"producer_id"`
	Seeked      bool      `json:"seeked"`
}

type StreamingInfo struct {
	IsStreaming bool   `json:"is_streaming"`
	FileName    string `json:"file_name"`
	FileType    string `json:"file_type"`
	VideoURL    string `json:"video_url"`
}

type Room struct {
	Id string `json:"id"`
	// ordered by join time
	Participants []Participant `json:"participants"`
	HostId       string        `json:"host_id"`
	Streaming    StreamingInfo `json:"streaming"`
	SyncState    *SyncState    `json:"sync_state"`
	CreatedAt    time.Time     `json:"created_at"`
	LastActiveAt time.Time     `json:"last_active_at"`
}

package service

import "encoding/json"

// Message is the outbound wire envelope. The payload types below form
// the closed set of frames this server emits.
type Message struct {
	Type    string `json:"type"`
	Payload any    `json:"payload,omitempty"`
}

type User struct {
	ConnectionId string `json:"connectionId"`
	Username     string `json:"username"`
	IsHost       bool   `json:"isHost"`
	IsChatOnly   bool   `json:"isChatOnly"`
	Active       bool   `json:"active"`
}

type ConnectedPayload struct {
	ConnectionId string `json:"connectionId"`
	ServerTime   int64  `json:"serverTime"`
}

type ErrorPayload struct {
	Message string `json:"message"`
}

type UserJoinedPayload struct {
	User  User   `json:"user"`
	Users []User `json:"users"`
}

type UserLeftPayload struct {
	ConnectionId string `json:"connectionId"`
	Username     string `json:"username"`
	Users        []User `json:"users"`
}

type UserDisconnectedPayload struct {
	ConnectionId string `json:"connectionId"`
	Username     string `json:"username"`
	Users        []User `json:"users"`
}

type UserConnectionLostPayload struct {
	ConnectionId string `json:"connectionId"`
	Username     string `json:"username"`
	Users        []User `json:"users"`
}

type HostConnectionLostPayload struct {
	ConnectionId string `json:"connectionId"`
	Username     string `json:"username"`
}

type StreamingStatusPayload struct {
	Streaming bool   `json:"streaming"`
	FileName  string `json:"fileName"`
	FileType  string `json:"fileType"`
	VideoUrl  string `json:"videoUrl"`
}

type VideoUrlUpdatePayload struct {
	VideoUrl string `json:"videoUrl"`
}

type VideoStateUpdatePayload struct {
	CurrentTime float64 `json:"currentTime"`
	IsPlaying   bool    `json:"isPlaying"`
	Timestamp   int64   `json:"timestamp"`
}

type VideoSeekPayload struct {
	SeekTime        float64 `json:"seekTime"`
	IsPlaying       bool    `json:"isPlaying"`
	SourceTimestamp int64   `json:"sourceTimestamp"`
	ServerTimestamp int64   `json:"serverTimestamp"`
	Latency         int64   `json:"latency"`
}

type FallbackSyncPayload struct {
	CurrentTime      float64 `json:"currentTime"`
	IsPlaying        bool    `json:"isPlaying"`
	Timestamp        int64   `json:"timestamp"`
	FromConnectionId string  `json:"fromConnectionId,omitempty"`
}

type RoomCreatedPayload struct {
	RoomId string `json:"roomId"`
}

type PeerIdPayload struct {
	PeerId       string `json:"peerId"`
	ConnectionId string `json:"connectionId"`
	IsHost       bool   `json:"isHost"`
}

type WebrtcSignalPayload struct {
	FromConnectionId string          `json:"fromConnectionId"`
	Payload          json.RawMessage `json:"payload"`
}

type WebrtcIceCandidatePayload struct {
	FromConnectionId string          `json:"fromConnectionId"`
	Candidate        json.RawMessage `json:"candidate"`
}

type WebrtcReconnectRequestedPayload struct {
	FromConnectionId string `json:"fromConnectionId"`
	FromPeerId       string `json:"fromPeerId"`
}

type WebrtcTargetUnreachablePayload struct {
	TargetPeerId string `json:"targetPeerId"`
	Reason       string `json:"reason"`
}

type ViewerReconnectionRequestPayload struct {
	ViewerConnectionId string `json:"viewerConnectionId"`
	ViewerPeerId       string `json:"viewerPeerId"`
}

type ReconnectionFailedPayload struct {
	Reason string `json:"reason"`
}

type RoomHealthStatusPayload struct {
	ParticipantCount int   `json:"participantCount"`
	ActiveCount      int   `json:"activeCount"`
	ChatOnlyCount    int   `json:"chatOnlyCount"`
	HostConnected    bool  `json:"hostConnected"`
	IsStreaming      bool  `json:"isStreaming"`
	ServerTime       int64 `json:"serverTime"`
}

type ConnectionHealthPayload struct {
	ConnectionId    string `json:"connectionId"`
	Connected       bool   `json:"connected"`
	LastHeartbeatAt int64  `json:"lastHeartbeatAt,omitempty"`
	ServerTime      int64  `json:"serverTime"`
}

type HeartbeatAckPayload struct {
	ServerTime    int64 `json:"serverTime"`
	ClientTime    int64 `json:"clientTime"`
	ViewerCount   int   `json:"viewerCount"`
	ChatOnlyCount int   `json:"chatOnlyCount"`
	HostConnected bool  `json:"hostConnected"`
}

type NewMessagePayload struct {
	User string `json:"user"`
	Text string `json:"text"`
	Time int64  `json:"time"`
}

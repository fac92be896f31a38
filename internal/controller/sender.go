package controller

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/syncwatch/server/internal/service"
)

const (
	sendBufferSize = 64
	writeWait      = 10 * time.Second
	pingWait       = 2 * time.Second
)

type wsConnection struct {
	conn *websocket.Conn
	send chan []byte
}

// WsSender owns every live websocket connection and serializes writes
// through one pump goroutine per connection. Send never blocks: a full
// buffer drops the message, a dead connection swallows it.
type WsSender struct {
	logger *slog.Logger

	mu    sync.RWMutex
	conns map[string]*wsConnection
}

func NewWsSender(logger *slog.Logger) *WsSender {
	return &WsSender{
		logger: logger,
		conns:  make(map[string]*wsConnection),
	}
}

func (s *WsSender) Register(connectionId string, conn *websocket.Conn) {
	wsConn := &wsConnection{
		conn: conn,
		send: make(chan []byte, sendBufferSize),
	}

	s.mu.Lock()
	s.conns[connectionId] = wsConn
	s.mu.Unlock()

	go s.writePump(connectionId, wsConn)
}

// Unregister detaches the connection and stops its write pump. Sends
// racing the unregister are dropped.
func (s *WsSender) Unregister(connectionId string) {
	s.mu.Lock()
	wsConn, ok := s.conns[connectionId]
	if ok {
		delete(s.conns, connectionId)
	}
	s.mu.Unlock()

	if ok {
		close(wsConn.send)
	}
}

func (s *WsSender) Send(ctx context.Context, connectionId string, msg *service.Message) {
	data, err := json.Marshal(msg)
	if err != nil {
		s.logger.ErrorContext(ctx, "failed to marshal message",
			"connection_id", connectionId,
			"message_type", msg.Type,
			"error", err,
		)
		return
	}

	// the channel send must happen under the read lock so Unregister
	// cannot close the channel mid-send
	s.mu.RLock()
	defer s.mu.RUnlock()

	wsConn, ok := s.conns[connectionId]
	if !ok {
		return
	}

	select {
	case wsConn.send <- data:
	default:
		s.logger.WarnContext(ctx, "send buffer full, dropping message",
			"connection_id", connectionId,
			"message_type", msg.Type,
		)
	}
}

func (s *WsSender) IsConnected(connectionId string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	_, ok := s.conns[connectionId]

	return ok
}

// Ping probes the transport with a control frame. WriteControl is safe
// to call concurrently with the write pump.
func (s *WsSender) Ping(connectionId string) bool {
	s.mu.RLock()
	wsConn, ok := s.conns[connectionId]
	s.mu.RUnlock()

	if !ok {
		return false
	}

	return wsConn.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(pingWait)) == nil
}

func (s *WsSender) writePump(connectionId string, wsConn *wsConnection) {
	for data := range wsConn.send {
		wsConn.conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := wsConn.conn.WriteMessage(websocket.TextMessage, data); err != nil {
			s.logger.Debug("websocket write failed",
				"connection_id", connectionId,
				"error", err,
			)
			// drain until Unregister closes the channel
			for range wsConn.send {
			}
			return
		}
	}
}

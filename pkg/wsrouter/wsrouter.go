package wsrouter

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/gorilla/websocket"
)

type message struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

var ErrUnknownMessageType = errors.New("unknown message type")

// HandlerFunc handles one decoded inbound message of type T.
type HandlerFunc[T any] func(ctx context.Context, conn *websocket.Conn, payload T) error

type Middleware func(next HandlerFunc[any]) HandlerFunc[any]

type ErrorHandlerFunc func(ctx context.Context, conn *websocket.Conn, err error)

type WSRouter struct {
	routes       map[string]HandlerFunc[json.RawMessage]
	middlewares  []Middleware
	validate     func(i any) error
	errorHandler ErrorHandlerFunc
}

func New() *WSRouter {
	return &WSRouter{routes: make(map[string]HandlerFunc[json.RawMessage])}
}

// Use appends a middleware applied to every registered handler. Must be
// called before Handle.
func (r *WSRouter) Use(mw Middleware) {
	r.middlewares = append(r.middlewares, mw)
}

// SetValidator installs a payload validator invoked after decoding and
// before the handler chain.
func (r *WSRouter) SetValidator(fn func(i any) error) {
	r.validate = fn
}

// OnError installs the handler invoked when a message handler returns an
// error or a message has an unregistered type. The read loop continues.
func (r *WSRouter) OnError(fn ErrorHandlerFunc) {
	r.errorHandler = fn
}

// Handle registers a typed handler for messageType. The raw payload is
// decoded into T before the middleware chain runs.
func Handle[T any](r *WSRouter, messageType string, handler HandlerFunc[T]) {
	middlewares := r.middlewares

	r.routes[messageType] = func(ctx context.Context, conn *websocket.Conn, payload json.RawMessage) error {
		var input T
		if len(payload) > 0 {
			if err := json.Unmarshal(payload, &input); err != nil {
				return fmt.Errorf("failed to unmarshal payload: %w", err)
			}
		}

		if r.validate != nil {
			if err := r.validate(input); err != nil {
				return err
			}
		}

		h := func(ctx context.Context, conn *websocket.Conn, _ any) error {
			return handler(ctx, conn, input)
		}
		for i := len(middlewares) - 1; i >= 0; i-- {
			h = middlewares[i](h)
		}

		return h(ctx, conn, input)
	}
}

// ServeConn reads messages from conn until the connection errors out and
// dispatches them to registered handlers. Handler errors are reported to the
// OnError hook and never terminate the loop.
func (r *WSRouter) ServeConn(ctx context.Context, conn *websocket.Conn) error {
	for {
		var msg message
		if err := conn.ReadJSON(&msg); err != nil {
			return err
		}

		msgCtx := context.WithValue(ctx, messageTypeKey, msg.Type)

		handler, ok := r.routes[msg.Type]
		if !ok {
			if r.errorHandler != nil {
				r.errorHandler(msgCtx, conn, fmt.Errorf("%w: %q", ErrUnknownMessageType, msg.Type))
			}
			continue
		}

		if err := handler(msgCtx, conn, msg.Payload); err != nil {
			if r.errorHandler != nil {
				r.errorHandler(msgCtx, conn, err)
			}
		}
	}
}

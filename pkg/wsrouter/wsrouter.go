package wsrouter

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/gorilla/websocket"
)

var (
	ErrUnknownMessageType = errors.New("unknown message type")
	ErrInvalidPayload     = errors.New("invalid payload")
)

type message struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

type HandlerFunc[T any] func(ctx context.Context, conn *websocket.Conn, input T) error

type Middleware func(next HandlerFunc[any]) HandlerFunc[any]

// ErrorHandler is called with every error a handler returns, and with
// ErrUnknownMessageType / ErrInvalidPayload for messages that never reached a
// handler. Returning a non-nil error stops ServeConn.
type ErrorHandler func(ctx context.Context, conn *websocket.Conn, err error) error

type route struct {
	decode  func(json.RawMessage) (any, error)
	handler HandlerFunc[any]
}

type WSRouter struct {
	routes       map[string]route
	middlewares  []Middleware
	errorHandler ErrorHandler
}

func New() *WSRouter {
	return &WSRouter{
		routes: make(map[string]route),
		errorHandler: func(_ context.Context, _ *websocket.Conn, _ error) error {
			return nil
		},
	}
}

func (r *WSRouter) Use(mw ...Middleware) {
	r.middlewares = append(r.middlewares, mw...)
}

func (r *WSRouter) HandleError(h ErrorHandler) {
	r.errorHandler = h
}

// Handle registers handler for messageType. The payload is decoded into T; an
// empty or null payload leaves T at its zero value.
func Handle[T any](r *WSRouter, messageType string, handler HandlerFunc[T]) {
	r.routes[messageType] = route{
		decode: func(raw json.RawMessage) (any, error) {
			var input T
			if len(raw) == 0 || string(raw) == "null" {
				return input, nil
			}
			if err := json.Unmarshal(raw, &input); err != nil {
				return nil, err
			}

			return input, nil
		},
		handler: func(ctx context.Context, conn *websocket.Conn, input any) error {
			return handler(ctx, conn, input.(T))
		},
	}
}

func (r *WSRouter) chain(h HandlerFunc[any]) HandlerFunc[any] {
	for i := len(r.middlewares) - 1; i >= 0; i-- {
		h = r.middlewares[i](h)
	}

	return h
}

// ServeConn reads messages from conn until a read fails or the error handler
// gives up. Closing conn is left to the caller.
func (r *WSRouter) ServeConn(ctx context.Context, conn *websocket.Conn) error {
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return err
		}

		if err := r.dispatch(ctx, conn, data); err != nil {
			return err
		}
	}
}

func (r *WSRouter) dispatch(ctx context.Context, conn *websocket.Conn, data []byte) error {
	var msg message
	if err := json.Unmarshal(data, &msg); err != nil {
		return r.errorHandler(ctx, conn, fmt.Errorf("%w: %w", ErrInvalidPayload, err))
	}

	ctx = context.WithValue(ctx, messageTypeKey, msg.Type)

	rt, ok := r.routes[msg.Type]
	if !ok {
		return r.errorHandler(ctx, conn, fmt.Errorf("%w: %q", ErrUnknownMessageType, msg.Type))
	}

	input, err := rt.decode(msg.Payload)
	if err != nil {
		return r.errorHandler(ctx, conn, fmt.Errorf("%w: %w", ErrInvalidPayload, err))
	}

	if err := r.chain(rt.handler)(ctx, conn, input); err != nil {
		return r.errorHandler(ctx, conn, err)
	}

	return nil
}

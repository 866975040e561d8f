package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
)

const writeTimeout = 10 * time.Second

var ErrClosed = errors.New("session closed")

type message struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

type command struct {
	Type    string `json:"type"`
	Payload any    `json:"payload,omitempty"`
}

// EventHandler receives every event read from the server.
type EventHandler func(eventType string, payload json.RawMessage)

// session is one websocket connection to the server. Writes are serialized
// because a gorilla connection supports a single concurrent writer.
type session struct {
	ws     *websocket.Conn
	logger *slog.Logger

	writeMu   sync.Mutex
	closeOnce sync.Once
	closed    atomic.Bool
}

func dial(ctx context.Context, rawURL, adminToken string, logger *slog.Logger) (*session, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse url: %w", err)
	}

	if adminToken != "" {
		q := u.Query()
		q.Set("admin-token", adminToken)
		u.RawQuery = q.Encode()
	}

	ws, _, err := websocket.DefaultDialer.DialContext(ctx, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to dial %s: %w", rawURL, err)
	}

	if logger == nil {
		logger = slog.Default()
	}

	return &session{
		ws:     ws,
		logger: logger,
	}, nil
}

func (s *session) send(msgType string, payload any) error {
	msg, err := json.Marshal(command{
		Type:    msgType,
		Payload: payload,
	})
	if err != nil {
		return fmt.Errorf("failed to marshal %s: %w", msgType, err)
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	s.ws.SetWriteDeadline(time.Now().Add(writeTimeout))
	if err := s.ws.WriteMessage(websocket.TextMessage, msg); err != nil {
		return fmt.Errorf("failed to send %s: %w", msgType, err)
	}

	return nil
}

// readLoop hands every server event to handle until the connection fails or
// ctx ends. A normal close is reported as ErrClosed.
func (s *session) readLoop(ctx context.Context, handle EventHandler) error {
	stop := context.AfterFunc(ctx, func() {
		s.Close()
	})
	defer stop()

	for {
		_, data, err := s.ws.ReadMessage()
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			if s.closed.Load() || websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				return ErrClosed
			}

			return fmt.Errorf("failed to read: %w", err)
		}

		var msg message
		if err := json.Unmarshal(data, &msg); err != nil {
			s.logger.Warn("malformed event", "error", err)
			continue
		}

		if handle != nil {
			handle(msg.Type, msg.Payload)
		}
	}
}

// Close sends a close frame and closes the connection. Safe to call twice.
func (s *session) Close() error {
	var err error
	s.closeOnce.Do(func() {
		s.closed.Store(true)

		s.writeMu.Lock()
		s.ws.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(writeTimeout))
		s.writeMu.Unlock()

		err = s.ws.Close()
	})

	return err
}

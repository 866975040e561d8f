package connection

import (
	"context"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

type Config struct {
	WriteTimeout   time.Duration
	PongTimeout    time.Duration
	PingInterval   time.Duration
	MaxMessageSize int64
	SendBuffer     int
}

func DefaultConfig() Config {
	return Config{
		WriteTimeout:   10 * time.Second,
		PongTimeout:    60 * time.Second,
		PingInterval:   25 * time.Second,
		MaxMessageSize: 4096,
		SendBuffer:     64,
	}
}

// Client is one websocket connection. Everything written to the socket goes
// through its outbound queue so that only WritePump ever writes.
type Client struct {
	Id      string
	IsAdmin bool
	AdminId string
	Conn    *websocket.Conn

	config    Config
	send      chan []byte
	done      chan struct{}
	closeOnce sync.Once
}

type NewClientParams struct {
	Id      string
	IsAdmin bool
	AdminId string
	Conn    *websocket.Conn
	Config  Config
}

func NewClient(params *NewClientParams) *Client {
	cfg := params.Config
	if cfg.SendBuffer <= 0 {
		cfg = DefaultConfig()
	}

	return &Client{
		Id:      params.Id,
		IsAdmin: params.IsAdmin,
		AdminId: params.AdminId,
		Conn:    params.Conn,
		config:  cfg,
		send:    make(chan []byte, cfg.SendBuffer),
		done:    make(chan struct{}),
	}
}

// Enqueue queues msg without blocking. It reports false when the queue is
// full or the client is closed.
func (c *Client) Enqueue(msg []byte) bool {
	select {
	case <-c.done:
		return false
	default:
	}

	select {
	case c.send <- msg:
		return true
	default:
		return false
	}
}

// Outbox exposes the outbound queue. WritePump is its only consumer when the
// client is backed by a socket.
func (c *Client) Outbox() <-chan []byte {
	return c.send
}

func (c *Client) Done() <-chan struct{} {
	return c.done
}

// Close stops the write pump and closes the socket; the read loop then fails
// and the connection handler runs its disconnect path. Safe to call twice.
func (c *Client) Close() {
	c.closeOnce.Do(func() {
		close(c.done)
		if c.Conn != nil {
			c.Conn.Close()
		}
	})
}

// PrepareRead applies the read limit and keeps the read deadline moving
// forward on every pong.
func (c *Client) PrepareRead() {
	c.Conn.SetReadLimit(c.config.MaxMessageSize)
	c.Conn.SetReadDeadline(time.Now().Add(c.config.PongTimeout))
	c.Conn.SetPongHandler(func(string) error {
		return c.Conn.SetReadDeadline(time.Now().Add(c.config.PongTimeout))
	})
}

// WritePump drains the outbound queue into the socket and pings the peer
// until the client is closed, ctx ends, or a write fails.
func (c *Client) WritePump(ctx context.Context) error {
	ticker := time.NewTicker(c.config.PingInterval)
	defer func() {
		ticker.Stop()
		c.Close()
	}()

	for {
		select {
		case <-ctx.Done():
			c.Conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down"),
				time.Now().Add(c.config.WriteTimeout))
			return ctx.Err()
		case <-c.done:
			return nil
		case msg := <-c.send:
			c.Conn.SetWriteDeadline(time.Now().Add(c.config.WriteTimeout))
			if err := c.Conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return err
			}
		case <-ticker.C:
			c.Conn.SetWriteDeadline(time.Now().Add(c.config.WriteTimeout))
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return err
			}
		}
	}
}

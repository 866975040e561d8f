package stream

import (
	"context"
	"encoding/json"
	"fmt"
	"slices"

	"github.com/sharetube/watchparty/internal/repository/connection"
)

type Output struct {
	Type    string `json:"type"`
	Payload any    `json:"payload"`
}

func (s *service) marshal(eventType string, payload any) ([]byte, error) {
	msg, err := json.Marshal(Output{
		Type:    eventType,
		Payload: payload,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal %s: %w", eventType, err)
	}

	return msg, nil
}

// deliver queues msg for client. A client whose queue is full is closed so a
// slow reader never holds back the others.
func (s *service) deliver(ctx context.Context, client *connection.Client, msg []byte) {
	select {
	case <-client.Done():
		return
	default:
	}

	if !client.Enqueue(msg) {
		s.logger.WarnContext(ctx, "closing slow consumer", "target_connection_id", client.Id)
		s.metrics.SlowConsumer()
		client.Close()
	}
}

// send must be called with mu held.
func (s *service) send(ctx context.Context, client *connection.Client, eventType string, payload any) error {
	msg, err := s.marshal(eventType, payload)
	if err != nil {
		return err
	}

	s.deliver(ctx, client, msg)
	s.metrics.EventSent(eventType)

	return nil
}

// broadcast must be called with mu held. Connections whose id is in exclude
// are skipped.
func (s *service) broadcast(ctx context.Context, eventType string, payload any, exclude ...string) error {
	msg, err := s.marshal(eventType, payload)
	if err != nil {
		return err
	}

	clients := s.connRepo.List()
	s.logger.DebugContext(ctx, "broadcasting", "event", eventType, "connections", len(clients))
	for _, client := range clients {
		if slices.Contains(exclude, client.Id) {
			continue
		}
		s.deliver(ctx, client, msg)
	}
	s.metrics.EventBroadcast(eventType)

	return nil
}

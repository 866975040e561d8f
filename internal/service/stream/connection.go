package stream

import (
	"context"
	"fmt"

	"github.com/sharetube/watchparty/internal/repository/connection"
	"github.com/sharetube/watchparty/pkg/playback"
)

type ConnectParams struct {
	Client *connection.Client
}

type ConnectResponse struct {
	Snapshot playback.Snapshot
}

// Connect registers the client and sends it the current state. Viewers bump
// the viewer count, which is broadcast to everyone.
func (s *service) Connect(ctx context.Context, params *ConnectParams) (ConnectResponse, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	client := params.Client
	if err := s.connRepo.Add(client); err != nil {
		return ConnectResponse{}, fmt.Errorf("failed to add connection: %w", err)
	}
	s.metrics.ConnectionOpened()

	if !client.IsAdmin {
		count, err := s.streamRepo.IncrViewerCount(ctx)
		if err != nil {
			return ConnectResponse{}, fmt.Errorf("failed to increment viewer count: %w", err)
		}
		s.metrics.SetViewers(count)
	}

	snapshot, err := s.snapshot(ctx)
	if err != nil {
		return ConnectResponse{}, err
	}

	if err := s.send(ctx, client, playback.EventCurrentState, snapshot); err != nil {
		return ConnectResponse{}, fmt.Errorf("failed to send current state: %w", err)
	}

	if !client.IsAdmin {
		if err := s.broadcast(ctx, playback.EventMetaUpdated, snapshot.StreamMeta); err != nil {
			return ConnectResponse{}, fmt.Errorf("failed to broadcast meta: %w", err)
		}
	}

	s.logger.InfoContext(ctx, "connected", "is_admin", client.IsAdmin)

	return ConnectResponse{
		Snapshot: snapshot,
	}, nil
}

type DisconnectParams struct {
	ConnectionId string
}

// Disconnect forgets the connection. If it held authority, authority is
// released and the remaining connections are told.
func (s *service) Disconnect(ctx context.Context, params *DisconnectParams) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	client, err := s.connRepo.Remove(params.ConnectionId)
	if err != nil {
		return fmt.Errorf("failed to remove connection: %w", err)
	}
	client.Close()
	s.metrics.ConnectionClosed()

	if s.adminConnId == client.Id {
		s.adminConnId = ""
		s.logger.InfoContext(ctx, "admin disconnected", "admin_id", client.AdminId)
		if err := s.broadcast(ctx, playback.EventAdminDisconnected, nil, client.Id); err != nil {
			return fmt.Errorf("failed to broadcast admin disconnect: %w", err)
		}
	}

	if !client.IsAdmin {
		count, err := s.streamRepo.DecrViewerCount(ctx)
		if err != nil {
			return fmt.Errorf("failed to decrement viewer count: %w", err)
		}
		s.metrics.SetViewers(count)

		meta, err := s.streamRepo.GetMeta(ctx)
		if err != nil {
			return fmt.Errorf("failed to get meta: %w", err)
		}

		if err := s.broadcast(ctx, playback.EventMetaUpdated, metaFromRepo(meta)); err != nil {
			return fmt.Errorf("failed to broadcast meta: %w", err)
		}
	}

	s.logger.InfoContext(ctx, "disconnected", "is_admin", client.IsAdmin)

	return nil
}

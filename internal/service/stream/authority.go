package stream

import (
	"context"
	"fmt"
)

const (
	dropReasonNotAdmin     = "not-admin"
	dropReasonNotAuthority = "not-authority"
)

type RegisterAdminParams struct {
	ConnectionId string
}

// RegisterAdmin hands playback authority to the connection. The previous
// holder, if any, silently loses it.
func (s *service) RegisterAdmin(ctx context.Context, params *RegisterAdminParams) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	client, err := s.connRepo.Get(params.ConnectionId)
	if err != nil {
		return fmt.Errorf("failed to get connection: %w", err)
	}

	if !client.IsAdmin {
		s.metrics.CommandDropped(dropReasonNotAdmin)
		return ErrNotAdmin
	}

	if s.adminConnId != "" && s.adminConnId != client.Id {
		s.logger.InfoContext(ctx, "admin authority displaced", "previous_connection_id", s.adminConnId)
	}
	s.adminConnId = client.Id
	s.logger.InfoContext(ctx, "admin registered", "admin_id", client.AdminId)

	return nil
}

// AdminConnectionId returns the id of the connection holding authority, or
// an empty string when nobody does.
func (s *service) AdminConnectionId() string {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.adminConnId
}

// checkAuthority must be called with mu held.
func (s *service) checkAuthority(senderId string) error {
	if s.adminConnId == "" || s.adminConnId != senderId {
		s.metrics.CommandDropped(dropReasonNotAuthority)
		return ErrPermissionDenied
	}

	return nil
}

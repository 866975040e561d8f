package controller

import (
	"context"

	"github.com/sharetube/watchparty/internal/repository/connection"
)

type contextKey int

const (
	clientCtxKey contextKey = iota
	adminIdCtxKey
)

func (c controller) getClientFromCtx(ctx context.Context) *connection.Client {
	client, ok := ctx.Value(clientCtxKey).(*connection.Client)
	if !ok {
		return nil
	}

	return client
}

func (c controller) getConnectionIdFromCtx(ctx context.Context) string {
	client := c.getClientFromCtx(ctx)
	if client == nil {
		return ""
	}

	return client.Id
}

func (c controller) getAdminIdFromCtx(ctx context.Context) string {
	adminId, ok := ctx.Value(adminIdCtxKey).(string)
	if !ok {
		return ""
	}

	return adminId
}

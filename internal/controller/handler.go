package controller

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/gorilla/websocket"
	"github.com/sharetube/watchparty/internal/repository/connection"
	"github.com/sharetube/watchparty/internal/service/stream"
	"github.com/sharetube/watchparty/pkg/ctxlogger"
	"github.com/sharetube/watchparty/pkg/rest"
)

// serveWS upgrades the request and runs the connection until its socket
// fails. An admin-token query parameter marks the connection as admin; an
// invalid one is rejected before the upgrade.
func (c controller) serveWS(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var (
		isAdmin bool
		adminId string
	)
	if token := r.URL.Query().Get("admin-token"); token != "" {
		id, err := c.authService.ParseAdminToken(token)
		if err != nil {
			c.logger.DebugContext(ctx, "invalid admin token", "error", err)
			rest.WriteJSON(w, http.StatusUnauthorized, rest.Envelope{"error": "invalid admin token"})
			return
		}
		isAdmin = true
		adminId = id
	}

	conn, err := c.upgrader.Upgrade(w, r, nil)
	if err != nil {
		c.logger.WarnContext(ctx, "failed to upgrade to websocket", "error", err)
		return
	}

	client := connection.NewClient(&connection.NewClientParams{
		Id:      c.generateTimeBasedId(),
		IsAdmin: isAdmin,
		AdminId: adminId,
		Conn:    conn,
		Config:  c.connConfig,
	})
	ctx = ctxlogger.AppendCtx(ctx, slog.String("connection_id", client.Id))
	client.PrepareRead()

	go func() {
		if err := client.WritePump(ctx); err != nil {
			c.logger.DebugContext(ctx, "write pump stopped", "error", err)
		}
	}()

	defer c.disconnect(ctx, client)

	if _, err := c.streamService.Connect(ctx, &stream.ConnectParams{
		Client: client,
	}); err != nil {
		c.logger.WarnContext(ctx, "failed to connect", "error", err)
		return
	}

	ctx = context.WithValue(ctx, clientCtxKey, client)
	if err := c.wsmux.ServeConn(ctx, conn); err != nil {
		if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
			c.logger.InfoContext(ctx, "connection closed unexpectedly", "error", err)
			return
		}
		c.logger.DebugContext(ctx, "connection closed", "error", err)
	}
}

func (c controller) disconnect(ctx context.Context, client *connection.Client) {
	client.Close()

	// The request context may already be cancelled by shutdown; the
	// disconnect must still reach the store.
	if err := c.streamService.Disconnect(context.WithoutCancel(ctx), &stream.DisconnectParams{
		ConnectionId: client.Id,
	}); err != nil {
		c.logger.WarnContext(ctx, "failed to disconnect", "error", err)
	}
}

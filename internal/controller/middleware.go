package controller

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/sharetube/watchparty/pkg/ctxlogger"
	"github.com/sharetube/watchparty/pkg/rest"
)

func (c controller) requestIdMw(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		ctx = ctxlogger.AppendCtx(ctx, slog.String("request_id", c.generateTimeBasedId()))
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (c controller) requestLoggingMw(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()

		next.ServeHTTP(ww, r)

		c.logger.InfoContext(r.Context(), "request",
			"method", r.Method,
			"path", r.URL.Path,
			"remote_addr", r.RemoteAddr,
			"status", ww.Status(),
			"duration_ms", time.Since(start).Milliseconds(),
		)
	})
}

// adminAuthMw admits requests carrying a valid admin bearer token and puts
// the admin id into the request context.
func (c controller) adminAuthMw(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token, err := c.getBearerToken(r)
		if err != nil {
			c.logger.DebugContext(r.Context(), "missing admin token", "error", err)
			rest.WriteJSON(w, http.StatusUnauthorized, rest.Envelope{"error": err.Error()})
			return
		}

		adminId, err := c.authService.ParseAdminToken(token)
		if err != nil {
			c.logger.DebugContext(r.Context(), "invalid admin token", "error", err)
			rest.WriteJSON(w, http.StatusUnauthorized, rest.Envelope{"error": "invalid admin token"})
			return
		}

		ctx := context.WithValue(r.Context(), adminIdCtxKey, adminId)
		ctx = ctxlogger.AppendCtx(ctx, slog.String("admin_id", adminId))
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

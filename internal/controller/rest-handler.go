package controller

import (
	"errors"
	"net/http"
	"time"

	"github.com/sharetube/watchparty/internal/service/auth"
	"github.com/sharetube/watchparty/internal/service/stream"
	"github.com/sharetube/watchparty/pkg/playback"
	"github.com/sharetube/watchparty/pkg/rest"
)

type issueAdminTokenResponse struct {
	Token     string     `json:"token"`
	AdminId   string     `json:"admin_id"`
	ExpiresAt *time.Time `json:"expires_at"`
}

func (c controller) issueAdminToken(w http.ResponseWriter, r *http.Request) {
	adminKey, err := c.MustHeader(r, "Admin-Key")
	if err != nil {
		c.logger.DebugContext(r.Context(), "failed to get admin key", "error", err)
		rest.WriteJSON(w, http.StatusUnauthorized, rest.Envelope{"error": err.Error()})
		return
	}

	res, err := c.authService.IssueAdminToken(&auth.IssueAdminTokenParams{
		AdminKey: adminKey,
		AdminId:  r.Header.Get(headerPrefix + "Admin-Id"),
	})
	if err != nil {
		if errors.Is(err, auth.ErrInvalidAdminKey) {
			c.logger.InfoContext(r.Context(), "rejected admin key")
			rest.WriteJSON(w, http.StatusUnauthorized, rest.Envelope{"error": err.Error()})
			return
		}

		c.logger.ErrorContext(r.Context(), "failed to issue admin token", "error", err)
		rest.WriteJSON(w, http.StatusInternalServerError, rest.Envelope{"error": "internal error"})
		return
	}

	rest.WriteJSON(w, http.StatusOK, rest.Envelope{"data": issueAdminTokenResponse{
		Token:     res.Token,
		AdminId:   res.AdminId,
		ExpiresAt: res.ExpiresAt,
	}})
}

type setVideoInput struct {
	VideoReference string `json:"video_reference" validate:"required,max=2048"`
}

type setVideoResponse struct {
	VideoReference string         `json:"video_reference"`
	Playback       playback.State `json:"playback"`
}

func (c controller) setVideo(w http.ResponseWriter, r *http.Request) {
	var req setVideoInput
	if err := rest.ReadJSON(r, &req); err != nil {
		c.logger.DebugContext(r.Context(), "failed to read json", "error", err)
		rest.WriteJSON(w, http.StatusUnprocessableEntity, rest.Envelope{"error": err.Error()})
		return
	}

	if validationErrors, ok := c.validate.Validate(req); !ok {
		c.logger.DebugContext(r.Context(), "validation failed", "errors", validationErrors)
		rest.WriteJSON(w, http.StatusBadRequest, rest.Envelope{"errors": validationErrors})
		return
	}

	res, err := c.streamService.ChangeVideo(r.Context(), &stream.ChangeVideoParams{
		VideoReference: req.VideoReference,
	})
	if err != nil {
		c.logger.ErrorContext(r.Context(), "failed to change video", "error", err)
		rest.WriteJSON(w, http.StatusInternalServerError, rest.Envelope{"error": "internal error"})
		return
	}

	rest.WriteJSON(w, http.StatusOK, rest.Envelope{"data": setVideoResponse{
		VideoReference: res.VideoReference,
		Playback:       res.Playback,
	}})
}

type updateMetaInput struct {
	Title       *string `json:"title" validate:"omitempty,max=256"`
	Description *string `json:"description" validate:"omitempty,max=4096"`
	Streamer    *string `json:"streamer" validate:"omitempty,max=64"`
}

func (c controller) updateMeta(w http.ResponseWriter, r *http.Request) {
	var req updateMetaInput
	if err := rest.ReadJSON(r, &req); err != nil {
		c.logger.DebugContext(r.Context(), "failed to read json", "error", err)
		rest.WriteJSON(w, http.StatusUnprocessableEntity, rest.Envelope{"error": err.Error()})
		return
	}

	if validationErrors, ok := c.validate.Validate(req); !ok {
		c.logger.DebugContext(r.Context(), "validation failed", "errors", validationErrors)
		rest.WriteJSON(w, http.StatusBadRequest, rest.Envelope{"errors": validationErrors})
		return
	}

	meta, err := c.streamService.UpdateMeta(r.Context(), &stream.UpdateMetaParams{
		Title:       req.Title,
		Description: req.Description,
		Streamer:    req.Streamer,
		AdminId:     c.getAdminIdFromCtx(r.Context()),
	})
	if err != nil {
		c.logger.ErrorContext(r.Context(), "failed to update meta", "error", err)
		rest.WriteJSON(w, http.StatusInternalServerError, rest.Envelope{"error": "internal error"})
		return
	}

	rest.WriteJSON(w, http.StatusOK, rest.Envelope{"data": meta})
}

func (c controller) getState(w http.ResponseWriter, r *http.Request) {
	snapshot, err := c.streamService.GetSnapshot(r.Context())
	if err != nil {
		c.logger.ErrorContext(r.Context(), "failed to get snapshot", "error", err)
		rest.WriteJSON(w, http.StatusInternalServerError, rest.Envelope{"error": "internal error"})
		return
	}

	rest.WriteJSON(w, http.StatusOK, rest.Envelope{"data": snapshot})
}

package controller

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/gorilla/websocket"
	"github.com/sharetube/watchparty/internal/service/stream"
	"github.com/sharetube/watchparty/pkg/playback"
	"github.com/sharetube/watchparty/pkg/validator"
	"github.com/sharetube/watchparty/pkg/wsrouter"
)

type Output struct {
	Type    string `json:"type"`
	Payload any    `json:"payload"`
}

type ErrorPayload struct {
	Message string `json:"message"`
}

// EmptyStruct accepts any payload, for commands that carry none.
type EmptyStruct struct{}

func (es *EmptyStruct) UnmarshalJSON([]byte) error {
	return nil
}

func (c controller) handleAdminRegister(ctx context.Context, conn *websocket.Conn, _ EmptyStruct) error {
	if err := c.streamService.RegisterAdmin(ctx, &stream.RegisterAdminParams{
		ConnectionId: c.getConnectionIdFromCtx(ctx),
	}); err != nil {
		return fmt.Errorf("failed to register admin: %w", err)
	}

	return nil
}

// unmarshalTimeInput accepts a bare number as shorthand for {"time": n}.
func unmarshalTimeInput(data []byte, dst **float64, input any) error {
	var t float64
	if err := json.Unmarshal(data, &t); err == nil {
		*dst = &t
		return nil
	}

	return json.Unmarshal(data, input)
}

type AdminPlayInput struct {
	Time *float64 `json:"time" validate:"omitempty,gte=0"`
}

func (in *AdminPlayInput) UnmarshalJSON(data []byte) error {
	type plain AdminPlayInput
	return unmarshalTimeInput(data, &in.Time, (*plain)(in))
}

func (c controller) handleAdminPlay(ctx context.Context, conn *websocket.Conn, input AdminPlayInput) error {
	if err := c.validate.Check(input); err != nil {
		return err
	}

	if _, err := c.streamService.Play(ctx, &stream.PlayParams{
		SenderId: c.getConnectionIdFromCtx(ctx),
		Time:     input.Time,
	}); err != nil {
		return fmt.Errorf("failed to play: %w", err)
	}

	return nil
}

type AdminPauseInput struct {
	Time *float64 `json:"time" validate:"omitempty,gte=0"`
}

func (in *AdminPauseInput) UnmarshalJSON(data []byte) error {
	type plain AdminPauseInput
	return unmarshalTimeInput(data, &in.Time, (*plain)(in))
}

func (c controller) handleAdminPause(ctx context.Context, conn *websocket.Conn, input AdminPauseInput) error {
	if err := c.validate.Check(input); err != nil {
		return err
	}

	if _, err := c.streamService.Pause(ctx, &stream.PauseParams{
		SenderId: c.getConnectionIdFromCtx(ctx),
		Time:     input.Time,
	}); err != nil {
		return fmt.Errorf("failed to pause: %w", err)
	}

	return nil
}

type AdminSeekInput struct {
	Time *float64 `json:"time" validate:"required,gte=0"`
}

func (in *AdminSeekInput) UnmarshalJSON(data []byte) error {
	type plain AdminSeekInput
	return unmarshalTimeInput(data, &in.Time, (*plain)(in))
}

func (c controller) handleAdminSeek(ctx context.Context, conn *websocket.Conn, input AdminSeekInput) error {
	if err := c.validate.Check(input); err != nil {
		return err
	}

	if _, err := c.streamService.Seek(ctx, &stream.SeekParams{
		SenderId: c.getConnectionIdFromCtx(ctx),
		Time:     *input.Time,
	}); err != nil {
		return fmt.Errorf("failed to seek: %w", err)
	}

	return nil
}

type AdminHeartbeatInput struct {
	Time    *float64 `json:"time" validate:"required,gte=0"`
	Playing *bool    `json:"playing" validate:"required"`
}

func (c controller) handleAdminHeartbeat(ctx context.Context, conn *websocket.Conn, input AdminHeartbeatInput) error {
	if err := c.validate.Check(input); err != nil {
		return err
	}

	if _, err := c.streamService.Heartbeat(ctx, &stream.HeartbeatParams{
		SenderId: c.getConnectionIdFromCtx(ctx),
		Time:     *input.Time,
		Playing:  *input.Playing,
	}); err != nil {
		return fmt.Errorf("failed to heartbeat: %w", err)
	}

	return nil
}

func (c controller) handleRequestMeta(ctx context.Context, conn *websocket.Conn, _ EmptyStruct) error {
	if err := c.streamService.RequestMeta(ctx, &stream.RequestMetaParams{
		ConnectionId: c.getConnectionIdFromCtx(ctx),
	}); err != nil {
		return fmt.Errorf("failed to request meta: %w", err)
	}

	return nil
}

func isTransportCommand(messageType string) bool {
	switch messageType {
	case playback.CommandAdminPlay,
		playback.CommandAdminPause,
		playback.CommandAdminSeek,
		playback.CommandAdminHeartbeat:
		return true
	}

	return false
}

// handleWSError keeps the connection open for every error. Commands without
// authority are dropped quietly, malformed ones included; other malformed
// input is answered with an error frame.
func (c controller) handleWSError(ctx context.Context, conn *websocket.Conn, err error) error {
	if errors.Is(err, stream.ErrPermissionDenied) {
		c.logger.DebugContext(ctx, "command dropped", "error", err)
		return nil
	}

	if isTransportCommand(wsrouter.GetMessageTypeFromCtx(ctx)) &&
		c.getConnectionIdFromCtx(ctx) != c.streamService.AdminConnectionId() {
		c.logger.DebugContext(ctx, "command without authority dropped", "error", err)
		return nil
	}

	var validationErrors validator.Errors
	if errors.Is(err, wsrouter.ErrUnknownMessageType) ||
		errors.Is(err, wsrouter.ErrInvalidPayload) ||
		errors.As(err, &validationErrors) {
		c.logger.InfoContext(ctx, "invalid message", "error", err)
		c.sendError(ctx, err)
		return nil
	}

	c.logger.ErrorContext(ctx, "failed to handle message", "error", err)

	return nil
}

func (c controller) sendError(ctx context.Context, err error) {
	client := c.getClientFromCtx(ctx)
	if client == nil {
		return
	}

	msg, mErr := json.Marshal(&Output{
		Type:    playback.EventError,
		Payload: ErrorPayload{Message: err.Error()},
	})
	if mErr != nil {
		c.logger.ErrorContext(ctx, "failed to marshal error", "error", mErr)
		return
	}

	if !client.Enqueue(msg) {
		c.logger.DebugContext(ctx, "error frame not queued")
	}
}

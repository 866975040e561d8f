package wsrouter

import (
	"context"
	"errors"
	"testing"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type seekInput struct {
	Time *float64 `json:"time"`
}

func TestDispatchDecodesTypedPayload(t *testing.T) {
	r := New()

	var got seekInput
	var gotType string
	Handle(r, "admin-seek", func(ctx context.Context, _ *websocket.Conn, input seekInput) error {
		got = input
		gotType = GetMessageTypeFromCtx(ctx)
		return nil
	})

	require.NoError(t, r.dispatch(context.Background(), nil, []byte(`{"type":"admin-seek","payload":{"time":0}}`)))
	require.NotNil(t, got.Time)
	assert.Equal(t, 0.0, *got.Time)
	assert.Equal(t, "admin-seek", gotType)
}

func TestDispatchMissingPayloadLeavesZeroValue(t *testing.T) {
	r := New()

	called := false
	Handle(r, "admin-play", func(_ context.Context, _ *websocket.Conn, input seekInput) error {
		called = true
		assert.Nil(t, input.Time)
		return nil
	})

	require.NoError(t, r.dispatch(context.Background(), nil, []byte(`{"type":"admin-play"}`)))
	require.NoError(t, r.dispatch(context.Background(), nil, []byte(`{"type":"admin-play","payload":null}`)))
	assert.True(t, called)
}

func TestDispatchRoutesErrors(t *testing.T) {
	r := New()
	handlerErr := errors.New("boom")
	Handle(r, "fail", func(_ context.Context, _ *websocket.Conn, _ struct{}) error {
		return handlerErr
	})
	Handle(r, "typed", func(_ context.Context, _ *websocket.Conn, _ seekInput) error {
		return nil
	})

	var errs []error
	r.HandleError(func(_ context.Context, _ *websocket.Conn, err error) error {
		errs = append(errs, err)
		return nil
	})

	ctx := context.Background()
	require.NoError(t, r.dispatch(ctx, nil, []byte(`{"type":"nope"}`)))
	require.NoError(t, r.dispatch(ctx, nil, []byte(`not json`)))
	require.NoError(t, r.dispatch(ctx, nil, []byte(`{"type":"typed","payload":{"time":"x"}}`)))
	require.NoError(t, r.dispatch(ctx, nil, []byte(`{"type":"fail"}`)))

	require.Len(t, errs, 4)
	assert.ErrorIs(t, errs[0], ErrUnknownMessageType)
	assert.ErrorIs(t, errs[1], ErrInvalidPayload)
	assert.ErrorIs(t, errs[2], ErrInvalidPayload)
	assert.ErrorIs(t, errs[3], handlerErr)
}

func TestMiddlewareOrder(t *testing.T) {
	r := New()

	var order []string
	mw := func(name string) Middleware {
		return func(next HandlerFunc[any]) HandlerFunc[any] {
			return func(ctx context.Context, conn *websocket.Conn, payload any) error {
				order = append(order, name)
				return next(ctx, conn, payload)
			}
		}
	}
	r.Use(mw("first"), mw("second"))
	Handle(r, "ping", func(_ context.Context, _ *websocket.Conn, _ struct{}) error {
		order = append(order, "handler")
		return nil
	})

	require.NoError(t, r.dispatch(context.Background(), nil, []byte(`{"type":"ping"}`)))
	assert.Equal(t, []string{"first", "second", "handler"}, order)
}

package controller

import (
	"github.com/sharetube/watchparty/pkg/playback"
	"github.com/sharetube/watchparty/pkg/wsrouter"
)

func (c controller) getWSRouter() *wsrouter.WSRouter {
	mux := wsrouter.New()
	mux.Use(c.wsRequestIdWSMw(), c.loggerWSMw())
	mux.HandleError(c.handleWSError)

	// authority
	wsrouter.Handle(mux, playback.CommandAdminRegister, c.handleAdminRegister)

	// transport
	wsrouter.Handle(mux, playback.CommandAdminPlay, c.handleAdminPlay)
	wsrouter.Handle(mux, playback.CommandAdminPause, c.handleAdminPause)
	wsrouter.Handle(mux, playback.CommandAdminSeek, c.handleAdminSeek)
	wsrouter.Handle(mux, playback.CommandAdminHeartbeat, c.handleAdminHeartbeat)

	// meta
	wsrouter.Handle(mux, playback.CommandRequestMeta, c.handleRequestMeta)

	return mux
}

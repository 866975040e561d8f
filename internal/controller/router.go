package controller

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

func (c controller) GetMux() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.Recoverer)
	r.Use(c.requestIdMw)
	r.Use(c.requestLoggingMw)
	r.Use(cors.AllowAll().Handler)

	if c.metricsHandler != nil {
		r.Handle("/metrics", c.metricsHandler)
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusOK)
			w.Write([]byte("OK"))
		})
		r.Get("/ws", c.serveWS)
		r.Get("/state", c.getState)
		r.Post("/admin/token", c.issueAdminToken)

		r.Group(func(r chi.Router) {
			r.Use(c.adminAuthMw)
			r.Put("/video", c.setVideo)
			r.Patch("/meta", c.updateMeta)
		})
	})

	return r
}

package httpapi

import (
	stdhttp "net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"regen/internal/http/handlers"
	"regen/internal/infra"
	"regen/internal/middleware"
)

func NewRouter(app *handlers.App, logger infra.Logger) stdhttp.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID, chimiddleware.RealIP, chimiddleware.Recoverer)
	r.Use(middleware.Logger(logger))

	r.Get("/v1/healthz", app.Health)

	r.Route("/v1/generations", func(r chi.Router) {
		r.Post("/", app.GenerationsCreate)
		r.Get("/{id}", app.GenerationsGet)
		r.Post("/{id}/run", app.GenerationsRun)
	})

	return r
}

package wire

import (
	"net/http"

	"booth-waitlist/internal/adaptor"
	"booth-waitlist/internal/usecase"
	"booth-waitlist/pkg/middleware"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
)

type App struct {
	Router *chi.Mux
}

// Wiring builds the handlers over service and mounts every route.
func Wiring(service *usecase.Service, logger *zap.Logger) *App {
	handler := adaptor.NewHandler(service, logger)

	return &App{
		Router: setupRouter(handler, service, logger),
	}
}

func setupRouter(handler *adaptor.Handler, service *usecase.Service, logger *zap.Logger) *chi.Mux {
	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(middleware.Logger(logger))
	r.Use(middleware.Recover(logger))
	r.Use(middleware.CORS())

	wireAdmin(r, handler.Admin, service, logger)
	wireWaiting(r, handler.Waiting, service, logger)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})

	return r
}

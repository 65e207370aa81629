package wire

import (
	"booth-waitlist/internal/adaptor"
	"booth-waitlist/internal/usecase"
	"booth-waitlist/pkg/middleware"
	"booth-waitlist/pkg/utils"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

func wireWaiting(r chi.Router, waitingHandler *adaptor.WaitingHandler, service *usecase.Service, log *zap.Logger) {
	r.Route("/api/waitings", func(r chi.Router) {
		r.Use(middleware.Auth(service.Tokens, log))
		r.Use(middleware.RequireRole(utils.RoleUser, log))

		r.Post("/", waitingHandler.Create)
		r.Get("/", waitingHandler.List)
		r.Get("/{id}", waitingHandler.Get)

		// confirm or cancel
		r.Post("/{id}/{action}", waitingHandler.Transition)
	})
}

package wire

import (
	"booth-waitlist/internal/adaptor"
	"booth-waitlist/internal/usecase"
	"booth-waitlist/pkg/middleware"
	"booth-waitlist/pkg/utils"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

func wireAdmin(r chi.Router, adminHandler *adaptor.AdminHandler, service *usecase.Service, log *zap.Logger) {
	r.Route("/api/admin", func(r chi.Router) {
		r.Post("/login", adminHandler.Login)

		r.Group(func(r chi.Router) {
			r.Use(middleware.Auth(service.Tokens, log))
			r.Use(middleware.RequireRole(utils.RoleAdmin, log))

			r.Put("/booth/status", adminHandler.UpdateBoothStatus)

			r.Get("/waitings", adminHandler.ListAll)
			r.Get("/waitings/summary", adminHandler.Summary)
			r.Get("/waitings/status/{group}", adminHandler.ListGroup)
			r.Post("/waitings/reconcile", adminHandler.Reconcile)

			// call, arrive or cancel
			r.Post("/waitings/{id}/{action}", adminHandler.Transition)
		})
	})
}

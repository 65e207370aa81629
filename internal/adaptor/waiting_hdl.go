package adaptor

import (
	"net/http"

	"booth-waitlist/internal/dto/request"
	"booth-waitlist/internal/usecase"
	"booth-waitlist/pkg/utils"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

type WaitingHandler struct {
	service usecase.WaitingService
	log     *zap.Logger
}

func NewWaitingHandler(service usecase.WaitingService, log *zap.Logger) *WaitingHandler {
	return &WaitingHandler{
		service: service,
		log:     log.With(zap.String("handler", "waiting")),
	}
}

// Create handles POST /api/waitings
func (h *WaitingHandler) Create(w http.ResponseWriter, r *http.Request) {
	userID, ok := utils.GetUserIDFromContext(r.Context())
	if !ok {
		utils.ResponseUnauthorized(w, "Authentication required")
		return
	}

	var req request.CreateWaitingRequest
	if !decodeBody(w, r, &req) {
		return
	}

	waiting, err := h.service.CreateWaiting(r.Context(), userID, &req)
	if err != nil {
		writeServiceError(w, h.log, err, "create waiting")
		return
	}

	utils.ResponseCreated(w, "success", waiting)
}

// List handles GET /api/waitings
func (h *WaitingHandler) List(w http.ResponseWriter, r *http.Request) {
	userID, ok := utils.GetUserIDFromContext(r.Context())
	if !ok {
		utils.ResponseUnauthorized(w, "Authentication required")
		return
	}

	waitings, err := h.service.ListUserWaitings(r.Context(), userID)
	if err != nil {
		writeServiceError(w, h.log, err, "list waitings")
		return
	}

	utils.ResponseSuccess(w, "success", waitings)
}

// Get handles GET /api/waitings/{id}
func (h *WaitingHandler) Get(w http.ResponseWriter, r *http.Request) {
	userID, ok := utils.GetUserIDFromContext(r.Context())
	if !ok {
		utils.ResponseUnauthorized(w, "Authentication required")
		return
	}

	waitingID, ok := utils.ParseUUID(chi.URLParam(r, "id"))
	if !ok {
		utils.ResponseBadRequest(w, "Invalid waiting ID", nil)
		return
	}

	waiting, err := h.service.GetUserWaiting(r.Context(), userID, waitingID)
	if err != nil {
		writeServiceError(w, h.log, err, "get waiting")
		return
	}

	utils.ResponseSuccess(w, "success", waiting)
}

// Transition handles POST /api/waitings/{id}/{action}
func (h *WaitingHandler) Transition(w http.ResponseWriter, r *http.Request) {
	userID, ok := utils.GetUserIDFromContext(r.Context())
	if !ok {
		utils.ResponseUnauthorized(w, "Authentication required")
		return
	}

	waitingID, ok := utils.ParseUUID(chi.URLParam(r, "id"))
	if !ok {
		utils.ResponseBadRequest(w, "Invalid waiting ID", nil)
		return
	}

	waiting, err := h.service.UserTransition(r.Context(), userID, waitingID, chi.URLParam(r, "action"))
	if err != nil {
		writeServiceError(w, h.log, err, "waiting transition")
		return
	}

	utils.ResponseSuccess(w, "success", waiting)
}

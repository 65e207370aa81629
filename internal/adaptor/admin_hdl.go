package adaptor

import (
	"net/http"

	"booth-waitlist/internal/data/entity"
	"booth-waitlist/internal/dto/request"
	"booth-waitlist/internal/usecase"
	"booth-waitlist/pkg/utils"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

type AdminHandler struct {
	admin   usecase.AdminService
	waiting usecase.WaitingService
	log     *zap.Logger
}

func NewAdminHandler(admin usecase.AdminService, waiting usecase.WaitingService, log *zap.Logger) *AdminHandler {
	return &AdminHandler{
		admin:   admin,
		waiting: waiting,
		log:     log.With(zap.String("handler", "admin")),
	}
}

// adminContext reads the admin identity the Auth middleware stored.
func adminContext(r *http.Request) (entity.AdminContext, bool) {
	adminID, ok := utils.GetUserIDFromContext(r.Context())
	if !ok {
		return entity.AdminContext{}, false
	}
	boothID, ok := utils.GetBoothIDFromContext(r.Context())
	if !ok {
		return entity.AdminContext{}, false
	}
	return entity.AdminContext{AdminID: adminID, BoothID: boothID}, true
}

// Login handles POST /api/admin/login
func (h *AdminHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req request.AdminLoginRequest
	if !decodeBody(w, r, &req) {
		return
	}

	resp, err := h.admin.Login(r.Context(), &req)
	if err != nil {
		writeServiceError(w, h.log, err, "admin login")
		return
	}

	utils.ResponseSuccess(w, "Login successful", resp)
}

// ListAll handles GET /api/admin/waitings
func (h *AdminHandler) ListAll(w http.ResponseWriter, r *http.Request) {
	admin, ok := adminContext(r)
	if !ok {
		utils.ResponseUnauthorized(w, "Admin authentication required")
		return
	}

	waitings, err := h.admin.ListAll(r.Context(), admin)
	if err != nil {
		writeServiceError(w, h.log, err, "list booth waitings")
		return
	}

	utils.ResponseSuccess(w, "success", waitings)
}

// ListGroup handles GET /api/admin/waitings/status/{group}
func (h *AdminHandler) ListGroup(w http.ResponseWriter, r *http.Request) {
	admin, ok := adminContext(r)
	if !ok {
		utils.ResponseUnauthorized(w, "Admin authentication required")
		return
	}

	waitings, err := h.admin.ListGroup(r.Context(), admin, chi.URLParam(r, "group"))
	if err != nil {
		writeServiceError(w, h.log, err, "list waiting group")
		return
	}

	utils.ResponseSuccess(w, "success", waitings)
}

// Summary handles GET /api/admin/waitings/summary
func (h *AdminHandler) Summary(w http.ResponseWriter, r *http.Request) {
	admin, ok := adminContext(r)
	if !ok {
		utils.ResponseUnauthorized(w, "Admin authentication required")
		return
	}

	summary, err := h.admin.Summary(r.Context(), admin)
	if err != nil {
		writeServiceError(w, h.log, err, "waiting summary")
		return
	}

	utils.ResponseSuccess(w, "success", summary)
}

// Transition handles POST /api/admin/waitings/{id}/{action}
func (h *AdminHandler) Transition(w http.ResponseWriter, r *http.Request) {
	admin, ok := adminContext(r)
	if !ok {
		utils.ResponseUnauthorized(w, "Admin authentication required")
		return
	}

	waitingID, ok := utils.ParseUUID(chi.URLParam(r, "id"))
	if !ok {
		utils.ResponseBadRequest(w, "Invalid waiting ID", nil)
		return
	}

	waiting, err := h.waiting.AdminTransition(r.Context(), admin, waitingID, chi.URLParam(r, "action"))
	if err != nil {
		writeServiceError(w, h.log, err, "admin waiting transition")
		return
	}

	utils.ResponseSuccess(w, "success", waiting)
}

// Reconcile handles POST /api/admin/waitings/reconcile
func (h *AdminHandler) Reconcile(w http.ResponseWriter, r *http.Request) {
	admin, ok := adminContext(r)
	if !ok {
		utils.ResponseUnauthorized(w, "Admin authentication required")
		return
	}

	resp, err := h.admin.Reconcile(r.Context(), admin)
	if err != nil {
		writeServiceError(w, h.log, err, "reconcile")
		return
	}

	utils.ResponseSuccess(w, "success", resp)
}

// UpdateBoothStatus handles PUT /api/admin/booth/status
func (h *AdminHandler) UpdateBoothStatus(w http.ResponseWriter, r *http.Request) {
	admin, ok := adminContext(r)
	if !ok {
		utils.ResponseUnauthorized(w, "Admin authentication required")
		return
	}

	var req request.UpdateBoothStatusRequest
	if !decodeBody(w, r, &req) {
		return
	}

	booth, err := h.admin.UpdateBoothStatus(r.Context(), admin, &req)
	if err != nil {
		writeServiceError(w, h.log, err, "update booth status")
		return
	}

	utils.ResponseSuccess(w, "success", booth)
}

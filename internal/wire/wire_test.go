package wire

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"booth-waitlist/internal/data/entity"
	"booth-waitlist/internal/data/repository"
	"booth-waitlist/internal/dto/request"
	"booth-waitlist/internal/scheduler"
	"booth-waitlist/internal/usecase"
	"booth-waitlist/pkg/clock"
	"booth-waitlist/pkg/utils"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type nopScheduler struct{}

func (nopScheduler) Schedule(context.Context, uuid.UUID, entity.WaitingStatus, time.Duration) error {
	return nil
}
func (nopScheduler) Start(context.Context, scheduler.Handler) error { return nil }
func (nopScheduler) Stop()                                          {}

type envelope struct {
	Status  bool            `json:"status"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

type testApp struct {
	router  http.Handler
	service *usecase.Service
	boothID uuid.UUID
}

func newTestApp(t *testing.T) *testApp {
	t.Helper()

	config := &utils.Config{
		JWT: utils.JWTConfig{Secret: "wire-secret", ExpiryHours: 1},
		Waiting: utils.WaitingConfig{
			ReadyToConfirmWindow: 180 * time.Second,
			ConfirmedWindow:      600 * time.Second,
			ExpiryGrace:          time.Second,
			MaxPartySize:         10,
		},
	}
	fc := clock.Fake(time.Date(2026, 10, 16, 13, 0, 0, 0, time.UTC))
	service := usecase.NewService(repository.NewMemoryRepository(zap.NewNop()), nopScheduler{}, fc, config, zap.NewNop())

	booth, _, err := service.Admin.RegisterBooth(context.Background(), &request.RegisterBoothRequest{
		Name:      "Booth",
		Location:  "Gate 2",
		AdminCode: "4321",
	})
	require.NoError(t, err)

	return &testApp{
		router:  Wiring(service, zap.NewNop()).Router,
		service: service,
		boothID: booth.ID,
	}
}

func (a *testApp) do(t *testing.T, method, path, token string, body any) (int, envelope) {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	a.router.ServeHTTP(rec, req)

	var env envelope
	if rec.Header().Get("Content-Type") == "application/json" {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	}
	return rec.Code, env
}

func (a *testApp) userToken(t *testing.T, userID uuid.UUID) string {
	t.Helper()
	token, _, err := a.service.Tokens.Generate(userID, utils.RoleUser, uuid.Nil)
	require.NoError(t, err)
	return token
}

func (a *testApp) adminToken(t *testing.T) string {
	t.Helper()
	code, env := a.do(t, http.MethodPost, "/api/admin/login", "", map[string]string{
		"booth_id":   a.boothID.String(),
		"admin_code": "4321",
	})
	require.Equal(t, http.StatusOK, code)

	var login struct {
		Token string `json:"token"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &login))
	return login.Token
}

func TestHealth(t *testing.T) {
	app := newTestApp(t)

	rec := httptest.NewRecorder()
	app.router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "OK", rec.Body.String())
	assert.NotEmpty(t, rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestWaitingLifecycleOverHTTP(t *testing.T) {
	app := newTestApp(t)
	user := app.userToken(t, uuid.New())
	admin := app.adminToken(t)

	code, env := app.do(t, http.MethodPost, "/api/waitings", user, map[string]any{
		"booth_id":   app.boothID.String(),
		"party_size": 2,
	})
	require.Equal(t, http.StatusCreated, code)
	var created struct {
		ID     string `json:"id"`
		Status string `json:"status"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &created))
	assert.Equal(t, "waiting", created.Status)

	code, _ = app.do(t, http.MethodPost, "/api/admin/waitings/"+created.ID+"/call", admin, nil)
	require.Equal(t, http.StatusOK, code)

	code, _ = app.do(t, http.MethodPost, "/api/waitings/"+created.ID+"/confirm", user, nil)
	require.Equal(t, http.StatusOK, code)

	// a second confirm is no longer legal
	code, _ = app.do(t, http.MethodPost, "/api/waitings/"+created.ID+"/confirm", user, nil)
	assert.Equal(t, http.StatusConflict, code)

	code, _ = app.do(t, http.MethodPost, "/api/admin/waitings/"+created.ID+"/arrive", admin, nil)
	require.Equal(t, http.StatusOK, code)

	code, env = app.do(t, http.MethodGet, "/api/waitings/"+created.ID, user, nil)
	require.Equal(t, http.StatusOK, code)
	var detail struct {
		Status  string            `json:"status"`
		History []json.RawMessage `json:"history"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &detail))
	assert.Equal(t, "arrived", detail.Status)
	assert.Len(t, detail.History, 4)

	code, env = app.do(t, http.MethodGet, "/api/admin/waitings/status/arrived", admin, nil)
	require.Equal(t, http.StatusOK, code)
	var arrived []json.RawMessage
	require.NoError(t, json.Unmarshal(env.Data, &arrived))
	assert.Len(t, arrived, 1)
}

func TestRouteAuthorization(t *testing.T) {
	app := newTestApp(t)
	user := app.userToken(t, uuid.New())
	admin := app.adminToken(t)

	code, _ := app.do(t, http.MethodGet, "/api/waitings", "", nil)
	assert.Equal(t, http.StatusUnauthorized, code)

	code, _ = app.do(t, http.MethodGet, "/api/admin/waitings", user, nil)
	assert.Equal(t, http.StatusForbidden, code)

	code, _ = app.do(t, http.MethodGet, "/api/waitings", admin, nil)
	assert.Equal(t, http.StatusForbidden, code)

	code, _ = app.do(t, http.MethodPost, "/api/admin/login", "", map[string]string{
		"booth_id":   app.boothID.String(),
		"admin_code": "9999",
	})
	assert.Equal(t, http.StatusUnauthorized, code)
}

func TestAdminRoutes(t *testing.T) {
	app := newTestApp(t)
	admin := app.adminToken(t)

	code, env := app.do(t, http.MethodGet, "/api/admin/waitings/summary", admin, nil)
	require.Equal(t, http.StatusOK, code)
	var summary struct {
		Total int `json:"total"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &summary))
	assert.Zero(t, summary.Total)

	code, _ = app.do(t, http.MethodPost, "/api/admin/waitings/reconcile", admin, nil)
	assert.Equal(t, http.StatusOK, code)

	code, _ = app.do(t, http.MethodGet, "/api/admin/waitings/status/unknown", admin, nil)
	assert.Equal(t, http.StatusBadRequest, code)

	code, _ = app.do(t, http.MethodPut, "/api/admin/booth/status", admin, map[string]string{"status": "finished"})
	require.Equal(t, http.StatusOK, code)

	// finished booths take no new tickets
	user := app.userToken(t, uuid.New())
	code, _ = app.do(t, http.MethodPost, "/api/waitings", user, map[string]any{
		"booth_id":   app.boothID.String(),
		"party_size": 2,
	})
	assert.Equal(t, http.StatusConflict, code)

	code, _ = app.do(t, http.MethodGet, "/api/waitings/not-a-uuid", user, nil)
	assert.Equal(t, http.StatusBadRequest, code)
}

package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/sirupsen/logrus"

	"duakasir/backend/internal/bus"
	"duakasir/backend/internal/domain"
	"duakasir/backend/internal/service"
	"duakasir/backend/internal/store/gateway"
	"duakasir/backend/internal/store/memory"
)

// newTestAPI builds a full API over an in-memory store with a real gateway,
// service and AuthManager so handler tests exercise the complete path.
func newTestAPI(t *testing.T) *API {
	t.Helper()

	log := logrus.New()
	log.SetOutput(io.Discard)

	events := bus.New(log)
	t.Cleanup(events.Close)

	local := memory.New()
	gw := gateway.New(local, local, events, log)
	svc := service.New(gw, log)
	auth := NewAuthManager("test-secret-key-at-least-32-chars!", time.Hour, gw)
	if err := auth.Bootstrap(context.Background(), "admin123"); err != nil {
		t.Fatalf("bootstrap: %v", err)
	}

	return New(svc, auth, gw, events, log)
}

func doJSON(t *testing.T, handler http.Handler, method string, path string, token string, payload any) *httptest.ResponseRecorder {
	t.Helper()

	var body io.Reader
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			t.Fatalf("marshal payload: %v", err)
		}
		body = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, body)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func loginAs(t *testing.T, handler http.Handler, username string, password string) string {
	t.Helper()
	rec := doJSON(t, handler, http.MethodPost, "/api/v1/auth/login", "", map[string]string{
		"username": username,
		"password": password,
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("login %s: expected 200, got %d (body: %s)", username, rec.Code, rec.Body.String())
	}
	var resp domain.LoginResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode login response: %v", err)
	}
	return resp.AccessToken
}

func TestHealthReportsMode(t *testing.T) {
	api := newTestAPI(t)
	rec := doJSON(t, api.Handler(), http.MethodGet, "/healthz", "", nil)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var body map[string]any
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if body["ok"] != true || body["mode"] != gateway.ModeOnline {
		t.Fatalf("unexpected health body: %v", body)
	}
}

func TestRequestsWithoutTokenRejected(t *testing.T) {
	api := newTestAPI(t)
	handler := api.Handler()

	rec := doJSON(t, handler, http.MethodGet, "/api/v1/items?section=store", "", nil)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}

	rec = doJSON(t, handler, http.MethodGet, "/api/v1/items?section=store", "not-a-token", nil)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 for garbage token, got %d", rec.Code)
	}
}

func TestCashierForbiddenFromAdminRoutes(t *testing.T) {
	api := newTestAPI(t)
	handler := api.Handler()

	admin := loginAs(t, handler, "admin", "admin123")
	rec := doJSON(t, handler, http.MethodPost, "/api/v1/users", admin, map[string]string{
		"username": "kasir-a", "password": "secret", "role": "cashier",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create cashier: expected 201, got %d (body: %s)", rec.Code, rec.Body.String())
	}

	cashier := loginAs(t, handler, "kasir-a", "secret")
	rec = doJSON(t, handler, http.MethodGet, "/api/v1/admin-logs?section=store", cashier, nil)
	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", rec.Code)
	}
	rec = doJSON(t, handler, http.MethodPost, "/api/v1/period/reset", cashier, map[string]string{"section": "store"})
	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", rec.Code)
	}
}

func TestShiftLifecycleOverHTTP(t *testing.T) {
	api := newTestAPI(t)
	handler := api.Handler()
	token := loginAs(t, handler, "admin", "admin123")

	// Seed one item.
	rec := doJSON(t, handler, http.MethodPost, "/api/v1/items", token, map[string]any{
		"name": "Rice 1kg", "sell_price": "10.00", "cost_price": "8.00",
		"current_amount": 10, "section": "store",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create item: expected 201, got %d (body: %s)", rec.Code, rec.Body.String())
	}
	var item domain.Item
	if err := json.NewDecoder(rec.Body).Decode(&item); err != nil {
		t.Fatalf("decode item: %v", err)
	}

	// Start a shift and sell.
	rec = doJSON(t, handler, http.MethodPost, "/api/v1/shifts/start", token, map[string]string{
		"section": "store", "operator": "Kasir A",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("start shift: expected 201, got %d (body: %s)", rec.Code, rec.Body.String())
	}
	rec = doJSON(t, handler, http.MethodPost, "/api/v1/sales", token, map[string]any{
		"section": "store", "is_paid": true,
		"lines": []map[string]any{{"item_id": item.ID, "quantity": 2}},
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("sale: expected 201, got %d (body: %s)", rec.Code, rec.Body.String())
	}

	// Closing 5 short without a reason returns the preview as a conflict.
	rec = doJSON(t, handler, http.MethodPost, "/api/v1/shifts/close", token, map[string]any{
		"section": "store", "final_cash": "15.00",
	})
	if rec.Code != http.StatusConflict {
		t.Fatalf("close without reason: expected 409, got %d (body: %s)", rec.Code, rec.Body.String())
	}
	var conflict struct {
		Error   string              `json:"error"`
		Preview domain.ClosePreview `json:"preview"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&conflict); err != nil {
		t.Fatalf("decode conflict: %v", err)
	}
	if len(conflict.Preview.Discrepancies) == 0 {
		t.Fatalf("expected discrepancies in preview, got %+v", conflict.Preview)
	}

	// Shift is still active.
	rec = doJSON(t, handler, http.MethodGet, "/api/v1/shifts/active?section=store", token, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("active shift: expected 200, got %d", rec.Code)
	}

	// With a reason the close commits.
	rec = doJSON(t, handler, http.MethodPost, "/api/v1/shifts/close", token, map[string]any{
		"section": "store", "final_cash": "15.00", "reason": "change shortage",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("close with reason: expected 200, got %d (body: %s)", rec.Code, rec.Body.String())
	}
	rec = doJSON(t, handler, http.MethodGet, "/api/v1/shifts/active?section=store", token, nil)
	if rec.Code != http.StatusConflict {
		t.Fatalf("expected 409 with no active shift, got %d", rec.Code)
	}
}

func TestUnknownJSONFieldRejected(t *testing.T) {
	api := newTestAPI(t)
	handler := api.Handler()
	token := loginAs(t, handler, "admin", "admin123")

	rec := doJSON(t, handler, http.MethodPost, "/api/v1/shifts/start", token, map[string]string{
		"section": "store", "operator": "A", "bogus": "field",
	})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for unknown field, got %d", rec.Code)
	}
}

func TestMethodNotAllowed(t *testing.T) {
	api := newTestAPI(t)
	handler := api.Handler()
	token := loginAs(t, handler, "admin", "admin123")

	rec := doJSON(t, handler, http.MethodDelete, "/api/v1/shifts/start", token, nil)
	if rec.Code != http.StatusMethodNotAllowed {
		t.Fatalf("expected 405, got %d", rec.Code)
	}
}

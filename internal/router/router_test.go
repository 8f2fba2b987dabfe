package router_test

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/iliyamo/studyroom-reservation/internal/booking"
	"github.com/iliyamo/studyroom-reservation/internal/clock"
	"github.com/iliyamo/studyroom-reservation/internal/config"
	"github.com/iliyamo/studyroom-reservation/internal/handler"
	"github.com/iliyamo/studyroom-reservation/internal/metrics"
	"github.com/iliyamo/studyroom-reservation/internal/repository/memory"
	"github.com/iliyamo/studyroom-reservation/internal/router"
)

const adminEmail = "admin@example.com"

type api struct {
	t *testing.T
	e *echo.Echo
}

func newAPI(t *testing.T) *api {
	t.Helper()
	loc := time.FixedZone("KST", 9*60*60)
	store := memory.New()
	engine := booking.NewEngine(store,
		booking.WithClock(clock.Fake(time.Date(2026, 2, 16, 9, 0, 0, 0, loc))),
		booking.WithLocation(loc),
	)
	t.Cleanup(engine.Flush)
	cfg := config.Config{
		Env:            "test",
		Loc:            loc,
		JWTSecret:      "router-test-secret",
		AccessTTLMin:   15,
		RefreshTTLDays: 1,
		BcryptCost:     4,
		AdminEmail:     adminEmail,
		RetentionDays:  7,
	}
	e := router.New(router.Deps{
		Cfg:          cfg,
		Auth:         handler.NewAuthHandler(cfg, store, store),
		Rooms:        handler.NewRoomHandler(engine),
		Reservations: handler.NewReservationHandler(engine, cfg.RetentionDays),
	})
	return &api{t: t, e: e}
}

func (a *api) do(method, path string, body any, token string) (int, map[string]any) {
	a.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			a.t.Fatal(err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	a.e.ServeHTTP(rec, req)
	out := map[string]any{}
	if rec.Body.Len() > 0 && rec.Header().Get(echo.HeaderContentType) != echo.MIMETextPlainCharsetUTF8 {
		if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
			a.t.Fatalf("%s %s: decode %q: %v", method, path, rec.Body.String(), err)
		}
	}
	return rec.Code, out
}

// register creates an account and returns its access token.
func (a *api) register(email string) (string, map[string]any) {
	a.t.Helper()
	code, body := a.do(http.MethodPost, "/v1/auth/register", map[string]string{"email": email, "password": "secret123"}, "")
	if code != http.StatusCreated {
		a.t.Fatalf("register %s: %d %v", email, code, body)
	}
	access := body["access"].(map[string]any)
	return access["token"].(string), body["user"].(map[string]any)
}

func (a *api) roomID(number string) uint64 {
	a.t.Helper()
	code, body := a.do(http.MethodGet, "/v1/rooms", nil, "")
	if code != http.StatusOK {
		a.t.Fatalf("rooms: %d", code)
	}
	for _, it := range body["items"].([]any) {
		r := it.(map[string]any)
		if r["room_number"] == number {
			return uint64(r["id"].(float64))
		}
	}
	a.t.Fatalf("room %s not listed", number)
	return 0
}

func bookingBody(room uint64, date string, hour int) map[string]any {
	return map[string]any{
		"room_id":    room,
		"date":       date,
		"start_hour": hour,
		"student1":   map[string]string{"name": "Hong", "class": "3-1"},
		"student2":   map[string]string{"name": "Kim", "class": "3-2"},
	}
}

func expectError(t *testing.T, code int, body map[string]any, wantCode int, wantKind string) {
	t.Helper()
	if code != wantCode || body["error"] != wantKind {
		t.Fatalf("got %d %v, want %d %s", code, body, wantCode, wantKind)
	}
	if _, ok := body["message"].(string); !ok {
		t.Fatalf("error body without message: %v", body)
	}
}

func TestHealthAndMetrics(t *testing.T) {
	a := newAPI(t)
	rec := httptest.NewRecorder()
	a.e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if rec.Code != http.StatusOK || rec.Body.String() != "ok" {
		t.Fatalf("healthz: %d %q", rec.Code, rec.Body.String())
	}
	rec = httptest.NewRecorder()
	a.e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rec.Code != http.StatusOK || !bytes.Contains(rec.Body.Bytes(), []byte("studyroom_http_requests_total")) {
		t.Fatalf("metrics: %d", rec.Code)
	}
}

func TestRoomsSeededOnFirstList(t *testing.T) {
	a := newAPI(t)
	code, body := a.do(http.MethodGet, "/v1/rooms", nil, "")
	if code != http.StatusOK {
		t.Fatalf("rooms: %d", code)
	}
	if n := len(body["items"].([]any)); n != 6 {
		t.Fatalf("rooms = %d, want 6", n)
	}
}

func TestBookingFlow(t *testing.T) {
	a := newAPI(t)
	room := a.roomID("407")

	code, body := a.do(http.MethodPost, "/v1/reservations", bookingBody(room, "2026-02-16", 10), "")
	if code != http.StatusCreated {
		t.Fatalf("anonymous booking: %d %v", code, body)
	}
	if body["end_hour"].(float64) != 11 || body["room_number"] != "407" || body["date"] != "2026-02-16" {
		t.Fatalf("unexpected reservation %v", body)
	}
	if _, ok := body["created_by"]; ok {
		t.Fatalf("anonymous booking has a creator: %v", body)
	}
	anonID := uint64(body["id"].(float64))

	code, body = a.do(http.MethodPost, "/v1/reservations", bookingBody(room, "2026-02-16", 10), "")
	expectError(t, code, body, http.StatusConflict, "SlotTaken")

	token, user := a.register("user@example.com")
	if user["role"] != "USER" {
		t.Fatalf("role = %v", user["role"])
	}
	code, body = a.do(http.MethodPost, "/v1/reservations", bookingBody(room, "2026-02-16", 11), token)
	if code != http.StatusCreated {
		t.Fatalf("user booking: %d %v", code, body)
	}
	if body["created_by"] != user["id"] {
		t.Fatalf("created_by = %v, want %v", body["created_by"], user["id"])
	}
	ownID := uint64(body["id"].(float64))

	code, body = a.do(http.MethodPost, "/v1/reservations", bookingBody(a.roomID("523"), "2026-02-16", 14), "")
	expectError(t, code, body, http.StatusConflict, "QuotaExceeded")

	code, body = a.do(http.MethodPost, "/v1/reservations", bookingBody(room, "2026-02-15", 10), "")
	expectError(t, code, body, http.StatusBadRequest, "InvalidDate")

	code, body = a.do(http.MethodGet, "/v1/reservations?date=2026-02-16", nil, "")
	if code != http.StatusOK || len(body["items"].([]any)) != 2 {
		t.Fatalf("list: %d %v", code, body)
	}

	code, body = a.do(http.MethodGet, "/v1/reservations/week?date=2026-02-18", nil, "")
	if code != http.StatusOK || body["week_start"] != "2026-02-16" || len(body["items"].([]any)) != booking.WeekDays {
		t.Fatalf("week: %d %v", code, body)
	}
	monday := body["items"].([]any)[0].(map[string]any)
	if len(monday["reservations"].([]any)) != 2 || monday["weekday"] != "Monday" {
		t.Fatalf("monday = %v", monday)
	}

	code, _ = a.do(http.MethodDelete, fmt.Sprintf("/v1/reservations/%d", ownID), nil, "")
	if code != http.StatusUnauthorized {
		t.Fatalf("delete without token: %d", code)
	}
	code, body = a.do(http.MethodDelete, fmt.Sprintf("/v1/reservations/%d", anonID), nil, token)
	expectError(t, code, body, http.StatusForbidden, "Forbidden")
	code, _ = a.do(http.MethodDelete, fmt.Sprintf("/v1/reservations/%d", ownID), nil, token)
	if code != http.StatusNoContent {
		t.Fatalf("delete own: %d", code)
	}
	code, body = a.do(http.MethodDelete, fmt.Sprintf("/v1/reservations/%d", ownID), nil, token)
	expectError(t, code, body, http.StatusNotFound, "NotFound")

	adminToken, admin := a.register(adminEmail)
	if admin["role"] != "ADMIN" {
		t.Fatalf("admin role = %v", admin["role"])
	}
	code, _ = a.do(http.MethodDelete, fmt.Sprintf("/v1/reservations/%d", anonID), nil, adminToken)
	if code != http.StatusNoContent {
		t.Fatalf("admin delete: %d", code)
	}
}

func TestBookingValidation(t *testing.T) {
	a := newAPI(t)
	room := a.roomID("408")

	missing := bookingBody(room, "2026-02-17", 10)
	missing["student2"] = map[string]string{"name": "Kim"}
	code, body := a.do(http.MethodPost, "/v1/reservations", missing, "")
	expectError(t, code, body, http.StatusBadRequest, "InvalidInput")

	code, body = a.do(http.MethodPost, "/v1/reservations", bookingBody(room, "17/02/2026", 10), "")
	expectError(t, code, body, http.StatusBadRequest, "InvalidInput")

	code, body = a.do(http.MethodPost, "/v1/reservations", bookingBody(room, "2026-02-17", 7), "")
	expectError(t, code, body, http.StatusBadRequest, "InvalidInput")

	code, body = a.do(http.MethodPost, "/v1/reservations", bookingBody(9999, "2026-02-17", 10), "")
	expectError(t, code, body, http.StatusBadRequest, "InvalidInput")

	code, body = a.do(http.MethodGet, "/v1/reservations?date=tomorrow", nil, "")
	expectError(t, code, body, http.StatusBadRequest, "InvalidInput")

	lengths := []struct {
		name, class string
		want        int
	}{
		{strings.Repeat("n", 101), "3-1", http.StatusBadRequest},
		{"Hong", strings.Repeat("c", 33), http.StatusBadRequest},
		{strings.Repeat("홍", 100), strings.Repeat("c", 32), http.StatusCreated},
	}
	for i, tt := range lengths {
		req := bookingBody(room, "2026-02-17", 12+i)
		req["student1"] = map[string]string{"name": tt.name, "class": tt.class}
		code, body = a.do(http.MethodPost, "/v1/reservations", req, "")
		if tt.want == http.StatusCreated {
			if code != http.StatusCreated {
				t.Fatalf("longest allowed name: %d %v", code, body)
			}
			continue
		}
		expectError(t, code, body, tt.want, "InvalidInput")
	}
}

func TestDeleteReservationIDs(t *testing.T) {
	a := newAPI(t)
	token, _ := a.register("user@example.com")

	tests := []struct {
		path     string
		wantCode int
		wantKind string
	}{
		{"/v1/reservations/0", http.StatusNotFound, "NotFound"},
		{"/v1/reservations/424242", http.StatusNotFound, "NotFound"},
		{"/v1/reservations/abc", http.StatusBadRequest, "InvalidInput"},
		{"/v1/reservations/-1", http.StatusBadRequest, "InvalidInput"},
	}
	for _, tt := range tests {
		code, body := a.do(http.MethodDelete, tt.path, nil, token)
		expectError(t, code, body, tt.wantCode, tt.wantKind)
	}
}

func TestCleanupRequiresAdmin(t *testing.T) {
	a := newAPI(t)
	userToken, _ := a.register("someone@example.com")
	code, _ := a.do(http.MethodPost, "/v1/reservations/cleanup", nil, userToken)
	if code != http.StatusForbidden {
		t.Fatalf("user cleanup: %d", code)
	}

	adminToken, _ := a.register(adminEmail)
	code, body := a.do(http.MethodPost, "/v1/reservations/cleanup", nil, adminToken)
	if code != http.StatusOK || body["success"] != true || body["deleted"].(float64) != 0 {
		t.Fatalf("admin cleanup: %d %v", code, body)
	}
}

func TestAuthSession(t *testing.T) {
	a := newAPI(t)
	code, body := a.do(http.MethodPost, "/v1/auth/register", map[string]string{"email": "x@example.com", "password": "secret123"}, "")
	if code != http.StatusCreated {
		t.Fatalf("register: %d %v", code, body)
	}
	refresh := body["refresh"].(map[string]any)["token"].(string)

	code, _ = a.do(http.MethodPost, "/v1/auth/register", map[string]string{"email": "X@example.com", "password": "secret123"}, "")
	if code != http.StatusConflict {
		t.Fatalf("duplicate register: %d", code)
	}
	code, _ = a.do(http.MethodPost, "/v1/auth/login", map[string]string{"email": "x@example.com", "password": "wrong-pass"}, "")
	if code != http.StatusUnauthorized {
		t.Fatalf("bad login: %d", code)
	}

	code, body = a.do(http.MethodPost, "/v1/auth/refresh", map[string]string{"refresh_token": refresh}, "")
	if code != http.StatusOK {
		t.Fatalf("refresh: %d %v", code, body)
	}
	access := body["access"].(map[string]any)["token"].(string)
	code, _ = a.do(http.MethodPost, "/v1/auth/refresh", map[string]string{"refresh_token": refresh}, "")
	if code != http.StatusUnauthorized {
		t.Fatalf("rotated refresh token still valid: %d", code)
	}

	code, body = a.do(http.MethodGet, "/v1/me", nil, access)
	if code != http.StatusOK || body["role"] != "USER" || body["user_id"].(float64) == 0 {
		t.Fatalf("me: %d %v", code, body)
	}

	code, _ = a.do(http.MethodPost, "/v1/auth/logout", nil, access)
	if code != http.StatusNoContent {
		t.Fatalf("logout: %d", code)
	}
	code, _ = a.do(http.MethodPost, "/v1/auth/logout", nil, "")
	if code != http.StatusBadRequest {
		t.Fatalf("empty logout: %d", code)
	}
}

func TestMetricsLabels(t *testing.T) {
	a := newAPI(t)
	room := a.roomID("409")
	token, _ := a.register("counted@example.com")

	counter := func(name string) func() float64 {
		return func() float64 { return testutil.ToFloat64(metrics.BookingsTotal.WithLabelValues(name)) }
	}
	created, taken := counter(metrics.OutcomeCreated), counter("SlotTaken")
	manual := func() float64 {
		return testutil.ToFloat64(metrics.ReservationsDeleted.WithLabelValues(metrics.ReasonManual))
	}
	c0, t0, m0 := created(), taken(), manual()

	code, body := a.do(http.MethodPost, "/v1/reservations", bookingBody(room, "2026-02-18", 9), token)
	if code != http.StatusCreated {
		t.Fatalf("booking: %d %v", code, body)
	}
	id := uint64(body["id"].(float64))
	code, _ = a.do(http.MethodPost, "/v1/reservations", bookingBody(room, "2026-02-18", 9), token)
	if code != http.StatusConflict {
		t.Fatalf("second booking: %d", code)
	}
	if code, _ = a.do(http.MethodDelete, fmt.Sprintf("/v1/reservations/%d", id), nil, token); code != http.StatusNoContent {
		t.Fatalf("delete: %d", code)
	}

	if d := created() - c0; d != 1 {
		t.Fatalf("created delta = %v", d)
	}
	if d := taken() - t0; d != 1 {
		t.Fatalf("SlotTaken delta = %v", d)
	}
	if d := manual() - m0; d != 1 {
		t.Fatalf("manual delta = %v", d)
	}
}

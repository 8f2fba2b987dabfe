package handler

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/studyroom-reservation/internal/booking"
	"github.com/iliyamo/studyroom-reservation/internal/model"
	"github.com/iliyamo/studyroom-reservation/internal/repository/memory"
)

// downStore fails room reads while down is set.
type downStore struct {
	*memory.Store
	down bool
}

func (s *downStore) ListRooms(ctx context.Context) ([]model.Room, error) {
	if s.down {
		return nil, errors.New("connection refused")
	}
	return s.Store.ListRooms(ctx)
}

func TestRoomListDegradesUncached(t *testing.T) {
	store := &downStore{Store: memory.New(), down: true}
	h := NewRoomHandler(booking.NewEngine(store))
	e := echo.New()
	e.GET("/v1/rooms", h.List)

	tests := []struct {
		name        string
		down        bool
		wantNoStore bool
		wantRooms   bool
	}{
		{"store down", true, true, false},
		{"store back", false, false, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store.down = tt.down
			rec := httptest.NewRecorder()
			e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/rooms", nil))

			if rec.Code != http.StatusOK {
				t.Fatalf("expected 200, got %d", rec.Code)
			}
			noStore := rec.Header().Get(echo.HeaderCacheControl) == "no-store"
			if noStore != tt.wantNoStore {
				t.Fatalf("Cache-Control = %q", rec.Header().Get(echo.HeaderCacheControl))
			}
			body := strings.TrimSpace(rec.Body.String())
			if !tt.wantRooms && body != `{"items":[]}` {
				t.Fatalf("expected empty items, got %s", body)
			}
			if tt.wantRooms && !strings.Contains(body, `"room_number":"407"`) {
				t.Fatalf("expected seeded rooms, got %s", body)
			}
		})
	}
}

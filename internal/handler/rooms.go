package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/studyroom-reservation/internal/booking"
)

// RoomHandler serves the room catalogue.
type RoomHandler struct {
	Engine *booking.Engine
}

func NewRoomHandler(engine *booking.Engine) *RoomHandler {
	if engine == nil {
		panic("nil engine passed to NewRoomHandler")
	}
	return &RoomHandler{Engine: engine}
}

// List handles GET /v1/rooms.  An unreachable store yields an empty list
// rather than an error, marked no-store so the response cache skips it.
func (h *RoomHandler) List(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()
	rooms, ok := h.Engine.ListRooms(ctx)
	if !ok {
		c.Response().Header().Set(echo.HeaderCacheControl, "no-store")
	}
	return c.JSON(http.StatusOK, echo.Map{"items": toRoomDTOs(rooms)})
}

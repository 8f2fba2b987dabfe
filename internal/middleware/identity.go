package middleware

// identity.go reads the identity that JWTAuth/OptionalJWT stored in the
// Echo context.  Handlers use UserID and IsAdmin; the rate limiter keys on
// the raw subject.

import (
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/studyroom-reservation/internal/model"
)

// UserID returns the authenticated user's id.  ok is false for anonymous
// requests or when the subject claim is not a number.
func UserID(c echo.Context) (id uint64, ok bool) {
	switch t := c.Get("user_id").(type) {
	case string:
		n, err := strconv.ParseUint(t, 10, 64)
		return n, err == nil && n > 0
	case float64:
		// tokens minted before sub became a string carry a JSON number
		return uint64(t), t > 0
	case uint64:
		return t, t > 0
	}
	return 0, false
}

// IsAdmin reports whether the request carries the ADMIN role.
func IsAdmin(c echo.Context) bool {
	role, _ := c.Get("role").(string)
	return role == model.RoleAdmin
}

// currentUserID returns the subject for rate-limit keys, or "anon".
func currentUserID(c echo.Context) string {
	if id, ok := UserID(c); ok {
		return strconv.FormatUint(id, 10)
	}
	return "anon"
}

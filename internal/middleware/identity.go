package middleware

// identity.go exposes the caller identity stored by JWTAuth to handlers and
// to the rate limiter's key builder.

import (
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/booking-service/internal/model"
)

// Requester returns the authenticated caller. ok is false when JWTAuth did
// not run or the token carried no subject.
func Requester(c echo.Context) (model.Requester, bool) {
	id, ok := c.Get(ctxUserID).(uint64)
	if !ok || id == 0 {
		return model.Requester{}, false
	}
	role, _ := c.Get(ctxRole).(string)
	email, _ := c.Get(ctxEmail).(string)
	return model.Requester{UserID: id, Email: email, Role: role}, true
}

// userID returns the caller id as a string, or "anon" for guests.
func userID(c echo.Context) string {
	if req, ok := Requester(c); ok {
		return strconv.FormatUint(req.UserID, 10)
	}
	return "anon"
}

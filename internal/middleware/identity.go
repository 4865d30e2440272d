package middleware

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/taskhub/internal/policy"
)

const actorKey = "actor"

// SetActor stores the authenticated caller on the request context.
func SetActor(c echo.Context, a policy.Actor) { c.Set(actorKey, a) }

// ActorFrom returns the caller stored by JWTAuth. ok is false on routes that
// are not behind JWTAuth.
func ActorFrom(c echo.Context) (policy.Actor, bool) {
	a, ok := c.Get(actorKey).(policy.Actor)
	return a, ok
}

// rateSubject identifies the caller for rate limiting: the user id when
// authenticated, the client ip otherwise.
func rateSubject(c echo.Context) string {
	if a, ok := ActorFrom(c); ok && a.UserID != "" {
		return "user:" + a.UserID
	}
	ip := c.RealIP()
	if ip == "" {
		ip = "unknown"
	}
	return "ip:" + ip
}

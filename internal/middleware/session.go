package middleware

import (
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/Strob0t/AgentShift/internal/logger"
)

// SessionCookie names the cookie carrying the report session ID.
const SessionCookie = "agentshift_session"

const sessionMaxAge = 30 * 24 * time.Hour

// Session issues a random session cookie when the request has none (or an
// invalid one) and stores the session ID in the context. Reports and their
// downloads are keyed by this ID.
func Session(secure bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			var id string
			if c, err := r.Cookie(SessionCookie); err == nil {
				if _, err := uuid.Parse(c.Value); err == nil {
					id = c.Value
				}
			}
			if id == "" {
				id = uuid.NewString()
				http.SetCookie(w, &http.Cookie{
					Name:     SessionCookie,
					Value:    id,
					Path:     "/",
					MaxAge:   int(sessionMaxAge / time.Second),
					HttpOnly: true,
					Secure:   secure,
					SameSite: http.SameSiteLaxMode,
				})
			}
			next.ServeHTTP(w, r.WithContext(logger.WithSessionID(r.Context(), id)))
		})
	}
}

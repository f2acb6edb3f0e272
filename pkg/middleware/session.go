package middleware

import (
	"context"
	"net/http"

	apperrors "github.com/patelpratyush/neomart-demo/pkg/errors"
	"github.com/patelpratyush/neomart-demo/pkg/httputil"
	"github.com/patelpratyush/neomart-demo/pkg/logger"
)

// SessionHeader identifies the anonymous shopper that owns a cart.
const SessionHeader = "X-Session-ID"

const maxSessionIDLen = 128

// RequireSession rejects requests without a usable X-Session-ID header and
// stores the session ID in the request context.
func RequireSession() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			sid := r.Header.Get(SessionHeader)
			if !validSessionID(sid) {
				httputil.WriteError(w, r, apperrors.MissingSession(), nil)
				return
			}

			ctx := logger.WithSessionID(r.Context(), sid)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// SessionIDFromContext returns the session ID stored by RequireSession.
func SessionIDFromContext(ctx context.Context) string {
	return logger.SessionIDFromContext(ctx)
}

// validSessionID accepts opaque IDs made of letters, digits, '-' and '_'.
func validSessionID(s string) bool {
	if s == "" || len(s) > maxSessionIDLen {
		return false
	}
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c >= '0' && c <= '9', c == '-', c == '_':
		default:
			return false
		}
	}
	return true
}

package middleware

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"
)

const callerContextKey contextKey = "caller"

// caller is a slot the auth middleware fills in once the bearer token is
// validated. The logger runs outside the auth group, so it plants the slot
// on the way in and reads it on the way out.
type caller struct {
	userID string
}

// Logger returns a request logging middleware using zerolog. Authenticated
// requests are logged with the caller's user id.
func Logger(logger zerolog.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			who := &caller{}
			r = r.WithContext(context.WithValue(r.Context(), callerContextKey, who))

			// Wrap response writer to capture status code
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

			defer func() {
				evt := logger.Info().
					Str("method", r.Method).
					Str("path", r.URL.Path).
					Int("status", ww.Status()).
					Int("bytes", ww.BytesWritten()).
					Dur("latency", time.Since(start)).
					Str("request_id", middleware.GetReqID(r.Context())).
					Str("remote_addr", r.RemoteAddr)
				if who.userID != "" {
					evt = evt.Str("user", who.userID)
				}
				evt.Msg("request completed")
			}()

			next.ServeHTTP(ww, r)
		})
	}
}

// recordCaller notes the authenticated user for the request log.
func recordCaller(ctx context.Context, userID string) {
	if who, ok := ctx.Value(callerContextKey).(*caller); ok {
		who.userID = userID
	}
}

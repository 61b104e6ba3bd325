package middleware

import (
	"net/http"

	"github.com/AnshRaj112/flowmotion-backend/internal/logger"
	"github.com/AnshRaj112/flowmotion-backend/internal/services"
	"github.com/AnshRaj112/flowmotion-backend/pkg/clientip"
	"github.com/google/uuid"
)

const RequestIDHeader = "X-Request-ID"

// RequestContext tags every request with an id and records the caller's IP
// and user agent for the audit log. A well-formed incoming X-Request-ID is kept.
func RequestContext(trustProxy bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id := r.Header.Get(RequestIDHeader)
			if _, err := uuid.Parse(id); err != nil {
				id = uuid.NewString()
			}
			w.Header().Set(RequestIDHeader, id)

			ctx := logger.ContextWithRequestID(r.Context(), id)
			ctx = services.ContextWithClientInfo(ctx, services.ClientInfo{
				IP:        clientip.RealClientIP(r, trustProxy),
				UserAgent: r.UserAgent(),
			})
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

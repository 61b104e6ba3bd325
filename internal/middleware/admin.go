package middleware

import (
	"net/http"

	"github.com/AnshRaj112/flowmotion-backend/internal/logger"
	"github.com/AnshRaj112/flowmotion-backend/internal/models"
	"github.com/AnshRaj112/flowmotion-backend/internal/services"
	"github.com/AnshRaj112/flowmotion-backend/pkg/response"
	"go.uber.org/zap"
)

// RequireRole lets the request through only when the principal holds role.
// It must run after VerifyJWT.
func RequireRole(role models.Role, log *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			u, _ := UserFromContext(r.Context())
			if err := services.Authorize(u, role); err != nil {
				response.Error(w, logger.WithContext(r.Context(), log), err)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

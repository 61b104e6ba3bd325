package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/AnshRaj112/flowmotion-backend/internal/apperror"
	"github.com/AnshRaj112/flowmotion-backend/internal/logger"
	"github.com/AnshRaj112/flowmotion-backend/internal/models"
	"github.com/AnshRaj112/flowmotion-backend/internal/services"
	"github.com/AnshRaj112/flowmotion-backend/pkg/response"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// AccessTokenCookie is the cookie consulted when no Authorization header is sent.
const AccessTokenCookie = "accessToken"

type TokenVerifier interface {
	VerifyAccessToken(token string) (*services.AccessClaims, error)
}

type PrincipalLoader interface {
	Principal(ctx context.Context, id primitive.ObjectID) (*models.User, error)
}

type userKey struct{}

// ContextWithUser attaches the authenticated principal.
func ContextWithUser(ctx context.Context, u *models.User) context.Context {
	return context.WithValue(ctx, userKey{}, u)
}

// UserFromContext returns the principal attached by VerifyJWT.
func UserFromContext(ctx context.Context) (*models.User, bool) {
	u, ok := ctx.Value(userKey{}).(*models.User)
	return u, ok && u != nil
}

// bearerToken extracts the access token. The Authorization header wins over
// the cookie when both are present.
func bearerToken(r *http.Request) string {
	if h := r.Header.Get("Authorization"); h != "" {
		if len(h) > 7 && strings.EqualFold(h[:7], "Bearer ") {
			return strings.TrimSpace(h[7:])
		}
	}
	if c, err := r.Cookie(AccessTokenCookie); err == nil {
		return strings.TrimSpace(c.Value)
	}
	return ""
}

// VerifyJWT rejects requests without a valid access token and attaches the
// token's user, without password or refresh hash, to the request context.
func VerifyJWT(tokens TokenVerifier, users PrincipalLoader, log *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			reqLog := logger.WithContext(r.Context(), log)

			token := bearerToken(r)
			if token == "" {
				response.Error(w, reqLog, apperror.New(apperror.Unauthorized, "Unauthorized request"))
				return
			}

			claims, err := tokens.VerifyAccessToken(token)
			if err != nil {
				response.Error(w, reqLog, err)
				return
			}

			id, err := primitive.ObjectIDFromHex(claims.UserID)
			if err != nil {
				response.Error(w, reqLog, apperror.New(apperror.Invalid, "Invalid access token"))
				return
			}

			u, err := users.Principal(r.Context(), id)
			if err != nil {
				response.Error(w, reqLog, err)
				return
			}

			next.ServeHTTP(w, r.WithContext(ContextWithUser(r.Context(), u)))
		})
	}
}

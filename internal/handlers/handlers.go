// Package handlers adapts the account and storefront services to HTTP.
package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/AnshRaj112/flowmotion-backend/internal/apperror"
	"github.com/AnshRaj112/flowmotion-backend/internal/config"
	"github.com/AnshRaj112/flowmotion-backend/internal/logger"
	"github.com/AnshRaj112/flowmotion-backend/internal/middleware"
	"github.com/AnshRaj112/flowmotion-backend/internal/models"
	"github.com/AnshRaj112/flowmotion-backend/pkg/response"
	"go.uber.org/zap"
)

const (
	RefreshTokenCookie = "refreshToken"
	CartSessionCookie  = "cartSession"

	maxJSONBody = 1 << 20
)

// CookieConfig controls the refresh token cookie lifetime.
type CookieConfig struct {
	MaxAge         time.Duration
	RememberMaxAge time.Duration
}

func CookieConfigFrom(cfg *config.Config) CookieConfig {
	return CookieConfig{MaxAge: cfg.RefreshCookieMaxAge, RememberMaxAge: cfg.RefreshCookieRememberAge}
}

// refreshCookie is HttpOnly and Secure with SameSite=None so the frontend
// can send it cross-site.
func (c CookieConfig) refreshCookie(token string, remember bool) *http.Cookie {
	age := c.MaxAge
	if remember {
		age = c.RememberMaxAge
	}
	return &http.Cookie{
		Name:     RefreshTokenCookie,
		Value:    token,
		Path:     "/",
		MaxAge:   int(age.Seconds()),
		Expires:  time.Now().Add(age),
		HttpOnly: true,
		Secure:   true,
		SameSite: http.SameSiteNoneMode,
	}
}

func (c CookieConfig) expiredRefreshCookie() *http.Cookie {
	return &http.Cookie{
		Name:     RefreshTokenCookie,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		Expires:  time.Unix(0, 0),
		HttpOnly: true,
		Secure:   true,
		SameSite: http.SameSiteNoneMode,
	}
}

// decodeJSON reads a JSON body into dst. An empty body leaves dst untouched
// so the input validation reports the missing fields.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst interface{}) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxJSONBody)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return nil
		}
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return apperror.New(apperror.InvalidArgument, "Request body too large")
		}
		return apperror.New(apperror.InvalidArgument, "Invalid request body")
	}
	return nil
}

// principal returns the user attached by middleware.VerifyJWT.
func principal(r *http.Request) (*models.User, error) {
	u, ok := middleware.UserFromContext(r.Context())
	if !ok {
		return nil, apperror.New(apperror.Unauthorized, "Unauthorized request")
	}
	return u, nil
}

func fail(w http.ResponseWriter, r *http.Request, log *zap.Logger, err error) {
	response.Error(w, logger.WithContext(r.Context(), log), err)
}

func NotFound(w http.ResponseWriter, r *http.Request) {
	response.Error(w, nil, apperror.New(apperror.NotFound, "Route not found"))
}

func MethodNotAllowed(w http.ResponseWriter, r *http.Request) {
	response.Error(w, nil, apperror.New(apperror.InvalidArgument, "Method not allowed").WithStatus(http.StatusMethodNotAllowed))
}

package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/AnshRaj112/flowmotion-backend/internal/models"
	"github.com/AnshRaj112/flowmotion-backend/internal/services"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

type authFixture struct {
	users  *services.MemoryUserStore
	tokens *services.TokenService
	auth   *services.AuthService
	now    time.Time
}

func newAuthFixture(t *testing.T) *authFixture {
	t.Helper()
	f := &authFixture{
		users: services.NewMemoryUserStore(),
		now:   time.Date(2026, 5, 4, 10, 0, 0, 0, time.UTC),
	}
	f.tokens = services.NewTokenService(services.TokenConfig{
		AccessSecret:       "access",
		RefreshSecret:      "refresh",
		EmailSecret:        "email",
		AccessTTL:          15 * time.Minute,
		AccessRememberTTL:  24 * time.Hour,
		RefreshTTL:         24 * time.Hour,
		RefreshRememberTTL: 180 * 24 * time.Hour,
		VerificationTTL:    services.VerificationTokenTTL,
		ResetTTL:           services.ResetTokenTTL,
	}, f.users, nil, nil)
	f.tokens.SetClock(func() time.Time { return f.now })
	f.auth = services.NewAuthService(services.AuthDeps{Users: f.users, Tokens: f.tokens})
	return f
}

func (f *authFixture) user(t *testing.T, roles ...models.Role) (*models.User, string) {
	t.Helper()
	u := &models.User{
		Email:    "alice@example.com",
		Username: "alice",
		Password: "hash",
		Role:     models.RoleSet(roles),
	}
	require.NoError(t, f.users.Create(context.Background(), u))
	token, err := f.tokens.IssueAccessToken(u, false)
	require.NoError(t, err)
	return u, token
}

// echoUser responds with the principal attached to the request.
func echoUser(w http.ResponseWriter, r *http.Request) {
	u, ok := UserFromContext(r.Context())
	if !ok {
		w.WriteHeader(http.StatusTeapot)
		return
	}
	_ = json.NewEncoder(w).Encode(map[string]string{"id": u.ID.Hex(), "password": u.Password})
}

func serve(h http.Handler, r *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, r)
	return rec
}

func TestVerifyJWT_BearerHeader(t *testing.T) {
	f := newAuthFixture(t)
	u, token := f.user(t, models.RoleUser)
	h := VerifyJWT(f.tokens, f.auth, zap.NewNop())(http.HandlerFunc(echoUser))

	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := serve(h, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, u.ID.Hex(), body["id"])
	assert.Empty(t, body["password"])
}

func TestVerifyJWT_Cookie(t *testing.T) {
	f := newAuthFixture(t)
	_, token := f.user(t, models.RoleUser)
	h := VerifyJWT(f.tokens, f.auth, zap.NewNop())(http.HandlerFunc(echoUser))

	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	req.AddCookie(&http.Cookie{Name: AccessTokenCookie, Value: token})
	assert.Equal(t, http.StatusOK, serve(h, req).Code)
}

func TestVerifyJWT_HeaderWinsOverCookie(t *testing.T) {
	f := newAuthFixture(t)
	_, token := f.user(t, models.RoleUser)
	h := VerifyJWT(f.tokens, f.auth, zap.NewNop())(http.HandlerFunc(echoUser))

	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	req.Header.Set("Authorization", "Bearer garbage")
	req.AddCookie(&http.Cookie{Name: AccessTokenCookie, Value: token})
	assert.Equal(t, http.StatusUnauthorized, serve(h, req).Code)
}

func TestVerifyJWT_Rejections(t *testing.T) {
	f := newAuthFixture(t)
	_, token := f.user(t, models.RoleUser)
	ghost, err := f.tokens.IssueAccessToken(&models.User{ID: primitive.NewObjectID()}, false)
	require.NoError(t, err)
	h := VerifyJWT(f.tokens, f.auth, zap.NewNop())(http.HandlerFunc(echoUser))

	tests := []struct {
		name    string
		header  string
		advance time.Duration
		message string
	}{
		{name: "missing", message: "Unauthorized request"},
		{name: "malformed", header: "Bearer not-a-jwt"},
		{name: "expired", header: "Bearer " + token, advance: 15 * time.Minute},
		{name: "deleted user", header: "Bearer " + ghost, message: "Invalid access token"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f.now = time.Date(2026, 5, 4, 10, 0, 0, 0, time.UTC).Add(tt.advance)
			req := httptest.NewRequest(http.MethodGet, "/me", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := serve(h, req)
			assert.Equal(t, http.StatusUnauthorized, rec.Code)

			var body map[string]interface{}
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
			assert.Equal(t, false, body["success"])
			if tt.message != "" {
				assert.Equal(t, tt.message, body["message"])
			}
		})
	}
}

func TestRequireRole(t *testing.T) {
	f := newAuthFixture(t)
	ok := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusNoContent) })
	guard := func(role models.Role) http.Handler {
		return VerifyJWT(f.tokens, f.auth, zap.NewNop())(RequireRole(role, zap.NewNop())(ok))
	}

	_, token := f.user(t, models.RoleUser)
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+token)

	assert.Equal(t, http.StatusNoContent, serve(guard(models.RoleUser), req).Code)
	assert.Equal(t, http.StatusForbidden, serve(guard(models.RoleAdmin), req).Code)
}

func TestRequireRole_WithoutPrincipal(t *testing.T) {
	h := RequireRole(models.RoleAdmin, nil)(http.HandlerFunc(echoUser))
	rec := serve(h, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

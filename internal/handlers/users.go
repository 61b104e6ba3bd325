package handlers

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/AnshRaj112/flowmotion-backend/internal/apperror"
	"github.com/AnshRaj112/flowmotion-backend/internal/models"
	"github.com/AnshRaj112/flowmotion-backend/internal/services"
	"github.com/AnshRaj112/flowmotion-backend/pkg/response"
	"go.uber.org/zap"
)

// ActivityReader lists recent auth events of a user.
type ActivityReader interface {
	RecentEvents(ctx context.Context, userID string, limit int) ([]models.AuthEvent, error)
}

const (
	defaultActivityLimit = 20
	maxActivityLimit     = 100
)

type Users struct {
	auth     *services.AuthService
	activity ActivityReader // nil when the audit log is not configured
	cookies  CookieConfig
	log      *zap.Logger
}

func NewUsers(auth *services.AuthService, activity ActivityReader, cookies CookieConfig, log *zap.Logger) *Users {
	if log == nil {
		log = zap.NewNop()
	}
	return &Users{auth: auth, activity: activity, cookies: cookies, log: log}
}

type registerResponse struct {
	User         *models.User `json:"user"`
	AccessToken  string       `json:"accessToken"`
	RefreshToken string       `json:"refreshToken"`
}

type accessTokenResponse struct {
	AccessToken string `json:"accessToken"`
}

func (h *Users) Register(w http.ResponseWriter, r *http.Request) {
	var in services.RegisterInput
	if err := decodeJSON(w, r, &in); err != nil {
		fail(w, r, h.log, err)
		return
	}

	u, pair, err := h.auth.Register(r.Context(), in)
	if err != nil {
		fail(w, r, h.log, err)
		return
	}

	http.SetCookie(w, h.cookies.refreshCookie(pair.RefreshToken, pair.Remember))
	response.JSON(w, http.StatusCreated, registerResponse{
		User:         u,
		AccessToken:  pair.AccessToken,
		RefreshToken: pair.RefreshToken,
	}, "User registered successfully. Please check your email to verify your account.")
}

func (h *Users) Login(w http.ResponseWriter, r *http.Request) {
	var in services.LoginInput
	if err := decodeJSON(w, r, &in); err != nil {
		fail(w, r, h.log, err)
		return
	}

	_, pair, err := h.auth.Login(r.Context(), in)
	if err != nil {
		fail(w, r, h.log, err)
		return
	}

	http.SetCookie(w, h.cookies.refreshCookie(pair.RefreshToken, pair.Remember))
	response.JSON(w, http.StatusOK, accessTokenResponse{AccessToken: pair.AccessToken}, "User logged in successfully")
}

func (h *Users) Logout(w http.ResponseWriter, r *http.Request) {
	u, err := principal(r)
	if err != nil {
		fail(w, r, h.log, err)
		return
	}
	if err := h.auth.Logout(r.Context(), u.ID); err != nil {
		fail(w, r, h.log, err)
		return
	}
	http.SetCookie(w, h.cookies.expiredRefreshCookie())
	response.JSON(w, http.StatusOK, nil, "User logged out successfully")
}

// Refresh only accepts the refresh token from its cookie.
func (h *Users) Refresh(w http.ResponseWriter, r *http.Request) {
	var token string
	if c, err := r.Cookie(RefreshTokenCookie); err == nil {
		token = c.Value
	}

	pair, err := h.auth.Refresh(r.Context(), token)
	if err != nil {
		if apperror.IsKind(err, apperror.Invalid) || apperror.IsKind(err, apperror.Expired) {
			http.SetCookie(w, h.cookies.expiredRefreshCookie())
		}
		fail(w, r, h.log, err)
		return
	}

	http.SetCookie(w, h.cookies.refreshCookie(pair.RefreshToken, pair.Remember))
	response.JSON(w, http.StatusOK, accessTokenResponse{AccessToken: pair.AccessToken}, "Tokens refreshed successfully")
}

func (h *Users) Me(w http.ResponseWriter, r *http.Request) {
	u, err := principal(r)
	if err != nil {
		fail(w, r, h.log, err)
		return
	}
	response.JSON(w, http.StatusOK, u, "Current user fetched successfully")
}

func (h *Users) ChangePassword(w http.ResponseWriter, r *http.Request) {
	u, err := principal(r)
	if err != nil {
		fail(w, r, h.log, err)
		return
	}
	var in services.ChangePasswordInput
	if err := decodeJSON(w, r, &in); err != nil {
		fail(w, r, h.log, err)
		return
	}
	if err := h.auth.ChangePassword(r.Context(), u.ID, in); err != nil {
		fail(w, r, h.log, err)
		return
	}
	response.JSON(w, http.StatusOK, nil, "Password changed successfully")
}

func (h *Users) UpdateAccount(w http.ResponseWriter, r *http.Request) {
	u, err := principal(r)
	if err != nil {
		fail(w, r, h.log, err)
		return
	}
	var in services.UpdateAccountInput
	if err := decodeJSON(w, r, &in); err != nil {
		fail(w, r, h.log, err)
		return
	}
	updated, err := h.auth.UpdateAccount(r.Context(), u.ID, in)
	if err != nil {
		fail(w, r, h.log, err)
		return
	}
	response.JSON(w, http.StatusOK, updated, "Account updated successfully")
}

// ChangeAvatar expects a multipart form with the newAvatar file and currentPassword.
func (h *Users) ChangeAvatar(w http.ResponseWriter, r *http.Request) {
	u, err := principal(r)
	if err != nil {
		fail(w, r, h.log, err)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, services.MaxAvatarSize+(512<<10))
	if err := r.ParseMultipartForm(services.MaxAvatarSize); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			fail(w, r, h.log, apperror.New(apperror.InvalidArgument, "Avatar must be 3MB or smaller"))
			return
		}
		fail(w, r, h.log, apperror.New(apperror.InvalidArgument, "Invalid multipart form"))
		return
	}
	defer func() {
		if r.MultipartForm != nil {
			_ = r.MultipartForm.RemoveAll()
		}
	}()

	file, header, err := r.FormFile("newAvatar")
	if err != nil {
		fail(w, r, h.log, apperror.Validation("Avatar file is required", map[string]string{"newAvatar": "is required"}))
		return
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, services.MaxAvatarSize+1))
	if err != nil {
		fail(w, r, h.log, apperror.Wrap(err, apperror.Internal, "Error while reading avatar"))
		return
	}
	if err := services.ValidateAvatar(header.Filename, data); err != nil {
		fail(w, r, h.log, err)
		return
	}

	updated, err := h.auth.ChangeAvatar(r.Context(), u.ID, r.FormValue("currentPassword"), data)
	if err != nil {
		fail(w, r, h.log, err)
		return
	}
	response.JSON(w, http.StatusOK, updated, "Avatar changed successfully")
}

func (h *Users) DeleteAvatar(w http.ResponseWriter, r *http.Request) {
	u, err := principal(r)
	if err != nil {
		fail(w, r, h.log, err)
		return
	}
	updated, err := h.auth.DeleteAvatar(r.Context(), u.ID)
	if err != nil {
		fail(w, r, h.log, err)
		return
	}
	response.JSON(w, http.StatusOK, updated, "Avatar deleted successfully")
}

func (h *Users) SendVerification(w http.ResponseWriter, r *http.Request) {
	u, err := principal(r)
	if err != nil {
		fail(w, r, h.log, err)
		return
	}
	if err := h.auth.SendVerification(r.Context(), u.ID); err != nil {
		fail(w, r, h.log, err)
		return
	}
	response.JSON(w, http.StatusOK, nil, "Verification link has been sent successfully")
}

func (h *Users) VerifyEmail(w http.ResponseWriter, r *http.Request) {
	if _, err := h.auth.VerifyEmail(r.Context(), r.URL.Query().Get("token")); err != nil {
		fail(w, r, h.log, err)
		return
	}
	response.JSON(w, http.StatusOK, nil, "Email verified successfully")
}

func (h *Users) ForgotPassword(w http.ResponseWriter, r *http.Request) {
	var in services.ForgotPasswordInput
	if err := decodeJSON(w, r, &in); err != nil {
		fail(w, r, h.log, err)
		return
	}
	if err := h.auth.ForgotPassword(r.Context(), in); err != nil {
		fail(w, r, h.log, err)
		return
	}
	response.JSON(w, http.StatusOK, nil, "Password reset has been sent to your email")
}

func (h *Users) VerifyResetToken(w http.ResponseWriter, r *http.Request) {
	if err := h.auth.VerifyResetToken(r.Context(), r.URL.Query().Get("token")); err != nil {
		fail(w, r, h.log, err)
		return
	}
	response.JSON(w, http.StatusOK, nil, "Token is valid")
}

func (h *Users) ResetPassword(w http.ResponseWriter, r *http.Request) {
	var in services.ResetPasswordInput
	if err := decodeJSON(w, r, &in); err != nil {
		fail(w, r, h.log, err)
		return
	}
	if err := h.auth.ResetPassword(r.Context(), in); err != nil {
		fail(w, r, h.log, err)
		return
	}
	response.JSON(w, http.StatusOK, nil, "Password has been reset successfully.")
}

// Activity lists the caller's recent auth events. ?limit= caps the result.
func (h *Users) Activity(w http.ResponseWriter, r *http.Request) {
	u, err := principal(r)
	if err != nil {
		fail(w, r, h.log, err)
		return
	}
	if h.activity == nil {
		fail(w, r, h.log, apperror.New(apperror.Unavailable, "Activity log is not configured"))
		return
	}

	limit := defaultActivityLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			fail(w, r, h.log, apperror.New(apperror.InvalidArgument, "limit must be a positive integer"))
			return
		}
		if n > maxActivityLimit {
			n = maxActivityLimit
		}
		limit = n
	}

	events, err := h.activity.RecentEvents(r.Context(), u.ID.Hex(), limit)
	if err != nil {
		fail(w, r, h.log, apperror.Wrap(err, apperror.Internal, "Error while fetching activity"))
		return
	}
	if events == nil {
		events = []models.AuthEvent{}
	}
	response.JSON(w, http.StatusOK, events, "Activity fetched successfully")
}

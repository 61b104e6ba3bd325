package services

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/AnshRaj112/flowmotion-backend/internal/apperror"
	"github.com/AnshRaj112/flowmotion-backend/internal/logger"
	"github.com/AnshRaj112/flowmotion-backend/internal/models"
	"github.com/AnshRaj112/flowmotion-backend/pkg/utils"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

const (
	msgUserNotFound       = "User does not exist"
	msgInvalidCredentials = "Invalid user credentials"
	msgInvalidCurrentPass = "Invalid current password"
	msgVerifyCooldown     = "Please try requesting a new verification email after 20 minutes"
)

// AuthDeps are the collaborators of AuthService.
type AuthDeps struct {
	Users   UserStore
	Tokens  *TokenService
	Mailer  Mailer
	Images  ImageHost // nil when the image host is not configured
	Audit   AuditLog
	Log     *zap.Logger
	Timeout time.Duration
	// FrontendURL is the base of links sent by email.
	FrontendURL string
}

// AuthService implements the account and session lifecycle.
type AuthService struct {
	users       UserStore
	tokens      *TokenService
	mailer      Mailer
	images      ImageHost
	audit       AuditLog
	log         *zap.Logger
	timeout     time.Duration
	frontendURL string
}

func NewAuthService(d AuthDeps) *AuthService {
	if d.Audit == nil {
		d.Audit = NopAuditLog{}
	}
	if d.Log == nil {
		d.Log = zap.NewNop()
	}
	if d.Timeout <= 0 {
		d.Timeout = 10 * time.Second
	}
	return &AuthService{
		users:       d.Users,
		tokens:      d.Tokens,
		mailer:      d.Mailer,
		images:      d.Images,
		audit:       d.Audit,
		log:         d.Log,
		timeout:     d.Timeout,
		frontendURL: strings.TrimRight(d.FrontendURL, "/"),
	}
}

func (s *AuthService) Tokens() *TokenService { return s.tokens }

// bound limits the outbound calls of one operation.
func (s *AuthService) bound(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, s.timeout)
}

// storeErr maps a UserStore failure onto the error taxonomy.
func storeErr(err error, msg string) error {
	switch {
	case errors.Is(err, ErrNotFound):
		return apperror.New(apperror.NotFound, msgUserNotFound)
	case errors.Is(err, ErrConflict):
		return apperror.New(apperror.Conflict, "User with email or username already exists")
	default:
		return apperror.Wrap(err, apperror.Internal, msg)
	}
}

func (s *AuthService) checkPassword(u *models.User, password string, onMismatch *apperror.Error) error {
	ok, err := utils.VerifyPassword(password, u.Password)
	if err != nil {
		return apperror.Wrap(err, apperror.Internal, "Something went wrong")
	}
	if !ok {
		return onMismatch
	}
	return nil
}

func (s *AuthService) record(ctx context.Context, userID primitive.ObjectID, kind models.AuthEventKind) {
	RecordEvent(ctx, s.audit, logger.WithContext(ctx, s.log), userID.Hex(), kind)
}

// Register creates an unverified user and its first session. The user is
// removed again when no session could be issued.
func (s *AuthService) Register(ctx context.Context, in RegisterInput) (*models.User, TokenPair, error) {
	in.Email = utils.NormalizeEmail(in.Email)
	in.Username = utils.NormalizeUsername(in.Username)
	if err := validate(in); err != nil {
		return nil, TokenPair{}, err
	}
	ctx, cancel := s.bound(ctx)
	defer cancel()

	email, username := in.Email, in.Username

	exists, err := s.users.ExistsByEmailOrUsername(ctx, email, username, primitive.NilObjectID)
	if err != nil {
		return nil, TokenPair{}, storeErr(err, "Something went wrong while registering the user")
	}
	if exists {
		return nil, TokenPair{}, apperror.New(apperror.Conflict, "User with email or username already exists")
	}

	hash, err := utils.HashPassword(in.Password)
	if err != nil {
		return nil, TokenPair{}, apperror.Wrap(err, apperror.Internal, "Something went wrong while registering the user")
	}

	u := &models.User{
		Fullname: strings.TrimSpace(in.Fullname),
		Email:    email,
		Username: username,
		Password: hash,
		Role:     models.DefaultRoles(),
		RoleName: models.DefaultRoleName,
	}
	if err := s.users.Create(ctx, u); err != nil {
		return nil, TokenPair{}, storeErr(err, "Something went wrong while registering the user")
	}

	pair, err := s.tokens.RotateRefreshToken(ctx, u.ID, in.RememberMe)
	if err != nil {
		log := logger.WithContext(ctx, s.log)
		cleanupCtx, cleanupCancel := context.WithTimeout(context.WithoutCancel(ctx), s.timeout)
		defer cleanupCancel()
		if delErr := s.users.Delete(cleanupCtx, u.ID); delErr != nil {
			log.Error("failed to roll back registration", zap.String("user_id", u.ID.Hex()), zap.Error(delErr))
		}
		if apperror.IsKind(err, apperror.Unavailable) {
			return nil, TokenPair{}, err
		}
		return nil, TokenPair{}, apperror.Wrap(err, apperror.Internal, "Something went wrong while registering the user")
	}

	s.record(ctx, u.ID, models.EventRegister)
	logger.WithContext(ctx, s.log).Info("user registered",
		zap.String("user_id", u.ID.Hex()),
		zap.String("email", logger.MaskEmail(email)),
	)
	return u.Sanitized(), pair, nil
}

// Login resolves the account by email or username and starts a new session.
// A second concurrent login overwrites the refresh hash of the first.
func (s *AuthService) Login(ctx context.Context, in LoginInput) (*models.User, TokenPair, error) {
	if err := validate(in); err != nil {
		return nil, TokenPair{}, err
	}
	ctx, cancel := s.bound(ctx)
	defer cancel()

	u, err := s.users.FindByLogin(ctx, strings.ToLower(strings.TrimSpace(in.Email)))
	if err != nil {
		return nil, TokenPair{}, storeErr(err, "Something went wrong while logging in")
	}
	if err := s.checkPassword(u, in.Password, apperror.New(apperror.Unauthorized, msgInvalidCredentials)); err != nil {
		return nil, TokenPair{}, err
	}

	pair, err := s.tokens.RotateRefreshToken(ctx, u.ID, in.RememberMe)
	if err != nil {
		return nil, TokenPair{}, err
	}
	s.record(ctx, u.ID, models.EventLogin)
	return u.Sanitized(), pair, nil
}

func (s *AuthService) Logout(ctx context.Context, userID primitive.ObjectID) error {
	ctx, cancel := s.bound(ctx)
	defer cancel()

	if err := s.tokens.RevokeRefreshToken(ctx, userID); err != nil {
		return err
	}
	s.record(ctx, userID, models.EventLogout)
	return nil
}

// Refresh exchanges the refresh token for a rotated pair.
func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (TokenPair, error) {
	if refreshToken == "" {
		return TokenPair{}, apperror.New(apperror.InvalidArgument, "Refresh token is required")
	}
	ctx, cancel := s.bound(ctx)
	defer cancel()
	return s.tokens.ConsumeRefreshToken(ctx, refreshToken)
}

// Principal loads the user an access token was issued to.
func (s *AuthService) Principal(ctx context.Context, userID primitive.ObjectID) (*models.User, error) {
	ctx, cancel := s.bound(ctx)
	defer cancel()

	u, err := s.users.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, apperror.New(apperror.Unauthorized, "Invalid access token")
		}
		return nil, apperror.Wrap(err, apperror.Internal, "Something went wrong")
	}
	return u.Sanitized(), nil
}

// ChangePassword enforces the password policy before touching the store.
func (s *AuthService) ChangePassword(ctx context.Context, userID primitive.ObjectID, in ChangePasswordInput) error {
	if err := validate(in); err != nil {
		return err
	}
	ctx, cancel := s.bound(ctx)
	defer cancel()

	u, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return storeErr(err, "Something went wrong while changing the password")
	}
	if err := s.checkPassword(u, in.CurrentPassword, apperror.New(apperror.InvalidArgument, msgInvalidCurrentPass)); err != nil {
		return err
	}

	hash, err := utils.HashPassword(in.NewPassword)
	if err != nil {
		return apperror.Wrap(err, apperror.Internal, "Something went wrong while changing the password")
	}
	if err := s.users.UpdatePassword(ctx, u.ID, hash); err != nil {
		return storeErr(err, "Something went wrong while changing the password")
	}
	s.record(ctx, u.ID, models.EventPasswordChange)
	return nil
}

func (s *AuthService) UpdateAccount(ctx context.Context, userID primitive.ObjectID, in UpdateAccountInput) (*models.User, error) {
	in.NewEmail = utils.NormalizeEmail(in.NewEmail)
	in.NewUsername = utils.NormalizeUsername(in.NewUsername)
	if err := validate(in); err != nil {
		return nil, err
	}
	ctx, cancel := s.bound(ctx)
	defer cancel()

	u, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return nil, storeErr(err, "Something went wrong while updating the account")
	}
	if err := s.checkPassword(u, in.CurrentPassword, apperror.New(apperror.InvalidArgument, msgInvalidCurrentPass)); err != nil {
		return nil, err
	}

	upd := models.AccountUpdate{
		Fullname:    strings.TrimSpace(in.NewName),
		Username:    in.NewUsername,
		Email:       in.NewEmail,
		PhoneNumber: strings.TrimSpace(in.NewNumber),
	}
	taken, err := s.users.ExistsByEmailOrUsername(ctx, upd.Email, upd.Username, u.ID)
	if err != nil {
		return nil, storeErr(err, "Something went wrong while updating the account")
	}
	if taken {
		return nil, apperror.New(apperror.Conflict, "User with email or username already exists")
	}

	updated, err := s.users.UpdateAccount(ctx, u.ID, upd)
	if err != nil {
		return nil, storeErr(err, "Something went wrong while updating the account")
	}
	s.record(ctx, u.ID, models.EventAccountUpdate)
	return updated.Sanitized(), nil
}

func (s *AuthService) avatarID(id primitive.ObjectID) string {
	return "user-avatar-" + id.Hex()
}

// ChangeAvatar replaces the user's avatar. A failure to delete the previous
// asset is logged and does not stop the upload.
func (s *AuthService) ChangeAvatar(ctx context.Context, userID primitive.ObjectID, currentPassword string, data []byte) (*models.User, error) {
	if currentPassword == "" {
		return nil, apperror.Validation("All fields are required", map[string]string{"currentPassword": "is required"})
	}
	if s.images == nil {
		return nil, apperror.New(apperror.Unavailable, "Image upload is not configured")
	}
	ctx, cancel := s.bound(ctx)
	defer cancel()

	u, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return nil, storeErr(err, "Error while updating avatar")
	}
	if err := s.checkPassword(u, currentPassword, apperror.New(apperror.InvalidArgument, msgInvalidCurrentPass)); err != nil {
		return nil, err
	}

	log := logger.WithContext(ctx, s.log)
	if u.PublicID != "" {
		if err := s.images.Destroy(ctx, u.PublicID); err != nil {
			log.Warn("failed to delete previous avatar", zap.String("public_id", u.PublicID), zap.Error(err))
		}
	}

	img, err := s.images.Upload(ctx, data, s.avatarID(u.ID))
	if err != nil {
		return nil, apperror.Wrap(err, apperror.Internal, "Error while uploading avatar")
	}
	if err := s.users.SetAvatar(ctx, u.ID, img.URL, img.PublicID); err != nil {
		return nil, storeErr(err, "Error while updating avatar")
	}

	updated, err := s.users.FindByID(ctx, u.ID)
	if err != nil {
		return nil, storeErr(err, "Error while updating avatar")
	}
	return updated.Sanitized(), nil
}

func (s *AuthService) DeleteAvatar(ctx context.Context, userID primitive.ObjectID) (*models.User, error) {
	ctx, cancel := s.bound(ctx)
	defer cancel()

	u, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return nil, storeErr(err, "Error while deleting avatar")
	}
	if u.Avatar == "" && u.PublicID == "" {
		return nil, apperror.New(apperror.InvalidArgument, "No avatar to delete")
	}
	if u.PublicID != "" {
		if s.images == nil {
			return nil, apperror.New(apperror.Unavailable, "Image upload is not configured")
		}
		if err := s.images.Destroy(ctx, u.PublicID); err != nil {
			return nil, apperror.Wrap(err, apperror.Internal, "Error while deleting avatar")
		}
	}
	if err := s.users.ClearAvatar(ctx, u.ID); err != nil {
		return nil, storeErr(err, "Error while deleting avatar")
	}

	updated, err := s.users.FindByID(ctx, u.ID)
	if err != nil {
		return nil, storeErr(err, "Error while deleting avatar")
	}
	return updated.Sanitized(), nil
}

func (s *AuthService) link(path, token string) string {
	return s.frontendURL + path + "?token=" + url.QueryEscape(token)
}

// SendVerification emails a verification link. A stored token that is still
// within its lifetime blocks a new one.
func (s *AuthService) SendVerification(ctx context.Context, userID primitive.ObjectID) error {
	ctx, cancel := s.bound(ctx)
	defer cancel()

	u, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return storeErr(err, "Something went wrong while sending the verification email")
	}
	if u.IsVerified {
		return apperror.New(apperror.Forbidden, "Email is already verified")
	}
	if u.VerificationToken != "" {
		if _, err := s.tokens.VerifyEmailToken(u.VerificationToken); err == nil {
			return apperror.New(apperror.Forbidden, msgVerifyCooldown)
		}
	}

	token, err := s.tokens.IssueVerificationToken(u.Email)
	if err != nil {
		return apperror.Wrap(err, apperror.Internal, "Something went wrong while sending the verification email")
	}
	if err := s.users.SetVerificationToken(ctx, u.ID, token); err != nil {
		return storeErr(err, "Something went wrong while sending the verification email")
	}

	if err := s.mailer.SendVerification(ctx, u.Email, u.Fullname, s.link("/verify-email", token)); err != nil {
		log := logger.WithContext(ctx, s.log)
		log.Error("verification email failed", zap.String("email", logger.MaskEmail(u.Email)), zap.Error(err))
		// Drop the token so the cooldown does not block a retry.
		clearCtx, clearCancel := context.WithTimeout(context.WithoutCancel(ctx), s.timeout)
		defer clearCancel()
		if clearErr := s.users.SetVerificationToken(clearCtx, u.ID, ""); clearErr != nil {
			log.Error("failed to clear verification token", zap.Error(clearErr))
		}
		return apperror.Wrap(err, apperror.Internal, "Verification email could not be sent")
	}
	return nil
}

// VerifyEmail consumes a verification token. Token failures answer 400.
func (s *AuthService) VerifyEmail(ctx context.Context, token string) (*models.User, error) {
	if token == "" {
		return nil, apperror.New(apperror.InvalidArgument, "Verification token is required")
	}
	email, err := s.tokens.VerifyEmailToken(token)
	if err != nil {
		return nil, badRequest(err)
	}

	ctx, cancel := s.bound(ctx)
	defer cancel()
	u, err := s.users.MarkVerified(ctx, email, token)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, apperror.New(apperror.Invalid, "Invalid or already used verification token").WithStatus(http.StatusBadRequest)
		}
		return nil, apperror.Wrap(err, apperror.Internal, "Something went wrong while verifying the email")
	}
	s.record(ctx, u.ID, models.EventEmailVerified)
	return u.Sanitized(), nil
}

func (s *AuthService) ForgotPassword(ctx context.Context, in ForgotPasswordInput) error {
	in.Email = utils.NormalizeEmail(in.Email)
	if err := validate(in); err != nil {
		return err
	}
	ctx, cancel := s.bound(ctx)
	defer cancel()

	u, err := s.users.FindByEmail(ctx, in.Email)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return apperror.New(apperror.NotFound, "User with this email does not exist")
		}
		return storeErr(err, "Something went wrong while requesting a password reset")
	}

	token, err := s.tokens.IssueResetToken(u.Email)
	if err != nil {
		return apperror.Wrap(err, apperror.Internal, "Something went wrong while requesting a password reset")
	}
	expires := s.tokens.Now().Add(s.tokens.cfg.ResetTTL)
	if err := s.users.SetResetToken(ctx, u.ID, token, expires); err != nil {
		return storeErr(err, "Something went wrong while requesting a password reset")
	}

	if err := s.mailer.SendPasswordReset(ctx, u.Email, u.Fullname, s.link("/reset-password", token)); err != nil {
		logger.WithContext(ctx, s.log).Error("password reset email failed",
			zap.String("email", logger.MaskEmail(u.Email)), zap.Error(err))
		return apperror.Wrap(err, apperror.Internal, "Password reset email could not be sent")
	}
	return nil
}

// VerifyResetToken checks the signature and the stored expiry of a reset token.
func (s *AuthService) VerifyResetToken(ctx context.Context, token string) error {
	if token == "" {
		return apperror.New(apperror.InvalidArgument, "Reset token is required")
	}
	email, err := s.tokens.VerifyEmailToken(token)
	if err != nil {
		return badRequest(err)
	}

	ctx, cancel := s.bound(ctx)
	defer cancel()
	u, err := s.users.FindByResetToken(ctx, token, s.tokens.Now())
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return apperror.New(apperror.Invalid, "Invalid or expired reset token").WithStatus(http.StatusBadRequest)
		}
		return apperror.Wrap(err, apperror.Internal, "Something went wrong while verifying the reset token")
	}
	if u.Email != email {
		return apperror.New(apperror.Invalid, "Invalid or expired reset token").WithStatus(http.StatusBadRequest)
	}
	return nil
}

// ResetPassword sets a new password and clears the reset pair and the refresh
// hash in a single conditional write.
func (s *AuthService) ResetPassword(ctx context.Context, in ResetPasswordInput) error {
	if err := validate(in); err != nil {
		return err
	}
	email, err := s.tokens.VerifyEmailToken(in.Token)
	if err != nil {
		return badRequest(err)
	}

	hash, err := utils.HashPassword(in.NewPassword)
	if err != nil {
		return apperror.Wrap(err, apperror.Internal, "Something went wrong while resetting the password")
	}

	ctx, cancel := s.bound(ctx)
	defer cancel()
	u, err := s.users.ResetPassword(ctx, email, in.Token, hash, s.tokens.Now())
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return apperror.New(apperror.Invalid, "Invalid or expired reset token").WithStatus(http.StatusBadRequest)
		}
		return apperror.Wrap(err, apperror.Internal, "Something went wrong while resetting the password")
	}
	s.record(ctx, u.ID, models.EventPasswordReset)
	return nil
}

// badRequest answers email-token failures with 400 instead of 401.
func badRequest(err error) error {
	if ae, ok := apperror.As(err); ok {
		return ae.WithStatus(http.StatusBadRequest)
	}
	return err
}

package services

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/AnshRaj112/flowmotion-backend/internal/apperror"
	"github.com/AnshRaj112/flowmotion-backend/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestRegister(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()

	u, pair := f.register(t, "Alice", " Alice@Example.com ", "secret1")
	assert.Equal(t, "alice", u.Username)
	assert.Equal(t, "alice@example.com", u.Email)
	assert.False(t, u.IsVerified)
	assert.Equal(t, models.RoleSet{models.RoleUser}, u.Role)
	assert.Equal(t, models.DefaultRoleName, u.RoleName)
	assert.Empty(t, u.Password)
	assert.NotEmpty(t, pair.AccessToken)
	assert.NotEmpty(t, pair.RefreshToken)

	stored, err := f.users.FindByID(ctx, u.ID)
	require.NoError(t, err)
	assert.NotEqual(t, "secret1", stored.Password)
	assert.Equal(t, HashToken(pair.RefreshToken), stored.RefreshTokenHash)
	assert.Contains(t, f.audit.kinds(), models.EventRegister)
}

func TestRegister_Duplicate(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()
	f.register(t, "alice", "alice@example.com", "secret1")

	cases := []RegisterInput{
		{Fullname: "Other", Email: "ALICE@example.com", Username: "other", Password: "secret1"},
		{Fullname: "Other", Email: "other@example.com", Username: "Alice", Password: "secret1"},
	}
	for _, in := range cases {
		_, _, err := f.svc.Register(ctx, in)
		assert.True(t, apperror.IsKind(err, apperror.Conflict), "got %v", err)
	}

	_, err := f.users.FindByEmail(ctx, "other@example.com")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestRegister_Validation(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()

	_, _, err := f.svc.Register(ctx, RegisterInput{Email: "a@example.com", Username: "alice", Password: "secret1"})
	ae, ok := apperror.As(err)
	require.True(t, ok)
	assert.Equal(t, apperror.InvalidArgument, ae.Kind)
	assert.Equal(t, "All fields are required", ae.Message)
	assert.Contains(t, ae.Fields, "fullname")

	_, _, err = f.svc.Register(ctx, RegisterInput{Fullname: "A", Email: "not-an-email", Username: "alice", Password: "secret1"})
	ae, ok = apperror.As(err)
	require.True(t, ok)
	assert.Equal(t, apperror.InvalidArgument, ae.Kind)
	assert.Contains(t, ae.Fields, "email")

	_, _, err = f.svc.Register(ctx, RegisterInput{Fullname: "A", Email: "a@example.com", Username: "alice", Password: "abc"})
	ae, ok = apperror.As(err)
	require.True(t, ok)
	assert.Equal(t, apperror.InvalidArgument, ae.Kind)
	assert.Contains(t, ae.Fields, "password")

	_, _, err = f.svc.Register(ctx, RegisterInput{Fullname: "   ", Email: "a@example.com", Username: "alice", Password: "secret1"})
	ae, ok = apperror.As(err)
	require.True(t, ok)
	assert.Equal(t, apperror.InvalidArgument, ae.Kind)
	assert.Equal(t, "All fields are required", ae.Message)
	assert.Contains(t, ae.Fields, "fullname")

	_, err = f.users.FindByEmail(ctx, "a@example.com")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestLogin_BlankIdentifier(t *testing.T) {
	f := newAuthFixture(t)
	f.register(t, "alice", "alice@example.com", "secret1")

	_, _, err := f.svc.Login(context.Background(), LoginInput{Email: "  \t", Password: "secret1"})
	ae, ok := apperror.As(err)
	require.True(t, ok)
	assert.Equal(t, apperror.InvalidArgument, ae.Kind)
	assert.Equal(t, "All fields are required", ae.Message)
	assert.Contains(t, ae.Fields, "email")
}

func TestRegister_RollsBackWhenTokensFail(t *testing.T) {
	store := failingRefreshStore{NewMemoryUserStore()}
	f := newAuthFixtureWithStore(t, store)
	ctx := context.Background()

	_, pair, err := f.svc.Register(ctx, RegisterInput{
		Fullname: "Alice", Email: "alice@example.com", Username: "alice", Password: "secret1",
	})
	assert.True(t, apperror.IsKind(err, apperror.Internal))
	assert.Empty(t, pair.AccessToken)

	_, err = store.FindByEmail(ctx, "alice@example.com")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestLogin(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()
	f.register(t, "alice", "alice@example.com", "secret1")

	u, pair, err := f.svc.Login(ctx, LoginInput{Email: "alice", Password: "secret1"})
	require.NoError(t, err)
	assert.Equal(t, "alice@example.com", u.Email)
	assert.NotEmpty(t, pair.RefreshToken)

	_, _, err = f.svc.Login(ctx, LoginInput{Email: "Alice@Example.com", Password: "secret1"})
	require.NoError(t, err)

	_, _, err = f.svc.Login(ctx, LoginInput{Email: "alice", Password: "wrong-pass"})
	assert.True(t, apperror.IsKind(err, apperror.Unauthorized))

	_, _, err = f.svc.Login(ctx, LoginInput{Email: "nobody", Password: "secret1"})
	assert.True(t, apperror.IsKind(err, apperror.NotFound))

	_, _, err = f.svc.Login(ctx, LoginInput{Email: "alice"})
	assert.True(t, apperror.IsKind(err, apperror.InvalidArgument))
}

func TestLogin_InvalidatesPreviousRefreshToken(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()
	_, registered := f.register(t, "alice", "alice@example.com", "secret1")

	_, first, err := f.svc.Login(ctx, LoginInput{Email: "alice", Password: "secret1"})
	require.NoError(t, err)
	_, second, err := f.svc.Login(ctx, LoginInput{Email: "alice", Password: "secret1"})
	require.NoError(t, err)

	// Last login wins: older tokens no longer match the stored hash.
	stored, err := f.users.FindByEmail(ctx, "alice@example.com")
	require.NoError(t, err)
	assert.Equal(t, HashToken(second.RefreshToken), stored.RefreshTokenHash)
	assert.NotEqual(t, HashToken(first.RefreshToken), stored.RefreshTokenHash)
	assert.NotEqual(t, HashToken(registered.RefreshToken), stored.RefreshTokenHash)

	_, err = f.svc.Refresh(ctx, first.RefreshToken)
	assert.True(t, apperror.IsKind(err, apperror.Invalid))
}

func TestLogout(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()
	u, pair := f.register(t, "alice", "alice@example.com", "secret1")

	require.NoError(t, f.svc.Logout(ctx, u.ID))
	_, err := f.svc.Refresh(ctx, pair.RefreshToken)
	assert.True(t, apperror.IsKind(err, apperror.Invalid))

	_, err = f.svc.Refresh(ctx, "")
	assert.True(t, apperror.IsKind(err, apperror.InvalidArgument))
}

func TestPrincipal(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()
	u, _ := f.register(t, "alice", "alice@example.com", "secret1")

	p, err := f.svc.Principal(ctx, u.ID)
	require.NoError(t, err)
	assert.Empty(t, p.Password)
	assert.Empty(t, p.RefreshTokenHash)

	_, err = f.svc.Principal(ctx, primitive.NewObjectID())
	assert.True(t, apperror.IsKind(err, apperror.Unauthorized))
}

func TestChangePassword(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()
	u, _ := f.register(t, "alice", "alice@example.com", "secret1")

	before, err := f.users.FindByID(ctx, u.ID)
	require.NoError(t, err)

	for _, bad := range []string{"abc", "has space", "tab\tbed"} {
		err := f.svc.ChangePassword(ctx, u.ID, ChangePasswordInput{CurrentPassword: "secret1", NewPassword: bad})
		assert.True(t, apperror.IsKind(err, apperror.InvalidArgument), bad)
	}
	after, err := f.users.FindByID(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, before.Password, after.Password)

	err = f.svc.ChangePassword(ctx, u.ID, ChangePasswordInput{CurrentPassword: "wrong-pass", NewPassword: "newsecret"})
	ae, ok := apperror.As(err)
	require.True(t, ok)
	assert.Equal(t, apperror.InvalidArgument, ae.Kind)
	assert.Equal(t, "Invalid current password", ae.Message)

	require.NoError(t, f.svc.ChangePassword(ctx, u.ID, ChangePasswordInput{CurrentPassword: "secret1", NewPassword: "newsecret"}))
	_, _, err = f.svc.Login(ctx, LoginInput{Email: "alice", Password: "newsecret"})
	assert.NoError(t, err)
	_, _, err = f.svc.Login(ctx, LoginInput{Email: "alice", Password: "secret1"})
	assert.True(t, apperror.IsKind(err, apperror.Unauthorized))
}

func TestUpdateAccount(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()
	u, _ := f.register(t, "alice", "alice@example.com", "secret1")
	f.register(t, "bob", "bob@example.com", "secret1")

	// Verify first so the email change can reset it.
	require.NoError(t, f.svc.SendVerification(ctx, u.ID))
	_, err := f.svc.VerifyEmail(ctx, f.mailer.lastToken(t, "verify"))
	require.NoError(t, err)

	_, err = f.svc.UpdateAccount(ctx, u.ID, UpdateAccountInput{
		NewName: "Alice", NewUsername: "bob", NewEmail: "alice@example.com", CurrentPassword: "secret1",
	})
	assert.True(t, apperror.IsKind(err, apperror.Conflict))

	_, err = f.svc.UpdateAccount(ctx, u.ID, UpdateAccountInput{
		NewName: "Alice", NewUsername: "alice", NewEmail: "alice@example.com", CurrentPassword: "nope-nope",
	})
	assert.True(t, apperror.IsKind(err, apperror.InvalidArgument))

	_, err = f.svc.UpdateAccount(ctx, u.ID, UpdateAccountInput{
		NewName: "   ", NewUsername: "alice", NewEmail: "alice@example.com", CurrentPassword: "secret1",
	})
	ae, ok := apperror.As(err)
	require.True(t, ok)
	assert.Equal(t, apperror.InvalidArgument, ae.Kind)
	assert.Contains(t, ae.Fields, "newName")

	same, err := f.svc.UpdateAccount(ctx, u.ID, UpdateAccountInput{
		NewName: "Alice A.", NewUsername: "alice", NewEmail: "alice@example.com", NewNumber: "+15550100", CurrentPassword: "secret1",
	})
	require.NoError(t, err)
	assert.True(t, same.IsVerified)
	assert.Equal(t, "+15550100", same.PhoneNumber)

	changed, err := f.svc.UpdateAccount(ctx, u.ID, UpdateAccountInput{
		NewName: "Alice A.", NewUsername: "alice2", NewEmail: "new@example.com", CurrentPassword: "secret1",
	})
	require.NoError(t, err)
	assert.False(t, changed.IsVerified)
	assert.Equal(t, "new@example.com", changed.Email)
	assert.Equal(t, "alice2", changed.Username)
	assert.Empty(t, changed.Password)
}

func TestEmailVerification(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()
	u, _ := f.register(t, "alice", "alice@example.com", "secret1")

	require.NoError(t, f.svc.SendVerification(ctx, u.ID))
	token := f.mailer.lastToken(t, "verify")
	assert.Contains(t, f.mailer.sent[0].Link, "https://shop.example.com/verify-email?token=")

	// A pending unexpired token blocks a resend.
	err := f.svc.SendVerification(ctx, u.ID)
	ae, ok := apperror.As(err)
	require.True(t, ok)
	assert.Equal(t, apperror.Forbidden, ae.Kind)
	assert.Equal(t, "Please try requesting a new verification email after 20 minutes", ae.Message)

	verified, err := f.svc.VerifyEmail(ctx, token)
	require.NoError(t, err)
	assert.True(t, verified.IsVerified)

	_, err = f.svc.VerifyEmail(ctx, token)
	ae, ok = apperror.As(err)
	require.True(t, ok)
	assert.Equal(t, apperror.Invalid, ae.Kind)
	assert.Equal(t, http.StatusBadRequest, ae.HTTPStatus())

	err = f.svc.SendVerification(ctx, u.ID)
	assert.True(t, apperror.IsKind(err, apperror.Forbidden))
	assert.Contains(t, f.audit.kinds(), models.EventEmailVerified)
}

func TestEmailVerification_ResendAfterExpiry(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()
	u, _ := f.register(t, "alice", "alice@example.com", "secret1")

	require.NoError(t, f.svc.SendVerification(ctx, u.ID))
	stale := f.mailer.lastToken(t, "verify")

	f.clock.Advance(20 * time.Minute)
	_, err := f.svc.VerifyEmail(ctx, stale)
	ae, ok := apperror.As(err)
	require.True(t, ok)
	assert.Equal(t, apperror.Expired, ae.Kind)
	assert.Equal(t, http.StatusBadRequest, ae.HTTPStatus())

	require.NoError(t, f.svc.SendVerification(ctx, u.ID))
	fresh := f.mailer.lastToken(t, "verify")
	assert.NotEqual(t, stale, fresh)

	_, err = f.svc.VerifyEmail(ctx, fresh)
	assert.NoError(t, err)
}

func TestEmailVerification_DeliveryFailure(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()
	u, _ := f.register(t, "alice", "alice@example.com", "secret1")

	f.mailer.err = errors.New("smtp: 421 service not available")
	err := f.svc.SendVerification(ctx, u.ID)
	ae, ok := apperror.As(err)
	require.True(t, ok)
	assert.Equal(t, apperror.Internal, ae.Kind)
	assert.Equal(t, "Verification email could not be sent", ae.Message)

	// The failed attempt does not start the cooldown.
	f.mailer.err = nil
	assert.NoError(t, f.svc.SendVerification(ctx, u.ID))
}

func TestPasswordReset(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()
	u, pair := f.register(t, "alice", "alice@example.com", "secret1")

	err := f.svc.ForgotPassword(ctx, ForgotPasswordInput{Email: "nobody@example.com"})
	assert.True(t, apperror.IsKind(err, apperror.NotFound))

	require.NoError(t, f.svc.ForgotPassword(ctx, ForgotPasswordInput{Email: "Alice@example.com"}))
	token := f.mailer.lastToken(t, "reset")

	require.NoError(t, f.svc.VerifyResetToken(ctx, token))
	assert.Error(t, f.svc.VerifyResetToken(ctx, "garbage"))

	err = f.svc.ResetPassword(ctx, ResetPasswordInput{Token: token, NewPassword: "bad pass"})
	assert.True(t, apperror.IsKind(err, apperror.InvalidArgument))

	require.NoError(t, f.svc.ResetPassword(ctx, ResetPasswordInput{Token: token, NewPassword: "brandnew"}))

	stored, err := f.users.FindByID(ctx, u.ID)
	require.NoError(t, err)
	assert.Empty(t, stored.PasswordResetToken)
	assert.Nil(t, stored.PasswordResetExpires)
	assert.Empty(t, stored.RefreshTokenHash)

	_, err = f.svc.Refresh(ctx, pair.RefreshToken)
	assert.True(t, apperror.IsKind(err, apperror.Invalid))

	_, _, err = f.svc.Login(ctx, LoginInput{Email: "alice", Password: "brandnew"})
	assert.NoError(t, err)
	_, _, err = f.svc.Login(ctx, LoginInput{Email: "alice", Password: "secret1"})
	assert.True(t, apperror.IsKind(err, apperror.Unauthorized))

	// Single use.
	err = f.svc.ResetPassword(ctx, ResetPasswordInput{Token: token, NewPassword: "another1"})
	ae, ok := apperror.As(err)
	require.True(t, ok)
	assert.Equal(t, http.StatusBadRequest, ae.HTTPStatus())
	assert.Error(t, f.svc.VerifyResetToken(ctx, token))
}

func TestPasswordReset_Expired(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()
	f.register(t, "alice", "alice@example.com", "secret1")

	require.NoError(t, f.svc.ForgotPassword(ctx, ForgotPasswordInput{Email: "alice@example.com"}))
	token := f.mailer.lastToken(t, "reset")

	f.clock.Advance(15 * time.Minute)
	err := f.svc.VerifyResetToken(ctx, token)
	ae, ok := apperror.As(err)
	require.True(t, ok)
	assert.Equal(t, apperror.Expired, ae.Kind)
	assert.Equal(t, http.StatusBadRequest, ae.HTTPStatus())
}

func TestAvatar(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()
	u, _ := f.register(t, "alice", "alice@example.com", "secret1")

	_, err := f.svc.ChangeAvatar(ctx, u.ID, "wrong-pass", []byte("img"))
	assert.True(t, apperror.IsKind(err, apperror.InvalidArgument))

	updated, err := f.svc.ChangeAvatar(ctx, u.ID, "secret1", []byte("img"))
	require.NoError(t, err)
	assert.Equal(t, "user-avatar-"+u.ID.Hex(), updated.PublicID)
	assert.NotEmpty(t, updated.Avatar)
	assert.Empty(t, f.images.destroyed)

	_, err = f.svc.ChangeAvatar(ctx, u.ID, "secret1", []byte("img2"))
	require.NoError(t, err)
	assert.Equal(t, []string{"user-avatar-" + u.ID.Hex()}, f.images.destroyed)

	cleared, err := f.svc.DeleteAvatar(ctx, u.ID)
	require.NoError(t, err)
	assert.Empty(t, cleared.Avatar)
	assert.Empty(t, cleared.PublicID)

	_, err = f.svc.DeleteAvatar(ctx, u.ID)
	assert.True(t, apperror.IsKind(err, apperror.InvalidArgument))
}

func TestAvatar_UploadFailure(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()
	u, _ := f.register(t, "alice", "alice@example.com", "secret1")

	f.images.uploadErr = context.DeadlineExceeded
	_, err := f.svc.ChangeAvatar(ctx, u.ID, "secret1", []byte("img"))
	assert.True(t, apperror.IsKind(err, apperror.Unavailable))

	stored, err := f.users.FindByID(ctx, u.ID)
	require.NoError(t, err)
	assert.Empty(t, stored.Avatar)
}

func TestAuthorize(t *testing.T) {
	admin := &models.User{Role: models.RoleSet{models.RoleUser, models.RoleAdmin}}
	user := &models.User{Role: models.DefaultRoles()}

	assert.NoError(t, Authorize(admin, models.RoleAdmin))
	assert.True(t, apperror.IsKind(Authorize(user, models.RoleAdmin), apperror.Forbidden))
	assert.True(t, apperror.IsKind(Authorize(nil, models.RoleAdmin), apperror.Unauthorized))
	assert.True(t, apperror.IsKind(Authorize(admin, models.Role(42)), apperror.Forbidden))
}

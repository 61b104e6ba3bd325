package services

import (
	"context"
	"errors"
	"time"

	"github.com/AnshRaj112/flowmotion-backend/internal/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

var (
	// ErrNotFound is returned when no user matches the lookup.
	ErrNotFound = errors.New("user not found")
	// ErrConflict is returned when a username or email is already taken.
	ErrConflict = errors.New("username or email already exists")
	// ErrStaleRefresh is returned by SwapRefreshHash when the stored hash is
	// no longer the one the caller presented.
	ErrStaleRefresh = errors.New("refresh token hash changed")
)

// UserStore persists user records. Implementations return ErrNotFound and
// ErrConflict for the expected failures and wrap everything else.
type UserStore interface {
	EnsureIndexes(ctx context.Context) error

	// Create inserts u and sets u.ID.
	Create(ctx context.Context, u *models.User) error
	Delete(ctx context.Context, id primitive.ObjectID) error

	FindByID(ctx context.Context, id primitive.ObjectID) (*models.User, error)
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	// FindByLogin matches login against the email or the username.
	FindByLogin(ctx context.Context, login string) (*models.User, error)
	// ExistsByEmailOrUsername ignores the record with id exclude.
	ExistsByEmailOrUsername(ctx context.Context, email, username string, exclude primitive.ObjectID) (bool, error)

	SetRefreshHash(ctx context.Context, id primitive.ObjectID, hash string) error
	// SwapRefreshHash replaces oldHash with newHash only while oldHash is current.
	SwapRefreshHash(ctx context.Context, id primitive.ObjectID, oldHash, newHash string) error
	ClearRefreshHash(ctx context.Context, id primitive.ObjectID) error

	UpdatePassword(ctx context.Context, id primitive.ObjectID, hash string) error
	// UpdateAccount writes the profile fields. When the email changes the
	// account becomes unverified and any pending verification token is dropped.
	UpdateAccount(ctx context.Context, id primitive.ObjectID, upd models.AccountUpdate) (*models.User, error)

	SetVerificationToken(ctx context.Context, id primitive.ObjectID, token string) error
	// MarkVerified flips isVerified on the user holding {email, token} and clears the token.
	MarkVerified(ctx context.Context, email, token string) (*models.User, error)

	SetResetToken(ctx context.Context, id primitive.ObjectID, token string, expires time.Time) error
	// FindByResetToken matches a token whose stored expiry is after now.
	FindByResetToken(ctx context.Context, token string, now time.Time) (*models.User, error)
	// ResetPassword sets the password, clears the reset pair and revokes the
	// refresh hash in one conditional write on {email, token, expiry > now}.
	ResetPassword(ctx context.Context, email, token, hash string, now time.Time) (*models.User, error)

	SetAvatar(ctx context.Context, id primitive.ObjectID, url, publicID string) error
	ClearAvatar(ctx context.Context, id primitive.ObjectID) error
}

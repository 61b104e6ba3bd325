package services

import (
	"context"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"time"

	"github.com/AnshRaj112/flowmotion-backend/internal/apperror"
	"github.com/AnshRaj112/flowmotion-backend/internal/config"
	"github.com/AnshRaj112/flowmotion-backend/internal/models"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

const (
	VerificationTokenTTL = 20 * time.Minute
	ResetTokenTTL        = 15 * time.Minute
)

// TokenConfig holds signing secrets and lifetimes.
type TokenConfig struct {
	AccessSecret       string
	RefreshSecret      string
	EmailSecret        string
	AccessTTL          time.Duration
	AccessRememberTTL  time.Duration
	RefreshTTL         time.Duration
	RefreshRememberTTL time.Duration
	VerificationTTL    time.Duration
	ResetTTL           time.Duration
}

func TokenConfigFrom(cfg *config.Config) TokenConfig {
	return TokenConfig{
		AccessSecret:       cfg.AccessTokenSecret,
		RefreshSecret:      cfg.RefreshTokenSecret,
		EmailSecret:        cfg.JWTSecret,
		AccessTTL:          cfg.AccessTokenExpiry,
		AccessRememberTTL:  cfg.AccessTokenRememberExpiry,
		RefreshTTL:         cfg.RefreshTokenExpiry,
		RefreshRememberTTL: cfg.RefreshTokenRememberExpiry,
		VerificationTTL:    VerificationTokenTTL,
		ResetTTL:           ResetTokenTTL,
	}
}

type AccessClaims struct {
	UserID   string `json:"_id"`
	Email    string `json:"email"`
	Username string `json:"username"`
	jwt.RegisteredClaims
}

type RefreshClaims struct {
	UserID   string `json:"_id"`
	Remember bool   `json:"rem,omitempty"`
	jwt.RegisteredClaims
}

// EmailClaims binds a verification or reset token to an address.
type EmailClaims struct {
	Email string `json:"email"`
	jwt.RegisteredClaims
}

type TokenPair struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
	// Remember is the lifetime class both tokens were issued with.
	Remember bool `json:"-"`
}

type TokenService struct {
	cfg   TokenConfig
	users UserStore
	audit AuditLog
	log   *zap.Logger
	now   func() time.Time
}

func NewTokenService(cfg TokenConfig, users UserStore, audit AuditLog, log *zap.Logger) *TokenService {
	if audit == nil {
		audit = NopAuditLog{}
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &TokenService{cfg: cfg, users: users, audit: audit, log: log, now: time.Now}
}

// SetClock replaces the time source used for issuing and validating tokens.
func (s *TokenService) SetClock(now func() time.Time) { s.now = now }

func (s *TokenService) Now() time.Time { return s.now() }

// HashToken returns the hex SHA-256 digest stored in place of a refresh token.
func HashToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}

func hashesEqual(a, b string) bool {
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}

func (s *TokenService) registered(ttl time.Duration) jwt.RegisteredClaims {
	now := s.now()
	return jwt.RegisteredClaims{
		ID:        uuid.NewString(),
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
	}
}

func sign(claims jwt.Claims, secret string) (string, error) {
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
}

func (s *TokenService) IssueAccessToken(u *models.User, remember bool) (string, error) {
	ttl := s.cfg.AccessTTL
	if remember {
		ttl = s.cfg.AccessRememberTTL
	}
	return sign(AccessClaims{
		UserID:           u.ID.Hex(),
		Email:            u.Email,
		Username:         u.Username,
		RegisteredClaims: s.registered(ttl),
	}, s.cfg.AccessSecret)
}

func (s *TokenService) IssueRefreshToken(u *models.User, remember bool) (string, error) {
	ttl := s.cfg.RefreshTTL
	if remember {
		ttl = s.cfg.RefreshRememberTTL
	}
	return sign(RefreshClaims{
		UserID:           u.ID.Hex(),
		Remember:         remember,
		RegisteredClaims: s.registered(ttl),
	}, s.cfg.RefreshSecret)
}

func (s *TokenService) issuePair(u *models.User, remember bool) (TokenPair, error) {
	access, err := s.IssueAccessToken(u, remember)
	if err != nil {
		return TokenPair{}, err
	}
	refresh, err := s.IssueRefreshToken(u, remember)
	if err != nil {
		return TokenPair{}, err
	}
	return TokenPair{AccessToken: access, RefreshToken: refresh, Remember: remember}, nil
}

// RotateRefreshToken issues a fresh pair for userID and overwrites the stored
// refresh hash. No tokens are returned unless the hash was persisted.
func (s *TokenService) RotateRefreshToken(ctx context.Context, userID primitive.ObjectID, remember bool) (TokenPair, error) {
	u, err := s.users.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return TokenPair{}, apperror.New(apperror.NotFound, "User not found")
		}
		return TokenPair{}, apperror.Wrap(err, apperror.Internal, "Something went wrong while generating tokens")
	}

	pair, err := s.issuePair(u, remember)
	if err != nil {
		return TokenPair{}, apperror.Wrap(err, apperror.Internal, "Something went wrong while generating tokens")
	}

	if err := s.users.SetRefreshHash(ctx, u.ID, HashToken(pair.RefreshToken)); err != nil {
		if errors.Is(err, ErrNotFound) {
			return TokenPair{}, apperror.New(apperror.NotFound, "User not found")
		}
		return TokenPair{}, apperror.Wrap(err, apperror.Internal, "Something went wrong while generating tokens")
	}
	return pair, nil
}

func (s *TokenService) parse(token, secret string, claims jwt.Claims) error {
	_, err := jwt.ParseWithClaims(token, claims, func(*jwt.Token) (interface{}, error) {
		return []byte(secret), nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(s.now),
		jwt.WithExpirationRequired(),
	)
	return err
}

func (s *TokenService) VerifyAccessToken(token string) (*AccessClaims, error) {
	claims := &AccessClaims{}
	if err := s.parse(token, s.cfg.AccessSecret, claims); err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, apperror.Wrap(err, apperror.Expired, "Access token expired, please log in again")
		}
		return nil, apperror.Wrap(err, apperror.Invalid, "Invalid access token")
	}
	return claims, nil
}

func (s *TokenService) VerifyRefreshToken(token string) (*RefreshClaims, error) {
	claims := &RefreshClaims{}
	if err := s.parse(token, s.cfg.RefreshSecret, claims); err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, apperror.Wrap(err, apperror.Expired, "Refresh token expired, please log in again")
		}
		return nil, apperror.Wrap(err, apperror.Invalid, "Invalid refresh token")
	}
	return claims, nil
}

// ConsumeRefreshToken exchanges a refresh token for a new pair. The presented
// token must hash to the stored value; any other still-signed token is treated
// as a replay of a rotated token and revokes the stored hash.
func (s *TokenService) ConsumeRefreshToken(ctx context.Context, token string) (TokenPair, error) {
	invalid := apperror.New(apperror.Invalid, "Invalid refresh token")

	claims, err := s.VerifyRefreshToken(token)
	if err != nil {
		return TokenPair{}, err
	}
	id, err := primitive.ObjectIDFromHex(claims.UserID)
	if err != nil {
		return TokenPair{}, invalid
	}

	u, err := s.users.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return TokenPair{}, invalid
		}
		return TokenPair{}, apperror.Wrap(err, apperror.Internal, "Something went wrong while refreshing the session")
	}

	presented := HashToken(token)
	if u.RefreshTokenHash == "" {
		return TokenPair{}, invalid
	}
	if !hashesEqual(presented, u.RefreshTokenHash) {
		s.log.Warn("refresh token reuse detected, revoking session", zap.String("user_id", u.ID.Hex()))
		if err := s.users.ClearRefreshHash(ctx, u.ID); err != nil {
			s.log.Error("failed to revoke refresh token", zap.String("user_id", u.ID.Hex()), zap.Error(err))
		}
		RecordEvent(ctx, s.audit, s.log, u.ID.Hex(), models.EventRefreshReuse)
		return TokenPair{}, invalid
	}

	pair, err := s.issuePair(u, claims.Remember)
	if err != nil {
		return TokenPair{}, apperror.Wrap(err, apperror.Internal, "Something went wrong while refreshing the session")
	}
	if err := s.users.SwapRefreshHash(ctx, u.ID, presented, HashToken(pair.RefreshToken)); err != nil {
		if errors.Is(err, ErrStaleRefresh) || errors.Is(err, ErrNotFound) {
			return TokenPair{}, invalid
		}
		return TokenPair{}, apperror.Wrap(err, apperror.Internal, "Something went wrong while refreshing the session")
	}

	RecordEvent(ctx, s.audit, s.log, u.ID.Hex(), models.EventRefresh)
	return pair, nil
}

// RevokeRefreshToken clears the stored hash so no outstanding refresh token works.
func (s *TokenService) RevokeRefreshToken(ctx context.Context, userID primitive.ObjectID) error {
	if err := s.users.ClearRefreshHash(ctx, userID); err != nil {
		if errors.Is(err, ErrNotFound) {
			return apperror.New(apperror.NotFound, "User not found")
		}
		return apperror.Wrap(err, apperror.Internal, "Something went wrong while logging out")
	}
	return nil
}

func (s *TokenService) IssueVerificationToken(email string) (string, error) {
	return sign(EmailClaims{Email: email, RegisteredClaims: s.registered(s.cfg.VerificationTTL)}, s.cfg.EmailSecret)
}

func (s *TokenService) IssueResetToken(email string) (string, error) {
	return sign(EmailClaims{Email: email, RegisteredClaims: s.registered(s.cfg.ResetTTL)}, s.cfg.EmailSecret)
}

// VerifyEmailToken validates a verification or reset token and returns its email.
func (s *TokenService) VerifyEmailToken(token string) (string, error) {
	claims := &EmailClaims{}
	if err := s.parse(token, s.cfg.EmailSecret, claims); err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return "", apperror.Wrap(err, apperror.Expired, "Token has expired")
		}
		return "", apperror.Wrap(err, apperror.Invalid, "Invalid token")
	}
	if claims.Email == "" {
		return "", apperror.New(apperror.Invalid, "Invalid token")
	}
	return claims.Email, nil
}

package services

import (
	"context"
	"sync"
	"time"

	"github.com/AnshRaj112/flowmotion-backend/internal/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// MemoryUserStore is a UserStore kept in process memory. It backs tests and
// local runs without MongoDB; records are copied in and out.
type MemoryUserStore struct {
	mu    sync.RWMutex
	users map[primitive.ObjectID]*models.User
	now   func() time.Time
}

func NewMemoryUserStore() *MemoryUserStore {
	return &MemoryUserStore{
		users: make(map[primitive.ObjectID]*models.User),
		now:   time.Now,
	}
}

func clone(u *models.User) *models.User {
	cp := *u
	cp.Role = append(models.RoleSet(nil), u.Role...)
	if u.PasswordResetExpires != nil {
		t := *u.PasswordResetExpires
		cp.PasswordResetExpires = &t
	}
	return &cp
}

func (s *MemoryUserStore) EnsureIndexes(context.Context) error { return nil }

// taken reports whether email or username is used by a record other than exclude.
func (s *MemoryUserStore) taken(email, username string, exclude primitive.ObjectID) bool {
	for id, u := range s.users {
		if id == exclude {
			continue
		}
		if (email != "" && u.Email == email) || (username != "" && u.Username == username) {
			return true
		}
	}
	return false
}

func (s *MemoryUserStore) Create(_ context.Context, u *models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.taken(u.Email, u.Username, primitive.NilObjectID) {
		return ErrConflict
	}
	if u.ID.IsZero() {
		u.ID = primitive.NewObjectID()
	}
	now := s.now()
	u.CreatedAt, u.UpdatedAt = now, now
	s.users[u.ID] = clone(u)
	return nil
}

func (s *MemoryUserStore) Delete(_ context.Context, id primitive.ObjectID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.users[id]; !ok {
		return ErrNotFound
	}
	delete(s.users, id)
	return nil
}

func (s *MemoryUserStore) FindByID(_ context.Context, id primitive.ObjectID) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.users[id]
	if !ok {
		return nil, ErrNotFound
	}
	return clone(u), nil
}

func (s *MemoryUserStore) find(match func(*models.User) bool) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, u := range s.users {
		if match(u) {
			return clone(u), nil
		}
	}
	return nil, ErrNotFound
}

func (s *MemoryUserStore) FindByEmail(_ context.Context, email string) (*models.User, error) {
	return s.find(func(u *models.User) bool { return u.Email == email })
}

func (s *MemoryUserStore) FindByLogin(_ context.Context, login string) (*models.User, error) {
	return s.find(func(u *models.User) bool { return u.Email == login || u.Username == login })
}

func (s *MemoryUserStore) ExistsByEmailOrUsername(_ context.Context, email, username string, exclude primitive.ObjectID) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.taken(email, username, exclude), nil
}

// update applies fn to the record under the write lock.
func (s *MemoryUserStore) update(id primitive.ObjectID, fn func(*models.User) error) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return nil, ErrNotFound
	}
	next := clone(u)
	if err := fn(next); err != nil {
		return nil, err
	}
	next.UpdatedAt = s.now()
	s.users[id] = next
	return clone(next), nil
}

func (s *MemoryUserStore) SetRefreshHash(_ context.Context, id primitive.ObjectID, hash string) error {
	_, err := s.update(id, func(u *models.User) error {
		u.RefreshTokenHash = hash
		return nil
	})
	return err
}

func (s *MemoryUserStore) SwapRefreshHash(_ context.Context, id primitive.ObjectID, oldHash, newHash string) error {
	_, err := s.update(id, func(u *models.User) error {
		if u.RefreshTokenHash == "" || u.RefreshTokenHash != oldHash {
			return ErrStaleRefresh
		}
		u.RefreshTokenHash = newHash
		return nil
	})
	return err
}

func (s *MemoryUserStore) ClearRefreshHash(_ context.Context, id primitive.ObjectID) error {
	_, err := s.update(id, func(u *models.User) error {
		u.RefreshTokenHash = ""
		return nil
	})
	return err
}

func (s *MemoryUserStore) UpdatePassword(_ context.Context, id primitive.ObjectID, hash string) error {
	_, err := s.update(id, func(u *models.User) error {
		u.Password = hash
		return nil
	})
	return err
}

func (s *MemoryUserStore) UpdateAccount(_ context.Context, id primitive.ObjectID, upd models.AccountUpdate) (*models.User, error) {
	s.mu.RLock()
	conflict := s.taken(upd.Email, upd.Username, id)
	s.mu.RUnlock()
	if conflict {
		return nil, ErrConflict
	}
	return s.update(id, func(u *models.User) error {
		if u.Email != upd.Email {
			u.IsVerified = false
			u.VerificationToken = ""
		}
		u.Fullname = upd.Fullname
		u.Username = upd.Username
		u.Email = upd.Email
		u.PhoneNumber = upd.PhoneNumber
		return nil
	})
}

func (s *MemoryUserStore) SetVerificationToken(_ context.Context, id primitive.ObjectID, token string) error {
	_, err := s.update(id, func(u *models.User) error {
		u.VerificationToken = token
		return nil
	})
	return err
}

func (s *MemoryUserStore) MarkVerified(ctx context.Context, email, token string) (*models.User, error) {
	if token == "" {
		return nil, ErrNotFound
	}
	u, err := s.find(func(u *models.User) bool { return u.Email == email && u.VerificationToken == token })
	if err != nil {
		return nil, err
	}
	return s.update(u.ID, func(u *models.User) error {
		if u.VerificationToken != token {
			return ErrNotFound
		}
		u.IsVerified = true
		u.VerificationToken = ""
		return nil
	})
}

func (s *MemoryUserStore) SetResetToken(_ context.Context, id primitive.ObjectID, token string, expires time.Time) error {
	_, err := s.update(id, func(u *models.User) error {
		u.PasswordResetToken = token
		u.PasswordResetExpires = &expires
		return nil
	})
	return err
}

func resetMatches(u *models.User, token string, now time.Time) bool {
	return token != "" && u.PasswordResetToken == token &&
		u.PasswordResetExpires != nil && u.PasswordResetExpires.After(now)
}

func (s *MemoryUserStore) FindByResetToken(_ context.Context, token string, now time.Time) (*models.User, error) {
	return s.find(func(u *models.User) bool { return resetMatches(u, token, now) })
}

func (s *MemoryUserStore) ResetPassword(_ context.Context, email, token, hash string, now time.Time) (*models.User, error) {
	u, err := s.find(func(u *models.User) bool { return u.Email == email && resetMatches(u, token, now) })
	if err != nil {
		return nil, err
	}
	return s.update(u.ID, func(u *models.User) error {
		if !resetMatches(u, token, now) {
			return ErrNotFound
		}
		u.Password = hash
		u.PasswordResetToken = ""
		u.PasswordResetExpires = nil
		u.RefreshTokenHash = ""
		return nil
	})
}

func (s *MemoryUserStore) SetAvatar(_ context.Context, id primitive.ObjectID, url, publicID string) error {
	_, err := s.update(id, func(u *models.User) error {
		u.Avatar = url
		u.PublicID = publicID
		return nil
	})
	return err
}

func (s *MemoryUserStore) ClearAvatar(_ context.Context, id primitive.ObjectID) error {
	_, err := s.update(id, func(u *models.User) error {
		u.Avatar = ""
		u.PublicID = ""
		return nil
	})
	return err
}

package services

import (
	"context"
	"errors"
	"net/url"
	"sync"
	"testing"
	"time"

	"github.com/AnshRaj112/flowmotion-backend/internal/models"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{t: time.Date(2026, 5, 4, 10, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

type sentMail struct {
	Kind string
	To   string
	Link string
}

// fakeMailer captures outgoing mail instead of sending it.
type fakeMailer struct {
	mu   sync.Mutex
	sent []sentMail
	err  error
}

func (m *fakeMailer) add(kind, to, link string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.sent = append(m.sent, sentMail{Kind: kind, To: to, Link: link})
	return nil
}

func (m *fakeMailer) SendVerification(_ context.Context, to, _, link string) error {
	return m.add("verify", to, link)
}

func (m *fakeMailer) SendPasswordReset(_ context.Context, to, _, link string) error {
	return m.add("reset", to, link)
}

func (m *fakeMailer) SendContact(_ context.Context, to string, c ContactMessage) error {
	return m.add("contact", to, c.Message)
}

// lastToken returns the token query parameter of the last mail of kind.
func (m *fakeMailer) lastToken(t *testing.T, kind string) string {
	t.Helper()
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := len(m.sent) - 1; i >= 0; i-- {
		if m.sent[i].Kind == kind {
			u, err := url.Parse(m.sent[i].Link)
			require.NoError(t, err)
			return u.Query().Get("token")
		}
	}
	t.Fatalf("no %s mail sent", kind)
	return ""
}

type fakeImageHost struct {
	mu        sync.Mutex
	uploads   []string
	destroyed []string
	uploadErr error
}

func (h *fakeImageHost) Upload(_ context.Context, _ []byte, publicID string) (UploadedImage, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.uploadErr != nil {
		return UploadedImage{}, h.uploadErr
	}
	h.uploads = append(h.uploads, publicID)
	return UploadedImage{URL: "https://res.cloudinary.com/demo/image/upload/" + publicID, PublicID: publicID}, nil
}

func (h *fakeImageHost) Destroy(_ context.Context, publicID string) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.destroyed = append(h.destroyed, publicID)
	return nil
}

type recordingAudit struct {
	mu     sync.Mutex
	events []models.AuthEvent
}

func (a *recordingAudit) Record(_ context.Context, ev models.AuthEvent) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.events = append(a.events, ev)
	return nil
}

func (a *recordingAudit) kinds() []models.AuthEventKind {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make([]models.AuthEventKind, 0, len(a.events))
	for _, ev := range a.events {
		out = append(out, ev.Kind)
	}
	return out
}

// failingRefreshStore fails every refresh hash write.
type failingRefreshStore struct {
	*MemoryUserStore
}

func (s failingRefreshStore) SetRefreshHash(context.Context, primitive.ObjectID, string) error {
	return errors.New("write concern error")
}

func testTokenConfig() TokenConfig {
	return TokenConfig{
		AccessSecret:       "access-test-secret",
		RefreshSecret:      "refresh-test-secret",
		EmailSecret:        "email-test-secret",
		AccessTTL:          15 * time.Minute,
		AccessRememberTTL:  24 * time.Hour,
		RefreshTTL:         24 * time.Hour,
		RefreshRememberTTL: 180 * 24 * time.Hour,
		VerificationTTL:    VerificationTokenTTL,
		ResetTTL:           ResetTokenTTL,
	}
}

type authFixture struct {
	svc    *AuthService
	users  *MemoryUserStore
	tokens *TokenService
	mailer *fakeMailer
	images *fakeImageHost
	audit  *recordingAudit
	clock  *fakeClock
}

func newAuthFixture(t *testing.T) *authFixture {
	return newAuthFixtureWithStore(t, nil)
}

func newAuthFixtureWithStore(t *testing.T, store UserStore) *authFixture {
	t.Helper()
	users := NewMemoryUserStore()
	if store == nil {
		store = users
	}
	f := &authFixture{
		users:  users,
		mailer: &fakeMailer{},
		images: &fakeImageHost{},
		audit:  &recordingAudit{},
		clock:  newFakeClock(),
	}
	f.tokens = NewTokenService(testTokenConfig(), store, f.audit, nil)
	f.tokens.SetClock(f.clock.Now)
	f.svc = NewAuthService(AuthDeps{
		Users:       store,
		Tokens:      f.tokens,
		Mailer:      f.mailer,
		Images:      f.images,
		Audit:       f.audit,
		FrontendURL: "https://shop.example.com/",
	})
	return f
}

func (f *authFixture) register(t *testing.T, username, email, password string) (*models.User, TokenPair) {
	t.Helper()
	u, pair, err := f.svc.Register(context.Background(), RegisterInput{
		Fullname: "Test User",
		Email:    email,
		Username: username,
		Password: password,
	})
	require.NoError(t, err)
	return u, pair
}

package auth_test

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
	"golang.org/x/crypto/bcrypt"

	auth "github.com/goliatone/go-contacts-auth"
)

const testSecret = "test-secret-key-with-enough-entropy"

// testConfig implements auth.Config
type testConfig struct {
	key        string
	method     string
	issuer     string
	accessTTL  time.Duration
	refreshTTL time.Duration
	emailTTL   time.Duration
	leeway     time.Duration
}

func newTestConfig() testConfig {
	return testConfig{key: testSecret, method: "HS256"}
}

func (c testConfig) GetSigningKey() string { return c.key }
func (c testConfig) GetSigningMethod() string { return c.method }
func (c testConfig) GetContextKey() string { return "user" }
func (c testConfig) GetTokenLookup() string { return "header:Authorization" }
func (c testConfig) GetAuthScheme() string { return "Bearer" }
func (c testConfig) GetIssuer() string { return c.issuer }
func (c testConfig) GetAccessTokenTTL() time.Duration { return c.accessTTL }
func (c testConfig) GetRefreshTokenTTL() time.Duration { return c.refreshTTL }
func (c testConfig) GetEmailTokenTTL() time.Duration { return c.emailTTL }
func (c testConfig) GetClockLeeway() time.Duration { return c.leeway }

// testClock is a settable clock
type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func newTestClock() *testClock {
	return &testClock{now: time.Date(2025, 3, 14, 9, 26, 53, 0, time.UTC)}
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

var fastHasher = auth.BcryptHasher{Cost: bcrypt.MinCost}

func mustHash(plain string) string {
	h, err := fastHasher.Hash(plain)
	if err != nil {
		panic(err)
	}
	return h
}

// memoryStore is an in-memory auth.IdentityStore. It does not implement
// auth.RefreshTokenSwapper, see swappingStore.
type memoryStore struct {
	mu    sync.Mutex
	users map[string]*auth.User
	saves int
}

func newMemoryStore(users ...*auth.User) *memoryStore {
	s := &memoryStore{users: map[string]*auth.User{}}
	for _, u := range users {
		if u.ID == uuid.Nil {
			u.ID = uuid.New()
		}
		if u.Role == "" {
			u.Role = auth.RoleUser
		}
		s.users[u.Email] = u
	}
	return s
}

func (s *memoryStore) FindByEmail(_ context.Context, email string) (*auth.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[email]
	if !ok {
		return nil, auth.ErrIdentityNotFound
	}
	cp := *u
	if u.RefreshToken != nil {
		tok := *u.RefreshToken
		cp.RefreshToken = &tok
	}
	return &cp, nil
}

func (s *memoryStore) Save(_ context.Context, user *auth.User) (*auth.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if user.ID == uuid.Nil {
		user.ID = uuid.New()
	}
	cp := *user
	s.users[user.Email] = &cp
	s.saves++
	return user, nil
}

func (s *memoryStore) Register(ctx context.Context, user *auth.User) (*auth.User, error) {
	s.mu.Lock()
	_, exists := s.users[user.Email]
	s.mu.Unlock()
	if exists {
		return nil, auth.ErrEmailTaken
	}
	return s.Save(ctx, user)
}

func (s *memoryStore) get(email string) *auth.User {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.users[email]
}

func (s *memoryStore) storedRefresh(email string) *string {
	u := s.get(email)
	if u == nil {
		return nil
	}
	return u.RefreshToken
}

// swappingStore adds compare-and-swap rotation to memoryStore
type swappingStore struct {
	*memoryStore
}

func (s swappingStore) SwapRefreshToken(_ context.Context, userID string, expected string, next *string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.users {
		if u.ID.String() != userID {
			continue
		}
		if u.RefreshToken == nil || *u.RefreshToken != expected {
			return false, nil
		}
		u.RefreshToken = next
		return true, nil
	}
	return false, nil
}

// MockIdentityStore implements auth.IdentityStore for failure paths
type MockIdentityStore struct {
	mock.Mock
}

func (m *MockIdentityStore) FindByEmail(ctx context.Context, email string) (*auth.User, error) {
	args := m.Called(ctx, email)
	u, _ := args.Get(0).(*auth.User)
	return u, args.Error(1)
}

func (m *MockIdentityStore) Save(ctx context.Context, user *auth.User) (*auth.User, error) {
	args := m.Called(ctx, user)
	u, _ := args.Get(0).(*auth.User)
	return u, args.Error(1)
}

// MockMailer implements auth.VerificationMailer
type MockMailer struct {
	mock.Mock
}

func (m *MockMailer) SendVerification(ctx context.Context, msg auth.VerificationEmail) error {
	args := m.Called(ctx, msg)
	return args.Error(0)
}

// recordingSink keeps every activity event
type recordingSink struct {
	mu     sync.Mutex
	events []auth.ActivityEvent
}

func (r *recordingSink) Record(_ context.Context, e auth.ActivityEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
	return nil
}

func (r *recordingSink) types() []auth.ActivityEventType {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]auth.ActivityEventType, 0, len(r.events))
	for _, e := range r.events {
		out = append(out, e.EventType)
	}
	return out
}

func newTokenService(clock auth.Clock) *auth.TokenService {
	ts, err := auth.NewTokenService(newTestConfig(), auth.WithClock(clock))
	if err != nil {
		panic(err)
	}
	return ts
}

func confirmedUser(email, password string) *auth.User {
	return &auth.User{
		Username:     "alice",
		Email:        email,
		PasswordHash: mustHash(password),
		Confirmed:    true,
		Role:         auth.RoleUser,
	}
}

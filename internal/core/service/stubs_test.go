package service

import (
	"context"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"

	"github.com/maalej-ala/stage2-auth/internal/core/domain"
	"github.com/maalej-ala/stage2-auth/internal/core/password"
	"github.com/maalej-ala/stage2-auth/internal/core/ports"
	"github.com/maalej-ala/stage2-auth/internal/core/token"
)

// ---------------------------------------------------------------------------
// Stubs
// ---------------------------------------------------------------------------

type stubAccountRepo struct {
	mu      sync.Mutex
	byID    map[string]*domain.Account
	nextID  int
	findErr error
}

func newStubAccountRepo() *stubAccountRepo {
	return &stubAccountRepo{byID: make(map[string]*domain.Account)}
}

func cloneAccount(a *domain.Account) *domain.Account {
	if a == nil {
		return nil
	}
	clone := *a
	return &clone
}

func (r *stubAccountRepo) Create(_ context.Context, a *domain.Account) (*domain.Account, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.byID {
		if existing.Email == a.Email {
			return nil, domain.ErrDuplicateEmail
		}
	}
	r.nextID++
	stored := cloneAccount(a)
	stored.ID = strconv.Itoa(r.nextID)
	r.byID[stored.ID] = stored
	return cloneAccount(stored), nil
}

func (r *stubAccountRepo) FindByEmail(_ context.Context, email string) (*domain.Account, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.findErr != nil {
		return nil, r.findErr
	}
	for _, a := range r.byID {
		if a.Email == email {
			return cloneAccount(a), nil
		}
	}
	return nil, domain.ErrAccountNotFound
}

func (r *stubAccountRepo) FindByID(_ context.Context, id string) (*domain.Account, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.byID[id]
	if !ok {
		return nil, domain.ErrAccountNotFound
	}
	return cloneAccount(a), nil
}

func (r *stubAccountRepo) List(_ context.Context) ([]*domain.Account, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*domain.Account, 0, len(r.byID))
	for i := 1; i <= r.nextID; i++ {
		if a, ok := r.byID[strconv.Itoa(i)]; ok {
			out = append(out, cloneAccount(a))
		}
	}
	return out, nil
}

func (r *stubAccountRepo) Update(_ context.Context, a *domain.Account) (*domain.Account, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.byID[a.ID]; !ok {
		return nil, domain.ErrAccountNotFound
	}
	for id, existing := range r.byID {
		if id != a.ID && existing.Email == a.Email {
			return nil, domain.ErrDuplicateEmail
		}
	}
	r.byID[a.ID] = cloneAccount(a)
	return cloneAccount(a), nil
}

func (r *stubAccountRepo) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.byID[id]; !ok {
		return domain.ErrAccountNotFound
	}
	delete(r.byID, id)
	return nil
}

// seed stores an account directly, bypassing the service.
func (r *stubAccountRepo) seed(t *testing.T, email, plaintext string, role domain.Role, active bool) *domain.Account {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(plaintext), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	created, err := r.Create(context.Background(), &domain.Account{
		Email:        email,
		FirstName:    "Seed",
		PasswordHash: string(hash),
		Role:         role,
		Active:       active,
	})
	if err != nil {
		t.Fatalf("seed %s: %v", email, err)
	}
	return created
}

type stubQueue struct {
	mu   sync.Mutex
	sent []ports.Notification
}

func (q *stubQueue) Enqueue(n ports.Notification) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.sent = append(q.sent, n)
}

func (q *stubQueue) kinds() []ports.NotificationKind {
	q.mu.Lock()
	defer q.mu.Unlock()
	out := make([]ports.NotificationKind, 0, len(q.sent))
	for _, n := range q.sent {
		out = append(out, n.Kind)
	}
	return out
}

type stubRegistry struct {
	mu      sync.Mutex
	current map[string]map[string]bool // subject -> jti set
	err     error
}

func newStubRegistry() *stubRegistry {
	return &stubRegistry{current: make(map[string]map[string]bool)}
}

func (r *stubRegistry) Register(_ context.Context, subject, id string, _ time.Duration) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return r.err
	}
	if r.current[subject] == nil {
		r.current[subject] = make(map[string]bool)
	}
	r.current[subject][id] = true
	return nil
}

func (r *stubRegistry) Rotate(_ context.Context, subject, oldID, newID string, _ time.Duration) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return false, r.err
	}
	if !r.current[subject][oldID] {
		return false, nil
	}
	delete(r.current[subject], oldID)
	r.current[subject][newID] = true
	return true, nil
}

func (r *stubRegistry) Revoke(_ context.Context, subject string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.current, subject)
	return nil
}

// ---------------------------------------------------------------------------
// Helpers
// ---------------------------------------------------------------------------

var testKey = []byte("session-test-signing-key")

type fixture struct {
	repo     *stubAccountRepo
	queue    *stubQueue
	codec    *token.Codec
	svc      *SessionManager
	registry *stubRegistry
}

func newFixture(t *testing.T, opts ...Option) *fixture {
	t.Helper()
	codec, err := token.NewCodec(testKey, 900*time.Second, time.Hour)
	if err != nil {
		t.Fatalf("NewCodec: %v", err)
	}
	repo := newStubAccountRepo()
	queue := &stubQueue{}
	opts = append([]Option{WithNotifications(queue)}, opts...)
	svc := NewSessionManager(repo, password.NewHasher(bcrypt.MinCost), codec, zerolog.Nop(), opts...)
	return &fixture{repo: repo, queue: queue, codec: codec, svc: svc}
}

func newFixtureWithRegistry(t *testing.T) *fixture {
	t.Helper()
	reg := newStubRegistry()
	f := newFixture(t, WithRefreshRegistry(reg))
	f.registry = reg
	return f
}

func (f *fixture) accessToken(t *testing.T, email string, role domain.Role) string {
	t.Helper()
	issued, err := f.codec.Mint(email, role, token.KindAccess)
	if err != nil {
		t.Fatalf("mint: %v", err)
	}
	return issued.Token
}

func strPtr(s string) *string { return &s }
func boolPtr(b bool) *bool    { return &b }

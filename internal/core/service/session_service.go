package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/maalej-ala/stage2-auth/internal/core/domain"
	"github.com/maalej-ala/stage2-auth/internal/core/ports"
	"github.com/maalej-ala/stage2-auth/internal/core/token"
)

// CredentialVerifier hashes and checks passwords.
type CredentialVerifier interface {
	Hash(plaintext string) (string, error)
	Verify(plaintext, storedHash string) bool
}

// TokenCodec mints and verifies bearer tokens.
type TokenCodec interface {
	MintPair(subject string, role domain.Role) (token.Pair, error)
	VerifyKind(raw string, kind token.Kind) (*token.Claims, error)
	AccessTTL() time.Duration
	RefreshTTL() time.Duration
}

// SessionManager runs every account flow: registration, login, refresh and
// the ADMIN-only account management operations.
type SessionManager struct {
	repo     ports.AccountRepository
	hasher   CredentialVerifier
	codec    TokenCodec
	registry ports.RefreshRegistry
	notify   ports.NotificationQueue
	log      zerolog.Logger
	now      func() time.Time
}

// Option customises a SessionManager.
type Option func(*SessionManager)

// WithRefreshRegistry enables refresh-token rotation tracking. Without it the
// manager is fully stateless and a rotated refresh token stays usable until
// its own expiry.
func WithRefreshRegistry(r ports.RefreshRegistry) Option {
	return func(s *SessionManager) { s.registry = r }
}

// WithNotifications sets the queue used for account lifecycle emails.
func WithNotifications(q ports.NotificationQueue) Option {
	return func(s *SessionManager) { s.notify = q }
}

// WithClock overrides the time source used for record timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *SessionManager) { s.now = now }
}

func NewSessionManager(repo ports.AccountRepository, hasher CredentialVerifier, codec TokenCodec, log zerolog.Logger, opts ...Option) *SessionManager {
	s := &SessionManager{
		repo:   repo,
		hasher: hasher,
		codec:  codec,
		log:    log,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Register creates an inactive USER account. No tokens are issued: the
// account cannot authenticate until an administrator activates it, so the
// returned session only carries the account view.
func (s *SessionManager) Register(ctx context.Context, in ports.RegisterInput) (*ports.Session, error) {
	if in.Email == "" || in.Password == "" {
		return nil, fmt.Errorf("register: %w", domain.ErrInvalidInput)
	}

	hash, err := s.hasher.Hash(in.Password)
	if err != nil {
		return nil, fmt.Errorf("register: %w", err)
	}

	now := s.now().UTC()
	created, err := s.repo.Create(ctx, &domain.Account{
		Email:        in.Email,
		FirstName:    in.FirstName,
		LastName:     in.LastName,
		PasswordHash: hash,
		Role:         domain.RoleUser,
		Active:       false,
		CreatedAt:    now,
		UpdatedAt:    now,
	})
	if err != nil {
		return nil, fmt.Errorf("register: %w", err)
	}

	s.dispatch(ports.NotifyRegistrationPending, created)

	s.log.Info().Str("account_id", created.ID).Msg("account registered, pending activation")
	return &ports.Session{
		User:      created.View(),
		ExpiresIn: int(s.codec.AccessTTL().Seconds()),
	}, nil
}

// Login authenticates by email and password. Unknown email and wrong password
// both yield ErrInvalidCredentials; the activation gate is only consulted once
// the password has been proven.
func (s *SessionManager) Login(ctx context.Context, in ports.LoginInput) (*ports.Session, error) {
	if in.Email == "" || in.Password == "" {
		return nil, domain.ErrInvalidCredentials
	}

	account, err := s.repo.FindByEmail(ctx, in.Email)
	if err != nil {
		if errors.Is(err, domain.ErrAccountNotFound) {
			return nil, domain.ErrInvalidCredentials
		}
		return nil, fmt.Errorf("login: %w", err)
	}

	if !s.hasher.Verify(in.Password, account.PasswordHash) {
		return nil, domain.ErrInvalidCredentials
	}
	if !account.Active {
		return nil, domain.ErrAccountInactive
	}

	session, pair, err := s.issue(account)
	if err != nil {
		return nil, fmt.Errorf("login: %w", err)
	}
	if s.registry != nil {
		if err := s.registry.Register(ctx, account.Email, pair.Refresh.ID, s.codec.RefreshTTL()); err != nil {
			return nil, fmt.Errorf("login: register refresh token: %w", err)
		}
	}

	s.log.Info().Str("account_id", account.ID).Msg("login succeeded")
	return session, nil
}

// Refresh exchanges a refresh token for a brand new access/refresh pair. The
// account is re-resolved so the new pair reflects its current role, and a
// deactivated account cannot refresh.
func (s *SessionManager) Refresh(ctx context.Context, refreshToken string) (*ports.Session, error) {
	claims, err := s.codec.VerifyKind(refreshToken, token.KindRefresh)
	if err != nil {
		s.log.Debug().Err(err).Msg("refresh token rejected")
		return nil, domain.ErrInvalidOrExpiredToken
	}

	account, err := s.repo.FindByEmail(ctx, claims.Subject)
	if err != nil {
		if errors.Is(err, domain.ErrAccountNotFound) {
			return nil, domain.ErrInvalidOrExpiredToken
		}
		return nil, fmt.Errorf("refresh: %w", err)
	}
	if !account.Active {
		return nil, domain.ErrAccountInactive
	}

	session, pair, err := s.issue(account)
	if err != nil {
		return nil, fmt.Errorf("refresh: %w", err)
	}
	if s.registry != nil {
		ok, err := s.registry.Rotate(ctx, account.Email, claims.ID, pair.Refresh.ID, s.codec.RefreshTTL())
		if err != nil {
			return nil, fmt.Errorf("refresh: rotate refresh token: %w", err)
		}
		if !ok {
			s.log.Warn().Str("account_id", account.ID).Str("jti", claims.ID).Msg("refresh token replayed or revoked")
			return nil, domain.ErrInvalidOrExpiredToken
		}
	}

	return session, nil
}

// Me returns the live public view of the caller.
func (s *SessionManager) Me(ctx context.Context, caller domain.Principal) (domain.AccountView, error) {
	account, err := s.repo.FindByEmail(ctx, caller.Subject)
	if err != nil {
		if errors.Is(err, domain.ErrAccountNotFound) {
			return domain.AccountView{}, domain.ErrUnauthorized
		}
		return domain.AccountView{}, fmt.Errorf("me: %w", err)
	}
	return account.View(), nil
}

// issue mints a token pair bound to the account's current email and role.
func (s *SessionManager) issue(account *domain.Account) (*ports.Session, token.Pair, error) {
	pair, err := s.codec.MintPair(account.Email, account.Role)
	if err != nil {
		return nil, token.Pair{}, fmt.Errorf("issue tokens: %w", err)
	}
	return &ports.Session{
		AccessToken:  pair.Access.Token,
		RefreshToken: pair.Refresh.Token,
		User:         account.View(),
		ExpiresIn:    int(s.codec.AccessTTL().Seconds()),
	}, pair, nil
}

// dispatch hands a notification to the background queue. It never blocks and
// never fails the calling flow.
func (s *SessionManager) dispatch(kind ports.NotificationKind, account *domain.Account) {
	if s.notify == nil {
		return
	}
	s.notify.Enqueue(ports.NewNotification(kind, account))
}

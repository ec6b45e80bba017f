package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/maalej-ala/stage2-auth/internal/core/domain"
	"github.com/maalej-ala/stage2-auth/internal/core/ports"
	"github.com/maalej-ala/stage2-auth/internal/core/token"
)

// CreateAccount creates an account with the caller-chosen role and activation
// state, then refreshes the caller's own session.
func (s *SessionManager) CreateAccount(ctx context.Context, callerToken string, in ports.CreateAccountInput) (domain.AccountView, *ports.Session, error) {
	claims, err := s.codec.VerifyKind(callerToken, token.KindAccess)
	if err != nil {
		return domain.AccountView{}, nil, domain.ErrUnauthorized
	}
	caller, err := s.requireAdmin(ctx, claims.Subject)
	if err != nil {
		return domain.AccountView{}, nil, err
	}

	if in.Email == "" || in.Password == "" {
		return domain.AccountView{}, nil, fmt.Errorf("create account: %w", domain.ErrInvalidInput)
	}
	role, err := domain.ParseRole(in.Role)
	if err != nil {
		return domain.AccountView{}, nil, fmt.Errorf("create account: %w", err)
	}

	hash, err := s.hasher.Hash(in.Password)
	if err != nil {
		return domain.AccountView{}, nil, fmt.Errorf("create account: %w", err)
	}

	now := s.now().UTC()
	created, err := s.repo.Create(ctx, &domain.Account{
		Email:        in.Email,
		FirstName:    in.FirstName,
		LastName:     in.LastName,
		PasswordHash: hash,
		Role:         role,
		Active:       in.Active,
		CreatedAt:    now,
		UpdatedAt:    now,
	})
	if err != nil {
		return domain.AccountView{}, nil, fmt.Errorf("create account: %w", err)
	}

	session, pair, err := s.issue(caller)
	if err != nil {
		return domain.AccountView{}, nil, fmt.Errorf("create account: %w", err)
	}
	if s.registry != nil {
		if err := s.registry.Register(ctx, caller.Email, pair.Refresh.ID, s.codec.RefreshTTL()); err != nil {
			return domain.AccountView{}, nil, fmt.Errorf("create account: register refresh token: %w", err)
		}
	}

	s.log.Info().
		Str("account_id", created.ID).
		Str("role", created.Role.String()).
		Bool("active", created.Active).
		Str("created_by", caller.ID).
		Msg("account created by administrator")
	return created.View(), session, nil
}

// ListAccounts returns every account's public view.
func (s *SessionManager) ListAccounts(ctx context.Context) ([]domain.AccountView, error) {
	accounts, err := s.repo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list accounts: %w", err)
	}
	return domain.Views(accounts), nil
}

// UpdateAccount applies a partial update and notifies the account holder when
// the activation flag flips.
func (s *SessionManager) UpdateAccount(ctx context.Context, caller domain.Principal, id string, in ports.UpdateAccountInput) (domain.AccountView, error) {
	if _, err := s.requireAdmin(ctx, caller.Subject); err != nil {
		return domain.AccountView{}, err
	}

	account, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return domain.AccountView{}, fmt.Errorf("update account: %w", err)
	}
	previousEmail := account.Email
	wasActive := account.Active

	if err := s.apply(account, in); err != nil {
		return domain.AccountView{}, fmt.Errorf("update account: %w", err)
	}
	account.UpdatedAt = s.now().UTC()

	updated, err := s.repo.Update(ctx, account)
	if err != nil {
		return domain.AccountView{}, fmt.Errorf("update account: %w", err)
	}

	switch {
	case !wasActive && updated.Active:
		s.dispatch(ports.NotifyAccountActivated, updated)
	case wasActive && !updated.Active:
		s.dispatch(ports.NotifyAccountDeactivated, updated)
		s.revoke(ctx, updated.Email)
	}
	if previousEmail != updated.Email {
		s.revoke(ctx, previousEmail)
	}

	s.log.Info().
		Str("account_id", updated.ID).
		Str("role", updated.Role.String()).
		Bool("active", updated.Active).
		Msg("account updated")
	return updated.View(), nil
}

// DeleteAccount permanently removes an account.
func (s *SessionManager) DeleteAccount(ctx context.Context, caller domain.Principal, id string) error {
	if _, err := s.requireAdmin(ctx, caller.Subject); err != nil {
		return err
	}

	account, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return fmt.Errorf("delete account: %w", err)
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return fmt.Errorf("delete account: %w", err)
	}
	s.revoke(ctx, account.Email)

	s.log.Info().Str("account_id", id).Msg("account deleted")
	return nil
}

func (s *SessionManager) apply(account *domain.Account, in ports.UpdateAccountInput) error {
	if in.FirstName != nil {
		account.FirstName = *in.FirstName
	}
	if in.LastName != nil {
		account.LastName = *in.LastName
	}
	if in.Email != nil && *in.Email != "" {
		account.Email = *in.Email
	}

	role := domain.RoleUser
	if in.Role != nil {
		parsed, err := domain.ParseRole(*in.Role)
		if err != nil {
			return err
		}
		role = parsed
	}
	account.Role = role

	if in.Active != nil {
		account.Active = *in.Active
	}
	if in.Password != "" {
		hash, err := s.hasher.Hash(in.Password)
		if err != nil {
			return err
		}
		account.PasswordHash = hash
	}
	return nil
}

// requireAdmin re-checks the live record behind a token subject: the account
// must still exist, be active and hold the ADMIN role.
func (s *SessionManager) requireAdmin(ctx context.Context, subject string) (*domain.Account, error) {
	account, err := s.repo.FindByEmail(ctx, subject)
	if err != nil {
		if errors.Is(err, domain.ErrAccountNotFound) {
			return nil, domain.ErrUnauthorized
		}
		return nil, fmt.Errorf("resolve caller: %w", err)
	}
	if !account.Active {
		return nil, domain.ErrAccountInactive
	}
	if account.Role != domain.RoleAdmin {
		return nil, domain.ErrForbidden
	}
	return account, nil
}

// revoke drops every refresh token tracked for subject. Failures are logged
// and absorbed.
func (s *SessionManager) revoke(ctx context.Context, subject string) {
	if s.registry == nil {
		return
	}
	if err := s.registry.Revoke(ctx, subject); err != nil {
		s.log.Warn().Err(err).Msg("failed to revoke refresh token")
	}
}

package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/maalej-ala/stage2-auth/internal/core/domain"
	"github.com/maalej-ala/stage2-auth/internal/core/ports"
)

// EnsureAdmin creates an active ADMIN account for in.Email unless an account
// with that email already exists. An existing account is left untouched.
// It reports whether an account was created.
func (s *SessionManager) EnsureAdmin(ctx context.Context, in ports.CreateAccountInput) (bool, error) {
	if in.Email == "" || in.Password == "" {
		return false, fmt.Errorf("ensure admin: %w", domain.ErrInvalidInput)
	}

	_, err := s.repo.FindByEmail(ctx, in.Email)
	if err == nil {
		return false, nil
	}
	if !errors.Is(err, domain.ErrAccountNotFound) {
		return false, fmt.Errorf("ensure admin: %w", err)
	}

	hash, err := s.hasher.Hash(in.Password)
	if err != nil {
		return false, fmt.Errorf("ensure admin: %w", err)
	}

	now := s.now().UTC()
	created, err := s.repo.Create(ctx, &domain.Account{
		Email:        in.Email,
		FirstName:    in.FirstName,
		LastName:     in.LastName,
		PasswordHash: hash,
		Role:         domain.RoleAdmin,
		Active:       true,
		CreatedAt:    now,
		UpdatedAt:    now,
	})
	if errors.Is(err, domain.ErrDuplicateEmail) {
		// Another instance won the race.
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("ensure admin: %w", err)
	}

	s.log.Info().Str("account_id", created.ID).Msg("bootstrap administrator created")
	return true, nil
}

package handler

import (
	"context"

	"github.com/maalej-ala/stage2-auth/internal/core/domain"
	"github.com/maalej-ala/stage2-auth/internal/core/ports"
)

type stubSessionService struct {
	registerFn func(ctx context.Context, in ports.RegisterInput) (*ports.Session, error)
	loginFn    func(ctx context.Context, in ports.LoginInput) (*ports.Session, error)
	refreshFn  func(ctx context.Context, refreshToken string) (*ports.Session, error)
	meFn       func(ctx context.Context, caller domain.Principal) (domain.AccountView, error)
}

func (s *stubSessionService) Register(ctx context.Context, in ports.RegisterInput) (*ports.Session, error) {
	return s.registerFn(ctx, in)
}

func (s *stubSessionService) Login(ctx context.Context, in ports.LoginInput) (*ports.Session, error) {
	return s.loginFn(ctx, in)
}

func (s *stubSessionService) Refresh(ctx context.Context, refreshToken string) (*ports.Session, error) {
	return s.refreshFn(ctx, refreshToken)
}

func (s *stubSessionService) Me(ctx context.Context, caller domain.Principal) (domain.AccountView, error) {
	return s.meFn(ctx, caller)
}

type stubAdminService struct {
	createFn func(ctx context.Context, callerToken string, in ports.CreateAccountInput) (domain.AccountView, *ports.Session, error)
	listFn   func(ctx context.Context) ([]domain.AccountView, error)
	updateFn func(ctx context.Context, caller domain.Principal, id string, in ports.UpdateAccountInput) (domain.AccountView, error)
	deleteFn func(ctx context.Context, caller domain.Principal, id string) error
}

func (s *stubAdminService) CreateAccount(ctx context.Context, callerToken string, in ports.CreateAccountInput) (domain.AccountView, *ports.Session, error) {
	return s.createFn(ctx, callerToken, in)
}

func (s *stubAdminService) ListAccounts(ctx context.Context) ([]domain.AccountView, error) {
	return s.listFn(ctx)
}

func (s *stubAdminService) UpdateAccount(ctx context.Context, caller domain.Principal, id string, in ports.UpdateAccountInput) (domain.AccountView, error) {
	return s.updateFn(ctx, caller, id, in)
}

func (s *stubAdminService) DeleteAccount(ctx context.Context, caller domain.Principal, id string) error {
	return s.deleteFn(ctx, caller, id)
}

var jane = domain.AccountView{ID: "1", Email: "jane@x.com", FirstName: "Jane", LastName: "Doe", Role: domain.RoleUser}

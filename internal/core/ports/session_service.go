package ports

import (
	"context"

	"github.com/maalej-ala/stage2-auth/internal/core/domain"
)

// RegisterInput carries a self-service registration.
type RegisterInput struct {
	FirstName string
	LastName  string
	Email     string
	Password  string
}

// LoginInput carries an email/password authentication attempt.
type LoginInput struct {
	Email    string
	Password string
}

// CreateAccountInput carries an administrator-initiated account creation.
type CreateAccountInput struct {
	FirstName string
	LastName  string
	Email     string
	Password  string
	Role      string
	Active    bool
}

// UpdateAccountInput carries a partial account update. Nil pointers leave the
// field unchanged, except Role which falls back to USER, and an empty
// Password which keeps the current hash.
type UpdateAccountInput struct {
	FirstName *string
	LastName  *string
	Email     *string
	Password  string
	Role      *string
	Active    *bool
}

// Session is the transient outcome of a successful authentication flow.
// Token fields are empty when no tokens were issued (registration).
type Session struct {
	AccessToken  string
	RefreshToken string
	User         domain.AccountView
	ExpiresIn    int
}

// SessionService runs the login, refresh and registration flows.
type SessionService interface {
	Register(ctx context.Context, in RegisterInput) (*Session, error)
	Login(ctx context.Context, in LoginInput) (*Session, error)
	Refresh(ctx context.Context, refreshToken string) (*Session, error)
	Me(ctx context.Context, caller domain.Principal) (domain.AccountView, error)
}

// AccountAdminService runs the ADMIN-only account management flows.
type AccountAdminService interface {
	// CreateAccount verifies callerToken itself and answers with a fresh
	// token pair for the caller, not for the created account.
	CreateAccount(ctx context.Context, callerToken string, in CreateAccountInput) (domain.AccountView, *Session, error)
	ListAccounts(ctx context.Context) ([]domain.AccountView, error)
	UpdateAccount(ctx context.Context, caller domain.Principal, id string, in UpdateAccountInput) (domain.AccountView, error)
	DeleteAccount(ctx context.Context, caller domain.Principal, id string) error
}

// Authorizer turns an Authorization header into a verified principal.
type Authorizer interface {
	Authorize(header string, required ...domain.Role) (domain.Principal, error)
}

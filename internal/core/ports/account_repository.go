package ports

import (
	"context"

	"github.com/maalej-ala/stage2-auth/internal/core/domain"
)

// AccountRepository is the durable keyed store of account records.
// Implementations must enforce email uniqueness at the store level and report
// violations as domain.ErrDuplicateEmail; missing records are reported as
// domain.ErrAccountNotFound.
type AccountRepository interface {
	Create(ctx context.Context, account *domain.Account) (*domain.Account, error)
	FindByEmail(ctx context.Context, email string) (*domain.Account, error)
	FindByID(ctx context.Context, id string) (*domain.Account, error)
	List(ctx context.Context) ([]*domain.Account, error)
	Update(ctx context.Context, account *domain.Account) (*domain.Account, error)
	Delete(ctx context.Context, id string) error
}

package service

import (
	"slices"
	"strings"

	"github.com/maalej-ala/stage2-auth/internal/core/domain"
	"github.com/maalej-ala/stage2-auth/internal/core/token"
)

// AccessVerifier verifies tokens of a given kind.
type AccessVerifier interface {
	VerifyKind(raw string, kind token.Kind) (*token.Claims, error)
}

// Gate authorizes requests purely from the access token's claims.
type Gate struct {
	codec AccessVerifier
}

func NewGate(codec AccessVerifier) *Gate {
	return &Gate{codec: codec}
}

// Authorize validates an Authorization header. When required roles are given
// the token's role claim must be one of them.
func (g *Gate) Authorize(header string, required ...domain.Role) (domain.Principal, error) {
	raw, err := BearerToken(header)
	if err != nil {
		return domain.Principal{}, err
	}

	claims, err := g.codec.VerifyKind(raw, token.KindAccess)
	if err != nil {
		return domain.Principal{}, domain.ErrInvalidOrExpiredToken
	}

	p := domain.Principal{Subject: claims.Subject, Role: claims.Role}
	if len(required) > 0 && !slices.Contains(required, p.Role) {
		return domain.Principal{}, domain.ErrForbidden
	}
	return p, nil
}

// BearerToken extracts the token from a "Bearer <token>" header value.
func BearerToken(header string) (string, error) {
	parts := strings.SplitN(strings.TrimSpace(header), " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
		return "", domain.ErrMissingAuthHeader
	}
	raw := strings.TrimSpace(parts[1])
	if raw == "" || strings.ContainsAny(raw, " \t") {
		return "", domain.ErrMissingAuthHeader
	}
	return raw, nil
}

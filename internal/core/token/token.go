// Package token mints and verifies the signed, self-describing bearer tokens
// handed out by the session flows.
//
// Tokens are HS256 JWTs carrying the subject (account email), the role claim,
// the token kind, a unique id and the issued-at/expiry timestamps. The signing
// key is fixed for the lifetime of a Codec; rotating it invalidates every
// outstanding token.
package token

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/maalej-ala/stage2-auth/internal/core/domain"
)

// Kind distinguishes access tokens from refresh tokens.
type Kind string

const (
	KindAccess  Kind = "access"
	KindRefresh Kind = "refresh"
)

var (
	ErrInvalidSignature = errors.New("token signature is invalid")
	ErrMalformed        = errors.New("token is malformed")
	ErrExpired          = errors.New("token is expired")
	ErrWrongKind        = errors.New("token kind mismatch")
	ErrEmptyKey         = errors.New("signing key must not be empty")
)

// Claims is the payload carried by every token.
type Claims struct {
	Role domain.Role `json:"role"`
	Kind Kind        `json:"typ"`
	jwt.RegisteredClaims
}

// Issued is a freshly minted token together with the claims worth keeping
// around without re-parsing it.
type Issued struct {
	Token     string
	ID        string
	ExpiresAt time.Time
}

// Pair is an access token and the refresh token minted alongside it.
type Pair struct {
	Access  Issued
	Refresh Issued
}

// Option customises a Codec.
type Option func(*Codec)

// WithClock overrides the time source used for issued-at, expiry and
// validation.
func WithClock(now func() time.Time) Option {
	return func(c *Codec) { c.now = now }
}

// Codec signs and verifies tokens with a single process-wide key.
type Codec struct {
	key        []byte
	accessTTL  time.Duration
	refreshTTL time.Duration
	now        func() time.Time
	parser     *jwt.Parser
}

// NewCodec builds a Codec. The key is copied so later mutation of the
// caller's slice cannot affect signing.
func NewCodec(key []byte, accessTTL, refreshTTL time.Duration, opts ...Option) (*Codec, error) {
	if len(key) == 0 {
		return nil, ErrEmptyKey
	}
	if accessTTL <= 0 || refreshTTL <= 0 {
		return nil, fmt.Errorf("token ttl must be positive (access=%s refresh=%s)", accessTTL, refreshTTL)
	}

	c := &Codec{
		key:        append([]byte(nil), key...),
		accessTTL:  accessTTL,
		refreshTTL: refreshTTL,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}

	c.parser = jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(func() time.Time { return c.now() }),
	)
	return c, nil
}

// AccessTTL is the lifetime of access tokens.
func (c *Codec) AccessTTL() time.Duration { return c.accessTTL }

// RefreshTTL is the lifetime of refresh tokens.
func (c *Codec) RefreshTTL() time.Duration { return c.refreshTTL }

func (c *Codec) ttl(kind Kind) (time.Duration, error) {
	switch kind {
	case KindAccess:
		return c.accessTTL, nil
	case KindRefresh:
		return c.refreshTTL, nil
	}
	return 0, fmt.Errorf("%w: unknown kind %q", ErrWrongKind, kind)
}

// Mint signs a token of the given kind for subject, with issued-at set to now
// and expiry to now plus the kind's TTL.
func (c *Codec) Mint(subject string, role domain.Role, kind Kind) (Issued, error) {
	if subject == "" {
		return Issued{}, fmt.Errorf("mint token: %w: empty subject", domain.ErrInvalidInput)
	}
	if !role.Valid() {
		return Issued{}, fmt.Errorf("mint token: %w", domain.ErrInvalidRole)
	}
	ttl, err := c.ttl(kind)
	if err != nil {
		return Issued{}, fmt.Errorf("mint token: %w", err)
	}

	now := c.now().UTC()
	id := uuid.NewString()
	claims := &Claims{
		Role: role,
		Kind: kind,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        id,
			Subject:   subject,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(c.key)
	if err != nil {
		return Issued{}, fmt.Errorf("sign token: %w", err)
	}
	return Issued{Token: signed, ID: id, ExpiresAt: claims.ExpiresAt.Time}, nil
}

// MintPair mints an access token and a refresh token for the same principal.
func (c *Codec) MintPair(subject string, role domain.Role) (Pair, error) {
	access, err := c.Mint(subject, role, KindAccess)
	if err != nil {
		return Pair{}, err
	}
	refresh, err := c.Mint(subject, role, KindRefresh)
	if err != nil {
		return Pair{}, err
	}
	return Pair{Access: access, Refresh: refresh}, nil
}

// Verify checks the signature first and only then the embedded claims,
// returning ErrInvalidSignature, ErrMalformed or ErrExpired on failure.
func (c *Codec) Verify(raw string) (*Claims, error) {
	if raw == "" {
		return nil, ErrMalformed
	}

	if err := c.verifySignature(raw); err != nil {
		return nil, err
	}

	claims := &Claims{}
	_, err := c.parser.ParseWithClaims(raw, claims, func(*jwt.Token) (any, error) {
		return c.key, nil
	})
	if err != nil {
		return nil, classify(err)
	}

	if claims.Subject == "" || !claims.Role.Valid() || claims.IssuedAt == nil {
		return nil, ErrMalformed
	}
	if claims.Kind != KindAccess && claims.Kind != KindRefresh {
		return nil, ErrMalformed
	}
	return claims, nil
}

// verifySignature checks the HMAC over the encoded header and payload before
// either is decoded, so any edit to them reports ErrInvalidSignature.
func (c *Codec) verifySignature(raw string) error {
	parts := strings.Split(raw, ".")
	if len(parts) != 3 {
		return ErrMalformed
	}
	sig, err := c.parser.DecodeSegment(parts[2])
	if err != nil {
		return ErrMalformed
	}
	if err := jwt.SigningMethodHS256.Verify(parts[0]+"."+parts[1], sig, c.key); err != nil {
		return ErrInvalidSignature
	}
	return nil
}

// VerifyKind is Verify plus a check that the token is of the expected kind.
func (c *Codec) VerifyKind(raw string, kind Kind) (*Claims, error) {
	claims, err := c.Verify(raw)
	if err != nil {
		return nil, err
	}
	if claims.Kind != kind {
		return nil, ErrWrongKind
	}
	return claims, nil
}

// classify maps jwt parser errors onto the codec's error set. The signature
// has already been checked by verifySignature, so an expired token with a bad
// signature never gets here.
func classify(err error) error {
	switch {
	case errors.Is(err, jwt.ErrTokenMalformed):
		return ErrMalformed
	case errors.Is(err, jwt.ErrTokenSignatureInvalid), errors.Is(err, jwt.ErrTokenUnverifiable):
		return ErrInvalidSignature
	case errors.Is(err, jwt.ErrTokenExpired):
		return ErrExpired
	}
	return ErrMalformed
}

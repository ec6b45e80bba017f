package domain

import "errors"

// Validation failures (4xx with a user-safe message).
var (
	ErrDuplicateEmail  = errors.New("email already in use")
	ErrInvalidInput    = errors.New("invalid input")
	ErrInvalidRole     = errors.New("invalid role")
	ErrAccountNotFound = errors.New("account not found")
)

// Authentication failures (401). Messages never reveal which factor failed.
var (
	ErrInvalidCredentials    = errors.New("invalid credentials")
	ErrAccountInactive       = errors.New("account is not active")
	ErrInvalidOrExpiredToken = errors.New("invalid or expired token")
	ErrMissingAuthHeader     = errors.New("missing or invalid authorization header")
	ErrUnauthorized          = errors.New("unauthorized")
)

// Authorization failures (403).
var ErrForbidden = errors.New("access forbidden")

// Package common defines shared constants and sentinel errors used across
// romvault layers. Callers should use errors.Is to match these values.
package common

import "errors"

var (
	// Repository-level errors.
	ErrorNotFound      = errors.New("not found")
	ErrNoRowsAffected  = errors.New("no rows affected")
	ErrorAlreadyExists = errors.New("already exists")

	// Service-level errors.
	ErrorInternal     = errors.New("internal error")
	ErrorUnauthorized = errors.New("unauthorized")
	ErrorBadRequest   = errors.New("bad request")

	// Token codec errors. The codec never reports why a token was rejected.
	ErrInvalidToken = errors.New("invalid token")

	// Password hasher errors.
	ErrInvalidHash = errors.New("invalid password hash")
	ErrLegacyHash  = errors.New("legacy password hash")
)

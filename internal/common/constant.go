// Package common contains shared constants and sentinel errors used across
// romvault components.
package common

const (
	// RefreshTokenCookieName carries the refresh token between client and server.
	RefreshTokenCookieName = "refresh-tok"

	// RefreshTokenPath is the only path the refresh cookie is sent to.
	RefreshTokenPath = "/api/tokens/refresh"

	// BearerScheme is the Authorization scheme expected by protected routes.
	BearerScheme = "Bearer"
)

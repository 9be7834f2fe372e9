// Package models defines server-side data models.
package models

import "time"

// User is one row of the credential store.
type User struct {
	ID           int64
	UserName     string
	PasswordHash string
	// TokenID and TokenSlug form the current refresh rotation slot.
	// Both are empty until the first login.
	TokenID          string
	TokenSlug        string
	StoragePartition string
	CreatedAt        time.Time
}

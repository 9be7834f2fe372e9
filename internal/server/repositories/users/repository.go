// Package users is the credential store: one row per user holding the
// password hash, the current refresh rotation slot and the storage partition.
package users

import (
	"context"

	"github.com/dmitrijs2005/romvault/internal/server/models"
)

type Repository interface {
	// Create inserts a new user and fills in ID and CreatedAt.
	Create(ctx context.Context, user *models.User) (*models.User, error)

	// GetUserByLogin returns common.ErrorNotFound for an unknown username.
	GetUserByLogin(ctx context.Context, login string) (*models.User, error)

	// RotateTokenSlot replaces the user's rotation slot in a single UPDATE.
	// It returns common.ErrNoRowsAffected if the row was not updated.
	RotateTokenSlot(ctx context.Context, userID int64, tokenID, tokenSlug string) error

	// GetTokenSlug returns the slug of the slot currently stored under
	// tokenID, or common.ErrorNotFound.
	GetTokenSlug(ctx context.Context, tokenID string) (string, error)
}

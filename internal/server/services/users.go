package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/romvault/internal/common"
	"github.com/dmitrijs2005/romvault/internal/server/models"
	"github.com/dmitrijs2005/romvault/internal/server/repositories/repomanager"
	"github.com/google/uuid"
)

// PasswordHasher derives a storable hash from a plaintext password.
type PasswordHasher interface {
	Hash(password string) (string, error)
}

// UserService provisions accounts. There is no self-service registration;
// it is driven by the useradd command.
type UserService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	hasher      PasswordHasher
	newID       func() string
}

func NewUserService(db *sql.DB, m repomanager.RepositoryManager, hasher PasswordHasher) *UserService {
	return &UserService{
		db:          db,
		repomanager: m,
		hasher:      hasher,
		newID:       uuid.NewString,
	}
}

// CreateUser hashes password and stores a new user with a fresh storage
// partition. A taken username yields common.ErrorAlreadyExists.
func (s *UserService) CreateUser(ctx context.Context, userName, password string) (*models.User, error) {
	if userName == "" || password == "" {
		return nil, common.ErrorBadRequest
	}

	hash, err := s.hasher.Hash(password)
	if err != nil {
		return nil, fmt.Errorf("error hashing password: %w", err)
	}

	user := &models.User{
		UserName:         userName,
		PasswordHash:     hash,
		StoragePartition: s.newID(),
	}

	u, err := s.repomanager.Users(s.db).Create(ctx, user)
	if err != nil {
		if errors.Is(err, common.ErrorAlreadyExists) {
			return nil, err
		}
		return nil, fmt.Errorf("error creating user: %w", err)
	}
	return u, nil
}

package services

import (
	"context"
	"database/sql"
	"sync"

	"github.com/dmitrijs2005/romvault/internal/common"
	"github.com/dmitrijs2005/romvault/internal/dbx"
	"github.com/dmitrijs2005/romvault/internal/server/models"
	usersrepo "github.com/dmitrijs2005/romvault/internal/server/repositories/users"
)

// memUsers is an in-memory credential store keyed by username.
type memUsers struct {
	mu     sync.Mutex
	byName map[string]*models.User
	nextID int64

	getErr    error
	rotateErr error
	slugErr   error
	createErr error
	rotations int
}

func newMemUsers() *memUsers {
	return &memUsers{byName: map[string]*models.User{}}
}

func (m *memUsers) add(u models.User) *models.User {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	u.ID = m.nextID
	m.byName[u.UserName] = &u
	return &u
}

func (m *memUsers) Create(ctx context.Context, u *models.User) (*models.User, error) {
	if m.createErr != nil {
		return nil, m.createErr
	}
	if _, ok := m.byName[u.UserName]; ok {
		return nil, common.ErrorAlreadyExists
	}
	return m.add(*u), nil
}

func (m *memUsers) GetUserByLogin(ctx context.Context, login string) (*models.User, error) {
	if m.getErr != nil {
		return nil, m.getErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.byName[login]
	if !ok {
		return nil, common.ErrorNotFound
	}
	cp := *u
	return &cp, nil
}

func (m *memUsers) RotateTokenSlot(ctx context.Context, userID int64, tokenID, tokenSlug string) error {
	if m.rotateErr != nil {
		return m.rotateErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.byName {
		if u.ID == userID {
			u.TokenID, u.TokenSlug = tokenID, tokenSlug
			m.rotations++
			return nil
		}
	}
	return common.ErrNoRowsAffected
}

func (m *memUsers) GetTokenSlug(ctx context.Context, tokenID string) (string, error) {
	if m.slugErr != nil {
		return "", m.slugErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.byName {
		if u.TokenID == tokenID && u.TokenSlug != "" {
			return u.TokenSlug, nil
		}
	}
	return "", common.ErrorNotFound
}

type fakeRepoManager struct {
	u *memUsers
}

func (m *fakeRepoManager) RunMigrations(context.Context, *sql.DB) error { return nil }
func (m *fakeRepoManager) Users(db dbx.DBTX) usersrepo.Repository      { return m.u }

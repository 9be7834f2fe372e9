package services

import (
	"context"
	"errors"
	"testing"

	"github.com/dmitrijs2005/romvault/internal/common"
	"github.com/dmitrijs2005/romvault/internal/server/auth"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubHasher struct {
	out string
	err error
}

func (h stubHasher) Hash(string) (string, error) { return h.out, h.err }

func TestCreateUser_Success(t *testing.T) {
	users := newMemUsers()
	svc := NewUserService(nil, &fakeRepoManager{u: users}, stubHasher{out: "c2FsdA==:ZGlnZXN0"})
	svc.newID = func() string { return "part-1" }

	u, err := svc.CreateUser(context.Background(), "alice", "pw")
	require.NoError(t, err)
	assert.Equal(t, "alice", u.UserName)
	assert.Equal(t, "c2FsdA==:ZGlnZXN0", u.PasswordHash)
	assert.Equal(t, "part-1", u.StoragePartition)
	assert.NotZero(t, u.ID)
}

func TestCreateUser_HashVerifiesWithHasher(t *testing.T) {
	users := newMemUsers()
	h := auth.NewHasher()
	svc := NewUserService(nil, &fakeRepoManager{u: users}, h)

	u, err := svc.CreateUser(context.Background(), "carol", "s3cret")
	require.NoError(t, err)
	assert.NotEmpty(t, u.StoragePartition)
	assert.NotContains(t, u.StoragePartition, "carol")

	ok, err := h.Verify("s3cret", u.PasswordHash)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestCreateUser_PartitionsAreUnique(t *testing.T) {
	users := newMemUsers()
	svc := NewUserService(nil, &fakeRepoManager{u: users}, stubHasher{out: "h"})

	a, err := svc.CreateUser(context.Background(), "a", "pw")
	require.NoError(t, err)
	b, err := svc.CreateUser(context.Background(), "b", "pw")
	require.NoError(t, err)
	assert.NotEqual(t, a.StoragePartition, b.StoragePartition)
}

func TestCreateUser_Errors(t *testing.T) {
	t.Run("missing fields", func(t *testing.T) {
		svc := NewUserService(nil, &fakeRepoManager{u: newMemUsers()}, stubHasher{out: "h"})
		_, err := svc.CreateUser(context.Background(), "", "pw")
		require.ErrorIs(t, err, common.ErrorBadRequest)
		_, err = svc.CreateUser(context.Background(), "alice", "")
		require.ErrorIs(t, err, common.ErrorBadRequest)
	})

	t.Run("hash error", func(t *testing.T) {
		svc := NewUserService(nil, &fakeRepoManager{u: newMemUsers()}, stubHasher{err: errors.New("rng")})
		_, err := svc.CreateUser(context.Background(), "alice", "pw")
		require.ErrorContains(t, err, "error hashing password")
	})

	t.Run("duplicate", func(t *testing.T) {
		users := newMemUsers()
		svc := NewUserService(nil, &fakeRepoManager{u: users}, stubHasher{out: "h"})
		_, err := svc.CreateUser(context.Background(), "alice", "pw")
		require.NoError(t, err)
		_, err = svc.CreateUser(context.Background(), "alice", "pw2")
		require.ErrorIs(t, err, common.ErrorAlreadyExists)
	})

	t.Run("db error", func(t *testing.T) {
		users := newMemUsers()
		users.createErr = errors.New("db error: boom")
		svc := NewUserService(nil, &fakeRepoManager{u: users}, stubHasher{out: "h"})
		_, err := svc.CreateUser(context.Background(), "alice", "pw")
		require.ErrorContains(t, err, "error creating user")
	})
}

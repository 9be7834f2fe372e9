package httpapi

import (
	"context"
	"database/sql"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/dmitrijs2005/romvault/internal/common"
	"github.com/dmitrijs2005/romvault/internal/dbx"
	"github.com/dmitrijs2005/romvault/internal/logging"
	"github.com/dmitrijs2005/romvault/internal/server/auth"
	"github.com/dmitrijs2005/romvault/internal/server/metrics"
	"github.com/dmitrijs2005/romvault/internal/server/models"
	usersrepo "github.com/dmitrijs2005/romvault/internal/server/repositories/users"
	"github.com/dmitrijs2005/romvault/internal/server/services"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// memUsers keeps users in a map and behaves like the postgres repository.
type memUsers struct {
	mu     sync.Mutex
	byName map[string]*models.User
	nextID int64
}

func (m *memUsers) Create(ctx context.Context, u *models.User) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.byName[u.UserName]; ok {
		return nil, common.ErrorAlreadyExists
	}
	m.nextID++
	cp := *u
	cp.ID = m.nextID
	m.byName[cp.UserName] = &cp
	return &cp, nil
}

func (m *memUsers) GetUserByLogin(ctx context.Context, login string) (*models.User, error) {
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
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.byName {
		if u.ID == userID {
			u.TokenID, u.TokenSlug = tokenID, tokenSlug
			return nil
		}
	}
	return common.ErrNoRowsAffected
}

func (m *memUsers) GetTokenSlug(ctx context.Context, tokenID string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.byName {
		if u.TokenID == tokenID && u.TokenSlug != "" {
			return u.TokenSlug, nil
		}
	}
	return "", common.ErrorNotFound
}

type memRepoManager struct {
	users *memUsers
}

func (m *memRepoManager) RunMigrations(context.Context, *sql.DB) error { return nil }
func (m *memRepoManager) Users(dbx.DBTX) usersrepo.Repository      { return m.users }

func newSessionFlowRouter(t *testing.T) (*echo.Echo, *stubBlobs) {
	t.Helper()
	rm := &memRepoManager{users: &memUsers{byName: map[string]*models.User{}}}
	hasher := auth.NewHasher()

	_, err := services.NewUserService(nil, rm, hasher).CreateUser(context.Background(), "alice", "correct-password")
	require.NoError(t, err)

	codec := auth.NewCodec(auth.CodecConfig{AccessTTL: 5 * time.Minute, RefreshTTL: 7 * time.Hour})
	mtr := metrics.NewNop()
	sessions := services.NewSessionService(nil, rm, codec, hasher, "0123456789abcdef0123456789abcdef", mtr, logging.Nop())

	blobs := &stubBlobs{}
	return NewRouter(Options{}, sessions, sessions, blobs, mtr, logging.Nop()), blobs
}

func serve(e *echo.Echo, req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func buildLoginRequest(user, pass string) *http.Request {
	req := httptest.NewRequest(http.MethodPost, "/api/account/login",
		strings.NewReader(`{"username":"`+user+`","password":"`+pass+`"}`))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	return req
}

func refreshCookieFrom(t *testing.T, rec *httptest.ResponseRecorder) *http.Cookie {
	t.Helper()
	for _, c := range rec.Result().Cookies() {
		if c.Name == common.RefreshTokenCookieName {
			return c
		}
	}
	t.Fatalf("no %s cookie in response", common.RefreshTokenCookieName)
	return nil
}

func refreshWith(cookie *http.Cookie) *http.Request {
	req := httptest.NewRequest(http.MethodPost, "/api/tokens/refresh", nil)
	req.AddCookie(&http.Cookie{Name: cookie.Name, Value: cookie.Value})
	return req
}

func TestSessionFlow_LoginRefreshAndReplay(t *testing.T) {
	e, blobs := newSessionFlowRouter(t)

	rec := serve(e, buildLoginRequest("alice", "correct-password"))
	require.Equal(t, http.StatusOK, rec.Code)
	access := rec.Body.String()
	require.NotEmpty(t, access)
	first := refreshCookieFrom(t, rec)
	assert.Equal(t, 25200, first.MaxAge)
	assert.Equal(t, common.RefreshTokenPath, first.Path)

	req := httptest.NewRequest(http.MethodGet, "/api/rom", nil)
	req.Header.Set(echo.HeaderAuthorization, "Bearer "+access)
	rec = serve(e, req)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.NotEmpty(t, blobs.listPartition)

	rec = serve(e, refreshWith(first))
	require.Equal(t, http.StatusOK, rec.Code)
	refreshed := rec.Body.String()
	assert.NotEmpty(t, refreshed)
	assert.Empty(t, rec.Header().Get("Set-Cookie"))

	req = httptest.NewRequest(http.MethodGet, "/api/save", nil)
	req.Header.Set(echo.HeaderAuthorization, "Bearer "+refreshed)
	rec = serve(e, req)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = serve(e, buildLoginRequest("alice", "correct-password"))
	require.Equal(t, http.StatusOK, rec.Code)
	second := refreshCookieFrom(t, rec)
	assert.NotEqual(t, first.Value, second.Value)

	rec = serve(e, refreshWith(first))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = serve(e, refreshWith(second))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestSessionFlow_UnauthorizedLoginsLookAlike(t *testing.T) {
	e, _ := newSessionFlowRouter(t)

	unknown := serve(e, buildLoginRequest("bob", "whatever"))
	wrong := serve(e, buildLoginRequest("alice", "wrong-password"))

	require.Equal(t, http.StatusUnauthorized, unknown.Code)
	require.Equal(t, http.StatusUnauthorized, wrong.Code)
	assert.Empty(t, unknown.Header().Get("Set-Cookie"))
	assert.Empty(t, wrong.Header().Get("Set-Cookie"))

	u, w := decodeError(t, unknown), decodeError(t, wrong)
	assert.Equal(t, u.Error, w.Error)
}

package services

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/dmitrijs2005/romvault/internal/common"
	"github.com/dmitrijs2005/romvault/internal/logging"
	"github.com/dmitrijs2005/romvault/internal/server/auth"
	"github.com/dmitrijs2005/romvault/internal/server/metrics"
	"github.com/dmitrijs2005/romvault/internal/server/repositories/repomanager"
	"github.com/google/uuid"
)

// slugBytes is the entropy of a rotation slot secret.
const slugBytes = 32

// PasswordVerifier checks a plaintext password against a stored hash.
type PasswordVerifier interface {
	Verify(password, stored string) (bool, error)
}

// Session is the result of a successful login.
type Session struct {
	AccessToken  string
	RefreshToken string
	// RefreshTTL is the refresh token lifetime, used as the cookie Max-Age.
	RefreshTTL time.Duration
}

// SessionService implements login, refresh and bearer authorization.
// It keeps no per-request state; the rotation slot lives in the users table.
type SessionService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	codec       *auth.Codec
	hasher      PasswordVerifier
	secret      []byte
	decoyHash   string
	metrics     *metrics.Metrics
	log         logging.Logger

	newTokenID func() string
	newSlug    func() (string, error)
}

func NewSessionService(db *sql.DB, m repomanager.RepositoryManager, codec *auth.Codec, hasher PasswordVerifier,
	secret string, mtr *metrics.Metrics, log logging.Logger) *SessionService {
	return &SessionService{
		db:          db,
		repomanager: m,
		codec:       codec,
		hasher:      hasher,
		secret:      []byte(secret),
		decoyHash:   auth.DecoyHash(),
		metrics:     mtr,
		log:         log.With("component", "session"),
		newTokenID:  uuid.NewString,
		newSlug:     func() (string, error) { return common.MakeRandHexString(slugBytes) },
	}
}

// Login verifies credentials, rotates the user's refresh slot and mints a
// token pair. Unknown users and wrong passwords both yield ErrorUnauthorized.
func (s *SessionService) Login(ctx context.Context, userName, password string) (*Session, error) {
	sess, result, err := s.login(ctx, userName, password)
	s.metrics.Logins.WithLabelValues(result).Inc()
	return sess, err
}

func (s *SessionService) login(ctx context.Context, userName, password string) (*Session, string, error) {
	if userName == "" || password == "" {
		return nil, metrics.ResultBadRequest, common.ErrorBadRequest
	}

	repo := s.repomanager.Users(s.db)

	user, err := repo.GetUserByLogin(ctx, userName)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			// same hashing cost as a wrong password
			_, _ = s.hasher.Verify(password, s.decoyHash)
			s.log.Info(ctx, "login rejected", "user", userName, "reason", "unknown user")
			return nil, metrics.ResultUnauthorized, common.ErrorUnauthorized
		}
		s.log.Error(ctx, "login lookup failed", "user", userName, "error", err)
		return nil, metrics.ResultError, common.ErrorInternal
	}

	ok, err := s.hasher.Verify(password, user.PasswordHash)
	switch {
	case errors.Is(err, common.ErrLegacyHash):
		s.log.Warn(ctx, "login rejected", "user", userName, "reason", "password hash needs migration")
		return nil, metrics.ResultUnauthorized, common.ErrorUnauthorized
	case err != nil:
		s.log.Error(ctx, "login rejected", "user", userName, "reason", "malformed password hash", "error", err)
		return nil, metrics.ResultUnauthorized, common.ErrorUnauthorized
	case !ok:
		s.log.Info(ctx, "login rejected", "user", userName, "reason", "wrong password")
		return nil, metrics.ResultUnauthorized, common.ErrorUnauthorized
	}

	tokenID := s.newTokenID()
	slug, err := s.newSlug()
	if err != nil {
		s.log.Error(ctx, "slot secret generation failed", "error", err)
		return nil, metrics.ResultError, common.ErrorInternal
	}

	if err := repo.RotateTokenSlot(ctx, user.ID, tokenID, slug); err != nil {
		s.log.Error(ctx, "slot rotation failed", "user_id", user.ID, "error", err)
		return nil, metrics.ResultError, common.ErrorInternal
	}

	access, err := s.codec.SignAccess(user.StoragePartition, s.secret)
	if err != nil {
		s.log.Error(ctx, "access token signing failed", "error", err)
		return nil, metrics.ResultError, common.ErrorInternal
	}

	refresh, err := s.codec.SignRefresh(tokenID, user.StoragePartition, []byte(slug))
	if err != nil {
		s.log.Error(ctx, "refresh token signing failed", "error", err)
		return nil, metrics.ResultError, common.ErrorInternal
	}

	s.log.Info(ctx, "login ok", "user_id", user.ID)

	return &Session{
		AccessToken:  access,
		RefreshToken: refresh,
		RefreshTTL:   s.codec.RefreshTTL(),
	}, metrics.ResultOK, nil
}

// Refresh exchanges a refresh token for a new access token. The refresh
// token is checked against the slot currently on file for its subject, and
// is never rotated or extended here.
func (s *SessionService) Refresh(ctx context.Context, refreshToken string) (string, error) {
	access, result, err := s.refresh(ctx, refreshToken)
	s.metrics.Refreshes.WithLabelValues(result).Inc()
	return access, err
}

func (s *SessionService) refresh(ctx context.Context, refreshToken string) (string, string, error) {
	if refreshToken == "" {
		s.log.Info(ctx, "refresh rejected", "reason", "missing token")
		return "", metrics.ResultUnauthorized, common.ErrorUnauthorized
	}

	tokenID, err := s.codec.RefreshSubject(refreshToken)
	if err != nil {
		s.log.Info(ctx, "refresh rejected", "reason", "malformed token")
		return "", metrics.ResultUnauthorized, common.ErrorUnauthorized
	}

	slug, err := s.repomanager.Users(s.db).GetTokenSlug(ctx, tokenID)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			s.log.Info(ctx, "refresh rejected", "reason", "unknown or rotated slot")
			return "", metrics.ResultUnauthorized, common.ErrorUnauthorized
		}
		s.log.Error(ctx, "refresh slot lookup failed", "error", err)
		return "", metrics.ResultError, common.ErrorInternal
	}

	claims, err := s.codec.VerifyRefresh(refreshToken, []byte(slug))
	if err != nil {
		s.log.Info(ctx, "refresh rejected", "reason", "bad signature or expired")
		return "", metrics.ResultUnauthorized, common.ErrorUnauthorized
	}

	access, err := s.codec.SignAccess(claims.Store, s.secret)
	if err != nil {
		s.log.Error(ctx, "access token signing failed", "error", err)
		return "", metrics.ResultError, common.ErrorInternal
	}
	return access, metrics.ResultOK, nil
}

// Authorize verifies a bearer access token and returns the storage partition
// it grants access to.
func (s *SessionService) Authorize(ctx context.Context, accessToken string) (string, error) {
	claims, err := s.codec.VerifyAccess(accessToken, s.secret)
	if err != nil {
		s.log.Debug(ctx, "bearer token rejected")
		return "", common.ErrorUnauthorized
	}
	return claims.Store, nil
}

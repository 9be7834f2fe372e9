package auth

import (
	"errors"
	"time"

	"github.com/dmitrijs2005/romvault/internal/common"
	"github.com/golang-jwt/jwt/v5"
)

var errEmptyKey = errors.New("empty signing key")

// AccessClaims is the complete claim set of an access token.
type AccessClaims struct {
	Store     string           `json:"store"`
	ExpiresAt *jwt.NumericDate `json:"exp"`
}

// RefreshClaims is the complete claim set of a refresh token. Subject is the
// rotation slot id the token was issued under.
type RefreshClaims struct {
	Subject   string           `json:"sub"`
	Store     string           `json:"store"`
	ExpiresAt *jwt.NumericDate `json:"exp"`
}

func (c AccessClaims) GetExpirationTime() (*jwt.NumericDate, error) { return c.ExpiresAt, nil }
func (c AccessClaims) GetIssuedAt() (*jwt.NumericDate, error)       { return nil, nil }
func (c AccessClaims) GetNotBefore() (*jwt.NumericDate, error)      { return nil, nil }
func (c AccessClaims) GetIssuer() (string, error)                   { return "", nil }
func (c AccessClaims) GetSubject() (string, error)                  { return "", nil }
func (c AccessClaims) GetAudience() (jwt.ClaimStrings, error)       { return nil, nil }

func (c RefreshClaims) GetExpirationTime() (*jwt.NumericDate, error) { return c.ExpiresAt, nil }
func (c RefreshClaims) GetIssuedAt() (*jwt.NumericDate, error)       { return nil, nil }
func (c RefreshClaims) GetNotBefore() (*jwt.NumericDate, error)      { return nil, nil }
func (c RefreshClaims) GetIssuer() (string, error)                   { return "", nil }
func (c RefreshClaims) GetSubject() (string, error)                  { return c.Subject, nil }
func (c RefreshClaims) GetAudience() (jwt.ClaimStrings, error)       { return nil, nil }

// CodecConfig configures token lifetimes. Now defaults to time.Now.
type CodecConfig struct {
	AccessTTL  time.Duration
	RefreshTTL time.Duration
	Now        func() time.Time
}

// Codec signs and verifies HS256 JWTs. Keys are passed per call: access
// tokens use the process-wide secret, refresh tokens use the slug of the
// rotation slot they belong to.
type Codec struct {
	cfg CodecConfig
}

func NewCodec(cfg CodecConfig) *Codec {
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &Codec{cfg: cfg}
}

func (c *Codec) RefreshTTL() time.Duration { return c.cfg.RefreshTTL }

// SignAccess mints an access token for the storage partition store.
func (c *Codec) SignAccess(store string, secret []byte) (string, error) {
	claims := AccessClaims{
		Store:     store,
		ExpiresAt: jwt.NewNumericDate(c.cfg.Now().Add(c.cfg.AccessTTL)),
	}
	return sign(claims, secret)
}

// SignRefresh mints a refresh token bound to rotation slot tokenID.
func (c *Codec) SignRefresh(tokenID, store string, slotSecret []byte) (string, error) {
	claims := RefreshClaims{
		Subject:   tokenID,
		Store:     store,
		ExpiresAt: jwt.NewNumericDate(c.cfg.Now().Add(c.cfg.RefreshTTL)),
	}
	return sign(claims, slotSecret)
}

// VerifyAccess checks structure, signature and expiry. Any failure is
// reported as common.ErrInvalidToken.
func (c *Codec) VerifyAccess(token string, secret []byte) (*AccessClaims, error) {
	claims := &AccessClaims{}
	if err := c.parse(token, claims, secret); err != nil {
		return nil, err
	}
	if claims.Store == "" {
		return nil, common.ErrInvalidToken
	}
	return claims, nil
}

// VerifyRefresh is VerifyAccess for refresh tokens.
func (c *Codec) VerifyRefresh(token string, slotSecret []byte) (*RefreshClaims, error) {
	claims := &RefreshClaims{}
	if err := c.parse(token, claims, slotSecret); err != nil {
		return nil, err
	}
	if claims.Subject == "" || claims.Store == "" {
		return nil, common.ErrInvalidToken
	}
	return claims, nil
}

// RefreshSubject decodes the slot id of a refresh token WITHOUT checking
// its signature. The result only selects which slot secret to verify with.
func (c *Codec) RefreshSubject(token string) (string, error) {
	claims := &RefreshClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return "", common.ErrInvalidToken
	}
	if claims.Subject == "" {
		return "", common.ErrInvalidToken
	}
	return claims.Subject, nil
}

func (c *Codec) parse(token string, claims jwt.Claims, key []byte) error {
	if len(key) == 0 {
		return common.ErrInvalidToken
	}

	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(c.cfg.Now),
	)

	tok, err := parser.ParseWithClaims(token, claims, func(*jwt.Token) (any, error) {
		return key, nil
	})
	if err != nil || !tok.Valid {
		return common.ErrInvalidToken
	}
	return nil
}

func sign(claims jwt.Claims, key []byte) (string, error) {
	if len(key) == 0 {
		return "", errEmptyKey
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(key)
}

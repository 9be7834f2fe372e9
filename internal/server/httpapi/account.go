package httpapi

import (
	"context"
	"net/http"
	"time"

	"github.com/dmitrijs2005/romvault/internal/common"
	"github.com/dmitrijs2005/romvault/internal/server/services"
	"github.com/labstack/echo/v4"
)

// SessionManager runs the login and refresh protocol.
type SessionManager interface {
	Login(ctx context.Context, userName, password string) (*services.Session, error)
	Refresh(ctx context.Context, refreshToken string) (string, error)
}

type AccountHandler struct {
	sessions SessionManager
}

func NewAccountHandler(s SessionManager) *AccountHandler { return &AccountHandler{sessions: s} }

type loginRequest struct {
	UserName string `json:"username"`
	Password string `json:"password"`
}

// Login answers with the access token as the body and the refresh token in
// a cookie only sent back to the refresh endpoint.
func (h *AccountHandler) Login(c echo.Context) error {
	req := new(loginRequest)
	if err := c.Bind(req); err != nil {
		return errorJSON(c, http.StatusBadRequest, "bad_request", "invalid payload")
	}
	if req.UserName == "" || req.Password == "" {
		return errorJSON(c, http.StatusBadRequest, "bad_request", "username and password are required")
	}

	sess, err := h.sessions.Login(c.Request().Context(), req.UserName, req.Password)
	if err != nil {
		return writeError(c, err)
	}

	c.SetCookie(refreshCookie(sess.RefreshToken, sess.RefreshTTL))
	return c.String(http.StatusOK, sess.AccessToken)
}

// Logout clears the refresh cookie. Server-side state is untouched.
func (h *AccountHandler) Logout(c echo.Context) error {
	c.SetCookie(clearedRefreshCookie())
	return c.NoContent(http.StatusOK)
}

// Refresh mints a new access token from the refresh cookie.
func (h *AccountHandler) Refresh(c echo.Context) error {
	cookie, err := c.Cookie(common.RefreshTokenCookieName)
	if err != nil || cookie.Value == "" {
		return errorJSON(c, http.StatusUnauthorized, "unauthorized", "unauthorized")
	}

	access, err := h.sessions.Refresh(c.Request().Context(), cookie.Value)
	if err != nil {
		return writeError(c, err)
	}
	return c.String(http.StatusOK, access)
}

func refreshCookie(token string, ttl time.Duration) *http.Cookie {
	return &http.Cookie{
		Name:     common.RefreshTokenCookieName,
		Value:    token,
		Path:     common.RefreshTokenPath,
		MaxAge:   int(ttl / time.Second),
		HttpOnly: true,
		Secure:   true,
		SameSite: http.SameSiteStrictMode,
	}
}

// clearedRefreshCookie has a negative MaxAge, which net/http writes as
// "Max-Age=0".
func clearedRefreshCookie() *http.Cookie {
	c := refreshCookie("", 0)
	c.MaxAge = -1
	return c
}

package httpapi

import (
	"context"
	"net/http"
	"strings"

	"github.com/dmitrijs2005/romvault/internal/common"
	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
)

// Authorizer verifies a bearer access token and returns its storage partition.
type Authorizer interface {
	Authorize(ctx context.Context, accessToken string) (string, error)
}

type partitionKey struct{}

// WithPartition returns a copy of ctx carrying the caller's storage partition.
func WithPartition(ctx context.Context, partition string) context.Context {
	return context.WithValue(ctx, partitionKey{}, partition)
}

// PartitionFromContext returns the partition attached by the access guard.
func PartitionFromContext(ctx context.Context) (string, bool) {
	p, ok := ctx.Value(partitionKey{}).(string)
	return p, ok && p != ""
}

// AccessGuard rejects requests without a valid bearer access token before
// they reach any handler.
type AccessGuard struct {
	auth     Authorizer
	rejected prometheus.Counter
}

func NewAccessGuard(auth Authorizer, rejected prometheus.Counter) *AccessGuard {
	return &AccessGuard{auth: auth, rejected: rejected}
}

func (g *AccessGuard) Handler(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		token, ok := bearerToken(c.Request().Header.Get(echo.HeaderAuthorization))
		if !ok {
			g.rejected.Inc()
			return errorJSON(c, http.StatusUnauthorized, "unauthorized", "missing token")
		}

		ctx := c.Request().Context()
		partition, err := g.auth.Authorize(ctx, token)
		if err != nil || partition == "" {
			g.rejected.Inc()
			return errorJSON(c, http.StatusUnauthorized, "unauthorized", "invalid token")
		}

		c.SetRequest(c.Request().WithContext(WithPartition(ctx, partition)))
		return next(c)
	}
}

func bearerToken(header string) (string, bool) {
	scheme, token, found := strings.Cut(header, " ")
	if !found || !strings.EqualFold(scheme, common.BearerScheme) {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}

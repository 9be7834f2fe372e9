// Package httpapi is the public HTTP surface: account and token endpoints,
// the bearer access guard and the per-kind blob routes.
package httpapi

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/dmitrijs2005/romvault/internal/logging"
	"github.com/dmitrijs2005/romvault/internal/server/metrics"
	"github.com/dmitrijs2005/romvault/internal/server/models"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
)

// Options configures the router.
type Options struct {
	AllowedOrigins []string
	MaxUploadBytes int64
}

// NewRouter builds the echo instance with all middleware and routes.
func NewRouter(opts Options, sessions SessionManager, auth Authorizer, blobs BlobStorage,
	mtr *metrics.Metrics, log logging.Logger) *echo.Echo {

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.Use(middleware.Recover())
	e.Use(middleware.RequestID())
	e.Use(requestLogger(log))
	e.Use(requestMetrics(mtr))
	if len(opts.AllowedOrigins) > 0 {
		e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
			AllowOrigins:     opts.AllowedOrigins,
			AllowCredentials: true,
			AllowHeaders:     []string{echo.HeaderAuthorization, echo.HeaderContentType},
		}))
	}

	account := NewAccountHandler(sessions)
	api := e.Group("/api")
	api.POST("/account/login", account.Login)
	api.POST("/account/logout", account.Logout)
	api.POST("/tokens/refresh", account.Refresh)

	guard := NewAccessGuard(auth, mtr.GuardRejections)
	bh := NewBlobHandler(blobs)
	for _, kind := range models.BlobKinds {
		g := api.Group("/"+string(kind), guard.Handler)
		g.GET("", bh.List(kind))
		g.GET("/:name", bh.Download(kind))
		g.POST("", bh.Upload(kind), uploadLimit(opts.MaxUploadBytes))
	}

	return e
}

func uploadLimit(n int64) echo.MiddlewareFunc {
	if n <= 0 {
		return func(next echo.HandlerFunc) echo.HandlerFunc { return next }
	}
	return middleware.BodyLimit(strconv.FormatInt(n, 10))
}

func requestLogger(log logging.Logger) echo.MiddlewareFunc {
	return middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogMethod:    true,
		LogURI:       true,
		LogStatus:    true,
		LogLatency:   true,
		LogRequestID: true,
		LogError:     true,
		HandleError:  true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			args := []any{
				"method", v.Method,
				"uri", v.URI,
				"status", v.Status,
				"latency", v.Latency,
				"request_id", v.RequestID,
			}
			if v.Error != nil {
				log.Error(c.Request().Context(), "request", append(args, "error", v.Error)...)
				return nil
			}
			log.Info(c.Request().Context(), "request", args...)
			return nil
		},
	})
}

func requestMetrics(mtr *metrics.Metrics) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			err := next(c)
			status := c.Response().Status
			if err != nil {
				status = http.StatusInternalServerError
				var he *echo.HTTPError
				if errors.As(err, &he) {
					status = he.Code
				}
			}
			route := c.Path()
			if route == "" {
				route = "unmatched"
			}
			mtr.HTTPDuration.WithLabelValues(c.Request().Method, route, strconv.Itoa(status)).
				Observe(time.Since(start).Seconds())
			return err
		}
	}
}

// Package server wires the romvault API: configuration, the credential
// store, the object store, the HTTP router and the metrics side server.
package server

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dmitrijs2005/romvault/internal/logging"
	"github.com/dmitrijs2005/romvault/internal/server/auth"
	"github.com/dmitrijs2005/romvault/internal/server/config"
	"github.com/dmitrijs2005/romvault/internal/server/httpapi"
	"github.com/dmitrijs2005/romvault/internal/server/metrics"
	"github.com/dmitrijs2005/romvault/internal/server/objectstore"
	"github.com/dmitrijs2005/romvault/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/romvault/internal/server/services"
	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

const shutdownTimeout = 10 * time.Second

// Seams for tests.
var (
	openDB         = repomanager.Open
	newRepoManager = repomanager.NewPostgresRepositoryManager
	newObjectStore = func(ctx context.Context, cfg objectstore.Config) (services.ObjectStore, error) {
		return objectstore.New(ctx, cfg)
	}
	logOutput io.Writer = os.Stdout
)

type App struct {
	config   *config.Config
	logger   logging.Logger
	db       *sql.DB
	registry *prometheus.Registry
	echo     *echo.Echo
}

// NewApp validates c and connects every backend. The returned App owns the
// database handle; call Close when Run returns.
func NewApp(ctx context.Context, c *config.Config) (*App, error) {
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	logger := logging.NewJSONLogger(logOutput, c.LogLevel)

	db, err := openDB(ctx, c.DatabaseDSN)
	if err != nil {
		return nil, fmt.Errorf("db init error: %w", err)
	}

	rm := newRepoManager()
	if err := rm.RunMigrations(ctx, db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("db init error: %w", err)
	}

	store, err := newObjectStore(ctx, objectstore.Config{
		Region:       c.S3Region,
		User:         c.S3RootUser,
		Password:     c.S3RootPassword,
		BaseEndpoint: c.S3BaseEndpoint,
		Bucket:       c.S3Bucket,
	})
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("object store init error: %w", err)
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	mtr := metrics.New(reg)

	codec := auth.NewCodec(auth.CodecConfig{
		AccessTTL:  c.AccessTokenValidityDuration,
		RefreshTTL: c.RefreshTokenValidityDuration,
	})
	sessions := services.NewSessionService(db, rm, codec, auth.NewHasher(), c.SecretKey, mtr, logger)
	blobs := services.NewBlobService(store, mtr, logger)

	e := httpapi.NewRouter(httpapi.Options{
		AllowedOrigins: c.AllowedOrigins,
		MaxUploadBytes: c.MaxUploadBytes,
	}, sessions, sessions, blobs, mtr, logger)

	return &App{config: c, logger: logger, db: db, registry: reg, echo: e}, nil
}

func (app *App) initSignalHandler(cancelFunc context.CancelFunc) {
	// Channel to catch OS signals.
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	go func() {
		<-sigs
		cancelFunc()
	}()
}

func (app *App) health(ctx context.Context) error {
	return app.db.PingContext(ctx)
}

// Run serves until ctx is cancelled or a termination signal arrives, then
// shuts both servers down.
func (app *App) Run(ctx context.Context) error {
	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()

	app.initSignalHandler(cancelFunc)

	ms := metrics.BootstrapServer(app.config.MetricsAddr, app.registry, app.health, app.logger)

	errCh := make(chan error, 1)
	go func() {
		app.logger.Info(ctx, "Starting HTTP server", "address", app.config.EndpointAddrHTTP)
		errCh <- app.echo.Start(app.config.EndpointAddrHTTP)
	}()

	var runErr error
	select {
	case <-ctx.Done():
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			runErr = err
		}
	}

	app.logger.Info(ctx, "Stopping HTTP server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := app.echo.Shutdown(shutdownCtx); err != nil {
		app.logger.Error(ctx, "http shutdown error", "error", err)
	}
	if err := ms.Shutdown(shutdownCtx); err != nil {
		app.logger.Error(ctx, "metrics shutdown error", "error", err)
	}
	return runErr
}

func (app *App) Close() error {
	return app.db.Close()
}

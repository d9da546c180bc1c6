// Package app initializes and runs the TinyApp service.
// It configures logging, storage, sessions and routing, starts the
// background URL remover and the gRPC health server, and handles graceful
// shutdown.
package app

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
	"google.golang.org/grpc"

	"github.com/patric-chuzhbe/tinyapp/internal/auth"
	"github.com/patric-chuzhbe/tinyapp/internal/config"
	"github.com/patric-chuzhbe/tinyapp/internal/db/jsondb"
	"github.com/patric-chuzhbe/tinyapp/internal/db/memorystorage"
	"github.com/patric-chuzhbe/tinyapp/internal/db/postgresdb"
	"github.com/patric-chuzhbe/tinyapp/internal/db/storage"
	"github.com/patric-chuzhbe/tinyapp/internal/grpcserver"
	"github.com/patric-chuzhbe/tinyapp/internal/ipchecker"
	"github.com/patric-chuzhbe/tinyapp/internal/logger"
	"github.com/patric-chuzhbe/tinyapp/internal/models"
	"github.com/patric-chuzhbe/tinyapp/internal/passwd"
	"github.com/patric-chuzhbe/tinyapp/internal/router"
	"github.com/patric-chuzhbe/tinyapp/internal/service"
	"github.com/patric-chuzhbe/tinyapp/internal/urlsremover"
	"github.com/patric-chuzhbe/tinyapp/internal/views"
)

const shutdownTimeout = 10 * time.Second

// App encapsulates the configuration, HTTP handler, storage backend,
// and background services needed to run TinyApp.
type App struct {
	cfg             *config.Config
	db              storage.Storage
	urlsRemover     *urlsremover.URLsRemover
	stopUrlsRemover context.CancelFunc
	httpHandler     http.Handler
	grpcServer      *grpc.Server
	grpcListener    net.Listener
}

// New initializes a new instance of App by:
// - loading configuration
// - initializing logger
// - selecting and setting up storage
// - setting up the background URL remover
// - setting up the router, the session handling and the gRPC health server
func New(optionsProto ...config.InitOption) (_ *App, err error) {
	app := &App{}

	app.cfg, err = config.New(optionsProto...)
	if err != nil {
		return nil, err
	}

	err = logger.Init(app.cfg.LogLevel)
	if err != nil {
		return nil, err
	}
	warnAboutInsecureDefaults(app.cfg)

	app.db, err = getStorageByType(app.cfg)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err != nil {
			err = errors.Join(err, app.db.Close())
		}
	}()

	authCookieSigningSecretKey, err := base64.URLEncoding.DecodeString(app.cfg.AuthCookieSigningSecretKey)
	if err != nil {
		return nil, fmt.Errorf("in internal/app/app.go/New(): error while `base64.URLEncoding.DecodeString()` calling: %w", err)
	}

	checker, err := ipchecker.New(app.cfg.TrustedSubnet)
	if err != nil {
		return nil, err
	}

	theViews, err := views.New()
	if err != nil {
		return nil, err
	}

	svc := service.New(
		app.db,
		passwd.New(app.cfg.PasswordHashCost),
		app.cfg.ShortURLBase,
		app.cfg.IDGenerationTries,
	)

	if app.cfg.GRPCAddr != "" {
		app.grpcServer, app.grpcListener, err = grpcserver.NewGRPCServer(
			app.cfg.GRPCAddr,
			grpcserver.NewHealthHandler(svc),
		)
		if err != nil {
			return nil, err
		}
	}

	app.urlsRemover = urlsremover.New(
		svc,
		app.cfg.ChannelCapacity,
		app.cfg.DelayBetweenQueueFetches,
	)

	app.httpHandler = router.New(
		svc,
		theViews,
		auth.New(
			app.db,
			app.cfg.AuthCookieName,
			authCookieSigningSecretKey,
			app.cfg.SessionMaxAge,
		),
		app.urlsRemover,
		checker,
	)

	// no error return may follow: the worker would outlive a failed New
	urlsRemoverRunCtx, stopUrlsRemover := context.WithCancel(context.Background())
	app.stopUrlsRemover = stopUrlsRemover

	app.urlsRemover.Run(urlsRemoverRunCtx)
	app.urlsRemover.ListenErrors(func(err error) {
		logger.Log.Debugln("Error passed from the `app.urlsRemover.ListenErrors()`:", zap.Error(err))
	})

	return app, nil
}

func warnAboutInsecureDefaults(cfg *config.Config) {
	if cfg.UsesDefaultSigningKey() {
		logger.Log.Warnln("sessions are signed with the built-in public key; set SESSION_SIGNING_KEY")
	}
}

// Run starts the servers and blocks until SIGINT or SIGTERM, then shuts
// everything down.
func (a *App) Run() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	return a.serve(ctx)
}

func (a *App) serve(ctx context.Context) error {
	logger.Log.Infoln("server running", "RunAddr", a.cfg.RunAddr)

	server := &http.Server{
		Addr:    a.cfg.RunAddr,
		Handler: a.httpHandler,
	}

	serverErrCh := make(chan error, 2)
	go func() {
		serverErrCh <- server.ListenAndServe()
	}()

	if a.grpcServer != nil {
		logger.Log.Infoln("gRPC server running", "GRPCAddr", a.grpcListener.Addr().String())
		go func() {
			if err := a.grpcServer.Serve(a.grpcListener); err != nil {
				serverErrCh <- err
			}
		}()
	}

	select {
	case <-ctx.Done():
		logger.Log.Infoln("Received shutdown signal. Saving database and exiting...")
		return a.shutdown(server)

	case err := <-serverErrCh:
		return errors.Join(fmt.Errorf("server error: %w", err), a.shutdown(server))
	}
}

func (a *App) shutdown(server *http.Server) error {
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	var errs []error
	if err := server.Shutdown(shutdownCtx); err != nil {
		errs = append(errs, fmt.Errorf("server shutdown error: %w", err))
	}
	if a.grpcServer != nil {
		a.grpcServer.GracefulStop()
	}

	a.stopUrlsRemover()
	select {
	case <-a.urlsRemover.Done():
	case <-shutdownCtx.Done():
		errs = append(errs, errors.New("the URLs remover did not stop in time"))
	}

	if err := a.db.Close(); err != nil {
		errs = append(errs, err)
	}

	return errors.Join(errs...)
}

// Close finalizes resources used by App such as logging.
func (a *App) Close() {
	if err := logger.Sync(); err != nil {
		fmt.Println("Logger sync error:", err)
	}
}

func getAvailableStorageType(cfg *config.Config) int {
	if cfg.DatabaseDSN != "" {
		return models.StorageTypePostgresql
	}

	if cfg.DBFileName != "" {
		return models.StorageTypeFile
	}

	return models.StorageTypeMemory
}

func getStorageByType(cfg *config.Config) (storage.Storage, error) {
	switch getAvailableStorageType(cfg) {
	case models.StorageTypeUnknown:
		return nil, errors.New("unknown storage type")

	case models.StorageTypePostgresql:
		return postgresdb.New(
			context.Background(),
			cfg.DatabaseDSN,
			cfg.DBConnectionTimeout,
		)

	case models.StorageTypeFile:
		return jsondb.New(cfg.DBFileName)
	}

	return memorystorage.New()
}

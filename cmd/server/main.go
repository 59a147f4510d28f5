// Package main initializes and starts the QA test manager HTTP server,
// setting up configuration, logging, storage, stores, handlers, and TLS.
package main

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	nethttp "net/http"

	"go.uber.org/zap"

	"github.com/karnan008/QA-Test-Manager/internal/auth"
	"github.com/karnan008/QA-Test-Manager/internal/backup"
	"github.com/karnan008/QA-Test-Manager/internal/config"
	"github.com/karnan008/QA-Test-Manager/internal/db"
	"github.com/karnan008/QA-Test-Manager/internal/logger"
	"github.com/karnan008/QA-Test-Manager/internal/repository"
	"github.com/karnan008/QA-Test-Manager/internal/server/handler/http"
	"github.com/karnan008/QA-Test-Manager/internal/service"
	"github.com/karnan008/QA-Test-Manager/internal/storage"
)

var (
	// version holds the build version set via ldflags.
	version string
	// buildDate holds the build timestamp set via ldflags.
	buildDate string
)

func main() {
	// Parse command-line, environment and file configuration.
	options, err := config.Parse(os.Args[1:])
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}

	// Print build metadata (or "N/A" if unset).
	fmt.Printf("Build version: %s\n", cmp.Or(version, "N/A"))
	fmt.Printf("Build date: %s\n", cmp.Or(buildDate, "N/A"))

	// Initialize structured logging.
	log := logger.New()
	defer func() { _ = log.Log.Sync() }()
	if err := log.Init(options.LogLevel); err != nil {
		log.Log.Fatal("failed to init logger", zap.Error(err))
	}
	zapLogger := log.Log

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	kv, err := openStorage(options, zapLogger)
	if err != nil {
		zapLogger.Fatal("cannot open storage", zap.String("backend", options.Storage), zap.Error(err))
	}

	// Initialize the stores backing the API.
	catalog, err := service.NewCatalogStore(ctx, kv, zapLogger)
	if err != nil {
		zapLogger.Fatal("cannot load catalog", zap.Error(err))
	}
	team, err := service.NewTeamDirectory(ctx, kv, zapLogger)
	if err != nil {
		zapLogger.Fatal("cannot load team", zap.Error(err))
	}
	sessionCfg := service.SessionConfig{
		Verifier: service.ChainVerifier{team, service.NewDemoVerifier()},
		Accounts: team,
	}
	if options.JWTSecret != "" {
		sessionCfg.Tokens = auth.NewJWTManager(options.JWTSecret, options.JWTIssuer, options.JWTTTL)
	}
	session, err := service.NewSessionStore(ctx, kv, zapLogger, sessionCfg)
	if err != nil {
		zapLogger.Fatal("cannot restore session", zap.Error(err))
	}

	// Initialize periodic backups
	var backupDone <-chan struct{}
	if options.BackupDir != "" {
		backupDone = backup.StartAutoBackup(ctx, catalog, options.BackupDir,
			options.BackupInterval,
			options.BackupRetention,
			zapLogger,
		)
	}

	// Build the router with middleware and routes.
	router := http.NewRouter(http.Handlers{
		Auth:      &http.AuthHandler{Session: session, Auth: session, Log: zapLogger},
		TestCases: &http.TestCaseHandler{Catalog: catalog, Log: zapLogger},
		Modules:   &http.ModuleHandler{Catalog: catalog, Log: zapLogger},
		Reports:   &http.ReportHandler{Catalog: catalog, Log: zapLogger},
		Team:      &http.TeamHandler{Team: team, Catalog: catalog, Sessions: session, Log: zapLogger},
	}, session, options.MaxUploadBytes, zapLogger)

	server := &nethttp.Server{
		Addr:              options.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			zapLogger.Error("failed to shut down server", zap.Error(err))
		}
	}()

	if options.TLSEnabled() {
		zapLogger.Info("starting HTTPS server", zap.String("addr", options.Port), zap.String("storage", options.Storage))
		err = server.ListenAndServeTLS(options.TLSCert, options.TLSKey)
	} else {
		zapLogger.Info("starting HTTP server", zap.String("addr", options.Port), zap.String("storage", options.Storage))
		err = server.ListenAndServe()
	}
	if err != nil && !errors.Is(err, nethttp.ErrServerClosed) {
		zapLogger.Fatal("failed to start server", zap.Error(err))
	}

	if backupDone != nil {
		<-backupDone
	}
	zapLogger.Info("server stopped")
}

// openStorage returns the key-value backend selected by the options.
func openStorage(options *config.Options, log *zap.Logger) (storage.KV, error) {
	switch options.Storage {
	case config.StorageMemory:
		return storage.NewMemory(), nil
	case config.StoragePostgres:
		conn, err := db.InitPostgres(options.DatabaseDSN)
		if err != nil {
			return nil, err
		}
		log.Info("using postgres storage")
		return repository.NewPostgresKV(conn), nil
	default:
		fs, err := storage.OpenFile(options.DataFile)
		if err != nil {
			return nil, err
		}
		log.Info("using file storage", zap.String("path", options.DataFile))
		return fs, nil
	}
}

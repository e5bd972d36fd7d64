// boxfs-dav serves a remote folder store over WebDAV.
//
// Configuration comes from BOXFS_* and BOX_* environment variables, overridden by flags.
// Prometheus metrics are served on a separate listener at /metrics.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/drive/v3"
	"google.golang.org/api/option"

	boxfs "github.com/feuerwagen/go-boxfs"
	"github.com/feuerwagen/go-boxfs/internal/config"
	"github.com/feuerwagen/go-boxfs/internal/logging"
	"github.com/feuerwagen/go-boxfs/internal/metrics"
	"github.com/feuerwagen/go-boxfs/internal/webdav"
	"github.com/feuerwagen/go-boxfs/remote"
	"github.com/feuerwagen/go-boxfs/remote/box"
	"github.com/feuerwagen/go-boxfs/remote/gdrive"
	"github.com/feuerwagen/go-boxfs/remote/memory"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "boxfs-dav: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.ParseFlags(flag.CommandLine, os.Args[1:], config.FromEnv())
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	if err := logging.Init(logging.Config{Level: cfg.LogLevel, Format: cfg.LogFormat}); err != nil {
		return fmt.Errorf("init logging: %w", err)
	}
	defer logging.Sync()
	logger := logging.L()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	client, rootID, err := newBackend(ctx, cfg, logger)
	if err != nil {
		return fmt.Errorf("init %s backend: %w", cfg.Backend, err)
	}
	if cfg.RootFolderID != "" {
		rootID = cfg.RootFolderID
	}
	adapter, err := boxfs.New(metrics.InstrumentClient(client),
		boxfs.WithPathPrefix(cfg.PathPrefix),
		boxfs.WithRootFolderID(rootID),
		boxfs.WithLogger(logger),
		boxfs.WithObserver(metrics.Observer{}),
	)
	if err != nil {
		return err
	}

	handler := logging.Middleware(metrics.Middleware(webdav.NewHandler(adapter, logger)))
	servers := []*http.Server{{
		Addr:              cfg.ListenAddr,
		Handler:           handler,
		ReadHeaderTimeout: 30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}}
	if cfg.MetricsAddr != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", metrics.Handler())
		servers = append(servers, &http.Server{Addr: cfg.MetricsAddr, Handler: mux, ReadHeaderTimeout: 10 * time.Second})
	}

	errc := make(chan error, len(servers))
	for _, srv := range servers {
		srv := srv
		go func() {
			logger.Info("listening", zap.String("addr", srv.Addr))
			if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
				errc <- err
			}
		}()
	}
	logger.Info("boxfs-dav started",
		logging.Backend(cfg.Backend),
		zap.String("root", rootID),
		zap.String("prefix", cfg.PathPrefix))

	select {
	case <-ctx.Done():
		logger.Info("shutting down")
	case err = <-errc:
		logger.Error("server failed", zap.Error(err))
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	for _, srv := range servers {
		if shutdownErr := srv.Shutdown(shutdownCtx); shutdownErr != nil {
			logger.Warn("server shutdown error", zap.String("addr", srv.Addr), zap.Error(shutdownErr))
		}
	}
	return err
}

// newBackend builds the configured remote client and returns it with its top-level folder ID.
func newBackend(ctx context.Context, cfg config.Config, logger *zap.Logger) (remote.Client, string, error) {
	switch cfg.Backend {
	case config.BackendBox:
		c := box.NewWithToken(ctx, cfg.BoxAccessToken,
			box.WithAPIURL(cfg.BoxAPIURL),
			box.WithUploadURL(cfg.BoxUploadURL),
			box.WithListLimit(cfg.BoxListLimit),
			box.WithLogger(logger.With(logging.Backend(config.BackendBox))),
		)
		return c, box.RootFolderID, nil
	case config.BackendGDrive:
		httpClient, err := google.DefaultClient(ctx, drive.DriveScope)
		if err != nil {
			return nil, "", err
		}
		service, err := drive.NewService(ctx, option.WithHTTPClient(httpClient))
		if err != nil {
			return nil, "", err
		}
		return gdrive.New(service), gdrive.RootFolderID, nil
	case config.BackendMemory:
		s := memory.New()
		return s, s.RootID(), nil
	}
	return nil, "", fmt.Errorf("unknown backend %q", cfg.Backend)
}

package main

import (
	"context"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sonorafm/sonora/config"
	"github.com/sonorafm/sonora/internal/api"
	"github.com/sonorafm/sonora/internal/auth"
	"github.com/sonorafm/sonora/internal/library"
	"github.com/sonorafm/sonora/internal/media"
	"github.com/sonorafm/sonora/internal/transcode"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	cfg := config.Load()

	slog.Info("starting sonora",
		"port", cfg.Port,
		"musicDirs", cfg.MusicDirs,
		"stationName", cfg.StationName,
	)

	catalog, err := library.NewStore(cfg.CatalogFile)
	if err != nil {
		slog.Error("could not open catalog store", "error", err)
		os.Exit(1)
	}
	overrides, nextID, err := catalog.Load()
	if err != nil {
		slog.Error("could not load catalog", "error", err)
		os.Exit(1)
	}
	library.SetLastTrackID(nextID)

	root, scanErrs, err := library.Scan(cfg.MusicDirs)
	if err != nil {
		slog.Error("initial library scan failed", "error", err)
		os.Exit(1)
	}
	for path, serr := range scanErrs {
		slog.Warn("scan error", "path", path, "error", serr)
	}
	library.Apply(root, overrides)

	cache := transcode.NewCache(transcode.Config{
		TranscodeDir: cfg.TranscodeDir,
		MaxRunning:   cfg.MaxRunningTranscodes,
		MaxCompleted: cfg.MaxCompletedTranscodes,
		Options: transcode.Options{
			Bitrate:    cfg.Bitrate,
			SampleRate: cfg.SampleRate,
			Channels:   cfg.Channels,
		},
	})

	dispatcher := media.NewHandler(root, cache)

	operatorAuth := auth.New(auth.Config{
		Username:  cfg.AdminUsername,
		Password:  cfg.AdminPassword,
		JWTSecret: cfg.JWTSecret,
	})

	rescan := func() error {
		newRoot, errs, err := library.Scan(cfg.MusicDirs)
		if err != nil {
			return err
		}
		for path, serr := range errs {
			slog.Warn("rescan error", "path", path, "error", serr)
		}
		overrides, _, err := catalog.Load()
		if err == nil {
			library.Apply(newRoot, overrides)
		}
		dispatcher.SetRoot(newRoot)
		slog.Info("library rescanned")
		return nil
	}

	apiServer := &api.Server{
		StationName: cfg.StationName,
		Root:        func() *library.Node { return dispatcher.Root() },
		Cache:       cache,
		Dispatcher:  dispatcher,
		Auth:        operatorAuth,
		Rescan:      rescan,
	}

	apiRouter := api.NewRouter(apiServer)
	mux := http.NewServeMux()
	mux.Handle("/api/", apiRouter)
	mux.Handle("/metrics", apiRouter)
	mux.Handle("/", dispatcher)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
		<-sigChan
		slog.Info("shutdown signal received")
		cancel()
	}()

	go library.Watch(ctx, cfg.MusicDirs, func() {
		if err := rescan(); err != nil {
			slog.Warn("watch-triggered rescan failed", "error", err)
		}
	})

	listener, err := net.Listen("tcp", ":"+cfg.Port)
	if err != nil {
		slog.Error("could not bind listening socket", "error", err)
		os.Exit(1)
	}

	// Startup housekeeping runs only after the bind above succeeds: if
	// another instance is already running on this port, the bind fails
	// first and that instance's transcode files are left untouched.
	if err := transcode.PurgeStale(cfg.TranscodeDir); err != nil {
		slog.Warn("could not purge stale transcode files", "error", err)
	}

	httpServer := &http.Server{Handler: mux}

	serveErr := make(chan error, 1)
	go func() {
		serveErr <- httpServer.Serve(listener)
	}()

	select {
	case <-ctx.Done():
	case err := <-serveErr:
		if err != nil && err != http.ErrServerClosed {
			slog.Error("server error", "error", err)
		}
	}

	slog.Info("shutting down gracefully...")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		slog.Warn("graceful shutdown did not complete cleanly", "error", err)
	}
	slog.Info("server stopped")
}

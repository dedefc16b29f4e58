// Package internal provides the main application initialization and runtime logic.
package internal

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/starford/acadworld/internal/api"
	"github.com/starford/acadworld/internal/dataset"
	"github.com/starford/acadworld/internal/explorer"
	"github.com/starford/acadworld/internal/mcpserver"
	"github.com/starford/acadworld/internal/metrics"
	"github.com/starford/acadworld/internal/sse"
)

// Run starts the dashboard HTTP server with the given options.
func Run(ctx context.Context, opts ...Option) error {
	app, err := newApplication(opts)
	if err != nil {
		return err
	}
	cfg := app.config

	logger, logFile := newLogger(cfg.App, os.Stdout)
	defer logFile.Close()
	slog.SetDefault(logger)

	logger.Info("Configuration loaded",
		slog.String("http_address", cfg.App.HTTP.Address()),
		slog.String("graph_driver", cfg.Graph.Driver),
		slog.String("relational_driver", cfg.Relational.Driver),
		slog.String("annotations_driver", cfg.Annotations.Driver),
		slog.String("log_level", cfg.App.LogLevel.String()))

	st, err := openStores(ctx, cfg)
	if err != nil {
		return err
	}
	defer st.Close()

	broker := sse.NewBroker(2 * time.Second)
	defer broker.Close()

	collector := metrics.New()
	svc := st.explorer(cfg, explorer.WithNotifier(broker), explorer.WithMetrics(collector))

	httpServer := &http.Server{
		Addr:              cfg.App.HTTP.Address(),
		Handler:           api.NewServer(svc, broker, collector),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gCtx := errgroup.WithContext(ctx)

	if len(st.pending) > 0 {
		g.Go(func() error {
			st.ensurePending(gCtx, cfg, schemaRetryInterval)
			return nil
		})
	}

	if app.watch {
		g.Go(func() error {
			return watchDataset(gCtx, app.datasetPath, st, logger, broker.PublishReload)
		})
	}

	g.Go(func() error {
		logger.Info("Starting HTTP server", slog.String("address", cfg.App.HTTP.Address()))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("HTTP server error: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		waitForShutdown(gCtx, logger)

		logger.Info("Shutting down server...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Error("HTTP server shutdown error", slog.String("error", err.Error()))
		}
		return errShutdown
	})

	if err := g.Wait(); err != nil && !errors.Is(err, errShutdown) {
		logger.Error("Application error", slog.String("error", err.Error()))
		return err
	}

	logger.Info("Server stopped successfully")
	return nil
}

// Seed loads the dataset into the graph and relational stores. With watch
// enabled it keeps running and re-applies the file on every change.
func Seed(ctx context.Context, opts ...Option) error {
	app, err := newApplication(opts)
	if err != nil {
		return err
	}
	if app.datasetPath == "" {
		return errors.New("seed: dataset path is required")
	}
	cfg := app.config

	logger, logFile := newLogger(cfg.App, os.Stdout)
	defer logFile.Close()
	slog.SetDefault(logger)

	st, err := openStores(ctx, cfg)
	if err != nil {
		return err
	}
	defer st.Close()

	ds, sum, err := dataset.ReadFile(app.datasetPath)
	if err != nil {
		return err
	}
	if err := st.apply(ctx, ds); err != nil {
		return err
	}
	logger.Info("Dataset seeded", slog.String("path", app.datasetPath), slog.String("checksum", sum))

	if !app.watch {
		return nil
	}

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	return dataset.Watch(ctx, app.datasetPath, sum, st.apply, logger, nil)
}

// ServeMCP serves the explorer tools over stdio until stdin closes.
func ServeMCP(ctx context.Context, opts ...Option) error {
	app, err := newApplication(opts)
	if err != nil {
		return err
	}
	cfg := app.config

	// stdout carries the protocol.
	logger, logFile := newLogger(cfg.App, os.Stderr)
	defer logFile.Close()
	slog.SetDefault(logger)

	st, err := openStores(ctx, cfg)
	if err != nil {
		return err
	}
	defer st.Close()

	if len(st.pending) > 0 {
		retryCtx, cancel := context.WithCancel(ctx)
		done := make(chan struct{})
		go func() {
			defer close(done)
			st.ensurePending(retryCtx, cfg, schemaRetryInterval)
		}()
		defer func() {
			cancel()
			<-done
		}()
	}

	logger.Info("MCP server starting", slog.String("version", app.version))
	return mcpserver.New(st.explorer(cfg), app.version).ServeStdio()
}

var errShutdown = errors.New("shutdown")

const schemaRetryInterval = 15 * time.Second

func waitForShutdown(ctx context.Context, logger *slog.Logger) {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(quit)

	select {
	case sig := <-quit:
		logger.Info("Received shutdown signal", slog.String("signal", sig.String()))
	case <-ctx.Done():
		logger.Info("Context cancelled, initiating shutdown")
	}
}

// watchDataset applies the dataset once and then follows changes to it.
func watchDataset(ctx context.Context, path string, st *stores, logger *slog.Logger, onReload func()) error {
	ds, sum, err := dataset.ReadFile(path)
	if err != nil {
		logger.Warn("initial dataset load failed", slog.String("path", path), slog.String("error", err.Error()))
	} else if err := st.apply(ctx, ds); err != nil {
		logger.Warn("initial dataset apply failed", slog.String("path", path), slog.String("error", err.Error()))
		sum = ""
	} else {
		onReload()
	}

	return dataset.Watch(ctx, path, sum, st.apply, logger, func(string) { onReload() })
}

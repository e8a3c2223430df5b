package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/farmsight/herdfeed/internal/api"
	"github.com/farmsight/herdfeed/internal/archive"
	"github.com/farmsight/herdfeed/internal/config"
	"github.com/farmsight/herdfeed/internal/connection"
	"github.com/farmsight/herdfeed/internal/database"
	"github.com/farmsight/herdfeed/internal/feed"
	"github.com/farmsight/herdfeed/internal/herd"
	"github.com/farmsight/herdfeed/internal/model"
	"github.com/farmsight/herdfeed/internal/poller"
	"github.com/farmsight/herdfeed/internal/router"
	"github.com/farmsight/herdfeed/internal/status"
	"github.com/farmsight/herdfeed/internal/version"
)

func main() {
	configPath := flag.String("config", "configs/monitor.local.yaml", "path to config file")
	flag.Parse()

	// Set up structured logging
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelDebug,
	}))
	slog.SetDefault(logger)

	logger.Info("starting monitor",
		"version", version.Version,
		"commit", version.Commit,
		"config", *configPath,
	)

	// Load configuration
	cfg, err := config.LoadAndValidate(*configPath)
	if err != nil {
		logger.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger.Info("configuration loaded",
		"instance_id", cfg.Instance.ID,
		"stream_url", cfg.Stream.URL,
		"rest_url", cfg.API.RestURL,
	)

	// Create context with cancellation
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle shutdown signals
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logger.Info("received shutdown signal", "signal", sig)
		cancel()
	}()

	// Connect to the archive database when configured
	var pool *pgxpool.Pool
	if cfg.Database.Enabled() {
		logger.Info("connecting to archive database",
			"host", cfg.Database.Host,
			"port", cfg.Database.Port,
			"database", cfg.Database.Name,
		)
		pool, err = database.Connect(ctx, cfg.Database)
		if err != nil {
			logger.Error("failed to connect to archive database", "error", err)
			os.Exit(1)
		}
		defer pool.Close()
		logger.Info("archive database connected")
	}

	// Create REST client
	apiClient := api.NewClient(
		cfg.API.RestURL,
		api.WithLogger(logger),
		api.WithTimeout(cfg.API.Timeout),
		api.WithRetries(cfg.API.MaxRetries, time.Second),
	)

	// Load herd directory (non-fatal when the backend is down)
	registry := herd.NewRegistry(herd.Config{
		ReconcileInterval: 5 * time.Minute,
	}, apiClient, logger)
	if err := registry.Start(ctx); err != nil {
		logger.Warn("herd registry start failed", "error", err)
	}
	defer func() {
		stopCtx, stopCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer stopCancel()
		registry.Stop(stopCtx)
	}()

	// Feed store and status publisher
	store := feed.NewStore(cfg.Feed.Capacity, cfg.Feed.HighlightWindow)
	pub := status.NewPublisher(logger)

	unsub := pub.Subscribe(func(u status.Update) {
		logger.Info("connection status", "state", u.State, "attempt", u.Attempt)
	})
	defer unsub()

	// Optional archive writer
	var sink chan model.Measurement
	var writer *archive.Writer
	if pool != nil {
		sink = make(chan model.Measurement, cfg.Archive.BufferSize)
		writer = archive.NewWriter(archive.Config{
			BatchSize:     cfg.Archive.BatchSize,
			FlushInterval: cfg.Archive.FlushInterval,
		}, sink, pool, logger)
		if err := writer.Start(ctx); err != nil {
			logger.Error("failed to start archive writer", "error", err)
			os.Exit(1)
		}
	}

	// Message router
	var archiveSink chan<- model.Measurement
	if sink != nil {
		archiveSink = sink
	}
	rt := router.NewRouter(store, pub, archiveSink, logger)

	// Connection manager
	dialerCfg := connection.DefaultWSDialerConfig()
	dialerCfg.PingInterval = cfg.Stream.PingInterval
	dialer := connection.NewWSDialer(dialerCfg, logger)

	manager := connection.NewManager(connection.ManagerConfig{
		URL: cfg.Stream.URL,
		Policy: connection.ReconnectPolicy{
			Base:        cfg.Stream.ReconnectBaseDelay,
			Growth:      cfg.Stream.ReconnectGrowth,
			Cap:         cfg.Stream.ReconnectMaxDelay,
			MaxAttempts: cfg.Stream.MaxReconnectAttempts,
		},
	}, dialer, pub, logger)

	manager.SetHandlers(connection.Handlers{
		OnConnect: func() {
			logger.Info("live feed connected")
		},
		OnDisconnect: func() {
			logger.Info("live feed disconnected")
		},
		OnMessage: rt.Route,
	})

	if err := manager.Start(ctx); err != nil {
		logger.Error("failed to start connection manager", "error", err)
		os.Exit(1)
	}
	if err := manager.Connect(); err != nil {
		logger.Error("failed to request connect", "error", err)
		os.Exit(1)
	}

	// Backend stats poller
	statsPoller := poller.New(poller.Config{
		Interval: cfg.Poller.Interval,
		Timeout:  10 * time.Second,
	}, apiClient, poller.SnapshotHandlerFunc(func(s poller.Snapshot) {
		logger.Info("backend snapshot",
			"pipeline_running", s.Pipeline.Running,
			"frames_processed", s.Pipeline.FramesProcessed,
			"measurements", s.Pipeline.Measurements,
			"stream_clients", s.Stream.ActiveConnections,
		)
	}), logger)
	if err := statsPoller.Start(ctx); err != nil {
		logger.Error("failed to start stats poller", "error", err)
		os.Exit(1)
	}

	// Health server
	healthServer := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Health.Port),
		Handler: createHealthHandler(cfg.Health.Path, manager, store, rt, pub, registry),
	}
	go func() {
		logger.Info("starting health server", "port", cfg.Health.Port)
		if err := healthServer.ListenAndServe(); err != http.ErrServerClosed {
			logger.Error("health server error", "error", err)
		}
	}()

	logger.Info("monitor running",
		"instance_id", cfg.Instance.ID,
		"health_url", fmt.Sprintf("http://localhost:%d%s", cfg.Health.Port, cfg.Health.Path),
	)

	// Wait for shutdown
	<-ctx.Done()

	logger.Info("shutting down...")

	manager.Teardown()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	statsPoller.Stop(shutdownCtx)
	if writer != nil {
		writer.Stop(shutdownCtx)
	}
	healthServer.Shutdown(shutdownCtx)

	logger.Info("monitor stopped")
}

// createHealthHandler creates the HTTP handler for health checks.
func createHealthHandler(
	path string,
	manager *connection.Manager,
	store *feed.Store,
	rt *router.Router,
	pub *status.Publisher,
	registry *herd.Registry,
) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc(path, func(w http.ResponseWriter, r *http.Request) {
		state := manager.State()

		health := struct {
			Status     string         `json:"status"`
			Version    string         `json:"version"`
			Components map[string]any `json:"components"`
		}{
			Status:     "healthy",
			Version:    version.Version,
			Components: make(map[string]any),
		}

		if state != connection.StateConnected {
			health.Status = "degraded"
		}

		feedStats := store.Stats()
		routerStats := rt.Stats()

		health.Components["stream"] = map[string]any{
			"state":          state.String(),
			"attempts":       manager.Attempts(),
			"last_heartbeat": pub.LastHeartbeat(),
		}
		health.Components["feed"] = map[string]any{
			"count":    feedStats.Count,
			"capacity": feedStats.Capacity,
			"appended": feedStats.TotalAppended,
			"evicted":  feedStats.TotalEvicted,
		}
		health.Components["router"] = map[string]any{
			"received":     routerStats.Received,
			"routed":       routerStats.Routed,
			"parse_errors": routerStats.ParseErrors,
		}
		health.Components["herd"] = map[string]any{
			"animals":      registry.Count(),
			"last_sync_at": registry.LastSyncAt(),
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(health)
	})

	mux.HandleFunc("/debug/feed", func(w http.ResponseWriter, r *http.Request) {
		entries := store.Current()
		highlighted, _ := store.Highlighted()

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{
			"count":       len(entries),
			"highlighted": highlighted,
			"entries":     entries,
		})
	})

	return mux
}

// Command streamtest connects to a live weight feed and prints every frame
// it receives. Useful for verifying backend connectivity and the wire format
// without running the full monitor.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/farmsight/herdfeed/internal/connection"
	"github.com/farmsight/herdfeed/internal/router"
)

func main() {
	url := flag.String("url", "ws://localhost:8000/api/v1/live/ws", "feed websocket URL")
	verbose := flag.Bool("verbose", false, "print raw frames alongside parsed output")
	duration := flag.Duration("duration", 0, "exit after this long (0 = run until interrupted)")
	flag.Parse()

	level := slog.LevelInfo
	if *verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		cancel()
	}()

	if *duration > 0 {
		go func() {
			select {
			case <-time.After(*duration):
				cancel()
			case <-ctx.Done():
			}
		}()
	}

	dialer := connection.NewWSDialer(connection.DefaultWSDialerConfig(), logger)
	manager := connection.NewManager(connection.ManagerConfig{URL: *url}, dialer, nil, logger)

	var frames int
	manager.SetHandlers(connection.Handlers{
		OnConnect: func() {
			logger.Info("connected", "url", *url)
		},
		OnDisconnect: func() {
			logger.Info("disconnected")
		},
		OnMessage: func(data []byte) {
			frames++
			if *verbose {
				fmt.Printf("raw: %s\n", data)
			}
			msg, err := router.Parse(data)
			if err != nil {
				logger.Warn("unparseable frame", "error", err)
				return
			}
			switch m := msg.(type) {
			case router.ConnectionNotice:
				fmt.Printf("[notice] status=%s message=%q clients=%d\n",
					m.Status, m.Message, m.ActiveConnections)
			case router.WeightUpdate:
				fmt.Printf("[weight] animal=%d tag=%s weight=%.1fkg confidence=%.2f camera=%s at=%s\n",
					m.Measurement.AnimalID, m.Measurement.TagID,
					m.Measurement.WeightKg, m.Measurement.Confidence,
					m.Measurement.CameraID, m.Measurement.Timestamp.Format(time.RFC3339))
			case router.Heartbeat:
				fmt.Printf("[heartbeat] clients=%d\n", m.ActiveConnections)
			}
		},
	})

	if err := manager.Start(ctx); err != nil {
		logger.Error("failed to start connection manager", "error", err)
		os.Exit(1)
	}
	if err := manager.Connect(); err != nil {
		logger.Error("failed to request connect", "error", err)
		os.Exit(1)
	}

	<-ctx.Done()
	manager.Teardown()

	logger.Info("done", "frames", frames)
}

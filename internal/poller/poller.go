package poller

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/farmsight/herdfeed/internal/model"
)

// BackendSource provides backend health snapshots. Satisfied by *api.Client.
type BackendSource interface {
	GetPipelineStatus(ctx context.Context) (*model.PipelineStatus, error)
	GetStreamStats(ctx context.Context) (*model.StreamStats, error)
}

// Snapshot is one poll of the backend.
type Snapshot struct {
	Pipeline model.PipelineStatus
	Stream   model.StreamStats
	At       time.Time
}

// SnapshotHandler receives poll results.
type SnapshotHandler interface {
	HandleSnapshot(s Snapshot)
}

// SnapshotHandlerFunc is a function adapter for SnapshotHandler.
type SnapshotHandlerFunc func(Snapshot)

func (f SnapshotHandlerFunc) HandleSnapshot(s Snapshot) {
	f(s)
}

// Config holds poller configuration.
type Config struct {
	Interval time.Duration // Poll cadence
	Timeout  time.Duration // Per-poll timeout
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		Interval: 30 * time.Second,
		Timeout:  10 * time.Second,
	}
}

// Poller periodically fetches pipeline status and stream stats over REST.
// Poll failures are logged and skipped; they never affect the live stream.
type Poller struct {
	cfg     Config
	backend BackendSource
	handler SnapshotHandler
	logger  *slog.Logger

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New creates a Poller.
func New(cfg Config, backend BackendSource, handler SnapshotHandler, logger *slog.Logger) *Poller {
	if logger == nil {
		logger = slog.Default()
	}
	return &Poller{
		cfg:     cfg,
		backend: backend,
		handler: handler,
		logger:  logger,
	}
}

// Start begins the polling loop.
func (p *Poller) Start(ctx context.Context) error {
	p.ctx, p.cancel = context.WithCancel(ctx)

	p.wg.Add(1)
	go p.run()

	p.logger.Info("stats poller started", "interval", p.cfg.Interval)
	return nil
}

// Stop gracefully shuts down the poller.
func (p *Poller) Stop(ctx context.Context) error {
	if p.cancel != nil {
		p.cancel()
	}

	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		p.logger.Info("stats poller stopped")
	case <-ctx.Done():
		p.logger.Warn("stats poller stop timed out")
	}
	return nil
}

// run is the main polling loop.
func (p *Poller) run() {
	defer p.wg.Done()

	ticker := time.NewTicker(p.cfg.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-p.ctx.Done():
			return
		case <-ticker.C:
			p.poll()
		}
	}
}

// poll fetches one snapshot and hands it to the handler.
func (p *Poller) poll() {
	ctx, cancel := context.WithTimeout(p.ctx, p.cfg.Timeout)
	defer cancel()

	pipeline, err := p.backend.GetPipelineStatus(ctx)
	if err != nil {
		p.logger.Warn("pipeline status poll failed", "error", err)
		return
	}

	stream, err := p.backend.GetStreamStats(ctx)
	if err != nil {
		p.logger.Warn("stream stats poll failed", "error", err)
		return
	}

	p.handler.HandleSnapshot(Snapshot{
		Pipeline: *pipeline,
		Stream:   *stream,
		At:       time.Now(),
	})
}

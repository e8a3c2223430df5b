package connection

import (
	"context"
	"log/slog"
	"sync/atomic"
	"time"
)

// Manager owns one logical stream subscription. It opens the transport,
// recovers from disconnects with bounded exponential backoff, and dispatches
// inbound frames to the current handler set.
//
// All state transitions, handler invocations, and timer firings are
// serialized through a single run-loop goroutine; transport events and
// commands reach it over an internal channel. That serialization is what
// keeps the state machine race-free without per-field locks.
type Manager struct {
	cfg    ManagerConfig
	dialer Dialer
	status StatusSink
	logger *slog.Logger

	// Active handler set. Dereferenced at dispatch time, never captured.
	handlers atomic.Pointer[Handlers]

	events chan event
	done   chan struct{}

	ctx    context.Context
	cancel context.CancelFunc

	// Mirrors of run-loop state for cheap reads from other goroutines.
	stateMirror   atomic.Int32
	attemptMirror atomic.Int32

	// Run-loop-owned fields. Touched only from run().
	state   State
	attempt int
	gen     uint64
	conn    Conn
	timer   *time.Timer
}

type eventKind int

const (
	evConnect eventKind = iota
	evTeardown
	evDialResult
	evMessage
	evConnError
	evClosed
	evTimer
)

// event is a unit of work for the run loop. gen ties asynchronous results
// (dials, pumps, timers) to the connection epoch that issued them; results
// from a superseded epoch are dropped.
type event struct {
	kind  eventKind
	gen   uint64
	conn  Conn
	err   error
	data  []byte
	reply chan struct{}
}

// NewManager creates a Manager. The status sink may be nil.
func NewManager(cfg ManagerConfig, dialer Dialer, status StatusSink, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Policy == (ReconnectPolicy{}) {
		cfg.Policy = DefaultReconnectPolicy()
	}

	m := &Manager{
		cfg:    cfg,
		dialer: dialer,
		status: status,
		logger: logger,
		events: make(chan event, 64),
		done:   make(chan struct{}),
	}
	m.handlers.Store(&Handlers{})
	return m
}

// Start launches the run loop. Cancelling ctx is equivalent to Teardown.
func (m *Manager) Start(ctx context.Context) error {
	m.ctx, m.cancel = context.WithCancel(ctx)
	go m.run()
	return nil
}

// Connect requests the transport be opened. Idempotent: a no-op while
// Connected or Connecting. Returns ErrTornDown after Teardown.
func (m *Manager) Connect() error {
	if !m.post(event{kind: evConnect}) {
		return ErrTornDown
	}
	return nil
}

// SetHandlers replaces the active callback set atomically. The next
// dispatched event uses the new set.
func (m *Manager) SetHandlers(h Handlers) {
	m.handlers.Store(&h)
}

// Teardown cancels any pending reconnect timer, detaches handlers, and
// transitions to Disconnected. Terminal: no reconnect attempt or handler
// invocation occurs after Teardown returns, even if a timer was in flight.
// Safe to call after context cancellation or a prior Teardown.
func (m *Manager) Teardown() {
	reply := make(chan struct{})
	if !m.post(event{kind: evTeardown, reply: reply}) {
		return
	}
	// The loop may exit on context cancellation without ever picking the
	// buffered teardown event up; its exit is as good as the reply.
	select {
	case <-reply:
	case <-m.done:
	}
}

// State returns the current connection state.
func (m *Manager) State() State {
	return State(m.stateMirror.Load())
}

// Attempts returns the number of reconnects scheduled since the last
// successful open.
func (m *Manager) Attempts() int {
	return int(m.attemptMirror.Load())
}

// post delivers an event to the run loop, dropping it if the loop has
// exited. The done check runs first: after loop exit a buffered send could
// still succeed, and the select alone would pick between the two at random.
func (m *Manager) post(ev event) bool {
	select {
	case <-m.done:
		return false
	default:
	}
	select {
	case m.events <- ev:
		return true
	case <-m.done:
		return false
	}
}

// run is the single execution context for the state machine.
func (m *Manager) run() {
	defer close(m.done)

	for {
		select {
		case <-m.ctx.Done():
			m.teardown()
			return

		case ev := <-m.events:
			switch ev.kind {
			case evConnect:
				m.handleConnect()

			case evTeardown:
				m.teardown()
				close(ev.reply)
				return

			case evDialResult:
				m.handleDialResult(ev)

			case evMessage:
				if ev.gen != m.gen {
					continue
				}
				if h := m.handlers.Load(); h.OnMessage != nil {
					h.OnMessage(ev.data)
				}

			case evConnError:
				if ev.gen != m.gen {
					continue
				}
				// A transport error never schedules the reconnect itself;
				// the close that follows it does.
				m.logger.Warn("transport error", "error", ev.err)
				m.setState(StateError)

			case evClosed:
				if ev.gen != m.gen {
					continue
				}
				m.handleClosed()

			case evTimer:
				if ev.gen != m.gen || m.state != StateReconnecting {
					continue
				}
				m.timer = nil
				m.startDial()
			}
		}
	}
}

// handleConnect processes a Connect command.
func (m *Manager) handleConnect() {
	if m.state == StateConnected || m.state == StateConnecting {
		return
	}
	m.startDial()
}

// startDial opens a new connection epoch and dials asynchronously. The dial
// outcome arrives later as an evDialResult; it never resolves inline.
func (m *Manager) startDial() {
	m.cancelTimer()
	m.gen++
	gen := m.gen

	m.setState(StateConnecting)

	go func() {
		conn, err := m.dialer.Dial(m.ctx, m.cfg.URL)
		if !m.post(event{kind: evDialResult, gen: gen, conn: conn, err: err}) && conn != nil {
			conn.Close()
		}
	}()
}

// handleDialResult processes the outcome of an asynchronous dial.
func (m *Manager) handleDialResult(ev event) {
	if ev.gen != m.gen {
		// Superseded dial; discard its connection.
		if ev.conn != nil {
			ev.conn.Close()
		}
		return
	}

	if ev.err != nil {
		m.logger.Warn("connect failed", "url", m.cfg.URL, "error", ev.err)
		m.setState(StateError)
		if h := m.handlers.Load(); h.OnDisconnect != nil {
			h.OnDisconnect()
		}
		m.setState(StateDisconnected)
		m.scheduleReconnect()
		return
	}

	m.conn = ev.conn
	m.attempt = 0
	m.attemptMirror.Store(0)
	if h := m.handlers.Load(); h.OnConnect != nil {
		h.OnConnect()
	}
	m.setState(StateConnected)
	m.logger.Info("stream connected", "url", m.cfg.URL)

	go m.pump(ev.conn, m.gen)
}

// handleClosed processes the termination of the live connection.
func (m *Manager) handleClosed() {
	if m.conn != nil {
		m.conn.Close()
		m.conn = nil
	}
	if h := m.handlers.Load(); h.OnDisconnect != nil {
		h.OnDisconnect()
	}
	m.setState(StateDisconnected)
	m.scheduleReconnect()
}

// scheduleReconnect arms the reconnect timer. At most one timer is ever
// outstanding: the epoch bump makes a previously armed timer stale even if
// Stop loses the race with its firing.
func (m *Manager) scheduleReconnect() {
	if m.cfg.Policy.MaxAttempts > 0 && m.attempt >= m.cfg.Policy.MaxAttempts {
		m.logger.Warn("reconnect attempts exhausted", "attempts", m.attempt)
		return
	}

	m.cancelTimer()
	m.gen++
	gen := m.gen

	delay := m.cfg.Policy.Delay(m.attempt)
	m.attempt++
	m.attemptMirror.Store(int32(m.attempt))
	m.setState(StateReconnecting)

	m.logger.Info("scheduling reconnect", "attempt", m.attempt, "delay", delay)

	m.timer = time.AfterFunc(delay, func() {
		m.post(event{kind: evTimer, gen: gen})
	})
}

// teardown is terminal. It runs on the run loop, so once it executes no
// handler can fire again: the loop exits and late events are dropped.
func (m *Manager) teardown() {
	m.cancelTimer()
	m.gen++
	if m.cancel != nil {
		m.cancel()
	}
	if m.conn != nil {
		m.conn.Close()
		m.conn = nil
	}
	m.handlers.Store(&Handlers{})
	m.setState(StateDisconnected)
	m.logger.Info("connection manager torn down")
}

// cancelTimer stops the pending reconnect timer, if any.
func (m *Manager) cancelTimer() {
	if m.timer != nil {
		m.timer.Stop()
		m.timer = nil
	}
}

// setState records a transition and publishes it.
func (m *Manager) setState(s State) {
	m.state = s
	m.stateMirror.Store(int32(s))
	if m.status != nil {
		m.status.Publish(s, m.attempt)
	}
}

// pump forwards connection events into the run loop, preserving arrival
// order for frames. It exits when the connection's message channel closes.
func (m *Manager) pump(conn Conn, gen uint64) {
	errs := conn.Errors()
	msgs := conn.Messages()

	for {
		select {
		case err := <-errs:
			m.post(event{kind: evConnError, gen: gen, err: err})
			errs = nil

		case data, ok := <-msgs:
			if !ok {
				// A transport error is buffered before the message channel
				// closes, so when both are visible at once this select can
				// land here first. Drain it so the error always precedes
				// the close.
				if errs != nil {
					select {
					case err := <-errs:
						m.post(event{kind: evConnError, gen: gen, err: err})
					default:
					}
				}
				m.post(event{kind: evClosed, gen: gen})
				return
			}
			m.post(event{kind: evMessage, gen: gen, data: data})
		}
	}
}

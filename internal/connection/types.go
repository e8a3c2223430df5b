package connection

import (
	"context"
	"errors"
	"math"
	"time"
)

// Errors
var (
	ErrNotConnected  = errors.New("not connected")
	ErrAlreadyClosed = errors.New("already closed")
	ErrTornDown      = errors.New("manager torn down")
)

// State is the connection lifecycle state. Exactly one value is active at a
// time; transitions are driven solely by the Manager's run loop.
type State int

const (
	StateDisconnected State = iota
	StateConnecting
	StateConnected
	StateReconnecting
	StateError
)

// String returns the lowercase state name.
func (s State) String() string {
	switch s {
	case StateDisconnected:
		return "disconnected"
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	case StateReconnecting:
		return "reconnecting"
	case StateError:
		return "error"
	default:
		return "unknown"
	}
}

// Handlers is the active callback set for a Manager. The Manager dereferences
// the current set at dispatch time, so replacing handlers via SetHandlers
// takes effect for the very next event without reconnecting.
type Handlers struct {
	OnConnect    func()
	OnDisconnect func()
	OnMessage    func(data []byte)
}

// ReconnectPolicy governs the backoff schedule between reconnect attempts.
type ReconnectPolicy struct {
	Base        time.Duration // First retry delay
	Growth      float64       // Multiplier per attempt
	Cap         time.Duration // Upper bound on any delay
	MaxAttempts int           // 0 = retry forever
}

// Delay returns the wait before reconnect attempt n (0-based):
// min(Base * Growth^n, Cap). Monotonically non-decreasing in n.
func (p ReconnectPolicy) Delay(attempt int) time.Duration {
	d := float64(p.Base) * math.Pow(p.Growth, float64(attempt))
	if d >= float64(p.Cap) || d < 0 || math.IsInf(d, 0) {
		return p.Cap
	}
	return time.Duration(d)
}

// DefaultReconnectPolicy matches the behavior wired into the live dashboard:
// 1s base, doubling, 10s cap, unbounded attempts.
func DefaultReconnectPolicy() ReconnectPolicy {
	return ReconnectPolicy{
		Base:   time.Second,
		Growth: 2,
		Cap:    10 * time.Second,
	}
}

// Conn is a single established stream connection.
//
// Contract: Messages delivers frames in arrival order and is closed when the
// connection terminates for any reason. Errors delivers at most one transport
// error; when it does, the close of Messages always follows. Close is
// idempotent.
type Conn interface {
	// Messages returns the inbound frame channel.
	Messages() <-chan []byte

	// Errors returns the transport error channel.
	Errors() <-chan error

	// Close tears the connection down.
	Close() error
}

// Dialer opens stream connections. The production implementation dials a
// WebSocket endpoint; tests substitute fakes.
type Dialer interface {
	Dial(ctx context.Context, url string) (Conn, error)
}

// ManagerConfig configures a Manager.
type ManagerConfig struct {
	URL    string          // Stream endpoint (e.g., ws://host/api/v1/live/ws)
	Policy ReconnectPolicy // Backoff schedule
}

// StatusSink receives connection state changes from the Manager. Publishes
// happen on the Manager's run loop, in transition order.
type StatusSink interface {
	Publish(state State, attempt int)
}

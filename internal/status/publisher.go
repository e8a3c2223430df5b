package status

import (
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/farmsight/herdfeed/internal/connection"
)

// Update is a published connection status change.
type Update struct {
	State   connection.State
	Attempt int // Reconnect attempts scheduled since the last successful open
}

// Publisher holds the current connection status and fans it out to
// subscribers. Notification is synchronous and in subscription order; there
// is no replay, so observers see only states emitted after they subscribed.
type Publisher struct {
	logger *slog.Logger

	mu      sync.Mutex
	current Update
	order   []uuid.UUID
	subs    map[uuid.UUID]func(Update)

	// Liveness bookkeeping fed by the message router. These never notify
	// subscribers; they only record what the server last said.
	serverStatus  string
	serverMessage string
	lastHeartbeat time.Time
}

// NewPublisher creates a Publisher in the Disconnected state.
func NewPublisher(logger *slog.Logger) *Publisher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Publisher{
		logger: logger,
		subs:   make(map[uuid.UUID]func(Update)),
	}
}

// Publish stores the new state and notifies all subscribers.
func (p *Publisher) Publish(state connection.State, attempt int) {
	u := Update{State: state, Attempt: attempt}

	p.mu.Lock()
	p.current = u
	fns := make([]func(Update), 0, len(p.order))
	for _, id := range p.order {
		fns = append(fns, p.subs[id])
	}
	p.mu.Unlock()

	p.logger.Debug("status change", "state", state, "attempt", attempt)

	for _, fn := range fns {
		fn(u)
	}
}

// Subscribe registers an observer. The returned function unsubscribes it;
// calling it more than once is harmless.
func (p *Publisher) Subscribe(fn func(Update)) (unsubscribe func()) {
	id := uuid.New()

	p.mu.Lock()
	p.order = append(p.order, id)
	p.subs[id] = fn
	p.mu.Unlock()

	return func() {
		p.mu.Lock()
		defer p.mu.Unlock()
		if _, ok := p.subs[id]; !ok {
			return
		}
		delete(p.subs, id)
		for i, other := range p.order {
			if other == id {
				p.order = append(p.order[:i], p.order[i+1:]...)
				break
			}
		}
	}
}

// Current returns the most recently published status.
func (p *Publisher) Current() Update {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.current
}

// RecordNotice stores the server's connection notice.
func (p *Publisher) RecordNotice(status, message string) {
	p.mu.Lock()
	p.serverStatus = status
	p.serverMessage = message
	p.mu.Unlock()
}

// RecordHeartbeat stores the time of the last server heartbeat.
func (p *Publisher) RecordHeartbeat(at time.Time) {
	p.mu.Lock()
	p.lastHeartbeat = at
	p.mu.Unlock()
}

// LastNotice returns the most recent server connection notice.
func (p *Publisher) LastNotice() (status, message string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.serverStatus, p.serverMessage
}

// LastHeartbeat returns the time of the last server heartbeat, zero if none.
func (p *Publisher) LastHeartbeat() time.Time {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.lastHeartbeat
}

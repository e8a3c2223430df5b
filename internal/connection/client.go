package connection

import (
	"context"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// WSDialer dials WebSocket stream connections.
type WSDialer struct {
	cfg    WSDialerConfig
	logger *slog.Logger
}

// WSDialerConfig configures dialed connections.
type WSDialerConfig struct {
	HandshakeTimeout time.Duration // Dial deadline
	WriteTimeout     time.Duration // Deadline for control writes
	PingInterval     time.Duration // Keepalive ping cadence (0 = no pings)
	BufferSize       int           // Inbound frame channel capacity
}

// DefaultWSDialerConfig returns sensible defaults.
func DefaultWSDialerConfig() WSDialerConfig {
	return WSDialerConfig{
		HandshakeTimeout: 10 * time.Second,
		WriteTimeout:     5 * time.Second,
		PingInterval:     30 * time.Second,
		BufferSize:       256,
	}
}

// NewWSDialer creates a WebSocket dialer.
func NewWSDialer(cfg WSDialerConfig, logger *slog.Logger) *WSDialer {
	if logger == nil {
		logger = slog.Default()
	}
	return &WSDialer{cfg: cfg, logger: logger}
}

// Dial opens a connection to url and starts its read pump.
func (d *WSDialer) Dial(ctx context.Context, url string) (Conn, error) {
	header := http.Header{}
	header.Set("Accept", "application/json")

	dialer := websocket.Dialer{
		HandshakeTimeout: d.cfg.HandshakeTimeout,
	}

	ws, _, err := dialer.DialContext(ctx, url, header)
	if err != nil {
		return nil, err
	}

	c := &wsConn{
		cfg:      d.cfg,
		logger:   d.logger,
		ws:       ws,
		messages: make(chan []byte, d.cfg.BufferSize),
		errors:   make(chan error, 1),
		done:     make(chan struct{}),
	}

	// Server pings expect pongs; either direction refreshes liveness.
	ws.SetPingHandler(func(data string) error {
		return ws.WriteControl(
			websocket.PongMessage,
			[]byte(data),
			time.Now().Add(c.cfg.WriteTimeout),
		)
	})

	go c.readLoop()
	if d.cfg.PingInterval > 0 {
		go c.pingLoop()
	}

	d.logger.Debug("websocket connected", "url", url)
	return c, nil
}

// wsConn implements Conn over a gorilla WebSocket.
type wsConn struct {
	cfg    WSDialerConfig
	logger *slog.Logger
	ws     *websocket.Conn

	messages chan []byte
	errors   chan error
	done     chan struct{}

	closeOnce sync.Once
}

// Messages returns the inbound frame channel.
func (c *wsConn) Messages() <-chan []byte {
	return c.messages
}

// Errors returns the transport error channel.
func (c *wsConn) Errors() <-chan error {
	return c.errors
}

// Close tears the connection down.
func (c *wsConn) Close() error {
	var err error
	c.closeOnce.Do(func() {
		close(c.done)
		c.ws.WriteControl(
			websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(c.cfg.WriteTimeout),
		)
		err = c.ws.Close()
	})
	return err
}

// readLoop reads frames until the connection terminates. A transport error is
// reported on the error channel before the message channel closes, so
// consumers always observe error-then-close.
func (c *wsConn) readLoop() {
	defer close(c.messages)

	for {
		_, data, err := c.ws.ReadMessage()
		if err != nil {
			select {
			case <-c.done:
				// Locally closed; not a transport failure.
			default:
				if !websocket.IsCloseError(err,
					websocket.CloseNormalClosure, websocket.CloseGoingAway) {
					select {
					case c.errors <- err:
					default:
					}
				}
			}
			return
		}

		select {
		case c.messages <- data:
		case <-c.done:
			return
		}
	}
}

// pingLoop sends keepalive pings until the connection closes.
func (c *wsConn) pingLoop() {
	ticker := time.NewTicker(c.cfg.PingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-c.done:
			return
		case <-ticker.C:
			deadline := time.Now().Add(c.cfg.WriteTimeout)
			if err := c.ws.WriteControl(websocket.PingMessage, []byte("keepalive"), deadline); err != nil {
				c.logger.Debug("failed to send ping", "error", err)
				return
			}
		}
	}
}

package config

import "time"

// Default values for optional configuration fields.
//
// The reconnect defaults mirror the schedule actually executed by the
// connection manager (1s base, doubling, 10s cap, unbounded attempts).
// Earlier dashboard builds declared growth 1.5 / 30s cap / 10 attempts in
// their config while executing the schedule above; the executing behavior
// is authoritative here.
const (
	DefaultRestURL            = "http://localhost:8000/api/v1"
	DefaultStreamURL          = "ws://localhost:8000/api/v1/live/ws"
	DefaultAPITimeout         = 30 * time.Second
	DefaultMaxRetries         = 3
	DefaultReconnectBaseDelay = 1 * time.Second
	DefaultReconnectGrowth    = 2.0
	DefaultReconnectMaxDelay  = 10 * time.Second
	DefaultPingInterval       = 30 * time.Second
	DefaultFeedCapacity       = 50
	DefaultHighlightWindow    = 2 * time.Second
	DefaultDBPort             = 5432
	DefaultDBSSLMode          = "prefer"
	DefaultMaxConns           = 10
	DefaultMinConns           = 2
	DefaultBatchSize          = 100
	DefaultFlushInterval      = 1 * time.Second
	DefaultBufferSize         = 1000
	DefaultPollInterval       = 30 * time.Second
	DefaultHealthPort         = 8090
	DefaultHealthPath         = "/healthz"
)

func (c *MonitorConfig) applyDefaults() {
	// API defaults
	if c.API.RestURL == "" {
		c.API.RestURL = DefaultRestURL
	}
	if c.API.Timeout == 0 {
		c.API.Timeout = DefaultAPITimeout
	}
	if c.API.MaxRetries == 0 {
		c.API.MaxRetries = DefaultMaxRetries
	}

	// Stream defaults
	if c.Stream.URL == "" {
		c.Stream.URL = DefaultStreamURL
	}
	if c.Stream.ReconnectBaseDelay == 0 {
		c.Stream.ReconnectBaseDelay = DefaultReconnectBaseDelay
	}
	if c.Stream.ReconnectGrowth == 0 {
		c.Stream.ReconnectGrowth = DefaultReconnectGrowth
	}
	if c.Stream.ReconnectMaxDelay == 0 {
		c.Stream.ReconnectMaxDelay = DefaultReconnectMaxDelay
	}
	if c.Stream.PingInterval == 0 {
		c.Stream.PingInterval = DefaultPingInterval
	}

	// Feed defaults
	if c.Feed.Capacity == 0 {
		c.Feed.Capacity = DefaultFeedCapacity
	}
	if c.Feed.HighlightWindow == 0 {
		c.Feed.HighlightWindow = DefaultHighlightWindow
	}

	// Database defaults (only meaningful when enabled)
	if c.Database.Port == 0 {
		c.Database.Port = DefaultDBPort
	}
	if c.Database.SSLMode == "" {
		c.Database.SSLMode = DefaultDBSSLMode
	}
	if c.Database.MaxConns == 0 {
		c.Database.MaxConns = DefaultMaxConns
	}
	if c.Database.MinConns == 0 {
		c.Database.MinConns = DefaultMinConns
	}

	// Archive defaults
	if c.Archive.BatchSize == 0 {
		c.Archive.BatchSize = DefaultBatchSize
	}
	if c.Archive.FlushInterval == 0 {
		c.Archive.FlushInterval = DefaultFlushInterval
	}
	if c.Archive.BufferSize == 0 {
		c.Archive.BufferSize = DefaultBufferSize
	}

	// Poller defaults
	if c.Poller.Interval == 0 {
		c.Poller.Interval = DefaultPollInterval
	}

	// Health defaults
	if c.Health.Port == 0 {
		c.Health.Port = DefaultHealthPort
	}
	if c.Health.Path == "" {
		c.Health.Path = DefaultHealthPath
	}
}

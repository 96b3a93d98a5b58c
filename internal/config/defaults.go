package config

import "time"

// Default values for optional configuration fields.
const (
	DefaultEndpoint         = "wss://84a6-2402-d000-a500-2774-4d77-e420-d813-9eb4.ngrok-free.app"
	DefaultGreeting         = "Hello, server!"
	DefaultHandshakeTimeout = 10 * time.Second
	DefaultWriteTimeout     = 5 * time.Second
	DefaultEventBuffer      = 64
	DefaultServerAddr       = "0.0.0.0:8080"
	DefaultServerPath       = "/"
	DefaultPushInterval     = 5 * time.Second
	DefaultBatchSize        = 100
	DefaultFlushInterval    = 1 * time.Second
	DefaultDBPort           = 5432
	DefaultDBSSLMode        = "prefer"
	DefaultMaxConns         = 4
	DefaultMinConns         = 1
	DefaultMetricsPath      = "/metrics"
	DefaultLogLevel         = "info"
)

// Default returns a Config with every default applied.
func Default() *Config {
	cfg := &Config{}
	cfg.applyDefaults()
	return cfg
}

func (c *Config) applyDefaults() {
	// Client defaults
	if c.Client.Endpoint == "" {
		c.Client.Endpoint = DefaultEndpoint
	}
	if c.Client.Greeting == "" {
		c.Client.Greeting = DefaultGreeting
	}
	if c.Client.HandshakeTimeout == 0 {
		c.Client.HandshakeTimeout = DefaultHandshakeTimeout
	}
	if c.Client.WriteTimeout == 0 {
		c.Client.WriteTimeout = DefaultWriteTimeout
	}
	if c.Client.EventBuffer == 0 {
		c.Client.EventBuffer = DefaultEventBuffer
	}

	// Server defaults
	if c.Server.Addr == "" {
		c.Server.Addr = DefaultServerAddr
	}
	if c.Server.Path == "" {
		c.Server.Path = DefaultServerPath
	}
	if c.Server.Interval == 0 {
		c.Server.Interval = DefaultPushInterval
	}

	// Journal defaults
	if c.Journal.BatchSize == 0 {
		c.Journal.BatchSize = DefaultBatchSize
	}
	if c.Journal.FlushInterval == 0 {
		c.Journal.FlushInterval = DefaultFlushInterval
	}
	applyDBDefaults(&c.Journal.Database)

	// Metrics defaults
	if c.Metrics.Path == "" {
		c.Metrics.Path = DefaultMetricsPath
	}

	if c.Log.Level == "" {
		c.Log.Level = DefaultLogLevel
	}
}

func applyDBDefaults(db *DBConfig) {
	if db.Port == 0 {
		db.Port = DefaultDBPort
	}
	if db.SSLMode == "" {
		db.SSLMode = DefaultDBSSLMode
	}
	if db.MaxConns == 0 {
		db.MaxConns = DefaultMaxConns
	}
	if db.MinConns == 0 {
		db.MinConns = DefaultMinConns
	}
}

package config

import "time"

// Config is the root configuration shared by wsclient and wsserver.
type Config struct {
	Client  ClientConfig  `yaml:"client"`
	Server  ServerConfig  `yaml:"server"`
	Journal JournalConfig `yaml:"journal"`
	Metrics MetricsConfig `yaml:"metrics"`
	Log     LogConfig     `yaml:"log"`
}

// ClientConfig holds settings for the single-connection client.
type ClientConfig struct {
	Endpoint         string        `yaml:"endpoint"`
	Greeting         string        `yaml:"greeting"` // Sent once the connection opens
	HandshakeTimeout time.Duration `yaml:"handshake_timeout"`
	WriteTimeout     time.Duration `yaml:"write_timeout"`
	EventBuffer      int           `yaml:"event_buffer"`    // Initial event queue capacity
	CloseOnReopen    bool          `yaml:"close_on_reopen"` // Terminate the held handle before opening another
}

// ServerConfig holds settings for the demo push server.
type ServerConfig struct {
	Addr     string        `yaml:"addr"`
	Path     string        `yaml:"path"`
	Interval time.Duration `yaml:"interval"` // Delay between pushed messages
}

// JournalConfig holds the optional event journal settings.
type JournalConfig struct {
	Enabled       bool          `yaml:"enabled"`
	BatchSize     int           `yaml:"batch_size"`
	FlushInterval time.Duration `yaml:"flush_interval"`
	Database      DBConfig      `yaml:"database"`
}

// DBConfig holds a single database connection.
type DBConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Name     string `yaml:"name"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	SSLMode  string `yaml:"ssl_mode"`
	MaxConns int    `yaml:"max_conns"`
	MinConns int    `yaml:"min_conns"`
}

// MetricsConfig holds Prometheus metrics settings. Port 0 disables the
// metrics listener.
type MetricsConfig struct {
	Port int    `yaml:"port"`
	Path string `yaml:"path"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level string `yaml:"level"` // debug, info, warn, error
}

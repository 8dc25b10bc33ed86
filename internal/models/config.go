// Package models contains the data structures used throughout nodewake.
package models

import "time"

// Config holds the complete nodewake configuration.
type Config struct {
	Registry RegistryConfig
	EventLog EventLogConfig
	Wake     WakeSettings
	Logging  LoggingConfig
	Metrics  MetricsConfig
	SSH      SSHConfig
	Telegram *TelegramConfig // nil if not configured
}

// RegistryConfig locates the static target registry.
type RegistryConfig struct {
	Path string
}

// Event log backends.
const (
	BackendFile = "file"
	BackendBolt = "bolt"
)

// EventLogConfig selects where wake events are persisted.
type EventLogConfig struct {
	Backend string // "file" (default) or "bolt"
	Path    string
}

// WakeSettings holds defaults for the wake command.
type WakeSettings struct {
	BroadcastIP string
	Port        int
	PacketCount int
	PacketDelay time.Duration
	Transports  []string // transport names in priority order
	Wait        bool
	Timeout     time.Duration
	Interval    time.Duration
	PingTimeout time.Duration
}

// LoggingConfig controls the optional rotating log file.
type LoggingConfig struct {
	File       string
	MaxSize    int // megabytes
	MaxBackups int
	MaxAge     int // days
	Compress   bool
}

// MetricsConfig controls the prometheus textfile export.
type MetricsConfig struct {
	Textfile string
}

// Package config provides configuration file parsing.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/fgeck/nodewake/internal/models"
	"github.com/fgeck/nodewake/internal/services/wol"
	"github.com/spf13/viper"
)

// EnvPrefix is the prefix of environment variables overriding config keys,
// e.g. NODEWAKE_WAKE_PORT for wake.port.
const EnvPrefix = "NODEWAKE"

// ErrInvalidConfig wraps every validation failure.
var ErrInvalidConfig = errors.New("invalid configuration")

// Parser handles configuration file parsing.
type Parser struct {
	v *viper.Viper
}

// NewParser creates a new configuration parser with all defaults set.
func NewParser() *Parser {
	v := viper.New()
	v.SetConfigType("yaml")
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("registry.path", "${HOME}/.config/nodewake/nodes")
	v.SetDefault("event_log.backend", models.BackendFile)
	v.SetDefault("event_log.path", "${HOME}/.local/state/nodewake/wake-events.log")

	v.SetDefault("wake.broadcast_ip", "255.255.255.255")
	v.SetDefault("wake.port", 9)
	v.SetDefault("wake.packet_count", 3)
	v.SetDefault("wake.packet_delay", 100*time.Millisecond)
	v.SetDefault("wake.transports", wol.DefaultTransportOrder)
	v.SetDefault("wake.wait", false)
	v.SetDefault("wake.timeout", 120*time.Second)
	v.SetDefault("wake.interval", 5*time.Second)
	v.SetDefault("wake.ping_timeout", time.Second)

	v.SetDefault("logging.file", "")
	v.SetDefault("logging.max_size", 100)
	v.SetDefault("logging.max_backups", 3)
	v.SetDefault("logging.max_age", 28)
	v.SetDefault("logging.compress", false)

	v.SetDefault("ssh.username", "root")
	v.SetDefault("ssh.port", 22)
	v.SetDefault("ssh.key_path", "")
	v.SetDefault("ssh.command", "sudo systemctl suspend")
	v.SetDefault("ssh.known_hosts", "")

	v.SetDefault("metrics.textfile", "")

	return &Parser{v: v}
}

// Load reads path if given, otherwise returns defaults with environment overrides.
func (p *Parser) Load(path string) (*models.Config, error) {
	if path == "" {
		return p.parse()
	}
	return p.LoadFile(path)
}

// LoadFile loads configuration from a file path.
func (p *Parser) LoadFile(path string) (*models.Config, error) {
	p.v.SetConfigFile(path)

	if err := p.v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	return p.parse()
}

// LoadReader loads configuration from a reader (useful for testing).
func (p *Parser) LoadReader(content string) (*models.Config, error) {
	if err := p.v.ReadConfig(strings.NewReader(content)); err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}

	return p.parse()
}

func (p *Parser) parse() (*models.Config, error) {
	cfg := &models.Config{
		Registry: models.RegistryConfig{
			Path: p.expandEnv(p.v.GetString("registry.path")),
		},
		EventLog: models.EventLogConfig{
			Backend: strings.ToLower(p.v.GetString("event_log.backend")),
			Path:    p.expandEnv(p.v.GetString("event_log.path")),
		},
		Wake: models.WakeSettings{
			BroadcastIP: p.v.GetString("wake.broadcast_ip"),
			Port:        p.v.GetInt("wake.port"),
			PacketCount: p.v.GetInt("wake.packet_count"),
			PacketDelay: p.v.GetDuration("wake.packet_delay"),
			Transports:  p.v.GetStringSlice("wake.transports"),
			Wait:        p.v.GetBool("wake.wait"),
			Timeout:     p.v.GetDuration("wake.timeout"),
			Interval:    p.v.GetDuration("wake.interval"),
			PingTimeout: p.v.GetDuration("wake.ping_timeout"),
		},
		Logging: models.LoggingConfig{
			File:       p.expandEnv(p.v.GetString("logging.file")),
			MaxSize:    p.v.GetInt("logging.max_size"),
			MaxBackups: p.v.GetInt("logging.max_backups"),
			MaxAge:     p.v.GetInt("logging.max_age"),
			Compress:   p.v.GetBool("logging.compress"),
		},
		Metrics: models.MetricsConfig{
			Textfile: p.expandEnv(p.v.GetString("metrics.textfile")),
		},
		SSH: models.SSHConfig{
			Username:   p.v.GetString("ssh.username"),
			Port:       p.v.GetInt("ssh.port"),
			KeyPath:    p.expandEnv(p.v.GetString("ssh.key_path")),
			Command:    p.v.GetString("ssh.command"),
			KnownHosts: p.expandEnv(p.v.GetString("ssh.known_hosts")),
		},
	}

	// Parse optional Telegram config.
	if p.v.IsSet("telegram") {
		cfg.Telegram = &models.TelegramConfig{
			BotToken: p.expandEnv(p.v.GetString("telegram.bot_token")),
			ChatID:   p.expandEnv(p.v.GetString("telegram.chat_id")),
		}

		if cfg.Telegram.BotToken == "" {
			return nil, fmt.Errorf("%w: telegram.bot_token is required when telegram is configured", ErrInvalidConfig)
		}
		if cfg.Telegram.ChatID == "" {
			return nil, fmt.Errorf("%w: telegram.chat_id is required when telegram is configured", ErrInvalidConfig)
		}
	}

	if err := Validate(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// expandEnv expands environment variables in the format ${VAR} or $VAR.
func (p *Parser) expandEnv(s string) string {
	return os.ExpandEnv(s)
}

// Validate performs validation on the loaded configuration.
//
//nolint:gocyclo // one check per setting
func Validate(cfg *models.Config) error {
	if cfg == nil {
		return fmt.Errorf("%w: configuration is nil", ErrInvalidConfig)
	}

	if cfg.Registry.Path == "" {
		return fmt.Errorf("%w: registry.path is required", ErrInvalidConfig)
	}
	if cfg.EventLog.Path == "" {
		return fmt.Errorf("%w: event_log.path is required", ErrInvalidConfig)
	}
	switch cfg.EventLog.Backend {
	case models.BackendFile, models.BackendBolt:
	default:
		return fmt.Errorf("%w: event_log.backend must be one of: file, bolt", ErrInvalidConfig)
	}

	w := cfg.Wake
	if w.Port < 1 || w.Port > 65535 {
		return fmt.Errorf("%w: wake.port must be between 1 and 65535, got %d", ErrInvalidConfig, w.Port)
	}
	if w.PacketCount < 1 {
		return fmt.Errorf("%w: wake.packet_count must be at least 1, got %d", ErrInvalidConfig, w.PacketCount)
	}
	if w.PacketDelay < 0 || w.Timeout < 0 || w.PingTimeout < 0 {
		return fmt.Errorf("%w: wake durations must not be negative", ErrInvalidConfig)
	}
	if w.Interval <= 0 {
		return fmt.Errorf("%w: wake.interval must be positive", ErrInvalidConfig)
	}
	if len(w.Transports) == 0 {
		return fmt.Errorf("%w: wake.transports must name at least one transport", ErrInvalidConfig)
	}
	for _, name := range w.Transports {
		if !wol.KnownTransport(name) {
			return fmt.Errorf("%w: unknown transport %q in wake.transports", ErrInvalidConfig, name)
		}
	}

	if cfg.SSH.Port < 1 || cfg.SSH.Port > 65535 {
		return fmt.Errorf("%w: ssh.port must be between 1 and 65535, got %d", ErrInvalidConfig, cfg.SSH.Port)
	}

	if cfg.Telegram != nil && (cfg.Telegram.BotToken == "" || cfg.Telegram.ChatID == "") {
		return fmt.Errorf("%w: telegram requires bot_token and chat_id", ErrInvalidConfig)
	}

	return nil
}

// Package config loads, migrates, and validates the TOML configuration
// file. A missing file is seeded from the built-in template; files written
// by older versions are migrated in place with a .backup copy.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"
)

// Config is the parsed configuration file.
type Config struct {
	Inner           InnerConfig           `toml:"inner"`
	Logging         LoggingConfig         `toml:"logging"`
	LLM             LLMConfig             `toml:"llm"`
	LLMFast         LLMConfig             `toml:"llm_fast"`
	Visual          VisualConfig          `toml:"visual"`
	VLM             LLMConfig             `toml:"vlm"`
	Bot             BotConfig             `toml:"bot"`
	Game            GameConfig            `toml:"game"`
	API             APIConfig             `toml:"api"`
	ThreatDetection ThreatDetectionConfig `toml:"threat_detection"`
}

// InnerConfig is bookkeeping the loader maintains; users do not edit it.
type InnerConfig struct {
	Version int `toml:"version"`
}

// LoggingConfig controls the slog handler.
type LoggingConfig struct {
	Level  string `toml:"level"`
	Format string `toml:"format"`
}

// LLMConfig describes one OpenAI-compatible endpoint. The same shape backs
// [llm], [llm_fast], and [vlm].
type LLMConfig struct {
	BaseURL     string  `toml:"base_url"`
	APIKey      string  `toml:"api_key"`
	Model       string  `toml:"model"`
	Temperature float64 `toml:"temperature"`
	MaxTokens   int     `toml:"max_tokens"`
	Timeout     int     `toml:"timeout"`
}

// RequestTimeout returns the per-request timeout.
func (c LLMConfig) RequestTimeout() time.Duration {
	return time.Duration(c.Timeout) * time.Second
}

// VisualConfig gates the vision-based overview features.
type VisualConfig struct {
	Enable bool `toml:"enable"`
}

// BotConfig identifies the bot in game.
type BotConfig struct {
	Username       string   `toml:"username"`
	AlternateNames []string `toml:"alternate_names"`
	Goal           string   `toml:"goal"`
}

// GameConfig configures the bridge connection and the poll loop.
type GameConfig struct {
	Transport      string   `toml:"transport"`
	URL            string   `toml:"url"`
	Command        string   `toml:"command"`
	Args           []string `toml:"args"`
	Timeout        int      `toml:"timeout"`
	PollIntervalMS int      `toml:"poll_interval_ms"`
	EntityRange    float64  `toml:"entity_range"`
	DataDir        string   `toml:"data_dir"`
}

// ToolTimeout returns the per-tool-call timeout.
func (c GameConfig) ToolTimeout() time.Duration {
	return time.Duration(c.Timeout) * time.Second
}

// PollInterval returns the environment poll period.
func (c GameConfig) PollInterval() time.Duration {
	return time.Duration(c.PollIntervalMS) * time.Millisecond
}

// APIConfig configures the WebSocket/REST server.
type APIConfig struct {
	Enabled           *bool  `toml:"enabled"`
	Host              string `toml:"host"`
	Port              int    `toml:"port"`
	HeartbeatInterval int    `toml:"heartbeat_interval"`
	HeartbeatTimeout  int    `toml:"heartbeat_timeout"`
}

// IsEnabled resolves the optional enabled flag (default true).
func (c APIConfig) IsEnabled() bool {
	return c.Enabled == nil || *c.Enabled
}

// Addr returns the host:port listen address.
func (c APIConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// ThreatDetectionConfig configures the combat handler and hurt pipeline.
type ThreatDetectionConfig struct {
	Enabled               *bool   `toml:"enabled"`
	Range                 float64 `toml:"threat_detection_range"`
	MinDistance           float64 `toml:"min_distance"`
	ThreatTimeout         int     `toml:"threat_timeout"`
	AttackIntervalMS      int     `toml:"attack_interval_ms"`
	MaxAttackAttempts     int     `toml:"max_attack_attempts"`
	EnableDamageInterrupt bool    `toml:"enable_damage_interrupt"`
}

// IsEnabled resolves the optional enabled flag (default true).
func (c ThreatDetectionConfig) IsEnabled() bool {
	return c.Enabled == nil || *c.Enabled
}

// defaults returns the built-in configuration, kept in sync with the
// template text.
func defaults() *Config {
	enabled := true
	return &Config{
		Inner:   InnerConfig{Version: templateVersion},
		Logging: LoggingConfig{Level: "INFO", Format: "text"},
		LLM: LLMConfig{
			BaseURL:     "https://api.openai.com/v1",
			Model:       "gpt-4o",
			Temperature: 0.7,
			MaxTokens:   1024,
			Timeout:     60,
		},
		LLMFast: LLMConfig{
			BaseURL:     "https://api.openai.com/v1",
			Model:       "gpt-4o-mini",
			Temperature: 0.7,
			MaxTokens:   256,
			Timeout:     30,
		},
		Visual: VisualConfig{Enable: false},
		VLM: LLMConfig{
			BaseURL:     "https://api.openai.com/v1",
			Model:       "gpt-4o",
			Temperature: 0.3,
			MaxTokens:   512,
			Timeout:     60,
		},
		Bot: BotConfig{
			Username:       "Mai",
			AlternateNames: []string{"mai", "麦"},
		},
		Game: GameConfig{
			Transport:      "stdio",
			Command:        "maicraft-bridge",
			Timeout:        30,
			PollIntervalMS: 1000,
			EntityRange:    32,
			DataDir:        "data",
		},
		API: APIConfig{
			Enabled:           &enabled,
			Host:              "127.0.0.1",
			Port:              20914,
			HeartbeatInterval: 60,
			HeartbeatTimeout:  90,
		},
		ThreatDetection: ThreatDetectionConfig{
			Enabled:           &enabled,
			Range:             16,
			MinDistance:       8,
			ThreatTimeout:     300,
			AttackIntervalMS:  1500,
			MaxAttackAttempts: 3,
		},
	}
}

// validate checks the parsed configuration after defaults are applied.
func (c *Config) validate() error {
	switch strings.ToUpper(c.Logging.Level) {
	case "DEBUG", "INFO", "WARN", "ERROR":
	default:
		return NewValidationError("logging", "level", fmt.Errorf("%w: %q", ErrInvalidValue, c.Logging.Level))
	}
	switch c.Logging.Format {
	case "text", "json":
	default:
		return NewValidationError("logging", "format", fmt.Errorf("%w: %q", ErrInvalidValue, c.Logging.Format))
	}
	if c.Bot.Username == "" {
		return NewValidationError("bot", "username", ErrMissingRequiredField)
	}
	switch c.Game.Transport {
	case "stdio":
		if c.Game.Command == "" {
			return NewValidationError("game", "command", ErrMissingRequiredField)
		}
	case "http", "sse":
		if c.Game.URL == "" {
			return NewValidationError("game", "url", ErrMissingRequiredField)
		}
	default:
		return NewValidationError("game", "transport", fmt.Errorf("%w: %q", ErrInvalidValue, c.Game.Transport))
	}
	if c.API.IsEnabled() {
		if c.API.Port < 1 || c.API.Port > 65535 {
			return NewValidationError("api", "port", fmt.Errorf("%w: %d", ErrInvalidValue, c.API.Port))
		}
		if c.API.HeartbeatInterval <= 0 || c.API.HeartbeatTimeout <= c.API.HeartbeatInterval {
			return NewValidationError("api", "heartbeat_timeout", fmt.Errorf("%w: timeout must exceed interval", ErrInvalidValue))
		}
	}
	if c.Game.PollIntervalMS < 100 {
		return NewValidationError("game", "poll_interval_ms", fmt.Errorf("%w: %d (minimum 100)", ErrInvalidValue, c.Game.PollIntervalMS))
	}
	return nil
}

// BuildLogger constructs the process logger from the logging section.
func (c LoggingConfig) BuildLogger() *slog.Logger {
	var level slog.Level
	switch strings.ToUpper(c.Level) {
	case "DEBUG":
		level = slog.LevelDebug
	case "WARN":
		level = slog.LevelWarn
	case "ERROR":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler
	if c.Format == "json" {
		handler = slog.NewJSONHandler(os.Stderr, opts)
	} else {
		handler = slog.NewTextHandler(os.Stderr, opts)
	}
	return slog.New(handler)
}

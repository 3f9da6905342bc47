// Package config is the application configuration: the core sections plus
// storage, conversation, intake limits and metrics.
package config

import (
	"fmt"
	"strings"
	"time"

	coreconfig "github.com/m3rciful/teleform/core/config"
	coredatabase "github.com/m3rciful/teleform/core/database"
	"github.com/m3rciful/teleform/intake/conversation"
	"github.com/m3rciful/teleform/intake/submission"
)

// ConversationConfig selects where pending conversation steps live.
type ConversationConfig struct {
	// Backend is memory, redis or postgres.
	Backend string `yaml:"backend" envconfig:"CONVERSATION_BACKEND"`
	// TTLSeconds expires abandoned steps; 0 keeps them until consumed.
	TTLSeconds int `yaml:"ttl_seconds" envconfig:"CONVERSATION_TTL_SECONDS"`
}

// TTL returns the step lifetime.
func (c ConversationConfig) TTL() time.Duration {
	return time.Duration(c.TTLSeconds) * time.Second
}

// IntakeConfig bounds submissions.
type IntakeConfig struct {
	CooldownSeconds   int `yaml:"cooldown_seconds" envconfig:"INTAKE_COOLDOWN_SECONDS"`
	MaxTextLength     int `yaml:"max_text_length" envconfig:"INTAKE_MAX_TEXT_LENGTH"`
	MaxFileSizeMB     int `yaml:"max_file_size_mb" envconfig:"INTAKE_MAX_FILE_SIZE_MB"`
	PendingListLimit  int `yaml:"pending_list_limit" envconfig:"INTAKE_PENDING_LIST_LIMIT"`
	FanoutConcurrency int `yaml:"fanout_concurrency" envconfig:"INTAKE_FANOUT_CONCURRENCY"`
}

// Limits converts the section into lifecycle limits.
func (c IntakeConfig) Limits() submission.Limits {
	return submission.Limits{
		Cooldown:          time.Duration(c.CooldownSeconds) * time.Second,
		MaxTextLength:     c.MaxTextLength,
		MaxFileSize:       int64(c.MaxFileSizeMB) << 20,
		PendingListLimit:  c.PendingListLimit,
		FanoutConcurrency: c.FanoutConcurrency,
	}
}

// MetricsConfig configures the Prometheus listener.
type MetricsConfig struct {
	// Listen is host:port; empty disables the listener.
	Listen string `yaml:"listen" envconfig:"METRICS_LISTEN"`
}

// Config is the full application configuration.
type Config struct {
	coreconfig.Config `yaml:",inline"`

	Database     coredatabase.Config      `yaml:"database"`
	Redis        coredatabase.RedisConfig `yaml:"redis"`
	Conversation ConversationConfig       `yaml:"conversation"`
	Intake       IntakeConfig             `yaml:"intake"`
	Metrics      MetricsConfig            `yaml:"metrics"`
}

// CoreConfig exposes the embedded core section to the runner.
func (c *Config) CoreConfig() *coreconfig.Config {
	if c == nil {
		return nil
	}
	return &c.Config
}

// Load reads path, overlays the environment and normalizes the result.
func Load(path string) (*Config, error) {
	var cfg Config
	if err := coreconfig.Decode(path, &cfg); err != nil {
		return nil, err
	}
	if err := cfg.Normalize(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Normalize validates every section and fills defaults.
func (c *Config) Normalize() error {
	if err := coreconfig.Normalize(&c.Config); err != nil {
		return err
	}
	if err := c.Database.Normalize(); err != nil {
		return err
	}

	c.Conversation.Backend = strings.ToLower(strings.TrimSpace(c.Conversation.Backend))
	switch c.Conversation.Backend {
	case "":
		c.Conversation.Backend = conversation.BackendMemory
	case conversation.BackendMemory, conversation.BackendPostgres:
	case conversation.BackendRedis:
		if !c.Redis.Enabled() {
			return fmt.Errorf("redis.url is required when conversation.backend is 'redis'")
		}
	default:
		return fmt.Errorf("invalid conversation.backend %q; allowed: memory, redis, postgres", c.Conversation.Backend)
	}
	if c.Conversation.TTLSeconds < 0 {
		return fmt.Errorf("conversation.ttl_seconds must be >= 0")
	}
	if c.Redis.KeyPrefix == "" {
		c.Redis.KeyPrefix = "teleform"
	}

	d := submission.DefaultLimits()
	in := &c.Intake
	if in.CooldownSeconds <= 0 {
		in.CooldownSeconds = int(d.Cooldown / time.Second)
	}
	if in.MaxTextLength <= 0 {
		in.MaxTextLength = d.MaxTextLength
	}
	if in.MaxFileSizeMB <= 0 {
		in.MaxFileSizeMB = int(d.MaxFileSize >> 20)
	}
	if in.PendingListLimit <= 0 {
		in.PendingListLimit = d.PendingListLimit
	}
	if in.FanoutConcurrency <= 0 {
		in.FanoutConcurrency = d.FanoutConcurrency
	}
	return nil
}

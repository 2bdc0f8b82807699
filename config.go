package reviewq

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/reviewq/reviewq/policy"
	"github.com/reviewq/reviewq/service/queue"
)

// Config is a serialisable representation of the service configuration. It
// can be populated from JSON or YAML. The zero-value is useful – all nested
// fields inherit their package defaults and everything runs in memory.

type Config struct {
	Queue      QueueConfig      `json:"queue" yaml:"queue"`
	Archive    ArchiveConfig    `json:"archive" yaml:"archive"`
	Escalation EscalationConfig `json:"escalation" yaml:"escalation"`
	Notifier   NotifierConfig   `json:"notifier" yaml:"notifier"`
	Intake     *policy.Policy   `json:"intake,omitempty" yaml:"intake,omitempty"`
}

// QueueConfig selects the queue store. An empty BasePath keeps the queue in
// memory; otherwise items persist as JSON under the path (local directory or
// storage URL).
type QueueConfig struct {
	BasePath string `json:"basePath,omitempty" yaml:"basePath,omitempty"`
}

// ArchiveConfig selects the decision archive backend, same convention as
// QueueConfig.
type ArchiveConfig struct {
	BasePath string `json:"basePath,omitempty" yaml:"basePath,omitempty"`
}

// EscalationConfig drives the overdue-review sweep. Threshold is a Go
// duration string ("72h"); Schedule is a standard 5-field cron expression and
// an empty one disables the background sweep.
type EscalationConfig struct {
	Threshold string `json:"threshold,omitempty" yaml:"threshold,omitempty"`
	Schedule  string `json:"schedule,omitempty" yaml:"schedule,omitempty"`
}

// ThresholdDuration parses the threshold, falling back to the 72h default
// when unset.
func (e *EscalationConfig) ThresholdDuration() time.Duration {
	if e == nil || e.Threshold == "" {
		return queue.DefaultEscalationThreshold
	}
	d, err := time.ParseDuration(e.Threshold)
	if err != nil || d <= 0 {
		return queue.DefaultEscalationThreshold
	}
	return d
}

// NotifierConfig configures escalation alert delivery. With both fields set
// alerts go to Slack; otherwise they go to the process log.
type NotifierConfig struct {
	SlackBotToken  string `json:"slackBotToken,omitempty" yaml:"slackBotToken,omitempty"`
	SlackChannelID string `json:"slackChannelId,omitempty" yaml:"slackChannelId,omitempty"`
}

// DefaultConfig returns a Config populated with the package defaults:
// in-memory stores, 72h escalation threshold, hourly sweep schedule.
func DefaultConfig() *Config {
	return &Config{
		Escalation: EscalationConfig{
			Threshold: "72h",
			Schedule:  "0 * * * *",
		},
	}
}

// Validate returns an error describing invalid settings or nil.
func (c *Config) Validate() error {
	if c == nil {
		return nil
	}
	if c.Escalation.Threshold != "" {
		d, err := time.ParseDuration(c.Escalation.Threshold)
		if err != nil {
			return fmt.Errorf("escalation.threshold: %w", err)
		}
		if d <= 0 {
			return fmt.Errorf("escalation.threshold must be > 0")
		}
	}
	if c.Notifier.SlackBotToken != "" && c.Notifier.SlackChannelID == "" {
		return fmt.Errorf("notifier.slackChannelId is required when slackBotToken is set")
	}
	if c.Intake != nil && (c.Intake.MinConfidence < 0 || c.Intake.MinConfidence > 100) {
		return fmt.Errorf("intake.minConfidence must be within [0,100]")
	}
	return nil
}

// LoadConfig reads a YAML config file and validates it.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config %s: %w", path, err)
	}
	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

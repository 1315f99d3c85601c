package internal

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
)

// Config represents the application configuration.
type Config struct {
	App    ApplicationConfig `yaml:"app"`
	Vault  VaultConfig       `yaml:"vault"`
	Backup BackupConfig      `yaml:"backup"`
	Check  CheckConfig       `yaml:"check"`
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if err := c.Vault.Validate(); err != nil {
		return err
	}
	if err := c.Backup.Validate(); err != nil {
		return err
	}
	return c.Check.Validate()
}

// ApplicationConfig holds application-level configuration.
type ApplicationConfig struct {
	LogLevel slog.Level `yaml:"log_level"`
	// Strict promotes unresolved link targets from warnings to errors for
	// every operation.
	Strict bool `yaml:"strict"`
}

// VaultConfig holds the path to the Markdown document tree.
type VaultConfig struct {
	Path string `yaml:"path"`
}

// Validate validates the vault configuration.
func (c *VaultConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Path, validation.Required),
	)
}

// BackupConfig controls sibling backup copies written before destructive
// steps.
type BackupConfig struct {
	Enabled bool   `yaml:"enabled"`
	Suffix  string `yaml:"suffix"`
}

// Validate validates the backup configuration.
func (c *BackupConfig) Validate() error {
	if c.Suffix != "" && !strings.HasPrefix(c.Suffix, ".") {
		return fmt.Errorf("backup: suffix %q must start with a dot", c.Suffix)
	}
	return nil
}

// CheckConfig tunes external link checking.
type CheckConfig struct {
	Parallelism    int `yaml:"parallelism"`
	TimeoutSeconds int `yaml:"timeout_seconds"`
}

// Timeout returns the per-request timeout.
func (c *CheckConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// Validate validates the check configuration.
func (c *CheckConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Parallelism, validation.Required, validation.Min(1), validation.Max(64)),
		validation.Field(&c.TimeoutSeconds, validation.Required, validation.Min(1)),
	)
}

// NewDefaultConfig returns a new Config with sensible default values.
func NewDefaultConfig() *Config {
	return &Config{
		App: ApplicationConfig{
			LogLevel: slog.LevelInfo,
		},
		Vault: VaultConfig{
			Path: ".",
		},
		Backup: BackupConfig{
			Enabled: false,
			Suffix:  ".backup",
		},
		Check: CheckConfig{
			Parallelism:    8,
			TimeoutSeconds: 10,
		},
	}
}

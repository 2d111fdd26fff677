package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// Config is the root application configuration
type Config struct {
	Version     string `koanf:"version"`
	Environment string `koanf:"environment" validate:"oneof=development staging production"`
	LogLevel    string `koanf:"log_level" validate:"oneof=debug info warn error"`

	Security SecurityConfig `koanf:"security"`
	Audit    AuditConfig    `koanf:"audit"`
}

// SecurityConfig tunes the analysis pipeline
type SecurityConfig struct {
	MaxScanBytes         int            `koanf:"max_scan_bytes" validate:"gt=0"`
	HistoryLimit         int            `koanf:"history_limit" validate:"gt=0"`
	PersistenceWindow    time.Duration  `koanf:"persistence_window" validate:"gt=0"`
	ComplianceFrameworks []string       `koanf:"compliance_frameworks" validate:"min=1"`
	Weights              map[string]int `koanf:"weights" validate:"dive,gte=0,lte=100"`
}

// AuditConfig tunes the audit trail
type AuditConfig struct {
	TrailName            string        `koanf:"trail_name"`
	StorageBackend       string        `koanf:"storage_backend" validate:"oneof=memory file database external"`
	MaxEntries           int           `koanf:"max_entries" validate:"gt=0"`
	MaxSizeBytes         int64         `koanf:"max_size_bytes" validate:"gt=0"`
	ChecksumAlgorithm    string        `koanf:"checksum_algorithm" validate:"oneof=sha256 sha512 blake2b"`
	Async                bool          `koanf:"async"`
	BatchSize            int           `koanf:"batch_size" validate:"gt=0"`
	FlushInterval        time.Duration `koanf:"flush_interval" validate:"gt=0"`
	EnabledEventTypes    []string      `koanf:"enabled_event_types"`
	MinimumSeverity      string        `koanf:"minimum_severity" validate:"oneof=info low medium high critical"`
	DefaultRetentionDays int           `koanf:"default_retention_days" validate:"gt=0"`
	AutoRotate           bool          `koanf:"auto_rotate"`
	RotationSizeBytes    int64         `koanf:"rotation_size_bytes" validate:"gt=0"`
}

// IsProduction returns true when running in production mode
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

// Load reads configuration from defaults, then an optional
// configs/config.yaml, then LCSEC_-prefixed environment variables, and
// validates the result
func Load() (*Config, error) {
	return LoadFromFile("configs/config.yaml")
}

// LoadFromFile loads configuration with an explicit yaml path
func LoadFromFile(path string) (*Config, error) {
	k := koanf.New(".")

	defaults := Config{
		Version:     "1.0.0",
		Environment: "development",
		LogLevel:    "info",
		Security: SecurityConfig{
			MaxScanBytes:         1 << 20,
			HistoryLimit:         1000,
			PersistenceWindow:    5 * time.Minute,
			ComplianceFrameworks: []string{"owasp", "cwe", "nist"},
		},
		Audit: AuditConfig{
			TrailName:            "audit-trail",
			StorageBackend:       "memory",
			MaxEntries:           10000,
			MaxSizeBytes:         10 * 1024 * 1024,
			ChecksumAlgorithm:    "sha256",
			Async:                false,
			BatchSize:            100,
			FlushInterval:        time.Second,
			MinimumSeverity:      "info",
			DefaultRetentionDays: 90,
			AutoRotate:           false,
			RotationSizeBytes:    5 * 1024 * 1024,
		},
	}

	if err := k.Load(structs.Provider(defaults, "koanf"), nil); err != nil {
		return nil, fmt.Errorf("loading defaults: %w", err)
	}

	// Config file is optional
	if path != "" {
		_ = k.Load(file.Provider(path), yaml.Parser())
	}

	if err := k.Load(env.Provider("LCSEC_", ".", func(s string) string {
		return strings.Replace(strings.ToLower(
			strings.TrimPrefix(s, "LCSEC_")), "_", ".", -1)
	}), nil); err != nil {
		return nil, fmt.Errorf("loading environment variables: %w", err)
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	if err := validator.New().Struct(&cfg); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}
	return &cfg, nil
}

// Package config loads and validates gateway settings from an embedded
// default YAML document, an optional on-disk override, and environment
// variables, in that order of increasing precedence.
package config

import (
	"embed"
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/spf13/viper"
)

//go:embed config.yaml
var defaultConfigFS embed.FS

// LogRotation selects the lumberjack rotation policy used by internal/logging.
type LogRotation string

const (
	RotationDaily  LogRotation = "daily"
	RotationWeekly LogRotation = "weekly"
	RotationSize   LogRotation = "size"
)

// LogConfig mirrors the rotation knobs the teacher's Main.Log block exposed.
type LogConfig struct {
	Rotation LogRotation `mapstructure:"rotation" yaml:"rotation"`
	MaxSize  int64       `mapstructure:"max_size_bytes" yaml:"max_size_bytes"`
}

// FSKPreset names one of the three built-in modem tuning presets from spec.md §6.
type FSKPreset string

const (
	PresetLowLatency    FSKPreset = "lowLatency"
	PresetHighQuality   FSKPreset = "highQuality"
	PresetNoiseResistant FSKPreset = "noiseResistant"
)

// ModemConfig holds the 4-FSK tone plan and timing knobs for a preset.
type ModemConfig struct {
	Preset          FSKPreset `mapstructure:"preset" yaml:"preset"`
	SampleRateHz    int       `mapstructure:"sample_rate_hz" yaml:"sample_rate_hz"`
	BaudRate        float64   `mapstructure:"baud_rate" yaml:"baud_rate"`
	ToneFreqsHz     [4]float64 `mapstructure:"tone_freqs_hz" yaml:"tone_freqs_hz"`
	PreambleSymbols int       `mapstructure:"preamble_symbols" yaml:"preamble_symbols"`
}

// RateLimitConfig configures the sliding-window limiter in internal/api.
type RateLimitConfig struct {
	Window      time.Duration `mapstructure:"window" yaml:"window"`
	MaxRequests int           `mapstructure:"max_requests" yaml:"max_requests"`
}

// HandshakeConfig sets the defaults and bounds used during feature negotiation.
type HandshakeConfig struct {
	SessionTTL   time.Duration `mapstructure:"session_ttl" yaml:"session_ttl"`
	SweepEvery   time.Duration `mapstructure:"sweep_interval" yaml:"sweep_interval"`
	MinMTU       int           `mapstructure:"min_mtu" yaml:"min_mtu"`
	MaxMTU       int           `mapstructure:"max_mtu" yaml:"max_mtu"`
	DefaultMTU   int           `mapstructure:"default_mtu" yaml:"default_mtu"`
}

// AuditConfig points the journal at its on-disk files and rotation threshold.
type AuditConfig struct {
	LogPath          string `mapstructure:"log_path" yaml:"log_path"`
	TranscriptDir    string `mapstructure:"transcript_dir" yaml:"transcript_dir"`
	MaxSizeBytes     int64  `mapstructure:"max_size_bytes" yaml:"max_size_bytes"`
}

// APIConfig configures the HTTP/WebSocket surface.
type APIConfig struct {
	Port    int      `mapstructure:"port" yaml:"port"`
	APIKeys []string `mapstructure:"api_keys" yaml:"api_keys"`
}

// Settings is the root gateway configuration document.
type Settings struct {
	Debug     bool            `mapstructure:"debug" yaml:"debug"`
	Log       LogConfig       `mapstructure:"log" yaml:"log"`
	API       APIConfig       `mapstructure:"api" yaml:"api"`
	RateLimit RateLimitConfig `mapstructure:"rate_limit" yaml:"rate_limit"`
	Handshake HandshakeConfig `mapstructure:"handshake" yaml:"handshake"`
	Audit     AuditConfig     `mapstructure:"audit" yaml:"audit"`
	Modem     ModemConfig     `mapstructure:"modem" yaml:"modem"`
}

var (
	settingsMu      sync.RWMutex
	currentSettings *Settings
)

// envBinding mirrors the teacher's conf/env.go pattern: a config key paired
// with the environment variable that overrides it and an optional validator.
type envBinding struct {
	ConfigKey string
	EnvVar    string
	Validate  func(string) error
}

func getEnvBindings() []envBinding {
	return []envBinding{
		{ConfigKey: "api.port", EnvVar: "PORT", Validate: validatePort},
		{ConfigKey: "api.api_keys", EnvVar: "API_KEYS"},
		{ConfigKey: "rate_limit.window", EnvVar: "RATE_LIMIT_WINDOW", Validate: validateDuration},
		{ConfigKey: "rate_limit.max_requests", EnvVar: "RATE_LIMIT_MAX_REQUESTS"},
		{ConfigKey: "audit.log_path", EnvVar: "AUDIT_LOG_PATH"},
		{ConfigKey: "audit.transcript_dir", EnvVar: "TRANSCRIPT_STORAGE_PATH"},
	}
}

func validatePort(value string) error {
	var port int
	if _, err := fmt.Sscanf(value, "%d", &port); err != nil {
		return fmt.Errorf("PORT must be numeric: %w", err)
	}
	if port < 1 || port > 65535 {
		return fmt.Errorf("PORT %d out of range [1,65535]", port)
	}
	return nil
}

func validateDuration(value string) error {
	if _, err := time.ParseDuration(value); err != nil {
		return fmt.Errorf("invalid duration %q: %w", value, err)
	}
	return nil
}

func bindEnvVars(v *viper.Viper) []string {
	var warnings []string
	for _, binding := range getEnvBindings() {
		if err := v.BindEnv(binding.ConfigKey, binding.EnvVar); err != nil {
			warnings = append(warnings, fmt.Sprintf("failed to bind %s: %v", binding.EnvVar, err))
			continue
		}
		if binding.Validate == nil {
			continue
		}
		if raw, ok := os.LookupEnv(binding.EnvVar); ok {
			if err := binding.Validate(raw); err != nil {
				warnings = append(warnings, fmt.Sprintf("%s: %v", binding.EnvVar, err))
			}
		}
	}
	return warnings
}

// Load reads the embedded default config, an optional override file at
// path (ignored if empty or missing), applies environment bindings, and
// returns the resulting Settings. It also caches the result for Setting().
func Load(overridePath string) (*Settings, []string, error) {
	v := viper.New()
	v.SetConfigType("yaml")

	defaultBytes, err := defaultConfigFS.ReadFile("config.yaml")
	if err != nil {
		return nil, nil, fmt.Errorf("reading embedded default config: %w", err)
	}
	if err := v.ReadConfig(strings.NewReader(string(defaultBytes))); err != nil {
		return nil, nil, fmt.Errorf("parsing embedded default config: %w", err)
	}

	if overridePath != "" {
		v.SetConfigFile(overridePath)
		if err := v.MergeInConfig(); err != nil {
			return nil, nil, fmt.Errorf("merging override config %s: %w", overridePath, err)
		}
	}

	v.SetEnvPrefix("GIBBERLINK")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	warnings := bindEnvVars(v)

	var settings Settings
	if err := v.Unmarshal(&settings); err != nil {
		return nil, warnings, fmt.Errorf("unmarshalling settings: %w", err)
	}

	if settings.Handshake.MinMTU == 0 {
		settings.Handshake.MinMTU = 64
	}
	if settings.Handshake.MaxMTU == 0 {
		settings.Handshake.MaxMTU = 65535
	}

	settingsMu.Lock()
	currentSettings = &settings
	settingsMu.Unlock()

	return &settings, warnings, nil
}

// Setting returns the most recently Load-ed settings, or a zero-value
// Settings if Load has not yet been called (mirrors the teacher's
// conf.Setting() accessor so callers never need a nil check).
func Setting() *Settings {
	settingsMu.RLock()
	defer settingsMu.RUnlock()
	if currentSettings == nil {
		return &Settings{}
	}
	return currentSettings
}

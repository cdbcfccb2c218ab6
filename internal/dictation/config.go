// ============================================================================
// GhostType - Voice Dictation for Desktop
// ============================================================================
//
// Package:     dictation
// Description: Client configuration loading and persistence
// Author:      Yida
// Created:     2026-01-17
// License:     MIT
// ============================================================================

package dictation

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/Yida-git/GhostType/internal/dictation/asr"
	"github.com/Yida-git/GhostType/internal/dictation/history"
	"github.com/Yida-git/GhostType/internal/dictation/llm"
	"github.com/Yida-git/GhostType/pkg/core/logging"
)

// CurrentSchemaVersion tags the config layout for future migrations
const CurrentSchemaVersion = 210

// EnvConfigPath overrides the config search path when set
const EnvConfigPath = "GHOSTTYPE_CONFIG"

const configFileName = "config.toml"

// LoggingConfig is the file-level logging section; string valued so the
// file stays hand-editable
type LoggingConfig struct {
	Level  string `toml:"level" json:"level"`
	Format string `toml:"format" json:"format"`
}

// BuildLogger creates the named logger configured by this section
func (c LoggingConfig) BuildLogger(name string) *logging.Logger {
	format := logging.FormatText
	if strings.EqualFold(strings.TrimSpace(c.Format), "json") {
		format = logging.FormatJSON
	}
	return logging.NewWithConfig(logging.Config{
		Level:  logging.ParseLevel(c.Level),
		Format: format,
		Name:   name,
	})
}

// CorrectionConfig wraps the engine selection with replacement behavior
type CorrectionConfig struct {
	llm.Config
	// MinReplaceDelayMs is the minimum on-screen time for optimistic text
	// before a correction may replace it
	MinReplaceDelayMs int `toml:"min_replace_delay_ms" json:"min_replace_delay_ms"`
}

// Config is the full client configuration
type Config struct {
	SchemaVersion int    `toml:"schema_version" json:"schema_version"`
	Hotkey        string `toml:"hotkey" json:"hotkey"`
	AudioDevice   string `toml:"audio_device" json:"audio_device"`

	ASR        asr.Config       `toml:"asr" json:"asr"`
	Correction CorrectionConfig `toml:"correction" json:"correction"`
	History    history.Config   `toml:"history" json:"history"`
	Logging    LoggingConfig    `toml:"logging" json:"logging"`

	// legacy top-level fields from pre-210 config files, folded into the
	// asr section on load and never written back
	ServerEndpoints []string `toml:"server_endpoints,omitempty" json:"server_endpoints,omitempty"`
	UseCloudAPI     bool     `toml:"use_cloud_api,omitempty" json:"use_cloud_api,omitempty"`
}

// DefaultConfig returns the configuration used when no file is found
func DefaultConfig() Config {
	return Config{
		SchemaVersion: CurrentSchemaVersion,
		Hotkey:        defaultHotkey(),
		ASR:           asr.DefaultConfig(),
		Correction: CorrectionConfig{
			Config:            llm.DefaultConfig(),
			MinReplaceDelayMs: int(DefaultMinReplaceDelay.Milliseconds()),
		},
		History: history.DefaultConfig(),
		Logging: LoggingConfig{Level: "info", Format: "text"},
	}
}

// defaultHotkey picks the push-to-talk key. Caps lock was the historical
// default but the hotkey layer cannot deliver distinct press and release
// for it, so F8 on every platform. Configs carrying capslock still load
// and fall back at registration time.
func defaultHotkey() string {
	return "f8"
}

// LoadConfig reads the first parseable config from the candidate paths and
// returns it with the path it came from. No file at all is not an error;
// the defaults apply and the path is empty.
func LoadConfig() (Config, string) {
	for _, path := range candidatePaths() {
		cfg := DefaultConfig()
		if _, err := toml.DecodeFile(path, &cfg); err != nil {
			continue
		}
		return normalizeLegacy(cfg), path
	}
	return DefaultConfig(), ""
}

// SaveConfig writes cfg to path, or to the default location when path is
// empty. Legacy fields are dropped on write.
func SaveConfig(cfg Config, path string) (string, error) {
	cfg = normalizeLegacy(cfg)
	cfg.ServerEndpoints = nil
	cfg.UseCloudAPI = false
	cfg.SchemaVersion = CurrentSchemaVersion

	if path == "" {
		path = defaultSavePath()
	}
	if dir := filepath.Dir(path); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return "", fmt.Errorf("create config dir: %w", err)
		}
	}

	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("write config: %w", err)
	}
	defer f.Close()

	if err := toml.NewEncoder(f).Encode(cfg); err != nil {
		return "", fmt.Errorf("encode config: %w", err)
	}
	return path, nil
}

// candidatePaths lists config locations in priority order: explicit env
// override, the user config dir, next to the executable, then the working
// directory.
func candidatePaths() []string {
	var paths []string

	if explicit := os.Getenv(EnvConfigPath); explicit != "" {
		paths = append(paths, explicit)
	}

	if dir, err := os.UserConfigDir(); err == nil {
		paths = append(paths, filepath.Join(dir, "ghosttype", configFileName))
	}

	if exe, err := os.Executable(); err == nil {
		paths = append(paths, filepath.Join(filepath.Dir(exe), configFileName))
	}

	if cwd, err := os.Getwd(); err == nil {
		paths = append(paths, filepath.Join(cwd, configFileName))
	}

	return paths
}

func defaultSavePath() string {
	if dir, err := os.UserConfigDir(); err == nil {
		return filepath.Join(dir, "ghosttype", configFileName)
	}
	if exe, err := os.Executable(); err == nil {
		return filepath.Join(filepath.Dir(exe), configFileName)
	}
	return configFileName
}

// normalizeLegacy folds pre-210 top-level fields into the asr section. The
// old server_endpoints list only wins while the asr endpoint still holds
// the default.
func normalizeLegacy(cfg Config) Config {
	endpoint := strings.TrimSpace(cfg.ASR.Endpoint)
	isDefault := endpoint == "" || endpoint == asr.DefaultEndpoint
	if isDefault && len(cfg.ServerEndpoints) > 0 {
		if legacy := strings.TrimSpace(cfg.ServerEndpoints[0]); legacy != "" {
			cfg.ASR.Endpoint = legacy
		}
	}
	if cfg.UseCloudAPI {
		cfg.ASR.UseCloudAPI = true
	}
	return cfg
}

// MinReplaceDelay converts the configured dwell to a duration, falling back
// to the default for zero or negative values
func (c CorrectionConfig) MinReplaceDelay() time.Duration {
	if c.MinReplaceDelayMs <= 0 {
		return DefaultMinReplaceDelay
	}
	return time.Duration(c.MinReplaceDelayMs) * time.Millisecond
}

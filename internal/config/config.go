// Package config loads and saves takarum's YAML configuration file.
package config

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"slices"
	"strings"

	"go.yaml.in/yaml/v3"
)

const (
	maxConfigFileBytes int64 = 1 << 20 // 1MB

	// maxPacingMillis caps the artificial delay between progress emissions.
	// Anything longer makes a six-raster build feel hung.
	maxPacingMillis = 10_000
)

// userHomeDirFn is a test seam; tests override it to simulate home-directory
// resolution failures in DefaultPath.
var userHomeDirFn = os.UserHomeDir

var identifierPrefixPattern = regexp.MustCompile(`^[a-z0-9]+(\.[a-z0-9-]+)+$`)

// permittedIconSizes are the raster dimensions an icon container accepts.
var permittedIconSizes = []uint{16, 32, 64, 128, 256, 512}

// Config is takarum runtime configuration.
type Config struct {
	// IconSizes are the raster dimensions rendered into each container.
	// Must be a subset of the six permitted sizes; empty means all six.
	IconSizes []uint `yaml:"icon_sizes,omitempty" json:"icon_sizes,omitempty"`
	// IdentifierPrefix is the reverse-DNS prefix the bundle identifier is
	// built from: "<prefix>.<app_name_lower>".
	IdentifierPrefix string `yaml:"identifier_prefix" json:"identifier_prefix"`
	// BundleVersion is the CFBundleShortVersionString written into every
	// generated Info.plist.
	BundleVersion string `yaml:"bundle_version" json:"bundle_version"`
	// PacingMillis is the sleep between progress emissions during a build.
	// 0 disables pacing.
	PacingMillis int `yaml:"pacing_millis" json:"pacing_millis"`
	// HistoryDBPath locates the build-history SQLite database. Empty means
	// "history.db next to the config file".
	HistoryDBPath string `yaml:"history_db_path,omitempty" json:"history_db_path,omitempty"`
	// HubListenAddr is the localhost address the progress WebSocket hub
	// binds to. Port 0 lets the OS pick.
	HubListenAddr string `yaml:"hub_listen_addr" json:"hub_listen_addr"`
	// WatchDebounceMillis is the quiet period after a source-icon change
	// before a rebuild fires.
	WatchDebounceMillis int `yaml:"watch_debounce_millis" json:"watch_debounce_millis"`
}

// DefaultConfig returns the built-in configuration.
func DefaultConfig() Config {
	return Config{
		IconSizes:           slices.Clone(permittedIconSizes),
		IdentifierPrefix:    "com.takarum.apps",
		BundleVersion:       "0.1.0",
		PacingMillis:        50,
		HubListenAddr:       "127.0.0.1:0",
		WatchDebounceMillis: 300,
	}
}

// DefaultPath resolves the config file path under ~/.config/takarum,
// falling back to os.TempDir() when the home directory cannot be resolved.
// The temp-dir fallback is not a stable persistence location.
func DefaultPath() string {
	home, err := userHomeDirFn()
	if err != nil {
		slog.Warn("[CONFIG] using temp dir as config path fallback", "error", err)
		return filepath.Join(os.TempDir(), "takarum", "config.yaml")
	}
	return filepath.Join(home, ".config", "takarum", "config.yaml")
}

// HistoryPath resolves the build-history database path, defaulting to a
// sibling of the config file.
func (c Config) HistoryPath(configPath string) string {
	if c.HistoryDBPath != "" {
		return c.HistoryDBPath
	}
	return filepath.Join(filepath.Dir(configPath), "history.db")
}

// Load reads the config file. A missing file yields defaults without error;
// a malformed file yields defaults plus the parse error.
func Load(path string) (Config, error) {
	cfg := DefaultConfig()
	if path == "" {
		return cfg, errors.New("config path required")
	}

	raw, err := readLimitedFile(path, maxConfigFileBytes)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return cfg, nil
		}
		return cfg, err
	}
	if len(raw) == 0 {
		return cfg, nil
	}
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		slog.Warn("[CONFIG] failed to parse config, using defaults", "path", path, "error", err)
		return DefaultConfig(), err
	}
	if err := applyDefaultsAndValidate(&cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// EnsureFile writes the default config if missing and returns the loaded
// config.
func EnsureFile(path string) (Config, error) {
	cfg, err := Load(path)
	if err != nil {
		return cfg, err
	}
	if _, statErr := os.Stat(path); errors.Is(statErr, os.ErrNotExist) {
		if _, err := Save(path, cfg); err != nil {
			return cfg, err
		}
	}
	return cfg, nil
}

// Save validates cfg and writes it atomically, returning the normalised
// config that was written.
func Save(path string, cfg Config) (Config, error) {
	if path == "" {
		return cfg, errors.New("config path required")
	}
	if err := applyDefaultsAndValidate(&cfg); err != nil {
		return cfg, err
	}
	raw, err := yaml.Marshal(cfg)
	if err != nil {
		return cfg, fmt.Errorf("save config: marshal: %w", err)
	}
	if err := atomicWrite(path, raw); err != nil {
		return cfg, err
	}
	slog.Debug("[CONFIG] config saved", "path", path)
	return cfg, nil
}

// atomicWrite writes config data using temp-file + fsync + rename so a crash
// never leaves a partial config behind.
func atomicWrite(path string, data []byte) (err error) {
	dir := filepath.Dir(path)
	if err = os.MkdirAll(dir, 0o700); err != nil {
		return fmt.Errorf("save config: mkdir: %w", err)
	}

	tmpFile, err := os.CreateTemp(dir, ".config.yaml.tmp.*")
	if err != nil {
		return fmt.Errorf("save config: create temp: %w", err)
	}
	tmpPath := tmpFile.Name()

	defer func() {
		if tmpFile != nil {
			if closeErr := tmpFile.Close(); closeErr != nil && !errors.Is(closeErr, os.ErrClosed) {
				slog.Warn("[CONFIG] failed to close temp file", "path", tmpPath, "error", closeErr)
			}
		}
		if err != nil {
			if removeErr := os.Remove(tmpPath); removeErr != nil && !errors.Is(removeErr, os.ErrNotExist) {
				slog.Warn("[CONFIG] failed to remove temp file", "path", tmpPath, "error", removeErr)
			}
		}
	}()

	if _, err = tmpFile.Write(data); err != nil {
		return fmt.Errorf("save config: write temp: %w", err)
	}
	if err = tmpFile.Chmod(0o600); err != nil {
		return fmt.Errorf("save config: chmod temp: %w", err)
	}
	if err = tmpFile.Sync(); err != nil {
		return fmt.Errorf("save config: sync temp: %w", err)
	}
	if err = tmpFile.Close(); err != nil {
		return fmt.Errorf("save config: close temp: %w", err)
	}
	tmpFile = nil

	if err = os.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("save config: rename: %w", err)
	}
	return nil
}

func applyDefaultsAndValidate(cfg *Config) error {
	def := DefaultConfig()

	if len(cfg.IconSizes) == 0 {
		cfg.IconSizes = slices.Clone(def.IconSizes)
	} else {
		sizes := slices.Clone(cfg.IconSizes)
		slices.Sort(sizes)
		sizes = slices.Compact(sizes)
		for _, s := range sizes {
			if !slices.Contains(permittedIconSizes, s) {
				return fmt.Errorf("config: icon size %d is not one of %v", s, permittedIconSizes)
			}
		}
		cfg.IconSizes = sizes
	}

	if strings.TrimSpace(cfg.IdentifierPrefix) == "" {
		cfg.IdentifierPrefix = def.IdentifierPrefix
	}
	if !identifierPrefixPattern.MatchString(cfg.IdentifierPrefix) {
		return fmt.Errorf("config: identifier prefix %q is not reverse-DNS", cfg.IdentifierPrefix)
	}

	if strings.TrimSpace(cfg.BundleVersion) == "" {
		cfg.BundleVersion = def.BundleVersion
	}

	if cfg.PacingMillis < 0 {
		slog.Warn("[CONFIG] negative pacing, using default", "value", cfg.PacingMillis)
		cfg.PacingMillis = def.PacingMillis
	}
	if cfg.PacingMillis > maxPacingMillis {
		slog.Warn("[CONFIG] pacing above cap, clamping", "value", cfg.PacingMillis, "cap", maxPacingMillis)
		cfg.PacingMillis = maxPacingMillis
	}

	if strings.TrimSpace(cfg.HubListenAddr) == "" {
		cfg.HubListenAddr = def.HubListenAddr
	}
	if err := validateLoopbackAddr(cfg.HubListenAddr); err != nil {
		return err
	}

	if cfg.WatchDebounceMillis <= 0 {
		cfg.WatchDebounceMillis = def.WatchDebounceMillis
	}
	return nil
}

// validateLoopbackAddr rejects hub addresses that would expose the progress
// stream beyond the local machine.
func validateLoopbackAddr(addr string) error {
	host := addr
	if i := strings.LastIndex(addr, ":"); i >= 0 {
		host = addr[:i]
	}
	switch host {
	case "127.0.0.1", "localhost", "::1", "[::1]":
		return nil
	}
	return fmt.Errorf("config: hub address %q must bind loopback", addr)
}

func readLimitedFile(path string, maxBytes int64) ([]byte, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	limited := io.LimitReader(file, maxBytes+1)
	raw, err := io.ReadAll(limited)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	if int64(len(raw)) > maxBytes {
		return nil, fmt.Errorf("read config: file exceeds %d bytes", maxBytes)
	}
	return raw, nil
}

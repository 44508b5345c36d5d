/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

// Package config loads the user configuration: a YAML file in the user
// config directory merged over defaults, then environment overrides. The
// database password never lives in the file; it is kept in the OS keyring.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
	"time"

	"github.com/zalando/go-keyring"
	"gopkg.in/yaml.v3"
)

// CurrentVersion is the config_version written by Save.
const CurrentVersion = 1

type DatabaseConfig struct {
	// Driver is "postgres" or "sqlite".
	Driver     string `yaml:"driver"`
	DSN        string `yaml:"dsn"`
	Host       string `yaml:"host"`
	Port       int    `yaml:"port"`
	User       string `yaml:"user"`
	Name       string `yaml:"name"`
	SSLMode    string `yaml:"sslmode"`
	SQLitePath string `yaml:"sqlite_path"`
	// Password is not stored on disk; it lives in the OS keychain.
	Password string `yaml:"-"`
}

type ServerConfig struct {
	Addr              string `yaml:"addr"`
	ReadTimeoutMs     int    `yaml:"read_timeout_ms"`
	ShutdownTimeoutMs int    `yaml:"shutdown_timeout_ms"`
}

type BackendConfig struct {
	BaseURL   string `yaml:"base_url"`
	TimeoutMs int    `yaml:"timeout_ms"`
	Retries   int    `yaml:"retries"`
}

type LayoutConfig struct {
	VenueID         string  `yaml:"venue_id"`
	ContainerWidth  float64 `yaml:"container_width"`
	ContainerHeight float64 `yaml:"container_height"`
	SnapDistance    float64 `yaml:"snap_distance"`
	SnapPolicy      string  `yaml:"snap_policy"` // "closest" | "last_match"
	Grid            float64 `yaml:"grid"`
	MinTableSize    float64 `yaml:"min_table_size"`
	ZoomStep        float64 `yaml:"zoom_step"`
	FitPadding      float64 `yaml:"fit_padding"`
	FeedbackBaseURL string  `yaml:"feedback_base_url"`
}

type TelemetryConfig struct {
	OptIn     bool   `yaml:"opt_in"`
	EventsURL string `yaml:"events_url"`
	CrashURL  string `yaml:"crash_url"`
}

type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Source bool   `yaml:"source"`
	File   string `yaml:"file"`
}

type AppConfig struct {
	ConfigVersion int             `yaml:"config_version"`
	Database      DatabaseConfig  `yaml:"database"`
	Server        ServerConfig    `yaml:"server"`
	Backend       BackendConfig   `yaml:"backend"`
	Layout        LayoutConfig    `yaml:"layout"`
	Telemetry     TelemetryConfig `yaml:"telemetry"`
	Logging       LoggingConfig   `yaml:"logging"`
}

// Defaults returns the application defaults.
func Defaults() AppConfig {
	return AppConfig{
		ConfigVersion: CurrentVersion,
		Database: DatabaseConfig{
			Driver:  "sqlite",
			Host:    "localhost",
			Port:    5432,
			User:    "postgres",
			Name:    "chatters",
			SSLMode: "disable",
		},
		Server:  ServerConfig{Addr: ":8080", ReadTimeoutMs: 10000, ShutdownTimeoutMs: 5000},
		Backend: BackendConfig{BaseURL: "http://localhost:8080", TimeoutMs: 15000, Retries: 2},
		Layout: LayoutConfig{
			ContainerWidth:  1200,
			ContainerHeight: 800,
			SnapDistance:    10,
			SnapPolicy:      "closest",
			Grid:            5,
			MinTableSize:    40,
			ZoomStep:        0.1,
			FitPadding:      40,
		},
		Logging: LoggingConfig{Level: "info", Format: "console"},
	}
}

// Env var names used as overrides.
const (
	EnvDBDriver       = "CHT_DB_DRIVER"
	EnvDBDSN          = "CHT_DB_DSN"
	EnvDBPassword     = "CHT_DB_PASSWORD"
	EnvSQLitePath     = "CHT_SQLITE_PATH"
	EnvServerAddr     = "CHT_SERVER_ADDR"
	EnvBackendURL     = "CHT_BACKEND_URL"
	EnvBackendTimeout = "CHT_BACKEND_TIMEOUT_MS"
	EnvVenueID        = "CHT_VENUE_ID"
	EnvSnapPolicy     = "CHT_SNAP_POLICY"
	EnvFeedbackURL    = "CHT_FEEDBACK_URL"
	EnvTelemetryOptIn = "CHT_TELEMETRY_OPT_IN"
	EnvTelemetryURL   = "CHT_TELEMETRY_URL"
	EnvLogLevel       = "CHT_LOG_LEVEL"
	EnvLogFormat      = "CHT_LOG_FORMAT"
	EnvLogSource      = "CHT_LOG_SOURCE"
	EnvLogFile        = "CHT_LOG_FILE"
)

// Service/keys for OS keyring.
const (
	keyringService  = "Chatters"
	keyringPassword = "db_password"
)

// SecretStore abstracts the keyring so tests can stub it.
type SecretStore interface {
	Get(service, key string) (string, error)
	Set(service, key, value string) error
	Delete(service, key string) error
}

// osKeyring implements SecretStore using the OS keyring.
type osKeyring struct{}

func (osKeyring) Get(service, key string) (string, error) { return keyring.Get(service, key) }
func (osKeyring) Set(service, key, value string) error    { return keyring.Set(service, key, value) }
func (osKeyring) Delete(service, key string) error        { return keyring.Delete(service, key) }

var secrets SecretStore = osKeyring{}

// ConfigPath returns the per-user config file path. CHT_CONFIG overrides it.
func ConfigPath() (string, error) {
	if p := strings.TrimSpace(os.Getenv("CHT_CONFIG")); p != "" {
		return p, nil
	}
	var base string
	switch runtime.GOOS {
	case "windows":
		base = os.Getenv("AppData")
		if base == "" {
			base = filepath.Join(os.Getenv("USERPROFILE"), "AppData", "Roaming")
		}
		base = filepath.Join(base, "Chatters")
	case "darwin":
		base = filepath.Join(os.Getenv("HOME"), "Library", "Application Support", "Chatters")
	default:
		if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
			base = filepath.Join(xdg, "chatters")
		} else {
			base = filepath.Join(os.Getenv("HOME"), ".config", "chatters")
		}
	}
	if base == "" {
		return "", errors.New("cannot resolve config directory")
	}
	return filepath.Join(base, "config.yaml"), nil
}

// DefaultSQLitePath places the local database next to the config file.
func DefaultSQLitePath() string {
	p, err := ConfigPath()
	if err != nil {
		return "chatters.sqlite"
	}
	return filepath.Join(filepath.Dir(p), "chatters.sqlite")
}

// Load reads the user config file (if present), applies defaults, merges
// environment overrides and resolves the database password.
func Load() (AppConfig, error) {
	cfg := Defaults()
	path, err := ConfigPath()
	if err != nil {
		return cfg, err
	}
	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		var fileCfg AppConfig
		if err := yaml.Unmarshal(data, &fileCfg); err != nil {
			return cfg, fmt.Errorf("parse %s: %w", path, err)
		}
		mergeInto(&cfg, &fileCfg)
	case !errors.Is(err, os.ErrNotExist):
		return cfg, fmt.Errorf("read %s: %w", path, err)
	}
	applyEnvOverrides(&cfg)
	if cfg.Database.SQLitePath == "" {
		cfg.Database.SQLitePath = DefaultSQLitePath()
	}
	if cfg.Database.Password == "" {
		if pw, err := secrets.Get(keyringService, keyringPassword); err == nil {
			cfg.Database.Password = pw
		}
	}
	return cfg, nil
}

// Save writes the user config YAML and stores the database password in the
// OS keyring when set.
func Save(cfg AppConfig) error {
	path, err := ConfigPath()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	cfg.ConfigVersion = CurrentVersion
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return err
	}
	if cfg.Database.Password != "" {
		if err := secrets.Set(keyringService, keyringPassword, cfg.Database.Password); err != nil {
			return fmt.Errorf("store password: %w", err)
		}
	}
	return nil
}

// ForgetPassword removes the stored database password.
func ForgetPassword() error {
	err := secrets.Delete(keyringService, keyringPassword)
	if errors.Is(err, keyring.ErrNotFound) {
		return nil
	}
	return err
}

func mergeInto(dst *AppConfig, src *AppConfig) {
	if src.ConfigVersion != 0 {
		dst.ConfigVersion = src.ConfigVersion
	}
	setStr(&dst.Database.Driver, strings.ToLower(src.Database.Driver))
	setStr(&dst.Database.DSN, src.Database.DSN)
	setStr(&dst.Database.Host, src.Database.Host)
	setInt(&dst.Database.Port, src.Database.Port)
	setStr(&dst.Database.User, src.Database.User)
	setStr(&dst.Database.Name, src.Database.Name)
	setStr(&dst.Database.SSLMode, src.Database.SSLMode)
	setStr(&dst.Database.SQLitePath, src.Database.SQLitePath)

	setStr(&dst.Server.Addr, src.Server.Addr)
	setInt(&dst.Server.ReadTimeoutMs, src.Server.ReadTimeoutMs)
	setInt(&dst.Server.ShutdownTimeoutMs, src.Server.ShutdownTimeoutMs)

	setStr(&dst.Backend.BaseURL, src.Backend.BaseURL)
	setInt(&dst.Backend.TimeoutMs, src.Backend.TimeoutMs)
	setInt(&dst.Backend.Retries, src.Backend.Retries)

	setStr(&dst.Layout.VenueID, src.Layout.VenueID)
	setFloat(&dst.Layout.ContainerWidth, src.Layout.ContainerWidth)
	setFloat(&dst.Layout.ContainerHeight, src.Layout.ContainerHeight)
	setFloat(&dst.Layout.SnapDistance, src.Layout.SnapDistance)
	setStr(&dst.Layout.SnapPolicy, strings.ToLower(src.Layout.SnapPolicy))
	setFloat(&dst.Layout.Grid, src.Layout.Grid)
	setFloat(&dst.Layout.MinTableSize, src.Layout.MinTableSize)
	setFloat(&dst.Layout.ZoomStep, src.Layout.ZoomStep)
	setFloat(&dst.Layout.FitPadding, src.Layout.FitPadding)
	setStr(&dst.Layout.FeedbackBaseURL, src.Layout.FeedbackBaseURL)

	// booleans: copy directly from the file so user preferences persist
	dst.Telemetry.OptIn = src.Telemetry.OptIn
	setStr(&dst.Telemetry.EventsURL, src.Telemetry.EventsURL)
	setStr(&dst.Telemetry.CrashURL, src.Telemetry.CrashURL)

	setStr(&dst.Logging.Level, strings.ToLower(src.Logging.Level))
	setStr(&dst.Logging.Format, strings.ToLower(src.Logging.Format))
	dst.Logging.Source = src.Logging.Source
	setStr(&dst.Logging.File, src.Logging.File)
}

func setStr(dst *string, v string) {
	if v = strings.TrimSpace(v); v != "" {
		*dst = v
	}
}

func setInt(dst *int, v int) {
	if v != 0 {
		*dst = v
	}
}

func setFloat(dst *float64, v float64) {
	if v != 0 {
		*dst = v
	}
}

func parseBool(v string) bool {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "1", "true", "on", "yes":
		return true
	}
	return false
}

func applyEnvOverrides(cfg *AppConfig) {
	env := func(k string) string { return strings.TrimSpace(os.Getenv(k)) }
	setStr(&cfg.Database.Driver, strings.ToLower(env(EnvDBDriver)))
	setStr(&cfg.Database.DSN, env(EnvDBDSN))
	setStr(&cfg.Database.Password, os.Getenv(EnvDBPassword))
	setStr(&cfg.Database.SQLitePath, env(EnvSQLitePath))
	setStr(&cfg.Server.Addr, env(EnvServerAddr))
	setStr(&cfg.Backend.BaseURL, env(EnvBackendURL))
	if v := env(EnvBackendTimeout); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Backend.TimeoutMs = n
		}
	}
	setStr(&cfg.Layout.VenueID, env(EnvVenueID))
	setStr(&cfg.Layout.SnapPolicy, strings.ToLower(env(EnvSnapPolicy)))
	setStr(&cfg.Layout.FeedbackBaseURL, env(EnvFeedbackURL))
	if v := env(EnvTelemetryOptIn); v != "" {
		cfg.Telemetry.OptIn = parseBool(v)
	}
	setStr(&cfg.Telemetry.EventsURL, env(EnvTelemetryURL))
	setStr(&cfg.Logging.Level, strings.ToLower(env(EnvLogLevel)))
	setStr(&cfg.Logging.Format, strings.ToLower(env(EnvLogFormat)))
	if v := env(EnvLogSource); v != "" {
		cfg.Logging.Source = parseBool(v)
	}
	setStr(&cfg.Logging.File, env(EnvLogFile))
}

var overrideKeys = map[string]string{
	"database.driver":          EnvDBDriver,
	"database.dsn":             EnvDBDSN,
	"database.password":        EnvDBPassword,
	"database.sqlite_path":     EnvSQLitePath,
	"server.addr":              EnvServerAddr,
	"backend.base_url":         EnvBackendURL,
	"backend.timeout_ms":       EnvBackendTimeout,
	"layout.venue_id":          EnvVenueID,
	"layout.snap_policy":       EnvSnapPolicy,
	"layout.feedback_base_url": EnvFeedbackURL,
	"telemetry.opt_in":         EnvTelemetryOptIn,
	"telemetry.events_url":     EnvTelemetryURL,
	"logging.level":            EnvLogLevel,
	"logging.format":           EnvLogFormat,
	"logging.source":           EnvLogSource,
	"logging.file":             EnvLogFile,
}

// EnvOverrideFor returns the env var name if the field is overridden by environment variables.
func EnvOverrideFor(key string) (string, bool) {
	name, ok := overrideKeys[key]
	if !ok || os.Getenv(name) == "" {
		return "", false
	}
	return name, true
}

// PostgresDSN returns the explicit DSN or one built from the discrete fields
// and the resolved password.
func (d DatabaseConfig) PostgresDSN() string {
	if d.DSN != "" {
		return d.DSN
	}
	u := url.URL{
		Scheme: "postgres",
		Host:   fmt.Sprintf("%s:%d", d.Host, d.Port),
		Path:   "/" + d.Name,
	}
	if d.Password != "" {
		u.User = url.UserPassword(d.User, d.Password)
	} else if d.User != "" {
		u.User = url.User(d.User)
	}
	if d.SSLMode != "" {
		u.RawQuery = url.Values{"sslmode": {d.SSLMode}}.Encode()
	}
	return u.String()
}

// Timeout returns the backend client timeout.
func (b BackendConfig) Timeout() time.Duration {
	if b.TimeoutMs <= 0 {
		return time.Duration(Defaults().Backend.TimeoutMs) * time.Millisecond
	}
	return time.Duration(b.TimeoutMs) * time.Millisecond
}

func (s ServerConfig) ReadTimeout() time.Duration {
	return time.Duration(s.ReadTimeoutMs) * time.Millisecond
}

func (s ServerConfig) ShutdownTimeout() time.Duration {
	return time.Duration(s.ShutdownTimeoutMs) * time.Millisecond
}

/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

// Package config holds the user-editable application configuration, persisted
// to a YAML file in the user scope. Environment variables are read-only
// overrides at runtime; the backend token lives in the OS keychain, never on
// disk.
package config

import (
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
	"time"

	"github.com/zalando/go-keyring"
	"gopkg.in/yaml.v3"
)

type BackendConfig struct {
	BaseURL     string `yaml:"base_url"`
	TimeoutMs   int    `yaml:"timeout_ms"`
	TLSInsecure bool   `yaml:"tls_insecure"`
	// RatePerMinute caps generation requests sent to the backend.
	RatePerMinute int `yaml:"rate_per_minute"`
	// Token is not stored on disk; it lives in the OS keychain.
}

type GeneralConfig struct {
	TelemetryOptIn bool   `yaml:"telemetry_opt_in"`
	Theme          string `yaml:"theme"` // "system" | "light" | "dark"
}

// EditorConfig exposes the canvas interaction tunables. The stock values are
// presentation choices, not invariants, so they are configurable here.
type EditorConfig struct {
	MinShapeSize     float64 `yaml:"min_shape_size"`     // bubbles/panels below this are discarded on release
	WheelZoomFactor  float64 `yaml:"wheel_zoom_factor"`  // per wheel step
	ButtonZoomFactor float64 `yaml:"button_zoom_factor"` // per +/- button step
	MinZoom          float64 `yaml:"min_zoom"`
	MaxZoom          float64 `yaml:"max_zoom"`
	FitMargin        float64 `yaml:"fit_margin"`
	HandlePx         float64 `yaml:"handle_px"`
	DefaultFontSize  float64 `yaml:"default_font_size"`
	FontStep         float64 `yaml:"font_step"`
}

type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Source bool   `yaml:"source"`
	File   string `yaml:"file"`
}

type AppConfig struct {
	ConfigVersion int           `yaml:"config_version"`
	General       GeneralConfig `yaml:"general"`
	Editor        EditorConfig  `yaml:"editor"`
	Backend       BackendConfig `yaml:"backend"`
	Logging       LoggingConfig `yaml:"logging"`
}

// Defaults returns the application defaults.
func Defaults() AppConfig {
	return AppConfig{
		ConfigVersion: 1,
		General:       GeneralConfig{TelemetryOptIn: false, Theme: "system"},
		Editor: EditorConfig{
			MinShapeSize:     10,
			WheelZoomFactor:  1.1,
			ButtonZoomFactor: 1.25,
			MinZoom:          0.1,
			MaxZoom:          10,
			FitMargin:        0.9,
			HandlePx:         8,
			DefaultFontSize:  16,
			FontStep:         2,
		},
		Backend: BackendConfig{BaseURL: "http://localhost:8080", TimeoutMs: 60000, TLSInsecure: false, RatePerMinute: 6},
		Logging: LoggingConfig{Level: "info", Format: "console", Source: false, File: ""},
	}
}

// Env var names used as overrides.
const (
	EnvBackendURL       = "GSB_BACKEND_URL"
	EnvBackendTimeoutMs = "GSB_BACKEND_TIMEOUT_MS"
	EnvBackendTLSInsec  = "GSB_TLS_INSECURE"
	EnvBackendRate      = "GSB_BACKEND_RATE_PER_MINUTE"
	EnvTelemetryOptIn   = "GSB_TELEMETRY_OPT_IN"
	EnvLogLevel         = "GSB_LOG_LEVEL"
	EnvLogFormat        = "GSB_LOG_FORMAT"
	EnvLogSource        = "GSB_LOG_SOURCE"
	EnvLogFile          = "GSB_LOG_FILE"
)

// Service/keys for the OS keyring.
const (
	keyringService = "GoStoryboard"
	keyringToken   = "backend_token"
)

// TokenStore abstracts the keyring, so tests can stub it.
type TokenStore interface {
	Get(service, key string) (string, error)
	Set(service, key, value string) error
	Delete(service, key string) error
}

var tokenStore TokenStore = osKeyring{}

// osKeyring uses the OS keychain via github.com/zalando/go-keyring.
type osKeyring struct{}

func (osKeyring) Get(service, key string) (string, error)  { return keyring.Get(service, key) }
func (osKeyring) Set(service, key, value string) error     { return keyring.Set(service, key, value) }
func (osKeyring) Delete(service, key string) error         { return keyring.Delete(service, key) }

// ConfigPath returns the per-user config file path.
func ConfigPath() (string, error) {
	var base string
	switch runtime.GOOS {
	case "windows":
		base = os.Getenv("AppData")
		if base == "" { // fallback
			base = filepath.Join(os.Getenv("USERPROFILE"), "AppData", "Roaming")
		}
		base = filepath.Join(base, "GoStoryboard")
	case "darwin":
		base = filepath.Join(os.Getenv("HOME"), "Library", "Application Support", "GoStoryboard")
	default: // linux and others
		base = filepath.Join(os.Getenv("HOME"), ".config", "gostoryboard")
	}
	if base == "" {
		return "", errors.New("cannot resolve config directory")
	}
	return filepath.Join(base, "config.yaml"), nil
}

// Load reads the user config file (if present), applies defaults, and merges
// environment overrides. The backend token is read from the keyring and
// returned separately, never kept in the struct.
func Load() (AppConfig, string, error) {
	cfg := Defaults()
	path, err := ConfigPath()
	if err != nil {
		return cfg, "", err
	}
	if data, err := os.ReadFile(path); err == nil {
		var fileCfg AppConfig
		if err := yaml.Unmarshal(data, &fileCfg); err == nil {
			mergeInto(&cfg, &fileCfg)
		}
	}
	applyEnvOverrides(&cfg)
	tok, _ := tokenStore.Get(keyringService, keyringToken)
	return cfg, tok, nil
}

// Save writes the user config YAML and persists the token into the OS keyring
// (if non-empty).
func Save(cfg AppConfig, token string) error {
	path, err := ConfigPath()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return err
	}
	if token != "" {
		if err := tokenStore.Set(keyringService, keyringToken, token); err != nil {
			return err
		}
	}
	return nil
}

func mergeInto(dst *AppConfig, src *AppConfig) {
	if src.ConfigVersion != 0 {
		dst.ConfigVersion = src.ConfigVersion
	}
	if src.General.Theme != "" {
		dst.General.Theme = src.General.Theme
	}
	// booleans: copy directly from src (file) so user preferences persist
	dst.General.TelemetryOptIn = src.General.TelemetryOptIn

	if src.Editor.MinShapeSize > 0 {
		dst.Editor.MinShapeSize = src.Editor.MinShapeSize
	}
	if src.Editor.WheelZoomFactor > 1 {
		dst.Editor.WheelZoomFactor = src.Editor.WheelZoomFactor
	}
	if src.Editor.ButtonZoomFactor > 1 {
		dst.Editor.ButtonZoomFactor = src.Editor.ButtonZoomFactor
	}
	if src.Editor.MinZoom > 0 {
		dst.Editor.MinZoom = src.Editor.MinZoom
	}
	if src.Editor.MaxZoom > 0 {
		dst.Editor.MaxZoom = src.Editor.MaxZoom
	}
	if src.Editor.FitMargin > 0 && src.Editor.FitMargin <= 1 {
		dst.Editor.FitMargin = src.Editor.FitMargin
	}
	if src.Editor.HandlePx > 0 {
		dst.Editor.HandlePx = src.Editor.HandlePx
	}
	if src.Editor.DefaultFontSize > 0 {
		dst.Editor.DefaultFontSize = src.Editor.DefaultFontSize
	}
	if src.Editor.FontStep > 0 {
		dst.Editor.FontStep = src.Editor.FontStep
	}

	if src.Backend.BaseURL != "" {
		dst.Backend.BaseURL = src.Backend.BaseURL
	}
	if src.Backend.TimeoutMs != 0 {
		dst.Backend.TimeoutMs = src.Backend.TimeoutMs
	}
	if src.Backend.RatePerMinute != 0 {
		dst.Backend.RatePerMinute = src.Backend.RatePerMinute
	}
	dst.Backend.TLSInsecure = src.Backend.TLSInsecure

	if strings.TrimSpace(src.Logging.Level) != "" {
		dst.Logging.Level = strings.ToLower(strings.TrimSpace(src.Logging.Level))
	}
	if strings.TrimSpace(src.Logging.Format) != "" {
		dst.Logging.Format = strings.ToLower(strings.TrimSpace(src.Logging.Format))
	}
	dst.Logging.Source = src.Logging.Source
	if strings.TrimSpace(src.Logging.File) != "" {
		dst.Logging.File = strings.TrimSpace(src.Logging.File)
	}
}

func applyEnvOverrides(cfg *AppConfig) {
	if v := strings.TrimSpace(os.Getenv(EnvBackendURL)); v != "" {
		cfg.Backend.BaseURL = v
	}
	if v := strings.TrimSpace(os.Getenv(EnvBackendTimeoutMs)); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Backend.TimeoutMs = n
		}
	}
	if v := strings.TrimSpace(os.Getenv(EnvBackendRate)); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.Backend.RatePerMinute = n
		}
	}
	if v := strings.TrimSpace(os.Getenv(EnvBackendTLSInsec)); v != "" {
		cfg.Backend.TLSInsecure = isTruthy(v)
	}
	if v := strings.TrimSpace(os.Getenv(EnvTelemetryOptIn)); v != "" {
		cfg.General.TelemetryOptIn = isTruthy(v)
	}
	if v := strings.TrimSpace(os.Getenv(EnvLogLevel)); v != "" {
		cfg.Logging.Level = strings.ToLower(v)
	}
	if v := strings.TrimSpace(os.Getenv(EnvLogFormat)); v != "" {
		cfg.Logging.Format = strings.ToLower(v)
	}
	if v := strings.TrimSpace(os.Getenv(EnvLogSource)); v != "" {
		cfg.Logging.Source = isTruthy(v)
	}
	if v := strings.TrimSpace(os.Getenv(EnvLogFile)); v != "" {
		cfg.Logging.File = v
	}
}

func isTruthy(v string) bool {
	switch strings.ToLower(v) {
	case "1", "true", "on", "yes":
		return true
	}
	return false
}

// EnvOverrideFor returns the env var name if the field is overridden by
// environment variables, for display in the settings dialog.
func EnvOverrideFor(key string) (string, bool) {
	var name string
	switch key {
	case "backend.base_url":
		name = EnvBackendURL
	case "backend.timeout_ms":
		name = EnvBackendTimeoutMs
	case "backend.tls_insecure":
		name = EnvBackendTLSInsec
	case "backend.rate_per_minute":
		name = EnvBackendRate
	case "general.telemetry_opt_in":
		name = EnvTelemetryOptIn
	case "logging.level":
		name = EnvLogLevel
	case "logging.format":
		name = EnvLogFormat
	case "logging.source":
		name = EnvLogSource
	case "logging.file":
		name = EnvLogFile
	default:
		return "", false
	}
	if os.Getenv(name) != "" {
		return name, true
	}
	return "", false
}

// EffectiveTimeout returns the backend timeout as a duration.
func (b BackendConfig) EffectiveTimeout() time.Duration {
	ms := b.TimeoutMs
	if ms <= 0 {
		ms = Defaults().Backend.TimeoutMs
	}
	return time.Duration(ms) * time.Millisecond
}

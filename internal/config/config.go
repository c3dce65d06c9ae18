// Package config loads workbook-go configuration from a TOML file with
// environment variable overrides. Configuration is an explicit struct handed
// to the credential manager and client constructors; nothing is read from
// the environment at package init.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

// GraphBaseURL is the Microsoft Graph API endpoint all operations target.
const GraphBaseURL = "https://graph.microsoft.com/v1.0"

// Environment variable names for overrides. Env always wins over the file.
const (
	EnvClientID    = "WORKBOOK_CLIENT_ID"
	EnvTenantID    = "WORKBOOK_TENANT_ID"
	EnvSenderEmail = "WORKBOOK_SENDER_EMAIL"
	EnvCacheFile   = "WORKBOOK_CACHE_FILE"
)

// Config is the effective workbook-go configuration.
type Config struct {
	// ClientID is the Azure AD application (client) ID. Required.
	ClientID string `toml:"client_id"`

	// TenantID selects the Azure AD tenant. Defaults to "common"
	// (multi-tenant + personal accounts).
	TenantID string `toml:"tenant_id"`

	// SenderEmail is informational only: /me/sendMail always sends as the
	// signed-in user and the address is never set on the request.
	SenderEmail string `toml:"sender_email"`

	// CacheFile is where the MSAL session state is persisted.
	CacheFile string `toml:"cache_file"`
}

// DefaultPath returns the default config file location,
// $XDG_CONFIG_HOME/workbook-go/config.toml or the platform equivalent.
func DefaultPath() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("config: resolving user config dir: %w", err)
	}

	return filepath.Join(dir, "workbook-go", "config.toml"), nil
}

// defaultCacheFile returns the default MSAL cache location under the user
// cache directory.
func defaultCacheFile() (string, error) {
	dir, err := os.UserCacheDir()
	if err != nil {
		return "", fmt.Errorf("config: resolving user cache dir: %w", err)
	}

	return filepath.Join(dir, "workbook-go", "msal_token_cache.bin"), nil
}

// Load reads the config file at path (DefaultPath when empty), applies
// environment overrides, fills defaults, and validates. A missing config
// file is fine as long as the environment supplies the client ID.
func Load(path string) (Config, error) {
	var cfg Config

	if path == "" {
		defaultPath, err := DefaultPath()
		if err != nil {
			return Config{}, err
		}

		path = defaultPath
	}

	if _, err := toml.DecodeFile(path, &cfg); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, fmt.Errorf("config: reading %s: %w", path, err)
	}

	applyEnv(&cfg)

	if err := applyDefaults(&cfg); err != nil {
		return Config{}, err
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

// applyEnv overlays environment variables onto cfg.
func applyEnv(cfg *Config) {
	if v := os.Getenv(EnvClientID); v != "" {
		cfg.ClientID = v
	}

	if v := os.Getenv(EnvTenantID); v != "" {
		cfg.TenantID = v
	}

	if v := os.Getenv(EnvSenderEmail); v != "" {
		cfg.SenderEmail = v
	}

	if v := os.Getenv(EnvCacheFile); v != "" {
		cfg.CacheFile = v
	}
}

// applyDefaults fills unset fields with platform defaults.
func applyDefaults(cfg *Config) error {
	if cfg.TenantID == "" {
		cfg.TenantID = "common"
	}

	if cfg.CacheFile == "" {
		cacheFile, err := defaultCacheFile()
		if err != nil {
			return err
		}

		cfg.CacheFile = cacheFile
	}

	return nil
}

// Validate checks that required fields are present.
func (c Config) Validate() error {
	if c.ClientID == "" {
		return fmt.Errorf("config: client_id is required (set it in the config file or %s)", EnvClientID)
	}

	return nil
}

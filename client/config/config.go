package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/swellcast/swellcast/pkg/kibi"
)

// Mode selects which backend the client talks to.
// ModeDev also enables the trust-local session fallback when the backend is
// unreachable. That fallback performs no server-side revocation check, so
// ModeDev must never be enabled in a production build path.
type Mode string

const (
	ModeDev  Mode = "dev"
	ModeProd Mode = "prod"
)

const devServer = "http://localhost:8080"
const prodServer = "https://api.swellcast.org"

type Config struct {
	Mode   Mode   `json:"mode"`   // "dev" or "prod"
	Server string `json:"server"` // Explicit base URL override (no trailing slash). Usually blank.

	DataDir string `json:"dataDir"` // Root for the state DB, credential store and image cache. Default ~/.local/share/swellcast

	// Secret used to encrypt the credential store file. On a phone this would
	// come from the hardware keystore; here it lives in the config file, which
	// the installer creates with 0600 permissions.
	CredentialSecret string `json:"credentialSecret"`

	ConditionsTTL string `json:"conditionsTTL"` // eg "5m"
	ForecastTTL   string `json:"forecastTTL"`   // eg "15m"
	SpotsTTL      string `json:"spotsTTL"`      // eg "6h"

	ImageCacheMemory string `json:"imageCacheMemory"` // eg "256 MB"

	Google GoogleConfig `json:"google"`
}

// GoogleConfig is the OAuth2 client used to obtain the identity token that
// login posts to the backend.
type GoogleConfig struct {
	ClientID     string `json:"clientID"`
	ClientSecret string `json:"clientSecret"`
}

func Load(filename string) (*Config, error) {
	if filename == "" {
		filename = defaultConfigPath()
	}
	raw, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("Error loading %v: %w", filename, err)
	}
	cfg := &Config{}
	if err := json.Unmarshal(raw, cfg); err != nil {
		return nil, fmt.Errorf("Error loading as JSON %v: %w", filename, err)
	}
	cfg.applyEnv()
	if err := cfg.applyDefaults(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Default returns a usable config without a config file (all defaults, dev
// mode off unless SWELLCAST_ENV says otherwise).
func Default() (*Config, error) {
	cfg := &Config{}
	cfg.applyEnv()
	if err := cfg.applyDefaults(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Environment selection is automatic, not user-facing: SWELLCAST_ENV=dev is
// set by the dev tooling, never shipped.
func (c *Config) applyEnv() {
	if env := os.Getenv("SWELLCAST_ENV"); env != "" {
		c.Mode = Mode(env)
	}
	if server := os.Getenv("SWELLCAST_SERVER"); server != "" {
		c.Server = server
	}
}

func (c *Config) applyDefaults() error {
	if c.Mode == "" {
		c.Mode = ModeProd
	}
	if c.Mode != ModeDev && c.Mode != ModeProd {
		return fmt.Errorf("Invalid mode '%v' (must be dev or prod)", c.Mode)
	}
	if c.DataDir == "" {
		home, _ := os.UserHomeDir()
		if home == "" {
			home = "/var/lib"
		}
		c.DataDir = filepath.Join(home, ".local", "share", "swellcast")
	}
	if c.CredentialSecret == "" {
		if c.Mode == ModeDev {
			c.CredentialSecret = "swellcast-dev-insecure"
		} else {
			return fmt.Errorf("credentialSecret must be set in prod mode")
		}
	}
	if c.ConditionsTTL == "" {
		c.ConditionsTTL = "5m"
	}
	if c.ForecastTTL == "" {
		c.ForecastTTL = "15m"
	}
	if c.SpotsTTL == "" {
		c.SpotsTTL = "6h"
	}
	if c.ImageCacheMemory == "" {
		c.ImageCacheMemory = "64 MB"
	}
	// Validate eagerly so a bad config fails at startup, not first use
	for _, d := range []string{c.ConditionsTTL, c.ForecastTTL, c.SpotsTTL} {
		if _, err := time.ParseDuration(d); err != nil {
			return fmt.Errorf("Invalid TTL '%v': %w", d, err)
		}
	}
	if _, err := kibi.ParseBytes(c.ImageCacheMemory); err != nil {
		return fmt.Errorf("Invalid imageCacheMemory '%v': %w", c.ImageCacheMemory, err)
	}
	return nil
}

// BaseURL returns the backend base URL, without a trailing slash.
func (c *Config) BaseURL() string {
	if c.Server != "" {
		return c.Server
	}
	if c.Mode == ModeDev {
		return devServer
	}
	return prodServer
}

func (c *Config) ConditionsTTLDuration() time.Duration { return mustDuration(c.ConditionsTTL) }
func (c *Config) ForecastTTLDuration() time.Duration   { return mustDuration(c.ForecastTTL) }
func (c *Config) SpotsTTLDuration() time.Duration      { return mustDuration(c.SpotsTTL) }

func (c *Config) ImageCacheMemoryBytes() int64 {
	n, _ := kibi.ParseBytes(c.ImageCacheMemory)
	return n
}

func mustDuration(s string) time.Duration {
	d, _ := time.ParseDuration(s)
	return d
}

func defaultConfigPath() string {
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".config", "swellcast", "config.json")
}

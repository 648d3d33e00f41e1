// Package config loads folio settings from ~/.folio/config.toml, a local
// .env file and FOLIO_* environment variables, in increasing precedence.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

type MainConfig struct {
	APIURL string `toml:"apiURL"`
	WSURL  string `toml:"wsURL"`
}

type LogConfig struct {
	Path  string `toml:"path"`
	Level string `toml:"level"`
}

type StoreConfig struct {
	Path string `toml:"path"`
}

type LiveConfig struct {
	HandshakeTimeoutSeconds int `toml:"handshakeTimeoutSeconds"`
	ReconnectAttempts       int `toml:"reconnectAttempts"`
	ReconnectDelayMillis    int `toml:"reconnectDelayMillis"`
}

type UIConfig struct {
	Alerts bool `toml:"alerts"`
}

type DevServerConfig struct {
	Addr   string `toml:"addr"`
	JWTKey string `toml:"jwtKey"`
}

type Config struct {
	Main      MainConfig      `toml:"main"`
	Log       LogConfig       `toml:"log"`
	Store     StoreConfig     `toml:"store"`
	Live      LiveConfig      `toml:"live"`
	UI        UIConfig        `toml:"ui"`
	DevServer DevServerConfig `toml:"devserver"`
}

// Dir returns ~/.folio.
func Dir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("get home dir: %w", err)
	}
	return filepath.Join(home, ".folio"), nil
}

// Default returns the built-in settings rooted at dir.
func Default(dir string) *Config {
	return &Config{
		Main:  MainConfig{APIURL: "http://localhost:8080"},
		Log:   LogConfig{Path: filepath.Join(dir, "folio.log"), Level: "info"},
		Store: StoreConfig{Path: filepath.Join(dir, "state")},
		Live: LiveConfig{
			HandshakeTimeoutSeconds: 20,
			ReconnectAttempts:       5,
			ReconnectDelayMillis:    1000,
		},
		DevServer: DevServerConfig{Addr: "127.0.0.1:8080", JWTKey: "folio-dev-secret"},
	}
}

// Load reads the config file at path (default ~/.folio/config.toml). A
// missing file is not an error.
func Load(path string) (*Config, error) {
	_ = godotenv.Load(".env")

	dir, err := Dir()
	if err != nil {
		return nil, fmt.Errorf("config.Load: %w", err)
	}
	cfg := Default(dir)
	if path == "" {
		path = filepath.Join(dir, "config.toml")
	}
	if _, err := toml.DecodeFile(path, cfg); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("config.Load: %s: %w", path, err)
	}
	if err := cfg.applyEnv(); err != nil {
		return nil, fmt.Errorf("config.Load: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config.Load: %w", err)
	}
	return cfg, nil
}

func (c *Config) applyEnv() error {
	str := map[string]*string{
		"FOLIO_API_URL":        &c.Main.APIURL,
		"FOLIO_WS_URL":         &c.Main.WSURL,
		"FOLIO_LOG_PATH":       &c.Log.Path,
		"FOLIO_LOG_LEVEL":      &c.Log.Level,
		"FOLIO_STORE_PATH":     &c.Store.Path,
		"FOLIO_DEVSERVER_ADDR": &c.DevServer.Addr,
		"FOLIO_JWT_KEY":        &c.DevServer.JWTKey,
	}
	for name, dst := range str {
		if v := os.Getenv(name); v != "" {
			*dst = v
		}
	}
	if v := os.Getenv("FOLIO_ALERTS"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("FOLIO_ALERTS: %w", err)
		}
		c.UI.Alerts = b
	}
	return nil
}

// Validate checks the URLs and live settings.
func (c *Config) Validate() error {
	u, err := url.Parse(c.Main.APIURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("main.apiURL %q must be an http(s) URL", c.Main.APIURL)
	}
	if c.Main.WSURL != "" {
		w, err := url.Parse(c.Main.WSURL)
		if err != nil || (w.Scheme != "ws" && w.Scheme != "wss") || w.Host == "" {
			return fmt.Errorf("main.wsURL %q must be a ws(s) URL", c.Main.WSURL)
		}
	}
	if c.Live.ReconnectAttempts < 0 {
		return fmt.Errorf("live.reconnectAttempts must not be negative")
	}
	return nil
}

// APIBase returns the REST root without a trailing slash.
func (c *Config) APIBase() string {
	return strings.TrimRight(c.Main.APIURL, "/")
}

// WSBase returns the push root, derived from apiURL when wsURL is unset.
func (c *Config) WSBase() string {
	if c.Main.WSURL != "" {
		return strings.TrimRight(c.Main.WSURL, "/")
	}
	base := c.APIBase()
	switch {
	case strings.HasPrefix(base, "https://"):
		return "wss://" + strings.TrimPrefix(base, "https://")
	case strings.HasPrefix(base, "http://"):
		return "ws://" + strings.TrimPrefix(base, "http://")
	}
	return base
}

// NotificationsURL is the notifications namespace.
func (c *Config) NotificationsURL() string { return c.WSBase() + "/ws/notifications" }

// ChatURL is the chat namespace.
func (c *Config) ChatURL() string { return c.WSBase() + "/ws/chat" }

func (c *Config) HandshakeTimeout() time.Duration {
	return time.Duration(c.Live.HandshakeTimeoutSeconds) * time.Second
}

func (c *Config) ReconnectDelay() time.Duration {
	return time.Duration(c.Live.ReconnectDelayMillis) * time.Millisecond
}

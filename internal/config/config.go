package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/BurntSushi/toml"
)

const appName = "portalpilot"

// Browser engines
const (
	EngineChromedp = "chromedp"
	EngineRod      = "rod"
)

// Semantic query providers
const (
	ProviderNone      = ""
	ProviderAnthropic = "anthropic"
)

// Config holds all application configuration
type Config struct {
	Version     int               `toml:"version"`
	Portal      PortalConfig      `toml:"portal"`
	Credentials CredentialsConfig `toml:"credentials"`
	Browser     BrowserConfig     `toml:"browser"`
	Timeouts    TimeoutsConfig    `toml:"timeouts"`
	Selectors   SelectorsConfig   `toml:"selectors"`
	Semantic    SemanticConfig    `toml:"semantic"`
	Log         LogConfig         `toml:"log"`
	History     HistoryConfig     `toml:"history"`
	Run         RunConfig         `toml:"run"`
}

type PortalConfig struct {
	DefaultURL   string `toml:"default_url"`
	SecondaryURL string `toml:"secondary_url"`
}

type CredentialsConfig struct {
	EnvPath string `toml:"env_path"`
}

type BrowserConfig struct {
	Engine       string `toml:"engine"`
	Headless     bool   `toml:"headless"`
	Stealth      bool   `toml:"stealth"`
	UserAgent    string `toml:"user_agent"`
	WindowWidth  int    `toml:"window_width"`
	WindowHeight int    `toml:"window_height"`
	ExecPath     string `toml:"exec_path"`
}

type TimeoutsConfig struct {
	FormVisible Duration `toml:"form_visible"`
	NetworkIdle Duration `toml:"network_idle"`
	IdleQuiet   Duration `toml:"idle_quiet"`
	Heartbeat   Duration `toml:"heartbeat"`
}

// SelectorsConfig holds the literal fallback selectors used when the
// semantic login form query fails.
type SelectorsConfig struct {
	Username string `toml:"username"`
	Password string `toml:"password"`
	Submit   string `toml:"submit"`
}

type SemanticConfig struct {
	Provider string `toml:"provider"`
	APIKey   string `toml:"api_key"`
	Model    string `toml:"model"`
}

type LogConfig struct {
	Dir     string `toml:"dir"`
	Level   string `toml:"level"`
	Console bool   `toml:"console"`
}

type HistoryConfig struct {
	Enabled        bool `toml:"enabled"`
	CaptureCookies bool `toml:"capture_cookies"`
}

type RunConfig struct {
	// HoldOpenOnFailure keeps the browser open after a fatal login failure so
	// the page can be inspected by hand.
	HoldOpenOnFailure bool `toml:"hold_open_on_failure"`
}

// Duration is a time.Duration that encodes as a TOML string like "60s".
type Duration struct {
	time.Duration
}

func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", string(text), err)
	}
	d.Duration = v
	return nil
}

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

// Default returns a Config with sensible defaults
func Default() *Config {
	return &Config{
		Version: 1,
		Portal: PortalConfig{
			DefaultURL:   "https://auth.reedexpo.com/secure/Account/Login",
			SecondaryURL: "https://portal.my_target_site.com/exhibitor/search-buyers",
		},
		Credentials: CredentialsConfig{
			EnvPath: ".env",
		},
		Browser: BrowserConfig{
			Engine:       EngineChromedp,
			Headless:     false,
			WindowWidth:  1920,
			WindowHeight: 1080,
		},
		Timeouts: TimeoutsConfig{
			FormVisible: Duration{60 * time.Second},
			NetworkIdle: Duration{30 * time.Second},
			IdleQuiet:   Duration{500 * time.Millisecond},
			Heartbeat:   Duration{time.Second},
		},
		Selectors: SelectorsConfig{
			Username: "#username[name='Username']",
			Password: "#password[name='Password']",
			Submit:   "button#submit[data-dtm='policebox_login']",
		},
		Semantic: SemanticConfig{
			Provider: ProviderNone,
			Model:    "claude-sonnet-4-20250514",
		},
		Log: LogConfig{
			Dir:   ".",
			Level: "info",
		},
		History: HistoryConfig{
			Enabled: true,
		},
		Run: RunConfig{
			HoldOpenOnFailure: true,
		},
	}
}

// Validate checks values that cannot be defaulted silently.
func (c *Config) Validate() error {
	switch c.Browser.Engine {
	case EngineChromedp, EngineRod:
	default:
		return fmt.Errorf("unknown browser engine: %s", c.Browser.Engine)
	}
	switch c.Semantic.Provider {
	case ProviderNone:
	case ProviderAnthropic:
		if c.Semantic.APIKey == "" {
			return fmt.Errorf("semantic provider %s requires api_key", c.Semantic.Provider)
		}
	default:
		return fmt.Errorf("unknown semantic provider: %s", c.Semantic.Provider)
	}
	if c.Timeouts.FormVisible.Duration <= 0 {
		return fmt.Errorf("timeouts.form_visible must be positive")
	}
	if c.Timeouts.Heartbeat.Duration <= 0 {
		return fmt.Errorf("timeouts.heartbeat must be positive")
	}
	return nil
}

// ConfigDir returns the platform-appropriate config directory
func ConfigDir() (string, error) {
	configDir, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(configDir, appName), nil
}

// ConfigPath returns the full path to the config file
func ConfigPath() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.toml"), nil
}

// CacheDir returns the platform-appropriate cache directory.
// The run journal and run reports live here.
func CacheDir() (string, error) {
	cacheDir, err := os.UserCacheDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(cacheDir, appName), nil
}

// Load reads config from disk
func Load() (*Config, error) {
	path, err := ConfigPath()
	if err != nil {
		return nil, err
	}
	return LoadFile(path)
}

// LoadFile reads config from the given path. Keys absent from the file keep
// their default values.
func LoadFile(path string) (*Config, error) {
	cfg := Default()
	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Save writes config to disk
func (c *Config) Save() error {
	path, err := ConfigPath()
	if err != nil {
		return err
	}
	return c.SaveFile(path)
}

// SaveFile writes config to the given path, creating parent directories.
func (c *Config) SaveFile(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return err
	}

	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0600)
	if err != nil {
		return err
	}
	defer f.Close()

	encoder := toml.NewEncoder(f)
	return encoder.Encode(c)
}

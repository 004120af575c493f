package client

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strconv"
)

const (
	DefaultAPIURL      = "https://api.chroniclehq.dev"
	DefaultTimeoutSecs = 30
	EnvAPIKey          = "CHRONICLE_API_KEY"
	EnvAPIURL          = "CHRONICLE_API_URL"
	EnvLogDir          = "CHRONICLE_LOG_DIR"
	EnvStateDir        = "CHRONICLE_STATE_DIR"
	EnvDebug           = "CHRONICLE_DEBUG"
	EnvTimeout         = "CHRONICLE_TIMEOUT"
	ConfigDirName      = ".chronicle"
	ConfigFileName     = "config.json"
)

// Config holds the client configuration
type Config struct {
	APIKey         string `json:"api_key,omitempty"`
	APIURL         string `json:"api_url,omitempty"`
	LogDir         string `json:"log_dir,omitempty"`
	StateDir       string `json:"state_dir,omitempty"`
	Debug          bool   `json:"debug,omitempty"`
	TimeoutSeconds int    `json:"timeout_seconds,omitempty"`
}

// IsConfigured returns true if the API key is set
func (c *Config) IsConfigured() bool {
	return c.APIKey != ""
}

// StatePath returns the path of the sync state file.
func (c *Config) StatePath() string {
	return filepath.Join(c.StateDir, "sync_state.json")
}

// BatchDir returns the directory where action batches are dumped.
func (c *Config) BatchDir() string {
	return filepath.Join(c.StateDir, "batches")
}

// ConfigPath returns the path to the config file
func ConfigPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ConfigDirName, ConfigFileName)
}

// LoadFileConfig loads the config file from disk
func LoadFileConfig() (*Config, error) {
	path := ConfigPath()
	if path == "" {
		return nil, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}

	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// SaveFileConfig saves the config to disk
func SaveFileConfig(cfg *Config) error {
	path := ConfigPath()
	if path == "" {
		return os.ErrNotExist
	}

	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return err
	}

	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return err
	}

	return os.WriteFile(path, data, 0600)
}

// LoadConfig loads configuration from environment variables, falling back
// to the config file, then defaults.
func LoadConfig() *Config {
	cfg := &Config{
		APIKey:         os.Getenv(EnvAPIKey),
		APIURL:         os.Getenv(EnvAPIURL),
		LogDir:         os.Getenv(EnvLogDir),
		StateDir:       os.Getenv(EnvStateDir),
		Debug:          os.Getenv(EnvDebug) == "1" || os.Getenv(EnvDebug) == "true",
		TimeoutSeconds: DefaultTimeoutSecs,
	}

	if fileCfg, err := LoadFileConfig(); err == nil && fileCfg != nil {
		if cfg.APIKey == "" {
			cfg.APIKey = fileCfg.APIKey
		}
		if cfg.APIURL == "" {
			cfg.APIURL = fileCfg.APIURL
		}
		if cfg.LogDir == "" {
			cfg.LogDir = fileCfg.LogDir
		}
		if cfg.StateDir == "" {
			cfg.StateDir = fileCfg.StateDir
		}
		if !cfg.Debug && fileCfg.Debug {
			cfg.Debug = true
		}
		if fileCfg.TimeoutSeconds > 0 {
			cfg.TimeoutSeconds = fileCfg.TimeoutSeconds
		}
	}

	// Apply defaults
	home, _ := os.UserHomeDir()
	if cfg.APIURL == "" {
		cfg.APIURL = DefaultAPIURL
	}
	if cfg.LogDir == "" && home != "" {
		cfg.LogDir = filepath.Join(home, ".claude", "projects")
	}
	if cfg.StateDir == "" && home != "" {
		cfg.StateDir = filepath.Join(home, ".config", "chronicle")
	}

	// Check env timeout override
	if timeoutStr := os.Getenv(EnvTimeout); timeoutStr != "" {
		if timeout, err := strconv.Atoi(timeoutStr); err == nil && timeout > 0 {
			cfg.TimeoutSeconds = timeout
		}
	}

	return cfg
}

// MaskAPIKey returns a masked version of the API key for display
func MaskAPIKey(key string) string {
	if len(key) <= 4 {
		return "***"
	}
	return "***..." + key[len(key)-4:]
}

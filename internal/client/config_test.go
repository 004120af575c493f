package client

import (
	"os"
	"path/filepath"
	"testing"
)

// isolateEnv points HOME at a temp dir and clears every CHRONICLE_* variable
// so tests see only what they set themselves.
func isolateEnv(t *testing.T) string {
	t.Helper()
	home := t.TempDir()
	t.Setenv("HOME", home)
	for _, key := range []string{EnvAPIKey, EnvAPIURL, EnvLogDir, EnvStateDir, EnvDebug, EnvTimeout} {
		t.Setenv(key, "")
	}
	return home
}

func TestConfigPath(t *testing.T) {
	home := isolateEnv(t)

	want := filepath.Join(home, ConfigDirName, ConfigFileName)
	if got := ConfigPath(); got != want {
		t.Errorf("Expected %s, got %s", want, got)
	}
}

func TestLoadConfig_Defaults(t *testing.T) {
	home := isolateEnv(t)

	cfg := LoadConfig()
	if cfg.APIURL != DefaultAPIURL {
		t.Errorf("Expected default API URL, got %s", cfg.APIURL)
	}
	if cfg.LogDir != filepath.Join(home, ".claude", "projects") {
		t.Errorf("Unexpected default log dir: %s", cfg.LogDir)
	}
	if cfg.StateDir != filepath.Join(home, ".config", "chronicle") {
		t.Errorf("Unexpected default state dir: %s", cfg.StateDir)
	}
	if cfg.TimeoutSeconds != DefaultTimeoutSecs {
		t.Errorf("Expected default timeout, got %d", cfg.TimeoutSeconds)
	}
	if cfg.IsConfigured() {
		t.Error("Config without API key must not report configured")
	}
}

func TestLoadConfig_EnvOverridesFile(t *testing.T) {
	isolateEnv(t)

	if err := SaveFileConfig(&Config{APIKey: "file-key", APIURL: "https://file.example"}); err != nil {
		t.Fatalf("SaveFileConfig failed: %v", err)
	}

	t.Setenv(EnvAPIKey, "env-key")

	cfg := LoadConfig()
	if cfg.APIKey != "env-key" {
		t.Errorf("Environment must win over file, got %s", cfg.APIKey)
	}
	if cfg.APIURL != "https://file.example" {
		t.Errorf("Unset env var must fall back to file, got %s", cfg.APIURL)
	}
}

func TestLoadConfig_FileValues(t *testing.T) {
	isolateEnv(t)

	saved := &Config{
		APIKey:         "file-key",
		LogDir:         "/var/logs",
		StateDir:       "/var/state",
		Debug:          true,
		TimeoutSeconds: 90,
	}
	if err := SaveFileConfig(saved); err != nil {
		t.Fatalf("SaveFileConfig failed: %v", err)
	}

	cfg := LoadConfig()
	if cfg.APIKey != "file-key" || cfg.LogDir != "/var/logs" || cfg.StateDir != "/var/state" {
		t.Errorf("File values not applied: %+v", cfg)
	}
	if !cfg.Debug {
		t.Error("Expected debug from file")
	}
	if cfg.TimeoutSeconds != 90 {
		t.Errorf("Expected timeout 90, got %d", cfg.TimeoutSeconds)
	}
	if !cfg.IsConfigured() {
		t.Error("Config with API key must report configured")
	}
}

func TestLoadConfig_EnvTimeout(t *testing.T) {
	isolateEnv(t)
	t.Setenv(EnvTimeout, "5")

	if cfg := LoadConfig(); cfg.TimeoutSeconds != 5 {
		t.Errorf("Expected timeout 5 from env, got %d", cfg.TimeoutSeconds)
	}

	t.Setenv(EnvTimeout, "not-a-number")
	if cfg := LoadConfig(); cfg.TimeoutSeconds != DefaultTimeoutSecs {
		t.Errorf("Invalid env timeout must fall back to default, got %d", cfg.TimeoutSeconds)
	}
}

func TestLoadFileConfig_Missing(t *testing.T) {
	isolateEnv(t)

	cfg, err := LoadFileConfig()
	if err != nil {
		t.Fatalf("Missing config file must not error: %v", err)
	}
	if cfg != nil {
		t.Errorf("Expected nil config for missing file, got %+v", cfg)
	}
}

func TestLoadFileConfig_Corrupt(t *testing.T) {
	home := isolateEnv(t)

	dir := filepath.Join(home, ConfigDirName)
	if err := os.MkdirAll(dir, 0700); err != nil {
		t.Fatalf("Failed to create config dir: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, ConfigFileName), []byte("{bad"), 0600); err != nil {
		t.Fatalf("Failed to write corrupt config: %v", err)
	}

	if _, err := LoadFileConfig(); err == nil {
		t.Fatal("Expected error for corrupt config file")
	}
}

func TestConfigPaths(t *testing.T) {
	cfg := &Config{StateDir: "/var/state"}
	if got := cfg.StatePath(); got != filepath.Join("/var/state", "sync_state.json") {
		t.Errorf("Unexpected state path: %s", got)
	}
	if got := cfg.BatchDir(); got != filepath.Join("/var/state", "batches") {
		t.Errorf("Unexpected batch dir: %s", got)
	}
}

func TestMaskAPIKey(t *testing.T) {
	cases := []struct {
		key  string
		want string
	}{
		{"", "***"},
		{"abcd", "***"},
		{"sk-chronicle-12345678", "***...5678"},
	}
	for _, c := range cases {
		if got := MaskAPIKey(c.key); got != c.want {
			t.Errorf("MaskAPIKey(%q) = %q, want %q", c.key, got, c.want)
		}
	}
}

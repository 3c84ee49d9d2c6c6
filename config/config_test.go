// Copyright (c) 2024 The BitFS developers
// Use of this source code is governed by the Open BSV License v5
// that can be found in the LICENSE file.

package config

import (
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
)

const (
	testHolding    = "0x5aAeb6053F3E94C9b9A09f33669435E7Ef1BeAed"
	testController = "0xfB6916095ca1df60bB79Ce92cE3Ea74c37c5d359"
)

// ---------------------------------------------------------------------------
// DefaultConfig tests
// ---------------------------------------------------------------------------

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	tests := []struct {
		name string
		got  interface{}
		want interface{}
	}{
		{"Network", cfg.Network, "mainnet"},
		{"LogLevel", cfg.LogLevel, "info"},
		{"LogFile", cfg.LogFile, ""},
		{"Holding", cfg.Holding, ""},
		{"RPCURL", cfg.RPCURL, ""},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if tc.got != tc.want {
				t.Errorf("got %v, want %v", tc.got, tc.want)
			}
		})
	}

	if !strings.HasSuffix(cfg.DataDir, ".revsplit") {
		t.Errorf("DataDir = %q, want suffix .revsplit", cfg.DataDir)
	}
}

// ---------------------------------------------------------------------------
// SaveConfig / LoadConfig round-trip tests
// ---------------------------------------------------------------------------

func TestSaveLoadRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config")

	original := Config{
		DataDir:    "/tmp/test-revsplit",
		Network:    "testnet",
		LogLevel:   "debug",
		LogFile:    "/tmp/revsplit.log",
		Holding:    testHolding,
		Controller: testController,
		RPCURL:     "http://127.0.0.1:18332",
	}

	if err := SaveConfig(path, original); err != nil {
		t.Fatalf("SaveConfig: %v", err)
	}

	loaded, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if loaded != original {
		t.Errorf("round trip mismatch:\n got %+v\nwant %+v", loaded, original)
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatal(err)
	}
	if runtime.GOOS != "windows" && info.Mode().Perm() != 0600 {
		t.Errorf("config mode = %v, want 0600", info.Mode().Perm())
	}
}

func TestSaveConfigCreatesDirectory(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "subdir", "config")

	if err := SaveConfig(path, DefaultConfig()); err != nil {
		t.Fatalf("SaveConfig should create parent dirs: %v", err)
	}
	if _, err := os.Stat(path); err != nil {
		t.Errorf("Config file not created: %v", err)
	}
}

func TestSaveConfig_OutputContainsAllKeys(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config")
	if err := SaveConfig(path, DefaultConfig()); err != nil {
		t.Fatalf("SaveConfig: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	content := string(data)

	if !strings.HasPrefix(content, "# revsplit configuration\n") {
		t.Errorf("saved config should start with a header comment, got %q", content)
	}
	for _, key := range []string{"datadir", "network", "loglevel", "logfile", "holding", "controller", "rpcurl"} {
		if !strings.Contains(content, key+" = ") {
			t.Errorf("saved config should contain key %q", key)
		}
	}
}

// ---------------------------------------------------------------------------
// LoadConfig parsing tests
// ---------------------------------------------------------------------------

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config")
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadConfigNotFound(t *testing.T) {
	_, err := LoadConfig("/nonexistent/path/config")
	if !errors.Is(err, ErrConfigNotFound) {
		t.Errorf("LoadConfig nonexistent: got %v, want ErrConfigNotFound", err)
	}
}

func TestLoadConfigInvalidLine(t *testing.T) {
	_, err := LoadConfig(writeConfig(t, "network = testnet\nthis-is-not-key-value\n"))
	if !errors.Is(err, ErrInvalidConfigLine) {
		t.Errorf("LoadConfig bad line: got %v, want ErrInvalidConfigLine", err)
	}
	if err != nil && !strings.Contains(err.Error(), "line 2") {
		t.Errorf("error should name the line: %v", err)
	}
}

func TestLoadConfigCommentsAndBlanks(t *testing.T) {
	content := `# This is a comment
network = testnet

# Another comment
loglevel = debug
`
	cfg, err := LoadConfig(writeConfig(t, content))
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}

	if cfg.Network != "testnet" {
		t.Errorf("Network = %q, want %q", cfg.Network, "testnet")
	}
	if cfg.LogLevel != "debug" {
		t.Errorf("LogLevel = %q, want %q", cfg.LogLevel, "debug")
	}
	// Unset fields keep their defaults.
	if cfg.DataDir != DefaultDataDir() {
		t.Errorf("DataDir = %q, want default %q", cfg.DataDir, DefaultDataDir())
	}
}

func TestLoadConfig_LineForms(t *testing.T) {
	tests := []struct {
		name    string
		content string
		check   func(Config) bool
	}{
		{"unknown key ignored", "futurekey = futurevalue\nnetwork = testnet\n", func(c Config) bool { return c.Network == "testnet" }},
		{"empty value", "network=\n", func(c Config) bool { return c.Network == "" }},
		{"multiple equals", "logfile=/tmp/a=b.log\n", func(c Config) bool { return c.LogFile == "/tmp/a=b.log" }},
		{"whitespace around equals", "  network = testnet  \n", func(c Config) bool { return c.Network == "testnet" }},
		{"upper case key", "RPCURL = http://node:8332\n", func(c Config) bool { return c.RPCURL == "http://node:8332" }},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cfg, err := LoadConfig(writeConfig(t, tc.content))
			if err != nil {
				t.Fatalf("LoadConfig: %v", err)
			}
			if !tc.check(cfg) {
				t.Errorf("unexpected config %+v", cfg)
			}
		})
	}
}

func TestLoadConfig_PermissionDenied(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("permission test not reliable on Windows")
	}
	if os.Getuid() == 0 {
		t.Skip("cannot test permission denial as root")
	}

	path := writeConfig(t, "network=testnet\n")
	if err := os.Chmod(path, 0000); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = os.Chmod(path, 0600) })

	_, err := LoadConfig(path)
	if err == nil {
		t.Fatal("LoadConfig on unreadable file: expected error, got nil")
	}
	if errors.Is(err, ErrConfigNotFound) {
		t.Error("LoadConfig on unreadable file should not return ErrConfigNotFound")
	}
}

// ---------------------------------------------------------------------------
// ValidateConfig tests
// ---------------------------------------------------------------------------

func TestValidateConfigDefaults(t *testing.T) {
	if err := ValidateConfig(DefaultConfig()); err != nil {
		t.Errorf("ValidateConfig(DefaultConfig()) = %v, want nil", err)
	}
}

func TestValidateConfigErrors(t *testing.T) {
	tests := []struct {
		name    string
		modify  func(*Config)
		wantErr error
	}{
		{"empty datadir", func(c *Config) { c.DataDir = "" }, ErrEmptyDataDir},
		{"bad network", func(c *Config) { c.Network = "moonnet" }, ErrInvalidNetwork},
		{"empty network", func(c *Config) { c.Network = "" }, ErrInvalidNetwork},
		{"custom without file", func(c *Config) { c.Network = "custom:" }, ErrInvalidNetwork},
		{"custom blank file", func(c *Config) { c.Network = "custom:  " }, ErrInvalidNetwork},
		{"bad log level", func(c *Config) { c.LogLevel = "verbose" }, ErrInvalidLogLevel},
		{"bad holding", func(c *Config) { c.Holding = "0x1234" }, ErrInvalidAddress},
		{"bad controller", func(c *Config) { c.Controller = "nobody" }, ErrInvalidAddress},
		{"rpc url scheme", func(c *Config) { c.RPCURL = "ftp://node:8332" }, ErrInvalidRPCURL},
		{"rpc url host", func(c *Config) { c.RPCURL = "http://" }, ErrInvalidRPCURL},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tc.modify(&cfg)
			err := ValidateConfig(cfg)
			if !errors.Is(err, tc.wantErr) {
				t.Errorf("ValidateConfig: got %v, want %v", err, tc.wantErr)
			}
		})
	}
}

func TestValidateConfig_Accepts(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*Config)
	}{
		{"testnet", func(c *Config) { c.Network = "testnet" }},
		{"regtest", func(c *Config) { c.Network = "regtest" }},
		{"custom network", func(c *Config) { c.Network = "custom:/etc/revsplit/stn.yaml" }},
		{"mixed case level", func(c *Config) { c.LogLevel = "dEbUg" }},
		{"hex addresses", func(c *Config) { c.Holding, c.Controller = testHolding, testController }},
		{"https rpc", func(c *Config) { c.RPCURL = "https://node.example.com/rpc" }},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tc.modify(&cfg)
			if err := ValidateConfig(cfg); err != nil {
				t.Errorf("ValidateConfig: %v", err)
			}
		})
	}
}

// ---------------------------------------------------------------------------
// ConfigPath tests
// ---------------------------------------------------------------------------

func TestConfigPath(t *testing.T) {
	for _, dir := range []string{"/home/user/.revsplit", "/foo/"} {
		want := filepath.Join(filepath.Clean(dir), "config")
		if got := ConfigPath(dir); got != want {
			t.Errorf("ConfigPath(%q) = %q, want %q", dir, got, want)
		}
	}
}

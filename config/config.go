// Copyright (c) 2024 The BitFS developers
// Use of this source code is governed by the Open BSV License v5
// that can be found in the LICENSE file.

// Package config loads the revsplit node configuration and receivers file.
//
// The configuration file lives at {datadir}/config and holds one
// "key = value" pair per line. Lines starting with # are comments.
package config

import (
	"bufio"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// Config holds the settings of one revsplit data directory.
type Config struct {
	DataDir    string // bbolt ledger, registry and sealed seed
	Network    string // mainnet, testnet, regtest or custom:<network file>
	LogLevel   string // debug, info, warn or error
	LogFile    string // empty logs to stderr
	Holding    string // holding account address; empty derives it from the wallet
	Controller string // initial registry controller address
	RPCURL     string // settlement node; empty falls back to env and presets
}

// Configuration file keys.
const (
	keyDataDir    = "datadir"
	keyNetwork    = "network"
	keyLogLevel   = "loglevel"
	keyLogFile    = "logfile"
	keyHolding    = "holding"
	keyController = "controller"
	keyRPCURL     = "rpcurl"
)

// DefaultDataDir returns ~/.revsplit, or ./.revsplit when the home directory
// is unknown.
func DefaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".revsplit"
	}
	return filepath.Join(home, ".revsplit")
}

// ConfigPath returns the configuration file path inside dataDir.
func ConfigPath(dataDir string) string {
	return filepath.Join(dataDir, "config")
}

// DefaultConfig returns the configuration used when no file exists.
func DefaultConfig() Config {
	return Config{
		DataDir:  DefaultDataDir(),
		Network:  "mainnet",
		LogLevel: "info",
	}
}

// LoadConfig reads path on top of DefaultConfig. Unknown keys are ignored.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()

	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return cfg, fmt.Errorf("%w: %s", ErrConfigNotFound, path)
		}
		return cfg, fmt.Errorf("config: open %s: %w", path, err)
	}
	defer func() { _ = f.Close() }()

	scanner := bufio.NewScanner(f)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		key, value, ok := strings.Cut(line, "=")
		if !ok {
			return cfg, fmt.Errorf("%w: line %d: %q", ErrInvalidConfigLine, lineNo, line)
		}
		key = strings.ToLower(strings.TrimSpace(key))
		value = strings.TrimSpace(value)

		switch key {
		case keyDataDir:
			cfg.DataDir = value
		case keyNetwork:
			cfg.Network = value
		case keyLogLevel:
			cfg.LogLevel = value
		case keyLogFile:
			cfg.LogFile = value
		case keyHolding:
			cfg.Holding = value
		case keyController:
			cfg.Controller = value
		case keyRPCURL:
			cfg.RPCURL = value
		}
	}
	if err := scanner.Err(); err != nil {
		return cfg, fmt.Errorf("config: read %s: %w", path, err)
	}
	return cfg, nil
}

// SaveConfig writes cfg to path with mode 0600, creating parent directories.
func SaveConfig(path string, cfg Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return fmt.Errorf("config: create directory: %w", err)
	}

	var b strings.Builder
	b.WriteString("# revsplit configuration\n")
	for _, kv := range [][2]string{
		{keyDataDir, cfg.DataDir},
		{keyNetwork, cfg.Network},
		{keyLogLevel, cfg.LogLevel},
		{keyLogFile, cfg.LogFile},
		{keyHolding, cfg.Holding},
		{keyController, cfg.Controller},
		{keyRPCURL, cfg.RPCURL},
	} {
		fmt.Fprintf(&b, "%s = %s\n", kv[0], kv[1])
	}

	if err := os.WriteFile(path, []byte(b.String()), 0600); err != nil {
		return fmt.Errorf("config: write %s: %w", path, err)
	}
	return nil
}

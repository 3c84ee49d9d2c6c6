// Copyright (c) 2024 The BitFS developers
// Use of this source code is governed by the Open BSV License v5
// that can be found in the LICENSE file.

package config

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/bitfsorg/revsplit-go/revshare"
)

// validLogLevels lists the accepted log level strings.
var validLogLevels = map[string]bool{
	"debug": true,
	"info":  true,
	"warn":  true,
	"error": true,
}

// ValidateConfig checks that all configuration values are within acceptable
// ranges and returns the first error encountered, or nil if valid.
func ValidateConfig(cfg Config) error {
	if cfg.DataDir == "" {
		return ErrEmptyDataDir
	}

	if !validNetwork(cfg.Network) {
		return ErrInvalidNetwork
	}

	if !validLogLevels[strings.ToLower(cfg.LogLevel)] {
		return ErrInvalidLogLevel
	}

	for _, field := range [][2]string{{"holding", cfg.Holding}, {"controller", cfg.Controller}} {
		if field[1] == "" {
			continue
		}
		if _, err := revshare.ParseAddress(field[1]); err != nil {
			return fmt.Errorf("%w: %s: %w", ErrInvalidAddress, field[0], err)
		}
	}

	if cfg.RPCURL != "" {
		if err := validateRPCURL(cfg.RPCURL); err != nil {
			return fmt.Errorf("%w: %w", ErrInvalidRPCURL, err)
		}
	}

	return nil
}

// customNetworkPrefix names a network file; the wallet package loads it.
const customNetworkPrefix = "custom:"

func validNetwork(name string) bool {
	switch name {
	case "mainnet", "testnet", "regtest":
		return true
	}
	path, ok := strings.CutPrefix(name, customNetworkPrefix)
	return ok && strings.TrimSpace(path) != ""
}

// validateRPCURL checks that raw is an absolute http or https URL.
func validateRPCURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return err
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("unsupported scheme %q", u.Scheme)
	}
	if u.Host == "" {
		return fmt.Errorf("missing host")
	}
	return nil
}

// Copyright (c) 2024 The BitFS developers
// Use of this source code is governed by the Open BSV License v5
// that can be found in the LICENSE file.

package config

import "errors"

var (
	// ErrInvalidNetwork indicates the network name is not recognized.
	ErrInvalidNetwork = errors.New("config: invalid network (must be \"mainnet\", \"testnet\", \"regtest\" or \"custom:<file>\")")

	// ErrInvalidLogLevel indicates the log level is not recognized.
	ErrInvalidLogLevel = errors.New("config: invalid log level (must be \"debug\", \"info\", \"warn\", or \"error\")")

	// ErrEmptyDataDir indicates the data directory path is empty.
	ErrEmptyDataDir = errors.New("config: data directory must not be empty")

	// ErrInvalidAddress indicates the holding or controller address does not parse.
	ErrInvalidAddress = errors.New("config: invalid account address")

	// ErrInvalidRPCURL indicates the settlement node URL is not http(s).
	ErrInvalidRPCURL = errors.New("config: invalid RPC URL")

	// ErrConfigNotFound indicates the configuration file does not exist.
	ErrConfigNotFound = errors.New("config: configuration file not found")

	// ErrInvalidConfigLine indicates a line in the config file is malformed.
	ErrInvalidConfigLine = errors.New("config: invalid configuration line")

	// ErrInvalidReceiversFile indicates the receivers YAML does not parse.
	ErrInvalidReceiversFile = errors.New("config: invalid receivers file")

	// ErrUnresolvedHandle indicates a handle entry with no resolver to map it.
	ErrUnresolvedHandle = errors.New("config: receiver handle cannot be resolved")
)

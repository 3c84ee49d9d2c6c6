// Copyright (c) 2024 The BitFS developers
// Use of this source code is governed by the Open BSV License v5
// that can be found in the LICENSE file.

package config

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"sigs.k8s.io/yaml"

	"github.com/bitfsorg/revsplit-go/paymail"
	"github.com/bitfsorg/revsplit-go/revshare"
)

// ReceiverEntry is one line of the receivers file. Receiver is an address
// (0x hex or base58 P2PKH) or a paymail handle.
type ReceiverEntry struct {
	Receiver string `json:"receiver"`
	Bps      uint16 `json:"bps"`
}

// ReceiversFile is the YAML document fed to "receivers set":
//
//	receivers:
//	  - receiver: "0x5aAeb6053F3E94C9b9A09f33669435E7Ef1BeAed"
//	    bps: 2000
//	  - receiver: alice@example.com
//	    bps: 8000
type ReceiversFile struct {
	Receivers []ReceiverEntry `json:"receivers"`
}

// HandleResolver maps a paymail handle to an address.
type HandleResolver interface {
	ResolveReceiver(ctx context.Context, handle string) (revshare.Address, error)
}

// LoadReceiversFile parses a receivers file. Unknown fields are rejected.
func LoadReceiversFile(path string) (*ReceiversFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read receivers file: %w", err)
	}

	var f ReceiversFile
	if err := yaml.UnmarshalStrict(data, &f); err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrInvalidReceiversFile, path, err)
	}
	return &f, nil
}

// Resolve converts the entries to registry shares in file order. Handles go
// through resolver; a nil resolver makes any handle an error.
func (f *ReceiversFile) Resolve(ctx context.Context, resolver HandleResolver) ([]revshare.ReceiverShare, error) {
	shares := make([]revshare.ReceiverShare, 0, len(f.Receivers))
	for i, e := range f.Receivers {
		var (
			addr revshare.Address
			err  error
		)
		if paymail.IsHandle(e.Receiver) {
			if resolver == nil {
				return nil, fmt.Errorf("%w: entry %d: %s", ErrUnresolvedHandle, i, e.Receiver)
			}
			addr, err = resolver.ResolveReceiver(ctx, e.Receiver)
		} else {
			addr, err = revshare.ParseAddress(e.Receiver)
		}
		if err != nil {
			return nil, fmt.Errorf("config: receivers entry %d (%s): %w", i, e.Receiver, err)
		}
		shares = append(shares, revshare.ReceiverShare{Receiver: addr, ShareBps: e.Bps})
	}
	return shares, nil
}

// SaveReceiversFile writes shares as a receivers file with hex addresses.
func SaveReceiversFile(path string, shares []revshare.ReceiverShare) error {
	f := ReceiversFile{Receivers: make([]ReceiverEntry, len(shares))}
	for i, s := range shares {
		f.Receivers[i] = ReceiverEntry{Receiver: s.Receiver.Hex(), Bps: s.ShareBps}
	}

	data, err := yaml.Marshal(f)
	if err != nil {
		return fmt.Errorf("config: encode receivers: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return fmt.Errorf("config: create directory: %w", err)
	}
	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("config: write receivers file: %w", err)
	}
	return nil
}

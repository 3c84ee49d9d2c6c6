// Copyright (c) 2024 The BitFS developers
// Use of this source code is governed by the Open BSV License v5
// that can be found in the LICENSE file.

package config

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bitfsorg/revsplit-go/revshare"
)

type stubResolver map[string]revshare.Address

func (s stubResolver) ResolveReceiver(_ context.Context, handle string) (revshare.Address, error) {
	if a, ok := s[handle]; ok {
		return a, nil
	}
	return revshare.Address{}, errors.New("unknown handle")
}

func writeReceivers(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "receivers.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))
	return path
}

func TestLoadReceiversFile_Resolve(t *testing.T) {
	path := writeReceivers(t, `receivers:
  - receiver: "`+testHolding+`"
    bps: 2000
  - receiver: alice@example.com
    bps: 8000
`)
	f, err := LoadReceiversFile(path)
	require.NoError(t, err)
	require.Len(t, f.Receivers, 2)

	alice, err := revshare.ParseAddress(testController)
	require.NoError(t, err)
	shares, err := f.Resolve(context.Background(), stubResolver{"alice@example.com": alice})
	require.NoError(t, err)

	first, err := revshare.ParseAddress(testHolding)
	require.NoError(t, err)
	assert.Equal(t, []revshare.ReceiverShare{
		{Receiver: first, ShareBps: 2000},
		{Receiver: alice, ShareBps: 8000},
	}, shares)
	assert.NoError(t, revshare.ValidateShares(shares))
}

func TestLoadReceiversFile_Errors(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"unknown field", "receivers:\n  - receiver: x\n    share: 1\n"},
		{"bps overflow", "receivers:\n  - receiver: x\n    bps: 70000\n"},
		{"negative bps", "receivers:\n  - receiver: x\n    bps: -1\n"},
		{"not yaml", "receivers: [\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadReceiversFile(writeReceivers(t, tt.content))
			assert.ErrorIs(t, err, ErrInvalidReceiversFile)
		})
	}

	_, err := LoadReceiversFile(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestReceiversFile_ResolveErrors(t *testing.T) {
	f := &ReceiversFile{Receivers: []ReceiverEntry{{Receiver: "alice@example.com", Bps: 10000}}}
	_, err := f.Resolve(context.Background(), nil)
	assert.ErrorIs(t, err, ErrUnresolvedHandle)

	_, err = f.Resolve(context.Background(), stubResolver{})
	assert.Error(t, err)

	bad := &ReceiversFile{Receivers: []ReceiverEntry{{Receiver: "0xnothex", Bps: 10000}}}
	_, err = bad.Resolve(context.Background(), nil)
	assert.ErrorIs(t, err, revshare.ErrInvalidAddress)
}

func TestReceiversFile_EmptyListDisables(t *testing.T) {
	f, err := LoadReceiversFile(writeReceivers(t, "receivers: []\n"))
	require.NoError(t, err)
	shares, err := f.Resolve(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, shares)
}

func TestSaveReceiversFile_RoundTrip(t *testing.T) {
	a, err := revshare.ParseAddress(testHolding)
	require.NoError(t, err)
	b, err := revshare.ParseAddress(testController)
	require.NoError(t, err)
	shares := []revshare.ReceiverShare{{Receiver: a, ShareBps: 2500}, {Receiver: b, ShareBps: 7500}}

	path := filepath.Join(t.TempDir(), "out", "receivers.yaml")
	require.NoError(t, SaveReceiversFile(path, shares))

	f, err := LoadReceiversFile(path)
	require.NoError(t, err)
	got, err := f.Resolve(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, shares, got)
}

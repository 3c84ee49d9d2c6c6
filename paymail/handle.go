// Package paymail resolves receiver handles (alias@domain) to ledger
// addresses.
//
// The domain's bsvalias host is found through a DNSSEC-validated SRV lookup,
// its capabilities through .well-known/bsvalias, and the receiver key through
// the PKI capability (or the royalty receiver capability when advertised).
package paymail

import (
	"fmt"
	"strings"
)

// Handle is a parsed paymail handle.
type Handle struct {
	Alias  string
	Domain string
}

// IsHandle reports whether s looks like a handle rather than an address.
func IsHandle(s string) bool {
	return strings.Contains(s, "@")
}

// ParseHandle splits and validates alias@domain. The domain is lowercased.
func ParseHandle(s string) (Handle, error) {
	s = strings.TrimSpace(s)
	alias, domain, ok := strings.Cut(s, "@")
	if !ok {
		return Handle{}, fmt.Errorf("%w: %q has no @", ErrInvalidHandle, s)
	}
	if alias == "" || domain == "" {
		return Handle{}, fmt.Errorf("%w: %q", ErrInvalidHandle, s)
	}
	if strings.ContainsAny(alias, "@/ \t") {
		return Handle{}, fmt.Errorf("%w: bad alias %q", ErrInvalidHandle, alias)
	}
	if strings.ContainsAny(domain, "@/:? \t") || strings.HasPrefix(domain, ".") || strings.HasSuffix(domain, ".") {
		return Handle{}, fmt.Errorf("%w: bad domain %q", ErrInvalidHandle, domain)
	}
	return Handle{Alias: alias, Domain: strings.ToLower(domain)}, nil
}

// String returns alias@domain.
func (h Handle) String() string {
	return h.Alias + "@" + h.Domain
}

// validateCompressedPubKey checks that raw bytes represent a valid compressed public key.
// A compressed secp256k1 public key is exactly 33 bytes with prefix 0x02 or 0x03.
func validateCompressedPubKey(pub []byte) error {
	if len(pub) != 33 {
		return fmt.Errorf("%w: expected 33 bytes, got %d", ErrInvalidPubKey, len(pub))
	}
	if pub[0] != 0x02 && pub[0] != 0x03 {
		return fmt.Errorf("%w: invalid prefix byte 0x%02x", ErrInvalidPubKey, pub[0])
	}
	return nil
}

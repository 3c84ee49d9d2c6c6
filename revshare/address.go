package revshare

import (
	"fmt"
	"strings"

	ec "github.com/bsv-blockchain/go-sdk/primitives/ec"
	"github.com/bsv-blockchain/go-sdk/script"
	"github.com/ethereum/go-ethereum/common"
)

// ParseAddress accepts either a 0x-prefixed hex address or a base58 P2PKH address.
func ParseAddress(s string) (Address, error) {
	var a Address
	s = strings.TrimSpace(s)
	if s == "" {
		return a, fmt.Errorf("%w: empty", ErrInvalidAddress)
	}

	if strings.HasPrefix(s, "0x") || strings.HasPrefix(s, "0X") {
		if !common.IsHexAddress(s) {
			return a, fmt.Errorf("%w: %q is not a 20-byte hex address", ErrInvalidAddress, s)
		}
		return Address(common.HexToAddress(s)), nil
	}

	addr, err := script.NewAddressFromString(s)
	if err != nil {
		return a, fmt.Errorf("%w: %q: %w", ErrInvalidAddress, s, err)
	}
	pkh := []byte(addr.PublicKeyHash)
	if len(pkh) != AddressSize {
		return a, fmt.Errorf("%w: public key hash is %d bytes", ErrInvalidAddress, len(pkh))
	}
	copy(a[:], pkh)
	return a, nil
}

// AddressFromPublicKey returns the hash160 address of a compressed secp256k1 key.
func AddressFromPublicKey(pub []byte) (Address, error) {
	var a Address
	pk, err := ec.PublicKeyFromBytes(pub)
	if err != nil {
		return a, fmt.Errorf("%w: public key: %w", ErrInvalidAddress, err)
	}
	copy(a[:], pk.Hash())
	return a, nil
}

// IsZero reports whether a is the zero address.
func (a Address) IsZero() bool {
	return a == Address{}
}

// Hex returns the EIP-55 checksummed hex form.
func (a Address) Hex() string {
	return common.Address(a).Hex()
}

func (a Address) String() string {
	return a.Hex()
}

// P2PKH returns the base58 P2PKH form for mainnet or testnet.
func (a Address) P2PKH(mainnet bool) (string, error) {
	addr, err := script.NewAddressFromPublicKeyHash(a[:], mainnet)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrInvalidAddress, err)
	}
	return addr.AddressString, nil
}

// MarshalText implements encoding.TextMarshaler.
func (a Address) MarshalText() ([]byte, error) {
	return []byte(a.Hex()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (a *Address) UnmarshalText(text []byte) error {
	parsed, err := ParseAddress(string(text))
	if err != nil {
		return err
	}
	*a = parsed
	return nil
}

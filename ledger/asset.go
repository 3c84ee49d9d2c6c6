package ledger

import (
	"fmt"
	"strings"

	"github.com/bitfsorg/revsplit-go/revshare"
)

// AssetKind distinguishes the native balance from token ledgers.
type AssetKind uint8

const (
	KindNative AssetKind = 0x00
	KindToken  AssetKind = 0x01
)

// assetKeySize is the encoded length of an asset: kind(1) + token(20).
const assetKeySize = 1 + revshare.AddressSize

// Asset names one balance column of the ledger.
type Asset struct {
	Kind  AssetKind
	Token revshare.TokenID // zero for KindNative
}

// Native is the base currency of the ledger.
var Native = Asset{Kind: KindNative}

// Token returns the asset tracked by the token ledger id.
func Token(id revshare.TokenID) Asset {
	return Asset{Kind: KindToken, Token: id}
}

// IsNative reports whether a is the base currency.
func (a Asset) IsNative() bool { return a.Kind == KindNative }

func (a Asset) String() string {
	if a.IsNative() {
		return "native"
	}
	return a.Token.Hex()
}

// ParseAsset accepts "native" (or "") and any address form accepted by
// revshare.ParseAddress for tokens.
func ParseAsset(s string) (Asset, error) {
	s = strings.TrimSpace(s)
	if s == "" || strings.EqualFold(s, "native") {
		return Native, nil
	}
	id, err := revshare.ParseAddress(s)
	if err != nil {
		return Asset{}, fmt.Errorf("%w: %w", ErrInvalidAsset, err)
	}
	if id.IsZero() {
		return Asset{}, fmt.Errorf("%w: zero token id", ErrInvalidAsset)
	}
	return Token(id), nil
}

func (a Asset) validate() error {
	switch a.Kind {
	case KindNative:
		if !a.Token.IsZero() {
			return fmt.Errorf("%w: native asset with token id", ErrInvalidAsset)
		}
	case KindToken:
		if a.Token.IsZero() {
			return fmt.Errorf("%w: zero token id", ErrInvalidAsset)
		}
	default:
		return fmt.Errorf("%w: unknown kind 0x%02x", ErrInvalidAsset, a.Kind)
	}
	return nil
}

// balanceKey is asset(21) || account(20).
func balanceKey(asset Asset, account revshare.Address) []byte {
	key := make([]byte, 0, assetKeySize+revshare.AddressSize)
	key = append(key, byte(asset.Kind))
	key = append(key, asset.Token[:]...)
	key = append(key, account[:]...)
	return key
}

package wallet

import (
	"fmt"

	bip32 "github.com/bsv-blockchain/go-sdk/compat/bip32"
	ec "github.com/bsv-blockchain/go-sdk/primitives/ec"
	chaincfg "github.com/bsv-blockchain/go-sdk/transaction/chaincfg"

	"github.com/bitfsorg/revsplit-go/revshare"
)

const (
	// BIP44 path constants.
	PurposeBIP44     = 44
	CoinTypeRevsplit = 236
	HoldingAccount   = 0

	// Chain indices.
	ExternalChain = 0 // Receive addresses
	InternalChain = 1 // Change addresses

	// MaxKeyIndex is the largest non-hardened BIP32 index.
	MaxKeyIndex = 1<<31 - 1

	// BIP32 hardened offset.
	Hardened = 0x80000000
)

// Wallet derives holding keys from a BIP39 seed.
type Wallet struct {
	masterKey *bip32.ExtendedKey
	network   *NetworkConfig
}

// KeyPair holds a derived public/private key pair.
type KeyPair struct {
	PrivateKey *ec.PrivateKey `json:"-"`
	PublicKey  *ec.PublicKey  `json:"public_key"`
	Path       string         `json:"path"` // Human-readable derivation path
}

// Address returns the hash160 ledger address of the key.
func (k *KeyPair) Address() revshare.Address {
	var a revshare.Address
	copy(a[:], k.PublicKey.Hash())
	return a
}

// NewWallet creates a new Wallet from a BIP39 seed.
func NewWallet(seed []byte, network *NetworkConfig) (*Wallet, error) {
	if len(seed) == 0 {
		return nil, ErrInvalidSeed
	}
	if network == nil {
		network = &MainNet
	}

	net := &chaincfg.TestNet
	if network.IsMainnet() {
		net = &chaincfg.MainNet
	}

	masterKey, err := bip32.NewMaster(seed, net)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrDerivationFailed, err)
	}

	return &Wallet{
		masterKey: masterKey,
		network:   network,
	}, nil
}

// Network returns the wallet's network configuration.
func (w *Wallet) Network() *NetworkConfig {
	return w.network
}

// HoldingKey derives the holding account key m/44'/236'/0'/0/index.
func (w *Wallet) HoldingKey(index uint32) (*KeyPair, error) {
	return w.deriveKey(ExternalChain, index)
}

// ChangeKey derives m/44'/236'/0'/1/index, used for settlement change outputs.
func (w *Wallet) ChangeKey(index uint32) (*KeyPair, error) {
	return w.deriveKey(InternalChain, index)
}

func (w *Wallet) deriveKey(chain, index uint32) (*KeyPair, error) {
	if index > MaxKeyIndex {
		return nil, ErrIndexOutOfRange
	}

	path := []uint32{PurposeBIP44 + Hardened, CoinTypeRevsplit + Hardened, HoldingAccount + Hardened, chain, index}
	key := w.masterKey
	for depth, child := range path {
		next, err := key.Child(child)
		if err != nil {
			return nil, fmt.Errorf("%w: depth %d: %w", ErrDerivationFailed, depth+1, err)
		}
		key = next
	}

	return extKeyToKeyPair(key, fmt.Sprintf("m/%d'/%d'/%d'/%d/%d", PurposeBIP44, CoinTypeRevsplit, HoldingAccount, chain, index))
}

// extKeyToKeyPair converts a BIP32 extended key to a KeyPair.
func extKeyToKeyPair(extKey *bip32.ExtendedKey, path string) (*KeyPair, error) {
	privKey, err := extKey.ECPrivKey()
	if err != nil {
		return nil, fmt.Errorf("%w: failed to extract EC private key: %w", ErrDerivationFailed, err)
	}

	pubKey := privKey.PubKey()
	if pubKey == nil {
		return nil, fmt.Errorf("%w: failed to derive public key", ErrDerivationFailed)
	}

	return &KeyPair{
		PrivateKey: privKey,
		PublicKey:  pubKey,
		Path:       path,
	}, nil
}

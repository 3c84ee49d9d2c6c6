// Package wallet manages the key that controls the holding account on chain.
//
// The holding key hierarchy is m/44'/236'/0'/0/{index}. The BIP39 seed is
// kept on disk sealed with Argon2id + AES-256-GCM.
package wallet

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/bsv-blockchain/go-sdk/compat/bip39"
	"golang.org/x/crypto/argon2"
)

const (
	// Mnemonic entropy sizes.
	Mnemonic12Words = 128 // 12-word mnemonic
	Mnemonic24Words = 256 // 24-word mnemonic

	// Argon2id parameters for seed sealing.
	Argon2Time        = 3
	Argon2Memory      = 64 * 1024 // 64 MB
	Argon2Parallelism = 4
	Argon2KeyLen      = 32

	// Sealed format sizes.
	SaltLen     = 16
	NonceLen    = 12
	ChecksumLen = 4

	// SeedFileName is the sealed seed file inside the data directory.
	SeedFileName = "holding.seal"
)

// GenerateMnemonic creates a new BIP39 mnemonic with the specified entropy bits.
// Use Mnemonic12Words (128) for 12 words or Mnemonic24Words (256) for 24 words.
func GenerateMnemonic(entropyBits int) (string, error) {
	if entropyBits != Mnemonic12Words && entropyBits != Mnemonic24Words {
		return "", ErrInvalidEntropy
	}

	entropy, err := bip39.NewEntropy(entropyBits)
	if err != nil {
		return "", fmt.Errorf("wallet: failed to generate entropy: %w", err)
	}

	mnemonic, err := bip39.NewMnemonic(entropy)
	if err != nil {
		return "", fmt.Errorf("wallet: failed to generate mnemonic: %w", err)
	}

	return mnemonic, nil
}

// ValidateMnemonic checks if a mnemonic string is valid BIP39.
func ValidateMnemonic(mnemonic string) bool {
	return bip39.IsMnemonicValid(mnemonic)
}

// SeedFromMnemonic derives a 64-byte BIP39 seed from mnemonic + optional passphrase.
func SeedFromMnemonic(mnemonic, passphrase string) ([]byte, error) {
	if !ValidateMnemonic(mnemonic) {
		return nil, ErrInvalidMnemonic
	}

	seed, err := bip39.NewSeedWithErrorChecking(mnemonic, passphrase)
	if err != nil {
		return nil, fmt.Errorf("wallet: failed to derive seed: %w", err)
	}

	return seed, nil
}

// SealSeed encrypts the seed under password.
//
// Output format: salt(16B) || nonce(12B) || AES-GCM(argon2id(password,salt), nonce, seed||checksum)
//
// The checksum is SHA256(seed)[:4].
func SealSeed(seed []byte, password string) ([]byte, error) {
	if len(seed) == 0 {
		return nil, ErrInvalidSeed
	}

	salt := make([]byte, SaltLen)
	if _, err := rand.Read(salt); err != nil {
		return nil, fmt.Errorf("wallet: failed to generate salt: %w", err)
	}

	gcm, err := newSealCipher(password, salt)
	if err != nil {
		return nil, err
	}

	seedHash := sha256.Sum256(seed)
	plaintext := make([]byte, 0, len(seed)+ChecksumLen)
	plaintext = append(plaintext, seed...)
	plaintext = append(plaintext, seedHash[:ChecksumLen]...)

	nonce := make([]byte, gcm.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return nil, fmt.Errorf("wallet: failed to generate nonce: %w", err)
	}

	ciphertext := gcm.Seal(nil, nonce, plaintext, nil)

	result := make([]byte, 0, SaltLen+NonceLen+len(ciphertext))
	result = append(result, salt...)
	result = append(result, nonce...)
	result = append(result, ciphertext...)
	return result, nil
}

// OpenSeed reverses SealSeed. A wrong password and tampered data both
// yield ErrDecryptionFailed.
func OpenSeed(sealed []byte, password string) ([]byte, error) {
	if len(sealed) < SaltLen+NonceLen+ChecksumLen {
		return nil, ErrDecryptionFailed
	}

	salt := sealed[:SaltLen]
	nonce := sealed[SaltLen : SaltLen+NonceLen]
	ciphertext := sealed[SaltLen+NonceLen:]

	gcm, err := newSealCipher(password, salt)
	if err != nil {
		return nil, ErrDecryptionFailed
	}

	plaintext, err := gcm.Open(nil, nonce, ciphertext, nil)
	if err != nil || len(plaintext) <= ChecksumLen {
		return nil, ErrDecryptionFailed
	}

	seed := plaintext[:len(plaintext)-ChecksumLen]
	seedHash := sha256.Sum256(seed)
	if subtle.ConstantTimeCompare(plaintext[len(seed):], seedHash[:ChecksumLen]) != 1 {
		return nil, ErrChecksumMismatch
	}
	return seed, nil
}

func newSealCipher(password string, salt []byte) (cipher.AEAD, error) {
	key := argon2.IDKey([]byte(password), salt, Argon2Time, Argon2Memory, Argon2Parallelism, Argon2KeyLen)

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("wallet: AES cipher creation failed: %w", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("wallet: GCM creation failed: %w", err)
	}
	return gcm, nil
}

// SaveSeedFile seals seed and writes it to dir/SeedFileName with mode 0600.
// An existing seed file is never overwritten.
func SaveSeedFile(dir string, seed []byte, password string) (string, error) {
	sealed, err := SealSeed(seed, password)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(dir, 0700); err != nil {
		return "", fmt.Errorf("wallet: create %s: %w", dir, err)
	}

	path := filepath.Join(dir, SeedFileName)
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0600)
	if err != nil {
		if errors.Is(err, os.ErrExist) {
			return "", fmt.Errorf("%w: %s", ErrSeedFileExists, path)
		}
		return "", fmt.Errorf("wallet: create seed file: %w", err)
	}
	if _, err := f.Write(sealed); err != nil {
		_ = f.Close()
		_ = os.Remove(path)
		return "", fmt.Errorf("wallet: write seed file: %w", err)
	}
	if err := f.Close(); err != nil {
		return "", fmt.Errorf("wallet: close seed file: %w", err)
	}
	return path, nil
}

// LoadSeedFile reads and opens dir/SeedFileName.
func LoadSeedFile(dir, password string) ([]byte, error) {
	sealed, err := os.ReadFile(filepath.Join(dir, SeedFileName))
	if err != nil {
		return nil, fmt.Errorf("wallet: read seed file: %w", err)
	}
	return OpenSeed(sealed, password)
}

// Package cryptox holds the cryptographic primitives of the server: the
// symmetric Vault that seals notes and files, and argon2id password hashing.
package cryptox

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"strings"

	"github.com/dmitrijs2005/securecloud/internal/common"
)

const (
	// VaultKeySize is the raw key length required by AES-256-GCM.
	VaultKeySize = 32

	vaultFormatV1 byte = 1
	nonceSize          = 12
	tagSize            = 16
)

var (
	ErrVaultKeyMissing   = fmt.Errorf("%w: key is not configured", common.ErrVaultUnavailable)
	ErrVaultKeyMalformed = fmt.Errorf("%w: key must be base64 encoding of %d bytes", common.ErrVaultUnavailable, VaultKeySize)
)

// Vault performs authenticated encryption of opaque payloads under one
// process-wide AES-256-GCM key.
//
// Ciphertext layout:
//
//	version (1 byte) || nonce (12 bytes) || sealed payload || tag (16 bytes)
//
// The version byte is bound as additional authenticated data.
//
// A Vault without a key (the zero value, or one built by UnavailableVault)
// fails every operation with an error wrapping common.ErrVaultUnavailable.
// It never passes plaintext through.
type Vault struct {
	aead  cipher.AEAD
	cause error
}

// NewVault validates keyMaterial and returns a ready Vault.
//
// keyMaterial is the base64 encoding (standard or URL alphabet, padded or
// not) of exactly VaultKeySize bytes. Surrounding whitespace is ignored.
func NewVault(keyMaterial string) (*Vault, error) {
	keyMaterial = strings.TrimSpace(keyMaterial)
	if keyMaterial == "" {
		return nil, ErrVaultKeyMissing
	}

	key, err := decodeKey(keyMaterial)
	if err != nil {
		return nil, err
	}
	defer common.WipeByteArray(key)

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrVaultKeyMalformed, err)
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrVaultKeyMalformed, err)
	}

	return &Vault{aead: aead}, nil
}

// UnavailableVault returns a Vault that refuses every operation, reporting
// cause. It is what the server runs with when the configured key is bad.
func UnavailableVault(cause error) *Vault {
	if cause == nil {
		cause = ErrVaultKeyMissing
	}
	return &Vault{cause: cause}
}

// Err returns nil for a usable vault and the reason otherwise.
func (v *Vault) Err() error {
	if v == nil || v.aead == nil {
		if v != nil && v.cause != nil {
			return v.cause
		}
		return ErrVaultKeyMissing
	}
	return nil
}

// Encrypt seals plaintext under a fresh random nonce.
func (v *Vault) Encrypt(plaintext []byte) ([]byte, error) {
	if err := v.Err(); err != nil {
		return nil, err
	}

	nonce := make([]byte, nonceSize)
	if _, err := rand.Read(nonce); err != nil {
		return nil, fmt.Errorf("nonce generation: %w", err)
	}

	out := make([]byte, 0, 1+nonceSize+len(plaintext)+tagSize)
	out = append(out, vaultFormatV1)
	out = append(out, nonce...)

	return v.aead.Seal(out, nonce, plaintext, []byte{vaultFormatV1}), nil
}

// Decrypt opens ciphertext produced by Encrypt. Any malformed or tampered
// input yields an error wrapping common.ErrIntegrity; no plaintext is
// returned in that case.
func (v *Vault) Decrypt(ciphertext []byte) ([]byte, error) {
	if err := v.Err(); err != nil {
		return nil, err
	}

	if len(ciphertext) < 1+nonceSize+tagSize {
		return nil, fmt.Errorf("%w: ciphertext too short", common.ErrIntegrity)
	}
	if ciphertext[0] != vaultFormatV1 {
		return nil, fmt.Errorf("%w: unknown format version %d", common.ErrIntegrity, ciphertext[0])
	}

	nonce := ciphertext[1 : 1+nonceSize]
	sealed := ciphertext[1+nonceSize:]

	plaintext, err := v.aead.Open(nil, nonce, sealed, ciphertext[:1])
	if err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrIntegrity, err)
	}
	if plaintext == nil {
		plaintext = []byte{}
	}
	return plaintext, nil
}

// GenerateVaultKey returns fresh key material accepted by NewVault.
func GenerateVaultKey() string {
	key := common.GenerateRandByteArray(VaultKeySize)
	defer common.WipeByteArray(key)
	return base64.URLEncoding.EncodeToString(key)
}

func decodeKey(s string) ([]byte, error) {
	encodings := []*base64.Encoding{
		base64.StdEncoding,
		base64.URLEncoding,
		base64.RawStdEncoding,
		base64.RawURLEncoding,
	}
	for _, enc := range encodings {
		key, err := enc.DecodeString(s)
		if err != nil {
			continue
		}
		if len(key) != VaultKeySize {
			common.WipeByteArray(key)
			return nil, fmt.Errorf("%w: got %d bytes", ErrVaultKeyMalformed, len(key))
		}
		return key, nil
	}
	return nil, fmt.Errorf("%w: not valid base64", ErrVaultKeyMalformed)
}

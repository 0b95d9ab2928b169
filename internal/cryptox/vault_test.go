package cryptox

import (
	"bytes"
	"encoding/base64"
	"errors"
	"strings"
	"testing"

	"github.com/dmitrijs2005/securecloud/internal/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestVault(t *testing.T) *Vault {
	t.Helper()
	v, err := NewVault(GenerateVaultKey())
	require.NoError(t, err)
	return v
}

func TestNewVault_KeyValidation(t *testing.T) {
	raw := bytes.Repeat([]byte{7}, VaultKeySize)

	tests := []struct {
		name    string
		key     string
		wantErr error
	}{
		{name: "std padded", key: base64.StdEncoding.EncodeToString(raw)},
		{name: "url padded (fernet style)", key: base64.URLEncoding.EncodeToString(raw)},
		{name: "raw std", key: base64.RawStdEncoding.EncodeToString(raw)},
		{name: "surrounding whitespace", key: "  " + base64.StdEncoding.EncodeToString(raw) + "\n"},
		{name: "empty", key: "", wantErr: ErrVaultKeyMissing},
		{name: "blank", key: "   ", wantErr: ErrVaultKeyMissing},
		{name: "too short", key: base64.StdEncoding.EncodeToString(raw[:16]), wantErr: ErrVaultKeyMalformed},
		{name: "too long", key: base64.StdEncoding.EncodeToString(append(raw, 1)), wantErr: ErrVaultKeyMalformed},
		{name: "not base64", key: "this is not a key!", wantErr: ErrVaultKeyMalformed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v, err := NewVault(tt.key)
			if tt.wantErr != nil {
				require.Error(t, err)
				assert.ErrorIs(t, err, tt.wantErr)
				assert.ErrorIs(t, err, common.ErrVaultUnavailable)
				assert.Nil(t, v)
				return
			}
			require.NoError(t, err)
			assert.NoError(t, v.Err())
		})
	}
}

func TestVault_RoundTrip(t *testing.T) {
	v := newTestVault(t)

	payloads := map[string][]byte{
		"empty": {},
		"text":  []byte("hello"),
		"large": bytes.Repeat([]byte("0123456789abcdef"), 64*1024),
	}

	for name, p := range payloads {
		t.Run(name, func(t *testing.T) {
			ct, err := v.Encrypt(p)
			require.NoError(t, err)
			assert.Len(t, ct, 1+nonceSize+len(p)+tagSize)
			if len(p) > 0 {
				assert.False(t, bytes.Contains(ct, p), "ciphertext must not contain plaintext")
			}

			pt, err := v.Decrypt(ct)
			require.NoError(t, err)
			assert.True(t, bytes.Equal(p, pt))
		})
	}
}

func TestVault_FreshNoncePerCall(t *testing.T) {
	v := newTestVault(t)

	a, err := v.Encrypt([]byte("same input"))
	require.NoError(t, err)
	b, err := v.Encrypt([]byte("same input"))
	require.NoError(t, err)

	assert.NotEqual(t, a, b)
	assert.NotEqual(t, a[1:1+nonceSize], b[1:1+nonceSize])
}

func TestVault_AnyBitFlipFailsIntegrity(t *testing.T) {
	v := newTestVault(t)

	ct, err := v.Encrypt([]byte("report body"))
	require.NoError(t, err)

	for i := range ct {
		for bit := 0; bit < 8; bit++ {
			tampered := bytes.Clone(ct)
			tampered[i] ^= 1 << bit

			pt, err := v.Decrypt(tampered)
			if !errors.Is(err, common.ErrIntegrity) {
				t.Fatalf("byte %d bit %d: expected ErrIntegrity, got %v", i, bit, err)
			}
			if pt != nil {
				t.Fatalf("byte %d bit %d: plaintext returned on failure", i, bit)
			}
		}
	}
}

func TestVault_MalformedInput(t *testing.T) {
	v := newTestVault(t)

	for _, in := range [][]byte{nil, {}, {vaultFormatV1}, bytes.Repeat([]byte{vaultFormatV1}, 1+nonceSize+tagSize-1)} {
		_, err := v.Decrypt(in)
		assert.ErrorIs(t, err, common.ErrIntegrity)
	}
}

func TestVault_WrongKeyFailsIntegrity(t *testing.T) {
	a := newTestVault(t)
	b := newTestVault(t)

	ct, err := a.Encrypt([]byte("secret"))
	require.NoError(t, err)

	_, err = b.Decrypt(ct)
	assert.ErrorIs(t, err, common.ErrIntegrity)
}

func TestVault_UnavailableFailsDeterministically(t *testing.T) {
	cause := ErrVaultKeyMalformed
	vaults := map[string]*Vault{
		"unavailable": UnavailableVault(cause),
		"nil cause":   UnavailableVault(nil),
		"zero value":  {},
		"nil pointer": nil,
	}

	for name, v := range vaults {
		t.Run(name, func(t *testing.T) {
			require.Error(t, v.Err())

			ct, err := v.Encrypt([]byte("plaintext"))
			assert.ErrorIs(t, err, common.ErrVaultUnavailable)
			assert.Nil(t, ct)

			pt, err := v.Decrypt([]byte("anything at all, long enough to be parsed"))
			assert.ErrorIs(t, err, common.ErrVaultUnavailable)
			assert.Nil(t, pt)
		})
	}
}

func TestGenerateVaultKey(t *testing.T) {
	a := GenerateVaultKey()
	b := GenerateVaultKey()

	assert.NotEqual(t, a, b)
	assert.False(t, strings.ContainsAny(a, "+/"), "key uses the URL alphabet")

	raw, err := base64.URLEncoding.DecodeString(a)
	require.NoError(t, err)
	assert.Len(t, raw, VaultKeySize)
}

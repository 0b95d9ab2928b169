package cryptox

import (
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"github.com/dmitrijs2005/securecloud/internal/common"
	"golang.org/x/crypto/argon2"
)

var ErrMalformedHash = errors.New("malformed password hash")

// Argon2Params tunes argon2id password hashing.
type Argon2Params struct {
	Time      uint32
	MemoryKiB uint32
	Threads   uint8
	KeyLen    uint32
	SaltLen   uint32
}

// DefaultArgon2Params follow the RFC 9106 second recommended option
// with a smaller memory footprint.
var DefaultArgon2Params = Argon2Params{
	Time:      3,
	MemoryKiB: 64 * 1024,
	Threads:   2,
	KeyLen:    32,
	SaltLen:   16,
}

// HashPassword derives an argon2id digest of password under a random salt
// and returns it in PHC string format:
//
//	$argon2id$v=19$m=65536,t=3,p=2$<salt>$<digest>
func HashPassword(password []byte, p Argon2Params) (string, error) {
	if p.KeyLen == 0 || p.SaltLen == 0 || p.Time == 0 || p.Threads == 0 {
		return "", fmt.Errorf("invalid argon2 params: %+v", p)
	}
	salt := common.GenerateRandByteArray(int(p.SaltLen))
	digest := argon2.IDKey(password, salt, p.Time, p.MemoryKiB, p.Threads, p.KeyLen)

	return fmt.Sprintf("$argon2id$v=%d$m=%d,t=%d,p=%d$%s$%s",
		argon2.Version, p.MemoryKiB, p.Time, p.Threads,
		base64.RawStdEncoding.EncodeToString(salt),
		base64.RawStdEncoding.EncodeToString(digest),
	), nil
}

// VerifyPassword re-derives the digest of password with the salt and
// parameters stored in encoded and compares both in constant time.
func VerifyPassword(password []byte, encoded string) (bool, error) {
	p, salt, digest, err := decodeHash(encoded)
	if err != nil {
		return false, err
	}
	candidate := argon2.IDKey(password, salt, p.Time, p.MemoryKiB, p.Threads, p.KeyLen)
	defer common.WipeByteArray(candidate)

	return subtle.ConstantTimeCompare(digest, candidate) == 1, nil
}

func decodeHash(encoded string) (Argon2Params, []byte, []byte, error) {
	var p Argon2Params

	parts := strings.Split(encoded, "$")
	if len(parts) != 6 || parts[0] != "" || parts[1] != "argon2id" {
		return p, nil, nil, ErrMalformedHash
	}

	var version int
	if _, err := fmt.Sscanf(parts[2], "v=%d", &version); err != nil || version != argon2.Version {
		return p, nil, nil, ErrMalformedHash
	}
	if _, err := fmt.Sscanf(parts[3], "m=%d,t=%d,p=%d", &p.MemoryKiB, &p.Time, &p.Threads); err != nil {
		return p, nil, nil, ErrMalformedHash
	}
	if p.Time == 0 || p.Threads == 0 {
		return p, nil, nil, ErrMalformedHash
	}

	salt, err := base64.RawStdEncoding.DecodeString(parts[4])
	if err != nil || len(salt) == 0 {
		return p, nil, nil, ErrMalformedHash
	}
	digest, err := base64.RawStdEncoding.DecodeString(parts[5])
	if err != nil || len(digest) == 0 {
		return p, nil, nil, ErrMalformedHash
	}

	p.SaltLen = uint32(len(salt))
	p.KeyLen = uint32(len(digest))
	return p, salt, digest, nil
}

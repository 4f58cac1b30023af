// Package security hashes staff passwords with Argon2id in the PHC string
// format ($argon2id$v=19$m=..,t=..,p=..$salt$key).
package security

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/argon2"

	"github.com/angelmondragon/repairshop-backend/pkg/config"
)

// ErrInvalidHash signals a stored hash this package cannot parse.
var ErrInvalidHash = errors.New("invalid argon2id hash")

var b64 = base64.RawStdEncoding

type argonParams struct {
	memory  uint32
	time    uint32
	threads uint8
	saltLen uint32
	keyLen  uint32
}

func paramsFromConfig(cfg config.PasswordConfig) argonParams {
	return argonParams{
		memory:  uint32(clamp(cfg.ArgonMemoryKB, 8, 512*1024)),
		time:    uint32(clamp(cfg.ArgonTime, 1, 10)),
		threads: uint8(clamp(cfg.ArgonParallelism, 1, 255)),
		saltLen: uint32(clamp(cfg.ArgonSaltLen, 8, 64)),
		keyLen:  uint32(clamp(cfg.ArgonKeyLen, 16, 64)),
	}
}

func (p argonParams) key(password string, salt []byte) []byte {
	return argon2.IDKey([]byte(password), salt, p.time, p.memory, p.threads, p.keyLen)
}

func HashPassword(password string, cfg config.PasswordConfig) (string, error) {
	if password == "" {
		return "", errors.New("password cannot be empty")
	}
	p := paramsFromConfig(cfg)
	salt := make([]byte, p.saltLen)
	if _, err := rand.Read(salt); err != nil {
		return "", fmt.Errorf("generate salt: %w", err)
	}
	return fmt.Sprintf("$argon2id$v=%d$m=%d,t=%d,p=%d$%s$%s",
		argon2.Version, p.memory, p.time, p.threads,
		b64.EncodeToString(salt), b64.EncodeToString(p.key(password, salt))), nil
}

// VerifyPassword compares in constant time. A malformed hash is an error,
// a wrong password is not.
func VerifyPassword(password, encoded string) (bool, error) {
	p, salt, want, err := decodeHash(encoded)
	if err != nil {
		return false, err
	}
	return subtle.ConstantTimeCompare(want, p.key(password, salt)) == 1, nil
}

func decodeHash(encoded string) (argonParams, []byte, []byte, error) {
	parts := strings.Split(encoded, "$")
	if len(parts) != 6 || parts[1] != "argon2id" {
		return argonParams{}, nil, nil, ErrInvalidHash
	}
	var version int
	if _, err := fmt.Sscanf(parts[2], "v=%d", &version); err != nil || version != argon2.Version {
		return argonParams{}, nil, nil, ErrInvalidHash
	}
	var p argonParams
	if _, err := fmt.Sscanf(parts[3], "m=%d,t=%d,p=%d", &p.memory, &p.time, &p.threads); err != nil {
		return argonParams{}, nil, nil, ErrInvalidHash
	}
	salt, err := b64.DecodeString(parts[4])
	if err != nil {
		return argonParams{}, nil, nil, ErrInvalidHash
	}
	key, err := b64.DecodeString(parts[5])
	if err != nil || len(key) == 0 {
		return argonParams{}, nil, nil, ErrInvalidHash
	}
	p.saltLen, p.keyLen = uint32(len(salt)), uint32(len(key))
	return p, salt, key, nil
}

func clamp(v, lo, hi int) int {
	return min(max(v, lo), hi)
}

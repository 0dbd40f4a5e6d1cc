package auth

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"golang.org/x/crypto/scrypt"
)

const (
	scryptN      = 1 << 14
	scryptR      = 8
	scryptP      = 1
	scryptKeyLen = 64
	saltLen      = 16

	hashPrefix = "scrypt"

	// Upper bounds on parameters read back from storage. scrypt needs about
	// 128*N*r bytes, so these cap a stored row at 128 MiB of work memory.
	maxScryptN      = 1 << 17
	maxScryptR      = 8
	maxScryptP      = 4
	maxScryptKeyLen = 128
)

// legacySalt is the shared salt of hashes written before per-record salts.
// It is only used to verify those hashes, never to create new ones.
const legacySalt = "sistema-contable-carlitos-2024"

var (
	// ErrMalformedHash is returned when a stored hash cannot be decoded.
	ErrMalformedHash = errors.New("auth: malformed hash")
	// ErrInvalidScryptParams is returned when a stored hash asks for
	// parameters outside the accepted range.
	ErrInvalidScryptParams = errors.New("auth: invalid scrypt parameters")
)

// HashSecret derives a salted scrypt hash of secret, encoded as
// scrypt$N$r$p$salt$key.
func HashSecret(secret string) (string, error) {
	salt := make([]byte, saltLen)
	if _, err := rand.Read(salt); err != nil {
		return "", fmt.Errorf("generate salt: %w", err)
	}
	key, err := scrypt.Key([]byte(secret), salt, scryptN, scryptR, scryptP, scryptKeyLen)
	if err != nil {
		return "", fmt.Errorf("derive key: %w", err)
	}
	return fmt.Sprintf("%s$%d$%d$%d$%s$%s", hashPrefix, scryptN, scryptR, scryptP,
		hex.EncodeToString(salt), hex.EncodeToString(key)), nil
}

// CheckSecret reports whether secret matches encoded, accepting both the
// salted format and legacy bare-hex hashes.
func CheckSecret(secret, encoded string) (bool, error) {
	if !strings.HasPrefix(encoded, hashPrefix+"$") {
		return checkLegacy(secret, encoded)
	}

	parts := strings.Split(encoded, "$")
	if len(parts) != 6 {
		return false, ErrMalformedHash
	}
	n, errN := strconv.Atoi(parts[1])
	r, errR := strconv.Atoi(parts[2])
	p, errP := strconv.Atoi(parts[3])
	if errN != nil || errR != nil || errP != nil {
		return false, ErrMalformedHash
	}
	salt, err := hex.DecodeString(parts[4])
	if err != nil {
		return false, ErrMalformedHash
	}
	want, err := hex.DecodeString(parts[5])
	if err != nil || len(want) == 0 {
		return false, ErrMalformedHash
	}
	if err := validateParams(n, r, p, len(salt), len(want)); err != nil {
		return false, err
	}

	got, err := scrypt.Key([]byte(secret), salt, n, r, p, len(want))
	if err != nil {
		return false, fmt.Errorf("derive key: %w", err)
	}
	return subtle.ConstantTimeCompare(got, want) == 1, nil
}

func validateParams(n, r, p, saltBytes, keyLen int) error {
	switch {
	case n < 2 || n > maxScryptN || n&(n-1) != 0:
		return fmt.Errorf("%w: N must be a power of two up to %d", ErrInvalidScryptParams, maxScryptN)
	case r < 1 || r > maxScryptR:
		return fmt.Errorf("%w: r must be between 1 and %d", ErrInvalidScryptParams, maxScryptR)
	case p < 1 || p > maxScryptP:
		return fmt.Errorf("%w: p must be between 1 and %d", ErrInvalidScryptParams, maxScryptP)
	case saltBytes < saltLen:
		return fmt.Errorf("%w: salt must be at least %d bytes", ErrInvalidScryptParams, saltLen)
	case keyLen > maxScryptKeyLen:
		return fmt.Errorf("%w: key length must be at most %d", ErrInvalidScryptParams, maxScryptKeyLen)
	}
	return nil
}

func checkLegacy(secret, encoded string) (bool, error) {
	want, err := hex.DecodeString(encoded)
	if err != nil || len(want) != scryptKeyLen {
		return false, ErrMalformedHash
	}
	got, err := legacyHash(secret)
	if err != nil {
		return false, err
	}
	return subtle.ConstantTimeCompare(got, want) == 1, nil
}

func legacyHash(secret string) ([]byte, error) {
	key, err := scrypt.Key([]byte(secret), []byte(legacySalt), scryptN, scryptR, scryptP, scryptKeyLen)
	if err != nil {
		return nil, fmt.Errorf("derive key: %w", err)
	}
	return key, nil
}

// NormalizeAnswer lower-cases and trims a security answer before hashing.
func NormalizeAnswer(answer string) string {
	return strings.ToLower(strings.TrimSpace(answer))
}

// Package cryptox implements password hashing for stored credentials.
// Passwords are stretched with argon2id over a per-identity random salt and
// the digest is stored base64-encoded next to the salt.
package cryptox

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"

	"golang.org/x/crypto/argon2"
)

const (
	argonTime    = 1
	argonMemory  = 64 * 1024
	argonThreads = 4
	argonKeyLen  = 32
)

// SaltSize is the number of random salt bytes generated per identity.
const SaltSize = 16

// DeriveKey computes the stored digest for a password and salt. The result
// is deterministic for fixed inputs, which verification relies on.
func DeriveKey(password string, salt []byte) string {
	key := argon2.IDKey([]byte(password), salt, argonTime, argonMemory, argonThreads, argonKeyLen)
	return base64.StdEncoding.EncodeToString(key)
}

// VerifyPassword recomputes the digest for the candidate password and
// compares it against the stored hash in constant time.
func VerifyPassword(password, hash string, salt []byte) bool {
	candidate := DeriveKey(password, salt)
	return subtle.ConstantTimeCompare([]byte(candidate), []byte(hash)) == 1
}

// GenerateSalt returns size cryptographically secure random bytes. A failed
// system RNG leaves nothing sensible to do, so it panics.
func GenerateSalt(size int) []byte {
	salt := make([]byte, size)
	if _, err := rand.Read(salt); err != nil {
		panic(err)
	}
	return salt
}

// Hasher adapts the package functions to interfaces that expect an injected
// hashing collaborator.
type Hasher struct{}

func (Hasher) DeriveKey(password string, salt []byte) string { return DeriveKey(password, salt) }

func (Hasher) VerifyPassword(password, hash string, salt []byte) bool {
	return VerifyPassword(password, hash, salt)
}

func (Hasher) GenerateSalt(size int) []byte { return GenerateSalt(size) }

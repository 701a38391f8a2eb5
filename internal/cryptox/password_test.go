package cryptox

import (
	"bytes"
	"encoding/base64"
	"testing"
)

func TestVerifyPassword_RoundTrip(t *testing.T) {
	t.Parallel()

	salt := GenerateSalt(SaltSize)
	hash := DeriveKey("secret1", salt)

	if !VerifyPassword("secret1", hash, salt) {
		t.Fatalf("expected password to verify against its own hash")
	}
}

func TestVerifyPassword_WrongPassword(t *testing.T) {
	t.Parallel()

	salt := GenerateSalt(SaltSize)
	hash := DeriveKey("secret1", salt)

	if VerifyPassword("secret2", hash, salt) {
		t.Fatalf("expected altered password to fail verification")
	}
}

func TestVerifyPassword_WrongSalt(t *testing.T) {
	t.Parallel()

	salt := GenerateSalt(SaltSize)
	hash := DeriveKey("secret1", salt)

	other := GenerateSalt(SaltSize)
	if VerifyPassword("secret1", hash, other) {
		t.Fatalf("expected altered salt to fail verification")
	}
}

func TestDeriveKey_Deterministic(t *testing.T) {
	t.Parallel()

	salt := []byte("0123456789abcdef")
	if DeriveKey("pw", salt) != DeriveKey("pw", salt) {
		t.Fatalf("expected identical inputs to produce identical digests")
	}
}

func TestDeriveKey_IsBase64(t *testing.T) {
	t.Parallel()

	hash := DeriveKey("pw", GenerateSalt(SaltSize))
	if _, err := base64.StdEncoding.DecodeString(hash); err != nil {
		t.Fatalf("digest is not valid base64: %v", err)
	}
}

func TestGenerateSalt(t *testing.T) {
	t.Parallel()

	a := GenerateSalt(SaltSize)
	b := GenerateSalt(SaltSize)

	if len(a) != SaltSize || len(b) != SaltSize {
		t.Fatalf("unexpected salt length: %d, %d", len(a), len(b))
	}
	if bytes.Equal(a, b) {
		t.Fatalf("two generated salts must not repeat")
	}
}

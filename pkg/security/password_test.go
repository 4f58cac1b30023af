package security_test

import (
	"errors"
	"strings"
	"testing"

	"github.com/angelmondragon/repairshop-backend/pkg/config"
	"github.com/angelmondragon/repairshop-backend/pkg/security"
)

func TestHashAndVerifyPassword(t *testing.T) {
	cfg := config.PasswordConfig{
		ArgonMemoryKB:    32768,
		ArgonTime:        1,
		ArgonParallelism: 1,
		ArgonSaltLen:     16,
		ArgonKeyLen:      32,
	}

	hash, err := security.HashPassword("very-secure-password", cfg)
	if err != nil {
		t.Fatalf("HashPassword returned error: %v", err)
	}
	if hash == "" {
		t.Fatal("HashPassword returned empty string")
	}

	ok, err := security.VerifyPassword("very-secure-password", hash)
	if err != nil {
		t.Fatalf("VerifyPassword returned error for valid hash: %v", err)
	}
	if !ok {
		t.Fatal("VerifyPassword failed for the correct password")
	}

	ok, err = security.VerifyPassword("bogus-password", hash)
	if err != nil {
		t.Fatalf("VerifyPassword returned error for invalid password: %v", err)
	}
	if ok {
		t.Fatal("VerifyPassword returned true for incorrect password")
	}
}

func TestVerifyPasswordBadHash(t *testing.T) {
	if _, err := security.VerifyPassword("irrelevant", "not-a-hash"); err == nil {
		t.Fatal("expected error for malformed hash")
	}
}

func TestHashPasswordClampsWeakSettings(t *testing.T) {
	hash, err := security.HashPassword("pin-1234", config.PasswordConfig{})
	if err != nil {
		t.Fatalf("HashPassword: %v", err)
	}
	if !strings.HasPrefix(hash, "$argon2id$v=19$m=8,t=1,p=1$") {
		t.Fatalf("unexpected parameters in %q", hash)
	}
	if _, err := security.HashPassword("", config.PasswordConfig{}); err == nil {
		t.Fatal("expected error for empty password")
	}
}

func TestVerifyPasswordRejectsOtherVersions(t *testing.T) {
	hash, err := security.HashPassword("pin-1234", config.PasswordConfig{ArgonTime: 1})
	if err != nil {
		t.Fatalf("HashPassword: %v", err)
	}
	tampered := strings.Replace(hash, "v=19", "v=16", 1)
	if _, err := security.VerifyPassword("pin-1234", tampered); !errors.Is(err, security.ErrInvalidHash) {
		t.Fatalf("expected ErrInvalidHash, got %v", err)
	}
}

package security_test

import (
	"testing"

	"github.com/bsebcampus/campus-api/internal/security"
)

func TestHashAndCheckPassword(t *testing.T) {
	hash, err := security.HashPassword("s3cret-pass")

	if err != nil {
		t.Fatalf("hash failed: %v", err)
	}

	if hash == "s3cret-pass" {
		t.Fatal("hash must not equal the plaintext")
	}

	if err := security.CheckPassword(hash, "s3cret-pass"); err != nil {
		t.Fatalf("check failed for correct password: %v", err)
	}

	if err := security.CheckPassword(hash, "wrong-pass"); err == nil {
		t.Fatal("check passed for wrong password")
	}
}

func TestHashIsSalted(t *testing.T) {
	first, err := security.HashPassword("same-input")
	if err != nil {
		t.Fatalf("hash failed: %v", err)
	}

	second, err := security.HashPassword("same-input")
	if err != nil {
		t.Fatalf("hash failed: %v", err)
	}

	// random salt per call, identical inputs must not collide
	if first == second {
		t.Fatal("two hashes of the same password were identical")
	}
}

func TestBcryptHasherAdapter(t *testing.T) {
	var h security.BcryptHasher

	hash, err := h.Hash("adapter-pass")
	if err != nil {
		t.Fatalf("hash failed: %v", err)
	}

	if err := h.Check(hash, "adapter-pass"); err != nil {
		t.Fatalf("check failed: %v", err)
	}
}

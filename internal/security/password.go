package security

import "golang.org/x/crypto/bcrypt"

// bcrypt work factor; matches the cost the platform has always used, so
// existing hashes keep verifying.
const hashCost = 10

// HashPassword hashes a plaintext password with bcrypt. The salt is random
// per call and embedded in the output, so hashing the same password twice
// yields different strings.
func HashPassword(plain string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(plain), hashCost)

	if err != nil {
		return "", err
	}

	return string(hash), nil
}

// CheckPassword compares a bcrypt hash against a plaintext candidate.
// Comparison is constant-time inside bcrypt.
func CheckPassword(hash, plain string) error {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(plain))
}

// BcryptHasher lets callers take hashing as a dependency instead of
// calling the package functions directly.
type BcryptHasher struct{}

func (BcryptHasher) Hash(plain string) (string, error) {
	return HashPassword(plain)
}

func (BcryptHasher) Check(hash, plain string) error {
	return CheckPassword(hash, plain)
}

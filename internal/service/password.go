package service

import "golang.org/x/crypto/bcrypt"

const (
	// BcryptCost is the cost factor for bcrypt hashing (10 as per requirements)
	BcryptCost = 10

	// MinPasswordLength is the minimum accepted raw password length. The
	// check runs before hashing; the stored hash never reveals the length.
	MinPasswordLength = 8
)

// PasswordHasher turns raw credentials into opaque hashes. Injected so tests
// can substitute a cheap implementation.
type PasswordHasher interface {
	Hash(password string) (string, error)
	Compare(hash, password string) error
}

type bcryptHasher struct{}

// NewBcryptHasher returns the production hasher, bcrypt at cost 10.
func NewBcryptHasher() PasswordHasher {
	return bcryptHasher{}
}

func (bcryptHasher) Hash(password string) (string, error) {
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), BcryptCost)
	if err != nil {
		return "", err
	}
	return string(hashed), nil
}

func (bcryptHasher) Compare(hash, password string) error {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
}

package auth

import "golang.org/x/crypto/bcrypt"

// PasswordHasher produces and checks salted one-way password hashes.
type PasswordHasher struct {
	cost int
}

// NewPasswordHasher constructs a hasher with a moderate fixed work factor.
func NewPasswordHasher() *PasswordHasher {
	return &PasswordHasher{cost: bcrypt.DefaultCost}
}

// Hash derives a salted hash from the plaintext password.
func (h *PasswordHasher) Hash(plaintext string) (string, error) {
	hashed, err := bcrypt.GenerateFromPassword([]byte(plaintext), h.cost)
	if err != nil {
		return "", err
	}
	return string(hashed), nil
}

// Compare reports whether the plaintext matches the stored hash.
// A mismatch is a normal false result, not an error.
func (h *PasswordHasher) Compare(plaintext, hash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(plaintext)) == nil
}

package utils

import (
	"crypto/subtle"
	"strings"

	"golang.org/x/crypto/bcrypt"
)

// Password schemes accepted by NewPasswords.
const (
	SchemePlain  = "plain"
	SchemeBcrypt = "bcrypt"
)

// Passwords hashes and verifies stored credentials for one scheme. The
// plain scheme stores passwords as given, matching existing datasets.
type Passwords struct {
	Scheme string
	Cost   int
}

// NewPasswords returns a Passwords for scheme. Unknown schemes fall back
// to plain.
func NewPasswords(scheme string, cost int) Passwords {
	scheme = strings.ToLower(strings.TrimSpace(scheme))
	if scheme != SchemeBcrypt {
		scheme = SchemePlain
	}
	if cost <= 0 {
		cost = bcrypt.DefaultCost
	}
	return Passwords{Scheme: scheme, Cost: cost}
}

// Hash returns the value to store for plain.
func (p Passwords) Hash(plain string) (string, error) {
	if p.Scheme == SchemeBcrypt {
		return HashPassword(plain, p.Cost)
	}
	return plain, nil
}

// Verify reports whether plain matches stored. Under the bcrypt scheme a
// stored value that is not a bcrypt hash is compared as plain text so
// accounts created before switching schemes keep working.
func (p Passwords) Verify(stored, plain string) bool {
	if p.Scheme == SchemeBcrypt && strings.HasPrefix(stored, "$2") {
		return VerifyPassword(stored, plain)
	}
	return subtle.ConstantTimeCompare([]byte(stored), []byte(plain)) == 1
}

// HashPassword returns bcrypt hash using the given cost.
func HashPassword(plain string, cost int) (string, error) {
	b, err := bcrypt.GenerateFromPassword([]byte(plain), cost)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// VerifyPassword safely compares bcrypt hash and plain password.
func VerifyPassword(hash, plain string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(plain)) == nil
}

package hash

import (
	"errors"

	"golang.org/x/crypto/bcrypt"
)

// HashPassword hashes p with the given bcrypt work factor. Out-of-range
// factors fall back to bcrypt.DefaultCost.
func HashPassword(p string, cost int) (string, error) {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = bcrypt.DefaultCost
	}
	bytes, err := bcrypt.GenerateFromPassword([]byte(p), cost)
	return string(bytes), err
}

// CheckPassword reports whether plain matches hashed. A mismatch is not an
// error; a corrupt hash is.
func CheckPassword(hashed, plain string) (bool, error) {
	err := bcrypt.CompareHashAndPassword([]byte(hashed), []byte(plain))
	if err == nil {
		return true, nil
	}
	if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
		return false, nil
	}
	return false, err
}

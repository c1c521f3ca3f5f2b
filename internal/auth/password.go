package auth

import (
	"errors"
	"sync"

	"golang.org/x/crypto/bcrypt"
)

var (
	_decoyOnce sync.Once
	_decoyHash []byte
)

func HashPassword(password string) (string, error) {
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hashed), nil
}

// CheckPassword reports whether password matches the stored hash.
func CheckPassword(hashed, password string) (bool, error) {
	err := bcrypt.CompareHashAndPassword([]byte(hashed), []byte(password))
	switch {
	case errors.Is(err, bcrypt.ErrMismatchedHashAndPassword):
		return false, nil
	case err != nil:
		return false, err
	}
	return true, nil
}

// CheckDecoy compares password with a throwaway hash of the same cost as real
// ones, so that an unknown account takes as long to reject as a wrong password.
func CheckDecoy(password string) {
	_ = bcrypt.CompareHashAndPassword(decoyHash(), []byte(password))
}

func decoyHash() []byte {
	_decoyOnce.Do(func() {
		_decoyHash, _ = bcrypt.GenerateFromPassword([]byte("decoy password"), bcrypt.DefaultCost)
	})
	return _decoyHash
}

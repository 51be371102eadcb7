package auth

import (
	"crypto/subtle"

	"golang.org/x/crypto/bcrypt"
)

func HashPassword(password string) (string, error) {
	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hashedPassword), nil
}

func VerifyPassword(hash, plain string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(plain)) == nil
}

// CheckPassword verifies plain against hash, or against shared when the user has no hash.
func CheckPassword(hash, shared, plain string) bool {
	if hash != "" {
		return VerifyPassword(hash, plain)
	}
	return shared != "" && subtle.ConstantTimeCompare([]byte(shared), []byte(plain)) == 1
}

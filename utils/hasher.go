package utils

import (
	"context"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"

	"golang.org/x/crypto/bcrypt"
)

const defaultBCryptWorkFactor = 12

// BCrypt implements the slow hashing used for passwords.
type BCrypt struct {
	bCryptWorkFactor int
}

// NewBCrypt returns a new BCrypt instance.
func NewBCrypt() *BCrypt {
	return &BCrypt{
		defaultBCryptWorkFactor,
	}
}

func (b *BCrypt) Hash(_ context.Context, data []byte) ([]byte, error) {
	cf := b.bCryptWorkFactor
	s, err := bcrypt.GenerateFromPassword(data, cf)
	if err != nil {
		return nil, err
	}
	return s, nil
}

func (b *BCrypt) Compare(_ context.Context, hash, data []byte) error {
	if err := bcrypt.CompareHashAndPassword(hash, data); err != nil {
		return err
	}
	return nil
}

// HashStringSecret produces the hex encoded sha256 digest used for code and
// token lookups. Raw secrets are never persisted, only this digest.
func HashStringSecret(secret string) string {
	hashedSecret := HashByteSecret([]byte(secret))
	return hex.EncodeToString(hashedSecret)
}

// HashByteSecret hashes the secret to exactly 32 bytes.
func HashByteSecret(secret []byte) []byte {

	algorithm := sha256.New()
	algorithm.Write(secret)
	return algorithm.Sum(nil)
}

// ConstantTimeEquals compares two strings without leaking the position of
// the first differing byte.
func ConstantTimeEquals(a, b string) bool {
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}

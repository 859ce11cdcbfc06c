// AngelaMos | 2026
// generator.go

package credential

import (
	"crypto/rand"
	"fmt"
	"math/big"

	"github.com/atelierline/portal/internal/core"
)

const (
	AccessCodeLength   = 8
	TempPasswordLength = 16

	accessCodeAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

	upperChars  = "ABCDEFGHJKLMNPQRSTUVWXYZ"
	lowerChars  = "abcdefghijkmnpqrstuvwxyz"
	digitChars  = "23456789"
	symbolChars = "!@#$%^&*-_=+?"
)

// Credential is the one-time login material for a newly provisioned
// account. Password is plaintext and must only travel to the notifier.
type Credential struct {
	AccessCode   string
	Password     string
	PasswordHash string
}

// GenerateAccessCode returns an 8-character uppercase alphanumeric lookup
// key (36^8 space). It is not a secret.
func GenerateAccessCode() (string, error) {
	return randomString(accessCodeAlphabet, AccessCodeLength)
}

// GenerateTempPassword returns a password containing at least one upper,
// lower, digit and symbol character, drawn from crypto/rand.
func GenerateTempPassword() (string, error) {
	classes := []string{upperChars, lowerChars, digitChars, symbolChars}
	all := upperChars + lowerChars + digitChars + symbolChars

	buf := make([]byte, 0, TempPasswordLength)
	for _, class := range classes {
		c, err := randomChar(class)
		if err != nil {
			return "", err
		}
		buf = append(buf, c)
	}

	for len(buf) < TempPasswordLength {
		c, err := randomChar(all)
		if err != nil {
			return "", err
		}
		buf = append(buf, c)
	}

	if err := shuffle(buf); err != nil {
		return "", err
	}

	return string(buf), nil
}

// Issue generates an access code and temporary password and hashes the
// password for persistence.
func Issue() (*Credential, error) {
	code, err := GenerateAccessCode()
	if err != nil {
		return nil, fmt.Errorf("generate access code: %w", err)
	}

	password, err := GenerateTempPassword()
	if err != nil {
		return nil, fmt.Errorf("generate temp password: %w", err)
	}

	hash, err := core.HashPassword(password)
	if err != nil {
		return nil, fmt.Errorf("hash temp password: %w", err)
	}

	return &Credential{
		AccessCode:   code,
		Password:     password,
		PasswordHash: hash,
	}, nil
}

func randomString(alphabet string, n int) (string, error) {
	buf := make([]byte, n)
	for i := range buf {
		c, err := randomChar(alphabet)
		if err != nil {
			return "", err
		}
		buf[i] = c
	}
	return string(buf), nil
}

func randomChar(alphabet string) (byte, error) {
	idx, err := rand.Int(rand.Reader, big.NewInt(int64(len(alphabet))))
	if err != nil {
		return 0, fmt.Errorf("read random: %w", err)
	}
	return alphabet[idx.Int64()], nil
}

func shuffle(buf []byte) error {
	for i := len(buf) - 1; i > 0; i-- {
		j, err := rand.Int(rand.Reader, big.NewInt(int64(i+1)))
		if err != nil {
			return fmt.Errorf("read random: %w", err)
		}
		k := j.Int64()
		buf[i], buf[k] = buf[k], buf[i]
	}
	return nil
}

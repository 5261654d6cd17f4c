// Package password hashes and verifies account passwords with argon2id.
package password

import (
	"fmt"

	"github.com/matthewhartstonge/argon2"
)

func Hash(plain string) (string, error) {
	cfg := argon2.DefaultConfig()
	encoded, err := cfg.HashEncoded([]byte(plain))
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(encoded), nil
}

func Verify(plain, encoded string) (bool, error) {
	ok, err := argon2.VerifyEncoded([]byte(plain), []byte(encoded))
	if err != nil {
		return false, fmt.Errorf("verify password: %w", err)
	}
	return ok, nil
}

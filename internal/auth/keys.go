package auth

import (
	"crypto/sha256"
	"fmt"
	"io"

	"golang.org/x/crypto/hkdf"
)

// Keys are the purpose-bound secrets derived from the server's master secret.
type Keys struct {
	// State signs OAuth state tokens.
	State []byte
	// Session keys the HMAC that session tokens are stored under.
	Session []byte
}

const keySize = 32

// DeriveKeys expands secret into independent keys, one per purpose, so
// rotating the master secret rotates all of them.
func DeriveKeys(secret string) (Keys, error) {
	if secret == "" {
		return Keys{}, fmt.Errorf("derive keys: empty secret")
	}
	state, err := derive(secret, "listkeep oauth state")
	if err != nil {
		return Keys{}, err
	}
	session, err := derive(secret, "listkeep session token")
	if err != nil {
		return Keys{}, err
	}
	return Keys{State: state, Session: session}, nil
}

func derive(secret, info string) ([]byte, error) {
	r := hkdf.New(sha256.New, []byte(secret), nil, []byte(info))
	key := make([]byte, keySize)
	if _, err := io.ReadFull(r, key); err != nil {
		return nil, fmt.Errorf("derive %s key: %w", info, err)
	}
	return key, nil
}

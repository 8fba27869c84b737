package auth

import (
	"crypto/sha256"
	"fmt"
	"io"

	"golang.org/x/crypto/hkdf"
)

const (
	accessKeyInfo  = "storeauth/access-token/v1"
	refreshKeyInfo = "storeauth/refresh-token/v1"
	derivedKeySize = 32
)

// DeriveKeys expands the master secret into independent signing keys for
// access and refresh tokens. A token signed for one purpose therefore fails
// signature verification for the other.
func DeriveKeys(secret []byte) (access, refresh []byte, err error) {
	access, err = deriveKey(secret, accessKeyInfo)
	if err != nil {
		return nil, nil, err
	}
	refresh, err = deriveKey(secret, refreshKeyInfo)
	if err != nil {
		return nil, nil, err
	}
	return access, refresh, nil
}

func deriveKey(secret []byte, info string) ([]byte, error) {
	key := make([]byte, derivedKeySize)
	if _, err := io.ReadFull(hkdf.New(sha256.New, secret, nil, []byte(info)), key); err != nil {
		return nil, fmt.Errorf("derive %s key: %w", info, err)
	}
	return key, nil
}

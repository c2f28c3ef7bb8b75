// Package secrets seals and unseals task secrets with NaCl sealed boxes
// (X25519 + XSalsa20-Poly1305, anonymous sender). Ciphertexts produced by
// libsodium sealed boxes unseal unchanged.
package secrets

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"

	"golang.org/x/crypto/curve25519"
	"golang.org/x/crypto/nacl/box"
)

// Unsealed is a decrypted task secret.
type Unsealed struct {
	Token string `json:"token"`
	Value string `json:"value"`
}

// Unseal decrypts a base64 sealed-box ciphertext with the process-wide
// base64-encoded 32-byte private key.
func Unseal(token, sealedB64, privateKeyB64 string) (Unsealed, error) {
	sk, err := decodeKey(privateKeyB64)
	if err != nil {
		return Unsealed{}, fmt.Errorf("secrets: private key: %w", err)
	}

	var pk [32]byte
	curve25519.ScalarBaseMult(&pk, &sk)

	ciphertext, err := base64.StdEncoding.DecodeString(sealedB64)
	if err != nil {
		return Unsealed{}, fmt.Errorf("secrets: ciphertext for token %q is not valid base64: %w", token, err)
	}

	plaintext, ok := box.OpenAnonymous(nil, ciphertext, &pk, &sk)
	if !ok {
		return Unsealed{}, fmt.Errorf("secrets: could not unseal secret for token %q", token)
	}

	return Unsealed{Token: token, Value: string(plaintext)}, nil
}

// Seal encrypts value against the recipient's base64-encoded 32-byte public
// key and returns the base64 ciphertext. Clients use this to build workflow
// requests; it is also handy in tests.
func Seal(value, publicKeyB64 string) (string, error) {
	pk, err := decodeKey(publicKeyB64)
	if err != nil {
		return "", fmt.Errorf("secrets: public key: %w", err)
	}
	ciphertext, err := box.SealAnonymous(nil, []byte(value), &pk, rand.Reader)
	if err != nil {
		return "", fmt.Errorf("secrets: seal: %w", err)
	}
	return base64.StdEncoding.EncodeToString(ciphertext), nil
}

// PublicKey derives the base64 public key from a base64 private key.
func PublicKey(privateKeyB64 string) (string, error) {
	sk, err := decodeKey(privateKeyB64)
	if err != nil {
		return "", fmt.Errorf("secrets: private key: %w", err)
	}
	var pk [32]byte
	curve25519.ScalarBaseMult(&pk, &sk)
	return base64.StdEncoding.EncodeToString(pk[:]), nil
}

// GenerateKey returns a fresh base64 (private, public) key pair.
func GenerateKey() (string, string, error) {
	pk, sk, err := box.GenerateKey(rand.Reader)
	if err != nil {
		return "", "", fmt.Errorf("secrets: generate key: %w", err)
	}
	return base64.StdEncoding.EncodeToString(sk[:]), base64.StdEncoding.EncodeToString(pk[:]), nil
}

func decodeKey(b64 string) ([32]byte, error) {
	var key [32]byte
	raw, err := base64.StdEncoding.DecodeString(b64)
	if err != nil {
		return key, err
	}
	if len(raw) != 32 {
		return key, fmt.Errorf("expected 32 bytes, got %d", len(raw))
	}
	copy(key[:], raw)
	return key, nil
}

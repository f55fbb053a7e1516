// Package vault decrypts a user's custodial key material. Ciphertexts
// are produced at wallet setup and stored by an external credential
// store; this engine only ever reads them, and plaintext never outlives
// a single execution call.
package vault

import (
	"encoding/json"

	"github.com/pkg/errors"
)

// ErrInvalidCredentials covers every decrypt failure: auth tag
// mismatch, malformed ciphertext, malformed plaintext. All are fatal
// for the execution, never retried.
var ErrInvalidCredentials = errors.New("credentials not found or invalid")

// Credentials is the decrypted custodial key material for one user.
type Credentials struct {
	// SecretKey is the 64-byte Solana keypair (seed + public key).
	SecretKey []byte
	// Mnemonic is the BIP-39 phrase, empty for wallets created without
	// an EVM derivation.
	Mnemonic string
}

// Service is the credential vault.
type Service interface {
	// Decrypt recovers a user's key material. encryptedMnemonic may be
	// empty.
	Decrypt(userID, encryptedSecretKey, encryptedMnemonic string) (*Credentials, error)
	// Encrypt is the inverse of Decrypt for one ciphertext; wallet
	// bootstrap and tests use it.
	Encrypt(userID string, plaintext []byte) (string, error)
}

type service struct {
	serverSecret string
}

// NewService creates a vault bound to the server decryption secret.
//
//nolint:ireturn // Returning interface is intentional for dependency injection
func NewService(serverSecret string) (Service, error) {
	if serverSecret == "" {
		return nil, errors.New("server secret is not configured")
	}
	return &service{serverSecret: serverSecret}, nil
}

func (s *service) Decrypt(userID, encryptedSecretKey, encryptedMnemonic string) (*Credentials, error) {
	if encryptedSecretKey == "" {
		return nil, errors.Wrap(ErrInvalidCredentials, "missing secret key ciphertext")
	}

	keyPlain, err := decryptWithPassword(encryptedSecretKey, passwordFor(userID, s.serverSecret))
	if err != nil {
		return nil, errors.Wrap(ErrInvalidCredentials, err.Error())
	}

	secretKey, err := parseSecretKeyJSON(keyPlain)
	if err != nil {
		return nil, errors.Wrap(ErrInvalidCredentials, err.Error())
	}

	creds := &Credentials{SecretKey: secretKey}
	if encryptedMnemonic != "" {
		mnemonicPlain, err := decryptWithPassword(encryptedMnemonic, passwordFor(userID, s.serverSecret))
		if err != nil {
			return nil, errors.Wrap(ErrInvalidCredentials, err.Error())
		}
		creds.Mnemonic = string(mnemonicPlain)
	}
	return creds, nil
}

func (s *service) Encrypt(userID string, plaintext []byte) (string, error) {
	return encryptWithPassword(plaintext, passwordFor(userID, s.serverSecret))
}

func passwordFor(userID, serverSecret string) string {
	return userID + ":" + serverSecret
}

// parseSecretKeyJSON parses the Solana keypair plaintext, a JSON array
// of 64 byte values.
func parseSecretKeyJSON(plain []byte) ([]byte, error) {
	var arr []int
	if err := json.Unmarshal(plain, &arr); err != nil {
		return nil, errors.Wrap(err, "secret key is not a JSON array")
	}
	if len(arr) != 64 {
		return nil, errors.Errorf("secret key array has %d elements, want 64", len(arr))
	}
	out := make([]byte, 64)
	for i, v := range arr {
		if v < 0 || v > 255 {
			return nil, errors.Errorf("secret key element %d out of byte range", i)
		}
		out[i] = byte(v)
	}
	return out, nil
}

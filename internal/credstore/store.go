// Package credstore models the external credential store the engine
// reads encrypted key material from. The engine only needs Get; Put
// exists for wallet bootstrap and tests.
package credstore

import (
	"context"
	"sync"

	"github.com/pkg/errors"
)

var ErrNotFound = errors.New("credentials not found")

// EncryptedCredentials are the stored ciphertexts for one user.
type EncryptedCredentials struct {
	SecretKeyCiphertext string `json:"secretKeyCiphertext"`
	// MnemonicCiphertext is empty for wallets created without an EVM
	// derivation.
	MnemonicCiphertext string `json:"mnemonicCiphertext,omitempty"`
}

// Store is a key-value view of the credential store, keyed by user id.
type Store interface {
	Get(ctx context.Context, userID string) (*EncryptedCredentials, error)
	Put(ctx context.Context, userID string, creds *EncryptedCredentials) error
}

type memoryStore struct {
	mu    sync.RWMutex
	users map[string]EncryptedCredentials
}

// NewMemoryStore returns an in-process Store.
//
//nolint:ireturn // Returning interface is intentional for dependency injection
func NewMemoryStore() Store {
	return &memoryStore{users: make(map[string]EncryptedCredentials)}
}

func (s *memoryStore) Get(_ context.Context, userID string) (*EncryptedCredentials, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	creds, ok := s.users[userID]
	if !ok {
		return nil, errors.Wrapf(ErrNotFound, "user %s", userID)
	}
	out := creds
	return &out, nil
}

func (s *memoryStore) Put(_ context.Context, userID string, creds *EncryptedCredentials) error {
	if creds == nil || creds.SecretKeyCiphertext == "" {
		return errors.New("secret key ciphertext is required")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.users[userID] = *creds
	return nil
}

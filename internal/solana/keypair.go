package solana

import (
	"bytes"
	"crypto/ed25519"

	"github.com/mr-tron/base58"
	"github.com/pkg/errors"
)

var ErrInvalidKeypair = errors.New("invalid keypair")

// KeypairFromBytes interprets raw as a Solana keypair (32-byte seed
// followed by the 32-byte public key) and returns the ed25519 private
// key and its public key. The public half is checked against the seed.
func KeypairFromBytes(raw []byte) (ed25519.PrivateKey, Pubkey, error) {
	if len(raw) != ed25519.PrivateKeySize {
		return nil, Pubkey{}, errors.Wrapf(ErrInvalidKeypair, "got %d bytes, want %d", len(raw), ed25519.PrivateKeySize)
	}
	priv := ed25519.NewKeyFromSeed(raw[:ed25519.SeedSize])
	if !bytes.Equal(priv[ed25519.SeedSize:], raw[ed25519.SeedSize:]) {
		return nil, Pubkey{}, errors.Wrap(ErrInvalidKeypair, "public key does not match seed")
	}
	var pk Pubkey
	copy(pk[:], raw[ed25519.SeedSize:])
	return priv, pk, nil
}

// KeypairFromBase58 decodes a base58-encoded 64-byte keypair, the
// format funder keys are configured in.
func KeypairFromBase58(s string) (ed25519.PrivateKey, Pubkey, error) {
	raw, err := base58.Decode(s)
	if err != nil {
		return nil, Pubkey{}, errors.Wrap(ErrInvalidKeypair, err.Error())
	}
	return KeypairFromBytes(raw)
}

// PubkeyOf returns the public key of priv.
func PubkeyOf(priv ed25519.PrivateKey) Pubkey {
	var pk Pubkey
	copy(pk[:], priv[ed25519.SeedSize:])
	return pk
}

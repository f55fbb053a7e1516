package vault

import (
	"crypto/ecdsa"
	"crypto/sha512"
	"strconv"
	"strings"

	"github.com/ethereum/go-ethereum/crypto"
	"github.com/pkg/errors"
	"github.com/tyler-smith/go-bip32"
	"golang.org/x/crypto/pbkdf2"
)

// EVMDerivationPath is the fixed BIP44 path for the custodial EVM key.
// The key is derived on demand from the mnemonic and never stored.
const EVMDerivationPath = "m/44'/60'/0'/0/0"

const (
	// BIP39: seed = PBKDF2-SHA512(mnemonic, "mnemonic"+passphrase, 2048, 64).
	bip39Iterations = 2048
	bip39SeedSize   = 64

	hardenedOffset = 0x80000000
)

// DeriveEVMKey derives the secp256k1 private key at EVMDerivationPath
// from a BIP-39 mnemonic (empty passphrase).
func DeriveEVMKey(mnemonic string) (*ecdsa.PrivateKey, error) {
	mnemonic = strings.TrimSpace(mnemonic)
	if mnemonic == "" {
		return nil, errors.Wrap(ErrInvalidCredentials, "wallet has no mnemonic")
	}

	seed := pbkdf2.Key([]byte(mnemonic), []byte("mnemonic"), bip39Iterations, bip39SeedSize, sha512.New)

	masterKey, err := bip32.NewMasterKey(seed)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create master key")
	}

	indices, err := parseDerivationPath(EVMDerivationPath)
	if err != nil {
		return nil, err
	}

	key := masterKey
	for _, index := range indices {
		key, err = key.NewChildKey(index)
		if err != nil {
			return nil, errors.Wrapf(err, "failed to derive child key at index %d", index)
		}
	}

	privateKey, err := crypto.ToECDSA(key.Key)
	if err != nil {
		return nil, errors.Wrap(err, "derived key is not a valid secp256k1 key")
	}
	return privateKey, nil
}

// parseDerivationPath parses a BIP44 path like "m/44'/60'/0'/0/0" into
// child-key indices with the hardened bit applied.
func parseDerivationPath(path string) ([]uint32, error) {
	segments := strings.Split(path, "/")
	if len(segments) == 0 || segments[0] != "m" {
		return nil, errors.Errorf("invalid derivation path: %s", path)
	}

	indices := make([]uint32, 0, len(segments)-1)
	for _, seg := range segments[1:] {
		hardened := strings.HasSuffix(seg, "'")
		seg = strings.TrimSuffix(seg, "'")
		index, err := strconv.ParseUint(seg, 10, 32)
		if err != nil {
			return nil, errors.Errorf("invalid derivation path segment: %s", seg)
		}
		if hardened {
			index += hardenedOffset
		}
		indices = append(indices, uint32(index))
	}
	return indices, nil
}

// Package solana implements the subset of the Solana wire format the
// route executor needs: v0 and legacy message compilation with address
// lookup tables, transaction signing, wire parsing for pre-serialized
// route steps, and the system-transfer instruction used for funding.
package solana

import (
	"encoding/hex"
	"strings"

	"github.com/mr-tron/base58"
	"github.com/pkg/errors"
)

// Pubkey is a 32-byte ed25519 public key / account address.
type Pubkey [32]byte

var ErrInvalidPubkey = errors.New("invalid pubkey")

// ParsePubkey parses a base58 address. A 64-char hex form is accepted
// too; some solver backends emit program ids that way.
func ParsePubkey(s string) (Pubkey, error) {
	var out Pubkey
	s = strings.TrimSpace(s)

	if strings.HasPrefix(s, "0x") || len(s) == 64 {
		b, err := hex.DecodeString(strings.TrimPrefix(s, "0x"))
		if err == nil && len(b) == 32 {
			copy(out[:], b)
			return out, nil
		}
	}

	b, err := base58.Decode(s)
	if err != nil || len(b) != 32 {
		return out, errors.Wrapf(ErrInvalidPubkey, "%q", s)
	}
	copy(out[:], b)
	return out, nil
}

func MustParsePubkey(s string) Pubkey {
	pk, err := ParsePubkey(s)
	if err != nil {
		panic(err)
	}
	return pk
}

func (k Pubkey) Base58() string { return base58.Encode(k[:]) }

func (k Pubkey) String() string { return k.Base58() }

// ParseHash parses a base58-encoded 32-byte hash (e.g. a blockhash).
func ParseHash(s string) ([32]byte, error) {
	pk, err := ParsePubkey(s)
	if err != nil {
		return [32]byte{}, errors.Wrap(err, "invalid hash")
	}
	return [32]byte(pk), nil
}

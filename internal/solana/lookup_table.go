package solana

import (
	"encoding/binary"

	"github.com/pkg/errors"
)

var ErrInvalidLookupTable = errors.New("invalid address lookup table account")

// lookupTableMetaSize is the fixed prefix of an ALT account:
//
//	u32  discriminator (1)
//	u64  deactivation_slot
//	u64  last_extended_slot
//	u8   last_extended_slot_start_index
//	u8   has_authority
//	[32] authority (all-zero when absent)
//	[2]  padding
const lookupTableMetaSize = 56

// ParseLookupTableAddresses extracts the address list from a raw
// address-lookup-table account's data.
func ParseLookupTableAddresses(data []byte) ([]Pubkey, error) {
	if len(data) < lookupTableMetaSize {
		return nil, errors.Wrap(ErrInvalidLookupTable, "account data too short")
	}
	if binary.LittleEndian.Uint32(data[0:4]) != 1 {
		return nil, errors.Wrap(ErrInvalidLookupTable, "bad discriminator")
	}
	body := data[lookupTableMetaSize:]
	if len(body)%32 != 0 {
		return nil, errors.Wrap(ErrInvalidLookupTable, "address section not 32-byte aligned")
	}

	out := make([]Pubkey, 0, len(body)/32)
	for off := 0; off < len(body); off += 32 {
		var pk Pubkey
		copy(pk[:], body[off:off+32])
		out = append(out, pk)
	}
	return out, nil
}

package solana

import (
	"crypto/ed25519"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResignRestoresSignature(t *testing.T) {
	priv, payer := testKeypair(t, 7)
	program := fixedPubkey(0x10)

	signed, err := BuildV0Transaction([32]byte{0x05}, payer, map[Pubkey]ed25519.PrivateKey{payer: priv},
		[]Instruction{swapInstruction(program)}, nil)
	require.NoError(t, err)

	// Simulate what the routing service hands out: the same wire bytes
	// with a zeroed signature slot.
	unsigned := make([]byte, len(signed))
	copy(unsigned, signed)
	for i := 1; i < 65; i++ {
		unsigned[i] = 0
	}
	require.NotEqual(t, signed, unsigned)

	resigned, err := Resign(unsigned, priv)
	require.NoError(t, err)
	assert.Equal(t, signed, resigned)
}

func TestResignRejectsForeignKey(t *testing.T) {
	priv, payer := testKeypair(t, 7)
	other, _ := testKeypair(t, 8)
	program := fixedPubkey(0x10)

	tx, err := BuildV0Transaction([32]byte{}, payer, map[Pubkey]ed25519.PrivateKey{payer: priv},
		[]Instruction{swapInstruction(program)}, nil)
	require.NoError(t, err)

	_, err = Resign(tx, other)
	assert.ErrorIs(t, err, ErrSignerNotInSignature)
}

func TestMessageSignersLegacyAndV0(t *testing.T) {
	priv, payer := testKeypair(t, 3)
	program := fixedPubkey(0x11)
	keys := map[Pubkey]ed25519.PrivateKey{payer: priv}

	for _, build := range []func() ([]byte, error){
		func() ([]byte, error) {
			return BuildLegacyTransaction([32]byte{}, payer, keys, []Instruction{swapInstruction(program)})
		},
		func() ([]byte, error) {
			return BuildV0Transaction([32]byte{}, payer, keys, []Instruction{swapInstruction(program)}, nil)
		},
	} {
		tx, err := build()
		require.NoError(t, err)

		sigCount, msg, err := SplitTransaction(tx)
		require.NoError(t, err)
		assert.Equal(t, 1, sigCount)

		signers, err := MessageSigners(msg)
		require.NoError(t, err)
		assert.Equal(t, []Pubkey{payer}, signers)
	}
}

func TestSplitTransactionRejectsGarbage(t *testing.T) {
	_, _, err := SplitTransaction(nil)
	assert.Error(t, err)

	// Claims 5 signatures but carries none.
	_, _, err = SplitTransaction([]byte{0x05, 0x01})
	assert.Error(t, err)
}

func TestParseLookupTableAddresses(t *testing.T) {
	a := fixedPubkey(0x41)
	b := fixedPubkey(0x42)

	data := make([]byte, lookupTableMetaSize, lookupTableMetaSize+64)
	data[0] = 1 // discriminator, little endian u32
	data = append(data, a[:]...)
	data = append(data, b[:]...)

	addrs, err := ParseLookupTableAddresses(data)
	require.NoError(t, err)
	assert.Equal(t, []Pubkey{a, b}, addrs)

	_, err = ParseLookupTableAddresses(data[:40])
	assert.ErrorIs(t, err, ErrInvalidLookupTable)

	bad := make([]byte, lookupTableMetaSize)
	bad[0] = 9
	_, err = ParseLookupTableAddresses(bad)
	assert.ErrorIs(t, err, ErrInvalidLookupTable)

	_, err = ParseLookupTableAddresses(append(data, 0x01))
	assert.ErrorIs(t, err, ErrInvalidLookupTable)
}

func TestKeypairFromBytes(t *testing.T) {
	priv, pub := testKeypair(t, 9)

	recovered, pk, err := KeypairFromBytes(priv)
	require.NoError(t, err)
	assert.Equal(t, priv, recovered)
	assert.Equal(t, pub, pk)

	_, _, err = KeypairFromBytes(priv[:40])
	assert.ErrorIs(t, err, ErrInvalidKeypair)

	corrupt := make([]byte, len(priv))
	copy(corrupt, priv)
	corrupt[63] ^= 0xff
	_, _, err = KeypairFromBytes(corrupt)
	assert.ErrorIs(t, err, ErrInvalidKeypair)
}

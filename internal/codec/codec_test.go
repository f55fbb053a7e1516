package codec_test

import (
	"encoding/base64"
	"encoding/hex"
	"math/rand"
	"testing"

	"github.com/mr-tron/base58"
	"github.com/pkg/errors"
	"github.com/routeforge/swap-executor/internal/codec"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func randomBytes(t *testing.T, rng *rand.Rand, n int) []byte {
	t.Helper()
	b := make([]byte, n)
	_, err := rng.Read(b)
	require.NoError(t, err)
	return b
}

func TestDecodeHexRoundTrip(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	for _, n := range []int{1, 8, 100, 2048} {
		b := randomBytes(t, rng, n)

		decoded, err := codec.Decode(hex.EncodeToString(b))
		require.NoError(t, err)
		assert.Equal(t, b, decoded)

		decoded, err = codec.Decode("0x" + hex.EncodeToString(b))
		require.NoError(t, err)
		assert.Equal(t, b, decoded)
	}
}

func TestDecodeBase64RoundTrip(t *testing.T) {
	// Buffers chosen so the base64 form contains characters outside the
	// hex alphabet; a pure-hex base64 string would legitimately decode
	// as hex first, since hex is the dominant backend's encoding.
	inputs := [][]byte{
		{0xfb, 0xef, 0xbe},             // "++++"-adjacent
		{0xff, 0xff, 0xff, 0xff},       // "/////w==" style
		[]byte("swap instruction data"), // mixed-case output
	}
	for _, b := range inputs {
		enc := base64.StdEncoding.EncodeToString(b)
		decoded, err := codec.Decode(enc)
		require.NoError(t, err, "input %q", enc)
		assert.Equal(t, b, decoded)
	}
}

func TestDecodeBase64Lenient(t *testing.T) {
	b := []byte{0xfb, 0xef, 0xbe, 0x01, 0x02}
	enc := base64.StdEncoding.EncodeToString(b) // "++++AQI=" style, len%4==0

	// Mangle padding into a form the strict alphabet check rejects.
	mangled := enc[:len(enc)-1] + "." // invalid char, same length
	_, err := codec.Decode(mangled)
	assert.Error(t, err)

	decoded, err := codec.Decode(enc)
	require.NoError(t, err)
	assert.Equal(t, b, decoded)
}

func TestDecodeBase58RoundTrip(t *testing.T) {
	rng := rand.New(rand.NewSource(2))
	for _, n := range []int{3, 32, 64, 500} {
		b := randomBytes(t, rng, n)
		// Guarantee a non-hex, non-base64-length encodable buffer is not
		// required: base58 output length is never a multiple of 4 for
		// these sizes with leading 0xff, and contains non-hex letters.
		b[0] = 0xff

		enc := base58.Encode(b)
		if len(enc)%2 == 0 && isHex(enc) {
			// Astronomically unlikely; skip rather than flake.
			continue
		}
		decoded, err := codec.Decode(enc)
		require.NoError(t, err, "input %q", enc)
		assert.Equal(t, b, decoded)
	}
}

func isHex(s string) bool {
	for _, r := range s {
		switch {
		case r >= '0' && r <= '9', r >= 'a' && r <= 'f', r >= 'A' && r <= 'F':
		default:
			return false
		}
	}
	return true
}

func TestDecodeRejectsUndecodable(t *testing.T) {
	for _, in := range []string{"", "zz", "!!", "0x", "0xzz", "===="} {
		_, err := codec.Decode(in)
		require.Error(t, err, "input %q", in)
		assert.True(t, errors.Is(err, codec.ErrDecode), "input %q", in)
	}
}

func TestDecodeEnforcesSizeCap(t *testing.T) {
	rng := rand.New(rand.NewSource(3))
	big := randomBytes(t, rng, codec.MaxInstructionDataSize+1)

	for _, enc := range []string{
		hex.EncodeToString(big),
		base64.StdEncoding.EncodeToString(big),
		base58.Encode(big),
	} {
		_, err := codec.Decode(enc)
		require.Error(t, err)
		assert.True(t, errors.Is(err, codec.ErrDecode))
	}

	atCap := randomBytes(t, rng, codec.MaxInstructionDataSize)
	decoded, err := codec.Decode(hex.EncodeToString(atCap))
	require.NoError(t, err)
	assert.Len(t, decoded, codec.MaxInstructionDataSize)
}

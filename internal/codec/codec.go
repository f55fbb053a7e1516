// Package codec decodes the opaque instruction-data strings carried by
// route steps. The routing service does not declare an encoding, and the
// solver backends behind it disagree on one, so decoding is an explicit
// ordered list of (sniff, decode) candidates tried in sequence. Hex is
// first because it is the dominant backend's encoding; base58 is the
// last resort. This is a heuristic by construction, not a smart decoder.
package codec

import (
	"encoding/base64"
	"encoding/hex"
	"regexp"
	"strings"

	"github.com/mr-tron/base58"
	"github.com/pkg/errors"
)

// MaxInstructionDataSize caps the decoded size of a single instruction's
// data. Oversized or undecodable data is a fatal decode error, never a
// retryable one.
const MaxInstructionDataSize = 2048

// ErrDecode is returned when no candidate yields a plausible byte buffer.
var ErrDecode = errors.New("instruction data matches no supported encoding")

var (
	hexPattern          = regexp.MustCompile(`^[0-9a-fA-F]+$`)
	base64StrictPattern = regexp.MustCompile(`^[A-Za-z0-9+/]+={0,2}$`)
	base58Pattern       = regexp.MustCompile(`^[1-9A-HJ-NP-Za-km-z]+$`)
)

// base58MinLength guards the last-resort candidate against trivially
// short strings: one- and two-character inputs are ambiguous across all
// alphabets and are never produced for real instruction data. As a
// consequence, Decode round-trips base58 only for buffers whose
// encoding is at least this long (any payload of 3+ bytes qualifies);
// 1-2 byte buffers must arrive hex- or base64-encoded.
const base58MinLength = 3

type candidate struct {
	name   string
	sniff  func(s string) bool
	decode func(s string) ([]byte, error)
}

var candidates = []candidate{
	{
		name: "hex",
		sniff: func(s string) bool {
			s = strings.TrimPrefix(s, "0x")
			return s != "" && len(s)%2 == 0 && hexPattern.MatchString(s)
		},
		decode: func(s string) ([]byte, error) {
			return hex.DecodeString(strings.TrimPrefix(s, "0x"))
		},
	},
	{
		name: "base64",
		sniff: func(s string) bool {
			return s != "" && len(s)%4 == 0 && base64StrictPattern.MatchString(s)
		},
		decode: func(s string) ([]byte, error) {
			return base64.StdEncoding.DecodeString(s)
		},
	},
	{
		// Second base64 pass tolerating padding quirks the strict
		// check rejects (stray padding, missing final '=').
		name: "base64-lenient",
		sniff: func(s string) bool {
			return s != "" && len(s)%4 == 0
		},
		decode: func(s string) ([]byte, error) {
			if b, err := base64.StdEncoding.DecodeString(s); err == nil {
				return b, nil
			}
			return base64.RawStdEncoding.DecodeString(strings.TrimRight(s, "="))
		},
	},
	{
		name: "base58",
		sniff: func(s string) bool {
			return len(s) >= base58MinLength && base58Pattern.MatchString(s)
		},
		decode: func(s string) ([]byte, error) {
			return base58.Decode(s)
		},
	},
}

// Decode sniffs the encoding of raw and returns the decoded bytes. A
// candidate is accepted only when its decoded length is positive and
// within MaxInstructionDataSize; otherwise the next candidate is tried.
func Decode(raw string) ([]byte, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, errors.Wrap(ErrDecode, "empty input")
	}

	for _, c := range candidates {
		if !c.sniff(raw) {
			continue
		}
		decoded, err := c.decode(raw)
		if err != nil || len(decoded) == 0 || len(decoded) > MaxInstructionDataSize {
			continue
		}
		return decoded, nil
	}

	return nil, errors.Wrapf(ErrDecode, "input length %d", len(raw))
}

package solana

import "github.com/pkg/errors"

// appendShortVecLen appends a compact-u16 length in Solana's shortvec
// encoding (7 data bits per byte, high bit marks continuation).
func appendShortVecLen(dst []byte, n int) []byte {
	if n < 0 {
		panic("appendShortVecLen: negative length")
	}
	v := uint64(n)
	for {
		b := byte(v & 0x7f)
		v >>= 7
		if v == 0 {
			return append(dst, b)
		}
		dst = append(dst, b|0x80)
	}
}

// readShortVecLen decodes a shortvec length at off and returns the
// value and the offset just past it.
func readShortVecLen(b []byte, off int) (int, int, error) {
	var out uint64
	var shift uint
	for i := 0; ; i++ {
		if off+i >= len(b) {
			return 0, off, errors.New("shortvec: truncated")
		}
		cur := b[off+i]
		out |= uint64(cur&0x7f) << shift
		if cur&0x80 == 0 {
			if out > uint64(^uint(0)>>1) {
				return 0, off, errors.New("shortvec: length overflows int")
			}
			return int(out), off + i + 1, nil
		}
		shift += 7
		if shift > 28 {
			return 0, off, errors.New("shortvec: too long")
		}
	}
}

package solana

import (
	"crypto/ed25519"

	"github.com/pkg/errors"
)

var ErrInvalidTransaction = errors.New("invalid transaction wire format")

// SplitTransaction separates a serialized transaction into its
// signature section and message bytes.
func SplitTransaction(tx []byte) (sigCount int, msg []byte, err error) {
	if len(tx) == 0 {
		return 0, nil, errors.Wrap(ErrInvalidTransaction, "empty")
	}
	sigCount, off, err := readShortVecLen(tx, 0)
	if err != nil {
		return 0, nil, errors.Wrap(ErrInvalidTransaction, err.Error())
	}
	sigBytes := sigCount * ed25519.SignatureSize
	if sigCount < 0 || off+sigBytes > len(tx) {
		return 0, nil, errors.Wrap(ErrInvalidTransaction, "signature section truncated")
	}
	return sigCount, tx[off+sigBytes:], nil
}

// MessageSigners returns the required signer keys of a serialized
// message, legacy or v0.
func MessageSigners(msg []byte) ([]Pubkey, error) {
	off := 0
	if len(msg) > 0 && msg[0]&0x80 != 0 {
		if msg[0]&0x7f != 0 {
			return nil, errors.Wrapf(ErrInvalidTransaction, "unsupported message version %d", msg[0]&0x7f)
		}
		off = 1
	}
	if off+3 > len(msg) {
		return nil, errors.Wrap(ErrInvalidTransaction, "message header truncated")
	}
	numRequired := int(msg[off])
	off += 3

	nKeys, off, err := readShortVecLen(msg, off)
	if err != nil {
		return nil, errors.Wrap(ErrInvalidTransaction, err.Error())
	}
	if numRequired > nKeys || off+nKeys*32 > len(msg) {
		return nil, errors.Wrap(ErrInvalidTransaction, "account keys truncated")
	}

	signers := make([]Pubkey, numRequired)
	for i := 0; i < numRequired; i++ {
		copy(signers[i][:], msg[off+i*32:off+(i+1)*32])
	}
	return signers, nil
}

// Resign signs the message of a pre-serialized transaction with priv
// and writes the signature into the matching signer slot, returning a
// new transaction buffer. The routing service hands out unsigned (or
// placeholder-signed) transactions; this is how the custodial key takes
// ownership of them.
func Resign(tx []byte, priv ed25519.PrivateKey) ([]byte, error) {
	sigCount, msg, err := SplitTransaction(tx)
	if err != nil {
		return nil, err
	}
	signers, err := MessageSigners(msg)
	if err != nil {
		return nil, err
	}
	if len(signers) != sigCount {
		return nil, errors.Wrapf(ErrInvalidTransaction,
			"signature count %d does not match required signers %d", sigCount, len(signers))
	}

	self := PubkeyOf(priv)
	slot := -1
	for i, pk := range signers {
		if pk == self {
			slot = i
			break
		}
	}
	if slot < 0 {
		return nil, errors.Wrapf(ErrSignerNotInSignature, "%s", self)
	}

	out := make([]byte, len(tx))
	copy(out, tx)
	sig := ed25519.Sign(priv, msg)

	// Signature section starts right after the shortvec count.
	_, off, err := readShortVecLen(out, 0)
	if err != nil {
		return nil, errors.Wrap(ErrInvalidTransaction, err.Error())
	}
	copy(out[off+slot*ed25519.SignatureSize:], sig)
	return out, nil
}

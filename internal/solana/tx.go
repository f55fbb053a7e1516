package solana

import (
	"crypto/ed25519"

	"github.com/pkg/errors"
)

// MaxTransactionSize is the network packet limit for a serialized
// transaction. Anything larger is rejected before submission.
const MaxTransactionSize = 1232

var (
	ErrMissingSigner        = errors.New("missing signer for required signature")
	ErrTransactionTooLarge  = errors.New("serialized transaction exceeds packet limit")
	ErrSignerNotInSignature = errors.New("key is not a required signer of this transaction")
)

// AssembleTransaction signs msg with every required signer, in message
// order, and prepends the signature section.
func AssembleTransaction(msg []byte, signers []Pubkey, keys map[Pubkey]ed25519.PrivateKey) ([]byte, error) {
	sigs := make([]byte, 0, len(signers)*ed25519.SignatureSize)
	for _, pk := range signers {
		priv, ok := keys[pk]
		if !ok {
			return nil, errors.Wrapf(ErrMissingSigner, "%s", pk)
		}
		sigs = append(sigs, ed25519.Sign(priv, msg)...)
	}

	out := make([]byte, 0, 1+len(sigs)+len(msg))
	out = appendShortVecLen(out, len(signers))
	out = append(out, sigs...)
	out = append(out, msg...)
	return out, nil
}

// BuildV0Transaction compiles, signs and size-checks a v0 transaction.
func BuildV0Transaction(
	recentBlockhash [32]byte,
	feePayer Pubkey,
	keys map[Pubkey]ed25519.PrivateKey,
	instructions []Instruction,
	tables []LookupTable,
) ([]byte, error) {
	msg, signers, err := CompileV0Message(recentBlockhash, feePayer, instructions, tables)
	if err != nil {
		return nil, err
	}
	tx, err := AssembleTransaction(msg, signers, keys)
	if err != nil {
		return nil, err
	}
	if len(tx) > MaxTransactionSize {
		return nil, errors.Wrapf(ErrTransactionTooLarge, "%d bytes", len(tx))
	}
	return tx, nil
}

// BuildLegacyTransaction compiles and signs a legacy transaction. Used
// for funder transfers, which never need lookup tables.
func BuildLegacyTransaction(
	recentBlockhash [32]byte,
	feePayer Pubkey,
	keys map[Pubkey]ed25519.PrivateKey,
	instructions []Instruction,
) ([]byte, error) {
	msg, signers, err := CompileLegacyMessage(recentBlockhash, feePayer, instructions)
	if err != nil {
		return nil, err
	}
	tx, err := AssembleTransaction(msg, signers, keys)
	if err != nil {
		return nil, err
	}
	if len(tx) > MaxTransactionSize {
		return nil, errors.Wrapf(ErrTransactionTooLarge, "%d bytes", len(tx))
	}
	return tx, nil
}

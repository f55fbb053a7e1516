package txerr_test

import (
	"testing"

	"github.com/pkg/errors"
	"github.com/routeforge/swap-executor/internal/txerr"
	"github.com/stretchr/testify/assert"
)

func TestClassifySolanaFunds(t *testing.T) {
	cases := []struct {
		name    string
		message string
		logs    []string
	}{
		{"program error hex", "Transaction simulation failed: Error processing Instruction 2: custom program error: 0x1788", nil},
		{"program error decimal", "custom program error: 6024", nil},
		{"lamports in logs", "Transaction simulation failed", []string{"Program log: insufficient lamports 12000, need 85000"}},
		{"transfer in logs", "Transaction simulation failed", []string{"Transfer: insufficient lamports"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := txerr.ClassifySolana(errors.New("rpc error"), tc.message, tc.logs)
			assert.Equal(t, txerr.KindInsufficientFunds, err.Kind)
			assert.Equal(t, txerr.KindInsufficientFunds, txerr.KindOf(err))
		})
	}
}

func TestClassifySolanaEncoding(t *testing.T) {
	for _, msg := range []string{
		"encoding overruns Uint8Array",
		"Error processing Instruction 0: invalid instruction data",
		"InvalidInstructionData",
	} {
		err := txerr.ClassifySolana(nil, msg, nil)
		assert.Equal(t, txerr.KindEncoding, err.Kind, "message %q", msg)
	}
}

func TestEncodingWinsOverFunds(t *testing.T) {
	// A malformed instruction is fatal even if the logs also complain
	// about lamports; funding cannot fix the payload.
	err := txerr.ClassifySolana(nil, "invalid instruction data", []string{"insufficient lamports"})
	assert.Equal(t, txerr.KindEncoding, err.Kind)
}

func TestClassifySolanaOther(t *testing.T) {
	err := txerr.ClassifySolana(errors.New("rpc"), "Blockhash not found", nil)
	assert.Equal(t, txerr.KindOther, err.Kind)
}

func TestClassifyEVM(t *testing.T) {
	assert.Equal(t, txerr.KindInsufficientFunds,
		txerr.ClassifyEVM(errors.New("insufficient funds for gas * price + value")).Kind)
	assert.Equal(t, txerr.KindInsufficientFunds,
		txerr.ClassifyEVM(errors.New("code=INSUFFICIENT_FUNDS")).Kind)
	assert.Equal(t, txerr.KindOther,
		txerr.ClassifyEVM(errors.New("nonce too low")).Kind)
}

func TestKindOfPlainError(t *testing.T) {
	assert.Equal(t, txerr.KindOther, txerr.KindOf(errors.New("boom")))
	assert.Nil(t, txerr.LogsOf(errors.New("boom")))
}

func TestWrappedClassificationSurvives(t *testing.T) {
	inner := txerr.ClassifySolana(nil, "custom program error: 0x1788", nil)
	wrapped := errors.Wrap(inner, "submit step")
	assert.Equal(t, txerr.KindInsufficientFunds, txerr.KindOf(wrapped))
}

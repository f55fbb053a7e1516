package engine

import (
	"github.com/routeforge/swap-executor/internal/txerr"
)

// Status is the terminal outcome of one route-step execution.
type Status string

const (
	StatusSuccess Status = "success"
	StatusFailed  Status = "failed"
)

// User-safe failure messages, one per error tier. Provider error detail
// is logged, never returned to end users.
const (
	msgGenericFailure = "Transaction failed. Please try again."
	msgEncodingError  = "Transaction encoding error. Try again with different slippage or amount."
	msgInsufficientFunds = "Insufficient funds for swap and fees. " +
		"Ensure you have enough of the input token and SOL/native currency for transaction fees."
)

// ExecutionResult is the structured outcome of one route-step
// execution. No error ever crosses the engine boundary uncaught; every
// call path returns one of these.
type ExecutionResult struct {
	Status    Status `json:"status"`
	Signature string `json:"signature,omitempty"`
	Error     string `json:"error,omitempty"`
	// Attempts counts submission attempts, for observability.
	Attempts int `json:"attempts"`
}

func success(signature string, attempts int) *ExecutionResult {
	return &ExecutionResult{Status: StatusSuccess, Signature: signature, Attempts: attempts}
}

func failure(err error, attempts int) *ExecutionResult {
	msg := msgGenericFailure
	switch txerr.KindOf(err) {
	case txerr.KindEncoding:
		msg = msgEncodingError
	case txerr.KindInsufficientFunds:
		msg = msgInsufficientFunds
	}
	return &ExecutionResult{Status: StatusFailed, Error: msg, Attempts: attempts}
}

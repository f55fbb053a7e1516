// Package txerr defines the submission-failure taxonomy shared by the
// Solana and EVM paths. Every network failure funnels into one of three
// kinds; only KindInsufficientFunds is retryable (via funding), the
// rest are fatal for the execution.
package txerr

import (
	"fmt"
	"strings"

	"github.com/pkg/errors"
)

// Kind classifies a submission failure.
type Kind int

const (
	// KindOther is any failure with no special handling. Fatal.
	KindOther Kind = iota
	// KindInsufficientFunds means the wallet lacks native gas/fee
	// currency. The only retryable kind.
	KindInsufficientFunds
	// KindEncoding means the transaction or an instruction is malformed
	// at the program level. Always fatal; re-funding cannot fix it.
	KindEncoding
)

func (k Kind) String() string {
	switch k {
	case KindInsufficientFunds:
		return "insufficient_funds"
	case KindEncoding:
		return "encoding"
	default:
		return "other"
	}
}

// Error is a classified submission failure. Logs carry preflight
// simulation output when the RPC returned any.
type Error struct {
	Kind    Kind
	Message string
	Logs    []string
	cause   error
}

func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("submission failed (%s): %s", e.Kind, e.cause.Error())
	}
	return fmt.Sprintf("submission failed (%s): %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.cause }

// New builds a classified error without an underlying cause.
func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// KindOf extracts the classification from err; anything that is not a
// *txerr.Error counts as KindOther.
func KindOf(err error) Kind {
	var te *Error
	if errors.As(err, &te) {
		return te.Kind
	}
	return KindOther
}

// LogsOf returns the preflight logs attached to err, if any.
func LogsOf(err error) []string {
	var te *Error
	if errors.As(err, &te) {
		return te.Logs
	}
	return nil
}

// Solana swap programs surface a native-balance shortfall as custom
// program error 6024 (0x1788); the runtime phrases it differently.
var solanaFundsMarkers = []string{
	"custom program error: 0x1788",
	"custom program error: 6024",
	"insufficient lamports",
	"transfer: insufficient",
	"insufficient funds",
}

var solanaEncodingMarkers = []string{
	"encoding overruns",
	"invalid instruction data",
	"invalidinstructiondata",
}

// ClassifySolana wraps a Solana RPC submission failure. The message and
// preflight logs are both scanned, since the classification markers
// appear in either depending on the RPC provider.
func ClassifySolana(cause error, message string, logs []string) *Error {
	haystack := strings.ToLower(message)
	for _, l := range logs {
		haystack += "\n" + strings.ToLower(l)
	}

	kind := KindOther
	switch {
	case containsAny(haystack, solanaEncodingMarkers):
		kind = KindEncoding
	case containsAny(haystack, solanaFundsMarkers):
		kind = KindInsufficientFunds
	}

	return &Error{Kind: kind, Message: message, Logs: logs, cause: cause}
}

// ClassifyEVM wraps an EVM submission failure. Nodes report a gas
// shortfall either via the INSUFFICIENT_FUNDS code or a message
// containing "insufficient funds".
func ClassifyEVM(cause error) *Error {
	msg := ""
	if cause != nil {
		msg = cause.Error()
	}
	lower := strings.ToLower(msg)

	kind := KindOther
	if strings.Contains(lower, "insufficient funds") || strings.Contains(msg, "INSUFFICIENT_FUNDS") {
		kind = KindInsufficientFunds
	}
	return &Error{Kind: kind, Message: msg, cause: cause}
}

func containsAny(haystack string, needles []string) bool {
	for _, n := range needles {
		if strings.Contains(haystack, n) {
			return true
		}
	}
	return false
}

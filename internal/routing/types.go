// Package routing defines the route-step shapes received from the
// external liquidity-routing service and their typed, per-chain view.
// The engine trusts the routing service's chain ids and payloads; the
// only validation here is structural.
package routing

import (
	"github.com/pkg/errors"
)

// RawInstructionAccount is one account reference inside an opaque
// instruction.
type RawInstructionAccount struct {
	Address    string `json:"address"`
	IsSigner   bool   `json:"isSigner"`
	IsWritable bool   `json:"isWritable"`
}

// RawInstruction is one chain instruction as the routing service
// returns it. Data's encoding is undeclared and must be sniffed.
type RawInstruction struct {
	ProgramID string                  `json:"programId"`
	Accounts  []RawInstructionAccount `json:"accounts"`
	Data      string                  `json:"data"`
}

// SolanaPayload carries either a fully pre-serialized transaction or an
// instruction list plus lookup-table addresses — never both.
type SolanaPayload struct {
	SerializedTransaction string           `json:"serializedTransaction,omitempty"`
	Instructions          []RawInstruction `json:"instructions,omitempty"`
	LookupTables          []string         `json:"lookupTables,omitempty"`
}

// EVMPayload is the structured transaction record EVM steps always
// carry. Numeric fields are decimal strings; they are parsed into
// big.Int downstream, never floats.
type EVMPayload struct {
	From                 string `json:"from,omitempty"`
	To                   string `json:"to"`
	Data                 string `json:"data,omitempty"`
	Value                string `json:"value,omitempty"`
	Gas                  string `json:"gas,omitempty"`
	MaxFeePerGas         string `json:"maxFeePerGas,omitempty"`
	MaxPriorityFeePerGas string `json:"maxPriorityFeePerGas,omitempty"`
}

// RouteStep is one unit of execution from a multi-step route, as
// deserialized off the wire.
type RouteStep struct {
	ChainID int64          `json:"chainId"`
	Solana  *SolanaPayload `json:"solana,omitempty"`
	EVM     *EVMPayload    `json:"evm,omitempty"`
}

// ChainStep is the typed view of a route step. The dispatcher switches
// exhaustively over its two implementations, so adding a chain family
// is a compile-time exercise.
type ChainStep interface {
	chainStep()
}

// SolanaStep is a route step bound for the Solana network.
type SolanaStep struct {
	ChainID int64
	Payload SolanaPayload
}

// EVMStep is a route step bound for one of the EVM networks.
type EVMStep struct {
	ChainID int64
	Payload EVMPayload
}

func (SolanaStep) chainStep() {}
func (EVMStep) chainStep()    {}

var ErrInvalidStep = errors.New("invalid route step")

// ChainStep validates the step's structural invariants and returns the
// typed view. solanaChainID identifies which chain id is the Solana
// network; every other id is treated as EVM.
func (s *RouteStep) ChainStep(solanaChainID int64) (ChainStep, error) {
	if s == nil {
		return nil, errors.Wrap(ErrInvalidStep, "nil step")
	}

	if s.ChainID == solanaChainID {
		if s.Solana == nil {
			return nil, errors.Wrap(ErrInvalidStep, "solana step missing payload")
		}
		hasSerialized := s.Solana.SerializedTransaction != ""
		hasInstructions := len(s.Solana.Instructions) > 0
		if hasSerialized == hasInstructions {
			// Exactly one of the two forms must be present.
			return nil, errors.Wrap(ErrInvalidStep,
				"solana step must carry either a serialized transaction or an instruction list")
		}
		return SolanaStep{ChainID: s.ChainID, Payload: *s.Solana}, nil
	}

	if s.EVM == nil {
		return nil, errors.Wrap(ErrInvalidStep, "evm step missing payload")
	}
	if s.EVM.To == "" {
		return nil, errors.Wrap(ErrInvalidStep, "evm step missing to address")
	}
	return EVMStep{ChainID: s.ChainID, Payload: *s.EVM}, nil
}

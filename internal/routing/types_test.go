package routing_test

import (
	"encoding/json"
	"testing"

	"github.com/pkg/errors"
	"github.com/routeforge/swap-executor/internal/routing"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const solanaChainID int64 = 1151111081099710

func TestChainStepSolanaInstructions(t *testing.T) {
	step := &routing.RouteStep{
		ChainID: solanaChainID,
		Solana: &routing.SolanaPayload{
			Instructions: []routing.RawInstruction{{ProgramID: "11111111111111111111111111111111", Data: "0102"}},
			LookupTables: []string{"TokenkegQfeZyiNwAJbNbGKPFXCWuBvf9Ss623VQ5DA"},
		},
	}

	cs, err := step.ChainStep(solanaChainID)
	require.NoError(t, err)

	sol, ok := cs.(routing.SolanaStep)
	require.True(t, ok)
	assert.Len(t, sol.Payload.Instructions, 1)
}

func TestChainStepSolanaExactlyOneForm(t *testing.T) {
	both := &routing.RouteStep{
		ChainID: solanaChainID,
		Solana: &routing.SolanaPayload{
			SerializedTransaction: "AQAB",
			Instructions:          []routing.RawInstruction{{ProgramID: "x", Data: "01"}},
		},
	}
	_, err := both.ChainStep(solanaChainID)
	assert.True(t, errors.Is(err, routing.ErrInvalidStep))

	neither := &routing.RouteStep{ChainID: solanaChainID, Solana: &routing.SolanaPayload{}}
	_, err = neither.ChainStep(solanaChainID)
	assert.True(t, errors.Is(err, routing.ErrInvalidStep))

	missing := &routing.RouteStep{ChainID: solanaChainID}
	_, err = missing.ChainStep(solanaChainID)
	assert.True(t, errors.Is(err, routing.ErrInvalidStep))
}

func TestChainStepEVM(t *testing.T) {
	step := &routing.RouteStep{
		ChainID: 8453,
		EVM: &routing.EVMPayload{
			To:    "0x1111111111111111111111111111111111111111",
			Value: "1000000000000000",
			Gas:   "210000",
		},
	}

	cs, err := step.ChainStep(solanaChainID)
	require.NoError(t, err)

	evm, ok := cs.(routing.EVMStep)
	require.True(t, ok)
	assert.Equal(t, int64(8453), evm.ChainID)
	assert.Equal(t, "1000000000000000", evm.Payload.Value)
}

func TestChainStepEVMRequiresPayload(t *testing.T) {
	_, err := (&routing.RouteStep{ChainID: 56}).ChainStep(solanaChainID)
	assert.True(t, errors.Is(err, routing.ErrInvalidStep))

	_, err = (&routing.RouteStep{ChainID: 56, EVM: &routing.EVMPayload{}}).ChainStep(solanaChainID)
	assert.True(t, errors.Is(err, routing.ErrInvalidStep))
}

func TestRouteStepJSONShape(t *testing.T) {
	raw := `{
		"chainId": 56,
		"evm": {
			"from": "0x2222222222222222222222222222222222222222",
			"to": "0x1111111111111111111111111111111111111111",
			"data": "0xdeadbeef",
			"value": "5",
			"gas": "400000",
			"maxFeePerGas": "3000000000",
			"maxPriorityFeePerGas": "1000000000"
		}
	}`
	var step routing.RouteStep
	require.NoError(t, json.Unmarshal([]byte(raw), &step))
	require.NotNil(t, step.EVM)
	assert.Equal(t, "3000000000", step.EVM.MaxFeePerGas)
}

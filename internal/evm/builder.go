// Package evm builds, signs and submits native transactions on the
// configured EVM-compatible chains.
package evm

import (
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/pkg/errors"
	"github.com/routeforge/swap-executor/internal/routing"
)

const transferGasLimit uint64 = 21000

// parseBigInt parses a decimal or 0x-hex amount string. Gas and value
// arithmetic stays in big.Int end to end; floats would round real token
// amounts.
func parseBigInt(field, raw string) (*big.Int, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return big.NewInt(0), nil
	}
	base := 10
	if strings.HasPrefix(raw, "0x") || strings.HasPrefix(raw, "0X") {
		raw = raw[2:]
		base = 16
	}
	v, ok := new(big.Int).SetString(raw, base)
	if !ok {
		return nil, errors.Errorf("invalid %s amount %q", field, raw)
	}
	return v, nil
}

func parseGasLimit(raw string) (uint64, error) {
	v, err := parseBigInt("gas", raw)
	if err != nil {
		return 0, err
	}
	if v.Sign() == 0 {
		return transferGasLimit, nil
	}
	if !v.IsUint64() {
		return 0, errors.Errorf("gas limit %s out of range", v)
	}
	return v.Uint64(), nil
}

func parseData(raw string) ([]byte, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	data, err := hexutil.Decode(ensureHexPrefix(raw))
	if err != nil {
		return nil, errors.Wrap(err, "invalid calldata")
	}
	return data, nil
}

func ensureHexPrefix(s string) string {
	if strings.HasPrefix(s, "0x") || strings.HasPrefix(s, "0X") {
		return s
	}
	return "0x" + s
}

// BuildTransaction maps a route step's structured record into a chain
// transaction. When the step carries EIP-1559 fee fields it becomes a
// dynamic-fee transaction; otherwise gasPrice (supplied by the caller
// from the node's suggestion) selects the legacy form.
func BuildTransaction(p *routing.EVMPayload, chainID int64, nonce uint64, gasPrice *big.Int) (*types.Transaction, error) {
	if p == nil || p.To == "" {
		return nil, errors.New("evm payload missing to address")
	}
	if !common.IsHexAddress(p.To) {
		return nil, errors.Errorf("invalid to address %q", p.To)
	}
	to := common.HexToAddress(p.To)

	value, err := parseBigInt("value", p.Value)
	if err != nil {
		return nil, err
	}
	gasLimit, err := parseGasLimit(p.Gas)
	if err != nil {
		return nil, err
	}
	data, err := parseData(p.Data)
	if err != nil {
		return nil, err
	}

	if p.MaxFeePerGas != "" {
		maxFee, err := parseBigInt("maxFeePerGas", p.MaxFeePerGas)
		if err != nil {
			return nil, err
		}
		tip, err := parseBigInt("maxPriorityFeePerGas", p.MaxPriorityFeePerGas)
		if err != nil {
			return nil, err
		}
		return types.NewTx(&types.DynamicFeeTx{
			ChainID:   big.NewInt(chainID),
			Nonce:     nonce,
			GasTipCap: tip,
			GasFeeCap: maxFee,
			Gas:       gasLimit,
			To:        &to,
			Value:     value,
			Data:      data,
		}), nil
	}

	if gasPrice == nil || gasPrice.Sign() <= 0 {
		return nil, errors.New("gas price required for legacy transaction")
	}
	return types.NewTx(&types.LegacyTx{
		Nonce:    nonce,
		GasPrice: gasPrice,
		Gas:      gasLimit,
		To:       &to,
		Value:    value,
		Data:     data,
	}), nil
}

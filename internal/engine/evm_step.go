package engine

import (
	"context"

	gethcrypto "github.com/ethereum/go-ethereum/crypto"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/routeforge/swap-executor/internal/routing"
	"github.com/routeforge/swap-executor/internal/vault"
)

func (s *service) executeEVMStep(
	ctx context.Context,
	logger zerolog.Logger,
	credentials *vault.Credentials,
	chainID int64,
	payload routing.EVMPayload,
) *ExecutionResult {
	backend, ok := s.evms[chainID]
	if !ok {
		logger.Warn().Msg("Step targets an unsupported chain")
		return failure(errors.Errorf("unsupported chain %d", chainID), 0)
	}

	if credentials.Mnemonic == "" {
		return failure(errors.New("wallet has no evm key material"), 0)
	}
	key, err := vault.DeriveEVMKey(credentials.Mnemonic)
	if err != nil {
		logger.Warn().Err(err).Msg("Failed to derive evm key from mnemonic")
		return failure(err, 0)
	}
	walletAddr := gethcrypto.PubkeyToAddress(key.PublicKey)

	submit := func(ctx context.Context, _ int) (string, error) {
		submissionsTotal.WithLabelValues(evmChainLabel(chainID)).Inc()
		// The same structured request is rebuilt and resubmitted each
		// attempt; the backend refreshes nonce and gas pricing.
		return backend.SendTransaction(ctx, &payload, key)
	}
	fund := func(ctx context.Context) error {
		return s.fundEVM(ctx, logger, backend, walletAddr)
	}

	signature, attempts, err := s.retry.run(ctx, logger, submit, fund)
	if err != nil {
		return failure(err, attempts)
	}
	return success(signature, attempts)
}

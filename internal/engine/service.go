// Package engine executes single route steps: it decrypts the user's
// custodial keys, builds and signs the chain transaction, submits it,
// and runs the bounded funding-retry loop on insufficient-native-funds
// failures.
package engine

import (
	"context"
	"crypto/ecdsa"
	"math/big"
	"strconv"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	gethcrypto "github.com/ethereum/go-ethereum/crypto"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/routeforge/swap-executor/internal/config"
	"github.com/routeforge/swap-executor/internal/credstore"
	"github.com/routeforge/swap-executor/internal/routing"
	"github.com/routeforge/swap-executor/internal/solana"
	"github.com/routeforge/swap-executor/internal/vault"
)

const chainLabelSolana = "solana"

// SolanaBackend is the Solana network surface the engine needs.
// *solanarpc.Client implements it; tests substitute fakes.
type SolanaBackend interface {
	LatestBlockhash(ctx context.Context) ([32]byte, error)
	FeeForMessage(ctx context.Context, msg []byte) (uint64, error)
	SendTransaction(ctx context.Context, tx []byte) (string, error)
	ConfirmTransaction(ctx context.Context, signature string) error
	Balance(ctx context.Context, address string) (uint64, error)
	ResolveLookupTables(ctx context.Context, addresses []string) ([]solana.LookupTable, error)
}

// EVMBackend is the per-chain EVM network surface. *evm.Client
// implements it.
type EVMBackend interface {
	ChainID() int64
	SendTransaction(ctx context.Context, payload *routing.EVMPayload, key *ecdsa.PrivateKey) (string, error)
	Transfer(ctx context.Context, key *ecdsa.PrivateKey, recipient common.Address, amountWei *big.Int) (string, error)
	Balance(ctx context.Context, addr common.Address) (*big.Int, error)
}

// EVMBalance is one chain's native balance of a custodial wallet.
type EVMBalance struct {
	ChainID int64  `json:"chainId"`
	Wei     string `json:"wei"`
}

// NativeBalances reports a user's native-currency balances across all
// configured chains.
type NativeBalances struct {
	SolanaAddress  string       `json:"solanaAddress"`
	SolanaLamports uint64       `json:"solanaLamports"`
	EVMAddress     string       `json:"evmAddress,omitempty"`
	EVMBalances    []EVMBalance `json:"evmBalances,omitempty"`
}

// Service executes route steps for custodial wallets.
type Service interface {
	// ExecuteStep runs one step end to end. It never returns an error;
	// every failure is folded into the result with a user-safe message.
	ExecuteStep(ctx context.Context, userID string, step *routing.RouteStep) *ExecutionResult
	// NativeBalances reports the user's gas-currency balances.
	NativeBalances(ctx context.Context, userID string) (*NativeBalances, error)
}

type service struct {
	cfg    config.Server
	vault  vault.Service
	creds  credstore.Store
	solana SolanaBackend
	evms   map[int64]EVMBackend
	funder *funder
	retry  retryController
}

// NewService wires the engine. evmBackends carries one backend per
// configured chain.
//
//nolint:ireturn // Returning interface is intentional for dependency injection
func NewService(
	cfg config.Server,
	vaultService vault.Service,
	credentials credstore.Store,
	solanaBackend SolanaBackend,
	evmBackends []EVMBackend,
) (Service, error) {
	f, err := newFunder(cfg)
	if err != nil {
		return nil, err
	}

	evms := make(map[int64]EVMBackend, len(evmBackends))
	for _, b := range evmBackends {
		evms[b.ChainID()] = b
	}

	return &service{
		cfg:    cfg,
		vault:  vaultService,
		creds:  credentials,
		solana: solanaBackend,
		evms:   evms,
		funder: f,
		retry: retryController{
			maxAttempts: cfg.Retry.MaxFundingAttempts,
			settleDelay: cfg.Retry.SettleDelay,
		},
	}, nil
}

func (s *service) ExecuteStep(ctx context.Context, userID string, step *routing.RouteStep) *ExecutionResult {
	executionID := uuid.New().String()
	logger := log.With().
		Str("executionId", executionID).
		Str("userId", userID).
		Int64("chainId", stepChainID(step)).
		Logger()

	result := s.executeStep(ctx, logger, userID, step)

	executionsTotal.WithLabelValues(string(result.Status)).Inc()
	if result.Status == StatusSuccess {
		logger.Info().Str("signature", result.Signature).Int("attempts", result.Attempts).Msg("Route step executed")
	} else {
		logger.Warn().Int("attempts", result.Attempts).Msg("Route step failed")
	}
	return result
}

func (s *service) executeStep(ctx context.Context, logger zerolog.Logger, userID string, step *routing.RouteStep) *ExecutionResult {
	chainStep, err := step.ChainStep(s.cfg.Solana.ChainID)
	if err != nil {
		logger.Warn().Err(err).Msg("Rejecting malformed route step")
		return failure(err, 0)
	}

	encrypted, err := s.creds.Get(ctx, userID)
	if err != nil {
		logger.Warn().Err(err).Msg("No stored credentials for user")
		return failure(err, 0)
	}

	// Decrypt once per execution; plaintext key material stays on this
	// call's stack and is never cached.
	credentials, err := s.vault.Decrypt(userID, encrypted.SecretKeyCiphertext, encrypted.MnemonicCiphertext)
	if err != nil {
		logger.Warn().Err(err).Msg("Failed to decrypt credentials")
		return failure(err, 0)
	}

	switch cs := chainStep.(type) {
	case routing.SolanaStep:
		return s.executeSolanaStep(ctx, logger, credentials, cs.Payload)
	case routing.EVMStep:
		return s.executeEVMStep(ctx, logger, credentials, cs.ChainID, cs.Payload)
	default:
		return failure(errors.Wrap(routing.ErrInvalidStep, "unknown chain family"), 0)
	}
}

func (s *service) NativeBalances(ctx context.Context, userID string) (*NativeBalances, error) {
	encrypted, err := s.creds.Get(ctx, userID)
	if err != nil {
		return nil, err
	}
	credentials, err := s.vault.Decrypt(userID, encrypted.SecretKeyCiphertext, encrypted.MnemonicCiphertext)
	if err != nil {
		return nil, err
	}

	_, pub, err := solana.KeypairFromBytes(credentials.SecretKey)
	if err != nil {
		return nil, err
	}
	lamports, err := s.solana.Balance(ctx, pub.Base58())
	if err != nil {
		return nil, errors.Wrap(err, "failed to fetch solana balance")
	}

	out := &NativeBalances{
		SolanaAddress:  pub.Base58(),
		SolanaLamports: lamports,
	}

	if credentials.Mnemonic != "" {
		key, err := vault.DeriveEVMKey(credentials.Mnemonic)
		if err != nil {
			return nil, err
		}
		addr := gethcrypto.PubkeyToAddress(key.PublicKey)
		out.EVMAddress = addr.Hex()
		out.EVMBalances, err = s.evmBalances(ctx, addr)
		if err != nil {
			return nil, err
		}
	}
	return out, nil
}

// evmBalances queries every configured chain concurrently, keeping the
// configured chain order in the result.
func (s *service) evmBalances(ctx context.Context, addr common.Address) ([]EVMBalance, error) {
	type slot struct {
		balance EVMBalance
		err     error
		ok      bool
	}
	slots := make([]slot, len(s.cfg.EVMChains))

	var wg sync.WaitGroup
	for i, chain := range s.cfg.EVMChains {
		backend, found := s.evms[chain.ChainID]
		if !found {
			continue
		}
		wg.Add(1)
		go func(i int, chainID int64, backend EVMBackend) {
			defer wg.Done()
			wei, err := backend.Balance(ctx, addr)
			if err != nil {
				slots[i] = slot{err: errors.Wrapf(err, "failed to fetch balance on chain %d", chainID)}
				return
			}
			slots[i] = slot{balance: EVMBalance{ChainID: chainID, Wei: wei.String()}, ok: true}
		}(i, chain.ChainID, backend)
	}
	wg.Wait()

	out := make([]EVMBalance, 0, len(slots))
	for _, sl := range slots {
		if sl.err != nil {
			return nil, sl.err
		}
		if sl.ok {
			out = append(out, sl.balance)
		}
	}
	return out, nil
}

func stepChainID(step *routing.RouteStep) int64 {
	if step == nil {
		return 0
	}
	return step.ChainID
}

func evmChainLabel(chainID int64) string {
	return strconv.FormatInt(chainID, 10)
}

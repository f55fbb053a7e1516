package engine

import (
	"context"
	"crypto/ecdsa"
	"crypto/ed25519"
	"math/big"
	"strconv"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	gethcrypto "github.com/ethereum/go-ethereum/crypto"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/routeforge/swap-executor/internal/config"
	"github.com/routeforge/swap-executor/internal/solana"
)

// Top-up sizing for Solana. The requested amount is the estimated fee
// plus rent and compute buffers, doubled, clamped to a sane range.
const (
	solanaRentBufferLamports      = 2_000_000
	solanaComputeBufferLamports   = 500_000
	solanaMinFundingLamports      = 2_000_000
	solanaMaxFundingLamports      = 20_000_000
	solanaFallbackFundingLamports = 5_000_000 * 2
)

func solanaFundingAmount(feeLamports uint64) uint64 {
	amount := (feeLamports + solanaRentBufferLamports + solanaComputeBufferLamports) * 2
	if amount < solanaMinFundingLamports {
		amount = solanaMinFundingLamports
	}
	if amount > solanaMaxFundingLamports {
		amount = solanaMaxFundingLamports
	}
	return amount
}

var ErrNoFunder = errors.New("no funder account configured")

// funder holds the shared funder key material. Funder transfers are
// serialized per chain so concurrent users' retries cannot race the
// funder account's blockhash locks or nonce allocation.
type funder struct {
	solanaKey ed25519.PrivateKey
	solanaPub solana.Pubkey
	solanaMu  sync.Mutex

	evmKey *ecdsa.PrivateKey
	evmMu  map[int64]*sync.Mutex
}

// newFunder parses the configured funder key material. Absent keys are
// tolerated here; funding then fails fast at the first funding attempt.
func newFunder(cfg config.Server) (*funder, error) {
	f := &funder{evmMu: make(map[int64]*sync.Mutex, len(cfg.EVMChains))}
	for _, c := range cfg.EVMChains {
		f.evmMu[c.ChainID] = &sync.Mutex{}
	}

	if cfg.Solana.FunderSecretKey != "" {
		priv, pub, err := solana.KeypairFromBase58(cfg.Solana.FunderSecretKey)
		if err != nil {
			return nil, errors.Wrap(err, "invalid solana funder secret key")
		}
		f.solanaKey, f.solanaPub = priv, pub
	}

	if cfg.EVMFunderPrivateKey != "" {
		key, err := gethcrypto.HexToECDSA(trimHexPrefix(cfg.EVMFunderPrivateKey))
		if err != nil {
			return nil, errors.Wrap(err, "invalid evm funder private key")
		}
		f.evmKey = key
	}
	return f, nil
}

func trimHexPrefix(s string) string {
	if len(s) >= 2 && (s[:2] == "0x" || s[:2] == "0X") {
		return s[2:]
	}
	return s
}

// fundSolana transfers a top-up from the funder to recipient and waits
// for the transfer to confirm. msg is the compiled message of the
// transaction being retried; its fee estimate sizes the top-up.
func (s *service) fundSolana(ctx context.Context, logger zerolog.Logger, recipient solana.Pubkey, msg []byte) error {
	if s.funder.solanaKey == nil {
		return errors.Wrap(ErrNoFunder, "solana")
	}

	amount := uint64(solanaFallbackFundingLamports)
	if fee, err := s.solana.FeeForMessage(ctx, msg); err != nil {
		logger.Warn().Err(err).Msg("Fee estimation failed, using fixed top-up amount")
	} else {
		amount = solanaFundingAmount(fee)
	}

	s.funder.solanaMu.Lock()
	defer s.funder.solanaMu.Unlock()

	blockhash, err := s.solana.LatestBlockhash(ctx)
	if err != nil {
		return errors.Wrap(err, "failed to fetch blockhash for funding transfer")
	}
	tx, err := solana.BuildLegacyTransaction(
		blockhash,
		s.funder.solanaPub,
		map[solana.Pubkey]ed25519.PrivateKey{s.funder.solanaPub: s.funder.solanaKey},
		[]solana.Instruction{solana.SystemTransfer(s.funder.solanaPub, recipient, amount)},
	)
	if err != nil {
		return errors.Wrap(err, "failed to build funding transfer")
	}

	sig, err := s.solana.SendTransaction(ctx, tx)
	if err != nil {
		return errors.Wrap(err, "failed to send funding transfer")
	}
	fundingTransfersTotal.WithLabelValues(chainLabelSolana).Inc()
	logger.Info().Str("fundingTx", sig).Uint64("lamports", amount).Msg("Funding transfer submitted")

	confirmCtx, cancel := context.WithTimeout(ctx, s.cfg.Retry.ConfirmTimeout)
	defer cancel()
	return errors.Wrap(s.solana.ConfirmTransaction(confirmCtx, sig), "funding transfer did not confirm")
}

// fundEVM transfers the chain's fixed top-up amount from the funder to
// recipient. The backend waits for the transfer receipt before
// returning.
func (s *service) fundEVM(ctx context.Context, logger zerolog.Logger, backend EVMBackend, recipient common.Address) error {
	if s.funder.evmKey == nil {
		return errors.Wrapf(ErrNoFunder, "chain %d", backend.ChainID())
	}

	chain, ok := s.cfg.EVMChainByID(backend.ChainID())
	if !ok || chain.FundingWei == "" {
		return errors.Errorf("no funding amount configured for chain %d", backend.ChainID())
	}
	amount, ok := new(big.Int).SetString(chain.FundingWei, 10)
	if !ok || amount.Sign() <= 0 {
		return errors.Errorf("invalid funding amount %q for chain %d", chain.FundingWei, backend.ChainID())
	}

	mu := s.funder.evmMu[backend.ChainID()]
	mu.Lock()
	defer mu.Unlock()

	hash, err := backend.Transfer(ctx, s.funder.evmKey, recipient, amount)
	if err != nil {
		return errors.Wrap(err, "failed to send funding transfer")
	}
	fundingTransfersTotal.WithLabelValues(strconv.FormatInt(backend.ChainID(), 10)).Inc()
	logger.Info().Str("fundingTx", hash).Str("wei", amount.String()).Msg("Funding transfer confirmed")
	return nil
}

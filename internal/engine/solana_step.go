package engine

import (
	"context"
	"crypto/ed25519"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/routeforge/swap-executor/internal/codec"
	"github.com/routeforge/swap-executor/internal/routing"
	"github.com/routeforge/swap-executor/internal/solana"
	"github.com/routeforge/swap-executor/internal/txerr"
	"github.com/routeforge/swap-executor/internal/vault"
)

func (s *service) executeSolanaStep(
	ctx context.Context,
	logger zerolog.Logger,
	credentials *vault.Credentials,
	payload routing.SolanaPayload,
) *ExecutionResult {
	priv, pub, err := solana.KeypairFromBytes(credentials.SecretKey)
	if err != nil {
		logger.Warn().Err(err).Msg("Stored secret key is not a valid keypair")
		return failure(err, 0)
	}

	if payload.SerializedTransaction != "" {
		return s.executePreSerialized(ctx, logger, priv, pub, payload.SerializedTransaction)
	}
	return s.executeBuilt(ctx, logger, priv, pub, payload)
}

// executePreSerialized handles a step whose transaction the routing
// service already compiled. The transaction is bound to the blockhash
// chosen upstream and cannot be rebuilt here, so once that blockhash's
// validity window passes the retry loop must surface failure instead of
// resubmitting a dead transaction.
func (s *service) executePreSerialized(
	ctx context.Context,
	logger zerolog.Logger,
	priv ed25519.PrivateKey,
	pub solana.Pubkey,
	serialized string,
) *ExecutionResult {
	raw, err := codec.Decode(serialized)
	if err != nil {
		logger.Warn().Err(err).Msg("Serialized transaction matches no supported encoding")
		return failure(txerr.New(txerr.KindEncoding, err.Error()), 0)
	}

	signed, err := solana.Resign(raw, priv)
	if err != nil {
		logger.Warn().Err(err).Msg("Failed to sign pre-serialized transaction")
		return failure(err, 0)
	}
	_, msg, err := solana.SplitTransaction(signed)
	if err != nil {
		return failure(err, 0)
	}
	signedAt := time.Now()

	submit := func(ctx context.Context, attempt int) (string, error) {
		if attempt > 1 && time.Since(signedAt) > s.cfg.Solana.BlockhashTTL {
			return "", errors.New("blockhash validity window expired for pre-serialized transaction")
		}
		return s.submitSolana(ctx, signed)
	}
	fund := func(ctx context.Context) error {
		return s.fundSolana(ctx, logger, pub, msg)
	}

	signature, attempts, err := s.retry.run(ctx, logger, submit, fund)
	if err != nil {
		return failure(err, attempts)
	}
	return success(signature, attempts)
}

// executeBuilt compiles a v0 transaction from the step's instruction
// list and lookup tables. Unlike the pre-serialized form, a locally
// built transaction can be rebuilt against a fresh blockhash when
// funding retries outlast the old one's validity window.
func (s *service) executeBuilt(
	ctx context.Context,
	logger zerolog.Logger,
	priv ed25519.PrivateKey,
	pub solana.Pubkey,
	payload routing.SolanaPayload,
) *ExecutionResult {
	instructions, err := compileRawInstructions(payload.Instructions)
	if err != nil {
		logger.Warn().Err(err).Msg("Failed to decode step instructions")
		return failure(err, 0)
	}

	tables, err := s.solana.ResolveLookupTables(ctx, payload.LookupTables)
	if err != nil {
		return failure(err, 0)
	}

	keys := map[solana.Pubkey]ed25519.PrivateKey{pub: priv}
	var tx, msg []byte
	var builtAt time.Time

	build := func(ctx context.Context) error {
		blockhash, err := s.solana.LatestBlockhash(ctx)
		if err != nil {
			return errors.Wrap(err, "failed to fetch blockhash")
		}
		compiled, signers, err := solana.CompileV0Message(blockhash, pub, instructions, tables)
		if err != nil {
			return err
		}
		assembled, err := solana.AssembleTransaction(compiled, signers, keys)
		if err != nil {
			return err
		}
		if len(assembled) > solana.MaxTransactionSize {
			return errors.Wrapf(solana.ErrTransactionTooLarge, "%d bytes", len(assembled))
		}
		tx, msg, builtAt = assembled, compiled, time.Now()
		return nil
	}

	if err := build(ctx); err != nil {
		logger.Warn().Err(err).Msg("Failed to build transaction")
		return failure(err, 0)
	}

	submit := func(ctx context.Context, attempt int) (string, error) {
		if attempt > 1 && time.Since(builtAt) > s.cfg.Solana.BlockhashTTL {
			logger.Info().Msg("Blockhash past validity window, rebuilding before resubmission")
			if err := build(ctx); err != nil {
				return "", err
			}
		}
		return s.submitSolana(ctx, tx)
	}
	fund := func(ctx context.Context) error {
		return s.fundSolana(ctx, logger, pub, msg)
	}

	signature, attempts, err := s.retry.run(ctx, logger, submit, fund)
	if err != nil {
		return failure(err, attempts)
	}
	return success(signature, attempts)
}

// submitSolana sends the transaction and waits for confirmed
// commitment.
func (s *service) submitSolana(ctx context.Context, tx []byte) (string, error) {
	submissionsTotal.WithLabelValues(chainLabelSolana).Inc()

	signature, err := s.solana.SendTransaction(ctx, tx)
	if err != nil {
		return "", err
	}

	confirmCtx, cancel := context.WithTimeout(ctx, s.cfg.Retry.ConfirmTimeout)
	defer cancel()
	if err := s.solana.ConfirmTransaction(confirmCtx, signature); err != nil {
		return "", errors.Wrapf(err, "transaction %s did not confirm", signature)
	}
	return signature, nil
}

// compileRawInstructions maps the routing service's opaque instruction
// records onto typed instructions. Any unparseable field is an
// encoding-class failure; re-funding cannot fix a malformed step.
func compileRawInstructions(raw []routing.RawInstruction) ([]solana.Instruction, error) {
	out := make([]solana.Instruction, 0, len(raw))
	for i, ri := range raw {
		program, err := solana.ParsePubkey(ri.ProgramID)
		if err != nil {
			return nil, txerr.New(txerr.KindEncoding,
				errors.Wrapf(err, "instruction %d program id", i).Error())
		}
		data, err := codec.Decode(ri.Data)
		if err != nil {
			return nil, txerr.New(txerr.KindEncoding,
				errors.Wrapf(err, "instruction %d data", i).Error())
		}

		accounts := make([]solana.AccountMeta, 0, len(ri.Accounts))
		for _, a := range ri.Accounts {
			pk, err := solana.ParsePubkey(a.Address)
			if err != nil {
				return nil, txerr.New(txerr.KindEncoding,
					errors.Wrapf(err, "instruction %d account", i).Error())
			}
			accounts = append(accounts, solana.AccountMeta{
				Pubkey:     pk,
				IsSigner:   a.IsSigner,
				IsWritable: a.IsWritable,
			})
		}

		out = append(out, solana.Instruction{ProgramID: program, Accounts: accounts, Data: data})
	}
	return out, nil
}

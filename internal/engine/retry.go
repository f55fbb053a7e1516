package engine

import (
	"context"
	"time"

	"github.com/rs/zerolog"
	"github.com/routeforge/swap-executor/internal/txerr"
)

// The funding-retry controller is an explicit state machine so the
// bounded-attempts and terminal-state properties hold structurally.
type retryState int

const (
	stateAttempting retryState = iota
	stateFunding
	stateSucceeded
	stateExhausted
)

func (s retryState) String() string {
	switch s {
	case stateAttempting:
		return "attempting"
	case stateFunding:
		return "funding"
	case stateSucceeded:
		return "succeeded"
	default:
		return "exhausted"
	}
}

// nextState is the pure transition function: given the attempt number
// and the submission outcome, it picks the follow-up state. Only an
// insufficient-funds failure with attempts remaining enters funding;
// everything else is terminal.
func nextState(attempt, maxAttempts int, submitErr error) retryState {
	if submitErr == nil {
		return stateSucceeded
	}
	if txerr.KindOf(submitErr) == txerr.KindInsufficientFunds && attempt < maxAttempts {
		return stateFunding
	}
	return stateExhausted
}

type retryController struct {
	maxAttempts int
	settleDelay time.Duration
}

// run drives the state machine. submit performs one submission attempt;
// fund tops up the wallet after an insufficient-funds failure and
// returns only once the funding transfer has confirmed. A funding
// failure is never itself retried; it exhausts the controller with the
// submission error that triggered it.
func (c retryController) run(
	ctx context.Context,
	logger zerolog.Logger,
	submit func(ctx context.Context, attempt int) (string, error),
	fund func(ctx context.Context) error,
) (signature string, attempts int, err error) {
	for attempt := 1; ; attempt++ {
		signature, err = submit(ctx, attempt)

		switch next := nextState(attempt, c.maxAttempts, err); next {
		case stateSucceeded:
			return signature, attempt, nil
		case stateExhausted:
			return "", attempt, err
		case stateFunding:
			logger.Info().Int("attempt", attempt).Msg("Insufficient native funds, requesting top-up from funder")
			if fundErr := fund(ctx); fundErr != nil {
				logger.Warn().Err(fundErr).Msg("Funding transfer failed, giving up")
				return "", attempt, err
			}
			// The wallet balance is settled on-chain at this point; the
			// delay covers RPC nodes that still serve the stale balance.
			if sleepErr := sleepWithContext(ctx, c.settleDelay); sleepErr != nil {
				return "", attempt, sleepErr
			}
		}
	}
}

func sleepWithContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

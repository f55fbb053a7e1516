package evm

import (
	"context"
	"crypto/ecdsa"
	"math/big"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"github.com/routeforge/swap-executor/internal/routing"
	"github.com/routeforge/swap-executor/internal/txerr"
)

const (
	receiptPollInterval = 3 * time.Second
	receiptWaitTimeout  = 2 * time.Minute
)

var ErrReceiptFailed = errors.New("transaction reverted on-chain")

// Client submits native transactions on a single EVM chain.
type Client struct {
	chainID int64
	eth     *ethclient.Client
}

func Dial(ctx context.Context, chainID int64, rpcURL string) (*Client, error) {
	rpcURL = strings.TrimSpace(rpcURL)
	if rpcURL == "" {
		return nil, errors.Errorf("missing rpc url for chain %d", chainID)
	}
	eth, err := ethclient.DialContext(ctx, rpcURL)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to dial chain %d", chainID)
	}
	return &Client{chainID: chainID, eth: eth}, nil
}

func (c *Client) ChainID() int64 { return c.chainID }

func (c *Client) Close() {
	if c.eth != nil {
		c.eth.Close()
	}
}

// Balance returns the native-currency balance of addr in wei.
func (c *Client) Balance(ctx context.Context, addr common.Address) (*big.Int, error) {
	bal, err := c.eth.BalanceAt(ctx, addr, nil)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to fetch balance on chain %d", c.chainID)
	}
	return bal, nil
}

// SendTransaction builds the step's transaction, signs it with key and
// submits it, waiting for the receipt. The step's from address, when
// set, must match the signing key: a route computed for one wallet is
// never executed by another.
func (c *Client) SendTransaction(ctx context.Context, payload *routing.EVMPayload, key *ecdsa.PrivateKey) (string, error) {
	sender := crypto.PubkeyToAddress(key.PublicKey)
	if payload.From != "" {
		if !common.IsHexAddress(payload.From) {
			return "", errors.Errorf("invalid from address %q", payload.From)
		}
		if common.HexToAddress(payload.From) != sender {
			return "", errors.Errorf("step from address %s does not match signing key %s", payload.From, sender.Hex())
		}
	}

	nonce, err := c.eth.PendingNonceAt(ctx, sender)
	if err != nil {
		return "", txerr.ClassifyEVM(errors.Wrap(err, "failed to fetch nonce"))
	}

	var gasPrice *big.Int
	if payload.MaxFeePerGas == "" {
		gasPrice, err = c.eth.SuggestGasPrice(ctx)
		if err != nil {
			return "", txerr.ClassifyEVM(errors.Wrap(err, "failed to fetch gas price"))
		}
	}

	tx, err := BuildTransaction(payload, c.chainID, nonce, gasPrice)
	if err != nil {
		return "", err
	}
	return c.signAndSubmit(ctx, tx, key)
}

// Transfer sends amountWei of native currency from the funder key to
// recipient and waits for inclusion.
func (c *Client) Transfer(ctx context.Context, key *ecdsa.PrivateKey, recipient common.Address, amountWei *big.Int) (string, error) {
	sender := crypto.PubkeyToAddress(key.PublicKey)
	nonce, err := c.eth.PendingNonceAt(ctx, sender)
	if err != nil {
		return "", txerr.ClassifyEVM(errors.Wrap(err, "failed to fetch funder nonce"))
	}
	gasPrice, err := c.eth.SuggestGasPrice(ctx)
	if err != nil {
		return "", txerr.ClassifyEVM(errors.Wrap(err, "failed to fetch gas price"))
	}

	tx := types.NewTx(&types.LegacyTx{
		Nonce:    nonce,
		GasPrice: gasPrice,
		Gas:      transferGasLimit,
		To:       &recipient,
		Value:    amountWei,
	})
	return c.signAndSubmit(ctx, tx, key)
}

func (c *Client) signAndSubmit(ctx context.Context, tx *types.Transaction, key *ecdsa.PrivateKey) (string, error) {
	signed, err := types.SignTx(tx, types.LatestSignerForChainID(big.NewInt(c.chainID)), key)
	if err != nil {
		return "", errors.Wrap(err, "failed to sign transaction")
	}

	if err := c.eth.SendTransaction(ctx, signed); err != nil {
		return "", txerr.ClassifyEVM(errors.Wrapf(err, "failed to submit transaction on chain %d", c.chainID))
	}

	hash := signed.Hash()
	log.Debug().Int64("chainId", c.chainID).Str("hash", hash.Hex()).Msg("Submitted EVM transaction")

	if err := c.waitMined(ctx, hash); err != nil {
		return hash.Hex(), err
	}
	return hash.Hex(), nil
}

func (c *Client) waitMined(ctx context.Context, hash common.Hash) error {
	ctx, cancel := context.WithTimeout(ctx, receiptWaitTimeout)
	defer cancel()

	for {
		receipt, err := c.eth.TransactionReceipt(ctx, hash)
		if err == nil && receipt != nil {
			if receipt.Status != types.ReceiptStatusSuccessful {
				return errors.Wrapf(ErrReceiptFailed, "transaction %s", hash.Hex())
			}
			return nil
		}

		t := time.NewTimer(receiptPollInterval)
		select {
		case <-ctx.Done():
			t.Stop()
			return errors.Wrapf(ctx.Err(), "timed out waiting for receipt of %s", hash.Hex())
		case <-t.C:
		}
	}
}

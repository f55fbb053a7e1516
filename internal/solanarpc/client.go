// Package solanarpc is the JSON-RPC client for the Solana network,
// covering exactly the calls the route executor needs.
package solanarpc

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"github.com/routeforge/swap-executor/internal/solana"
	"github.com/routeforge/swap-executor/internal/txerr"
)

var (
	ErrMissingRPCURL = errors.New("missing solana rpc url")
	ErrRPCError      = errors.New("solana rpc error")
)

// RPCError is a structured JSON-RPC error. Data carries the provider's
// error payload; for a failed sendTransaction preflight it contains the
// simulation logs.
type RPCError struct {
	Code    int
	Message string
	Data    json.RawMessage
}

func (e *RPCError) Error() string {
	return fmt.Sprintf("%s: %d %s", ErrRPCError.Error(), e.Code, e.Message)
}

func (e *RPCError) Unwrap() error { return ErrRPCError }

// Logs extracts the preflight simulation logs, if present.
func (e *RPCError) Logs() []string {
	if len(e.Data) == 0 {
		return nil
	}
	var payload struct {
		Logs []string `json:"logs"`
	}
	if err := json.Unmarshal(e.Data, &payload); err != nil {
		return nil
	}
	return payload.Logs
}

type Client struct {
	rpcURL string
	http   *http.Client
}

func New(rpcURL string, httpClient *http.Client) (*Client, error) {
	rpcURL = strings.TrimSpace(rpcURL)
	if rpcURL == "" {
		return nil, ErrMissingRPCURL
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	return &Client{rpcURL: rpcURL, http: httpClient}, nil
}

type rpcRequest struct {
	JSONRPC string `json:"jsonrpc"`
	ID      string `json:"id"`
	Method  string `json:"method"`
	Params  any    `json:"params,omitempty"`
}

type rpcResponse struct {
	Result json.RawMessage `json:"result,omitempty"`
	Error  *struct {
		Code    int             `json:"code"`
		Message string          `json:"message"`
		Data    json.RawMessage `json:"data,omitempty"`
	} `json:"error,omitempty"`
}

const (
	rateLimitBackoff  = 1 * time.Second
	rateLimitAttempts = 5
	maxResponseBytes  = 4 << 20
)

func (c *Client) call(ctx context.Context, method string, params any, out any) error {
	reqBody, err := json.Marshal(rpcRequest{JSONRPC: "2.0", ID: "1", Method: method, Params: params})
	if err != nil {
		return errors.Wrap(err, "failed to marshal rpc request")
	}

	backoff := rateLimitBackoff
	var lastErr error
	for attempt := 1; attempt <= rateLimitAttempts; attempt++ {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.rpcURL, bytes.NewReader(reqBody))
		if err != nil {
			return errors.Wrap(err, "failed to build rpc request")
		}
		req.Header.Set("Content-Type", "application/json")

		resp, err := c.http.Do(req)
		if err != nil {
			return errors.Wrapf(err, "rpc %s", method)
		}
		raw, readErr := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
		_ = resp.Body.Close()
		if readErr != nil {
			return errors.Wrap(readErr, "failed to read rpc response")
		}

		if resp.StatusCode == http.StatusTooManyRequests {
			lastErr = errors.Wrapf(ErrRPCError, "http status %d", resp.StatusCode)
			if err := sleepWithContext(ctx, backoff); err != nil {
				return err
			}
			backoff *= 2
			continue
		}

		var rr rpcResponse
		if err := json.Unmarshal(raw, &rr); err != nil {
			return errors.Wrapf(err, "failed to decode rpc response for %s", method)
		}
		if rr.Error != nil {
			return &RPCError{Code: rr.Error.Code, Message: rr.Error.Message, Data: rr.Error.Data}
		}
		if out == nil {
			return nil
		}
		if len(rr.Result) == 0 {
			return errors.Wrapf(ErrRPCError, "%s returned empty result", method)
		}
		return errors.Wrapf(json.Unmarshal(rr.Result, out), "failed to decode %s result", method)
	}
	return lastErr
}

func sleepWithContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// LatestBlockhash fetches a finalized recent blockhash.
func (c *Client) LatestBlockhash(ctx context.Context) ([32]byte, error) {
	var resp struct {
		Value struct {
			Blockhash string `json:"blockhash"`
		} `json:"value"`
	}
	if err := c.call(ctx, "getLatestBlockhash", []any{map[string]any{"commitment": "finalized"}}, &resp); err != nil {
		return [32]byte{}, err
	}
	bh, err := solana.ParseHash(resp.Value.Blockhash)
	if err != nil {
		return [32]byte{}, errors.Wrap(err, "invalid blockhash")
	}
	return bh, nil
}

// SendTransaction submits raw transaction bytes with preflight enabled.
// Failures come back classified into the engine's taxonomy; preflight
// simulation logs ride along for the funding-retry decision.
func (c *Client) SendTransaction(ctx context.Context, tx []byte) (string, error) {
	params := []any{
		base64.StdEncoding.EncodeToString(tx),
		map[string]any{"encoding": "base64", "skipPreflight": false},
	}
	var signature string
	if err := c.call(ctx, "sendTransaction", params, &signature); err != nil {
		var rpcErr *RPCError
		if errors.As(err, &rpcErr) {
			return "", txerr.ClassifySolana(rpcErr, rpcErr.Message, rpcErr.Logs())
		}
		return "", txerr.ClassifySolana(err, err.Error(), nil)
	}
	return signature, nil
}

// FeeForMessage asks the network for the fee of a compiled message.
// A null result (unknown blockhash) is an error; callers fall back to
// a fixed estimate.
func (c *Client) FeeForMessage(ctx context.Context, msg []byte) (uint64, error) {
	params := []any{
		base64.StdEncoding.EncodeToString(msg),
		map[string]any{"commitment": "processed"},
	}
	var resp struct {
		Value *uint64 `json:"value"`
	}
	if err := c.call(ctx, "getFeeForMessage", params, &resp); err != nil {
		return 0, err
	}
	if resp.Value == nil {
		return 0, errors.Wrap(ErrRPCError, "fee not available for message")
	}
	return *resp.Value, nil
}

// AccountData fetches an account's raw data.
func (c *Client) AccountData(ctx context.Context, address string) ([]byte, error) {
	params := []any{address, map[string]any{"encoding": "base64"}}
	var resp struct {
		Value *struct {
			Data []string `json:"data"`
		} `json:"value"`
	}
	if err := c.call(ctx, "getAccountInfo", params, &resp); err != nil {
		return nil, err
	}
	if resp.Value == nil || len(resp.Value.Data) == 0 {
		return nil, errors.Wrapf(ErrRPCError, "account %s not found", address)
	}
	data, err := base64.StdEncoding.DecodeString(resp.Value.Data[0])
	if err != nil {
		return nil, errors.Wrap(err, "account data is not valid base64")
	}
	return data, nil
}

// Balance returns an account's lamport balance.
func (c *Client) Balance(ctx context.Context, address string) (uint64, error) {
	var resp struct {
		Value uint64 `json:"value"`
	}
	if err := c.call(ctx, "getBalance", []any{address}, &resp); err != nil {
		return 0, err
	}
	return resp.Value, nil
}

const confirmPollInterval = 500 * time.Millisecond

// ConfirmTransaction polls until the signature reaches confirmed or
// finalized commitment, the transaction errors, or ctx expires.
func (c *Client) ConfirmTransaction(ctx context.Context, signature string) error {
	for {
		var resp struct {
			Value []*struct {
				ConfirmationStatus string          `json:"confirmationStatus"`
				Err                json.RawMessage `json:"err"`
			} `json:"value"`
		}
		err := c.call(ctx, "getSignatureStatuses", []any{[]string{signature}}, &resp)
		if err != nil {
			return errors.Wrap(err, "failed to poll signature status")
		}
		if len(resp.Value) > 0 && resp.Value[0] != nil {
			status := resp.Value[0]
			if len(status.Err) > 0 && string(status.Err) != "null" {
				return errors.Wrapf(ErrRPCError, "transaction %s failed on-chain: %s", signature, status.Err)
			}
			if status.ConfirmationStatus == "confirmed" || status.ConfirmationStatus == "finalized" {
				return nil
			}
		}
		if err := sleepWithContext(ctx, confirmPollInterval); err != nil {
			return errors.Wrapf(err, "timed out confirming %s", signature)
		}
	}
}

// ResolveLookupTables fetches and parses the given lookup-table
// accounts concurrently. A table that fails to resolve is logged and
// skipped rather than aborting the build: its accounts are only needed
// for address compaction, and the compiler falls back to static keys.
func (c *Client) ResolveLookupTables(ctx context.Context, addresses []string) ([]solana.LookupTable, error) {
	type slot struct {
		table solana.LookupTable
		ok    bool
	}
	slots := make([]slot, len(addresses))

	var wg sync.WaitGroup
	for i, addr := range addresses {
		wg.Add(1)
		go func(i int, addr string) {
			defer wg.Done()

			key, err := solana.ParsePubkey(addr)
			if err != nil {
				log.Warn().Str("address", addr).Err(err).Msg("Skipping invalid lookup table address")
				return
			}
			data, err := c.AccountData(ctx, addr)
			if err != nil {
				log.Warn().Str("address", addr).Err(err).Msg("Failed to resolve lookup table, compiling without it")
				return
			}
			parsed, err := solana.ParseLookupTableAddresses(data)
			if err != nil {
				log.Warn().Str("address", addr).Err(err).Msg("Lookup table account has unexpected layout, skipping")
				return
			}
			slots[i] = slot{table: solana.LookupTable{AccountKey: key, Addresses: parsed}, ok: true}
		}(i, addr)
	}
	wg.Wait()

	out := make([]solana.LookupTable, 0, len(addresses))
	for _, s := range slots {
		if s.ok {
			out = append(out, s.table)
		}
	}
	return out, nil
}

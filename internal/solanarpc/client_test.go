package solanarpc_test

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/routeforge/swap-executor/internal/solana"
	"github.com/routeforge/swap-executor/internal/solanarpc"
	"github.com/routeforge/swap-executor/internal/txerr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type rpcHandler func(method string, params json.RawMessage) (any, *rpcTestError)

type rpcTestError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
}

func newTestClient(t *testing.T, handle rpcHandler) *solanarpc.Client {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Method string          `json:"method"`
			Params json.RawMessage `json:"params"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))

		result, rpcErr := handle(req.Method, req.Params)
		resp := map[string]any{"jsonrpc": "2.0", "id": "1"}
		if rpcErr != nil {
			resp["error"] = rpcErr
		} else {
			resp["result"] = result
		}
		require.NoError(t, json.NewEncoder(w).Encode(resp))
	}))
	t.Cleanup(srv.Close)

	client, err := solanarpc.New(srv.URL, srv.Client())
	require.NoError(t, err)
	return client
}

func TestSendTransactionSuccess(t *testing.T) {
	client := newTestClient(t, func(method string, _ json.RawMessage) (any, *rpcTestError) {
		require.Equal(t, "sendTransaction", method)
		return "5signature", nil
	})

	sig, err := client.SendTransaction(context.Background(), []byte{0x01})
	require.NoError(t, err)
	assert.Equal(t, "5signature", sig)
}

func TestSendTransactionClassifiesPreflightLogs(t *testing.T) {
	client := newTestClient(t, func(_ string, _ json.RawMessage) (any, *rpcTestError) {
		return nil, &rpcTestError{
			Code:    -32002,
			Message: "Transaction simulation failed: Error processing Instruction 2: custom program error: 0x1788",
			Data:    map[string]any{"logs": []string{"Program log: Error: insufficient funds"}},
		}
	})

	_, err := client.SendTransaction(context.Background(), []byte{0x01})
	require.Error(t, err)
	assert.Equal(t, txerr.KindInsufficientFunds, txerr.KindOf(err))
	assert.NotEmpty(t, txerr.LogsOf(err))
}

func TestSendTransactionClassifiesEncodingError(t *testing.T) {
	client := newTestClient(t, func(_ string, _ json.RawMessage) (any, *rpcTestError) {
		return nil, &rpcTestError{Code: -32602, Message: "failed to deserialize: encoding overruns Uint8Array"}
	})

	_, err := client.SendTransaction(context.Background(), []byte{0x01})
	require.Error(t, err)
	assert.Equal(t, txerr.KindEncoding, txerr.KindOf(err))
}

func TestFeeForMessage(t *testing.T) {
	client := newTestClient(t, func(method string, _ json.RawMessage) (any, *rpcTestError) {
		require.Equal(t, "getFeeForMessage", method)
		return map[string]any{"value": 5000}, nil
	})

	fee, err := client.FeeForMessage(context.Background(), []byte{0x80})
	require.NoError(t, err)
	assert.Equal(t, uint64(5000), fee)
}

func TestFeeForMessageNullValue(t *testing.T) {
	client := newTestClient(t, func(_ string, _ json.RawMessage) (any, *rpcTestError) {
		return map[string]any{"value": nil}, nil
	})

	_, err := client.FeeForMessage(context.Background(), []byte{0x80})
	assert.Error(t, err)
}

func TestResolveLookupTablesPartialFailure(t *testing.T) {
	good := solana.MustParsePubkey("TokenkegQfeZyiNwAJbNbGKPFXCWuBvf9Ss623VQ5DA")
	inner := make([]byte, 56, 88)
	inner[0] = 1
	member := solana.MustParsePubkey("11111111111111111111111111111111")
	inner = append(inner, member[:]...)

	client := newTestClient(t, func(method string, params json.RawMessage) (any, *rpcTestError) {
		require.Equal(t, "getAccountInfo", method)
		var p []json.RawMessage
		require.NoError(t, json.Unmarshal(params, &p))
		var addr string
		require.NoError(t, json.Unmarshal(p[0], &addr))

		if addr == good.Base58() {
			return map[string]any{"value": map[string]any{
				"data": []string{base64.StdEncoding.EncodeToString(inner), "base64"},
			}}, nil
		}
		return map[string]any{"value": nil}, nil
	})

	tables, err := client.ResolveLookupTables(context.Background(), []string{
		good.Base58(),
		"SysvarRent111111111111111111111111111111111", // resolves to nothing
	})
	require.NoError(t, err)
	require.Len(t, tables, 1)
	assert.Equal(t, good, tables[0].AccountKey)
	assert.Equal(t, []solana.Pubkey{member}, tables[0].Addresses)
}

func TestConfirmTransaction(t *testing.T) {
	calls := 0
	client := newTestClient(t, func(method string, _ json.RawMessage) (any, *rpcTestError) {
		require.Equal(t, "getSignatureStatuses", method)
		calls++
		if calls < 2 {
			return map[string]any{"value": []any{nil}}, nil
		}
		return map[string]any{"value": []any{map[string]any{"confirmationStatus": "confirmed"}}}, nil
	})

	err := client.ConfirmTransaction(context.Background(), "sig")
	require.NoError(t, err)
	assert.Equal(t, 2, calls)
}

func TestConfirmTransactionOnChainFailure(t *testing.T) {
	client := newTestClient(t, func(_ string, _ json.RawMessage) (any, *rpcTestError) {
		return map[string]any{"value": []any{map[string]any{
			"confirmationStatus": "confirmed",
			"err":                map[string]any{"InstructionError": []any{0, "Custom"}},
		}}}, nil
	})

	err := client.ConfirmTransaction(context.Background(), "sig")
	assert.Error(t, err)
}

func TestNewRequiresURL(t *testing.T) {
	_, err := solanarpc.New("  ", nil)
	assert.ErrorIs(t, err, solanarpc.ErrMissingRPCURL)
}

package wallets_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/routeforge/swap-executor/internal/api"
	"github.com/routeforge/swap-executor/internal/api/handlers/wallets"
	"github.com/routeforge/swap-executor/internal/config"
	"github.com/routeforge/swap-executor/internal/credstore"
	"github.com/routeforge/swap-executor/internal/engine"
	"github.com/routeforge/swap-executor/internal/routing"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeEngine struct {
	balances   *engine.NativeBalances
	balanceErr error
}

func (f *fakeEngine) ExecuteStep(context.Context, string, *routing.RouteStep) *engine.ExecutionResult {
	return &engine.ExecutionResult{Status: engine.StatusFailed}
}

func (f *fakeEngine) NativeBalances(context.Context, string) (*engine.NativeBalances, error) {
	return f.balances, f.balanceErr
}

func newTestServer(eng engine.Service) *api.Server {
	s := api.NewServer(config.Server{}, eng)
	s.InitRouter()
	s.AttachRoutes(wallets.GetBalancesRoute)
	return s
}

func TestGetBalances(t *testing.T) {
	eng := &fakeEngine{balances: &engine.NativeBalances{
		SolanaAddress:  "4fYNw3dojWmQ4dXtSGE9epjRGy9pFSx62YypT7avPYvA",
		SolanaLamports: 5000,
		EVMAddress:     "0x9858EfFD232B4033E47d90003D41EC34EcaEda94",
		EVMBalances:    []engine.EVMBalance{{ChainID: 8453, Wei: "42"}},
	}}
	s := newTestServer(eng)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/wallets/user-1/balances", nil)
	rec := httptest.NewRecorder()
	s.Echo.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var balances engine.NativeBalances
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &balances))
	assert.Equal(t, uint64(5000), balances.SolanaLamports)
	require.Len(t, balances.EVMBalances, 1)
	assert.Equal(t, "42", balances.EVMBalances[0].Wei)
}

func TestGetBalancesUnknownWallet(t *testing.T) {
	s := newTestServer(&fakeEngine{balanceErr: credstore.ErrNotFound})

	req := httptest.NewRequest(http.MethodGet, "/api/v1/wallets/nobody/balances", nil)
	rec := httptest.NewRecorder()
	s.Echo.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

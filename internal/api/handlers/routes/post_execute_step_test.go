package routes_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/routeforge/swap-executor/internal/api"
	"github.com/routeforge/swap-executor/internal/api/handlers/routes"
	"github.com/routeforge/swap-executor/internal/config"
	"github.com/routeforge/swap-executor/internal/engine"
	"github.com/routeforge/swap-executor/internal/routing"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeEngine struct {
	lastUserID string
	lastStep   *routing.RouteStep
	result     *engine.ExecutionResult
	balances   *engine.NativeBalances
	balanceErr error
}

func (f *fakeEngine) ExecuteStep(_ context.Context, userID string, step *routing.RouteStep) *engine.ExecutionResult {
	f.lastUserID = userID
	f.lastStep = step
	return f.result
}

func (f *fakeEngine) NativeBalances(context.Context, string) (*engine.NativeBalances, error) {
	return f.balances, f.balanceErr
}

func newTestServer(eng engine.Service) *api.Server {
	s := api.NewServer(config.Server{}, eng)
	s.InitRouter()
	s.AttachRoutes(routes.PostExecuteStepRoute)
	return s
}

func TestPostExecuteStep(t *testing.T) {
	eng := &fakeEngine{result: &engine.ExecutionResult{
		Status:    engine.StatusSuccess,
		Signature: "sig-1",
		Attempts:  1,
	}}
	s := newTestServer(eng)

	body := `{
		"userId": "user-1",
		"step": {"chainId": 8453, "evm": {"to": "0x1111111111111111111111111111111111111111", "value": "5"}}
	}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/routes/execute", strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	s.Echo.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "user-1", eng.lastUserID)
	require.NotNil(t, eng.lastStep)
	assert.Equal(t, int64(8453), eng.lastStep.ChainID)

	var result engine.ExecutionResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &result))
	assert.Equal(t, engine.StatusSuccess, result.Status)
	assert.Equal(t, "sig-1", result.Signature)
}

func TestPostExecuteStepFailureStillHTTPOK(t *testing.T) {
	eng := &fakeEngine{result: &engine.ExecutionResult{
		Status:   engine.StatusFailed,
		Error:    "Transaction failed. Please try again.",
		Attempts: 1,
	}}
	s := newTestServer(eng)

	body := `{"userId": "user-1", "step": {"chainId": 56, "evm": {"to": "0x1111111111111111111111111111111111111111"}}}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/routes/execute", strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	s.Echo.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var result engine.ExecutionResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &result))
	assert.Equal(t, engine.StatusFailed, result.Status)
	assert.NotEmpty(t, result.Error)
}

func TestPostExecuteStepValidation(t *testing.T) {
	s := newTestServer(&fakeEngine{})

	cases := []struct {
		name string
		body string
	}{
		{"missing user id", `{"step": {"chainId": 56}}`},
		{"missing step", `{"userId": "user-1"}`},
		{"malformed json", `{`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/api/v1/routes/execute", strings.NewReader(tc.body))
			req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
			rec := httptest.NewRecorder()
			s.Echo.ServeHTTP(rec, req)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
		})
	}
}

// Package server starts the HTTP service.
package server

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/routeforge/swap-executor/internal/api"
	"github.com/routeforge/swap-executor/internal/api/handlers/common"
	"github.com/routeforge/swap-executor/internal/api/handlers/routes"
	"github.com/routeforge/swap-executor/internal/api/handlers/wallets"
	"github.com/routeforge/swap-executor/internal/config"
	"github.com/routeforge/swap-executor/internal/credstore"
	"github.com/routeforge/swap-executor/internal/engine"
	"github.com/routeforge/swap-executor/internal/evm"
	"github.com/routeforge/swap-executor/internal/solanarpc"
	"github.com/routeforge/swap-executor/internal/vault"
)

const shutdownTimeout = 10 * time.Second

func New() *cobra.Command {
	return &cobra.Command{
		Use:   "server",
		Short: "Starts the server",
		Long:  "Starts the route-execution HTTP server with config from the environment.",
		Run: func(_ *cobra.Command, _ []string) {
			runServer()
		},
	}
}

func runServer() {
	cfg := config.DefaultServiceConfigFromEnv()
	ctx := context.Background()

	eng, err := InitEngine(ctx, cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize engine")
	}

	s := api.NewServer(cfg, eng)
	s.InitRouter()
	s.AttachRoutes(
		common.GetReadyRoute,
		common.GetMetricsRoute,
		routes.PostExecuteStepRoute,
		wallets.GetBalancesRoute,
	)

	go func() {
		if err := s.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("Failed to start server")
		}
	}()
	log.Info().Str("address", cfg.Echo.ListenAddress).Msg("Server started")

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	shutdownCtx, cancel := context.WithTimeout(ctx, shutdownTimeout)
	defer cancel()
	if err := s.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Failed to gracefully shut down server")
	}
}

// InitEngine wires the engine's components from the configuration.
// cmd/execute reuses it for one-shot executions.
//
//nolint:ireturn // Returning interface is intentional for dependency injection
func InitEngine(ctx context.Context, cfg config.Server) (engine.Service, error) {
	vaultService, err := vault.NewService(cfg.ServerSecret)
	if err != nil {
		return nil, err
	}

	solanaClient, err := solanarpc.New(cfg.Solana.RPCURL, nil)
	if err != nil {
		return nil, err
	}

	evmBackends := make([]engine.EVMBackend, 0, len(cfg.EVMChains))
	for _, chain := range cfg.EVMChains {
		client, err := evm.Dial(ctx, chain.ChainID, chain.RPCURL)
		if err != nil {
			return nil, errors.Wrapf(err, "failed to connect to chain %d", chain.ChainID)
		}
		evmBackends = append(evmBackends, client)
	}

	return engine.NewService(cfg, vaultService, credstore.NewMemoryStore(), solanaClient, evmBackends)
}

// Package execute runs a single route step from a JSON file, for
// operational debugging against real networks.
package execute

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/routeforge/swap-executor/cmd/server"
	"github.com/routeforge/swap-executor/internal/config"
	"github.com/routeforge/swap-executor/internal/engine"
	"github.com/routeforge/swap-executor/internal/routing"
)

func New() *cobra.Command {
	var userID string

	cmd := &cobra.Command{
		Use:   "execute <step.json>",
		Short: "Executes a single route step",
		Long:  "Reads one route step from a JSON file and executes it for the given user.",
		Args:  cobra.ExactArgs(1),
		Run: func(_ *cobra.Command, args []string) {
			runExecute(userID, args[0])
		},
	}
	cmd.Flags().StringVar(&userID, "user", "", "user id owning the custodial wallet (required)")
	_ = cmd.MarkFlagRequired("user")
	return cmd
}

func runExecute(userID, path string) {
	raw, err := os.ReadFile(path)
	if err != nil {
		log.Fatal().Err(err).Str("path", path).Msg("Failed to read step file")
	}
	var step routing.RouteStep
	if err := json.Unmarshal(raw, &step); err != nil {
		log.Fatal().Err(err).Msg("Step file is not valid JSON")
	}

	ctx := context.Background()
	eng, err := server.InitEngine(ctx, config.DefaultServiceConfigFromEnv())
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize engine")
	}

	result := eng.ExecuteStep(ctx, userID, &step)

	out, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to marshal result")
	}
	fmt.Println(string(out))

	if result.Status != engine.StatusSuccess {
		os.Exit(1)
	}
}

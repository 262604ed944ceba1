package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"
)

var testConnectionsCmd = &cobra.Command{
	Use:   "test-connections <environment> [connection-id...]",
	Short: "Smoke-test connections in an environment",
	Long: `Runs the platform connection test for the given connection ids, or for
every connection with configured property overrides when none are named.
Exits non-zero when any test fails.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		env, err := cfg.Env(args[0])
		if err != nil {
			return err
		}

		connectionIDs := args[1:]
		if len(connectionIDs) == 0 {
			for connID := range cfg.ConnectionPatches(env.Name) {
				connectionIDs = append(connectionIDs, connID)
			}
		}
		if len(connectionIDs) == 0 {
			return fmt.Errorf("no connections named and none configured for environment %s", env.Name)
		}

		target, err := buildTarget(env)
		if err != nil {
			return err
		}

		ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
		defer cancel()

		token, err := authenticate(ctx, target)
		if err != nil {
			return err
		}

		failed := 0
		for _, connID := range connectionIDs {
			passed, err := target.Client.TestConnection(ctx, token, connID)
			if err != nil {
				return err
			}
			if passed {
				slog.Info("connection test passed", slog.String("connection", connID))
			} else {
				slog.Warn("connection test failed", slog.String("connection", connID))
				failed++
			}
		}
		if failed > 0 {
			return fmt.Errorf("%d of %d connection tests failed", failed, len(connectionIDs))
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(testConnectionsCmd)
}

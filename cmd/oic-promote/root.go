package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	oicpromote "github.com/oicops/oic-promote"
	"github.com/oicops/oic-promote/internal/config"
	"github.com/oicops/oic-promote/pkg/assertion"
	"github.com/oicops/oic-promote/pkg/idp"
	"github.com/oicops/oic-promote/pkg/promote"
	"github.com/oicops/oic-promote/pkg/types"
)

var (
	configFile string
	envFile    string
	logLevel   string
	timeout    time.Duration
)

var rootCmd = &cobra.Command{
	Use:           "oic-promote",
	Short:         "Promote OIC integrations between environments",
	SilenceUsage:  true,
	SilenceErrors: false,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		setupLogging(logLevel)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "environments.yaml", "path to the environments configuration file")
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", "", "optional dotenv file with client secrets")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().DurationVar(&timeout, "timeout", 30*time.Minute, "overall run timeout")
}

func setupLogging(level string) {
	var lvl slog.Level
	switch strings.ToLower(level) {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lvl})))
}

// loadConfig loads and validates the promotion configuration
func loadConfig() (*config.Config, error) {
	return config.Load(configFile, envFile)
}

// buildTarget assembles a promotion target for one configured
// environment: signing identity, token endpoint coordinates and a
// resource client for the OIC instance.
func buildTarget(env *config.Environment) (*promote.Target, error) {
	identity, err := assertion.LoadIdentityFromFile(env.PrivateKeyFile, env.KeyID, env.ClientID)
	if err != nil {
		return nil, err
	}

	client, err := oicpromote.NewClient(oicpromote.Config{BaseURL: env.OicURL})
	if err != nil {
		return nil, err
	}

	return &promote.Target{
		Name:              env.Name,
		TokenURL:          env.TokenURL(),
		ClientID:          env.ClientID,
		ClientSecret:      env.ClientSecret,
		Scope:             env.Scope,
		Identity:          identity,
		Subject:           env.SubjectUser,
		Audience:          env.Audience,
		AssertionValidity: env.AssertionValidity(),
		Client:            client,
	}, nil
}

// authenticate mints a fresh assertion for the target environment and
// exchanges it for a bearer token.
func authenticate(ctx context.Context, target *promote.Target) (*types.AccessToken, error) {
	asrt, err := target.Identity.Build(target.Subject, target.Audience, target.AssertionValidity)
	if err != nil {
		return nil, err
	}
	return idp.NewExchanger(nil).Exchange(ctx, idp.ExchangeConfig{
		TokenURL:     target.TokenURL,
		ClientID:     target.ClientID,
		ClientSecret: target.ClientSecret,
		Scope:        target.Scope,
	}, asrt)
}

// parseIntegrationArgs parses CODE|VERSION command line arguments
func parseIntegrationArgs(args []string) ([]oicpromote.IntegrationID, error) {
	ids := make([]oicpromote.IntegrationID, 0, len(args))
	for _, arg := range args {
		code, version, ok := strings.Cut(arg, "|")
		if !ok || code == "" || version == "" {
			return nil, fmt.Errorf("invalid integration %q, want CODE|VERSION", arg)
		}
		ids = append(ids, oicpromote.IntegrationID{Code: code, Version: version})
	}
	return ids, nil
}

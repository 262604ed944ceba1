package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
)

var exportOutDir string

var exportCmd = &cobra.Command{
	Use:   "export <environment> <CODE|VERSION> [CODE|VERSION...]",
	Short: "Export integration archives from an environment to local .iar files",
	Args:  cobra.MinimumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		env, err := cfg.Env(args[0])
		if err != nil {
			return err
		}
		ids, err := parseIntegrationArgs(args[1:])
		if err != nil {
			return err
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

		for _, id := range ids {
			archive, err := target.Client.ExportIntegration(ctx, token, id)
			if err != nil {
				return err
			}
			outPath := filepath.Join(exportOutDir, fmt.Sprintf("%s_%s.iar", id.Code, id.Version))
			if err := os.WriteFile(outPath, archive, 0o600); err != nil {
				return fmt.Errorf("failed to write %s: %w", outPath, err)
			}
			slog.Info("exported integration",
				slog.String("integration", id.String()),
				slog.String("file", outPath),
				slog.Int("bytes", len(archive)))
		}
		return nil
	},
}

func init() {
	exportCmd.Flags().StringVarP(&exportOutDir, "out-dir", "o", ".", "directory for exported .iar files")
	rootCmd.AddCommand(exportCmd)
}

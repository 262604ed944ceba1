package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/oicops/oic-promote/pkg/promote"
)

var (
	promoteActivate   bool
	promoteReportFile string
)

var promoteCmd = &cobra.Command{
	Use:   "promote <source-env> <target-env> <CODE|VERSION> [CODE|VERSION...]",
	Short: "Promote integrations from one environment to another",
	Long: `Promote exports each integration archive from the source environment,
imports it into the target environment, patches the target's connection
properties, smoke-tests the connections and (optionally) activates the
imported integrations. The run report is written as JSON.`,
	Args: cobra.MinimumNArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		sourceEnv, err := cfg.Env(args[0])
		if err != nil {
			return err
		}
		targetEnv, err := cfg.Env(args[1])
		if err != nil {
			return err
		}
		ids, err := parseIntegrationArgs(args[2:])
		if err != nil {
			return err
		}

		source, err := buildTarget(sourceEnv)
		if err != nil {
			return err
		}
		target, err := buildTarget(targetEnv)
		if err != nil {
			return err
		}

		promoter, err := promote.New(source, target)
		if err != nil {
			return err
		}

		ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
		defer cancel()

		report, err := promoter.Run(ctx, promote.Plan{
			Integrations:      ids,
			ConnectionPatches: cfg.ConnectionPatches(targetEnv.Name),
			Activate:          promoteActivate,
		})
		if err != nil {
			return err
		}

		if err := writeReport(report, promoteReportFile); err != nil {
			return err
		}
		if !report.Succeeded {
			return fmt.Errorf("promotion from %s to %s finished with failures, see report", sourceEnv.Name, targetEnv.Name)
		}
		return nil
	},
}

func writeReport(report *promote.Report, path string) error {
	data, err := report.JSON()
	if err != nil {
		return fmt.Errorf("failed to render report: %w", err)
	}
	if path == "" || path == "-" {
		_, err = os.Stdout.Write(append(data, '\n'))
		return err
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write report %s: %w", path, err)
	}
	return nil
}

func init() {
	promoteCmd.Flags().BoolVar(&promoteActivate, "activate", true, "activate imported integrations after connection tests pass")
	promoteCmd.Flags().StringVar(&promoteReportFile, "report", "-", "report file path, - for stdout")
	rootCmd.AddCommand(promoteCmd)
}

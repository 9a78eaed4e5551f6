package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/zatekoja/Medicalreportanalysis/backend/internal/adapters/database"
	"github.com/zatekoja/Medicalreportanalysis/backend/internal/application/services"
	"github.com/zatekoja/Medicalreportanalysis/backend/internal/infrastructure/clients/analyzers"
	"github.com/zatekoja/Medicalreportanalysis/backend/internal/infrastructure/clients/postgres"
	"github.com/zatekoja/Medicalreportanalysis/backend/internal/infrastructure/extraction"
	"github.com/zatekoja/Medicalreportanalysis/backend/internal/infrastructure/observability"
	"github.com/zatekoja/Medicalreportanalysis/backend/pkg/config"
)

func main() {
	rootCmd := &cobra.Command{
		Use:           "reportctl",
		Short:         "Medical report analysis tooling",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.AddCommand(analyzeCmd())
	rootCmd.AddCommand(migrateCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func loadConfig() (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	// stdout carries the command output
	observability.InitLogger(os.Stderr, cfg.OTEL.ServiceName+"-cli", cfg.Server.Environment, cfg.Server.LogLevel)
	return cfg, nil
}

func analyzeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "analyze <file>",
		Short: "Extract and analyze a report without storing it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			document, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("reading %s: %w", args[0], err)
			}

			chain, err := analyzers.NewChain(&cfg.Oracle)
			if err != nil {
				return err
			}
			defer chain.Close()

			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}

			text, err := extraction.NewPDFTextExtractor(&cfg.Extraction, extraction.ExecRunner{}).Extract(ctx, document)
			if err != nil {
				return fmt.Errorf("extracting text: %w", err)
			}

			data, err := services.NewAnalysisService(chain, cfg.Oracle.MaxInputChars).Analyze(ctx, text)
			if err != nil {
				return err
			}

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(struct {
				IsAbnormal bool `json:"isAbnormal"`
				Analysis   any  `json:"analysis"`
			}{IsAbnormal: data.IsAbnormal(), Analysis: data})
		},
	}
}

func migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply the report schema to PostgreSQL",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			client, err := postgres.NewClient(&cfg.Database)
			if err != nil {
				return err
			}
			defer client.Close()

			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}
			if err := database.Migrate(ctx, client); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "migrations applied")
			return nil
		},
	}
}

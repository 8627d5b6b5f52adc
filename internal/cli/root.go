// Package cli implements the operator command line.
package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/example/meubles-dor/internal/bootstrap"
	"github.com/example/meubles-dor/internal/config"
	"github.com/spf13/cobra"
)

var envFile string

var rootCmd = &cobra.Command{
	Use:   "meubles-admin",
	Short: "Operate the Meubles D'Or storefront backend",
	Long: `meubles-admin manages the storefront data directly: schema migration,
catalogue and order inspection, order status changes, image uploads and a
live view of backend changes.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", "", "dotenv file to load (default .env)")
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(envFile)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	return cfg, nil
}

// withServices opens the backend for the duration of fn.
func withServices(ctx context.Context, migrate bool, fn func(*config.Config, *bootstrap.Services) error) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	services, err := bootstrap.Open(ctx, cfg, migrate)
	if err != nil {
		return err
	}
	defer services.Close()
	return fn(cfg, services)
}

package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/artpar/imgquota/config"
)

var (
	// Global flags
	cfgFile string
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "imgquota",
	Short: "Usage quotas for image conversion",
	Long: `imgquota meters image conversions per identity and enforces plan limits.

Each identity is on a plan (FREE, PRO, BUSINESS by default) that allows a
number of conversions per day or per month. Every admitted conversion is
appended to a usage ledger (memory, sqlite or redis).

Quick start:
  imgquota serve             # Start the HTTP API
  imgquota plans             # Show the plan catalog

Inspection:
  imgquota usage summary --identity=user_123 --plan=FREE
  imgquota window --granularity=month`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "imgquota.yaml", "config file path")
}

// loadConfig loads the config file, falling back to IMGQUOTA_* variables.
func loadConfig() (*config.Config, error) {
	cfg, err := config.LoadWithFallback(cfgFile)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	return cfg, nil
}

const (
	checkMark = "\033[32m✓\033[0m"
	crossMark = "\033[31m✗\033[0m"
)

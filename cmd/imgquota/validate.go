package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/artpar/imgquota/bootstrap"
	"github.com/artpar/imgquota/config"
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate configuration before deployment",
	Long: `Validate the imgquota configuration file.

Checks:
  - YAML syntax is valid
  - Ledger backend, strategy and id format are known
  - Every plan has an ID, a day/month granularity and a positive limit
  - Ledger is reachable (optional)

Examples:
  imgquota validate
  imgquota validate --check-ledger --config /etc/imgquota/imgquota.yaml`,
	Args: cobra.NoArgs,
	RunE: runValidate,
}

var validateCheckLedger bool

func init() {
	rootCmd.AddCommand(validateCmd)

	validateCmd.Flags().BoolVar(&validateCheckLedger, "check-ledger", false, "check that the ledger backend is reachable")
}

func runValidate(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Validating %s...\n\n", cfgFile)

	if _, err := os.Stat(cfgFile); os.IsNotExist(err) {
		fmt.Fprintf(out, "  %s Config file exists\n", crossMark)
		return fmt.Errorf("config file not found: %s", cfgFile)
	}
	fmt.Fprintf(out, "  %s Config file exists\n", checkMark)

	cfg, err := config.Load(cfgFile)
	if err != nil {
		fmt.Fprintf(out, "  %s Config valid\n", crossMark)
		return fmt.Errorf("config error: %w", err)
	}
	fmt.Fprintf(out, "  %s Config valid\n", checkMark)

	strategy := cfg.Enforcement.Strategy
	if strategy == "" {
		strategy = "auto"
	}
	fmt.Fprintf(out, "  %s Ledger: %s\n", checkMark, cfg.Ledger.Backend)
	fmt.Fprintf(out, "  %s Strategy: %s\n", checkMark, strategy)
	fmt.Fprintf(out, "  %s Plans configured: %d\n", checkMark, len(cfg.Plans))
	if len(cfg.Auth.ServiceKeyHashes) == 0 {
		fmt.Fprintf(out, "  %s Service key: none (API is open)\n", crossMark)
	} else {
		fmt.Fprintf(out, "  %s Service keys: %d\n", checkMark, len(cfg.Auth.ServiceKeyHashes))
	}

	if validateCheckLedger {
		if err := checkLedgerReachable(cfg); err != nil {
			fmt.Fprintf(out, "  %s Ledger reachable\n", crossMark)
			fmt.Fprintf(out, "      Error: %v\n", err)
		} else {
			fmt.Fprintf(out, "  %s Ledger reachable\n", checkMark)
		}
	}

	fmt.Fprintln(out)
	fmt.Fprintln(out, "Configuration is valid.")
	return nil
}

func checkLedgerReachable(cfg *config.Config) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	ledger, err := bootstrap.OpenLedger(ctx, cfg.Ledger, zerolog.Nop())
	if err != nil {
		return err
	}
	defer ledger.Close()
	return ledger.Ping(ctx)
}

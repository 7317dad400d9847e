package main

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/artpar/imgquota/adapters/clock"
	"github.com/artpar/imgquota/app"
	"github.com/artpar/imgquota/bootstrap"
	"github.com/artpar/imgquota/domain/quota"
	"github.com/artpar/imgquota/ports"
)

var usageCmd = &cobra.Command{
	Use:   "usage",
	Short: "View usage for an identity",
	Long: `View usage recorded in the ledger.

The memory backend starts empty on every run, so these commands are useful
with the sqlite and redis backends.

Examples:
  imgquota usage summary --identity=user_123 --plan=FREE
  imgquota usage recent --identity=user_123 --limit=20`,
}

var usageSummaryCmd = &cobra.Command{
	Use:   "summary",
	Short: "Show usage for the current period",
	Args:  cobra.NoArgs,
	RunE:  runUsageSummary,
}

var usageRecentCmd = &cobra.Command{
	Use:   "recent",
	Short: "Show recent ledger entries",
	Args:  cobra.NoArgs,
	RunE:  runUsageRecent,
}

var (
	usageIdentity string
	usagePlan     string
	usageLimit    int
)

func init() {
	rootCmd.AddCommand(usageCmd)

	usageCmd.AddCommand(usageSummaryCmd)
	usageCmd.AddCommand(usageRecentCmd)

	usageCmd.PersistentFlags().StringVar(&usageIdentity, "identity", "", "identity (required)")
	usageCmd.MarkPersistentFlagRequired("identity")

	usageSummaryCmd.Flags().StringVar(&usagePlan, "plan", "FREE", "plan ID")
	usageRecentCmd.Flags().IntVar(&usageLimit, "limit", 20, "number of entries to show")
}

// openEnforcer opens the configured ledger and builds an enforcer on it.
func openEnforcer(ctx context.Context) (*app.Enforcer, ports.Ledger, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, nil, err
	}
	logger := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).Level(zerolog.WarnLevel)

	ledger, err := bootstrap.OpenLedger(ctx, cfg.Ledger, logger)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open ledger: %w", err)
	}
	enforcer, err := bootstrap.NewEnforcer(cfg, ledger, clock.Real{}, logger, nil)
	if err != nil {
		ledger.Close()
		return nil, nil, err
	}
	return enforcer, ledger, nil
}

func runUsageSummary(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	enforcer, ledger, err := openEnforcer(ctx)
	if err != nil {
		return err
	}
	defer ledger.Close()

	d, err := enforcer.Status(ctx, usageIdentity, usagePlan)
	if err != nil {
		return fmt.Errorf("failed to get usage: %w", err)
	}
	summary, err := ledger.Summarize(ctx, usageIdentity, d.Window)
	if err != nil {
		return fmt.Errorf("failed to summarize usage: %w", err)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Identity:  %s\n", usageIdentity)
	fmt.Fprintf(out, "Plan:      %s\n", d.PlanID)
	fmt.Fprintf(out, "Period:    %s to %s\n",
		d.Window.Start.Format("2006-01-02 15:04"), d.Window.End.Format("2006-01-02 15:04"))
	fmt.Fprintln(out)
	fmt.Fprintf(out, "Used:      %d / %d (%.1f%%)\n", d.Used, d.Limit, d.PercentUsed)
	fmt.Fprintf(out, "Remaining: %d\n", d.Remaining)
	fmt.Fprintf(out, "Entries:   %d (%d failed)\n", summary.Entries, summary.Failed)
	fmt.Fprintf(out, "Bytes:     %s\n", formatBytes(summary.Bytes))
	fmt.Fprintf(out, "Resets:    %s\n", d.Window.ResetAt().Format(time.RFC3339))
	if d.WarningLevel != quota.WarningNone {
		fmt.Fprintf(out, "Warning:   %s\n", d.WarningLevel)
	}
	return nil
}

func runUsageRecent(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	_, ledger, err := openEnforcer(ctx)
	if err != nil {
		return err
	}
	defer ledger.Close()

	entries, err := ledger.Recent(ctx, usageIdentity, usageLimit)
	if err != nil {
		return fmt.Errorf("failed to list entries: %w", err)
	}
	if len(entries) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "No usage recorded.")
		return nil
	}

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "TIME\tID\tPLAN\tQTY\tBYTES\tSTATUS")
	for _, e := range entries {
		fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%s\t%s\n",
			e.Timestamp.Format(time.RFC3339), e.ID, e.PlanID, e.Quantity, formatBytes(e.Bytes), e.Status)
	}
	return w.Flush()
}

func formatBytes(b int64) string {
	const unit = 1024
	if b < unit {
		return fmt.Sprintf("%d B", b)
	}
	div, exp := int64(unit), 0
	for n := b / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(b)/float64(div), "KMGTPE"[exp])
}

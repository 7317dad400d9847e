package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/artpar/imgquota/app"
	"github.com/artpar/imgquota/domain/quota"
	"github.com/artpar/imgquota/domain/usage"
)

var consumeCmd = &cobra.Command{
	Use:   "consume",
	Short: "Record a conversion against an identity's quota",
	Long: `Try to consume quota for an identity, exactly like POST /v1/consume.

Exits non-zero when the request is denied.

Examples:
  imgquota consume --identity=user_123 --plan=FREE
  imgquota consume --identity=user_123 --plan=PRO --quantity=5 --bytes=1048576`,
	Args: cobra.NoArgs,
	RunE: runConsume,
}

// errDenied signals a denied request to the shell.
var errDenied = errors.New("quota exceeded")

var (
	consumeIdentity string
	consumePlan     string
	consumeQuantity int64
	consumeBytes    int64
	consumeStatus   string
)

func init() {
	rootCmd.AddCommand(consumeCmd)

	consumeCmd.Flags().StringVar(&consumeIdentity, "identity", "", "identity (required)")
	consumeCmd.Flags().StringVar(&consumePlan, "plan", "FREE", "plan ID")
	consumeCmd.Flags().Int64Var(&consumeQuantity, "quantity", 1, "units to consume")
	consumeCmd.Flags().Int64Var(&consumeBytes, "bytes", 0, "converted size in bytes")
	consumeCmd.Flags().StringVar(&consumeStatus, "status", string(usage.StatusSuccess), "success, failed or pending")
	consumeCmd.MarkFlagRequired("identity")
}

func runConsume(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	enforcer, ledger, err := openEnforcer(ctx)
	if err != nil {
		return err
	}
	defer ledger.Close()

	d, err := enforcer.TryConsume(ctx, app.Request{
		Identity: consumeIdentity,
		PlanID:   consumePlan,
		Quantity: consumeQuantity,
		Bytes:    consumeBytes,
		Status:   usage.Status(consumeStatus),
	})
	if err != nil {
		return fmt.Errorf("%s: %w", quota.Code(err), err)
	}

	out := cmd.OutOrStdout()
	if !d.Admitted {
		fmt.Fprintf(out, "%s Denied: %s\n", crossMark, d.Reason)
		fmt.Fprintf(out, "  Used %d of %d, resets %s\n", d.Used, d.Limit, d.Window.ResetAt().Format(time.RFC3339))
		return errDenied
	}

	fmt.Fprintf(out, "%s Admitted (entry %s)\n", checkMark, d.EntryID)
	fmt.Fprintf(out, "  Used %d of %d, %d remaining\n", d.Used, d.Limit, d.Remaining)
	return nil
}

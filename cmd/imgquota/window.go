package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/artpar/imgquota/domain/period"
)

var windowCmd = &cobra.Command{
	Use:   "window",
	Short: "Compute a quota period window",
	Long: `Print the period window containing a reference time.

Examples:
  imgquota window --granularity=day
  imgquota window --granularity=month --at=2024-02-10T08:00:00Z
  imgquota window --granularity=month --tz=Europe/Berlin`,
	Args: cobra.NoArgs,
	RunE: runWindow,
}

var (
	windowGranularity string
	windowAt          string
	windowTZ          string
)

func init() {
	rootCmd.AddCommand(windowCmd)

	windowCmd.Flags().StringVar(&windowGranularity, "granularity", "day", "day or month")
	windowCmd.Flags().StringVar(&windowAt, "at", "", "reference time, RFC3339 (default: now)")
	windowCmd.Flags().StringVar(&windowTZ, "tz", "", "IANA time zone for the reference time")
}

func runWindow(cmd *cobra.Command, args []string) error {
	g, err := period.ParseGranularity(windowGranularity)
	if err != nil {
		return err
	}

	ref := time.Now()
	if windowAt != "" {
		if ref, err = time.Parse(time.RFC3339, windowAt); err != nil {
			return fmt.Errorf("invalid --at: %w", err)
		}
	}
	if windowTZ != "" {
		loc, err := time.LoadLocation(windowTZ)
		if err != nil {
			return fmt.Errorf("invalid --tz: %w", err)
		}
		ref = ref.In(loc)
	}

	w, err := period.Compute(g, ref)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Granularity: %s\n", g)
	fmt.Fprintf(out, "Start:       %s\n", w.Start.Format(time.RFC3339Nano))
	fmt.Fprintf(out, "End:         %s\n", w.End.Format(time.RFC3339Nano))
	fmt.Fprintf(out, "Resets at:   %s\n", w.ResetAt().Format(time.RFC3339))
	return nil
}

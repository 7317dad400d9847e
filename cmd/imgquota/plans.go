package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

var plansCmd = &cobra.Command{
	Use:   "plans",
	Short: "List the plan catalog",
	Long: `List the configured plans and their limits.

Plans come from the plans section of the config file. Without one the
built-in catalog is used: FREE 20/day, PRO 500/day, BUSINESS 10000/month.

Examples:
  imgquota plans
  imgquota plans --config /etc/imgquota/imgquota.yaml`,
	Args: cobra.NoArgs,
	RunE: runPlans,
}

func init() {
	rootCmd.AddCommand(plansCmd)
}

func runPlans(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	catalog, err := cfg.Catalog()
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tNAME\tLIMIT\tPER")
	for _, p := range catalog.Plans() {
		fmt.Fprintf(w, "%s\t%s\t%d\t%s\n", p.ID, p.Name, p.Max, p.Granularity)
	}
	return w.Flush()
}

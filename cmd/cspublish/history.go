package main

import (
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/cuemby/cspublish/pkg/types"
	"github.com/spf13/cobra"
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show recent publish runs",
	RunE: func(cmd *cobra.Command, args []string) error {
		limit, _ := cmd.Flags().GetInt("limit")

		store, err := openStore()
		if err != nil {
			return err
		}
		defer store.Close()

		runs, err := store.ListRuns(limit)
		if err != nil {
			return err
		}
		if len(runs) == 0 {
			fmt.Println("No runs recorded")
			return nil
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 0, 3, ' ', 0)
		fmt.Fprintln(w, "STARTED\tACTION\tCLOUD SERVICE\tSLOT\tSTATUS\tPHASE\tDURATION\tDETAIL")
		for _, r := range runs {
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
				r.StartedAt.Local().Format("2006-01-02 15:04:05"),
				r.Action,
				r.CloudService,
				r.Slot,
				statusColor(r.Status),
				r.Phase,
				runDuration(r),
				runDetail(r),
			)
		}
		return w.Flush()
	},
}

func init() {
	historyCmd.Flags().Int("limit", 20, "Maximum number of runs to show (0 shows all)")
}

func runDuration(r *types.RunRecord) string {
	if r.FinishedAt.IsZero() {
		return "-"
	}
	return r.FinishedAt.Sub(r.StartedAt).Round(time.Second).String()
}

func runDetail(r *types.RunRecord) string {
	if r.Error != "" {
		return r.Error
	}
	return r.URL
}

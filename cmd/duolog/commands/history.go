package commands

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/cschmidt0121/TA-DUOSecurity2FA/internal/engine"
)

func newHistoryCmd(g *globalFlags) *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "history",
		Short: "List recent stream runs from the run history",
		RunE: func(cmd *cobra.Command, _ []string) error {
			e, err := engine.Bootstrap(cmd.Context(), g.engineConfig())
			if err != nil {
				return err
			}
			defer e.Close()

			rows, err := e.History(cmd.Context(), limit)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			for _, r := range rows {
				after := "-"
				if r.CheckpointAfter != nil {
					after = fmt.Sprint(*r.CheckpointAfter)
				}
				fmt.Fprintf(out, "%s  %s  %-20s %-13s emitted=%d checkpoint=%s",
					r.StartedAt.Local().Format(time.DateTime), r.RunID[:min(8, len(r.RunID))],
					r.Stream, r.Status, r.Emitted, after)
				if r.Error != "" {
					fmt.Fprintf(out, "  err=%q", r.Error)
				}
				fmt.Fprintln(out)
			}
			return nil
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Number of rows to show")
	return cmd
}

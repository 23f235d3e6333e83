package commands

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/cschmidt0121/TA-DUOSecurity2FA/internal/engine"
)

func newCheckpointsCmd(g *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "checkpoints",
		Short: "Show the stored checkpoint of each stream",
		RunE: func(cmd *cobra.Command, _ []string) error {
			e, err := engine.Bootstrap(cmd.Context(), g.engineConfig())
			if err != nil {
				return err
			}
			defer e.Close()

			for _, cp := range e.Checkpoints() {
				when := "-"
				if cp.Cursor.Valid {
					when = time.Unix(cp.Cursor.Value, 0).UTC().Format(time.RFC3339)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%-20s %-12s %s\n", cp.Stream.Name(), cp.Cursor.String(), when)
			}
			return nil
		},
	}
}

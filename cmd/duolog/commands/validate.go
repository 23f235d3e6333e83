package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/cschmidt0121/TA-DUOSecurity2FA/internal/engine"
)

func newValidateCmd(g *globalFlags) *cobra.Command {
	var offline bool
	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Check configuration and Admin API reachability",
		RunE: func(cmd *cobra.Command, _ []string) error {
			e, err := engine.Bootstrap(cmd.Context(), g.engineConfig())
			if err != nil {
				return err
			}
			defer e.Close()

			if !offline {
				if err := e.Validate(cmd.Context()); err != nil {
					return err
				}
			}
			fmt.Fprintln(cmd.OutOrStdout(), "configuration OK")
			return nil
		},
	}
	cmd.Flags().BoolVar(&offline, "offline", false, "Skip the Admin API ping")
	return cmd
}

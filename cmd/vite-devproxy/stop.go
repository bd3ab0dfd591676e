package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newStopCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "stop",
		Short: "Stop the dev server recorded in the PID file",
		Long: `Stop the Vite dev server started by any vite-devproxy process for this
application root. The process group receives SIGTERM, then SIGKILL after a
short grace period. The PID file is removed.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			// The address is only needed for probing, which stop never does.
			sup := a.newSupervisor("")
			if err := sup.Stop(cmd.Context()); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "dev server stopped")
			return nil
		},
	}
}

package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/rathix/vite-devproxy/internal/devserver"
)

func newLogsCommand(a *app) *cobra.Command {
	var lines int
	cmd := &cobra.Command{
		Use:   "logs",
		Short: "Print the end of the dev server log",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			path := a.newSupervisor("").Config().LogFile
			out, err := devserver.TailLog(path, lines)
			if errors.Is(err, os.ErrNotExist) {
				return fmt.Errorf("no dev server log at %s", path)
			}
			if err != nil {
				return err
			}
			for _, l := range out {
				fmt.Fprintln(cmd.OutOrStdout(), l)
			}
			return nil
		},
	}
	cmd.Flags().IntVarP(&lines, "lines", "n", 50, "number of lines to show")
	return cmd
}

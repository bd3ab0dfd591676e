package main

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/rathix/vite-devproxy/internal/devserver"
)

type statusReport struct {
	State string `json:"state"`
	PID   int    `json:"pid,omitempty"`
	Addr  string `json:"addr"`
}

func newStatusCommand(a *app) *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show whether the dev server is running",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			viteCfg, err := a.loadViteConfig(cmd.Context())
			if err != nil {
				return err
			}
			st := a.newSupervisor(viteCfg.Addr()).Status()
			return writeStatus(cmd.OutOrStdout(), st, asJSON)
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print status as JSON")
	return cmd
}

func writeStatus(w io.Writer, st devserver.Status, asJSON bool) error {
	report := statusReport{State: st.State.String(), PID: st.PID, Addr: st.Addr}
	if asJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(report)
	}
	if report.PID > 0 {
		_, err := fmt.Fprintf(w, "dev server %s (pid %d) at %s\n", report.State, report.PID, report.Addr)
		return err
	}
	_, err := fmt.Fprintf(w, "dev server %s at %s\n", report.State, report.Addr)
	return err
}

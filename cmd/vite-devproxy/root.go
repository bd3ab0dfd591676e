package main

import (
	"context"
	"errors"
	"io"
	"log/slog"

	"github.com/spf13/cobra"

	appconfig "github.com/rathix/vite-devproxy/internal/config"
	"github.com/rathix/vite-devproxy/internal/devserver"
	"github.com/rathix/vite-devproxy/internal/viteconfig"
)

// app carries the state shared by all subcommands once flags are parsed.
type app struct {
	opts     options
	logger   *slog.Logger
	closeLog io.Closer
}

func newRootCommand() *cobra.Command {
	a := &app{logger: slog.Default()}

	rootCmd := &cobra.Command{
		Use:   "vite-devproxy",
		Short: "Serve a Vite dev server through your application's origin",
		Long: `vite-devproxy fronts a host application and forwards every request under the
Vite base path, including the HMR WebSocket, to the Vite dev server. The dev
server is started on the first asset request and shared by every process
that points at the same application root.`,
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: a.setup,
		PersistentPostRun: func(*cobra.Command, []string) { a.teardown() },
	}
	a.opts.bindGlobalFlags(rootCmd.PersistentFlags())

	rootCmd.AddCommand(
		newServeCommand(a),
		newStopCommand(a),
		newStatusCommand(a),
		newLogsCommand(a),
		newConfigCommand(a),
		newVersionCommand(),
	)
	return rootCmd
}

// setup merges the settings file into the flag values and installs the logger.
func (a *app) setup(cmd *cobra.Command, _ []string) error {
	var settings *appconfig.Config
	var warnings []error
	if a.opts.ConfigFile != "" {
		settings, warnings = appconfig.Load(a.opts.ConfigFile)
		if settings == nil {
			return errors.Join(warnings...)
		}
	}
	a.opts.applySettings(cmd.Flags(), settings)

	a.logger, a.closeLog = setupLogger(a.opts.LogFormat, a.opts.Debug, a.opts.LogFile)
	slog.SetDefault(a.logger)
	for _, e := range warnings {
		a.logger.Warn("Config validation warning", "error", e)
	}
	return nil
}

func (a *app) teardown() {
	if a.closeLog != nil {
		_ = a.closeLog.Close()
	}
}

// loadViteConfig evaluates the Vite config once. Failure is fatal for every
// command that needs the dev server address.
func (a *app) loadViteConfig(ctx context.Context) (viteconfig.Config, error) {
	loader := a.opts.viteLoader()
	a.logger.Debug("loading vite config", "command", loader.String())
	return viteconfig.NewProvider(loader).Load(ctx)
}

func (a *app) newSupervisor(addr string) *devserver.Supervisor {
	return devserver.NewSupervisor(a.opts.supervisorConfig(addr), devserver.WithLogger(a.logger))
}

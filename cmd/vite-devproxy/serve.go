package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	appconfig "github.com/rathix/vite-devproxy/internal/config"
	"github.com/rathix/vite-devproxy/internal/server"
)

const shutdownTimeout = 10 * time.Second

func newServeCommand(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the proxy in front of the host application",
		Long: `Run an HTTP server that sends Vite asset and HMR traffic to the dev server
and everything else to the host application (--app) or a static directory
(--public-dir).`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.serve(cmd.Context())
		},
	}
	a.opts.bindServeFlags(cmd.Flags())
	return cmd
}

// hostHandler returns the handler for every request the dispatcher passes on.
func (a *app) hostHandler() (http.Handler, error) {
	switch {
	case a.opts.Upstream != "":
		a.logger.Info("Proxying application requests", "upstream", a.opts.Upstream)
		return server.NewUpstreamHandler(a.opts.Upstream, a.logger)
	case a.opts.PublicDir != "":
		dir := a.opts.absPath(a.opts.PublicDir)
		a.logger.Info("Serving application files", "dir", dir)
		return server.NewDirHandler(dir)
	default:
		a.logger.Warn("No --app or --public-dir given, non-asset requests will get 404")
		return http.NotFoundHandler(), nil
	}
}

func (a *app) serve(ctx context.Context) error {
	logger := a.logger
	logger.Info("Starting vite-devproxy", "version", Version)

	viteCfg, err := a.loadViteConfig(ctx)
	if err != nil {
		return err
	}
	supervisor := a.newSupervisor(viteCfg.Addr())
	if supervisor.Config().Command == "" {
		logger.Info("Dev server auto run disabled, expecting it to be started separately", "addr", viteCfg.Addr())
	}

	proxy, err := server.NewDevProxy(viteCfg, supervisor,
		server.WithLogger(logger),
		server.WithMountPrefix(a.opts.MountPrefix),
		server.WithDefaultReadTimeout(a.opts.ReadTimeout),
		server.WithKeepalive(a.opts.Keepalive),
	)
	if err != nil {
		return err
	}

	next, err := a.hostHandler()
	if err != nil {
		return fmt.Errorf("failed to create application handler: %w", err)
	}

	watcherCtx, watcherCancel := context.WithCancel(ctx)
	defer watcherCancel()
	a.watchConfig(watcherCtx)

	srv := &http.Server{
		Addr:              a.opts.ListenAddr,
		Handler:           proxy.Middleware(next),
		ReadHeaderTimeout: 10 * time.Second,
	}

	serverError := make(chan error, 1)
	go func() {
		slog.Info("Listening (HTTP)", "addr", a.opts.ListenAddr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverError <- err
		}
	}()

	select {
	case <-ctx.Done():
		logger.Info("Shutting down gracefully...")
	case err := <-serverError:
		return fmt.Errorf("server error: %w", err)
	}

	watcherCancel()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	shutdownErr := srv.Shutdown(shutdownCtx)
	proxy.Shutdown(shutdownCtx)
	if a.opts.StopOnExit {
		if err := supervisor.Stop(shutdownCtx); err != nil {
			logger.Warn("Failed to stop dev server", "error", err)
		} else {
			logger.Info("Dev server stopped")
		}
	}
	if shutdownErr != nil {
		return fmt.Errorf("server forced to shutdown: %w", shutdownErr)
	}
	logger.Info("Server stopped")
	return nil
}

// watchConfig reports edits to the Vite config and the settings file. The
// resolved configuration is never reloaded, so a restart is required.
func (a *app) watchConfig(ctx context.Context) {
	paths := []string{a.opts.viteLoader().ConfigPath()}
	settingsPath := ""
	if a.opts.ConfigFile != "" {
		settingsPath, _ = filepath.Abs(a.opts.ConfigFile)
		paths = append(paths, settingsPath)
	}

	w := appconfig.NewWatcher(paths, func(path string) {
		if path == settingsPath {
			if _, errs := appconfig.Load(path); len(errs) > 0 {
				for _, e := range errs {
					a.logger.Warn("Config validation warning", "error", e)
				}
			}
		}
		a.logger.Warn("Configuration changed, restart vite-devproxy to apply it", slog.String("path", path))
	}, a.logger)

	go func() {
		if err := w.Run(ctx); err != nil && ctx.Err() == nil {
			a.logger.Warn("config watcher stopped with error", "error", err)
		}
	}()
}

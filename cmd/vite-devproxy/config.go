package main

import (
	"io"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/rathix/vite-devproxy/internal/viteconfig"
)

// resolvedConfig is what the config command prints.
type resolvedConfig struct {
	ViteConfig string            `yaml:"viteConfig"`
	Loader     string            `yaml:"loader"`
	Base       string            `yaml:"base"`
	Host       string            `yaml:"host"`
	Port       int               `yaml:"port"`
	DevServer  resolvedDevServer `yaml:"devServer"`
}

type resolvedDevServer struct {
	Command  string `yaml:"command"`
	AutoRun  bool   `yaml:"autoRun"`
	LockFile string `yaml:"lockFile"`
	PIDFile  string `yaml:"pidFile"`
	LogFile  string `yaml:"logFile"`
}

func newConfigCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Print the resolved dev server configuration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			viteCfg, err := a.loadViteConfig(cmd.Context())
			if err != nil {
				return err
			}
			return writeConfig(cmd.OutOrStdout(), a.describe(viteCfg))
		},
	}
}

func (a *app) describe(viteCfg viteconfig.Config) resolvedConfig {
	loader := a.opts.viteLoader()
	sup := a.newSupervisor(viteCfg.Addr()).Config()
	base, _ := viteCfg.Base()
	return resolvedConfig{
		ViteConfig: loader.ConfigPath(),
		Loader:     loader.String(),
		Base:       base,
		Host:       viteCfg.Host(),
		Port:       viteCfg.Port(),
		DevServer: resolvedDevServer{
			Command:  a.opts.DevCommand,
			AutoRun:  a.opts.AutoRun,
			LockFile: sup.LockFile,
			PIDFile:  sup.PIDFile,
			LogFile:  sup.LogFile,
		},
	}
}

func writeConfig(w io.Writer, cfg resolvedConfig) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(cfg); err != nil {
		return err
	}
	return enc.Close()
}

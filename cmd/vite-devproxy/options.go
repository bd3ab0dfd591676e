package main

import (
	"path/filepath"
	"time"

	"github.com/spf13/pflag"

	appconfig "github.com/rathix/vite-devproxy/internal/config"
	"github.com/rathix/vite-devproxy/internal/devserver"
	"github.com/rathix/vite-devproxy/internal/server"
	"github.com/rathix/vite-devproxy/internal/viteconfig"
)

const defaultListenAddr = "127.0.0.1:3036"

// options holds the resolved settings with precedence Flag > Env > settings
// file > Default.
type options struct {
	ConfigFile string
	AppRoot    string
	Debug      bool
	LogFormat  string
	LogFile    string

	DevCommand string
	AutoRun    bool
	LockFile   string
	PIDFile    string
	DevLogFile string

	ViteConfigFile string
	JSRuntime      string

	// serve only
	ListenAddr  string
	MountPrefix string
	Upstream    string
	PublicDir   string
	StopOnExit  bool
	ReadTimeout time.Duration
	Keepalive   time.Duration
}

// bindGlobalFlags registers the flags shared by every subcommand.
func (o *options) bindGlobalFlags(fs *pflag.FlagSet) {
	fs.StringVar(&o.ConfigFile, "config", getEnv(envConfigFile, ""), "path to YAML settings file")
	fs.StringVar(&o.AppRoot, "app-root", getEnv(envAppRoot, "."), "application root containing the Vite config")
	fs.BoolVar(&o.Debug, "debug", getEnvBool(envDebug, false), "enable debug logging")
	fs.StringVar(&o.LogFormat, "log-format", getEnv(envLogFormat, "text"), "log format (text or json)")
	fs.StringVar(&o.LogFile, "log-file", getEnv(envLogFile, ""), "also write logs to this rotating file")

	fs.StringVar(&o.DevCommand, "dev-command", getEnv(envDevCommand, ""), "shell command that starts the Vite dev server")
	fs.BoolVar(&o.AutoRun, "auto-run", getEnvBool(envAutoRun, true), "start the dev server on demand")
	fs.StringVar(&o.LockFile, "lock-file", getEnv(envLockFile, ""), "spawn lock file (default <app-root>/tmp/vite_dev_server.lock)")
	fs.StringVar(&o.PIDFile, "pid-file", getEnv(envPIDFile, ""), "PID file (default <app-root>/tmp/vite_dev_server.pid)")
	fs.StringVar(&o.DevLogFile, "dev-log-file", getEnv(envDevLogFile, ""), "dev server output (default <app-root>/log/vite_dev_server.log)")

	fs.StringVar(&o.ViteConfigFile, "vite-config", getEnv(envViteConfig, ""), "Vite config file relative to the app root (default "+viteconfig.DefaultConfigFile+")")
	fs.StringVar(&o.JSRuntime, "js-runtime", getEnv(viteconfig.RuntimeEnv, ""), "JavaScript runtime used to evaluate the Vite config (default node)")
}

// bindServeFlags registers the flags of the serve command.
func (o *options) bindServeFlags(fs *pflag.FlagSet) {
	fs.StringVar(&o.ListenAddr, "listen-addr", getEnv(envListenAddr, defaultListenAddr), "listen address")
	fs.StringVar(&o.MountPrefix, "mount-prefix", getEnv(envMountPrefix, ""), "path the application is mounted under")
	fs.StringVar(&o.Upstream, "app", getEnv(envUpstream, ""), "URL of the host application to proxy non-asset requests to")
	fs.StringVar(&o.PublicDir, "public-dir", getEnv(envPublicDir, ""), "directory served for non-asset requests when --app is not set")
	fs.BoolVar(&o.StopOnExit, "stop-on-exit", getEnvBool(envStopOnExit, false), "stop the dev server when serve exits")
	fs.DurationVar(&o.ReadTimeout, "read-timeout", getEnvDuration(envReadTimeout, server.DefaultReadTimeout), "timeout for one proxied HTTP exchange")
	fs.DurationVar(&o.Keepalive, "keepalive", getEnvDuration(envKeepalive, server.DefaultKeepalive), "browser WebSocket ping interval (0 disables)")
}

// applySettings fills every value that was set neither by flag nor by
// environment from the settings file.
func (o *options) applySettings(fs *pflag.FlagSet, s *appconfig.Config) {
	if s == nil {
		return
	}
	unset := func(flag, env string) bool {
		return !fs.Changed(flag) && !envSet(env)
	}

	setString := func(dst *string, val, flag, env string) {
		if val != "" && unset(flag, env) {
			*dst = val
		}
	}
	setString(&o.AppRoot, s.AppRoot, "app-root", envAppRoot)
	setString(&o.LogFormat, s.Log.Format, "log-format", envLogFormat)
	setString(&o.LogFile, s.Log.File, "log-file", envLogFile)
	setString(&o.DevCommand, s.DevServer.Command, "dev-command", envDevCommand)
	setString(&o.LockFile, s.DevServer.LockFile, "lock-file", envLockFile)
	setString(&o.PIDFile, s.DevServer.PIDFile, "pid-file", envPIDFile)
	setString(&o.DevLogFile, s.DevServer.LogFile, "dev-log-file", envDevLogFile)
	setString(&o.ViteConfigFile, s.Vite.ConfigFile, "vite-config", envViteConfig)
	setString(&o.JSRuntime, s.Vite.JSRuntime, "js-runtime", viteconfig.RuntimeEnv)
	setString(&o.ListenAddr, s.ListenAddr, "listen-addr", envListenAddr)
	setString(&o.MountPrefix, s.MountPrefix, "mount-prefix", envMountPrefix)
	setString(&o.Upstream, s.Upstream, "app", envUpstream)
	setString(&o.PublicDir, s.PublicDir, "public-dir", envPublicDir)

	if s.Debug && unset("debug", envDebug) {
		o.Debug = true
	}
	if s.DevServer.AutoRun != nil && unset("auto-run", envAutoRun) {
		o.AutoRun = *s.DevServer.AutoRun
	}
	if s.DevServer.StopOnExit && unset("stop-on-exit", envStopOnExit) {
		o.StopOnExit = true
	}
	if s.Proxy.ReadTimeout != "" && unset("read-timeout", envReadTimeout) {
		o.ReadTimeout = s.Proxy.ReadTimeoutDuration()
	}
	if s.Proxy.Keepalive != "" && unset("keepalive", envKeepalive) {
		o.Keepalive = s.Proxy.KeepaliveDuration()
	}
}

// root returns the absolute application root.
func (o *options) root() string {
	if abs, err := filepath.Abs(o.AppRoot); err == nil {
		return abs
	}
	return o.AppRoot
}

func (o *options) viteLoader() *viteconfig.CommandLoader {
	return &viteconfig.CommandLoader{
		Runtime:    o.JSRuntime,
		ConfigFile: o.ViteConfigFile,
		Dir:        o.root(),
	}
}

// supervisorConfig maps the dev server settings. A disabled auto run is an
// empty command: the supervisor then never spawns.
func (o *options) supervisorConfig(addr string) devserver.Config {
	cfg := devserver.Config{
		Dir:      o.root(),
		Addr:     addr,
		LockFile: o.absPath(o.LockFile),
		PIDFile:  o.absPath(o.PIDFile),
		LogFile:  o.absPath(o.DevLogFile),
	}
	if o.AutoRun {
		cfg.Command = o.DevCommand
	}
	return cfg
}

func (o *options) absPath(p string) string {
	if p == "" || filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(o.root(), p)
}

package config

import "time"

// Config is the top-level configuration parsed from the YAML settings file.
// Zero values mean "use the flag, environment or built-in default".
type Config struct {
	ListenAddr  string          `yaml:"listenAddr"  json:"listenAddr"`
	AppRoot     string          `yaml:"appRoot"     json:"appRoot"`
	MountPrefix string          `yaml:"mountPrefix" json:"mountPrefix"`
	Upstream    string          `yaml:"upstream"    json:"upstream"`
	PublicDir   string          `yaml:"publicDir"   json:"publicDir"`
	Debug       bool            `yaml:"debug"       json:"debug"`
	Log         LogConfig       `yaml:"log"         json:"log"`
	DevServer   DevServerConfig `yaml:"devServer"   json:"devServer"`
	Vite        ViteConfig      `yaml:"vite"        json:"vite"`
	Proxy       ProxyConfig     `yaml:"proxy"       json:"proxy"`
}

// LogConfig selects the log format and an optional rotating log file.
type LogConfig struct {
	Format string `yaml:"format" json:"format"`
	File   string `yaml:"file"   json:"file"`
}

// DevServerConfig controls how the Vite dev server process is supervised.
type DevServerConfig struct {
	Command    string `yaml:"command"    json:"command"`
	AutoRun    *bool  `yaml:"autoRun"    json:"autoRun"`
	StopOnExit bool   `yaml:"stopOnExit" json:"stopOnExit"`
	LockFile   string `yaml:"lockFile"   json:"lockFile"`
	PIDFile    string `yaml:"pidFile"    json:"pidFile"`
	LogFile    string `yaml:"logFile"    json:"logFile"`
}

// AutoRunEnabled reports whether the dev server may be started on demand.
// It defaults to true.
func (d DevServerConfig) AutoRunEnabled() bool {
	return d.AutoRun == nil || *d.AutoRun
}

// ViteConfig locates the Vite config and the runtime used to evaluate it.
type ViteConfig struct {
	ConfigFile string `yaml:"configFile" json:"configFile"`
	JSRuntime  string `yaml:"jsRuntime"  json:"jsRuntime"`
}

// ProxyConfig tunes the HTTP and WebSocket proxies. Durations use
// time.ParseDuration syntax.
type ProxyConfig struct {
	ReadTimeout string `yaml:"readTimeout" json:"readTimeout"`
	Keepalive   string `yaml:"keepalive"   json:"keepalive"`
}

// ReadTimeoutDuration returns the parsed read timeout, or zero if unset.
func (p ProxyConfig) ReadTimeoutDuration() time.Duration {
	d, _ := time.ParseDuration(p.ReadTimeout)
	return d
}

// KeepaliveDuration returns the parsed keepalive interval, or zero if unset.
func (p ProxyConfig) KeepaliveDuration() time.Duration {
	d, _ := time.ParseDuration(p.Keepalive)
	return d
}

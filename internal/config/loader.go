package config

import (
	"errors"
	"fmt"
	"net"
	"net/url"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Load reads and parses a YAML settings file at path.
// If path does not exist or is empty, it returns an empty Config with no errors.
// If the YAML is malformed, it returns nil config with a parse error.
// For validation errors, it returns a valid config with invalid fields cleared
// plus errors describing what was removed.
func Load(path string) (*Config, []error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return &Config{}, nil
		}
		return nil, []error{fmt.Errorf("failed to read config file: %w", err)}
	}

	if len(strings.TrimSpace(string(data))) == 0 {
		return &Config{}, nil
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, []error{fmt.Errorf("failed to parse config YAML: %w", err)}
	}

	return &cfg, cfg.validate()
}

func (c *Config) validate() []error {
	var errs []error

	if c.ListenAddr != "" {
		if _, _, err := net.SplitHostPort(c.ListenAddr); err != nil {
			errs = append(errs, fmt.Errorf("listenAddr: must be host:port, got %q", c.ListenAddr))
			c.ListenAddr = ""
		}
	}

	if c.Upstream != "" {
		u, err := url.Parse(c.Upstream)
		if err != nil || u.Scheme == "" || u.Host == "" {
			errs = append(errs, fmt.Errorf("upstream: must be an absolute URL, got %q", c.Upstream))
			c.Upstream = ""
		}
	}
	if c.Upstream != "" && c.PublicDir != "" {
		errs = append(errs, errors.New("publicDir: ignored because upstream is set"))
		c.PublicDir = ""
	}

	switch strings.ToLower(c.Log.Format) {
	case "", "text", "json":
	default:
		errs = append(errs, fmt.Errorf("log.format: must be text or json, got %q", c.Log.Format))
		c.Log.Format = ""
	}

	if err := validDuration(c.Proxy.ReadTimeout, false); err != nil {
		errs = append(errs, fmt.Errorf("proxy.readTimeout: %w", err))
		c.Proxy.ReadTimeout = ""
	}
	if err := validDuration(c.Proxy.Keepalive, true); err != nil {
		errs = append(errs, fmt.Errorf("proxy.keepalive: %w", err))
		c.Proxy.Keepalive = ""
	}

	return errs
}

// validDuration checks an optional duration field. Zero is accepted only
// when allowZero is set.
func validDuration(s string, allowZero bool) error {
	if s == "" {
		return nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("invalid duration %q", s)
	}
	if d < 0 || (d == 0 && !allowZero) {
		return fmt.Errorf("must be positive, got %q", s)
	}
	return nil
}

package viteconfig

import (
	"bytes"
	"errors"
	"fmt"
	"net"
	"net/url"
	"strconv"

	"github.com/tidwall/gjson"
)

const (
	// DefaultPort is Vite's default dev server port.
	DefaultPort = 5173
	// DefaultHost is used when the config does not set server.host.
	DefaultHost = "localhost"
	// ContainerHost is the host default when running inside a container.
	ContainerHost = "0.0.0.0"
)

// ErrMissingBase is returned when the Vite config has no base path.
var ErrMissingBase = errors.New("please set the `base` path in your vite config file")

// Config is the dev server network configuration extracted from the Vite config.
// It is immutable once parsed.
type Config struct {
	host        string
	port        int
	base        string
	inContainer bool
}

// Parse extracts the dev server settings from the JSON document emitted by the
// config loader. Package-manager noise preceding the document is ignored.
func Parse(data []byte, inContainer bool) (Config, error) {
	data = stripNoise(data)
	if len(bytes.TrimSpace(data)) == 0 {
		return Config{}, errors.New("config loader produced no output")
	}
	if !gjson.ValidBytes(data) {
		return Config{}, fmt.Errorf("invalid JSON from config loader: %q", truncate(data, 120))
	}

	doc := gjson.ParseBytes(data)
	cfg := Config{inContainer: inContainer}

	base := doc.Get("base")
	if base.Type != gjson.String || base.String() == "" {
		return Config{}, ErrMissingBase
	}
	cfg.base = base.String()

	// Vite accepts `host: true` to listen on all interfaces.
	switch host := doc.Get("server.host"); host.Type {
	case gjson.String:
		cfg.host = host.String()
	case gjson.True:
		cfg.host = ContainerHost
	}

	if port := doc.Get("server.port"); port.Exists() && port.Int() > 0 {
		cfg.port = int(port.Int())
	}
	return cfg, nil
}

// Host returns the dev server host, defaulting to localhost (or 0.0.0.0 in a container).
func (c Config) Host() string {
	if c.host != "" {
		return c.host
	}
	if c.inContainer {
		return ContainerHost
	}
	return DefaultHost
}

// Port returns the dev server port, defaulting to 5173.
func (c Config) Port() int {
	if c.port > 0 {
		return c.port
	}
	return DefaultPort
}

// Base returns the configured base path. There is no default.
func (c Config) Base() (string, error) {
	if c.base == "" {
		return "", ErrMissingBase
	}
	return c.base, nil
}

// Addr returns host:port suitable for net.Dial.
func (c Config) Addr() string {
	return net.JoinHostPort(c.Host(), strconv.Itoa(c.Port()))
}

// HTTPURL builds the backend URL for an HTTP request.
func (c Config) HTTPURL(path, rawQuery string) *url.URL {
	return &url.URL{Scheme: "http", Host: c.Addr(), Path: path, RawQuery: rawQuery}
}

// WSURL builds the backend URL for a WebSocket connection.
func (c Config) WSURL(path, rawQuery string) *url.URL {
	return &url.URL{Scheme: "ws", Host: c.Addr(), Path: path, RawQuery: rawQuery}
}

var noisePrefixes = [][]byte{
	[]byte("yarn node "),
	[]byte("warning package.json: "),
}

// stripNoise drops lines that yarn and friends print ahead of the JSON output.
func stripNoise(data []byte) []byte {
	lines := bytes.Split(data, []byte("\n"))
	kept := lines[:0]
	for _, line := range lines {
		noisy := false
		for _, p := range noisePrefixes {
			if bytes.HasPrefix(line, p) {
				noisy = true
				break
			}
		}
		if !noisy {
			kept = append(kept, line)
		}
	}
	return bytes.Join(kept, []byte("\n"))
}

func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n]) + "..."
}

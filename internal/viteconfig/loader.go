package viteconfig

import (
	"bytes"
	"context"
	_ "embed"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
)

// DefaultConfigFile is the Vite config looked up in the application root.
const DefaultConfigFile = "vite.config.ts"

// RuntimeEnv overrides the JavaScript runtime used to evaluate the Vite config.
const RuntimeEnv = "VITE_DEVPROXY_JS_RUNTIME"

//go:embed loader.mjs
var loaderScript string

// Loader produces the raw JSON document describing the Vite config.
type Loader interface {
	Load(ctx context.Context) ([]byte, error)
}

// CommandLoader evaluates the Vite config with a JavaScript runtime. It is the
// only place that touches an external process for configuration.
type CommandLoader struct {
	// Runtime is the command used to run the loader script, e.g. "node" or
	// "yarn node". Empty means $VITE_DEVPROXY_JS_RUNTIME, then "node".
	Runtime string
	// ConfigFile is the Vite config path, relative to Dir unless absolute.
	// Empty means DefaultConfigFile.
	ConfigFile string
	// Dir is the application root the loader runs in.
	Dir string
}

func (l *CommandLoader) runtime() []string {
	rt := l.Runtime
	if rt == "" {
		rt = os.Getenv(RuntimeEnv)
	}
	fields := strings.Fields(rt)
	if len(fields) == 0 {
		return []string{"node"}
	}
	return fields
}

// ConfigPath returns the Vite config file the loader evaluates.
func (l *CommandLoader) ConfigPath() string {
	file := l.ConfigFile
	if file == "" {
		file = DefaultConfigFile
	}
	if filepath.IsAbs(file) || l.Dir == "" {
		return file
	}
	return filepath.Join(l.Dir, file)
}

// String describes the command without the inline script body.
func (l *CommandLoader) String() string {
	return fmt.Sprintf("%s <config loader> %q", strings.Join(l.runtime(), " "), l.ConfigPath())
}

// Load runs the loader script and returns its stdout.
func (l *CommandLoader) Load(ctx context.Context) ([]byte, error) {
	path := l.ConfigPath()
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("vite config file: %w", err)
	}

	rt := l.runtime()
	args := append(rt[1:], "--input-type=module", "-e", loaderScript, path)
	cmd := exec.CommandContext(ctx, rt[0], args...)
	cmd.Dir = l.Dir

	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	out, err := cmd.Output()
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) && stderr.Len() > 0 {
			return nil, fmt.Errorf("%w: %s", err, strings.TrimSpace(stderr.String()))
		}
		return nil, err
	}
	return out, nil
}

package viteconfig

import (
	"context"
	"fmt"
	"os"
	"sync"
)

// ConfigError is a fatal configuration failure. Command names the loader
// invocation that failed, when there is one.
type ConfigError struct {
	Command string
	Err     error
}

func (e *ConfigError) Error() string {
	if e.Command == "" {
		return fmt.Sprintf("failed to read vite config: %v", e.Err)
	}
	return fmt.Sprintf("%s failed: %v", e.Command, e.Err)
}

func (e *ConfigError) Unwrap() error { return e.Err }

// Option configures a Provider.
type Option func(*Provider)

// WithContainerDetector overrides how the provider decides it runs inside a container.
func WithContainerDetector(fn func() bool) Option {
	return func(p *Provider) { p.inContainer = fn }
}

// Provider loads the Vite config once and caches it for the process lifetime.
type Provider struct {
	loader      Loader
	inContainer func() bool

	mu     sync.Mutex
	cached *Config
}

// NewProvider creates a Provider backed by loader.
func NewProvider(loader Loader, opts ...Option) *Provider {
	p := &Provider{
		loader:      loader,
		inContainer: runningInContainer,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Load returns the cached config, running the loader on first use. Failures
// are not cached; callers are expected to abort startup on error.
func (p *Provider) Load(ctx context.Context) (Config, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.cached != nil {
		return *p.cached, nil
	}

	data, err := p.loader.Load(ctx)
	if err != nil {
		return Config{}, &ConfigError{Command: describe(p.loader), Err: err}
	}
	cfg, err := Parse(data, p.inContainer())
	if err != nil {
		return Config{}, &ConfigError{Command: describe(p.loader), Err: err}
	}
	p.cached = &cfg
	return cfg, nil
}

func describe(l Loader) string {
	if s, ok := l.(fmt.Stringer); ok {
		return s.String()
	}
	return ""
}

func runningInContainer() bool {
	_, err := os.Stat("/.dockerenv")
	return err == nil
}

package testsupport

import (
	"path/filepath"
	"testing"

	"wordxl/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*configBuilder)

type configBuilder struct {
	t       testing.TB
	baseDir string
	cfg     *config.Config
}

// NewConfig produces a config seeded with unique temp directories per test.
// It defaults common fields and applies any provided options.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfgVal := config.Default()
	cfgVal.Paths.StateDir = filepath.Join(base, "state")
	cfgVal.Paths.OutputDir = filepath.Join(base, "output")
	cfgVal.Paths.LogDir = filepath.Join(base, "logs")
	cfgVal.Auth.StatePath = filepath.Join(base, "state", "auth.json")
	cfgVal.Workflow.PollIntervalMillis = 5
	cfgVal.DevBackend.Bind = "127.0.0.1:0"
	cfgVal.DevBackend.TickMillis = 5

	builder := &configBuilder{
		t:       t,
		baseDir: base,
		cfg:     &cfgVal,
	}

	for _, opt := range opts {
		opt(builder)
	}

	return builder.cfg
}

// WithServiceURL points both the conversion and auth clients at baseURL.
func WithServiceURL(baseURL string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Service.BaseURL = baseURL
		b.cfg.Auth.BaseURL = baseURL
	}
}

// WithPollInterval overrides the progress polling cadence.
func WithPollInterval(millis int) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Workflow.PollIntervalMillis = millis
	}
}

// WithResultFormat sets the requested result format.
func WithResultFormat(format string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Service.ResultFormat = format
	}
}

// BaseDir returns the root temp directory backing the generated config.
func BaseDir(cfg *config.Config) string {
	return filepath.Dir(cfg.Paths.StateDir)
}

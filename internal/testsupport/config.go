package testsupport

import (
	"os"
	"path/filepath"
	"testing"

	"shotsync/internal/config"
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
	cfgVal.Paths.ShowsDir = filepath.Join(base, "shows")
	cfgVal.Paths.LogDir = filepath.Join(base, "logs")
	cfgVal.Paths.ReportDir = filepath.Join(base, "reports")
	cfgVal.Paths.StateDir = filepath.Join(base, "state")
	cfgVal.Tracker.BaseURL = "http://127.0.0.1:0/api"
	cfgVal.Tracker.Token = "test"

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

// WithTracker points the test config at a tracker endpoint.
func WithTracker(baseURL, token string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Tracker.BaseURL = baseURL
		b.cfg.Tracker.Token = token
	}
}

// WithStrictMatching toggles the ambiguous-match policy.
func WithStrictMatching(strict bool) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Tracker.StrictMatching = strict
	}
}

// WithTaskTypes sets the task types seeded on new shots.
func WithTaskTypes(names ...string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Tracker.TaskTypes = append([]string(nil), names...)
	}
}

// WithTemplateSource creates a template source directory holding a working
// file template with the given content.
func WithTemplateSource(content string) ConfigOption {
	return func(b *configBuilder) {
		dir := filepath.Join(b.baseDir, "pipeline")
		target := filepath.Join(dir, filepath.Base(b.cfg.Layout.TemplatePath))
		if err := os.MkdirAll(dir, 0o755); err != nil {
			b.t.Fatalf("mkdir template source: %v", err)
		}
		if err := os.WriteFile(target, []byte(content), 0o644); err != nil {
			b.t.Fatalf("write template source: %v", err)
		}
		b.cfg.Paths.TemplateSourceDir = dir
	}
}

// BaseDir returns the root temp directory backing the generated config.
func BaseDir(cfg *config.Config) string {
	return filepath.Dir(cfg.Paths.ShowsDir)
}

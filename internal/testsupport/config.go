package testsupport

import (
	"os"
	"path/filepath"
	"testing"

	"plarchive/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*configBuilder)

type configBuilder struct {
	t       testing.TB
	baseDir string
	cfg     *config.Config
}

// NewConfig produces a config seeded with unique temp directories per test.
// Cookie extraction is disabled so nothing reaches for a real browser profile.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfgVal := config.Default()
	cfgVal.Paths.TempDir = filepath.Join(base, "temp")
	cfgVal.Paths.FinalDir = filepath.Join(base, "archive")
	cfgVal.Paths.LedgerPath = filepath.Join(base, "data", "archive.csv")
	cfgVal.Paths.ReportDir = filepath.Join(base, "reports")
	cfgVal.Paths.LogDir = filepath.Join(base, "logs")
	cfgVal.Ledger.SQLitePath = filepath.Join(base, "data", "archive.db")
	cfgVal.Source.PlaylistURL = "https://www.youtube.com/playlist?list=PLtest"
	cfgVal.Source.Browser = ""
	cfgVal.Refresh.RequestsPerSecond = 0

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

// WithLedgerBackend selects the ledger backend on the test config.
func WithLedgerBackend(backend string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Ledger.Backend = backend
	}
}

// WithRefreshPolicy sets the refresh failure policy on the test config.
func WithRefreshPolicy(policy string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Refresh.FailurePolicy = policy
	}
}

// WithStubbedBinaries writes stub executables that exit successfully for the
// provided names and prepends them to PATH. If names is empty, yt-dlp and
// ffmpeg are stubbed.
func WithStubbedBinaries(names ...string) ConfigOption {
	return func(b *configBuilder) {
		if len(names) == 0 {
			names = []string{"yt-dlp", "ffmpeg"}
		}
		for _, name := range names {
			writeStub(b, name, "#!/bin/sh\nexit 0\n")
		}
	}
}

// WithStubScript installs a shell script named name on PATH.
func WithStubScript(name, script string) ConfigOption {
	return func(b *configBuilder) {
		writeStub(b, name, script)
	}
}

func writeStub(b *configBuilder, name, script string) {
	binDir := filepath.Join(b.baseDir, "bin")
	if err := os.MkdirAll(binDir, 0o755); err != nil {
		b.t.Fatalf("mkdir bin dir: %v", err)
	}
	target := filepath.Join(binDir, name)
	if err := os.WriteFile(target, []byte(script), 0o755); err != nil {
		b.t.Fatalf("write stub %s: %v", name, err)
	}

	oldPath := os.Getenv("PATH")
	if err := os.Setenv("PATH", binDir+string(os.PathListSeparator)+oldPath); err != nil {
		b.t.Fatalf("set PATH: %v", err)
	}
	b.t.Cleanup(func() {
		_ = os.Setenv("PATH", oldPath)
	})
}

// BaseDir returns the root temp directory backing the generated config.
func BaseDir(cfg *config.Config) string {
	return filepath.Dir(cfg.Paths.TempDir)
}

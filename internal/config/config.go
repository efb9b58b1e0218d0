package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/adrg/xdg"
	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains directory and file locations.
type Paths struct {
	TempDir    string `toml:"temp_dir"`
	FinalDir   string `toml:"final_dir"`
	LedgerPath string `toml:"ledger_path"`
	ReportDir  string `toml:"report_dir"`
	LogDir     string `toml:"log_dir"`
}

// Source describes the playlist being mirrored.
type Source struct {
	PlaylistURL  string `toml:"playlist_url"`
	Browser      string `toml:"browser"`
	WatchURLBase string `toml:"watch_url_base"`
}

// YtDlp contains settings for invoking the yt-dlp binary.
type YtDlp struct {
	Binary       string   `toml:"binary"`
	ListTimeout  int      `toml:"list_timeout"`
	ListAttempts int      `toml:"list_attempts"`
	ProbeTimeout int      `toml:"probe_timeout"`
	FetchTimeout int      `toml:"fetch_timeout"`
	ExtraArgs    []string `toml:"extra_args"`
}

// Fetch is the quality, subtitle, and network profile requested for each
// downloaded item.
type Fetch struct {
	Format              string `toml:"format"`
	OutputTemplate      string `toml:"output_template"`
	WriteSubs           bool   `toml:"write_subs"`
	SubLangs            string `toml:"sub_langs"`
	EmbedThumbnail      bool   `toml:"embed_thumbnail"`
	AddMetadata         bool   `toml:"add_metadata"`
	RateLimit           string `toml:"rate_limit"`
	Retries             int    `toml:"retries"`
	RetrySleep          int    `toml:"retry_sleep"`
	BufferSize          string `toml:"buffer_size"`
	ConcurrentFragments int    `toml:"concurrent_fragments"`
}

// Matching contains bootstrap fuzzy matching settings.
type Matching struct {
	// Threshold is the inclusive minimum similarity for a local file to be
	// paired with a remote record.
	Threshold  float64  `toml:"threshold"`
	Scorer     string   `toml:"scorer"`
	Extensions []string `toml:"extensions"`
}

// Refresh contains metadata refresh settings.
type Refresh struct {
	// FailurePolicy decides what a failed single-item probe means. See the
	// RefreshPolicy constants.
	FailurePolicy     string  `toml:"failure_policy"`
	RequestsPerSecond float64 `toml:"requests_per_second"`
}

// Ledger selects the ledger persistence backend.
type Ledger struct {
	Backend    string `toml:"backend"`
	SQLitePath string `toml:"sqlite_path"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
}

// Config encapsulates all configuration values for plarchive.
//
// Configuration sections by subsystem:
//   - Paths: staging, archive, ledger, report and log locations
//   - Source: playlist URL and cookie browser
//   - YtDlp: binary, timeouts and listing attempts
//   - Fetch: format, subtitle and network profile for downloads
//   - Matching: bootstrap similarity threshold, scorer and extensions
//   - Refresh: probe failure policy and pacing
//   - Ledger: csv or sqlite backend
//   - Logging: log format and level
type Config struct {
	Paths    Paths    `toml:"paths"`
	Source   Source   `toml:"source"`
	YtDlp    YtDlp    `toml:"ytdlp"`
	Fetch    Fetch    `toml:"fetch"`
	Matching Matching `toml:"matching"`
	Refresh  Refresh  `toml:"refresh"`
	Ledger   Ledger   `toml:"ledger"`
	Logging  Logging  `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath(filepath.Join(xdg.ConfigHome, "plarchive", "config.toml"))
}

// Load locates, parses, and validates a configuration file. The returned config has all
// path fields expanded and normalized.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()
	cfg.applyEnv()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		decoder.DisallowUnknownFields()
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := DefaultConfigPath()
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("plarchive.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates the directories every mode writes into.
// FinalDir is created on a best-effort basis so read-only modes still work
// when the archive disk is offline.
func (c *Config) EnsureDirectories() error {
	dirs := []string{c.Paths.TempDir, c.Paths.ReportDir, c.Paths.LogDir, filepath.Dir(c.LedgerFile())}
	for _, dir := range dirs {
		if strings.TrimSpace(dir) == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	if strings.TrimSpace(c.Paths.FinalDir) != "" {
		_ = os.MkdirAll(c.Paths.FinalDir, 0o755)
	}
	return nil
}

// LedgerFile returns the file backing the configured ledger backend.
func (c *Config) LedgerFile() string {
	if c.Ledger.Backend == LedgerBackendSQLite {
		return c.Ledger.SQLitePath
	}
	return c.Paths.LedgerPath
}

// LockPath returns the advisory lock file guarding the ledger.
func (c *Config) LockPath() string {
	return c.LedgerFile() + ".lock"
}

// YtDlpBinary returns the yt-dlp executable name or path.
func (c *Config) YtDlpBinary() string {
	if strings.TrimSpace(c.YtDlp.Binary) == "" {
		return defaultYtDlpBinary
	}
	return c.YtDlp.Binary
}

// FFmpegBinary returns the ffmpeg executable name yt-dlp relies on for
// merging streams and embedding thumbnails.
func (c *Config) FFmpegBinary() string {
	return "ffmpeg"
}

// WatchURL builds the canonical watch URL for a video id.
func (c *Config) WatchURL(id string) string {
	return c.Source.WatchURLBase + id
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}

	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}

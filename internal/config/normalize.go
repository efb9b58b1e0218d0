package config

import (
	"fmt"
	"os"
	"strings"
)

const (
	envPlaylistURL = "PLARCHIVE_PLAYLIST_URL"
	envBrowser     = "PLARCHIVE_BROWSER"
)

// applyEnv seeds values from the environment before the config file is
// decoded, so a file setting still wins over the environment.
func (c *Config) applyEnv() {
	if value, ok := os.LookupEnv(envPlaylistURL); ok && strings.TrimSpace(value) != "" {
		c.Source.PlaylistURL = value
	}
	if value, ok := os.LookupEnv(envBrowser); ok && strings.TrimSpace(value) != "" {
		c.Source.Browser = value
	}
}

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeSource()
	c.normalizeYtDlp()
	c.normalizeFetch()
	c.normalizeMatching()
	c.normalizeRefresh()
	if err := c.normalizeLedger(); err != nil {
		return err
	}
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	defaults := Default().Paths
	fields := []struct {
		name     string
		value    *string
		fallback string
	}{
		{"paths.temp_dir", &c.Paths.TempDir, defaults.TempDir},
		{"paths.final_dir", &c.Paths.FinalDir, defaults.FinalDir},
		{"paths.ledger_path", &c.Paths.LedgerPath, defaults.LedgerPath},
		{"paths.report_dir", &c.Paths.ReportDir, defaults.ReportDir},
		{"paths.log_dir", &c.Paths.LogDir, defaults.LogDir},
	}
	for _, field := range fields {
		if strings.TrimSpace(*field.value) == "" {
			*field.value = field.fallback
		}
		expanded, err := expandPath(strings.TrimSpace(*field.value))
		if err != nil {
			return fmt.Errorf("%s: %w", field.name, err)
		}
		*field.value = expanded
	}
	return nil
}

func (c *Config) normalizeSource() {
	c.Source.PlaylistURL = strings.TrimSpace(c.Source.PlaylistURL)
	c.Source.Browser = strings.TrimSpace(c.Source.Browser)
	c.Source.WatchURLBase = strings.TrimSpace(c.Source.WatchURLBase)
	if c.Source.WatchURLBase == "" {
		c.Source.WatchURLBase = defaultWatchURLBase
	}
}

func (c *Config) normalizeYtDlp() {
	c.YtDlp.Binary = strings.TrimSpace(c.YtDlp.Binary)
	if c.YtDlp.Binary == "" {
		c.YtDlp.Binary = defaultYtDlpBinary
	}
	if c.YtDlp.ListAttempts <= 0 {
		c.YtDlp.ListAttempts = defaultListAttempts
	}
	args := c.YtDlp.ExtraArgs[:0]
	for _, arg := range c.YtDlp.ExtraArgs {
		if arg = strings.TrimSpace(arg); arg != "" {
			args = append(args, arg)
		}
	}
	c.YtDlp.ExtraArgs = args
}

func (c *Config) normalizeFetch() {
	c.Fetch.Format = strings.TrimSpace(c.Fetch.Format)
	c.Fetch.OutputTemplate = strings.TrimSpace(c.Fetch.OutputTemplate)
	if c.Fetch.OutputTemplate == "" {
		c.Fetch.OutputTemplate = defaultOutputTemplate
	}
	c.Fetch.SubLangs = strings.TrimSpace(c.Fetch.SubLangs)
	c.Fetch.RateLimit = strings.TrimSpace(c.Fetch.RateLimit)
	c.Fetch.BufferSize = strings.TrimSpace(c.Fetch.BufferSize)
	if c.Fetch.ConcurrentFragments <= 0 {
		c.Fetch.ConcurrentFragments = defaultConcurrentFragments
	}
}

func (c *Config) normalizeMatching() {
	c.Matching.Scorer = strings.ToLower(strings.TrimSpace(c.Matching.Scorer))
	if c.Matching.Scorer == "" {
		c.Matching.Scorer = ScorerRatio
	}
	seen := make(map[string]struct{}, len(c.Matching.Extensions))
	exts := make([]string, 0, len(c.Matching.Extensions))
	for _, ext := range c.Matching.Extensions {
		ext = strings.ToLower(strings.TrimSpace(ext))
		if ext == "" {
			continue
		}
		if !strings.HasPrefix(ext, ".") {
			ext = "." + ext
		}
		if _, ok := seen[ext]; ok {
			continue
		}
		seen[ext] = struct{}{}
		exts = append(exts, ext)
	}
	c.Matching.Extensions = exts
}

func (c *Config) normalizeRefresh() {
	c.Refresh.FailurePolicy = strings.ToLower(strings.TrimSpace(c.Refresh.FailurePolicy))
	if c.Refresh.FailurePolicy == "" {
		c.Refresh.FailurePolicy = RefreshPolicyMarkDeleted
	}
}

func (c *Config) normalizeLedger() error {
	c.Ledger.Backend = strings.ToLower(strings.TrimSpace(c.Ledger.Backend))
	if c.Ledger.Backend == "" {
		c.Ledger.Backend = LedgerBackendCSV
	}
	if strings.TrimSpace(c.Ledger.SQLitePath) == "" {
		c.Ledger.SQLitePath = Default().Ledger.SQLitePath
	}
	expanded, err := expandPath(strings.TrimSpace(c.Ledger.SQLitePath))
	if err != nil {
		return fmt.Errorf("ledger.sqlite_path: %w", err)
	}
	c.Ledger.SQLitePath = expanded
	return nil
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if c.Logging.Format == "" {
		c.Logging.Format = defaultLogFormat
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}

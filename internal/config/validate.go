package config

import (
	"errors"
	"fmt"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateSource(); err != nil {
		return err
	}
	if err := c.validateYtDlp(); err != nil {
		return err
	}
	if err := c.validateFetch(); err != nil {
		return err
	}
	if err := c.validateMatching(); err != nil {
		return err
	}
	if err := c.validateRefresh(); err != nil {
		return err
	}
	if err := c.validateLedger(); err != nil {
		return err
	}
	return c.validateLogging()
}

func (c *Config) validateSource() error {
	if c.Source.PlaylistURL == "" {
		return fmt.Errorf("source.playlist_url must be set (or export %s)", envPlaylistURL)
	}
	return nil
}

func (c *Config) validateYtDlp() error {
	if c.YtDlp.ListTimeout < 0 || c.YtDlp.ProbeTimeout < 0 || c.YtDlp.FetchTimeout < 0 {
		return errors.New("ytdlp timeouts must be >= 0 (0 disables the timeout)")
	}
	return nil
}

func (c *Config) validateFetch() error {
	if c.Fetch.Format == "" {
		return errors.New("fetch.format must be set")
	}
	if c.Fetch.Retries < 0 {
		return errors.New("fetch.retries must be >= 0")
	}
	if c.Fetch.RetrySleep < 0 {
		return errors.New("fetch.retry_sleep must be >= 0")
	}
	if c.Fetch.ConcurrentFragments != 1 {
		return errors.New("fetch.concurrent_fragments must be 1 (downloads are single-stream)")
	}
	return nil
}

func (c *Config) validateMatching() error {
	if c.Matching.Threshold <= 0 || c.Matching.Threshold > 1 {
		return errors.New("matching.threshold must be in (0, 1]")
	}
	switch c.Matching.Scorer {
	case ScorerRatio, ScorerLevenshtein:
	default:
		return fmt.Errorf("matching.scorer: unsupported value %q (want %q or %q)", c.Matching.Scorer, ScorerRatio, ScorerLevenshtein)
	}
	if len(c.Matching.Extensions) == 0 {
		return errors.New("matching.extensions must list at least one extension")
	}
	return nil
}

func (c *Config) validateRefresh() error {
	switch c.Refresh.FailurePolicy {
	case RefreshPolicyMarkDeleted, RefreshPolicyClassify, RefreshPolicyKeep:
	default:
		return fmt.Errorf("refresh.failure_policy: unsupported value %q", c.Refresh.FailurePolicy)
	}
	if c.Refresh.RequestsPerSecond < 0 {
		return errors.New("refresh.requests_per_second must be >= 0")
	}
	return nil
}

func (c *Config) validateLedger() error {
	switch c.Ledger.Backend {
	case LedgerBackendCSV, LedgerBackendSQLite:
		return nil
	default:
		return fmt.Errorf("ledger.backend: unsupported value %q", c.Ledger.Backend)
	}
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format: unsupported value %q", c.Logging.Format)
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
		return nil
	default:
		return fmt.Errorf("logging.level: unsupported value %q", c.Logging.Level)
	}
}

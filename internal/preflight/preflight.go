package preflight

import (
	"plarchive/internal/config"
)

// Result reports the outcome of a single preflight check.
type Result struct {
	Name   string
	Passed bool
	Detail string
}

// RunAll executes the filesystem and source checks for the given config.
// Binary checks are reported separately by CheckSystemDeps.
func RunAll(cfg *config.Config) []Result {
	if cfg == nil {
		return nil
	}

	results := []Result{
		CheckDirectoryAccess("Temp directory", cfg.Paths.TempDir),
		CheckDirectoryAccess("Final directory", cfg.Paths.FinalDir),
		CheckDirectoryAccess("Ledger directory", ledgerDir(cfg)),
		CheckLedgerFile(cfg.LedgerFile()),
		CheckPlaylistURL(cfg.Source.PlaylistURL),
		CheckTempLeftovers(cfg.Paths.TempDir),
	}
	return results
}

// AllPassed reports whether every result passed.
func AllPassed(results []Result) bool {
	for _, r := range results {
		if !r.Passed {
			return false
		}
	}
	return true
}

package bootstrap

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"plarchive/internal/config"
	"plarchive/internal/ledger"
	"plarchive/internal/logging"
	"plarchive/internal/matcher"
	"plarchive/internal/report"
	"plarchive/internal/scanner"
	"plarchive/internal/services"
	"plarchive/internal/services/ytdlp"
)

// Lister enumerates the remote playlist.
type Lister interface {
	ListPlaylist(ctx context.Context, playlistURL string) ([]ytdlp.Record, error)
}

// Options tunes a bootstrap run.
type Options struct {
	// Force rebuilds the ledger even when one already exists.
	Force bool
}

// Result reports what bootstrap produced.
type Result struct {
	Listed          int
	Scanned         int
	Matched         int
	UnmatchedRemote int
	UnmatchedLocal  int
	RemoteReport    string
	LocalReport     string
}

// Runner builds the initial ledger from an existing local archive.
type Runner struct {
	cfg    *config.Config
	store  ledger.Store
	lister Lister
	logger *slog.Logger
	now    func() time.Time
}

// New constructs a bootstrap runner.
func New(cfg *config.Config, store ledger.Store, lister Lister, logger *slog.Logger) *Runner {
	return &Runner{
		cfg:    cfg,
		store:  store,
		lister: lister,
		logger: logging.NewComponentLogger(logger, "bootstrap"),
		now:    time.Now,
	}
}

// SetClock overrides the time source used for archived dates.
func (r *Runner) SetClock(now func() time.Time) {
	if now != nil {
		r.now = now
	}
}

// Run lists the playlist, scans the archive directory, pairs files with
// records by title and writes the ledger plus the unmatched reports.
func (r *Runner) Run(ctx context.Context, playlistURL string, opts Options) (Result, error) {
	logger := logging.WithContext(ctx, r.logger)
	var result Result

	if r.store.Exists() && !opts.Force {
		return result, services.Wrap(services.ErrValidation, "bootstrap", "init",
			fmt.Sprintf("ledger already exists at %s; pass --force to rebuild it", r.store.Path()), nil)
	}

	records, err := r.lister.ListPlaylist(ctx, playlistURL)
	if err != nil {
		return result, err
	}
	result.Listed = len(records)

	locals, err := scanner.Scan(ctx, r.logger, r.cfg.Paths.FinalDir, r.cfg.Matching.Extensions)
	if err != nil {
		return result, services.Wrap(services.ErrConfiguration, "bootstrap", "scan", "archive directory unreadable", err)
	}
	result.Scanned = len(locals)
	logger.Info("matching local files",
		logging.Int("remote", len(records)),
		logging.Int("local", len(locals)),
		logging.Float64("threshold", r.cfg.Matching.Threshold),
		logging.String("scorer", r.cfg.Matching.Scorer),
	)

	matched := matcher.Match(locals, records, matcher.Options{
		Threshold: r.cfg.Matching.Threshold,
		Scorer:    matcher.ScorerFor(r.cfg.Matching.Scorer),
		Now:       r.now,
	})
	for _, pair := range matched.Matched {
		logger.Debug("matched",
			logging.String(logging.FieldVideoID, pair.Entry.ID),
			logging.String("path", pair.LocalPath),
			logging.Float64("score", pair.Score),
		)
	}

	if err := r.store.Save(ctx, matched.Entries()); err != nil {
		return result, err
	}
	result.Matched = len(matched.Matched)
	result.UnmatchedRemote = len(matched.UnmatchedRemote)
	result.UnmatchedLocal = len(matched.UnmatchedLocal)

	result.RemoteReport = filepath.Join(r.cfg.Paths.ReportDir, report.UnmatchedRemoteFile)
	if err := report.WriteUnmatchedRemote(result.RemoteReport, matched.UnmatchedRemote); err != nil {
		return result, fmt.Errorf("write unmatched remote report: %w", err)
	}
	result.LocalReport = filepath.Join(r.cfg.Paths.ReportDir, report.UnmatchedLocalFile)
	if err := report.WriteUnmatchedLocal(result.LocalReport, matched.UnmatchedLocal); err != nil {
		return result, fmt.Errorf("write unmatched local report: %w", err)
	}

	logger.Info("ledger initialized",
		logging.String("ledger", r.store.Path()),
		logging.Int("matched", result.Matched),
		logging.Int("unmatched_remote", result.UnmatchedRemote),
		logging.Int("unmatched_local", result.UnmatchedLocal),
	)
	return result, nil
}

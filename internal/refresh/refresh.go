package refresh

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"plarchive/internal/config"
	"plarchive/internal/ledger"
	"plarchive/internal/logging"
	"plarchive/internal/services"
	"plarchive/internal/services/ytdlp"
)

// Prober looks up the current state of one remote item.
type Prober interface {
	Probe(ctx context.Context, id string) (ytdlp.ProbeResult, error)
}

// Summary reports what a refresh pass changed.
type Summary struct {
	Checked  int
	Deleted  int
	Retitled int
	Errored  int
}

// removalMarkers are yt-dlp diagnostics meaning the item is gone for good.
var removalMarkers = []string{
	"video unavailable",
	"private video",
	"has been removed",
	"account associated with this video has been terminated",
	"this video is no longer available",
}

// Engine re-probes every ledger entry and records deletions and title drift.
type Engine struct {
	store   ledger.Store
	prober  Prober
	policy  string
	limiter *rate.Limiter
	logger  *slog.Logger
	now     func() time.Time
}

// New constructs a refresh engine. Probes are paced at
// refresh.requests_per_second; zero disables pacing.
func New(cfg *config.Config, store ledger.Store, prober Prober, logger *slog.Logger) *Engine {
	engine := &Engine{
		store:  store,
		prober: prober,
		policy: cfg.Refresh.FailurePolicy,
		logger: logging.NewComponentLogger(logger, "refresh"),
		now:    time.Now,
	}
	if rps := cfg.Refresh.RequestsPerSecond; rps > 0 {
		engine.limiter = rate.NewLimiter(rate.Limit(rps), 1)
	}
	if engine.policy == "" {
		engine.policy = config.RefreshPolicyMarkDeleted
	}
	return engine
}

// SetClock overrides the time source used for notes.
func (e *Engine) SetClock(now func() time.Time) {
	if now != nil {
		e.now = now
	}
}

// Run probes each entry in ledger order and saves the ledger once at the
// end. When ctx is cancelled midway the changes made so far are saved before
// returning the context error. A pass that changes nothing skips the save;
// the file already holds what a rewrite would produce.
func (e *Engine) Run(ctx context.Context) (Summary, error) {
	logger := logging.WithContext(ctx, e.logger)
	var summary Summary

	entries, err := e.store.Load(ctx)
	if err != nil {
		return summary, err
	}
	logger.Info("refreshing ledger", logging.Int("entries", len(entries)), logging.String("policy", e.policy))

	changed := false
	var runErr error
	for i := range entries {
		if e.limiter != nil {
			if err := e.limiter.Wait(ctx); err != nil {
				runErr = err
				break
			}
		}
		if err := ctx.Err(); err != nil {
			runErr = err
			break
		}
		if e.apply(ctx, &entries[i], &summary) {
			changed = true
		}
		summary.Checked++
	}
	if changed {
		if err := e.store.Save(context.WithoutCancel(ctx), entries); err != nil {
			return summary, err
		}
	}
	logger.Info("refresh complete",
		logging.Int("checked", summary.Checked),
		logging.Int("deleted", summary.Deleted),
		logging.Int("retitled", summary.Retitled),
		logging.Int("errored", summary.Errored),
	)
	return summary, runErr
}

// apply probes one entry and mutates it in place. It reports whether the
// entry changed.
func (e *Engine) apply(ctx context.Context, entry *ledger.Entry, summary *Summary) bool {
	itemCtx := services.WithVideoID(ctx, entry.ID)
	logger := logging.WithContext(itemCtx, e.logger)

	result, err := e.prober.Probe(itemCtx, entry.ID)
	if err != nil {
		if ctx.Err() != nil {
			return false
		}
		return e.applyFailure(logger, entry, summary, err)
	}
	if !result.Found {
		return e.markDeleted(logger, entry, summary, "probe returned no output")
	}

	title := strings.TrimSpace(result.Title)
	if title == strings.TrimSpace(entry.Title) {
		return false
	}
	logger.Info("title changed",
		logging.String("old_title", entry.Title),
		logging.String("new_title", title),
	)
	entry.Title = title
	entry.AppendNote("Title updated on " + e.now().Format(ledger.DateLayout))
	summary.Retitled++
	return true
}

func (e *Engine) applyFailure(logger *slog.Logger, entry *ledger.Entry, summary *Summary, err error) bool {
	switch e.policy {
	case config.RefreshPolicyKeep:
		summary.Errored++
		logProbeFailure(logger, err, "status left unchanged")
		return false
	case config.RefreshPolicyClassify:
		if IsRemoval(ytdlp.StderrOf(err)) {
			return e.markDeleted(logger, entry, summary, "remote reports the video as removed")
		}
		summary.Errored++
		logProbeFailure(logger, err, "status left unchanged; will retry on next refresh")
		return false
	default:
		return e.markDeleted(logger, entry, summary, "probe failed: "+err.Error())
	}
}

func (e *Engine) markDeleted(logger *slog.Logger, entry *ledger.Entry, summary *Summary, reason string) bool {
	if entry.Status == ledger.StatusDeleted {
		return false
	}
	entry.Status = ledger.StatusDeleted
	summary.Deleted++
	logger.Info("marked deleted", logging.String("title", entry.Title), logging.String("reason", reason))
	return true
}

func logProbeFailure(logger *slog.Logger, err error, impact string) {
	logging.WarnWithContext(logger, "probe failed", "refresh_probe_failed",
		logging.Error(err),
		logging.String(logging.FieldErrorHint, services.Hint(err)),
		logging.String(logging.FieldImpact, impact),
	)
}

// IsRemoval reports whether yt-dlp stderr says the video no longer exists.
func IsRemoval(stderr string) bool {
	lower := strings.ToLower(stderr)
	for _, marker := range removalMarkers {
		if strings.Contains(lower, marker) {
			return true
		}
	}
	return false
}

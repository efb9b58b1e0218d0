package rename

import (
	"context"
	"errors"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/gosimple/slug"

	"plarchive/internal/ledger"
	"plarchive/internal/logging"
	"plarchive/internal/services"
	"plarchive/internal/textutil"
)

// Options tunes a rename pass.
type Options struct {
	// DryRun reports planned renames without touching disk or the ledger.
	DryRun bool
}

// Plan is one rename the pass wants to make.
type Plan struct {
	ID   string
	From string
	To   string
}

// Result reports what a rename pass did.
type Result struct {
	Plans   []Plan
	Renamed int
	Skipped int
}

// TargetName returns the canonical file name for an archived item:
// "<clean title> [<id>]<ext>". The cleaned file stem is used as the title;
// when nothing survives cleaning, a slug of fallbackTitle (or the id) is
// used instead.
func TargetName(id, currentName, fallbackTitle string) string {
	ext := filepath.Ext(currentName)
	stem := textutil.SanitizeFileName(textutil.CleanTitle(strings.TrimSuffix(currentName, ext)))
	if stem == "" {
		stem = slug.Make(fallbackTitle)
	}
	if stem == "" {
		stem = id
	}
	return stem + " [" + id + "]" + ext
}

// NeedsRename reports whether name lacks the "[<id>]" marker.
func NeedsRename(id, name string) bool {
	return !strings.Contains(name, "["+id+"]")
}

// Run renames the files of active entries so each carries its id, then saves
// the ledger once. Missing files and name collisions are skipped.
func Run(ctx context.Context, store ledger.Store, logger *slog.Logger, opts Options) (Result, error) {
	logger = logging.WithContext(ctx, logging.NewComponentLogger(logger, "rename"))
	var result Result

	entries, err := store.Load(ctx)
	if err != nil {
		return result, err
	}

	changed := false
	for i := range entries {
		if err := ctx.Err(); err != nil {
			return result, err
		}
		entry := &entries[i]
		if !entry.Active() || entry.Path == "" {
			continue
		}
		name := filepath.Base(entry.Path)
		if !NeedsRename(entry.ID, name) {
			continue
		}
		itemLogger := logger.With(logging.String(logging.FieldVideoID, entry.ID))
		if _, err := os.Stat(entry.Path); err != nil {
			result.Skipped++
			logging.WarnWithContext(itemLogger, "file missing; not renamed", "rename_source_missing",
				logging.String("path", entry.Path),
				logging.Error(err),
				logging.String(logging.FieldErrorHint, "run refresh or fix the path in the ledger"),
				logging.String(logging.FieldImpact, "ledger path points at a missing file"),
			)
			continue
		}
		target := filepath.Join(filepath.Dir(entry.Path), TargetName(entry.ID, name, entry.Title))
		if _, err := os.Lstat(target); err == nil || !errors.Is(err, fs.ErrNotExist) {
			result.Skipped++
			logging.WarnWithContext(itemLogger, "target exists; not renamed", "rename_collision",
				logging.String("path", entry.Path),
				logging.String("target", target),
				logging.String(logging.FieldErrorHint, "resolve the duplicate file by hand"),
				logging.String(logging.FieldImpact, "file keeps its old name"),
			)
			continue
		}

		plan := Plan{ID: entry.ID, From: entry.Path, To: target}
		result.Plans = append(result.Plans, plan)
		if opts.DryRun {
			itemLogger.Info("would rename", logging.String("from", plan.From), logging.String("to", plan.To))
			continue
		}
		if err := os.Rename(plan.From, plan.To); err != nil {
			result.Skipped++
			logging.WarnWithContext(itemLogger, "rename failed", "rename_failed",
				logging.Error(err),
				logging.String(logging.FieldErrorHint, services.Hint(err)),
				logging.String(logging.FieldImpact, "file keeps its old name"),
			)
			continue
		}
		entry.Path = target
		result.Renamed++
		changed = true
		itemLogger.Info("renamed", logging.String("from", plan.From), logging.String("to", plan.To))
	}

	if changed {
		if err := store.Save(context.WithoutCancel(ctx), entries); err != nil {
			return result, err
		}
	}
	return result, nil
}

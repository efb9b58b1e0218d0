package syncer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"plarchive/internal/config"
	"plarchive/internal/fileutil"
	"plarchive/internal/ledger"
	"plarchive/internal/logging"
	"plarchive/internal/scanner"
	"plarchive/internal/services"
	"plarchive/internal/services/ytdlp"
	"plarchive/internal/staging"
)

// Lister enumerates the remote playlist.
type Lister interface {
	ListPlaylist(ctx context.Context, playlistURL string) ([]ytdlp.Record, error)
}

// Fetcher downloads one item into a directory.
type Fetcher interface {
	Fetch(ctx context.Context, id, destDir string) error
}

// Summary reports what a sync run did.
type Summary struct {
	Listed    int
	Missing   int
	Archived  int
	Failed    int
	FailedIDs []string
}

// Options tunes a sync run.
type Options struct {
	// Limit caps how many missing items are processed; zero means all.
	Limit int
}

// Engine archives playlist items that are not yet in the ledger.
type Engine struct {
	paths      config.Paths
	extensions map[string]struct{}
	store      ledger.Store
	lister     Lister
	fetcher    Fetcher
	logger     *slog.Logger
	now        func() time.Time
}

// New constructs a sync engine.
func New(cfg *config.Config, store ledger.Store, lister Lister, fetcher Fetcher, logger *slog.Logger) *Engine {
	exts := make(map[string]struct{}, len(cfg.Matching.Extensions))
	for _, ext := range cfg.Matching.Extensions {
		exts[strings.ToLower(ext)] = struct{}{}
	}
	return &Engine{
		paths:      cfg.Paths,
		extensions: exts,
		store:      store,
		lister:     lister,
		fetcher:    fetcher,
		logger:     logging.NewComponentLogger(logger, "sync"),
		now:        time.Now,
	}
}

// SetClock overrides the time source used for archived dates.
func (e *Engine) SetClock(now func() time.Time) {
	if now != nil {
		e.now = now
	}
}

// Run lists the playlist, fetches every item missing from the ledger in
// remote order and records each one as soon as it is in place. Per-item
// failures are logged and counted; only ledger, listing and cancellation
// errors end the run early.
func (e *Engine) Run(ctx context.Context, playlistURL string, opts Options) (Summary, error) {
	logger := logging.WithContext(ctx, e.logger)
	var summary Summary

	entries, err := e.store.Load(ctx)
	if err != nil {
		return summary, err
	}
	records, err := e.lister.ListPlaylist(ctx, playlistURL)
	if err != nil {
		return summary, err
	}
	summary.Listed = len(records)

	missing := Missing(entries, records)
	summary.Missing = len(missing)
	if len(missing) == 0 {
		logger.Info("no new items", logging.Int("listed", len(records)), logging.Int("ledger", len(entries)))
		return summary, nil
	}
	if opts.Limit > 0 && len(missing) > opts.Limit {
		logger.Info("limiting run", logging.Int("missing", len(missing)), logging.Int("limit", opts.Limit))
		missing = missing[:opts.Limit]
	}
	logger.Info("archiving new items", logging.Int("count", len(missing)))

	for i, record := range missing {
		if err := ctx.Err(); err != nil {
			return summary, err
		}
		itemCtx := services.WithVideoID(ctx, record.ID)
		itemLogger := logging.WithContext(itemCtx, e.logger)
		itemLogger.Info("archiving item",
			logging.Int("index", i+1),
			logging.Int("total", len(missing)),
			logging.String("title", record.Title),
		)

		finalPath, err := e.archive(itemCtx, itemLogger, record)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return summary, ctxErr
			}
			summary.Failed++
			summary.FailedIDs = append(summary.FailedIDs, record.ID)
			logging.ErrorWithContext(itemLogger, "item not archived", "sync_item_failed",
				logging.Error(err),
				logging.String(logging.FieldErrorHint, services.Hint(err)),
				logging.String(logging.FieldImpact, "item will be retried on the next sync"),
			)
			continue
		}
		summary.Archived++
		itemLogger.Info("archived item", logging.String("path", finalPath))
	}

	if cleaned := staging.CleanEmpty(ctx, e.paths.TempDir, logger); len(cleaned.Removed) > 0 {
		logger.Debug("temp folders cleaned", logging.Int("removed", len(cleaned.Removed)))
	}

	logger.Info("sync complete",
		logging.Int("listed", summary.Listed),
		logging.Int("missing", summary.Missing),
		logging.Int("archived", summary.Archived),
		logging.Int("failed", summary.Failed),
	)
	return summary, nil
}

func (e *Engine) archive(ctx context.Context, logger *slog.Logger, record ytdlp.Record) (string, error) {
	folder := scanner.GroupFolder(record.GroupID, record.GroupName)
	tempDir := filepath.Join(e.paths.TempDir, folder)

	if err := e.fetcher.Fetch(ctx, record.ID, tempDir); err != nil {
		return "", err
	}
	product, err := e.findProduct(tempDir, record.ID)
	if err != nil {
		return "", err
	}

	finalDir := filepath.Join(e.paths.FinalDir, folder)
	finalPath := filepath.Join(finalDir, filepath.Base(product))
	if err := e.place(logger, product, finalPath, record.ID); err != nil {
		return "", services.Wrap(services.ErrFetchFailed, "sync", "move", filepath.Base(product), err)
	}
	e.moveSidecars(logger, product, finalDir)

	entry := ledger.Entry{
		ID:           record.ID,
		Title:        record.Title,
		GroupID:      record.GroupID,
		GroupName:    record.GroupName,
		ArchivedDate: ledger.Today(e.now()),
		Path:         finalPath,
		Status:       ledger.StatusActive,
	}
	if err := e.store.Append(ctx, entry); err != nil {
		return "", fmt.Errorf("record item: %w", err)
	}
	return finalPath, nil
}

// place moves product to finalPath. When finalPath already holds a file
// carrying the id marker, an earlier run moved the item without recording it:
// an identical download is dropped from temp, a differing one replaces the
// archived copy.
func (e *Engine) place(logger *slog.Logger, product, finalPath, id string) error {
	err := fileutil.MoveFile(logger, product, finalPath)
	if err == nil || !errors.Is(err, fileutil.ErrTargetExists) {
		return err
	}
	if markerID(filepath.Base(finalPath)) != id {
		return err
	}
	same, cmpErr := fileutil.SameContent(product, finalPath)
	if cmpErr != nil {
		return fmt.Errorf("compare with archived copy: %w", cmpErr)
	}
	if same {
		logger.Info("archived copy already in place", logging.String("path", finalPath))
		if rmErr := os.Remove(product); rmErr != nil {
			logging.WarnWithContext(logger, "duplicate download left in temp", "sync_temp_cleanup_failed",
				logging.Error(rmErr),
				logging.String("file", product),
				logging.String(logging.FieldErrorHint, "delete the temp file manually"),
				logging.String(logging.FieldImpact, "temp directory keeps a duplicate of an archived item"),
			)
		}
		return nil
	}
	logging.WarnWithContext(logger, "replacing unrecorded archived copy", "sync_archived_copy_replaced",
		logging.String("path", finalPath),
		logging.String(logging.FieldErrorHint, "an earlier run stopped before recording this item"),
		logging.String(logging.FieldImpact, "archived file replaced by the fresh download"),
	)
	if rmErr := os.Remove(finalPath); rmErr != nil {
		return fmt.Errorf("remove stale archived copy: %w", rmErr)
	}
	return fileutil.MoveFile(logger, product, finalPath)
}

var idMarkerPattern = regexp.MustCompile(`\[([^\[\]]+)\]`)

// markerID returns the id inside the last "[...]" marker of a file's stem,
// or "" when the name carries none.
func markerID(name string) string {
	stem := strings.TrimSuffix(name, filepath.Ext(name))
	matches := idMarkerPattern.FindAllStringSubmatch(stem, -1)
	if len(matches) == 0 {
		return ""
	}
	return matches[len(matches)-1][1]
}

// findProduct picks the downloaded media file in dir. A file carrying the
// id marker in its name is preferred; otherwise only media without any id
// marker qualifies.
func (e *Engine) findProduct(dir, id string) (string, error) {
	dirEntries, err := os.ReadDir(dir)
	if err != nil {
		return "", services.Wrap(services.ErrFetchFailed, "sync", "locate download", "read temp directory", err)
	}
	marker := "[" + id + "]"
	var first string
	for _, entry := range dirEntries {
		if !entry.Type().IsRegular() {
			continue
		}
		name := entry.Name()
		if _, ok := e.extensions[strings.ToLower(filepath.Ext(name))]; !ok {
			continue
		}
		if strings.Contains(name, marker) {
			return filepath.Join(dir, name), nil
		}
		if markerID(name) != "" {
			continue
		}
		if first == "" {
			first = filepath.Join(dir, name)
		}
	}
	if first == "" {
		return "", services.Wrap(services.ErrFetchFailed, "sync", "locate download", "no media file in "+dir, nil)
	}
	return first, nil
}

// moveSidecars carries subtitle and similar files named after product into
// finalDir. Failures are logged only.
func (e *Engine) moveSidecars(logger *slog.Logger, product, finalDir string) {
	dir := filepath.Dir(product)
	stem := strings.TrimSuffix(filepath.Base(product), filepath.Ext(product))
	dirEntries, err := os.ReadDir(dir)
	if err != nil {
		return
	}
	for _, entry := range dirEntries {
		name := entry.Name()
		if !entry.Type().IsRegular() || !strings.HasPrefix(name, stem+".") {
			continue
		}
		if err := fileutil.MoveFile(logger, filepath.Join(dir, name), filepath.Join(finalDir, name)); err != nil {
			if errors.Is(err, fileutil.ErrTargetExists) {
				continue
			}
			logging.WarnWithContext(logger, "sidecar file not moved", "sidecar_move_failed",
				logging.Error(err),
				logging.String("file", name),
				logging.String(logging.FieldErrorHint, "move the file next to the video manually"),
				logging.String(logging.FieldImpact, "subtitle left in the temp directory"),
			)
		}
	}
}

// Missing returns the records whose id is not in entries, in remote order.
// Repeated ids in records are reported once.
func Missing(entries []ledger.Entry, records []ytdlp.Record) []ytdlp.Record {
	known := make(map[string]struct{}, len(entries))
	for _, entry := range entries {
		known[entry.ID] = struct{}{}
	}
	var missing []ytdlp.Record
	for _, record := range records {
		if _, ok := known[record.ID]; ok {
			continue
		}
		known[record.ID] = struct{}{}
		missing = append(missing, record)
	}
	return missing
}

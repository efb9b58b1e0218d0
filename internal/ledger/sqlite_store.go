package ledger

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	_ "modernc.org/sqlite"

	"plarchive/internal/logging"
	"plarchive/internal/services"
)

const (
	sqliteBusyCode          = 5
	busyRetryAttempts       = 5
	busyRetryInitialBackoff = 10 * time.Millisecond
	busyRetryMaxBackoff     = 200 * time.Millisecond
)

const entryColumns = "id, title, group_id, group_name, archived_date, path, status, duplicate_of, tags, notes"

// SQLiteStore keeps the ledger in a SQLite database. The database file is
// created on the first save.
type SQLiteStore struct {
	path   string
	logger *slog.Logger

	mu sync.Mutex
	db *sql.DB
}

// OpenSQLite returns a store for the database at path.
func OpenSQLite(path string, logger *slog.Logger) *SQLiteStore {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &SQLiteStore{path: path, logger: logger}
}

func (s *SQLiteStore) Path() string { return s.path }

func (s *SQLiteStore) Exists() bool {
	info, err := os.Stat(s.path)
	return err == nil && !info.IsDir()
}

// Close closes the underlying database connection.
func (s *SQLiteStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.db == nil {
		return nil
	}
	err := s.db.Close()
	s.db = nil
	return err
}

func (s *SQLiteStore) conn(ctx context.Context) (*sql.DB, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.db != nil {
		return s.db, nil
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return nil, fmt.Errorf("create ledger directory: %w", err)
	}
	db, err := sql.Open("sqlite", s.path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	db.SetMaxOpenConns(1)

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA synchronous = FULL",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.ExecContext(ctx, pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}
	if err := initSchema(ctx, db); err != nil {
		_ = db.Close()
		return nil, err
	}
	s.db = db
	return db, nil
}

func (s *SQLiteStore) Load(ctx context.Context) ([]Entry, error) {
	if !s.Exists() {
		return nil, missingError(s.path)
	}
	db, err := s.conn(ctx)
	if err != nil {
		return nil, err
	}
	rows, err := db.QueryContext(ctx, "SELECT "+entryColumns+" FROM entries ORDER BY seq")
	if err != nil {
		return nil, fmt.Errorf("query entries: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		entry, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate entries: %w", err)
	}
	return entries, nil
}

func (s *SQLiteStore) Save(ctx context.Context, entries []Entry) error {
	normalized := make([]Entry, len(entries))
	for i, entry := range entries {
		normalized[i] = entry.normalized()
	}
	if err := validateEntries(normalized); err != nil {
		return err
	}
	db, err := s.conn(ctx)
	if err != nil {
		return err
	}
	return retryOnBusy(ctx, func() error {
		tx, err := db.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("begin save tx: %w", err)
		}
		defer func() { _ = tx.Rollback() }()

		if _, err := tx.ExecContext(ctx, "DELETE FROM entries"); err != nil {
			return fmt.Errorf("clear entries: %w", err)
		}
		stmt, err := tx.PrepareContext(ctx, "INSERT INTO entries (seq, "+entryColumns+") VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)")
		if err != nil {
			return fmt.Errorf("prepare insert: %w", err)
		}
		defer stmt.Close()
		for i, entry := range normalized {
			args := append([]any{i + 1}, entryArgs(entry)...)
			if _, err := stmt.ExecContext(ctx, args...); err != nil {
				return fmt.Errorf("insert %q: %w", entry.ID, err)
			}
		}
		return tx.Commit()
	})
}

func (s *SQLiteStore) Append(ctx context.Context, entry Entry) error {
	if !s.Exists() {
		return missingError(s.path)
	}
	entry = entry.normalized()
	if entry.ID == "" {
		return services.Wrap(services.ErrValidation, "ledger", "append", "entry has no id", nil)
	}
	db, err := s.conn(ctx)
	if err != nil {
		return err
	}
	if _, found, err := s.FindByID(ctx, entry.ID); err != nil {
		return err
	} else if found {
		return services.Wrap(services.ErrValidation, "ledger", "append", fmt.Sprintf("id %q already recorded", entry.ID), nil)
	}
	return retryOnBusy(ctx, func() error {
		_, err := db.ExecContext(ctx,
			"INSERT INTO entries (seq, "+entryColumns+") VALUES ((SELECT COALESCE(MAX(seq), 0) + 1 FROM entries), ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)",
			entryArgs(entry)...)
		return err
	})
}

func (s *SQLiteStore) FindByID(ctx context.Context, id string) (Entry, bool, error) {
	if !s.Exists() {
		return Entry{}, false, missingError(s.path)
	}
	db, err := s.conn(ctx)
	if err != nil {
		return Entry{}, false, err
	}
	row := db.QueryRowContext(ctx, "SELECT "+entryColumns+" FROM entries WHERE id = ?", id)
	entry, err := scanEntry(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Entry{}, false, nil
	}
	if err != nil {
		return Entry{}, false, err
	}
	return entry, true, nil
}

func (s *SQLiteStore) SetStatus(ctx context.Context, id string, status Status) error {
	return s.updateOne(ctx, "set status", id, "UPDATE entries SET status = ? WHERE id = ?", string(status), id)
}

func (s *SQLiteStore) UpdateTitle(ctx context.Context, id, title, note string) error {
	entry, found, err := s.FindByID(ctx, id)
	if err != nil {
		return err
	}
	if !found {
		return notFoundError("update title", id)
	}
	entry.Title = title
	entry.AppendNote(note)
	entry = entry.normalized()
	return s.updateOne(ctx, "update title", id, "UPDATE entries SET title = ?, notes = ? WHERE id = ?", entry.Title, entry.Notes, id)
}

func (s *SQLiteStore) updateOne(ctx context.Context, op, id, query string, args ...any) error {
	if !s.Exists() {
		return missingError(s.path)
	}
	db, err := s.conn(ctx)
	if err != nil {
		return err
	}
	var affected int64
	if err := retryOnBusy(ctx, func() error {
		res, err := db.ExecContext(ctx, query, args...)
		if err != nil {
			return err
		}
		affected, err = res.RowsAffected()
		return err
	}); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if affected == 0 {
		return notFoundError(op, id)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanEntry(row rowScanner) (Entry, error) {
	var (
		entry              Entry
		date, status, tags string
	)
	if err := row.Scan(&entry.ID, &entry.Title, &entry.GroupID, &entry.GroupName, &date, &entry.Path, &status, &entry.DuplicateOf, &tags, &entry.Notes); err != nil {
		return Entry{}, err
	}
	var err error
	if entry.ArchivedDate, err = ParseDate(date); err != nil {
		return Entry{}, err
	}
	if entry.Status, err = ParseStatus(status); err != nil {
		return Entry{}, err
	}
	entry.Tags = SplitTags(tags)
	return entry, nil
}

func entryArgs(e Entry) []any {
	return []any{e.ID, e.Title, e.GroupID, e.GroupName, e.FormatDate(), e.Path, string(e.Status), e.DuplicateOf, JoinTags(e.Tags), e.Notes}
}

func isSQLiteBusy(err error) bool {
	if err == nil {
		return false
	}
	var coder interface{ Code() int }
	if errors.As(err, &coder) && coder.Code() == sqliteBusyCode {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "SQLITE_BUSY") || strings.Contains(msg, "database is locked")
}

func retryOnBusy(ctx context.Context, op func() error) error {
	delay := busyRetryInitialBackoff
	var lastErr error
	for attempt := 0; attempt < busyRetryAttempts; attempt++ {
		lastErr = op()
		if lastErr == nil {
			return nil
		}
		if !isSQLiteBusy(lastErr) || attempt == busyRetryAttempts-1 {
			break
		}
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return ctx.Err()
		}
		if next := delay * 2; next <= busyRetryMaxBackoff {
			delay = next
		}
	}
	return lastErr
}

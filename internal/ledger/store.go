package ledger

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"plarchive/internal/config"
	"plarchive/internal/logging"
	"plarchive/internal/services"
)

// ErrNotFound is returned when an id is not in the ledger.
var ErrNotFound = errors.New("ledger entry not found")

// Store persists the ledger. Implementations keep entries in insertion
// order and reject duplicate ids.
type Store interface {
	// Path is the file backing the store.
	Path() string
	// Exists reports whether a ledger has been written.
	Exists() bool
	// Load returns every entry in order, or ErrLedgerMissing.
	Load(ctx context.Context) ([]Entry, error)
	// Save replaces the whole ledger.
	Save(ctx context.Context, entries []Entry) error
	// Append adds one new entry and persists it immediately.
	Append(ctx context.Context, entry Entry) error
	FindByID(ctx context.Context, id string) (Entry, bool, error)
	SetStatus(ctx context.Context, id string, status Status) error
	// UpdateTitle sets the title and appends note to the entry's notes.
	UpdateTitle(ctx context.Context, id, title, note string) error
	Close() error
}

// Open returns the store selected by the ledger backend setting.
func Open(cfg *config.Config, logger *slog.Logger) (Store, error) {
	if cfg == nil {
		return nil, errors.New("ledger requires configuration")
	}
	logger = logging.NewComponentLogger(logger, "ledger")
	switch cfg.Ledger.Backend {
	case config.LedgerBackendSQLite:
		return OpenSQLite(cfg.Ledger.SQLitePath, logger), nil
	case config.LedgerBackendCSV, "":
		return OpenCSV(cfg.Paths.LedgerPath, logger), nil
	default:
		return nil, services.Wrap(services.ErrConfiguration, "ledger", "open", fmt.Sprintf("unknown backend %q", cfg.Ledger.Backend), nil)
	}
}

func missingError(path string) error {
	return services.Wrap(services.ErrLedgerMissing, "ledger", "load", fmt.Sprintf("no ledger at %s", path), nil)
}

func notFoundError(op, id string) error {
	return services.Wrap(services.ErrValidation, "ledger", op, fmt.Sprintf("id %q", id), ErrNotFound)
}

// mutateOne loads the ledger, applies fn to the entry with id and saves.
func mutateOne(ctx context.Context, s Store, op, id string, fn func(*Entry)) error {
	entries, err := s.Load(ctx)
	if err != nil {
		return err
	}
	idx, ok := IndexByID(entries)[id]
	if !ok {
		return notFoundError(op, id)
	}
	fn(&entries[idx])
	return s.Save(ctx, entries)
}

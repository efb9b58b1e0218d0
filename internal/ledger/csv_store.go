package ledger

import (
	"bufio"
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"strings"

	"plarchive/internal/fileutil"
	"plarchive/internal/logging"
	"plarchive/internal/services"
)

const utf8BOM = "\ufeff"

// Columns is the ledger header in persisted order.
var Columns = []string{"id", "title", "group_id", "group_name", "archived_date", "path", "status", "duplicate_of", "tags", "notes"}

// legacyColumns maps header names written by older tooling to Columns.
var legacyColumns = map[string]string{
	"video_id":      "id",
	"channel_id":    "group_id",
	"uploader":      "group_name",
	"download_date": "archived_date",
	"file_path":     "path",
}

// CSVStore keeps the ledger in a single UTF-8 CSV file. Every write rewrites
// the whole file atomically.
type CSVStore struct {
	path   string
	logger *slog.Logger
}

// OpenCSV returns a store for the CSV file at path. The file is not touched
// until the first load or save.
func OpenCSV(path string, logger *slog.Logger) *CSVStore {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &CSVStore{path: path, logger: logger}
}

func (s *CSVStore) Path() string { return s.path }

func (s *CSVStore) Exists() bool {
	info, err := os.Stat(s.path)
	return err == nil && !info.IsDir()
}

func (s *CSVStore) Close() error { return nil }

func (s *CSVStore) Load(ctx context.Context) ([]Entry, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, missingError(s.path)
		}
		return nil, services.Wrap(services.ErrValidation, "ledger", "load", "read ledger", err)
	}
	entries, err := DecodeCSV(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	s.logger.Debug("ledger loaded", logging.String("path", s.path), logging.Int("entries", len(entries)))
	return entries, nil
}

func (s *CSVStore) Save(ctx context.Context, entries []Entry) error {
	normalized := make([]Entry, len(entries))
	for i, entry := range entries {
		normalized[i] = entry.normalized()
	}
	if err := validateEntries(normalized); err != nil {
		return err
	}
	if err := fileutil.WriteFileAtomic(s.path, 0o644, func(w io.Writer) error {
		return EncodeCSV(w, normalized)
	}); err != nil {
		return fmt.Errorf("save ledger: %w", err)
	}
	s.logger.Debug("ledger saved", logging.String("path", s.path), logging.Int("entries", len(entries)))
	return nil
}

func (s *CSVStore) Append(ctx context.Context, entry Entry) error {
	entries, err := s.Load(ctx)
	if err != nil {
		return err
	}
	entry = entry.normalized()
	if _, exists := IndexByID(entries)[entry.ID]; exists {
		return services.Wrap(services.ErrValidation, "ledger", "append", fmt.Sprintf("id %q already recorded", entry.ID), nil)
	}
	return s.Save(ctx, append(entries, entry))
}

func (s *CSVStore) FindByID(ctx context.Context, id string) (Entry, bool, error) {
	entries, err := s.Load(ctx)
	if err != nil {
		return Entry{}, false, err
	}
	if idx, ok := IndexByID(entries)[id]; ok {
		return entries[idx], true, nil
	}
	return Entry{}, false, nil
}

func (s *CSVStore) SetStatus(ctx context.Context, id string, status Status) error {
	return mutateOne(ctx, s, "set status", id, func(e *Entry) { e.Status = status })
}

func (s *CSVStore) UpdateTitle(ctx context.Context, id, title, note string) error {
	return mutateOne(ctx, s, "update title", id, func(e *Entry) {
		e.Title = title
		e.AppendNote(note)
	})
}

// EncodeCSV writes entries as a BOM-prefixed CSV document with every field
// quoted.
func EncodeCSV(w io.Writer, entries []Entry) error {
	rows := make([][]string, len(entries))
	for i, entry := range entries {
		rows[i] = entryRecord(entry)
	}
	return EncodeRows(w, Columns, rows)
}

// EncodeRows writes header and rows in the ledger's CSV dialect: a UTF-8 BOM,
// every field quoted and embedded quotes doubled.
func EncodeRows(w io.Writer, header []string, rows [][]string) error {
	bw := bufio.NewWriter(w)
	if _, err := bw.WriteString(utf8BOM); err != nil {
		return err
	}
	if err := writeQuoted(bw, header); err != nil {
		return err
	}
	for _, row := range rows {
		if err := writeQuoted(bw, row); err != nil {
			return err
		}
	}
	return bw.Flush()
}

func writeQuoted(w *bufio.Writer, fields []string) error {
	for i, field := range fields {
		if i > 0 {
			if err := w.WriteByte(','); err != nil {
				return err
			}
		}
		if _, err := w.WriteString(`"` + strings.ReplaceAll(field, `"`, `""`) + `"`); err != nil {
			return err
		}
	}
	return w.WriteByte('\n')
}

func entryRecord(e Entry) []string {
	return []string{
		e.ID,
		e.Title,
		e.GroupID,
		e.GroupName,
		e.FormatDate(),
		e.Path,
		string(e.Status),
		e.DuplicateOf,
		JoinTags(e.Tags),
		e.Notes,
	}
}

// DecodeCSV parses a ledger document. A leading BOM is ignored and legacy
// header names are accepted. An empty document is an empty ledger.
func DecodeCSV(r io.Reader) ([]Entry, error) {
	br := bufio.NewReader(r)
	if prefix, err := br.Peek(len(utf8BOM)); err == nil && string(prefix) == utf8BOM {
		_, _ = br.Discard(len(utf8BOM))
	}
	reader := csv.NewReader(br)
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if errors.Is(err, io.EOF) {
		return nil, nil
	}
	if err != nil {
		return nil, services.Wrap(services.ErrValidation, "ledger", "decode", "read header", err)
	}
	columns := make(map[string]int, len(header))
	for i, name := range header {
		name = strings.ToLower(strings.TrimSpace(name))
		if canonical, ok := legacyColumns[name]; ok {
			name = canonical
		}
		if _, dup := columns[name]; !dup {
			columns[name] = i
		}
	}
	if _, ok := columns["id"]; !ok {
		return nil, services.Wrap(services.ErrValidation, "ledger", "decode", "header has no id column", nil)
	}

	var entries []Entry
	for line := 2; ; line++ {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, services.Wrap(services.ErrValidation, "ledger", "decode", fmt.Sprintf("row %d", line), err)
		}
		field := func(name string) string {
			if idx, ok := columns[name]; ok && idx < len(record) {
				return record[idx]
			}
			return ""
		}
		if isBlankRecord(record) {
			continue
		}
		status, err := ParseStatus(field("status"))
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", line, err)
		}
		date, err := ParseDate(field("archived_date"))
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", line, err)
		}
		entries = append(entries, Entry{
			ID:           strings.TrimSpace(field("id")),
			Title:        field("title"),
			GroupID:      field("group_id"),
			GroupName:    field("group_name"),
			ArchivedDate: date,
			Path:         field("path"),
			Status:       status,
			DuplicateOf:  field("duplicate_of"),
			Tags:         SplitTags(field("tags")),
			Notes:        field("notes"),
		})
	}
	if err := validateEntries(entries); err != nil {
		return nil, err
	}
	return entries, nil
}

func isBlankRecord(record []string) bool {
	for _, field := range record {
		if strings.TrimSpace(field) != "" {
			return false
		}
	}
	return true
}

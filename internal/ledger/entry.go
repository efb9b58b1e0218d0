package ledger

import (
	"fmt"
	"slices"
	"strings"
	"time"

	"plarchive/internal/services"
)

// DateLayout is the persisted form of ArchivedDate.
const DateLayout = "2006-01-02"

// Status is the lifecycle state of an archived item.
type Status string

const (
	StatusActive  Status = "active"
	StatusDeleted Status = "deleted"
)

// ParseStatus maps a persisted status to Status. Empty means active.
func ParseStatus(raw string) (Status, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "", string(StatusActive):
		return StatusActive, nil
	case string(StatusDeleted):
		return StatusDeleted, nil
	default:
		return "", services.Wrap(services.ErrValidation, "ledger", "parse status", fmt.Sprintf("unknown status %q", raw), nil)
	}
}

// Entry is one archived item.
type Entry struct {
	ID           string
	Title        string
	GroupID      string
	GroupName    string
	ArchivedDate time.Time
	Path         string
	Status       Status
	DuplicateOf  string
	Tags         []string
	Notes        string
}

// Active reports whether the item is still present remotely.
func (e Entry) Active() bool {
	return e.Status == StatusActive
}

// AppendNote adds note to Notes, separated by a space.
func (e *Entry) AppendNote(note string) {
	note = strings.TrimSpace(note)
	if note == "" {
		return
	}
	if strings.TrimSpace(e.Notes) == "" {
		e.Notes = note
		return
	}
	e.Notes = strings.TrimSpace(e.Notes) + " " + note
}

// FormatDate renders ArchivedDate, or empty for the zero time.
func (e Entry) FormatDate() string {
	if e.ArchivedDate.IsZero() {
		return ""
	}
	return e.ArchivedDate.Format(DateLayout)
}

// ParseDate parses a persisted ArchivedDate. Empty yields the zero time.
func ParseDate(raw string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, nil
	}
	// Older ledgers sometimes carry a time component.
	if len(raw) > len(DateLayout) {
		raw = raw[:len(DateLayout)]
	}
	t, err := time.Parse(DateLayout, raw)
	if err != nil {
		return time.Time{}, services.Wrap(services.ErrValidation, "ledger", "parse date", fmt.Sprintf("invalid date %q", raw), err)
	}
	return t, nil
}

// Today truncates now to its calendar date.
func Today(now time.Time) time.Time {
	y, m, d := now.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// JoinTags renders a tag set in its persisted form.
func JoinTags(tags []string) string {
	return strings.Join(normalizeTags(tags), ";")
}

// SplitTags parses the persisted form of a tag set.
func SplitTags(raw string) []string {
	if strings.TrimSpace(raw) == "" {
		return nil
	}
	return normalizeTags(strings.Split(raw, ";"))
}

func normalizeTags(tags []string) []string {
	if len(tags) == 0 {
		return nil
	}
	out := make([]string, 0, len(tags))
	for _, tag := range tags {
		tag = cleanField(tag)
		tag = strings.ReplaceAll(tag, ";", ",")
		if tag != "" {
			out = append(out, tag)
		}
	}
	slices.Sort(out)
	out = slices.Compact(out)
	if len(out) == 0 {
		return nil
	}
	return out
}

var fieldBreaks = strings.NewReplacer("\r\n", " ", "\r", " ", "\n", " ")

func cleanField(v string) string {
	return strings.TrimSpace(fieldBreaks.Replace(v))
}

// normalized returns e with line breaks removed from its text fields and
// missing values defaulted.
func (e Entry) normalized() Entry {
	e.ID = cleanField(e.ID)
	e.Title = cleanField(e.Title)
	e.GroupID = cleanField(e.GroupID)
	e.GroupName = cleanField(e.GroupName)
	e.Path = cleanField(e.Path)
	e.DuplicateOf = cleanField(e.DuplicateOf)
	e.Notes = cleanField(e.Notes)
	e.Tags = normalizeTags(e.Tags)
	if e.Status == "" {
		e.Status = StatusActive
	}
	return e
}

// validateEntries checks that every entry has an id and no id repeats.
func validateEntries(entries []Entry) error {
	seen := make(map[string]struct{}, len(entries))
	for i, entry := range entries {
		if entry.ID == "" {
			return services.Wrap(services.ErrValidation, "ledger", "validate", fmt.Sprintf("row %d has no id", i+1), nil)
		}
		if _, dup := seen[entry.ID]; dup {
			return services.Wrap(services.ErrValidation, "ledger", "validate", fmt.Sprintf("duplicate id %q", entry.ID), nil)
		}
		seen[entry.ID] = struct{}{}
	}
	return nil
}

// IndexByID maps ids to positions in entries.
func IndexByID(entries []Entry) map[string]int {
	index := make(map[string]int, len(entries))
	for i, entry := range entries {
		index[entry.ID] = i
	}
	return index
}

package report

import (
	"context"
	"io"
	"path/filepath"
	"sort"
	"strings"

	"plarchive/internal/fileutil"
	"plarchive/internal/ledger"
	"plarchive/internal/scanner"
	"plarchive/internal/services/ytdlp"
)

// Report file names inside the report directory.
const (
	DeletedFile         = "deleted_videos.csv"
	UnmatchedRemoteFile = "unmatched_remote.csv"
	UnmatchedLocalFile  = "unmatched_local.csv"
)

var flat = strings.NewReplacer("\r\n", " ", "\r", " ", "\n", " ")

// WriteDeleted writes the deleted entries of the ledger to path in the
// ledger's own CSV shape and returns how many rows were written.
func WriteDeleted(path string, entries []ledger.Entry) (int, error) {
	var deleted []ledger.Entry
	for _, entry := range entries {
		if entry.Status == ledger.StatusDeleted {
			deleted = append(deleted, entry)
		}
	}
	err := fileutil.WriteFileAtomic(path, 0o644, func(w io.Writer) error {
		return ledger.EncodeCSV(w, deleted)
	})
	return len(deleted), err
}

// WriteUnmatchedRemote lists playlist records no local file was paired with.
func WriteUnmatchedRemote(path string, records []ytdlp.Record) error {
	rows := make([][]string, len(records))
	for i, r := range records {
		rows[i] = []string{r.ID, flat.Replace(r.Title), r.GroupID, r.GroupName}
	}
	return writeRows(path, []string{"id", "title", "group_id", "group_name"}, rows)
}

// WriteUnmatchedLocal lists local files no playlist record was paired with.
func WriteUnmatchedLocal(path string, files []scanner.LocalFile) error {
	rows := make([][]string, len(files))
	for i, f := range files {
		rows[i] = []string{flat.Replace(f.Path), f.NormalizedTitle, f.InferredGroupID, f.InferredGroupName}
	}
	return writeRows(path, []string{"path", "normalized_title", "group_id", "group_name"}, rows)
}

func writeRows(path string, header []string, rows [][]string) error {
	return fileutil.WriteFileAtomic(path, 0o644, func(w io.Writer) error {
		return ledger.EncodeRows(w, header, rows)
	})
}

// GroupCount tallies the entries of one channel.
type GroupCount struct {
	GroupID   string
	GroupName string
	Active    int
	Deleted   int
}

// Total is the number of entries in the group.
func (g GroupCount) Total() int { return g.Active + g.Deleted }

// Summary tallies a ledger by status and channel.
type Summary struct {
	Total   int
	Active  int
	Deleted int
	Groups  []GroupCount
}

// Summarize counts entries per status and per channel. Groups are ordered by
// size, largest first, then by name.
func Summarize(entries []ledger.Entry) Summary {
	var summary Summary
	index := map[string]int{}
	for _, entry := range entries {
		summary.Total++
		idx, ok := index[entry.GroupID]
		if !ok {
			idx = len(summary.Groups)
			index[entry.GroupID] = idx
			summary.Groups = append(summary.Groups, GroupCount{GroupID: entry.GroupID, GroupName: entry.GroupName})
		}
		group := &summary.Groups[idx]
		if group.GroupName == "" {
			group.GroupName = entry.GroupName
		}
		if entry.Status == ledger.StatusDeleted {
			summary.Deleted++
			group.Deleted++
		} else {
			summary.Active++
			group.Active++
		}
	}
	sort.SliceStable(summary.Groups, func(i, j int) bool {
		a, b := summary.Groups[i], summary.Groups[j]
		if a.Total() != b.Total() {
			return a.Total() > b.Total()
		}
		return strings.ToLower(a.GroupName) < strings.ToLower(b.GroupName)
	})
	return summary
}

// Result describes a generated report.
type Result struct {
	Summary     Summary
	DeletedPath string
	DeletedRows int
}

// Generate loads the ledger, writes the deleted-items report into reportDir
// and returns the ledger summary.
func Generate(ctx context.Context, store ledger.Store, reportDir string) (Result, error) {
	entries, err := store.Load(ctx)
	if err != nil {
		return Result{}, err
	}
	path := filepath.Join(reportDir, DeletedFile)
	rows, err := WriteDeleted(path, entries)
	if err != nil {
		return Result{}, err
	}
	return Result{Summary: Summarize(entries), DeletedPath: path, DeletedRows: rows}, nil
}

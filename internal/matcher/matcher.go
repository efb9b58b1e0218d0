package matcher

import (
	"time"

	"plarchive/internal/config"
	"plarchive/internal/ledger"
	"plarchive/internal/scanner"
	"plarchive/internal/services/ytdlp"
	"plarchive/internal/textutil"
)

// Options tunes a matching pass.
type Options struct {
	// Threshold is the inclusive minimum score for a pairing.
	Threshold float64
	// Scorer rates two comparison keys. Ratio is used when nil.
	Scorer textutil.Scorer
	// Now supplies the archived date of new entries. time.Now when nil.
	Now func() time.Time
}

// Pair is a local file paired with a remote record.
type Pair struct {
	Entry     ledger.Entry
	LocalPath string
	Score     float64
}

// Result is the outcome of a matching pass.
type Result struct {
	Matched         []Pair
	UnmatchedRemote []ytdlp.Record
	UnmatchedLocal  []scanner.LocalFile
}

// Entries returns the ledger entries of every pairing, in scan order.
func (r Result) Entries() []ledger.Entry {
	entries := make([]ledger.Entry, len(r.Matched))
	for i, pair := range r.Matched {
		entries[i] = pair.Entry
	}
	return entries
}

// ScorerFor maps a configured scorer name to its implementation.
func ScorerFor(name string) textutil.Scorer {
	if name == config.ScorerLevenshtein {
		return textutil.LevenshteinRatio
	}
	return textutil.Ratio
}

type candidate struct {
	record ytdlp.Record
	key    string
	taken  bool
}

// Match pairs each local file with the best-scoring remaining remote record.
// Locals are visited in the order given and a paired remote leaves the pool,
// so earlier locals win contested remotes. Among equal scores the remote
// listed first wins. A record whose id already appeared earlier in remotes is
// ignored.
func Match(locals []scanner.LocalFile, remotes []ytdlp.Record, opts Options) Result {
	scorer := opts.Scorer
	if scorer == nil {
		scorer = textutil.Ratio
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}

	seen := make(map[string]struct{}, len(remotes))
	pool := make([]*candidate, 0, len(remotes))
	for _, record := range remotes {
		if _, dup := seen[record.ID]; dup {
			continue
		}
		seen[record.ID] = struct{}{}
		pool = append(pool, &candidate{record: record, key: textutil.ComparisonKey(record.Title)})
	}

	archived := ledger.Today(now())
	var result Result
	for _, local := range locals {
		if local.NormalizedTitle == "" {
			result.UnmatchedLocal = append(result.UnmatchedLocal, local)
			continue
		}
		var best *candidate
		bestScore := 0.0
		for _, c := range pool {
			if c.taken {
				continue
			}
			score := scorer(local.NormalizedTitle, c.key)
			if score >= opts.Threshold && (best == nil || score > bestScore) {
				best, bestScore = c, score
			}
		}
		if best == nil {
			result.UnmatchedLocal = append(result.UnmatchedLocal, local)
			continue
		}
		best.taken = true
		result.Matched = append(result.Matched, Pair{
			Entry:     newEntry(best.record, local, archived),
			LocalPath: local.Path,
			Score:     bestScore,
		})
	}

	for _, c := range pool {
		if !c.taken {
			result.UnmatchedRemote = append(result.UnmatchedRemote, c.record)
		}
	}
	return result
}

func newEntry(remote ytdlp.Record, local scanner.LocalFile, archived time.Time) ledger.Entry {
	groupID, groupName := remote.GroupID, remote.GroupName
	if groupID == "" {
		groupID = local.InferredGroupID
	}
	if groupName == "" {
		groupName = local.InferredGroupName
	}
	return ledger.Entry{
		ID:           remote.ID,
		Title:        remote.Title,
		GroupID:      groupID,
		GroupName:    groupName,
		ArchivedDate: archived,
		Path:         local.Path,
		Status:       ledger.StatusActive,
	}
}

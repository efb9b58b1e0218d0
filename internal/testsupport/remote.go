package testsupport

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"plarchive/internal/services/ytdlp"
)

// FakeRemote stands in for yt-dlp in engine tests. It lists Records, fetches
// by writing "<title> [<id>].mp4" into the destination and answers probes
// from Probes.
type FakeRemote struct {
	mu sync.Mutex

	Records []ytdlp.Record
	ListErr error

	// FetchErrs fails fetches for the given ids.
	FetchErrs map[string]error
	// SkipWrite makes fetch succeed without producing a file.
	SkipWrite map[string]bool
	// Sidecars lists extra suffixes written next to each fetched file.
	Sidecars []string

	Probes    map[string]ytdlp.ProbeResult
	ProbeErrs map[string]error

	Fetched []string
	Probed  []string
}

func (f *FakeRemote) ListPlaylist(ctx context.Context, playlistURL string) ([]ytdlp.Record, error) {
	if err := ytdlp.ValidatePlaylistURL(playlistURL); err != nil {
		return nil, err
	}
	if f.ListErr != nil {
		return nil, f.ListErr
	}
	return append([]ytdlp.Record(nil), f.Records...), nil
}

func (f *FakeRemote) Fetch(ctx context.Context, id, destDir string) error {
	f.mu.Lock()
	f.Fetched = append(f.Fetched, id)
	f.mu.Unlock()

	if err := f.FetchErrs[id]; err != nil {
		return err
	}
	if f.SkipWrite[id] {
		return nil
	}
	title := id
	for _, r := range f.Records {
		if r.ID == id {
			title = r.Title
			break
		}
	}
	if err := os.MkdirAll(destDir, 0o755); err != nil {
		return err
	}
	stem := filepath.Join(destDir, fmt.Sprintf("%s [%s]", title, id))
	if err := os.WriteFile(stem+".mp4", []byte("media:"+id), 0o644); err != nil {
		return err
	}
	for _, suffix := range f.Sidecars {
		if err := os.WriteFile(stem+suffix, []byte("sidecar"), 0o644); err != nil {
			return err
		}
	}
	return nil
}

func (f *FakeRemote) Probe(ctx context.Context, id string) (ytdlp.ProbeResult, error) {
	f.mu.Lock()
	f.Probed = append(f.Probed, id)
	f.mu.Unlock()

	if err := f.ProbeErrs[id]; err != nil {
		return ytdlp.ProbeResult{}, err
	}
	if result, ok := f.Probes[id]; ok {
		return result, nil
	}
	return ytdlp.ProbeResult{}, errors.New("no canned probe for " + id)
}

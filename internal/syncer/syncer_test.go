package syncer_test

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"testing"
	"time"

	"plarchive/internal/config"
	"plarchive/internal/ledger"
	"plarchive/internal/logging"
	"plarchive/internal/services"
	"plarchive/internal/services/ytdlp"
	"plarchive/internal/syncer"
	"plarchive/internal/testsupport"
)

func newEngine(t *testing.T, cfg *config.Config, remote *testsupport.FakeRemote) (*syncer.Engine, ledger.Store) {
	t.Helper()
	store := testsupport.MustOpenStore(t, cfg)
	engine := syncer.New(cfg, store, remote, remote, logging.NewNop())
	engine.SetClock(func() time.Time { return time.Date(2024, 7, 1, 12, 0, 0, 0, time.UTC) })
	return engine, store
}

func records(ids ...string) []ytdlp.Record {
	out := make([]ytdlp.Record, len(ids))
	for i, id := range ids {
		out[i] = ytdlp.Record{ID: id, Title: "Song " + id, GroupID: "g1", GroupName: "Chan"}
	}
	return out
}

func TestRunFetchesOnlyMissing(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	remote := &testsupport.FakeRemote{Records: records("A", "B", "C")}
	engine, store := newEngine(t, cfg, remote)
	testsupport.SeedLedger(t, store, ledger.Entry{ID: "A", Title: "Song A"}, ledger.Entry{ID: "B", Title: "Song B"})

	summary, err := engine.Run(context.Background(), cfg.Source.PlaylistURL, syncer.Options{})
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	if !reflect.DeepEqual(remote.Fetched, []string{"C"}) {
		t.Fatalf("fetched %v, want [C]", remote.Fetched)
	}
	want := syncer.Summary{Listed: 3, Missing: 1, Archived: 1}
	if !reflect.DeepEqual(summary, want) {
		t.Fatalf("summary = %+v, want %+v", summary, want)
	}

	entries := testsupport.MustLoad(t, store)
	if len(entries) != 3 {
		t.Fatalf("expected 3 entries, got %d", len(entries))
	}
	c := entries[2]
	wantPath := filepath.Join(cfg.Paths.FinalDir, "@g1 [Chan]", "Song C [C].mp4")
	if c.ID != "C" || c.Path != wantPath || c.Status != ledger.StatusActive || c.FormatDate() != "2024-07-01" {
		t.Fatalf("unexpected entry: %+v", c)
	}
	if got := testsupport.ReadFile(t, wantPath); got != "media:C" {
		t.Fatalf("archived content = %q", got)
	}
	if _, err := os.Stat(filepath.Join(cfg.Paths.TempDir, "@g1 [Chan]", "Song C [C].mp4")); !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("temp file should be gone: %v", err)
	}
}

func TestRunIsIdempotent(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	remote := &testsupport.FakeRemote{Records: records("A", "B")}
	engine, store := newEngine(t, cfg, remote)
	testsupport.SeedLedger(t, store)

	if _, err := engine.Run(context.Background(), cfg.Source.PlaylistURL, syncer.Options{}); err != nil {
		t.Fatalf("first run: %v", err)
	}
	before, err := os.ReadFile(cfg.Paths.LedgerPath)
	if err != nil {
		t.Fatal(err)
	}

	remote.Fetched = nil
	summary, err := engine.Run(context.Background(), cfg.Source.PlaylistURL, syncer.Options{})
	if err != nil {
		t.Fatalf("second run: %v", err)
	}
	if summary.Missing != 0 || len(remote.Fetched) != 0 {
		t.Fatalf("second run should be a no-op: %+v fetched=%v", summary, remote.Fetched)
	}
	after, _ := os.ReadFile(cfg.Paths.LedgerPath)
	if !bytes.Equal(before, after) {
		t.Fatal("ledger bytes changed on a no-op sync")
	}
}

func TestRunResumesAfterPartialFailure(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	remote := &testsupport.FakeRemote{
		Records:   records("X", "Y"),
		FetchErrs: map[string]error{"Y": services.Wrap(services.ErrFetchFailed, "ytdlp", "fetch", "Y", errors.New("connection reset"))},
	}
	engine, store := newEngine(t, cfg, remote)
	testsupport.SeedLedger(t, store)

	summary, err := engine.Run(context.Background(), cfg.Source.PlaylistURL, syncer.Options{})
	if err != nil {
		t.Fatalf("first run: %v", err)
	}
	if summary.Archived != 1 || summary.Failed != 1 || !reflect.DeepEqual(summary.FailedIDs, []string{"Y"}) {
		t.Fatalf("unexpected summary: %+v", summary)
	}
	if entries := testsupport.MustLoad(t, store); len(entries) != 1 || entries[0].ID != "X" {
		t.Fatalf("X should be recorded alone: %+v", entries)
	}

	remote.FetchErrs = nil
	remote.Fetched = nil
	if _, err := engine.Run(context.Background(), cfg.Source.PlaylistURL, syncer.Options{}); err != nil {
		t.Fatalf("second run: %v", err)
	}
	if !reflect.DeepEqual(remote.Fetched, []string{"Y"}) {
		t.Fatalf("second run fetched %v, want [Y]", remote.Fetched)
	}
}

func TestRunRequiresLedger(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	remote := &testsupport.FakeRemote{Records: records("A")}
	engine, _ := newEngine(t, cfg, remote)

	_, err := engine.Run(context.Background(), cfg.Source.PlaylistURL, syncer.Options{})
	if !errors.Is(err, services.ErrLedgerMissing) {
		t.Fatalf("expected ErrLedgerMissing, got %v", err)
	}
	if len(remote.Fetched) != 0 {
		t.Fatalf("nothing should be fetched: %v", remote.Fetched)
	}
}

func TestRunRejectsInvalidSource(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	engine, store := newEngine(t, cfg, &testsupport.FakeRemote{})
	testsupport.SeedLedger(t, store)

	_, err := engine.Run(context.Background(), "https://example.com/watch?v=1", syncer.Options{})
	if !errors.Is(err, services.ErrInvalidSource) {
		t.Fatalf("expected ErrInvalidSource, got %v", err)
	}
}

func TestRunHonoursLimit(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	remote := &testsupport.FakeRemote{Records: records("A", "B", "C")}
	engine, store := newEngine(t, cfg, remote)
	testsupport.SeedLedger(t, store)

	summary, err := engine.Run(context.Background(), cfg.Source.PlaylistURL, syncer.Options{Limit: 2})
	if err != nil {
		t.Fatal(err)
	}
	if summary.Missing != 3 || summary.Archived != 2 || !reflect.DeepEqual(remote.Fetched, []string{"A", "B"}) {
		t.Fatalf("unexpected run: %+v fetched=%v", summary, remote.Fetched)
	}
}

func TestRunCountsMissingProduct(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	remote := &testsupport.FakeRemote{Records: records("A"), SkipWrite: map[string]bool{"A": true}}
	engine, store := newEngine(t, cfg, remote)
	testsupport.SeedLedger(t, store)

	summary, err := engine.Run(context.Background(), cfg.Source.PlaylistURL, syncer.Options{})
	if err != nil {
		t.Fatal(err)
	}
	if summary.Failed != 1 || summary.Archived != 0 {
		t.Fatalf("unexpected summary: %+v", summary)
	}
	if entries := testsupport.MustLoad(t, store); len(entries) != 0 {
		t.Fatalf("nothing should be recorded: %+v", entries)
	}
}

func TestRunMovesSidecars(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	remote := &testsupport.FakeRemote{Records: records("A"), Sidecars: []string{".en.vtt", ".ja.vtt"}}
	engine, store := newEngine(t, cfg, remote)
	testsupport.SeedLedger(t, store)

	if _, err := engine.Run(context.Background(), cfg.Source.PlaylistURL, syncer.Options{}); err != nil {
		t.Fatal(err)
	}
	for _, name := range []string{"Song A [A].mp4", "Song A [A].en.vtt", "Song A [A].ja.vtt"} {
		if _, err := os.Stat(filepath.Join(cfg.Paths.FinalDir, "@g1 [Chan]", name)); err != nil {
			t.Fatalf("expected %s in archive: %v", name, err)
		}
	}
}

func TestRunStopsOnCancellation(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	remote := &testsupport.FakeRemote{Records: records("A", "B")}
	engine, store := newEngine(t, cfg, remote)
	testsupport.SeedLedger(t, store)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := engine.Run(ctx, cfg.Source.PlaylistURL, syncer.Options{}); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if len(remote.Fetched) != 0 {
		t.Fatalf("nothing should be fetched after cancel: %v", remote.Fetched)
	}
}

func TestMissingKeepsRemoteOrderAndDedups(t *testing.T) {
	entries := []ledger.Entry{{ID: "B"}}
	got := syncer.Missing(entries, records("C", "B", "A", "C"))
	var ids []string
	for _, r := range got {
		ids = append(ids, r.ID)
	}
	if !reflect.DeepEqual(ids, []string{"C", "A"}) {
		t.Fatalf("Missing = %v", ids)
	}
}

func TestRunRecordsItemMovedButNotRecorded(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	remote := &testsupport.FakeRemote{Records: records("C")}
	engine, store := newEngine(t, cfg, remote)
	testsupport.SeedLedger(t, store)
	finalPath := filepath.Join(cfg.Paths.FinalDir, "@g1 [Chan]", "Song C [C].mp4")
	testsupport.WriteFile(t, finalPath, "media:C")

	summary, err := engine.Run(context.Background(), cfg.Source.PlaylistURL, syncer.Options{})
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	want := syncer.Summary{Listed: 1, Missing: 1, Archived: 1}
	if !reflect.DeepEqual(summary, want) {
		t.Fatalf("summary = %+v, want %+v", summary, want)
	}
	entries := testsupport.MustLoad(t, store)
	if len(entries) != 1 || entries[0].ID != "C" || entries[0].Path != finalPath {
		t.Fatalf("unexpected entries: %+v", entries)
	}
	if _, err := os.Stat(filepath.Join(cfg.Paths.TempDir, "@g1 [Chan]", "Song C [C].mp4")); !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("duplicate download should be removed from temp: %v", err)
	}

	remote.Fetched = nil
	summary, err = engine.Run(context.Background(), cfg.Source.PlaylistURL, syncer.Options{})
	if err != nil {
		t.Fatalf("second run: %v", err)
	}
	if summary.Missing != 0 || len(remote.Fetched) != 0 {
		t.Fatalf("second run should be a no-op: %+v fetched=%v", summary, remote.Fetched)
	}
}

func TestRunReplacesDifferingUnrecordedCopy(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	remote := &testsupport.FakeRemote{Records: records("C")}
	engine, store := newEngine(t, cfg, remote)
	testsupport.SeedLedger(t, store)
	finalPath := filepath.Join(cfg.Paths.FinalDir, "@g1 [Chan]", "Song C [C].mp4")
	testsupport.WriteFile(t, finalPath, "trunc")

	summary, err := engine.Run(context.Background(), cfg.Source.PlaylistURL, syncer.Options{})
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	if summary.Archived != 1 || summary.Failed != 0 {
		t.Fatalf("unexpected summary: %+v", summary)
	}
	if got := testsupport.ReadFile(t, finalPath); got != "media:C" {
		t.Fatalf("archived content = %q, want fresh download", got)
	}
	if entries := testsupport.MustLoad(t, store); len(entries) != 1 || entries[0].Path != finalPath {
		t.Fatalf("unexpected entries: %+v", entries)
	}
}

func TestRunKeepsExistingFileWithoutIDMarker(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	remote := &testsupport.FakeRemote{Records: records("C")}
	engine, store := newEngine(t, cfg, remote)
	testsupport.SeedLedger(t, store)

	tempPath := filepath.Join(cfg.Paths.TempDir, "@g1 [Chan]", "clip.mp4")
	finalPath := filepath.Join(cfg.Paths.FinalDir, "@g1 [Chan]", "clip.mp4")
	testsupport.WriteFile(t, finalPath, "keep")
	remote.SkipWrite = map[string]bool{"C": true}
	testsupport.WriteFile(t, tempPath, "media:C")

	summary, err := engine.Run(context.Background(), cfg.Source.PlaylistURL, syncer.Options{})
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	if summary.Failed != 1 || summary.Archived != 0 {
		t.Fatalf("unexpected summary: %+v", summary)
	}
	if got := testsupport.ReadFile(t, finalPath); got != "keep" {
		t.Fatalf("unmarked archived file overwritten: %q", got)
	}
}

func TestRunSkipsOtherItemsLeftInTemp(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	remote := &testsupport.FakeRemote{Records: records("Y"), SkipWrite: map[string]bool{"Y": true}}
	engine, store := newEngine(t, cfg, remote)
	testsupport.SeedLedger(t, store)
	leftover := filepath.Join(cfg.Paths.TempDir, "@g1 [Chan]", "Song X [X].mp4")
	testsupport.WriteFile(t, leftover, "partial:X")

	summary, err := engine.Run(context.Background(), cfg.Source.PlaylistURL, syncer.Options{})
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	if summary.Failed != 1 || summary.Archived != 0 || !reflect.DeepEqual(summary.FailedIDs, []string{"Y"}) {
		t.Fatalf("unexpected summary: %+v", summary)
	}
	if entries := testsupport.MustLoad(t, store); len(entries) != 0 {
		t.Fatalf("nothing should be recorded: %+v", entries)
	}
	if got := testsupport.ReadFile(t, leftover); got != "partial:X" {
		t.Fatalf("leftover of another item was touched: %q", got)
	}
}

func TestRunFallsBackToUnmarkedDownload(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	remote := &testsupport.FakeRemote{Records: records("Y"), SkipWrite: map[string]bool{"Y": true}}
	engine, store := newEngine(t, cfg, remote)
	testsupport.SeedLedger(t, store)
	testsupport.WriteFile(t, filepath.Join(cfg.Paths.TempDir, "@g1 [Chan]", "Song X [X].mp4"), "partial:X")
	testsupport.WriteFile(t, filepath.Join(cfg.Paths.TempDir, "@g1 [Chan]", "Song Y.mp4"), "media:Y")

	summary, err := engine.Run(context.Background(), cfg.Source.PlaylistURL, syncer.Options{})
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	if summary.Archived != 1 {
		t.Fatalf("unexpected summary: %+v", summary)
	}
	entries := testsupport.MustLoad(t, store)
	wantPath := filepath.Join(cfg.Paths.FinalDir, "@g1 [Chan]", "Song Y.mp4")
	if len(entries) != 1 || entries[0].ID != "Y" || entries[0].Path != wantPath {
		t.Fatalf("unexpected entries: %+v", entries)
	}
}

package bootstrap_test

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"plarchive/internal/bootstrap"
	"plarchive/internal/config"
	"plarchive/internal/ledger"
	"plarchive/internal/logging"
	"plarchive/internal/services"
	"plarchive/internal/services/ytdlp"
	"plarchive/internal/testsupport"
)

func newRunner(t *testing.T, cfg *config.Config, remote *testsupport.FakeRemote) (*bootstrap.Runner, ledger.Store) {
	t.Helper()
	store := testsupport.MustOpenStore(t, cfg)
	runner := bootstrap.New(cfg, store, remote, logging.NewNop())
	runner.SetClock(func() time.Time { return time.Date(2024, 2, 3, 10, 0, 0, 0, time.UTC) })
	return runner, store
}

func TestRunBuildsLedgerFromArchive(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	testsupport.WriteFile(t, filepath.Join(cfg.Paths.FinalDir, "@g1 [Chan]", "Song A_1080p.mp4"), "a")
	testsupport.WriteFile(t, filepath.Join(cfg.Paths.FinalDir, "@g1 [Chan]", "Unknown Clip.mp4"), "b")
	remote := &testsupport.FakeRemote{Records: []ytdlp.Record{
		{ID: "v1", Title: "Song A", GroupID: "g1", GroupName: "Chan"},
		{ID: "v2", Title: "Never Downloaded", GroupID: "g2", GroupName: "Other"},
	}}
	runner, store := newRunner(t, cfg, remote)

	result, err := runner.Run(context.Background(), cfg.Source.PlaylistURL, bootstrap.Options{})
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	if result.Matched != 1 || result.UnmatchedRemote != 1 || result.UnmatchedLocal != 1 {
		t.Fatalf("unexpected result: %+v", result)
	}

	entries := testsupport.MustLoad(t, store)
	if len(entries) != 1 {
		t.Fatalf("expected one entry, got %+v", entries)
	}
	e := entries[0]
	if e.ID != "v1" || e.GroupID != "g1" || e.Status != ledger.StatusActive || e.FormatDate() != "2024-02-03" {
		t.Fatalf("unexpected entry: %+v", e)
	}

	remoteReport := testsupport.ReadFile(t, result.RemoteReport)
	if !strings.Contains(remoteReport, `"v2","Never Downloaded"`) {
		t.Fatalf("remote report missing v2: %q", remoteReport)
	}
	localReport := testsupport.ReadFile(t, result.LocalReport)
	if !strings.Contains(localReport, "Unknown Clip.mp4") {
		t.Fatalf("local report missing clip: %q", localReport)
	}
}

func TestRunRefusesExistingLedger(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	if err := testsupport.MustOpenStore(t, cfg).Save(context.Background(), []ledger.Entry{{ID: "old"}}); err != nil {
		t.Fatal(err)
	}
	testsupport.WriteFile(t, filepath.Join(cfg.Paths.FinalDir, "Song A.mp4"), "a")
	remote := &testsupport.FakeRemote{Records: []ytdlp.Record{{ID: "v1", Title: "Song A"}}}
	runner, store := newRunner(t, cfg, remote)

	_, err := runner.Run(context.Background(), cfg.Source.PlaylistURL, bootstrap.Options{})
	if !errors.Is(err, services.ErrValidation) || !strings.Contains(err.Error(), "--force") {
		t.Fatalf("expected refusal mentioning --force, got %v", err)
	}
	if entries := testsupport.MustLoad(t, store); len(entries) != 1 || entries[0].ID != "old" {
		t.Fatalf("existing ledger modified: %+v", entries)
	}

	if _, err := runner.Run(context.Background(), cfg.Source.PlaylistURL, bootstrap.Options{Force: true}); err != nil {
		t.Fatalf("forced run returned error: %v", err)
	}
	if entries := testsupport.MustLoad(t, store); len(entries) != 1 || entries[0].ID != "v1" {
		t.Fatalf("forced run should rebuild: %+v", entries)
	}
}

func TestRunPropagatesListingFailure(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	listErr := services.Wrap(services.ErrSourceUnavailable, "ytdlp", "list playlist", "all listing attempts failed", nil)
	runner, store := newRunner(t, cfg, &testsupport.FakeRemote{ListErr: listErr})

	_, err := runner.Run(context.Background(), cfg.Source.PlaylistURL, bootstrap.Options{})
	if !errors.Is(err, services.ErrSourceUnavailable) {
		t.Fatalf("expected ErrSourceUnavailable, got %v", err)
	}
	if store.Exists() {
		t.Fatal("no ledger should be written when listing fails")
	}
}

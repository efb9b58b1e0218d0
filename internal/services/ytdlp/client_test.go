package ytdlp_test

import (
	"context"
	"errors"
	"strings"
	"testing"

	"plarchive/internal/config"
	"plarchive/internal/services"
	"plarchive/internal/services/ytdlp"
)

type stubResponse struct {
	out ytdlp.Output
	err error
}

type stubExecutor struct {
	responses []stubResponse
	calls     int
	args      [][]string
}

func (s *stubExecutor) Run(ctx context.Context, binary string, args []string) (ytdlp.Output, error) {
	s.args = append(s.args, append([]string(nil), args...))
	idx := s.calls
	s.calls++
	if idx >= len(s.responses) {
		idx = len(s.responses) - 1
	}
	if idx < 0 {
		return ytdlp.Output{}, nil
	}
	return s.responses[idx].out, s.responses[idx].err
}

const playlistURL = "https://www.youtube.com/playlist?list=PL123"

func newClient(t *testing.T, exec ytdlp.Executor) *ytdlp.Client {
	t.Helper()
	cfg := config.Default()
	cfg.YtDlp.ListAttempts = 3
	client, err := ytdlp.New(&cfg, ytdlp.WithExecutor(exec))
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	return client
}

func TestListPlaylistParsesRecords(t *testing.T) {
	exec := &stubExecutor{responses: []stubResponse{{out: ytdlp.Output{Stdout: strings.Join([]string{
		"v1\tSong A\tg1\tChan",
		"",
		"broken line",
		"v2\tSong B\tNA\tNA",
		"v3\tSong C\tg3\tUploader\twith tab\r",
	}, "\n")}}}}
	client := newClient(t, exec)

	records, err := client.ListPlaylist(context.Background(), playlistURL)
	if err != nil {
		t.Fatalf("ListPlaylist returned error: %v", err)
	}
	want := []ytdlp.Record{
		{ID: "v1", Title: "Song A", GroupID: "g1", GroupName: "Chan"},
		{ID: "v2", Title: "Song B"},
		{ID: "v3", Title: "Song C", GroupID: "g3", GroupName: "Uploader\twith tab"},
	}
	if len(records) != len(want) {
		t.Fatalf("got %d records, want %d: %+v", len(records), len(want), records)
	}
	for i := range want {
		if records[i] != want[i] {
			t.Fatalf("record %d = %+v, want %+v", i, records[i], want[i])
		}
	}

	args := strings.Join(exec.args[0], " ")
	for _, fragment := range []string{"--cookies-from-browser firefox", "--flat-playlist", "--print", playlistURL} {
		if !strings.Contains(args, fragment) {
			t.Fatalf("args %q missing %q", args, fragment)
		}
	}
}

func TestListPlaylistRetriesTransientFailures(t *testing.T) {
	exec := &stubExecutor{responses: []stubResponse{
		{out: ytdlp.Output{Stderr: "HTTP Error 503"}, err: errors.New("exit status 1")},
		{out: ytdlp.Output{Stdout: "v1\tSong A\tg1\tChan\n"}},
	}}
	client := newClient(t, exec)

	records, err := client.ListPlaylist(context.Background(), playlistURL)
	if err != nil {
		t.Fatalf("ListPlaylist returned error: %v", err)
	}
	if exec.calls != 2 {
		t.Fatalf("expected 2 calls, got %d", exec.calls)
	}
	if len(records) != 1 || records[0].ID != "v1" {
		t.Fatalf("unexpected records: %+v", records)
	}
}

func TestListPlaylistGivesUpAfterAttempts(t *testing.T) {
	exec := &stubExecutor{responses: []stubResponse{
		{out: ytdlp.Output{Stderr: "ERROR: unable to download webpage"}, err: errors.New("exit status 1")},
	}}
	client := newClient(t, exec)

	_, err := client.ListPlaylist(context.Background(), playlistURL)
	if !errors.Is(err, services.ErrSourceUnavailable) {
		t.Fatalf("expected ErrSourceUnavailable, got %v", err)
	}
	if exec.calls != 3 {
		t.Fatalf("expected 3 attempts, got %d", exec.calls)
	}
	if !strings.Contains(err.Error(), "unable to download webpage") {
		t.Fatalf("error lacks stderr detail: %v", err)
	}
}

func TestListPlaylistEmptyIsNotAnError(t *testing.T) {
	exec := &stubExecutor{responses: []stubResponse{{out: ytdlp.Output{Stdout: "\n"}}}}
	client := newClient(t, exec)

	records, err := client.ListPlaylist(context.Background(), playlistURL)
	if err != nil {
		t.Fatalf("ListPlaylist returned error: %v", err)
	}
	if len(records) != 0 {
		t.Fatalf("expected no records, got %+v", records)
	}
}

func TestListPlaylistRejectsInvalidSource(t *testing.T) {
	cases := []string{
		"",
		"not a url",
		"ftp://www.youtube.com/playlist?list=PL1",
		"https://example.com/playlist?list=PL1",
		"https://www.youtube.com/watch?v=abc",
		"https://www.youtube.com/playlist?list=",
	}
	for _, raw := range cases {
		exec := &stubExecutor{}
		client := newClient(t, exec)
		_, err := client.ListPlaylist(context.Background(), raw)
		if !errors.Is(err, services.ErrInvalidSource) {
			t.Fatalf("ListPlaylist(%q) error = %v, want ErrInvalidSource", raw, err)
		}
		if exec.calls != 0 {
			t.Fatalf("ListPlaylist(%q) executed yt-dlp", raw)
		}
	}
}

func TestValidatePlaylistURLAcceptsYouTubeHosts(t *testing.T) {
	for _, raw := range []string{
		"https://www.youtube.com/playlist?list=PL1",
		"https://youtube.com/playlist?list=PL1",
		"https://music.youtube.com/playlist?list=PL1",
		"http://m.youtube.com/watch?v=abc&list=PL1",
	} {
		if err := ytdlp.ValidatePlaylistURL(raw); err != nil {
			t.Fatalf("ValidatePlaylistURL(%q) = %v", raw, err)
		}
	}
}

func TestProbe(t *testing.T) {
	t.Run("title and url", func(t *testing.T) {
		exec := &stubExecutor{responses: []stubResponse{{out: ytdlp.Output{Stdout: "Song A (Remastered)\nhttps://media/1\nhttps://media/2\n"}}}}
		client := newClient(t, exec)
		result, err := client.Probe(context.Background(), "v1")
		if err != nil {
			t.Fatalf("Probe returned error: %v", err)
		}
		if !result.Found || result.Title != "Song A (Remastered)" || result.MediaURL != "https://media/1" {
			t.Fatalf("unexpected result: %+v", result)
		}
		args := exec.args[0]
		if args[len(args)-1] != "https://www.youtube.com/watch?v=v1" {
			t.Fatalf("unexpected watch url in args %v", args)
		}
	})

	t.Run("empty output", func(t *testing.T) {
		client := newClient(t, &stubExecutor{responses: []stubResponse{{out: ytdlp.Output{Stdout: "  \n"}}}})
		result, err := client.Probe(context.Background(), "v1")
		if err != nil {
			t.Fatalf("Probe returned error: %v", err)
		}
		if result.Found {
			t.Fatalf("expected not found, got %+v", result)
		}
	})

	t.Run("failure runs once and keeps stderr", func(t *testing.T) {
		exec := &stubExecutor{responses: []stubResponse{{
			out: ytdlp.Output{Stderr: "ERROR: [youtube] v1: Private video. Sign in if you've been granted access"},
			err: errors.New("exit status 1"),
		}}}
		client := newClient(t, exec)
		_, err := client.Probe(context.Background(), "v1")
		if !errors.Is(err, services.ErrExternalTool) {
			t.Fatalf("expected ErrExternalTool, got %v", err)
		}
		if exec.calls != 1 {
			t.Fatalf("expected a single attempt, got %d", exec.calls)
		}
		if !strings.Contains(ytdlp.StderrOf(err), "Private video") {
			t.Fatalf("stderr not preserved: %q", ytdlp.StderrOf(err))
		}
	})
}

func TestFetchWrapsFailure(t *testing.T) {
	exec := &stubExecutor{responses: []stubResponse{{out: ytdlp.Output{Stderr: "ERROR: fragment 1 not found"}, err: errors.New("exit status 1")}}}
	client := newClient(t, exec)

	err := client.Fetch(context.Background(), "v1", t.TempDir())
	if !errors.Is(err, services.ErrFetchFailed) {
		t.Fatalf("expected ErrFetchFailed, got %v", err)
	}
	if services.KindOf(err) != services.KindFetchFailed {
		t.Fatalf("unexpected kind %q", services.KindOf(err))
	}
}

package services_test

import (
	"errors"
	"fmt"
	"strings"
	"testing"

	"plarchive/internal/services"
)

func TestWrapIncludesContext(t *testing.T) {
	base := errors.New("boom")
	err := services.Wrap(services.ErrFetchFailed, "sync", "fetch", "yt-dlp exited 1", base)
	if err == nil {
		t.Fatal("expected error")
	}
	if !errors.Is(err, services.ErrFetchFailed) {
		t.Fatalf("expected marker to be retained, got %v", err)
	}
	if !errors.Is(err, base) {
		t.Fatalf("expected wrapped error to contain base error, got %v", err)
	}
	msg := err.Error()
	for _, fragment := range []string{"sync", "fetch", "yt-dlp exited 1"} {
		if !strings.Contains(msg, fragment) {
			t.Fatalf("expected %q in error string %q", fragment, msg)
		}
	}
}

func TestKindOf(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want services.Kind
	}{
		{"nil", nil, ""},
		{"plain", errors.New("x"), services.KindUnknown},
		{"invalid source", services.Wrap(services.ErrInvalidSource, "ytdlp", "list", "bad url", nil), services.KindInvalidSource},
		{"unavailable", services.Wrap(services.ErrSourceUnavailable, "ytdlp", "list", "", errors.New("exit 1")), services.KindSourceUnavailable},
		{"ledger missing rewrapped", fmt.Errorf("sync: %w", services.Wrap(services.ErrLedgerMissing, "ledger", "load", "", nil)), services.KindLedgerMissing},
		{"locked", services.Wrap(services.ErrLedgerLocked, "ledger", "lock", "", nil), services.KindLedgerLocked},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := services.KindOf(tt.err); got != tt.want {
				t.Errorf("KindOf() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestHintMentionsInitForMissingLedger(t *testing.T) {
	err := services.Wrap(services.ErrLedgerMissing, "ledger", "load", "", nil)
	if !strings.Contains(services.Hint(err), "plarchive init") {
		t.Fatalf("unexpected hint: %q", services.Hint(err))
	}
}

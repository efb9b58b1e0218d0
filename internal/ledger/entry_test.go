package ledger

import (
	"reflect"
	"testing"
	"time"
)

func TestTags(t *testing.T) {
	if got := JoinTags([]string{"b", " a ", "b", "", "c;d"}); got != "a;b;c,d" {
		t.Fatalf("JoinTags = %q", got)
	}
	if got := SplitTags("b;a;;a"); !reflect.DeepEqual(got, []string{"a", "b"}) {
		t.Fatalf("SplitTags = %v", got)
	}
	if got := SplitTags("  "); got != nil {
		t.Fatalf("SplitTags(blank) = %v", got)
	}
}

func TestParseStatus(t *testing.T) {
	tests := []struct {
		raw     string
		want    Status
		wantErr bool
	}{
		{"", StatusActive, false},
		{"Active", StatusActive, false},
		{" deleted ", StatusDeleted, false},
		{"archived", "", true},
	}
	for _, tt := range tests {
		got, err := ParseStatus(tt.raw)
		if (err != nil) != tt.wantErr || got != tt.want {
			t.Fatalf("ParseStatus(%q) = %q, %v", tt.raw, got, err)
		}
	}
}

func TestAppendNote(t *testing.T) {
	var e Entry
	e.AppendNote("first")
	e.AppendNote("  ")
	e.AppendNote("second")
	if e.Notes != "first second" {
		t.Fatalf("Notes = %q", e.Notes)
	}
}

func TestToday(t *testing.T) {
	loc := time.FixedZone("x", 9*3600)
	got := Today(time.Date(2024, 1, 2, 23, 59, 0, 0, loc))
	if got.Format(DateLayout) != "2024-01-02" || got.Hour() != 0 {
		t.Fatalf("Today = %v", got)
	}
}

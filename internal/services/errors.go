package services

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrInvalidSource     = errors.New("invalid source")
	ErrSourceUnavailable = errors.New("source unavailable")
	ErrLedgerMissing     = errors.New("ledger missing")
	ErrLedgerLocked      = errors.New("ledger locked")
	ErrFetchFailed       = errors.New("fetch failed")
	ErrExternalTool      = errors.New("external tool error")
	ErrValidation        = errors.New("validation error")
	ErrConfiguration     = errors.New("configuration error")
)

// Kind is the closed classification of archive failures.
type Kind string

const (
	KindUnknown           Kind = "unknown"
	KindInvalidSource     Kind = "invalid_source"
	KindSourceUnavailable Kind = "source_unavailable"
	KindLedgerMissing     Kind = "ledger_missing"
	KindLedgerLocked      Kind = "ledger_locked"
	KindFetchFailed       Kind = "fetch_failed"
	KindExternalTool      Kind = "external_tool"
	KindValidation        Kind = "validation"
	KindConfiguration     Kind = "configuration"
)

var kindMarkers = []struct {
	marker error
	kind   Kind
}{
	{ErrInvalidSource, KindInvalidSource},
	{ErrSourceUnavailable, KindSourceUnavailable},
	{ErrLedgerMissing, KindLedgerMissing},
	{ErrLedgerLocked, KindLedgerLocked},
	{ErrFetchFailed, KindFetchFailed},
	{ErrExternalTool, KindExternalTool},
	{ErrValidation, KindValidation},
	{ErrConfiguration, KindConfiguration},
}

// Wrap builds an error message that includes component context while tagging it with
// the provided marker for later classification. The marker should be one
// of the exported sentinel errors above.
func Wrap(marker error, component, operation, message string, err error) error {
	detail := buildDetail(component, operation, message)
	if marker == nil {
		marker = ErrExternalTool
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %w", marker, detail, err)
	}
	return fmt.Errorf("%w: %s", marker, detail)
}

// KindOf reports the classification of err. The first marker found in the
// chain wins; nil maps to the empty Kind.
func KindOf(err error) Kind {
	if err == nil {
		return ""
	}
	for _, km := range kindMarkers {
		if errors.Is(err, km.marker) {
			return km.kind
		}
	}
	return KindUnknown
}

// Hint returns a short next step for an operator facing err.
func Hint(err error) string {
	switch KindOf(err) {
	case KindInvalidSource:
		return "pass a playlist URL containing a list= parameter"
	case KindSourceUnavailable:
		return "check network access and that the cookie browser profile is logged in"
	case KindLedgerMissing:
		return "run `plarchive init` to bootstrap the ledger first"
	case KindLedgerLocked:
		return "wait for the other plarchive process to finish"
	case KindFetchFailed, KindExternalTool:
		return "inspect the yt-dlp output in the log"
	case KindValidation, KindConfiguration:
		return "fix the reported value and retry"
	default:
		return "check logs for details"
	}
}

func buildDetail(component, operation, message string) string {
	parts := make([]string, 0, 3)
	if component = strings.TrimSpace(component); component != "" {
		parts = append(parts, component)
	}
	if operation = strings.TrimSpace(operation); operation != "" {
		parts = append(parts, operation)
	}
	if message = strings.TrimSpace(message); message != "" {
		parts = append(parts, message)
	}
	if len(parts) == 0 {
		return "archive failure"
	}
	return strings.Join(parts, ": ")
}

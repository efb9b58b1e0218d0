package services

import "context"

type contextKey string

const (
	runIDKey   contextKey = "run_id"
	modeKey    contextKey = "mode"
	videoIDKey contextKey = "video_id"
)

// WithRunID annotates context with the per-invocation run identifier.
func WithRunID(ctx context.Context, id string) context.Context {
	if id == "" {
		return ctx
	}
	return context.WithValue(ctx, runIDKey, id)
}

// RunIDFromContext extracts the run identifier if present.
func RunIDFromContext(ctx context.Context) (string, bool) {
	if v, ok := ctx.Value(runIDKey).(string); ok && v != "" {
		return v, true
	}
	return "", false
}

// WithMode annotates context with the command mode (init, sync, refresh, ...).
func WithMode(ctx context.Context, mode string) context.Context {
	if mode == "" {
		return ctx
	}
	return context.WithValue(ctx, modeKey, mode)
}

// ModeFromContext returns the mode if present.
func ModeFromContext(ctx context.Context) (string, bool) {
	if v, ok := ctx.Value(modeKey).(string); ok && v != "" {
		return v, true
	}
	return "", false
}

// WithVideoID annotates context with the video currently being processed.
func WithVideoID(ctx context.Context, id string) context.Context {
	if id == "" {
		return ctx
	}
	return context.WithValue(ctx, videoIDKey, id)
}

// VideoIDFromContext returns the video id if present.
func VideoIDFromContext(ctx context.Context) (string, bool) {
	if v, ok := ctx.Value(videoIDKey).(string); ok && v != "" {
		return v, true
	}
	return "", false
}

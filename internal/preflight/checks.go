package preflight

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"golang.org/x/sys/unix"

	"plarchive/internal/config"
	"plarchive/internal/deps"
	"plarchive/internal/services/ytdlp"
	"plarchive/internal/staging"
)

// CheckDirectoryAccess verifies that the directory exists and is readable/writable.
func CheckDirectoryAccess(name, path string) Result {
	if path == "" {
		return Result{Name: name, Detail: "not configured"}
	}
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Result{Name: name, Detail: fmt.Sprintf("%s (error: does not exist)", path)}
		}
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: stat: %v)", path, err)}
	}
	if !info.IsDir() {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: is not a directory)", path)}
	}
	if err := unix.Access(path, unix.R_OK|unix.W_OK|unix.X_OK); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: insufficient permissions: %v)", path, err)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (read/write ok)", path)}
}

// CheckLedgerFile reports whether the ledger exists and can be rewritten in
// place. A missing ledger fails with a pointer to init.
func CheckLedgerFile(path string) Result {
	const name = "Ledger"
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Result{Name: name, Detail: fmt.Sprintf("%s (missing: run plarchive init)", path)}
		}
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: stat: %v)", path, err)}
	}
	if info.IsDir() {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: is a directory)", path)}
	}
	if err := unix.Access(path, unix.R_OK|unix.W_OK); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: insufficient permissions: %v)", path, err)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (%d bytes)", path, info.Size())}
}

// CheckPlaylistURL validates the configured source URL without contacting it.
func CheckPlaylistURL(raw string) Result {
	const name = "Playlist URL"
	if raw == "" {
		return Result{Name: name, Detail: "not configured (set source.playlist_url or pass --url)"}
	}
	if err := ytdlp.ValidatePlaylistURL(raw); err != nil {
		return Result{Name: name, Detail: err.Error()}
	}
	return Result{Name: name, Passed: true, Detail: raw}
}

// CheckSystemDeps evaluates the external binaries for the given config.
// yt-dlp is required by every remote operation; ffmpeg is only needed for
// merged formats and thumbnail embedding.
func CheckSystemDeps(ctx context.Context, cfg *config.Config) []deps.Status {
	requirements := []deps.Requirement{
		{
			Name:        "yt-dlp",
			Command:     cfg.YtDlpBinary(),
			Description: "Required for listing, probing and fetching",
			VersionArgs: []string{"--version"},
		},
		{
			Name:        "FFmpeg",
			Command:     cfg.FFmpegBinary(),
			Description: "Merges separate audio/video formats and embeds thumbnails",
			Optional:    true,
			VersionArgs: []string{"-version"},
		},
	}
	return deps.CheckBinaries(ctx, requirements)
}

// CheckTempLeftovers reports files still parked in the temp directory, such
// as partial downloads from interrupted syncs. It is informational and
// always passes unless the directory cannot be read.
func CheckTempLeftovers(tempDir string) Result {
	const name = "Temp leftovers"
	dirs, err := staging.ListDirectories(tempDir)
	if err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: %v)", tempDir, err)}
	}
	var files int
	var size int64
	for _, dir := range dirs {
		files += dir.Files
		size += dir.Size
	}
	if files == 0 {
		return Result{Name: name, Passed: true, Detail: "none"}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%d files, %d bytes in %d folders", files, size, len(dirs))}
}

func ledgerDir(cfg *config.Config) string {
	return filepath.Dir(cfg.LedgerFile())
}

package staging

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"plarchive/internal/logging"
)

// CleanResult contains the outcome of a temp directory cleanup.
type CleanResult struct {
	Removed []string
	Errors  []CleanupError
}

// CleanupError pairs a directory path with its cleanup error.
type CleanupError struct {
	Path  string
	Error error
}

// CleanEmpty removes the per-channel folders under tempDir that no longer
// hold anything. Folders with leftovers (partial downloads kept for resume)
// are never touched.
func CleanEmpty(ctx context.Context, tempDir string, logger *slog.Logger) CleanResult {
	result := CleanResult{}

	tempDir = strings.TrimSpace(tempDir)
	if tempDir == "" {
		return result
	}

	entries, err := os.ReadDir(tempDir)
	if err != nil {
		if !os.IsNotExist(err) {
			result.Errors = append(result.Errors, CleanupError{Path: tempDir, Error: err})
		}
		return result
	}

	for _, entry := range entries {
		if ctx.Err() != nil {
			return result
		}
		if !entry.IsDir() {
			continue
		}
		dirPath := filepath.Join(tempDir, entry.Name())
		empty, err := isEmptyDir(dirPath)
		if err != nil {
			result.Errors = append(result.Errors, CleanupError{Path: dirPath, Error: err})
			continue
		}
		if !empty {
			continue
		}
		if err := os.Remove(dirPath); err != nil {
			result.Errors = append(result.Errors, CleanupError{Path: dirPath, Error: err})
			logging.WarnWithContext(logger, "failed to remove empty temp directory", "temp_cleanup_failed",
				logging.String("path", dirPath),
				logging.Error(err),
				logging.String(logging.FieldErrorHint, "check temp_dir permissions"),
				logging.String(logging.FieldImpact, "empty folder left in temp_dir"),
			)
			continue
		}
		result.Removed = append(result.Removed, dirPath)
		if logger != nil {
			logger.Debug("removed empty temp directory",
				logging.String("path", dirPath),
				logging.String(logging.FieldEventType, "temp_cleanup"),
			)
		}
	}

	return result
}

func isEmptyDir(path string) (bool, error) {
	dir, err := os.Open(path)
	if err != nil {
		return false, err
	}
	defer dir.Close()
	_, err = dir.Readdirnames(1)
	if errors.Is(err, io.EOF) {
		return true, nil
	}
	return false, err
}

// ListDirectories returns the folders in the temp directory with their metadata.
func ListDirectories(tempDir string) ([]DirInfo, error) {
	tempDir = strings.TrimSpace(tempDir)
	if tempDir == "" {
		return nil, nil
	}

	entries, err := os.ReadDir(tempDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}

	var dirs []DirInfo
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}

		info, err := entry.Info()
		if err != nil {
			continue
		}

		dirPath := filepath.Join(tempDir, entry.Name())
		size, files, _ := dirUsage(dirPath)

		dirs = append(dirs, DirInfo{
			Name:    entry.Name(),
			Path:    dirPath,
			ModTime: info.ModTime(),
			Size:    size,
			Files:   files,
		})
	}

	return dirs, nil
}

// DirInfo contains metadata about a temp folder.
type DirInfo struct {
	Name    string
	Path    string
	ModTime time.Time
	Size    int64
	Files   int
}

// dirUsage totals the size and regular file count below path.
func dirUsage(path string) (int64, int, error) {
	var size int64
	var files int
	err := filepath.WalkDir(path, func(_ string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.Type().IsRegular() {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return err
		}
		size += info.Size()
		files++
		return nil
	})
	return size, files, err
}

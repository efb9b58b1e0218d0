package scanner

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"plarchive/internal/logging"
	"plarchive/internal/textutil"
)

// LocalFile is a media file found under the archive root.
type LocalFile struct {
	Path              string
	NormalizedTitle   string
	InferredGroupID   string
	InferredGroupName string
}

var groupFolderPattern = regexp.MustCompile(`^@(.+?)\s*\[(.+?)\]`)

// GroupFolder returns the folder name items of one channel are filed under:
// "@<id> [<name>]", sanitized for the filesystem.
func GroupFolder(groupID, groupName string) string {
	return textutil.SanitizeFileName(fmt.Sprintf("@%s [%s]", groupID, groupName))
}

// ParseGroupFolder extracts the channel id and name from a folder produced by
// GroupFolder. ok is false when name does not follow the pattern.
func ParseGroupFolder(name string) (groupID, groupName string, ok bool) {
	m := groupFolderPattern.FindStringSubmatch(name)
	if m == nil {
		return "", "", false
	}
	return m[1], m[2], true
}

// Scan walks root in lexical order and returns every file whose extension is
// in exts. Unreadable entries below root are skipped.
func Scan(ctx context.Context, logger *slog.Logger, root string, exts []string) ([]LocalFile, error) {
	logger = logging.NewComponentLogger(logger, "scanner")
	info, err := os.Stat(root)
	if err != nil {
		return nil, fmt.Errorf("scan root: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("scan root %q is not a directory", root)
	}

	allowed := make(map[string]struct{}, len(exts))
	for _, ext := range exts {
		ext = strings.ToLower(strings.TrimSpace(ext))
		if ext == "" {
			continue
		}
		if !strings.HasPrefix(ext, ".") {
			ext = "." + ext
		}
		allowed[ext] = struct{}{}
	}

	var files []LocalFile
	walkErr := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		if err != nil {
			if path == root {
				return err
			}
			logger.Debug("skipping unreadable entry", logging.String("path", path), logging.Error(err))
			if d != nil && d.IsDir() {
				return fs.SkipDir
			}
			return nil
		}
		if d.IsDir() {
			return nil
		}
		if !d.Type().IsRegular() {
			if _, statErr := os.Stat(path); statErr != nil {
				logger.Debug("skipping unresolvable entry", logging.String("path", path), logging.Error(statErr))
				return nil
			}
		}
		name := d.Name()
		ext := filepath.Ext(name)
		if _, ok := allowed[strings.ToLower(ext)]; !ok {
			return nil
		}

		file := LocalFile{
			Path:            path,
			NormalizedTitle: textutil.ComparisonKey(strings.TrimSuffix(name, ext)),
		}
		if id, groupName, ok := ParseGroupFolder(filepath.Base(filepath.Dir(path))); ok {
			file.InferredGroupID = id
			file.InferredGroupName = groupName
		}
		files = append(files, file)
		return nil
	})
	if walkErr != nil {
		return nil, fmt.Errorf("scan %q: %w", root, walkErr)
	}
	logger.Debug("scan complete", logging.String("root", root), logging.Int("files", len(files)))
	return files, nil
}

package ytdlp

import (
	"context"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"plarchive/internal/logging"
	"plarchive/internal/services"
)

// Fetch downloads one video into destDir using the configured quality,
// subtitle and network profile. The file name follows the configured
// output template.
func (c *Client) Fetch(ctx context.Context, id, destDir string) error {
	id = strings.TrimSpace(id)
	if id == "" {
		return services.Wrap(services.ErrValidation, "ytdlp", "fetch", "video id is empty", nil)
	}
	if strings.TrimSpace(destDir) == "" {
		return services.Wrap(services.ErrValidation, "ytdlp", "fetch", "destination directory required", nil)
	}
	if err := os.MkdirAll(destDir, 0o755); err != nil {
		return services.Wrap(services.ErrFetchFailed, "ytdlp", "fetch", "create destination", err)
	}

	logger := logging.WithContext(ctx, c.logger)
	logger.Info("fetching video", logging.String(logging.FieldVideoID, id), logging.String("dest", destDir))

	out, err := c.run(ctx, c.fetchTimeout, c.fetchArgs(id, destDir))
	if err != nil {
		return services.Wrap(services.ErrFetchFailed, "ytdlp", "fetch", id, err)
	}
	if tail := lastLine(out.Stdout); tail != "" {
		logger.Debug("fetch finished", logging.String(logging.FieldVideoID, id), logging.String("output", tail))
	}
	return nil
}

func (c *Client) fetchArgs(id, destDir string) []string {
	p := c.fetch
	args := c.baseArgs()
	if p.Format != "" {
		args = append(args, "-f", p.Format)
	}
	if p.WriteSubs {
		args = append(args, "--write-subs", "--no-write-auto-subs")
		if p.SubLangs != "" {
			args = append(args, "--sub-langs", p.SubLangs)
		}
	}
	if p.EmbedThumbnail {
		args = append(args, "--embed-thumbnail")
	}
	if p.AddMetadata {
		args = append(args, "--add-metadata")
	}
	if p.RateLimit != "" {
		args = append(args, "--limit-rate", p.RateLimit)
	}
	args = append(args,
		"--retries", strconv.Itoa(p.Retries),
		"--retry-sleep", strconv.Itoa(p.RetrySleep),
	)
	if p.BufferSize != "" {
		args = append(args, "--buffer-size", p.BufferSize)
	}
	fragments := p.ConcurrentFragments
	if fragments < 1 {
		fragments = 1
	}
	args = append(args,
		"--concurrent-fragments", strconv.Itoa(fragments),
		"--continue",
		"--no-part",
		"--no-playlist",
		"-o", filepath.Join(destDir, p.OutputTemplate),
	)
	args = append(args, c.extraArgs...)
	args = append(args, c.WatchURL(id))
	return args
}

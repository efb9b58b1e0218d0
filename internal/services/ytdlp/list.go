package ytdlp

import (
	"context"
	"net/url"
	"strings"

	"plarchive/internal/logging"
	"plarchive/internal/services"
)

// Record is one item of the remote playlist as reported by yt-dlp.
type Record struct {
	ID        string
	Title     string
	GroupID   string
	GroupName string
}

const listPrintTemplate = "%(id)s\t%(title)s\t%(channel_id)s\t%(uploader)s"

var youtubeHosts = map[string]struct{}{
	"youtube.com":       {},
	"www.youtube.com":   {},
	"m.youtube.com":     {},
	"music.youtube.com": {},
}

// ValidatePlaylistURL checks that raw is an http(s) YouTube URL carrying a
// playlist id in its list parameter.
func ValidatePlaylistURL(raw string) error {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return services.Wrap(services.ErrInvalidSource, "ytdlp", "validate url", "playlist URL is empty", nil)
	}
	parsed, err := url.Parse(raw)
	if err != nil {
		return services.Wrap(services.ErrInvalidSource, "ytdlp", "validate url", "playlist URL does not parse", err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return services.Wrap(services.ErrInvalidSource, "ytdlp", "validate url", "playlist URL must use http or https", nil)
	}
	if _, ok := youtubeHosts[strings.ToLower(parsed.Hostname())]; !ok {
		return services.Wrap(services.ErrInvalidSource, "ytdlp", "validate url", "unsupported host "+parsed.Hostname(), nil)
	}
	if strings.TrimSpace(parsed.Query().Get("list")) == "" {
		return services.Wrap(services.ErrInvalidSource, "ytdlp", "validate url", "playlist URL has no list parameter", nil)
	}
	return nil
}

// ListPlaylist enumerates the playlist at playlistURL in remote order.
// Failed invocations are retried up to the configured attempt count; once
// exhausted the last stderr detail is returned under ErrSourceUnavailable.
// An empty playlist is not an error.
func (c *Client) ListPlaylist(ctx context.Context, playlistURL string) ([]Record, error) {
	if err := ValidatePlaylistURL(playlistURL); err != nil {
		return nil, err
	}

	args := c.baseArgs()
	args = append(args, "--flat-playlist", "--print", listPrintTemplate)
	args = append(args, c.extraArgs...)
	args = append(args, strings.TrimSpace(playlistURL))

	logger := logging.WithContext(ctx, c.logger)
	var lastErr error
	for attempt := 1; attempt <= c.listAttempts; attempt++ {
		out, err := c.run(ctx, c.listTimeout, args)
		if err == nil {
			records := parsePlaylist(out.Stdout)
			if len(records) == 0 {
				logging.WarnWithContext(logger, "playlist listing returned no items", "playlist_empty",
					logging.String("url", playlistURL),
					logging.String(logging.FieldErrorHint, "confirm the playlist is public or the cookie browser is logged in"),
					logging.String(logging.FieldImpact, "nothing to archive this run"),
				)
			}
			logger.Debug("playlist listed", logging.Int("items", len(records)), logging.Int("attempt", attempt))
			return records, nil
		}
		lastErr = err
		if ctx.Err() != nil {
			return nil, services.Wrap(services.ErrSourceUnavailable, "ytdlp", "list playlist", "listing cancelled", ctx.Err())
		}
		logger.Debug("playlist listing attempt failed",
			logging.Int("attempt", attempt),
			logging.Int("attempts", c.listAttempts),
			logging.Error(err),
		)
	}
	return nil, services.Wrap(services.ErrSourceUnavailable, "ytdlp", "list playlist", "all listing attempts failed", lastErr)
}

// parsePlaylist turns tab-separated listing output into records. Lines with
// fewer than four fields are dropped; fields past the fourth belong to the
// uploader name.
func parsePlaylist(stdout string) []Record {
	lines := strings.Split(stdout, "\n")
	records := make([]Record, 0, len(lines))
	for _, line := range lines {
		line = strings.TrimRight(line, "\r")
		if strings.TrimSpace(line) == "" {
			continue
		}
		parts := strings.SplitN(line, "\t", 4)
		if len(parts) < 4 {
			continue
		}
		id := strings.TrimSpace(parts[0])
		if id == "" {
			continue
		}
		records = append(records, Record{
			ID:        id,
			Title:     parts[1],
			GroupID:   naField(parts[2]),
			GroupName: naField(parts[3]),
		})
	}
	return records
}

// naField maps yt-dlp's placeholder for missing fields to empty.
func naField(v string) string {
	v = strings.TrimSpace(v)
	if v == "NA" {
		return ""
	}
	return v
}

package ytdlp

import (
	"context"
	"strings"

	"plarchive/internal/logging"
	"plarchive/internal/services"
)

// ProbeResult is the outcome of a successful single-item probe.
type ProbeResult struct {
	// Found is false when yt-dlp exited cleanly but printed nothing.
	Found    bool
	Title    string
	MediaURL string
}

// Probe asks yt-dlp for the current title and media URL of one video. It
// runs exactly once. A failed invocation is returned wrapped in
// ErrExternalTool; StderrOf recovers the tool's diagnostics from it.
func (c *Client) Probe(ctx context.Context, id string) (ProbeResult, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return ProbeResult{}, services.Wrap(services.ErrValidation, "ytdlp", "probe", "video id is empty", nil)
	}

	args := c.baseArgs()
	args = append(args, "--get-title", "--get-url")
	args = append(args, c.extraArgs...)
	args = append(args, c.WatchURL(id))

	out, err := c.run(ctx, c.probeTimeout, args)
	if err != nil {
		return ProbeResult{}, services.Wrap(services.ErrExternalTool, "ytdlp", "probe", id, err)
	}

	var lines []string
	for _, line := range strings.Split(out.Stdout, "\n") {
		if line = strings.TrimSpace(line); line != "" {
			lines = append(lines, line)
		}
	}
	if len(lines) == 0 {
		logging.WithContext(ctx, c.logger).Debug("probe returned no output", logging.String(logging.FieldVideoID, id))
		return ProbeResult{}, nil
	}
	result := ProbeResult{Found: true, Title: lines[0]}
	if len(lines) > 1 {
		result.MediaURL = lines[1]
	}
	return result, nil
}

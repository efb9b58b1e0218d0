package ytdlp

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os/exec"
	"strings"
	"time"

	"plarchive/internal/config"
	"plarchive/internal/logging"
)

// Output captures what a yt-dlp invocation wrote.
type Output struct {
	Stdout string
	Stderr string
}

// Executor abstracts command execution for testability.
type Executor interface {
	Run(ctx context.Context, binary string, args []string) (Output, error)
}

// Option configures the client.
type Option func(*Client)

// WithExecutor injects a custom executor (primarily for tests).
func WithExecutor(exec Executor) Option {
	return func(c *Client) {
		if exec != nil {
			c.exec = exec
		}
	}
}

// WithLogger attaches a logger; the client logs under the ytdlp component.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		c.logger = logging.NewComponentLogger(logger, "ytdlp")
	}
}

// Client wraps yt-dlp CLI interactions: playlist listing, single-item
// probes and media fetches.
type Client struct {
	binary       string
	browser      string
	watchURLBase string
	listTimeout  time.Duration
	listAttempts int
	probeTimeout time.Duration
	fetchTimeout time.Duration
	extraArgs    []string
	fetch        config.Fetch
	exec         Executor
	logger       *slog.Logger
}

// New constructs a yt-dlp client from configuration.
func New(cfg *config.Config, opts ...Option) (*Client, error) {
	if cfg == nil {
		return nil, errors.New("ytdlp client requires configuration")
	}
	binary := strings.TrimSpace(cfg.YtDlpBinary())
	if binary == "" {
		return nil, errors.New("yt-dlp binary required")
	}
	attempts := cfg.YtDlp.ListAttempts
	if attempts < 1 {
		attempts = 1
	}
	client := &Client{
		binary:       binary,
		browser:      strings.TrimSpace(cfg.Source.Browser),
		watchURLBase: cfg.Source.WatchURLBase,
		listTimeout:  seconds(cfg.YtDlp.ListTimeout),
		listAttempts: attempts,
		probeTimeout: seconds(cfg.YtDlp.ProbeTimeout),
		fetchTimeout: seconds(cfg.YtDlp.FetchTimeout),
		extraArgs:    append([]string(nil), cfg.YtDlp.ExtraArgs...),
		fetch:        cfg.Fetch,
		exec:         commandExecutor{},
		logger:       logging.NewComponentLogger(nil, "ytdlp"),
	}
	for _, opt := range opts {
		opt(client)
	}
	return client, nil
}

// WatchURL builds the canonical watch URL for a video id.
func (c *Client) WatchURL(id string) string {
	return c.watchURLBase + id
}

// baseArgs returns the flags shared by every invocation.
func (c *Client) baseArgs() []string {
	var args []string
	if c.browser != "" {
		args = append(args, "--cookies-from-browser", c.browser)
	}
	return args
}

// run executes one yt-dlp invocation bounded by timeout. A non-zero exit is
// returned as a *CommandError carrying stderr.
func (c *Client) run(ctx context.Context, timeout time.Duration, args []string) (Output, error) {
	runCtx := ctx
	if timeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	c.logger.Debug("running yt-dlp", logging.String("args", strings.Join(args, " ")))
	out, err := c.exec.Run(runCtx, c.binary, args)
	if err == nil {
		return out, nil
	}
	cmdErr := &CommandError{Stderr: strings.TrimSpace(out.Stderr), ExitCode: -1, Err: err}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		cmdErr.ExitCode = exitErr.ExitCode()
	}
	if errors.Is(runCtx.Err(), context.DeadlineExceeded) && ctx.Err() == nil {
		cmdErr.TimedOut = true
	}
	return out, cmdErr
}

// CommandError describes a failed yt-dlp invocation.
type CommandError struct {
	ExitCode int
	Stderr   string
	TimedOut bool
	Err      error
}

func (e *CommandError) Error() string {
	var b strings.Builder
	switch {
	case e.TimedOut:
		b.WriteString("yt-dlp timed out")
	case e.ExitCode >= 0:
		fmt.Fprintf(&b, "yt-dlp exited with status %d", e.ExitCode)
	default:
		fmt.Fprintf(&b, "yt-dlp failed: %v", e.Err)
	}
	if detail := lastLine(e.Stderr); detail != "" {
		b.WriteString(": ")
		b.WriteString(detail)
	}
	return b.String()
}

func (e *CommandError) Unwrap() error { return e.Err }

// StderrOf returns the captured stderr of a failed invocation anywhere in
// err's chain.
func StderrOf(err error) string {
	var cmdErr *CommandError
	if errors.As(err, &cmdErr) {
		return cmdErr.Stderr
	}
	return ""
}

func lastLine(s string) string {
	s = strings.TrimSpace(s)
	if idx := strings.LastIndexByte(s, '\n'); idx >= 0 {
		s = s[idx+1:]
	}
	return strings.TrimSpace(s)
}

func seconds(n int) time.Duration {
	if n <= 0 {
		return 0
	}
	return time.Duration(n) * time.Second
}

type commandExecutor struct{}

func (commandExecutor) Run(ctx context.Context, binary string, args []string) (Output, error) {
	cmd := exec.CommandContext(ctx, binary, args...) //nolint:gosec
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	err := cmd.Run()
	return Output{Stdout: stdout.String(), Stderr: stderr.String()}, err
}

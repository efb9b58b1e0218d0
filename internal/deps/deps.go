package deps

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"
	"time"
)

// Requirement defines an external binary plarchive relies on.
type Requirement struct {
	Name        string
	Command     string
	Description string
	Optional    bool
	// VersionArgs, when set, are passed to the resolved binary to capture a
	// version string for display.
	VersionArgs []string
}

// Status reports the availability of a dependency.
type Status struct {
	Name        string
	Command     string
	Description string
	Optional    bool
	Available   bool
	Path        string
	Version     string
	Detail      string
}

// Satisfied reports whether the dependency is present or allowed to be absent.
func (s Status) Satisfied() bool {
	return s.Available || s.Optional
}

const versionTimeout = 10 * time.Second

// CheckBinaries evaluates the provided requirements and reports availability.
// Binaries are resolved on PATH; version probes are best effort and never
// mark a present binary as unavailable.
func CheckBinaries(ctx context.Context, requirements []Requirement) []Status {
	results := make([]Status, 0, len(requirements))
	for _, req := range requirements {
		cmd := strings.TrimSpace(req.Command)
		status := Status{
			Name:        req.Name,
			Command:     cmd,
			Description: strings.TrimSpace(req.Description),
			Optional:    req.Optional,
		}
		if cmd == "" {
			status.Detail = "command not configured"
			results = append(results, status)
			continue
		}
		resolved, err := exec.LookPath(cmd)
		if err != nil {
			status.Detail = fmt.Sprintf("binary %q not found", cmd)
			results = append(results, status)
			continue
		}
		status.Available = true
		status.Path = resolved
		if len(req.VersionArgs) > 0 {
			status.Version = probeVersion(ctx, resolved, req.VersionArgs)
		}
		results = append(results, status)
	}
	return results
}

// probeVersion returns the first non-empty output line of binary args.
func probeVersion(ctx context.Context, binary string, args []string) string {
	runCtx, cancel := context.WithTimeout(ctx, versionTimeout)
	defer cancel()

	var out bytes.Buffer
	cmd := exec.CommandContext(runCtx, binary, args...) //nolint:gosec
	cmd.Stdout = &out
	cmd.Stderr = &out
	if err := cmd.Run(); err != nil {
		return ""
	}
	for _, line := range strings.Split(out.String(), "\n") {
		if line = strings.TrimSpace(line); line != "" {
			return line
		}
	}
	return ""
}

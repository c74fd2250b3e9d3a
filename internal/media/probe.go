package media

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"os/exec"
	"strconv"
	"strings"
)

// Prober reports a media file's duration in seconds. Callers treat a
// probe failure as "duration unknown" and fall back to whatever hint
// accompanied the upload.
type Prober interface {
	Duration(ctx context.Context, path string) (float64, error)
}

// ExecProber shells out to ffprobe.
type ExecProber struct {
	bin    string
	logger *slog.Logger
}

func NewExecProber(bin string, logger *slog.Logger) (*ExecProber, error) {
	path, err := exec.LookPath(bin)
	if err != nil {
		return nil, fmt.Errorf("ffprobe binary %q not found: %w", bin, err)
	}
	return &ExecProber{bin: path, logger: logger}, nil
}

func (p *ExecProber) Duration(ctx context.Context, path string) (float64, error) {
	cmd := exec.CommandContext(ctx, p.bin,
		"-v", "error",
		"-show_entries", "format=duration",
		"-of", "default=noprint_wrappers=1:nokey=1",
		path)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		p.logger.Warn("ffprobe failed", "error", err, "stderr", truncate(stderr.String(), 256))
		return 0, fmt.Errorf("ffprobe: %w", err)
	}
	return parseProbeOutput(stdout.String())
}

func parseProbeOutput(out string) (float64, error) {
	raw := strings.TrimSpace(out)
	dur, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, fmt.Errorf("unparseable ffprobe duration %q", raw)
	}
	if dur <= 0 {
		return 0, fmt.Errorf("non-positive ffprobe duration %v", dur)
	}
	return dur, nil
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return "..." + s[len(s)-maxLen:]
}

// StubProber is used when no ffprobe is configured: it reports a fixed
// duration (zero means unknown, pushing callers onto their hint).
type StubProber struct {
	logger        *slog.Logger
	FixedDuration float64
}

func NewStubProber(logger *slog.Logger) *StubProber {
	return &StubProber{logger: logger}
}

func (p *StubProber) Duration(ctx context.Context, path string) (float64, error) {
	p.logger.Info("probe stub: duration requested", "path", path)
	if p.FixedDuration <= 0 {
		return 0, fmt.Errorf("probe stub has no duration for %s", path)
	}
	return p.FixedDuration, nil
}

package ocr

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"os/exec"
	"path/filepath"
	"strings"
	"time"
)

// Runner starts the external tools (pdftotext, pdftoppm, tesseract). Tests
// replace it with a stub.
type Runner interface {
	Run(ctx context.Context, name string, args ...string) (stdout, stderr []byte, err error)
}

const (
	// stderrCap bounds the diagnostics kept from one tool run; tesseract
	// can print a warning per glyph on noisy scans.
	stderrCap = 8 << 10
	// errDetailCap bounds the stderr quoted in a returned error.
	errDetailCap = 512
	// killGrace is how long a cancelled tool may keep its pipes open.
	killGrace = 5 * time.Second
)

// ExecRunner runs tools with os/exec.
type ExecRunner struct {
	logger *slog.Logger
}

func NewExecRunner(logger *slog.Logger) *ExecRunner {
	if logger == nil {
		logger = slog.Default()
	}
	return &ExecRunner{logger: logger}
}

// Run returns stdout in full and at most stderrCap bytes of stderr. When ctx
// ends first the returned error wraps ctx.Err().
func (r *ExecRunner) Run(ctx context.Context, name string, args ...string) ([]byte, []byte, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.WaitDelay = killGrace
	var out bytes.Buffer
	errb := &cappedBuffer{max: stderrCap}
	cmd.Stdout = &out
	cmd.Stderr = errb

	start := time.Now()
	err := cmd.Run()
	if err != nil && ctx.Err() != nil {
		err = fmt.Errorf("%w (%v)", ctx.Err(), err)
	}

	log := r.logger.With("tool", filepath.Base(name), "duration_ms", time.Since(start).Milliseconds())
	if err != nil {
		log.Warn("ocr.exec.failed",
			"args", strings.Join(args, " "),
			"error", err,
			"stderr", errb.String(),
		)
	} else {
		log.Debug("ocr.exec.done", "stdout_bytes", out.Len(), "stderr_bytes", errb.written)
	}
	return out.Bytes(), errb.Bytes(), err
}

// toolError describes a failed tool run, quoting the start of its stderr.
func toolError(tool string, err error, stderr []byte) error {
	msg := strings.TrimSpace(string(stderr))
	if msg == "" {
		return fmt.Errorf("%s: %w", tool, err)
	}
	return fmt.Errorf("%s: %w: %s", tool, err, truncate(msg, errDetailCap))
}

// cappedBuffer keeps the first max bytes written and counts the rest.
type cappedBuffer struct {
	buf     bytes.Buffer
	max     int
	written int
}

func (c *cappedBuffer) Write(p []byte) (int, error) {
	n := len(p)
	c.written += n
	if room := c.max - c.buf.Len(); room > 0 {
		if n > room {
			p = p[:room]
		}
		c.buf.Write(p)
	}
	return n, nil
}

func (c *cappedBuffer) Bytes() []byte { return c.buf.Bytes() }

func (c *cappedBuffer) String() string {
	if dropped := c.written - c.buf.Len(); dropped > 0 {
		return fmt.Sprintf("%s...(%d bytes dropped)", c.buf.String(), dropped)
	}
	return c.buf.String()
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max] + "...(truncated)"
}

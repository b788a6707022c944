package ocr

import (
	"context"
	"errors"
	"os/exec"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func requireShell(t *testing.T) {
	t.Helper()
	if _, err := exec.LookPath("sh"); err != nil {
		t.Skip("sh not available")
	}
}

func TestExecRunnerCapturesOutput(t *testing.T) {
	requireShell(t)
	out, errb, err := NewExecRunner(quietLogger).Run(context.Background(), "sh", "-c", "echo page; echo warn >&2; exit 3")

	var exitErr *exec.ExitError
	require.ErrorAs(t, err, &exitErr)
	assert.Equal(t, 3, exitErr.ExitCode())
	assert.Equal(t, "page\n", string(out))
	assert.Equal(t, "warn\n", string(errb))
}

func TestExecRunnerCapsStderr(t *testing.T) {
	requireShell(t)
	script := "i=0; while [ $i -lt 2000 ]; do echo 'Warning: Invalid resolution 0 dpi' >&2; i=$((i+1)); done"
	_, errb, err := NewExecRunner(quietLogger).Run(context.Background(), "sh", "-c", script)
	require.NoError(t, err)
	assert.Len(t, errb, stderrCap)
}

func TestExecRunnerReportsCancellation(t *testing.T) {
	requireShell(t)
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_, _, err := NewExecRunner(quietLogger).Run(ctx, "sh", "-c", "exec sleep 5")
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestCappedBuffer(t *testing.T) {
	b := &cappedBuffer{max: 4}
	n, err := b.Write([]byte("abc"))
	require.NoError(t, err)
	assert.Equal(t, 3, n)
	n, err = b.Write([]byte("defgh"))
	require.NoError(t, err)
	assert.Equal(t, 5, n, "writes always report full length")

	assert.Equal(t, "abcd", string(b.Bytes()))
	assert.Equal(t, "abcd...(4 bytes dropped)", b.String())
}

func TestToolError(t *testing.T) {
	base := errors.New("exit status 1")

	err := toolError("pdftoppm", base, []byte("  Syntax Error: Couldn't read xref table\n"))
	assert.ErrorIs(t, err, base)
	assert.Equal(t, "pdftoppm: exit status 1: Syntax Error: Couldn't read xref table", err.Error())

	assert.Equal(t, "tesseract: exit status 1", toolError("tesseract", base, nil).Error())

	long := toolError("tesseract", base, []byte(strings.Repeat("x", 2*errDetailCap)))
	assert.True(t, strings.HasSuffix(long.Error(), "...(truncated)"))
}

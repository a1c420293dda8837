package transcoder

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"time"
)

const stderrTailBytes = 4096

// Runner executes one external tool to completion. Implementations must
// stop the process when ctx is done.
type Runner interface {
	Run(ctx context.Context, binary string, args []string) (stderr []byte, err error)
}

// ExecRunner runs tools as child processes. Each tool gets its own process
// group, and the whole group is killed when the context is cancelled so
// helpers the tool spawned (pandoc's PDF engine, ImageMagick delegates) do
// not outlive the request. Wait gives up WaitDelay after the kill.
type ExecRunner struct {
	WaitDelay time.Duration
}

func (r ExecRunner) Run(ctx context.Context, binary string, args []string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, binary, args...)
	stderr := &tailBuffer{limit: stderrTailBytes}
	cmd.Stderr = stderr
	killProcessGroupOnCancel(cmd)
	cmd.WaitDelay = r.WaitDelay
	if cmd.WaitDelay == 0 {
		cmd.WaitDelay = 5 * time.Second
	}

	runErr := cmd.Run()
	if runErr == nil {
		return stderr.Bytes(), nil
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		return stderr.Bytes(), fmt.Errorf("%s interrupted: %w", binary, ctxErr)
	}

	var exitErr *exec.ExitError
	if errors.As(runErr, &exitErr) {
		return stderr.Bytes(), fmt.Errorf("%s exited with code %d: %w", binary, exitErr.ExitCode(), runErr)
	}
	return stderr.Bytes(), fmt.Errorf("%s: %w", binary, runErr)
}

// tailBuffer keeps only the last limit bytes written to it. ffmpeg writes
// progress to stderr for the whole run.
type tailBuffer struct {
	buf   bytes.Buffer
	limit int
}

func (t *tailBuffer) Write(p []byte) (int, error) {
	n := len(p)
	if len(p) >= t.limit {
		t.buf.Reset()
		t.buf.Write(p[len(p)-t.limit:])
		return n, nil
	}
	if over := t.buf.Len() + len(p) - t.limit; over > 0 {
		t.buf.Next(over)
	}
	t.buf.Write(p)
	return n, nil
}

func (t *tailBuffer) Bytes() []byte {
	return t.buf.Bytes()
}

// Package runner executes external extraction tools, capturing stdout and
// stderr under a timeout and an output size ceiling.
package runner

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"time"

	"snatch/internal/domain"
)

const defaultMaxOutput = 10 * 1024 * 1024

// ErrTimeout marks an invocation killed by its deadline.
var ErrTimeout = errors.New("command timed out")

// Exec runs commands via os/exec. It implements domain.Runner.
type Exec struct{}

// New creates an Exec runner.
func New() *Exec {
	return &Exec{}
}

// Run executes name with args. Timeout and non-zero exit both return a
// non-nil error; the captured (possibly truncated) output is returned
// either way so callers can classify stderr.
func (e *Exec) Run(ctx context.Context, name string, args []string, opts domain.RunOptions) (domain.RunResult, error) {
	maxBytes := opts.MaxOutputBytes
	if maxBytes <= 0 {
		maxBytes = defaultMaxOutput
	}
	if opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, opts.Timeout)
		defer cancel()
	}

	cmd := exec.CommandContext(ctx, name, args...)
	stdout := newCapBuffer(maxBytes)
	stderr := newCapBuffer(maxBytes)
	cmd.Stdout = stdout
	cmd.Stderr = stderr

	start := time.Now()
	err := cmd.Run()

	res := domain.RunResult{
		Stdout: stdout.String(),
		Stderr: stderr.String(),
	}
	if cmd.ProcessState != nil {
		res.ExitCode = cmd.ProcessState.ExitCode()
	}

	if ctx.Err() == context.DeadlineExceeded {
		return res, fmt.Errorf("%s: %w after %s", name, ErrTimeout, time.Since(start).Truncate(time.Millisecond))
	}
	if err != nil {
		return res, fmt.Errorf("%s failed: %w: %s", name, err, domain.Truncate(res.Stderr))
	}
	return res, nil
}

// capBuffer keeps at most max bytes and silently discards the rest, so a
// runaway tool cannot grow the process heap unbounded.
type capBuffer struct {
	buf bytes.Buffer
	max int
}

func newCapBuffer(max int) *capBuffer {
	return &capBuffer{max: max}
}

func (b *capBuffer) Write(p []byte) (int, error) {
	remaining := b.max - b.buf.Len()
	if remaining > 0 {
		if len(p) > remaining {
			b.buf.Write(p[:remaining])
		} else {
			b.buf.Write(p)
		}
	}
	// Report full write so the child is never blocked by a short write.
	return len(p), nil
}

func (b *capBuffer) String() string {
	return b.buf.String()
}

package toolrun

import (
	"bufio"
	"context"
	"errors"
	"os/exec"
	"strings"
	"time"

	"clipsight/internal/services"
)

var commandContext = exec.CommandContext

// Tail limits how much diagnostic output an invocation retains.
const tailLimit = 64

// Spec describes one external tool invocation.
type Spec struct {
	Binary string
	Args   []string
	Dir    string
	Env    []string
	// OnOutput receives each output line as it is produced. Callers use the
	// observed volume to estimate progress; it is a heuristic, not a
	// measurement.
	OnOutput func(line string)
}

// Invocation captures the outcome of a completed tool run.
type Invocation struct {
	OutputTail string
	Lines      int
	Bytes      int64
	Duration   time.Duration
}

// Runner executes external tools. The interface exists so pipeline stages can
// substitute fakes in tests.
type Runner interface {
	Run(ctx context.Context, spec Spec) (Invocation, error)
}

// NewRunner returns the production Runner backed by os/exec.
func NewRunner() Runner {
	return execRunner{}
}

type execRunner struct{}

func (execRunner) Run(ctx context.Context, spec Spec) (Invocation, error) {
	var inv Invocation
	if strings.TrimSpace(spec.Binary) == "" {
		return inv, services.Wrap(services.ErrConfiguration, "toolrun", "run", "binary name required", nil)
	}

	start := time.Now()
	cmd := commandContext(ctx, spec.Binary, spec.Args...) //nolint:gosec
	if spec.Dir != "" {
		cmd.Dir = spec.Dir
	}
	if len(spec.Env) > 0 {
		cmd.Env = spec.Env
	}

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return inv, services.Wrap(services.ErrExternalTool, "toolrun", spec.Binary, "stdout pipe", err)
	}
	cmd.Stderr = cmd.Stdout

	if err := cmd.Start(); err != nil {
		return inv, services.Wrap(services.ErrExternalTool, "toolrun", spec.Binary, "start", err)
	}

	tail := make([]string, 0, tailLimit)
	scanner := bufio.NewScanner(stdout)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := scanner.Text()
		inv.Lines++
		inv.Bytes += int64(len(line)) + 1
		if len(tail) == tailLimit {
			copy(tail, tail[1:])
			tail = tail[:tailLimit-1]
		}
		tail = append(tail, line)
		if spec.OnOutput != nil {
			spec.OnOutput(line)
		}
	}
	scanErr := scanner.Err()

	waitErr := cmd.Wait()
	inv.OutputTail = strings.Join(tail, "\n")
	inv.Duration = time.Since(start)

	switch {
	case ctx.Err() != nil:
		return inv, ctx.Err()
	case waitErr != nil:
		detail := summarizeTail(tail)
		return inv, services.Wrap(services.ErrExternalTool, "toolrun", spec.Binary, detail, waitErr)
	case scanErr != nil:
		return inv, services.Wrap(services.ErrExternalTool, "toolrun", spec.Binary, "read output", scanErr)
	}
	return inv, nil
}

// summarizeTail picks the most recent non-empty output line as the failure
// detail so wrapped errors stay one line while OutputTail keeps the rest.
func summarizeTail(tail []string) string {
	for i := len(tail) - 1; i >= 0; i-- {
		if line := strings.TrimSpace(tail[i]); line != "" {
			return line
		}
	}
	return "exited with error"
}

// IsToolFailure reports whether err represents a non-zero tool exit rather
// than a clipsight-side failure to launch or read it.
func IsToolFailure(err error) bool {
	var exitErr *exec.ExitError
	return errors.As(err, &exitErr)
}

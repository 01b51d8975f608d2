package audio

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
)

// Runner executes external commands. ExecRunner is the production
// implementation; tests substitute fakes.
type Runner interface {
	Run(ctx context.Context, name string, args ...string) (string, error)
}

// CommandError describes a command that started but exited unsuccessfully.
type CommandError struct {
	Name     string
	ExitCode int
	Stderr   string
	Err      error
}

func (e *CommandError) Error() string {
	if e.Stderr != "" {
		return fmt.Sprintf("command '%s' failed (exit code %d): %s", e.Name, e.ExitCode, e.Stderr)
	}
	return fmt.Sprintf("command '%s' failed (exit code %d)", e.Name, e.ExitCode)
}

func (e *CommandError) Unwrap() error {
	return e.Err
}

// ExecRunner runs commands with os/exec, capturing stdout and stderr.
type ExecRunner struct{}

// Run starts name with args and returns its stdout. A binary that cannot be
// found yields an error wrapping exec.ErrNotFound; a non-zero exit yields a
// *CommandError carrying the trimmed stderr.
func (ExecRunner) Run(ctx context.Context, name string, args ...string) (string, error) {
	cmd := exec.CommandContext(ctx, name, args...)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return "", &CommandError{
				Name:     name,
				ExitCode: exitErr.ExitCode(),
				Stderr:   strings.TrimSpace(stderr.String()),
				Err:      err,
			}
		}
		return "", fmt.Errorf("command '%s': %w", name, err)
	}

	return stdout.String(), nil
}

package compile

import (
	"context"
	"io"
	"os/exec"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

type ProcessSpec struct {
	Binary string
	Args   []string
	Stdin  io.Reader
	Env    []string
	// Dir is the working directory, empty for the current one.
	Dir    string
	Stdout io.Writer
	Stderr io.Writer
}

// ProcessRunner runs a process to completion and returns its exit code.
// The error is only set when the process could not be run at all.
type ProcessRunner interface {
	Run(ctx context.Context, spec ProcessSpec) (int, error)
}

type ExecRunner struct{}

func (ExecRunner) Run(ctx context.Context, spec ProcessSpec) (int, error) {
	cmd := exec.CommandContext(ctx, spec.Binary, spec.Args...)
	cmd.Stdin = spec.Stdin
	cmd.Stdout = spec.Stdout
	cmd.Stderr = spec.Stderr
	cmd.Env = spec.Env
	cmd.Dir = spec.Dir

	log.Ctx(ctx).Debug().Str("binary", spec.Binary).Strs("args", spec.Args).Msg("spawning compiler")
	err := cmd.Run()
	if err == nil {
		return 0, nil
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return exitErr.ExitCode(), nil
	}
	return -1, errors.Wrapf(err, "failed to run %s", spec.Binary)
}

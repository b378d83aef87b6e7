package ares

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/spance/webos-driver-go/constants"
	"github.com/spance/webos-driver-go/webos/definitions"
)

// OSExecutor runs processes on the local host with separate stdout and
// stderr capture.
type OSExecutor struct{}

func (OSExecutor) Execute(ctx context.Context, name string, args []string) (definitions.ExecResult, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	// Children that keep our pipes open must not hold Wait past the kill.
	cmd.WaitDelay = time.Second

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	result := definitions.ExecResult{
		Stdout: stdout.String(),
		Stderr: stderr.String(),
	}
	if err == nil {
		return result, nil
	}

	if ctxErr := ctx.Err(); ctxErr != nil {
		result.ExitCode = -1
		if errors.Is(ctxErr, context.DeadlineExceeded) {
			return result, fmt.Errorf("%w: %w", definitions.ErrCommandTimeout, ctxErr)
		}
		return result, ctxErr
	}

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		result.ExitCode = exitErr.ExitCode()
		return result, fmt.Errorf("exited with code %d: %w", result.ExitCode, err)
	}

	result.ExitCode = -1
	return result, fmt.Errorf("failed to execute command: %w", err)
}

// Runner executes single-shot toolchain commands under a timeout and a fixed
// retry policy.
type Runner struct {
	executor   definitions.Executor
	timeout    time.Duration
	retries    int
	retryDelay time.Duration
}

func NewRunner(executor definitions.Executor, timeout, retryDelay time.Duration) *Runner {
	if executor == nil {
		executor = OSExecutor{}
	}
	if timeout <= 0 {
		timeout = constants.DefaultExecTimeout
	}
	return &Runner{
		executor:   executor,
		timeout:    timeout,
		retries:    constants.DefaultRetries,
		retryDelay: retryDelay,
	}
}

// Run executes spec, retrying failed attempts. An attempt that fails but
// captured stdout counts as a success: the toolchain reports some operational
// messages on stderr with a non-zero code while still printing its result.
// A timed out attempt is always a failure.
func (r *Runner) Run(ctx context.Context, spec definitions.CommandSpec) (definitions.ExecResult, error) {
	if len(spec.Args) == 0 {
		return definitions.ExecResult{}, definitions.ErrEmptyCommand
	}

	timeout := spec.Timeout
	if timeout <= 0 {
		timeout = r.timeout
	}
	cmdLine := spec.CommandLine()
	argv := spec.Executable.Argv(spec.Args...)

	var (
		last     definitions.ExecResult
		lastErr  error
		attempts int
	)
	for attempts <= r.retries {
		if attempts > 0 {
			if err := sleepCtx(ctx, r.retryDelay); err != nil {
				lastErr = err
				break
			}
		}
		attempts++

		log.Debug().Str("cmd", cmdLine).Int("attempt", attempts).Msg("[Run] running ares command")
		result, err := r.attempt(ctx, spec.Executable.Path, argv, timeout)
		if err == nil {
			return result, nil
		}
		if result.Stdout != "" && !errors.Is(err, definitions.ErrCommandTimeout) && ctx.Err() == nil {
			log.Debug().Err(err).Str("cmd", cmdLine).Str("stderr", result.Stderr).Msg("[Run] command reported an error but produced output")
			return result, nil
		}

		log.Debug().Err(err).Str("cmd", cmdLine).Int("attempt", attempts).Msg("[Run] attempt failed")
		last, lastErr = result, err
		if ctx.Err() != nil {
			break
		}
	}

	return last, &definitions.CommandExecutionError{
		Command:  cmdLine,
		Stderr:   last.Stderr,
		ExitCode: last.ExitCode,
		Attempts: attempts,
		Err:      lastErr,
	}
}

func (r *Runner) attempt(ctx context.Context, name string, argv []string, timeout time.Duration) (definitions.ExecResult, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	return r.executor.Execute(ctx, name, argv)
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

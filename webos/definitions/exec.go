package definitions

import (
	"context"
	"strings"
	"time"
)

// Executable describes one toolchain binary and its fixed argument prefix.
type Executable struct {
	Path        string   `json:"path" mapstructure:"path"`
	DefaultArgs []string `json:"default_args,omitempty" mapstructure:"default_args"`
}

// Argv returns the full argument list: DefaultArgs followed by args.
func (e Executable) Argv(args ...string) []string {
	argv := make([]string, 0, len(e.DefaultArgs)+len(args))
	argv = append(argv, e.DefaultArgs...)
	return append(argv, args...)
}

// ExecResult is the normalized outcome of one process run to completion.
type ExecResult struct {
	Stdout   string `json:"stdout"`
	Stderr   string `json:"stderr"`
	ExitCode int    `json:"exit_code"`
}

// CommandSpec fully determines one invocation. A zero Timeout means the
// runner default.
type CommandSpec struct {
	Executable Executable
	Args       []string
	Timeout    time.Duration
}

// CommandLine renders the composed command line for logs and errors.
func (c CommandSpec) CommandLine() string {
	parts := append([]string{c.Executable.Path}, c.Executable.Argv(c.Args...)...)
	return strings.Join(parts, " ")
}

// Executor is the process boundary: run name with args until exit or ctx is done.
//
// Implementations return the captured result together with a non-nil error
// when the process could not start, exited non-zero, or was terminated.
type Executor interface {
	Execute(ctx context.Context, name string, args []string) (ExecResult, error)
}

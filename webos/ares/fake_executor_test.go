package ares_test

import (
	"context"
	"errors"
	"strings"
	"sync"

	"github.com/spance/webos-driver-go/webos/definitions"
)

type execCall struct {
	name string
	args []string
}

func (c execCall) line() string {
	return strings.TrimSpace(c.name + " " + strings.Join(c.args, " "))
}

type execHandler func(ctx context.Context, call execCall, n int) (definitions.ExecResult, error)

// fakeExecutor records every call and answers with handler. n is the number
// of earlier calls with the same command line.
type fakeExecutor struct {
	mu      sync.Mutex
	calls   []execCall
	handler execHandler
}

func newFakeExecutor(handler execHandler) *fakeExecutor {
	return &fakeExecutor{handler: handler}
}

func (f *fakeExecutor) Execute(ctx context.Context, name string, args []string) (definitions.ExecResult, error) {
	call := execCall{name: name, args: append([]string(nil), args...)}
	f.mu.Lock()
	n := 0
	for _, c := range f.calls {
		if c.line() == call.line() {
			n++
		}
	}
	f.calls = append(f.calls, call)
	f.mu.Unlock()
	return f.handler(ctx, call, n)
}

func (f *fakeExecutor) Calls() []execCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]execCall(nil), f.calls...)
}

// Count returns how many calls had exactly the given command line.
func (f *fakeExecutor) Count(line string) int {
	count := 0
	for _, c := range f.Calls() {
		if c.line() == line {
			count++
		}
	}
	return count
}

func (f *fakeExecutor) Lines() []string {
	var lines []string
	for _, c := range f.Calls() {
		lines = append(lines, c.line())
	}
	return lines
}

var errExit = errors.New("exit status 1")

// routes answers calls by command line; unknown lines fail with errExit.
func routes(table map[string]string) execHandler {
	return func(_ context.Context, call execCall, _ int) (definitions.ExecResult, error) {
		if stdout, ok := table[call.line()]; ok {
			return definitions.ExecResult{Stdout: stdout}, nil
		}
		return definitions.ExecResult{Stderr: "unknown command: " + call.line(), ExitCode: 1}, errExit
	}
}

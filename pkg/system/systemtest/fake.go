// Package systemtest provides a recording system.Runner for tests.
package systemtest

import (
	"context"
	"strings"
	"sync"

	"github.com/kballard/go-shellquote"
)

// FakeRunner implements system.Runner by recording commands instead of
// running them. Responses are keyed by the shell-joined command line;
// unknown commands succeed with empty output.
type FakeRunner struct {
	mu        sync.Mutex
	Commands  []string
	Outputs   map[string]string
	Errors    map[string]error
	Guards    map[string]bool
	GuardRuns []string
}

// NewFakeRunner creates an empty recorder
func NewFakeRunner() *FakeRunner {
	return &FakeRunner{
		Outputs: make(map[string]string),
		Errors:  make(map[string]error),
		Guards:  make(map[string]bool),
	}
}

// Run records the command and returns the configured response
func (f *FakeRunner) Run(_ context.Context, name string, args ...string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	line := shellquote.Join(append([]string{name}, args...)...)
	f.Commands = append(f.Commands, line)
	if err, ok := f.Errors[line]; ok {
		return "", err
	}
	return f.Outputs[line], nil
}

// Shell records the guard and returns the configured result (default false)
func (f *FakeRunner) Shell(_ context.Context, script string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.GuardRuns = append(f.GuardRuns, script)
	return f.Guards[script], nil
}

// Ran reports whether a command starting with prefix was recorded
func (f *FakeRunner) Ran(prefix string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()

	for _, c := range f.Commands {
		if strings.HasPrefix(c, prefix) {
			return true
		}
	}
	return false
}

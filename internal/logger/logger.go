// Package logger writes pipeline diagnostics to stderr when the
// --verbose flag is set. Output is plain prefixed lines, not a
// structured log: the audience is a person watching an index build or
// a retrieval run, not a log aggregator.
package logger

import (
	"fmt"
	"io"
	"os"
	"sync"
)

var state struct {
	mu      sync.RWMutex
	verbose bool
	out     io.Writer
}

func init() {
	state.out = os.Stderr
}

// SetVerbose turns diagnostic output on or off.
func SetVerbose(v bool) {
	state.mu.Lock()
	state.verbose = v
	state.mu.Unlock()
}

// IsVerbose reports whether diagnostics are enabled.
func IsVerbose() bool {
	state.mu.RLock()
	defer state.mu.RUnlock()
	return state.verbose
}

// SetOutput redirects diagnostics, primarily for tests. The default is
// stderr so command output on stdout stays clean.
func SetOutput(w io.Writer) {
	state.mu.Lock()
	state.out = w
	state.mu.Unlock()
}

// Debug logs fine-grained progress.
func Debug(format string, args ...any) {
	emit("[DEBUG] "+format+"\n", args...)
}

// Info logs milestones worth seeing on every verbose run.
func Info(format string, args ...any) {
	emit("[INFO] "+format+"\n", args...)
}

// Warn logs recoverable problems, skipped files and the like.
func Warn(format string, args ...any) {
	emit("[WARN] "+format+"\n", args...)
}

// Section marks the start of a pipeline phase.
func Section(name string) {
	emit("\n=== %s ===\n", name)
}

func emit(format string, args ...any) {
	state.mu.RLock()
	defer state.mu.RUnlock()
	if !state.verbose {
		return
	}
	fmt.Fprintf(state.out, format, args...)
}

package logger

import (
	"bytes"
	"os"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

// captureLog redirects logger output to a buffer for the duration of
// the test and restores the defaults afterwards.
func captureLog(t *testing.T, verbose bool) *bytes.Buffer {
	t.Helper()

	var buf bytes.Buffer
	SetOutput(&buf)
	SetVerbose(verbose)
	t.Cleanup(func() {
		SetVerbose(false)
		SetOutput(os.Stderr)
	})
	return &buf
}

func TestVerboseToggle(t *testing.T) {
	captureLog(t, false)

	assert.False(t, IsVerbose())
	SetVerbose(true)
	assert.True(t, IsVerbose())
	SetVerbose(false)
	assert.False(t, IsVerbose())
}

func TestLevelPrefixes(t *testing.T) {
	cases := map[string]struct {
		log  func()
		want string
	}{
		"debug": {func() { Debug("embedding %d texts", 4) }, "[DEBUG] embedding 4 texts\n"},
		"info":  {func() { Info("indexed %d chunks", 42) }, "[INFO] indexed 42 chunks\n"},
		"warn":  {func() { Warn("skipping duplicate id") }, "[WARN] skipping duplicate id\n"},
	}

	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			buf := captureLog(t, true)
			tc.log()
			assert.Equal(t, tc.want, buf.String())
		})
	}
}

func TestDebug_SilentWhenNotVerbose(t *testing.T) {
	buf := captureLog(t, false)

	Debug("should not appear")

	assert.Zero(t, buf.Len())
}

func TestSection(t *testing.T) {
	buf := captureLog(t, true)

	Section("Retrieval")

	assert.Equal(t, "\n=== Retrieval ===\n", buf.String())
}

// Passes if the race detector stays quiet.
func TestConcurrentAccess(t *testing.T) {
	captureLog(t, false)

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			SetVerbose(true)
			Debug("concurrent %d", n)
			IsVerbose()
			SetVerbose(false)
		}(i)
	}
	wg.Wait()
}

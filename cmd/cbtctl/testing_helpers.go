package main

import (
	"bytes"
	"context"
	"os"
	"testing"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/joshuapare/cbtkit/internal/config"
	"github.com/joshuapare/cbtkit/internal/metrics"
)

// captureOutput captures stdout while running a function
func captureOutput(t *testing.T, fn func() error) (string, error) {
	t.Helper()

	// Save original stdout
	origStdout := os.Stdout

	// Create a pipe to capture output
	r, w, err := os.Pipe()
	if err != nil {
		t.Fatalf("failed to create pipe: %v", err)
	}

	// Redirect stdout to pipe
	os.Stdout = w

	// Drain concurrently so large outputs cannot block the writer
	done := make(chan struct{})
	var buf bytes.Buffer
	go func() {
		_, _ = buf.ReadFrom(r)
		close(done)
	}()

	// Run function
	fnErr := fn()

	// Close write end and restore stdout
	w.Close()
	os.Stdout = origStdout
	<-done

	return buf.String(), fnErr
}

// resetGlobals restores flag variables and settings to their defaults and
// points image access at fs.
func resetGlobals(t *testing.T, fs afero.Fs) {
	t.Helper()
	quiet, verbose, jsonOut = false, false, false
	settings = config.Settings{
		CoalesceGap:  1 << 20,
		ChunkSize:    4096,
		StateBackend: "file",
		StatePath:    t.TempDir() + "/state.json",
	}
	logger = zap.NewNop()
	mtx = metrics.New()

	origFs, origConnect := appFs, connect
	appFs = fs
	t.Cleanup(func() { appFs, connect = origFs, origConnect })
}

// testCmd returns a command carrying a background context for run* helpers.
func testCmd() *cobra.Command {
	cmd := &cobra.Command{}
	cmd.SetContext(context.Background())
	return cmd
}

// pattern returns n bytes where byte i is a function of i.
func pattern(n int) []byte {
	data := make([]byte, n)
	for i := range data {
		data[i] = byte(i%251 + 1)
	}
	return data
}

package main

import (
	"bytes"
	"os"
	"testing"
)

// captureOutput redirects stdout to a pipe while fn runs, grounded on
// joshuapare-hivekit/cmd/hivectl's own helper of the same name.
func captureOutput(t *testing.T, fn func() error) (string, error) {
	t.Helper()

	origStdout := os.Stdout
	r, w, err := os.Pipe()
	if err != nil {
		t.Fatalf("failed to create pipe: %v", err)
	}
	os.Stdout = w

	fnErr := fn()

	w.Close()
	os.Stdout = origStdout

	var buf bytes.Buffer
	if _, err := buf.ReadFrom(r); err != nil {
		t.Fatalf("failed to read output: %v", err)
	}
	return buf.String(), fnErr
}

func writeTempSource(t *testing.T, src string) string {
	t.Helper()
	f, err := os.CreateTemp(t.TempDir(), "*.nyx")
	if err != nil {
		t.Fatalf("failed to create temp source: %v", err)
	}
	defer f.Close()
	if _, err := f.WriteString(src); err != nil {
		t.Fatalf("failed to write temp source: %v", err)
	}
	return f.Name()
}

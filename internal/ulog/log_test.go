package ulog

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestEnableFileLogTagsLinesWithARunID(t *testing.T) {
	dir := t.TempDir()
	t.Cleanup(func() {
		fileSink = nil
		runID = ""
		out = os.Stdout
	})

	id, err := EnableFileLog(dir)
	if err != nil {
		t.Fatalf("EnableFileLog: %v", err)
	}
	if id == "" {
		t.Fatalf("expected a non-empty run ID")
	}

	var buf strings.Builder
	SetOutput(&buf)
	Success("applied %d operation(s)", 3)

	data, err := os.ReadFile(filepath.Join(dir, "udot.log"))
	if err != nil {
		t.Fatalf("reading udot.log: %v", err)
	}
	got := string(data)
	if !strings.Contains(got, id) {
		t.Fatalf("log file %q doesn't contain run ID %q", got, id)
	}
	if !strings.Contains(got, "applied 3 operation(s)") {
		t.Fatalf("log file %q missing the teed message", got)
	}
}

package main

import (
	"bytes"
	"encoding/json"
	"io"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/fatih/color"

	"github.com/jenezis/harmonizer/client"
)

// captureStdout replaces os.Stdout with a pipe, calls f, then returns the
// captured output and restores os.Stdout. It is NOT safe for parallel use
// because os.Stdout is a package-level variable.
func captureStdout(t *testing.T, f func()) string {
	t.Helper()
	r, w, err := os.Pipe()
	if err != nil {
		t.Fatalf("os.Pipe: %v", err)
	}
	orig := os.Stdout
	os.Stdout = w

	done := make(chan struct{})
	var buf bytes.Buffer
	go func() {
		io.Copy(&buf, r) //nolint:errcheck
		close(done)
	}()

	f()

	w.Close()
	<-done
	os.Stdout = orig
	r.Close()
	return buf.String()
}

func TestFormatJSON(t *testing.T) {
	v := map[string]string{"original_skill": "pythn", "canonical_skill": "python"}

	got := captureStdout(t, func() { formatJSON(v) })

	var out map[string]string
	if err := json.Unmarshal([]byte(got), &out); err != nil {
		t.Fatalf("output is not valid JSON: %v\noutput: %s", err, got)
	}
	if out["canonical_skill"] != "python" {
		t.Errorf("canonical_skill: got %q, want %q", out["canonical_skill"], "python")
	}
	if !strings.Contains(got, "\n  ") {
		t.Errorf("expected indented JSON but got: %s", got)
	}
}

func TestFormatTable(t *testing.T) {
	headers := []string{"SKILL", "CANONICAL", "KNOWN"}
	rows := [][]string{
		{"js", "javascript", "yes"},
		{"golang", "go", "yes"},
	}

	got := captureStdout(t, func() { formatTable(headers, rows) })
	lines := strings.Split(strings.TrimRight(got, "\n"), "\n")

	if len(lines) != 4 {
		t.Fatalf("expected 4 lines, got %d:\n%s", len(lines), got)
	}
	for _, h := range headers {
		if !strings.Contains(lines[0], h) {
			t.Errorf("header line missing %q: %s", h, lines[0])
		}
	}
	for _, ch := range strings.TrimSpace(lines[1]) {
		if ch != '-' && ch != ' ' {
			t.Errorf("separator contains unexpected char %q: %s", ch, lines[1])
		}
	}
	if !strings.Contains(lines[2], "javascript") {
		t.Errorf("row 0 missing canonical: %s", lines[2])
	}
}

func TestFormatTableEmpty(t *testing.T) {
	got := captureStdout(t, func() { formatTable([]string{"SKILL"}, nil) })
	lines := strings.Split(strings.TrimRight(got, "\n"), "\n")
	if len(lines) != 2 {
		t.Fatalf("expected 2 lines (header + separator), got %d:\n%s", len(lines), got)
	}
}

func TestFormatTableWidthPadding(t *testing.T) {
	rows := [][]string{{"go"}, {"a-much-longer-value"}}
	got := captureStdout(t, func() { formatTable([]string{"SKILL"}, rows) })
	lines := strings.Split(strings.TrimRight(got, "\n"), "\n")
	if len(lines) < 4 {
		t.Fatalf("expected at least 4 lines, got %d", len(lines))
	}
	if len(lines[2]) != len(lines[3]) {
		t.Errorf("row widths differ: %d vs %d\n%s\n%s", len(lines[2]), len(lines[3]), lines[2], lines[3])
	}
}

func TestVisibleLen(t *testing.T) {
	if n := visibleLen("\x1b[32mok\x1b[0m"); n != 2 {
		t.Errorf("got %d, want 2", n)
	}
	if n := visibleLen("plain"); n != 5 {
		t.Errorf("got %d, want 5", n)
	}
}

func TestOutputQuiet(t *testing.T) {
	resetFlags(t)
	flagFmt = "quiet"
	got := captureStdout(t, func() { output(map[string]string{"status": "healthy"}, "healthy") })
	if strings.TrimRight(got, "\n") != "healthy" {
		t.Errorf("got %q, want %q", got, "healthy")
	}
}

func TestOutputTableFallsBackToJSON(t *testing.T) {
	resetFlags(t)
	flagFmt = "table"
	got := captureStdout(t, func() { output(map[string]string{"x": "y"}, "") })

	var out map[string]string
	if err := json.Unmarshal([]byte(got), &out); err != nil {
		t.Fatalf("expected JSON fallback for table format: %v\noutput: %s", err, got)
	}
}

func TestVersionString(t *testing.T) {
	origCommit, origDate := commit, buildDate
	defer func() { commit, buildDate = origCommit, origDate }()

	commit, buildDate = "", ""
	if s := versionString(); !strings.HasSuffix(s, "-dev") || !strings.Contains(s, version) {
		t.Errorf("unexpected dev version string %q", s)
	}

	commit, buildDate = "abc1234", "2026-01-01"
	s := versionString()
	if !strings.Contains(s, "abc1234") || !strings.Contains(s, "2026-01-01") {
		t.Errorf("expected commit and date in version string, got %q", s)
	}
}

func TestFormatEvent(t *testing.T) {
	color.NoColor = true
	at := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name string
		ev   client.Event
		want string
	}{
		{
			name: "welcome",
			ev:   client.Event{Type: client.EventWelcome, LastEventID: 4, Cache: &client.CacheStats{State: "loaded", Generation: 2}},
			want: "✓ connected at event #4, taxonomy loaded (generation 2)",
		},
		{
			name: "welcome without cache",
			ev:   client.Event{Type: client.EventWelcome},
			want: "✓ connected at event #0",
		},
		{
			name: "reset",
			ev:   client.Event{Type: client.EventReset, Reason: "gone"},
			want: "! reset: gone",
		},
		{
			name: "reload",
			ev:   client.Event{Type: client.EventTaxonomyReloaded, ID: 5, Time: at, Data: json.RawMessage(`{"ok":true}`)},
			want: `2026-03-01T12:00:00Z  #5  taxonomy.reloaded  {"ok":true}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := formatEvent(tt.ev); got != tt.want {
				t.Errorf("formatEvent() = %q, want %q", got, tt.want)
			}
		})
	}
}

//nolint:testpackage // Tests require internal access for thorough testing
package output

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"go.uber.org/multierr"

	"github.com/abatilo/abbrlink/internal/config"
	"github.com/abatilo/abbrlink/internal/conflict"
	"github.com/abatilo/abbrlink/internal/engine"
	"github.com/abatilo/abbrlink/internal/storage"
	"github.com/abatilo/abbrlink/internal/task"
)

func sampleResult() *engine.Result {
	a := &task.Task{Doc: storage.Document{Rel: "a.md", Name: "a"}, Assigned: "1a2b3c4d"}
	b := &task.Task{Doc: storage.Document{Rel: "b.md", Name: "b"}, Existing: "ffff0000"}
	c := &task.Task{Doc: storage.Document{Rel: "c.md", Name: "c"}, Existing: "ffff0000"}
	return &engine.Result{
		RunID:       "run-1",
		Scanned:     3,
		Selected:    1,
		Assigned:    1,
		State:       conflict.StateResolved,
		Committed:   []*task.Task{a},
		Preexisting: []conflict.Group{{Identifier: "ffff0000", Members: []*task.Task{b, c}}},
		Err:         multierr.Combine(errors.New("read x.md"), errors.New("write y.md")),
	}
}

func TestHumanFormatResult(t *testing.T) {
	out := NewHumanFormatter().FormatResult(sampleResult())

	for _, want := range []string{
		"  - -> 1a2b3c4d  a.md\n",
		"Run:        run-1\n",
		"State:      resolved\n",
		"ffff0000 (2 documents)\n├── b.md\n└── c.md\n",
		"Failed:     2\n  read x.md\n  write y.md\n",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("FormatResult output missing %q:\n%s", want, out)
		}
	}
}

func TestJSONFormatResult(t *testing.T) {
	out := NewJSONFormatter().FormatResult(sampleResult())

	var got resultJSON
	if err := json.Unmarshal([]byte(out), &got); err != nil {
		t.Fatalf("FormatResult produced invalid JSON: %v\n%s", err, out)
	}
	if got.RunID != "run-1" || got.State != "resolved" {
		t.Errorf("run_id/state = %q/%q", got.RunID, got.State)
	}
	if diff := cmp.Diff([]string{"read x.md", "write y.md"}, got.Errors); diff != "" {
		t.Errorf("errors mismatch (-want +got):\n%s", diff)
	}
	want := []conflictJSON{{Abbrlink: "ffff0000", Documents: []string{"b.md", "c.md"}}}
	if diff := cmp.Diff(want, got.Preexisting); diff != "" {
		t.Errorf("preexisting mismatch (-want +got):\n%s", diff)
	}
}

func TestHumanFormatTaskList(t *testing.T) {
	created := time.Date(2024, 1, 15, 10, 30, 0, 0, time.UTC)
	tasks := []*task.Task{
		{Doc: storage.Document{Rel: "new.md"}, CreatedAt: created},
		{Doc: storage.Document{Rel: "done.md"}, Existing: "1a2b3c4d", CreatedAt: created},
		{Doc: storage.Document{Rel: "short.md"}, Existing: "1a2b", NeedsLengthUpdate: true, CreatedAt: created},
	}

	want := "[ ] -------- 2024-01-15 10:30 new.md\n" +
		"[x] 1a2b3c4d 2024-01-15 10:30 done.md\n" +
		"[~] 1a2b 2024-01-15 10:30 short.md\n"
	if diff := cmp.Diff(want, NewHumanFormatter().FormatTaskList(tasks)); diff != "" {
		t.Errorf("FormatTaskList mismatch (-want +got):\n%s", diff)
	}
	if got := NewHumanFormatter().FormatTaskList(nil); got != "No documents found.\n" {
		t.Errorf("empty FormatTaskList = %q", got)
	}
}

func TestFormatConfig(t *testing.T) {
	c := config.Default()

	human := NewHumanFormatter().FormatConfig(c)
	if !strings.Contains(human, "hash_length:") || !strings.Contains(human, " 8\n") {
		t.Errorf("human FormatConfig = %q", human)
	}

	var got map[string]any
	if err := json.Unmarshal([]byte(NewJSONFormatter().FormatConfig(c)), &got); err != nil {
		t.Fatalf("FormatConfig produced invalid JSON: %v", err)
	}
	if got[config.KeyEncoding] != "hex" || got[config.KeyHashLength] != float64(8) {
		t.Errorf("FormatConfig = %v", got)
	}
}

func TestNotifier(t *testing.T) {
	tests := []struct {
		name  string
		quiet bool
		want  string
	}{
		{"verbose", false, "working\nWarning: careful\n"},
		{"quiet keeps warnings", true, "Warning: careful\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			n := NewNotifier(&buf, NewHumanFormatter(), tt.quiet)
			n.Progress("working")
			n.Warning("careful", engine.WarningDuration)
			if diff := cmp.Diff(tt.want, buf.String()); diff != "" {
				t.Errorf("Notifier output mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestJSONFormatIdentifier(t *testing.T) {
	want := "{\n  \"name\": \"hello\",\n  \"abbrlink\": \"2cf24dba\"\n}\n"
	if diff := cmp.Diff(want, NewJSONFormatter().FormatIdentifier("hello", "2cf24dba")); diff != "" {
		t.Errorf("FormatIdentifier mismatch (-want +got):\n%s", diff)
	}
}

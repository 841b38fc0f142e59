package output

import (
	"encoding/json"
	"time"

	"go.uber.org/multierr"

	"github.com/abatilo/abbrlink/internal/config"
	"github.com/abatilo/abbrlink/internal/conflict"
	"github.com/abatilo/abbrlink/internal/engine"
	"github.com/abatilo/abbrlink/internal/task"
)

// JSONFormatter formats output as JSON.
type JSONFormatter struct{}

// marshalJSON marshals a value to indented JSON with a trailing newline.
func marshalJSON(v any) string {
	data, _ := json.MarshalIndent(v, "", "  ")
	return string(data) + "\n"
}

// NewJSONFormatter creates a new JSONFormatter.
func NewJSONFormatter() *JSONFormatter {
	return &JSONFormatter{}
}

// taskJSON is the JSON representation of a task.
type taskJSON struct {
	Path              string `json:"path"`
	Name              string `json:"name"`
	Existing          string `json:"existing,omitempty"`
	Assigned          string `json:"assigned,omitempty"`
	NeedsLengthUpdate bool   `json:"needs_length_update,omitempty"`
	CreatedAt         string `json:"created_at"`
}

func toTaskJSON(t *task.Task) taskJSON {
	return taskJSON{
		Path:              t.Doc.Rel,
		Name:              t.Doc.Name,
		Existing:          t.Existing,
		Assigned:          t.Assigned,
		NeedsLengthUpdate: t.NeedsLengthUpdate,
		CreatedAt:         t.CreatedAt.Format(time.RFC3339),
	}
}

func toTaskListJSON(tasks []*task.Task) []taskJSON {
	out := make([]taskJSON, len(tasks))
	for i, t := range tasks {
		out[i] = toTaskJSON(t)
	}
	return out
}

// conflictJSON is the JSON representation of a conflict group.
type conflictJSON struct {
	Abbrlink  string   `json:"abbrlink"`
	Documents []string `json:"documents"`
}

func toConflictsJSON(groups []conflict.Group) []conflictJSON {
	out := make([]conflictJSON, len(groups))
	for i, g := range groups {
		docs := make([]string, len(g.Members))
		for j, m := range g.Members {
			docs[j] = m.Doc.Rel
		}
		out[i] = conflictJSON{Abbrlink: g.Identifier, Documents: docs}
	}
	return out
}

// resultJSON is the JSON representation of a run summary.
type resultJSON struct {
	RunID       string         `json:"run_id"`
	DryRun      bool           `json:"dry_run,omitempty"`
	State       string         `json:"state"`
	Rounds      int            `json:"rounds"`
	Scanned     int            `json:"scanned"`
	Selected    int            `json:"selected"`
	Assigned    int            `json:"assigned"`
	Unchanged   int            `json:"unchanged"`
	Committed   []taskJSON     `json:"committed"`
	Unresolved  []conflictJSON `json:"unresolved,omitempty"`
	Preexisting []conflictJSON `json:"preexisting,omitempty"`
	Errors      []string       `json:"errors,omitempty"`
}

// FormatResult formats a run summary as JSON.
func (f *JSONFormatter) FormatResult(r *engine.Result) string {
	rj := resultJSON{
		RunID:       r.RunID,
		DryRun:      r.DryRun,
		State:       string(r.State),
		Rounds:      r.Rounds,
		Scanned:     r.Scanned,
		Selected:    r.Selected,
		Assigned:    r.Assigned,
		Unchanged:   r.Unchanged,
		Committed:   toTaskListJSON(r.Committed),
		Unresolved:  toConflictsJSON(r.Unresolved),
		Preexisting: toConflictsJSON(r.Preexisting),
	}
	for _, err := range multierr.Errors(r.Err) {
		rj.Errors = append(rj.Errors, err.Error())
	}
	return marshalJSON(rj)
}

// FormatTaskList formats the scanned documents as JSON.
func (f *JSONFormatter) FormatTaskList(tasks []*task.Task) string {
	return marshalJSON(toTaskListJSON(tasks))
}

// FormatConflicts formats conflict groups as JSON.
func (f *JSONFormatter) FormatConflicts(groups []conflict.Group) string {
	return marshalJSON(toConflictsJSON(groups))
}

// FormatConfig formats the settings as JSON.
func (f *JSONFormatter) FormatConfig(c config.Config) string {
	return marshalJSON(map[string]any{
		config.KeyHashLength:      c.HashLength,
		config.KeyEncoding:        c.Encoding,
		config.KeySkipExisting:    c.SkipExisting,
		config.KeyOverrideLength:  c.OverrideOnLengthMismatch,
		config.KeyUseRandomMode:   c.UseRandomMode,
		config.KeyCheckCollisions: c.CheckCollisions,
		config.KeyMaxRounds:       c.MaxRounds,
	})
}

// identifierJSON is the JSON representation of a generated identifier.
type identifierJSON struct {
	Name     string `json:"name,omitempty"`
	Abbrlink string `json:"abbrlink"`
}

// FormatIdentifier formats a generated identifier as JSON.
func (f *JSONFormatter) FormatIdentifier(name, id string) string {
	return marshalJSON(identifierJSON{Name: name, Abbrlink: id})
}

// errorJSON is the JSON representation of an error.
type errorJSON struct {
	Error string `json:"error"`
}

// FormatError formats an error as JSON.
func (f *JSONFormatter) FormatError(err error) string {
	return marshalJSON(errorJSON{Error: err.Error()})
}

// messageJSON is the JSON representation of a message.
type messageJSON struct {
	Message string `json:"message"`
}

// FormatMessage formats a simple message as JSON.
func (f *JSONFormatter) FormatMessage(msg string) string {
	return marshalJSON(messageJSON{Message: msg})
}

// warningJSON is the JSON representation of a warning.
type warningJSON struct {
	Warning string `json:"warning"`
}

// FormatWarning formats a warning as JSON.
func (f *JSONFormatter) FormatWarning(msg string) string {
	return marshalJSON(warningJSON{Warning: msg})
}

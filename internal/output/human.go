package output

import (
	"fmt"
	"strings"

	"go.uber.org/multierr"

	"github.com/abatilo/abbrlink/internal/config"
	"github.com/abatilo/abbrlink/internal/conflict"
	"github.com/abatilo/abbrlink/internal/engine"
	"github.com/abatilo/abbrlink/internal/task"
)

// HumanFormatter formats output for human-readable terminal display.
type HumanFormatter struct{}

// NewHumanFormatter creates a new HumanFormatter.
func NewHumanFormatter() *HumanFormatter {
	return &HumanFormatter{}
}

// FormatResult formats a run summary.
func (f *HumanFormatter) FormatResult(r *engine.Result) string {
	var sb strings.Builder

	if r.DryRun {
		sb.WriteString("Dry run: no files were changed.\n")
	}
	for _, t := range r.Committed {
		old := t.Existing
		if old == "" {
			old = "-"
		}
		fmt.Fprintf(&sb, "  %s -> %s  %s\n", old, t.Assigned, t.Doc.Rel)
	}

	fmt.Fprintf(&sb, "Run:        %s\n", r.RunID)
	fmt.Fprintf(&sb, "Scanned:    %d\n", r.Scanned)
	fmt.Fprintf(&sb, "Selected:   %d\n", r.Selected)
	fmt.Fprintf(&sb, "Assigned:   %d\n", r.Assigned)
	fmt.Fprintf(&sb, "Unchanged:  %d\n", r.Unchanged)
	fmt.Fprintf(&sb, "State:      %s", r.State)
	if r.Rounds > 0 {
		fmt.Fprintf(&sb, " (%d rounds)", r.Rounds)
	}
	sb.WriteString("\n")

	if len(r.Unresolved) > 0 {
		sb.WriteString("\nUnresolved collisions:\n")
		sb.WriteString(f.FormatConflicts(r.Unresolved))
	}
	if len(r.Preexisting) > 0 {
		sb.WriteString("\nShared existing abbrlinks (left unchanged):\n")
		sb.WriteString(f.FormatConflicts(r.Preexisting))
	}
	if errs := multierr.Errors(r.Err); len(errs) > 0 {
		fmt.Fprintf(&sb, "\nFailed:     %d\n", len(errs))
		for _, err := range errs {
			fmt.Fprintf(&sb, "  %s\n", err)
		}
	}
	return sb.String()
}

// FormatTaskList formats the scanned documents, one per line.
func (f *HumanFormatter) FormatTaskList(tasks []*task.Task) string {
	if len(tasks) == 0 {
		return "No documents found.\n"
	}

	var sb strings.Builder
	for _, t := range tasks {
		sb.WriteString(f.formatTaskLine(t))
	}
	return sb.String()
}

// formatTaskLine formats a single task as a compact one-liner.
func (f *HumanFormatter) formatTaskLine(t *task.Task) string {
	id := t.Existing
	if id == "" {
		id = "--------"
	}
	mark := "[ ]"
	switch {
	case t.NeedsLengthUpdate:
		mark = "[~]"
	case t.HasExisting():
		mark = "[x]"
	}
	return fmt.Sprintf("%s %s %s %s\n", mark, id, t.CreatedAt.Format("2006-01-02 15:04"), t.Doc.Rel)
}

// FormatConflicts formats identifier groups shared by several documents.
func (f *HumanFormatter) FormatConflicts(groups []conflict.Group) string {
	if len(groups) == 0 {
		return "No collisions found.\n"
	}

	var sb strings.Builder
	for _, g := range groups {
		fmt.Fprintf(&sb, "%s (%d documents)\n", g.Identifier, len(g.Members))
		for i, m := range g.Members {
			connector := "├── "
			if i == len(g.Members)-1 {
				connector = "└── "
			}
			fmt.Fprintf(&sb, "%s%s\n", connector, m.Doc.Rel)
		}
	}
	return sb.String()
}

// FormatConfig formats the settings as key: value lines.
func (f *HumanFormatter) FormatConfig(c config.Config) string {
	var sb strings.Builder
	for _, key := range config.Keys() {
		value, _ := c.Get(key)
		fmt.Fprintf(&sb, "%-28s %s\n", key+":", value)
	}
	return sb.String()
}

// FormatIdentifier formats a generated identifier.
func (f *HumanFormatter) FormatIdentifier(_, id string) string {
	return id + "\n"
}

// FormatError formats an error for display.
func (f *HumanFormatter) FormatError(err error) string {
	return fmt.Sprintf("Error: %s\n", err.Error())
}

// FormatMessage formats a simple message.
func (f *HumanFormatter) FormatMessage(msg string) string {
	return msg + "\n"
}

// FormatWarning formats a warning.
func (f *HumanFormatter) FormatWarning(msg string) string {
	return fmt.Sprintf("Warning: %s\n", msg)
}

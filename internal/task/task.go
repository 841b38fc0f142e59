// Package task builds the per-document work list for an abbrlink run.
package task

import (
	"sort"
	"time"

	"github.com/abatilo/abbrlink/internal/storage"
)

// Task is the working record for one document during a single run.
type Task struct {
	Doc               storage.Document
	Existing          string    // identifier found at scan time, empty if none
	Assigned          string    // identifier chosen during this run, empty until set
	NeedsLengthUpdate bool      // Existing is set but its length differs from the configured length
	CreatedAt         time.Time // conflict tie-break key
}

// HasExisting reports whether the document already carried an identifier.
func (t *Task) HasExisting() bool {
	return t.Existing != ""
}

// Identifier returns the assigned identifier, falling back to the existing one.
func (t *Task) Identifier() string {
	if t.Assigned != "" {
		return t.Assigned
	}
	return t.Existing
}

// Changed reports whether committing t would alter the document.
func (t *Task) Changed() bool {
	return t.Assigned != "" && t.Assigned != t.Existing
}

// Identifiers returns the set of current identifiers across tasks.
func Identifiers(tasks []*Task) map[string]bool {
	ids := make(map[string]bool, len(tasks))
	for _, t := range tasks {
		if id := t.Identifier(); id != "" {
			ids[id] = true
		}
	}
	return ids
}

// SortByCreated orders tasks oldest first, breaking ties by path so the
// order does not depend on enumeration order.
func SortByCreated(tasks []*Task) {
	sort.SliceStable(tasks, func(i, j int) bool {
		return taskLess(tasks[i], tasks[j])
	})
}

// taskLess returns true if task a should be sorted before task b.
func taskLess(a, b *Task) bool {
	if !a.CreatedAt.Equal(b.CreatedAt) {
		return a.CreatedAt.Before(b.CreatedAt)
	}
	return a.Doc.Rel < b.Doc.Rel
}

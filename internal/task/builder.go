package task

import (
	"context"

	"go.uber.org/multierr"
	"golang.org/x/sync/errgroup"

	"github.com/abatilo/abbrlink/internal/config"
	"github.com/abatilo/abbrlink/internal/document"
	"github.com/abatilo/abbrlink/internal/storage"
)

// Concurrency bounds the number of documents read or written at once.
const Concurrency = 16

// Reader reads the raw text of a document.
type Reader interface {
	ReadText(doc storage.Document) (string, error)
}

// Build reads every document concurrently and returns one Task per readable
// document, in input order. Documents that fail to read, or are not yet
// read when ctx is done, are left out and their errors combined into the
// returned error.
func Build(ctx context.Context, r Reader, docs []storage.Document, c config.Config) ([]*Task, error) {
	extractor := NewExtractor(c.HashLength, c.Encoding)
	results := make([]*Task, len(docs))
	errs := make([]error, len(docs))

	var g errgroup.Group
	g.SetLimit(Concurrency)
	for i, doc := range docs {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				errs[i] = err
				return nil
			}
			text, err := r.ReadText(doc)
			if err != nil {
				errs[i] = err
				return nil
			}
			results[i] = newTask(doc, text, extractor, c.HashLength)
			return nil
		})
	}
	_ = g.Wait()

	tasks := make([]*Task, 0, len(docs))
	for _, t := range results {
		if t != nil {
			tasks = append(tasks, t)
		}
	}
	return tasks, multierr.Combine(errs...)
}

func newTask(doc storage.Document, text string, extractor *Extractor, length int) *Task {
	t := &Task{Doc: doc, CreatedAt: doc.ModTime}
	if existing, ok := extractor.Extract(text); ok {
		t.Existing = existing
		t.NeedsLengthUpdate = len(existing) != length
	}
	if fm, err := document.Parse([]byte(text)); err == nil {
		if created, ok := fm.CreatedAt(); ok {
			t.CreatedAt = created
		}
	}
	return t
}

// FilterForProcessing returns the tasks whose identifiers this run may set.
func FilterForProcessing(tasks []*Task, c config.Config) []*Task {
	if !c.SkipExisting {
		return tasks
	}
	var selected []*Task
	for _, t := range tasks {
		if !t.HasExisting() || (c.OverrideOnLengthMismatch && t.NeedsLengthUpdate) {
			selected = append(selected, t)
		}
	}
	return selected
}

// Partition splits tasks into those selected for processing and the pinned
// rest, whose existing identifiers stay as they are.
func Partition(tasks []*Task, c config.Config) (selected, pinned []*Task) {
	selected = FilterForProcessing(tasks, c)
	in := make(map[*Task]bool, len(selected))
	for _, t := range selected {
		in[t] = true
	}
	for _, t := range tasks {
		if !in[t] {
			pinned = append(pinned, t)
		}
	}
	return selected, pinned
}

package engine

import (
	"context"
	"fmt"

	"github.com/abatilo/abbrlink/internal/conflict"
	abbrerrors "github.com/abatilo/abbrlink/internal/errors"
	"github.com/abatilo/abbrlink/internal/hash"
	"github.com/abatilo/abbrlink/internal/storage"
	"github.com/abatilo/abbrlink/internal/task"
)

// AssignOne gives a single document an identifier drawn in mode, without
// touching any other document. With collision checks on, the rest of the
// collection is scanned and the new identifier must differ from all of it.
// It returns the identifier the document ends up with, and whether it was
// written. When every round still collides, nothing is written and the
// error is an UnresolvedCollisionError.
func (e *Engine) AssignOne(ctx context.Context, doc storage.Document, mode hash.Mode) (string, bool, error) {
	text, err := e.coll.ReadText(doc)
	if err != nil {
		return "", false, err
	}
	tasks, _ := task.Build(ctx, staticReader{doc.Path: text}, []storage.Document{doc}, e.cfg)
	if len(tasks) == 0 {
		return "", false, nil
	}
	t := tasks[0]
	if selected := task.FilterForProcessing(tasks, e.cfg); len(selected) == 0 {
		return t.Existing, false, nil
	}

	if !e.cfg.CheckCollisions {
		t.Assigned = e.gen.Generate(doc.Name, mode)
		return e.commitOne(t)
	}

	others, err := e.scanOthers(ctx, doc)
	if err != nil {
		return "", false, err
	}
	outcome := conflict.NewResolver(e.gen, mode, e.cfg.MaxRounds, e.logger).
		Resolve([]*task.Task{t}, others)
	if outcome.State == conflict.StateExhausted {
		e.notifier.Warning(CollisionWarning(len(outcome.Unresolved), e.cfg), WarningDuration)
		return "", false, abbrerrors.UnresolvedCollisionError{Path: doc.Rel, Rounds: outcome.Rounds}
	}
	return e.commitOne(t)
}

func (e *Engine) commitOne(t *task.Task) (string, bool, error) {
	if !t.Changed() {
		return t.Assigned, false, nil
	}
	if !e.dryRun {
		if err := e.coll.WriteIdentifier(t.Doc, t.Assigned); err != nil {
			return "", false, err
		}
	}
	e.notifier.Progress(fmt.Sprintf("Assigned abbrlink %s to %s.", t.Assigned, t.Doc.Rel))
	return t.Assigned, true, nil
}

// scanOthers returns every other readable document as a pinned task.
func (e *Engine) scanOthers(ctx context.Context, doc storage.Document) ([]*task.Task, error) {
	docs, err := e.coll.Enumerate()
	if err != nil {
		return nil, fmt.Errorf("failed to enumerate documents: %w", err)
	}
	others := make([]storage.Document, 0, len(docs))
	for _, d := range docs {
		if d.Path != doc.Path {
			others = append(others, d)
		}
	}
	tasks, readErr := task.Build(ctx, e.coll, others, e.cfg)
	logFailures(e.logger, readErr)
	return tasks, nil
}

// staticReader serves text already read, keyed by document path.
type staticReader map[string]string

func (s staticReader) ReadText(doc storage.Document) (string, error) {
	return s[doc.Path], nil
}

// Package engine runs abbrlink assignment over a document collection.
package engine

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"go.uber.org/multierr"
	"golang.org/x/sync/errgroup"

	"github.com/abatilo/abbrlink/internal/config"
	"github.com/abatilo/abbrlink/internal/conflict"
	"github.com/abatilo/abbrlink/internal/hash"
	"github.com/abatilo/abbrlink/internal/storage"
	"github.com/abatilo/abbrlink/internal/task"
)

// WarningDuration is how long collision warnings stay on screen.
const WarningDuration = 10 * time.Second

// StateUnchecked marks a run that assigned identifiers without collision checks.
const StateUnchecked conflict.State = "unchecked"

// Collection is the document store the engine reads from and writes to.
type Collection interface {
	Enumerate() ([]storage.Document, error)
	ReadText(doc storage.Document) (string, error)
	WriteIdentifier(doc storage.Document, id string) error
}

// Notifier presents progress and warnings to the user.
type Notifier interface {
	Progress(msg string)
	Warning(msg string, d time.Duration)
}

// Result summarizes one run.
type Result struct {
	RunID       string
	Scanned     int // readable documents
	Selected    int // documents the skip policy allowed to change
	Assigned    int // identifiers written (or that would be, in a dry run)
	Unchanged   int // selected documents whose identifier already matched
	Rounds      int
	State       conflict.State
	Unresolved  []conflict.Group
	Preexisting []conflict.Group
	Committed   []*task.Task
	DryRun      bool
	Err         error // combined per-document failures
}

// Engine applies the configured policy to a collection.
type Engine struct {
	coll     Collection
	cfg      config.Config
	notifier Notifier
	logger   *slog.Logger
	gen      *hash.Generator
	dryRun   bool
	runID    string
}

// Option configures an Engine.
type Option func(*Engine)

// WithDryRun computes identifiers without writing them.
func WithDryRun(dryRun bool) Option {
	return func(e *Engine) { e.dryRun = dryRun }
}

// WithRunID sets the run ID reported in the result and logs.
func WithRunID(id string) Option {
	return func(e *Engine) { e.runID = id }
}

// WithRandom replaces the random source used for identifier draws.
func WithRandom(r io.Reader) Option {
	return func(e *Engine) { e.gen = e.gen.WithRandom(r) }
}

// New creates an Engine. cfg must already be validated.
func New(coll Collection, cfg config.Config, notifier Notifier, logger *slog.Logger, opts ...Option) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	e := &Engine{
		coll:     coll,
		cfg:      cfg,
		notifier: notifier,
		logger:   logger,
		gen:      cfg.Generator(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Run scans the collection, assigns identifiers per policy and commits them.
// The returned error is reserved for failures that stop the run outright;
// per-document failures are reported in Result.Err.
func (e *Engine) Run(ctx context.Context) (*Result, error) {
	runID := e.runID
	if runID == "" {
		runID = uuid.NewString()
	}
	res := &Result{RunID: runID, DryRun: e.dryRun}
	logger := e.logger.With("run_id", res.RunID)

	docs, err := e.coll.Enumerate()
	if err != nil {
		return nil, fmt.Errorf("failed to enumerate documents: %w", err)
	}
	e.notifier.Progress(fmt.Sprintf("Scanning %d documents...", len(docs)))

	tasks, readErr := task.Build(ctx, e.coll, docs, e.cfg)
	logFailures(logger, readErr)
	res.Err = readErr
	res.Scanned = len(tasks)

	selected, pinned := task.Partition(tasks, e.cfg)
	res.Selected = len(selected)
	logger.Info("task list built",
		"documents", len(docs),
		"readable", len(tasks),
		"selected", len(selected),
		"pinned", len(pinned))
	if len(selected) == 0 {
		res.State = conflict.StateResolved
		e.notifier.Progress("No documents need an abbrlink.")
		return res, nil
	}

	commit := selected
	if e.cfg.CheckCollisions {
		resolver := conflict.NewResolver(e.gen, e.cfg.Mode(), e.cfg.MaxRounds, logger)
		outcome := resolver.Resolve(selected, pinned)
		res.State = outcome.State
		res.Rounds = outcome.Rounds
		res.Unresolved = outcome.Unresolved
		res.Preexisting = outcome.Preexisting
		commit = withoutMembers(selected, outcome.Unresolved)
		e.reportOutcome(logger, outcome)
	} else {
		res.State = StateUnchecked
		for _, t := range selected {
			t.Assigned = e.gen.Generate(t.Doc.Name, e.cfg.Mode())
		}
	}

	var changed []*task.Task
	for _, t := range commit {
		if t.Changed() {
			changed = append(changed, t)
		} else {
			res.Unchanged++
		}
	}

	written, writeErr := e.commit(ctx, changed)
	logFailures(logger, writeErr)
	res.Committed = written
	res.Assigned = len(written)
	res.Err = multierr.Append(res.Err, writeErr)

	verb := "Assigned"
	if e.dryRun {
		verb = "Would assign"
	}
	e.notifier.Progress(fmt.Sprintf("%s %d abbrlinks (%d unchanged).", verb, res.Assigned, res.Unchanged))
	logger.Info("run complete",
		"state", res.State,
		"rounds", res.Rounds,
		"assigned", res.Assigned,
		"unchanged", res.Unchanged,
		"failed", len(multierr.Errors(res.Err)))
	return res, nil
}

// commit writes identifiers concurrently and returns the tasks that were
// written. One document failing does not stop the others; once ctx is done
// the remaining writes are skipped and reported.
func (e *Engine) commit(ctx context.Context, tasks []*task.Task) ([]*task.Task, error) {
	if e.dryRun {
		return tasks, nil
	}

	errs := make([]error, len(tasks))
	var g errgroup.Group
	g.SetLimit(task.Concurrency)
	for i, t := range tasks {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				errs[i] = err
				return nil
			}
			errs[i] = e.coll.WriteIdentifier(t.Doc, t.Assigned)
			return nil
		})
	}
	_ = g.Wait()

	written := make([]*task.Task, 0, len(tasks))
	for i, t := range tasks {
		if errs[i] == nil {
			written = append(written, t)
		}
	}
	return written, multierr.Combine(errs...)
}

func (e *Engine) reportOutcome(logger *slog.Logger, outcome conflict.Outcome) {
	if len(outcome.Preexisting) > 0 {
		logger.Warn("documents already share identifiers", "groups", len(outcome.Preexisting))
		e.notifier.Warning(fmt.Sprintf(
			"%d existing abbrlinks are shared by more than one document and were left unchanged.",
			len(outcome.Preexisting)), WarningDuration)
	}
	if outcome.State == conflict.StateExhausted {
		logger.Warn("collisions remain after round limit",
			"conflicts", len(outcome.Unresolved),
			"rounds", outcome.Rounds,
			"hash_length", e.cfg.HashLength)
		e.notifier.Warning(CollisionWarning(len(outcome.Unresolved), e.cfg), WarningDuration)
	}
}

// CollisionWarning is the message shown when conflicts survive every round.
func CollisionWarning(conflicts int, c config.Config) string {
	return fmt.Sprintf(
		"%d abbrlink collisions remain after %d rounds at hash length %d. Consider increasing the hash length to %d.",
		conflicts, c.MaxRounds, c.HashLength, c.SuggestedLength())
}

func withoutMembers(tasks []*task.Task, groups []conflict.Group) []*task.Task {
	if len(groups) == 0 {
		return tasks
	}
	excluded := conflict.Members(groups)
	kept := make([]*task.Task, 0, len(tasks))
	for _, t := range tasks {
		if !excluded[t] {
			kept = append(kept, t)
		}
	}
	return kept
}

func logFailures(logger *slog.Logger, err error) {
	for _, e := range multierr.Errors(err) {
		logger.Error("document failed", "error", e)
	}
}

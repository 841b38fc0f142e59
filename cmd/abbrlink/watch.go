package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"go.uber.org/multierr"

	"github.com/abatilo/abbrlink/internal/engine"
	abbrerrors "github.com/abatilo/abbrlink/internal/errors"
	"github.com/abatilo/abbrlink/internal/hash"
	"github.com/abatilo/abbrlink/internal/output"
	"github.com/abatilo/abbrlink/internal/runlock"
	"github.com/abatilo/abbrlink/internal/storage"
)

const defaultSettle = 500 * time.Millisecond

// watchCmd implements 'abbrlink watch'.
func watchCmd() *cobra.Command {
	var settle time.Duration
	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Assign a random abbrlink to every new document as it is created",
		Run: func(cmd *cobra.Command, _ []string) {
			store, cfg := getStoreAndConfig(cmd)
			notifier := output.NewNotifier(os.Stderr, formatter, false)
			eng := engine.New(store, cfg, notifier, logger)

			w, err := newWatcher(store, eng, logger, settle)
			if err != nil {
				printError(err)
			}
			defer w.Close()

			printOutput(formatter.FormatMessage(fmt.Sprintf("Watching %s for new documents...", store.BasePath())))
			if err = w.Run(cmd.Context()); err != nil && !errors.Is(err, context.Canceled) {
				printError(err)
			}
		},
	}
	cmd.Flags().DurationVar(&settle, "settle", defaultSettle, "Wait this long after a file appears before assigning")
	addSettingFlags(cmd)
	return cmd
}

// assigner gives one document an identifier.
type assigner interface {
	AssignOne(ctx context.Context, doc storage.Document, mode hash.Mode) (string, bool, error)
}

// watcher assigns identifiers to documents created under a collection.
type watcher struct {
	store  *storage.Store
	assign assigner
	logger *slog.Logger
	settle time.Duration
	fs     *fsnotify.Watcher
	ready  chan string
	done   chan struct{}

	closeOnce sync.Once
	inflight  sync.WaitGroup // scheduled callbacks not yet returned

	mu      sync.Mutex
	pending map[string]*time.Timer
}

func newWatcher(store *storage.Store, a assigner, logger *slog.Logger, settle time.Duration) (*watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	w := &watcher{
		store:   store,
		assign:  a,
		logger:  logger,
		settle:  settle,
		fs:      fw,
		ready:   make(chan string),
		done:    make(chan struct{}),
		pending: make(map[string]*time.Timer),
	}
	if err = w.addTree(store.BasePath()); err != nil {
		return nil, multierr.Append(err, fw.Close())
	}
	return w, nil
}

// Close stops watching. Pending assignments are dropped and Close waits for
// their callbacks to return.
func (w *watcher) Close() error {
	w.closeOnce.Do(func() { close(w.done) })

	w.mu.Lock()
	for path, t := range w.pending {
		if t.Stop() {
			w.inflight.Done()
		}
		delete(w.pending, path)
	}
	w.mu.Unlock()

	w.inflight.Wait()
	return w.fs.Close()
}

// addTree watches dir and every non-hidden directory below it.
func (w *watcher) addTree(dir string) error {
	dirs, err := w.store.Dirs(dir)
	if err != nil {
		return err
	}
	for _, d := range dirs {
		if err := w.fs.Add(d); err != nil {
			return err
		}
	}
	return nil
}

// Run processes events until ctx is done or the watcher fails.
func (w *watcher) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev, ok := <-w.fs.Events:
			if !ok {
				return nil
			}
			w.handle(ctx, ev)
		case err, ok := <-w.fs.Errors:
			if !ok {
				return nil
			}
			w.logger.Error("watch error", "error", err)
		case path := <-w.ready:
			w.assignPath(ctx, path)
		}
	}
}

func (w *watcher) handle(ctx context.Context, ev fsnotify.Event) {
	if !ev.Has(fsnotify.Create) {
		return
	}
	info, err := os.Stat(ev.Name)
	if err != nil {
		return
	}
	if info.IsDir() {
		if storage.IsHidden(info.Name()) {
			return
		}
		if err = w.addTree(ev.Name); err != nil {
			w.logger.Error("failed to watch directory", "path", ev.Name, "error", err)
		}
		return
	}
	if storage.IsDocument(ev.Name) {
		w.schedule(ctx, ev.Name)
	}
}

// schedule queues path for assignment once it has been quiet for the
// settle period, so editors can finish writing the new file.
func (w *watcher) schedule(ctx context.Context, path string) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if t, ok := w.pending[path]; ok && t.Stop() {
		t.Reset(w.settle)
		return
	}

	w.inflight.Add(1)
	var t *time.Timer
	t = time.AfterFunc(w.settle, func() {
		defer w.inflight.Done()

		w.mu.Lock()
		if w.pending[path] == t {
			delete(w.pending, path)
		}
		w.mu.Unlock()

		select {
		case w.ready <- path:
		case <-ctx.Done():
		case <-w.done:
		}
	})
	w.pending[path] = t
}

func (w *watcher) assignPath(ctx context.Context, path string) {
	logger := w.logger.With("path", path)

	doc, err := w.store.Stat(path)
	if err != nil {
		logger.Warn("new document disappeared", "error", err)
		return
	}

	dir, err := runlock.Dir(w.store.BasePath())
	if err != nil {
		logger.Error("failed to locate run lock", "error", err)
		return
	}
	holder := runlock.Holder{
		RunID:     uuid.NewString(),
		StartedAt: time.Now(),
		PID:       os.Getpid(),
		Command:   "watch",
	}
	lock, err := runlock.Acquire(ctx, dir, holder, runlock.DefaultTimeout)
	if err != nil {
		logger.Error("skipping new document", "error", err)
		return
	}
	defer func() {
		if err := lock.Release(); err != nil {
			logger.Warn("failed to release run lock", "error", err)
		}
	}()

	id, written, err := w.assign.AssignOne(ctx, doc, hash.ModeRandom)
	var unresolved abbrerrors.UnresolvedCollisionError
	switch {
	case errors.As(err, &unresolved):
		logger.Warn("new document left without abbrlink", "rounds", unresolved.Rounds, "run_id", holder.RunID)
		return
	case err != nil:
		logger.Error("failed to assign abbrlink", "error", err)
		return
	}
	logger.Info("new document", "abbrlink", id, "written", written, "run_id", holder.RunID)
}

package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"go.uber.org/multierr"

	"github.com/abatilo/abbrlink/internal/config"
	"github.com/abatilo/abbrlink/internal/conflict"
	"github.com/abatilo/abbrlink/internal/engine"
	"github.com/abatilo/abbrlink/internal/output"
	"github.com/abatilo/abbrlink/internal/runlock"
	"github.com/abatilo/abbrlink/internal/storage"
	"github.com/abatilo/abbrlink/internal/task"
)

//nolint:gochecknoglobals // CLI flags, formatter and logger are package-level by design
var (
	jsonOutput bool
	logLevel   string
	logJSON    bool
	configFile string
	collection string
	formatter  output.Formatter
	logger     *slog.Logger
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "abbrlink",
		Short: "Assign short permanent links to markdown documents",
		Long: "abbrlink - Assigns short, stable hash identifiers to the abbrlink front-matter\n" +
			"field of every markdown document in a collection.",
		PersistentPreRun: func(_ *cobra.Command, _ []string) {
			if jsonOutput {
				formatter = output.NewJSONFormatter()
			} else {
				formatter = output.NewHumanFormatter()
			}
			logger = initLogging(os.Stderr, logLevel, logJSON)
		},
	}

	flags := rootCmd.PersistentFlags()
	flags.BoolVar(&jsonOutput, "json", false, "Output in JSON format")
	flags.StringVar(&logLevel, "log-level", "warn", "Log level (debug, info, warn, error)")
	flags.BoolVar(&logJSON, "log-json", false, "Write logs as JSON")
	flags.StringVar(&configFile, "config", "", "Settings file (default <collection>/"+config.FileName+")")
	flags.StringVarP(&collection, "dir", "C", "", "Collection root (default: nearest directory with a settings file)")

	rootCmd.AddCommand(
		initCmd(),
		runCmd(),
		listCmd(),
		checkCmd(),
		genCmd(),
		watchCmd(),
		configCmd(),
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		os.Exit(1)
	}
}

func getStore() (*storage.Store, error) {
	if collection == "" {
		return storage.NewStore()
	}
	abs, err := filepath.Abs(collection)
	if err != nil {
		return nil, err
	}
	return storage.NewStoreWithPath(abs), nil
}

func settingsPath(store *storage.Store) string {
	if configFile != "" {
		return configFile
	}
	return store.SettingsPath()
}

func getStoreAndConfig(cmd *cobra.Command) (*storage.Store, config.Config) {
	store, err := getStore()
	if err != nil {
		printError(err)
	}
	cfg, err := loadSettings(cmd, settingsPath(store))
	if err != nil {
		printError(err)
	}
	return store, cfg
}

func printOutput(s string) {
	os.Stdout.WriteString(s) //nolint:gosec // stdout write errors are unrecoverable
}

func printError(err error) {
	os.Stdout.WriteString(formatter.FormatError(err)) //nolint:gosec // stdout write errors are unrecoverable
	os.Exit(1)
}

// initCmd implements 'abbrlink init'.
func initCmd() *cobra.Command {
	var force bool
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write a default settings file in the collection root",
		Run: func(cmd *cobra.Command, _ []string) {
			store, err := getStore()
			if err != nil {
				printError(err)
			}
			cfg, err := loadSettings(cmd, "")
			if err != nil {
				printError(err)
			}
			path := settingsPath(store)
			if err = store.InitAt(path, force, cfg); err != nil {
				printError(err)
			}
			printOutput(formatter.FormatMessage(fmt.Sprintf("Initialized abbrlink at %s", path)))
		},
	}
	cmd.Flags().BoolVarP(&force, "force", "f", false, "Overwrite an existing settings file")
	addSettingFlags(cmd)
	return cmd
}

// runCmd implements 'abbrlink run'.
func runCmd() *cobra.Command {
	var dryRun, quiet bool
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Assign abbrlinks across the collection",
		Run: func(cmd *cobra.Command, _ []string) {
			store, cfg := getStoreAndConfig(cmd)
			notifier := output.NewNotifier(os.Stderr, formatter, quiet)

			res, err := runLocked(cmd.Context(), store, cfg, notifier, engine.WithDryRun(dryRun))
			if err != nil {
				printError(err)
			}
			printOutput(formatter.FormatResult(res))
			if res.Err != nil {
				os.Exit(1)
			}
		},
	}
	cmd.Flags().BoolVarP(&dryRun, "dry-run", "n", false, "Show what would be assigned without writing")
	cmd.Flags().BoolVarP(&quiet, "quiet", "q", false, "Suppress progress messages")
	addSettingFlags(cmd)
	return cmd
}

// runLocked runs the engine while holding the collection's run lock.
func runLocked(
	ctx context.Context,
	store *storage.Store,
	cfg config.Config,
	notifier engine.Notifier,
	opts ...engine.Option,
) (res *engine.Result, err error) {
	dir, err := runlock.Dir(store.BasePath())
	if err != nil {
		return nil, err
	}
	holder := runlock.Holder{
		RunID:     uuid.NewString(),
		StartedAt: time.Now(),
		PID:       os.Getpid(),
		Command:   "run",
	}
	lock, err := runlock.Acquire(ctx, dir, holder, runlock.DefaultTimeout)
	if err != nil {
		return nil, err
	}
	defer func() {
		err = multierr.Append(err, lock.Release())
	}()

	opts = append(opts, engine.WithRunID(holder.RunID))
	return engine.New(store, cfg, notifier, logger, opts...).Run(ctx)
}

// scan builds the task list for every readable document. Unreadable
// documents are logged and left out.
func scan(ctx context.Context, store *storage.Store, cfg config.Config) []*task.Task {
	docs, err := store.Enumerate()
	if err != nil {
		printError(err)
	}
	tasks, err := task.Build(ctx, store, docs, cfg)
	for _, e := range multierr.Errors(err) {
		logger.Error("document read failed", "error", e)
	}
	task.SortByCreated(tasks)
	return tasks
}

// listCmd implements 'abbrlink list'.
func listCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List documents and their abbrlinks",
		Run: func(cmd *cobra.Command, _ []string) {
			store, cfg := getStoreAndConfig(cmd)
			printOutput(formatter.FormatTaskList(scan(cmd.Context(), store, cfg)))
		},
	}
	addSettingFlags(cmd)
	return cmd
}

// checkCmd implements 'abbrlink check'.
func checkCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "check",
		Short: "Report documents that share an abbrlink",
		Long:  "Reports documents that share an abbrlink without modifying anything. Exits 1 when any are found.",
		Run: func(cmd *cobra.Command, _ []string) {
			store, cfg := getStoreAndConfig(cmd)
			groups := conflict.Detect(scan(cmd.Context(), store, cfg))
			printOutput(formatter.FormatConflicts(groups))
			if len(groups) > 0 {
				os.Exit(1)
			}
		},
	}
	addSettingFlags(cmd)
	return cmd
}

// genCmd implements 'abbrlink gen'.
func genCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "gen [name]",
		Short: "Print the abbrlink for a document name, or a random one",
		Args:  cobra.MaximumNArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			_, cfg := getStoreAndConfig(cmd)
			var name string
			if len(args) == 1 {
				name = args[0]
			}
			if name == "" && !cfg.UseRandomMode {
				printError(MissingNameError{})
			}
			printOutput(formatter.FormatIdentifier(name, cfg.Generator().Generate(name, cfg.Mode())))
		},
	}
	addSettingFlags(cmd)
	return cmd
}

package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/abatilo/abbrlink/internal/config"
	abbrerrors "github.com/abatilo/abbrlink/internal/errors"
)

// configCmd implements 'abbrlink config' command group.
func configCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Show or change collection settings",
	}

	cmd.AddCommand(
		configShowCmd(),
		configSetCmd(),
	)

	return cmd
}

// configShowCmd implements 'abbrlink config show'.
func configShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Show the effective settings",
		Run: func(cmd *cobra.Command, _ []string) {
			_, cfg := getStoreAndConfig(cmd)
			printOutput(formatter.FormatConfig(cfg))
		},
	}
}

// configSetCmd implements 'abbrlink config set'.
func configSetCmd() *cobra.Command {
	return &cobra.Command{
		Use:       "set <key> <value>",
		Short:     "Change a setting and save it to the settings file",
		Args:      cobra.ExactArgs(2),
		ValidArgs: config.Keys(),
		Run: func(_ *cobra.Command, args []string) {
			store, err := getStore()
			if err != nil {
				printError(err)
			}
			if configFile == "" && !store.IsInitialized() {
				printError(abbrerrors.NotInitializedError{Path: store.BasePath()})
			}
			path := settingsPath(store)

			if err = setSetting(path, args[0], args[1]); err != nil {
				printError(err)
			}
			printOutput(formatter.FormatMessage(fmt.Sprintf("Set %s = %s in %s", args[0], args[1], path)))
		},
	}
}

// setSetting changes one key in the settings file at path. Only the file and
// the defaults are read, so ABBRLINK_* overrides in the environment are not
// written back.
func setSetting(path, key, value string) error {
	cfg, err := config.LoadFile(path)
	if err != nil {
		return err
	}
	if err = cfg.Set(key, value); err != nil {
		return err
	}
	return config.Save(path, cfg)
}

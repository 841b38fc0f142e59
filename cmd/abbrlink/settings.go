package main

import (
	"github.com/spf13/cobra"

	"github.com/abatilo/abbrlink/internal/config"
)

// settingFlags maps command-line flag names to settings keys.
//
//nolint:gochecknoglobals // lookup table
var settingFlags = map[string]string{
	"length":           config.KeyHashLength,
	"encoding":         config.KeyEncoding,
	"skip-existing":    config.KeySkipExisting,
	"override-length":  config.KeyOverrideLength,
	"random":           config.KeyUseRandomMode,
	"check-collisions": config.KeyCheckCollisions,
	"max-rounds":       config.KeyMaxRounds,
}

// addSettingFlags registers per-run overrides for every setting. Flag
// defaults are never used; unset flags fall through to env, file, defaults.
func addSettingFlags(cmd *cobra.Command) {
	f := cmd.Flags()
	f.IntP("length", "l", 0, "Hash length (4-32)")
	f.StringP("encoding", "e", "", "Hash encoding (hex, decimal)")
	f.Bool("skip-existing", false, "Leave documents with a valid abbrlink alone")
	f.Bool("override-length", false, "Replace abbrlinks whose length differs from --length")
	f.BoolP("random", "r", false, "Draw identifiers at random instead of hashing names")
	f.Bool("check-collisions", false, "Resolve duplicate abbrlinks across the collection")
	f.Int("max-rounds", 0, "Maximum collision resolution rounds (1-10)")
}

// loadSettings resolves the settings for cmd: changed flags, then
// ABBRLINK_* environment variables, then the settings file at path, then
// defaults. An empty path skips the file.
func loadSettings(cmd *cobra.Command, path string) (config.Config, error) {
	v := config.NewViper(path)
	for name, key := range settingFlags {
		flag := cmd.Flags().Lookup(name)
		if flag == nil {
			continue
		}
		if err := v.BindPFlag(key, flag); err != nil {
			return config.Config{}, err
		}
	}
	return config.Load(v)
}

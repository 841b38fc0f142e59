// Package config holds the settings that drive an abbrlink run.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	abbrerrors "github.com/abatilo/abbrlink/internal/errors"
	"github.com/abatilo/abbrlink/internal/hash"
)

// FileName is the settings file kept at the root of a collection.
const FileName = ".abbrlink.yaml"

const (
	MinHashLength = 4
	MaxHashLength = 32
	MinRounds     = 1
	MaxRounds     = 10

	suggestStep = 4
)

// Setting keys, shared by the settings file, env vars and flags.
const (
	KeyHashLength      = "hash_length"
	KeyEncoding        = "encoding"
	KeySkipExisting    = "skip_existing"
	KeyOverrideLength  = "override_on_length_mismatch"
	KeyUseRandomMode   = "use_random_mode"
	KeyCheckCollisions = "check_collisions"
	KeyMaxRounds       = "max_rounds"
)

// Config is the flat settings record. It is immutable for the length of a run.
type Config struct {
	HashLength               int           `mapstructure:"hash_length"                 yaml:"hash_length"`
	Encoding                 hash.Encoding `mapstructure:"encoding"                    yaml:"encoding"`
	SkipExisting             bool          `mapstructure:"skip_existing"               yaml:"skip_existing"`
	OverrideOnLengthMismatch bool          `mapstructure:"override_on_length_mismatch" yaml:"override_on_length_mismatch"`
	UseRandomMode            bool          `mapstructure:"use_random_mode"             yaml:"use_random_mode"`
	CheckCollisions          bool          `mapstructure:"check_collisions"            yaml:"check_collisions"`
	MaxRounds                int           `mapstructure:"max_rounds"                  yaml:"max_rounds"`
}

// Default returns the settings used when nothing else is configured.
func Default() Config {
	return Config{
		HashLength:               8,
		Encoding:                 hash.EncodingHex,
		SkipExisting:             true,
		OverrideOnLengthMismatch: false,
		UseRandomMode:            false,
		CheckCollisions:          false,
		MaxRounds:                3,
	}
}

// Keys returns every setting key in display order.
func Keys() []string {
	return []string{
		KeyHashLength,
		KeyEncoding,
		KeySkipExisting,
		KeyOverrideLength,
		KeyUseRandomMode,
		KeyCheckCollisions,
		KeyMaxRounds,
	}
}

// Validate checks every range constraint on c.
func (c Config) Validate() error {
	if c.HashLength < MinHashLength || c.HashLength > MaxHashLength {
		return abbrerrors.ConfigurationError{
			Field:  KeyHashLength,
			Value:  strconv.Itoa(c.HashLength),
			Reason: fmt.Sprintf("must be between %d and %d", MinHashLength, MaxHashLength),
		}
	}
	if !hash.IsValidEncoding(c.Encoding) {
		return abbrerrors.ConfigurationError{
			Field:  KeyEncoding,
			Value:  string(c.Encoding),
			Reason: "must be hex or decimal",
		}
	}
	if c.MaxRounds < MinRounds || c.MaxRounds > MaxRounds {
		return abbrerrors.ConfigurationError{
			Field:  KeyMaxRounds,
			Value:  strconv.Itoa(c.MaxRounds),
			Reason: fmt.Sprintf("must be between %d and %d", MinRounds, MaxRounds),
		}
	}
	return nil
}

// Mode returns the generation mode selected by UseRandomMode.
func (c Config) Mode() hash.Mode {
	if c.UseRandomMode {
		return hash.ModeRandom
	}
	return hash.ModeName
}

// Generator returns a hash generator for the configured length and encoding.
func (c Config) Generator() *hash.Generator {
	return hash.NewGenerator(c.HashLength, c.Encoding)
}

// SuggestedLength is the length to recommend after unresolved collisions.
func (c Config) SuggestedLength() int {
	return min(c.HashLength+suggestStep, MaxHashLength)
}

// Path returns the settings file path for a collection root.
func Path(root string) string {
	return filepath.Join(root, FileName)
}

// NewViper creates a viper instance with defaults, ABBRLINK_* env vars and
// the given settings file. Flags are bound by the caller.
func NewViper(configFile string) *viper.Viper {
	v := newFileViper(configFile)
	v.SetEnvPrefix("ABBRLINK")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()
	return v
}

// newFileViper creates a viper instance that only sees defaults and the
// settings file.
func newFileViper(configFile string) *viper.Viper {
	v := viper.New()
	d := Default()
	v.SetDefault(KeyHashLength, d.HashLength)
	v.SetDefault(KeyEncoding, string(d.Encoding))
	v.SetDefault(KeySkipExisting, d.SkipExisting)
	v.SetDefault(KeyOverrideLength, d.OverrideOnLengthMismatch)
	v.SetDefault(KeyUseRandomMode, d.UseRandomMode)
	v.SetDefault(KeyCheckCollisions, d.CheckCollisions)
	v.SetDefault(KeyMaxRounds, d.MaxRounds)

	v.SetConfigFile(configFile)
	v.SetConfigType("yaml")
	return v
}

// LoadFile returns the settings stored in the file at path on top of the
// defaults, ignoring environment overrides. It is the record to edit before
// Save.
func LoadFile(path string) (Config, error) {
	return Load(newFileViper(path))
}

// Load reads the settings file if present and returns the validated result.
func Load(v *viper.Viper) (Config, error) {
	if file := v.ConfigFileUsed(); file != "" {
		if _, err := os.Stat(file); err == nil {
			if err := v.ReadInConfig(); err != nil {
				return Config{}, fmt.Errorf("failed to read settings %s: %w", file, err)
			}
		} else if !errors.Is(err, fs.ErrNotExist) {
			return Config{}, err
		}
	}

	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return Config{}, fmt.Errorf("failed to decode settings: %w", err)
	}
	if err := c.Validate(); err != nil {
		return Config{}, err
	}
	return c, nil
}

// Save writes c to path as YAML.
func Save(path string, c Config) error {
	if err := c.Validate(); err != nil {
		return err
	}

	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(c); err != nil {
		return err
	}
	if err := enc.Close(); err != nil {
		return err
	}

	//nolint:gosec // G306: settings are meant to be shared with the collection
	return os.WriteFile(path, buf.Bytes(), 0o644)
}

// Set parses value and assigns it to key on c. The result is validated.
func (c *Config) Set(key, value string) error {
	next := *c
	switch key {
	case KeyHashLength, KeyMaxRounds:
		n, err := strconv.Atoi(value)
		if err != nil {
			return abbrerrors.ConfigurationError{Field: key, Value: value, Reason: "must be an integer"}
		}
		if key == KeyHashLength {
			next.HashLength = n
		} else {
			next.MaxRounds = n
		}
	case KeyEncoding:
		next.Encoding = hash.Encoding(strings.ToLower(value))
	case KeySkipExisting, KeyOverrideLength, KeyUseRandomMode, KeyCheckCollisions:
		b, err := strconv.ParseBool(value)
		if err != nil {
			return abbrerrors.ConfigurationError{Field: key, Value: value, Reason: "must be true or false"}
		}
		switch key {
		case KeySkipExisting:
			next.SkipExisting = b
		case KeyOverrideLength:
			next.OverrideOnLengthMismatch = b
		case KeyUseRandomMode:
			next.UseRandomMode = b
		default:
			next.CheckCollisions = b
		}
	default:
		return abbrerrors.UnknownKeyError{Key: key}
	}

	if err := next.Validate(); err != nil {
		return err
	}
	*c = next
	return nil
}

// Get returns the string form of key's value.
func (c Config) Get(key string) (string, error) {
	switch key {
	case KeyHashLength:
		return strconv.Itoa(c.HashLength), nil
	case KeyEncoding:
		return string(c.Encoding), nil
	case KeySkipExisting:
		return strconv.FormatBool(c.SkipExisting), nil
	case KeyOverrideLength:
		return strconv.FormatBool(c.OverrideOnLengthMismatch), nil
	case KeyUseRandomMode:
		return strconv.FormatBool(c.UseRandomMode), nil
	case KeyCheckCollisions:
		return strconv.FormatBool(c.CheckCollisions), nil
	case KeyMaxRounds:
		return strconv.Itoa(c.MaxRounds), nil
	default:
		return "", abbrerrors.UnknownKeyError{Key: key}
	}
}

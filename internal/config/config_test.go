//nolint:testpackage // Tests require internal access for thorough testing
package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"

	abbrerrors "github.com/abatilo/abbrlink/internal/errors"
	"github.com/abatilo/abbrlink/internal/hash"
)

func TestDefault(t *testing.T) {
	want := Config{
		HashLength:      8,
		Encoding:        hash.EncodingHex,
		SkipExisting:    true,
		MaxRounds:       3,
		CheckCollisions: false,
	}
	if diff := cmp.Diff(want, Default()); diff != "" {
		t.Errorf("Default() mismatch (-want +got):\n%s", diff)
	}
	if err := Default().Validate(); err != nil {
		t.Errorf("Default().Validate() = %v", err)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name      string
		mutate    func(*Config)
		wantField string
	}{
		{"valid", func(*Config) {}, ""},
		{"length too short", func(c *Config) { c.HashLength = 3 }, KeyHashLength},
		{"length too long", func(c *Config) { c.HashLength = 33 }, KeyHashLength},
		{"length lower bound", func(c *Config) { c.HashLength = 4 }, ""},
		{"length upper bound", func(c *Config) { c.HashLength = 32 }, ""},
		{"unknown encoding", func(c *Config) { c.Encoding = "base64" }, KeyEncoding},
		{"zero rounds", func(c *Config) { c.MaxRounds = 0 }, KeyMaxRounds},
		{"too many rounds", func(c *Config) { c.MaxRounds = 11 }, KeyMaxRounds},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := Default()
			tt.mutate(&c)
			err := c.Validate()
			if tt.wantField == "" {
				if err != nil {
					t.Errorf("Validate() = %v, want nil", err)
				}
				return
			}
			var cfgErr abbrerrors.ConfigurationError
			if !errors.As(err, &cfgErr) {
				t.Fatalf("Validate() = %v, want ConfigurationError", err)
			}
			if cfgErr.Field != tt.wantField {
				t.Errorf("Field = %q, want %q", cfgErr.Field, tt.wantField)
			}
		})
	}
}

func TestSuggestedLength(t *testing.T) {
	tests := []struct {
		length int
		want   int
	}{
		{4, 8},
		{8, 12},
		{28, 32},
		{30, 32},
		{32, 32},
	}
	for _, tt := range tests {
		c := Default()
		c.HashLength = tt.length
		if got := c.SuggestedLength(); got != tt.want {
			t.Errorf("SuggestedLength() with length %d = %d, want %d", tt.length, got, tt.want)
		}
	}
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	v := NewViper(filepath.Join(t.TempDir(), FileName))
	c, err := Load(v)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if diff := cmp.Diff(Default(), c); diff != "" {
		t.Errorf("Load() mismatch (-want +got):\n%s", diff)
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	path := Path(t.TempDir())
	want := Config{
		HashLength:               12,
		Encoding:                 hash.EncodingDecimal,
		SkipExisting:             true,
		OverrideOnLengthMismatch: true,
		UseRandomMode:            true,
		CheckCollisions:          true,
		MaxRounds:                5,
	}
	if err := Save(path, want); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	got, err := Load(NewViper(path))
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("round trip mismatch (-want +got):\n%s", diff)
	}
}

func TestLoadEnvOverridesFile(t *testing.T) {
	path := Path(t.TempDir())
	if err := Save(path, Default()); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	t.Setenv("ABBRLINK_HASH_LENGTH", "16")
	t.Setenv("ABBRLINK_CHECK_COLLISIONS", "true")

	c, err := Load(NewViper(path))
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if c.HashLength != 16 {
		t.Errorf("HashLength = %d, want 16", c.HashLength)
	}
	if !c.CheckCollisions {
		t.Error("CheckCollisions should be true from env")
	}
}

func TestLoadFileIgnoresEnv(t *testing.T) {
	path := Path(t.TempDir())
	if err := os.WriteFile(path, []byte("encoding: decimal\n"), 0o644); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}
	t.Setenv("ABBRLINK_HASH_LENGTH", "16")
	t.Setenv("ABBRLINK_CHECK_COLLISIONS", "true")

	c, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile failed: %v", err)
	}
	want := Default()
	want.Encoding = hash.EncodingDecimal
	if diff := cmp.Diff(want, c); diff != "" {
		t.Errorf("LoadFile mismatch (-want +got):\n%s", diff)
	}
}

func TestLoadRejectsInvalidFile(t *testing.T) {
	path := Path(t.TempDir())
	if err := os.WriteFile(path, []byte("hash_length: 64\n"), 0o644); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}
	_, err := Load(NewViper(path))
	var cfgErr abbrerrors.ConfigurationError
	if !errors.As(err, &cfgErr) {
		t.Fatalf("Load() = %v, want ConfigurationError", err)
	}
}

func TestSaveRejectsInvalid(t *testing.T) {
	c := Default()
	c.MaxRounds = 0
	if err := Save(Path(t.TempDir()), c); err == nil {
		t.Error("Save should reject an invalid config")
	}
}

func TestSetGet(t *testing.T) {
	c := Default()
	steps := []struct {
		key   string
		value string
	}{
		{KeyHashLength, "10"},
		{KeyEncoding, "DECIMAL"},
		{KeySkipExisting, "false"},
		{KeyOverrideLength, "true"},
		{KeyUseRandomMode, "true"},
		{KeyCheckCollisions, "true"},
		{KeyMaxRounds, "7"},
	}
	for _, s := range steps {
		if err := c.Set(s.key, s.value); err != nil {
			t.Fatalf("Set(%s, %s) failed: %v", s.key, s.value, err)
		}
	}

	want := Config{
		HashLength:               10,
		Encoding:                 hash.EncodingDecimal,
		SkipExisting:             false,
		OverrideOnLengthMismatch: true,
		UseRandomMode:            true,
		CheckCollisions:          true,
		MaxRounds:                7,
	}
	if diff := cmp.Diff(want, c); diff != "" {
		t.Errorf("Set mismatch (-want +got):\n%s", diff)
	}

	for _, key := range Keys() {
		if _, err := c.Get(key); err != nil {
			t.Errorf("Get(%s) failed: %v", key, err)
		}
	}
	if got, _ := c.Get(KeyEncoding); got != "decimal" {
		t.Errorf("Get(encoding) = %q, want decimal", got)
	}
}

func TestSetErrorsLeaveConfigUnchanged(t *testing.T) {
	tests := []struct {
		name  string
		key   string
		value string
	}{
		{"not an integer", KeyHashLength, "eight"},
		{"out of range", KeyHashLength, "2"},
		{"not a bool", KeySkipExisting, "sometimes"},
		{"bad encoding", KeyEncoding, "base32"},
		{"unknown key", "color", "blue"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := Default()
			if err := c.Set(tt.key, tt.value); err == nil {
				t.Fatalf("Set(%s, %s) should fail", tt.key, tt.value)
			}
			if diff := cmp.Diff(Default(), c); diff != "" {
				t.Errorf("config changed after failed Set (-want +got):\n%s", diff)
			}
		})
	}
}

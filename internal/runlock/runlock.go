// Package runlock keeps two abbrlink runs from working on the same
// collection at once.
package runlock

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"regexp"
	"runtime"
	"strings"
	"time"

	"github.com/gofrs/flock"
	"go.uber.org/multierr"

	abbrerrors "github.com/abatilo/abbrlink/internal/errors"
)

const (
	lockFile   = "run.lock"
	holderFile = "run.json"

	// DefaultTimeout is how long Acquire waits for a busy lock.
	DefaultTimeout = 3 * time.Second
	retryDelay     = 100 * time.Millisecond
)

// Holder describes the run that owns the lock.
type Holder struct {
	RunID     string    `json:"run_id"`
	StartedAt time.Time `json:"started_at"`
	PID       int       `json:"pid"`
	Command   string    `json:"command"`
}

// Lock is a held collection lock.
type Lock struct {
	dir   string
	flock *flock.Flock
}

// Dir returns the lock directory for a collection root under the user cache dir.
func Dir(root string) (string, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return "", err
	}
	return filepath.Join(cacheDir(), SanitizePath(abs)), nil
}

// Acquire takes the lock in dir, waiting up to timeout. When another run
// holds it, the error is a LockedError naming that run.
func Acquire(ctx context.Context, dir string, h Holder, timeout time.Duration) (*Lock, error) {
	//nolint:gosec // G301: 0755 is appropriate for a user cache directory
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	fl := flock.New(filepath.Join(dir, lockFile))
	locked, err := fl.TryLockContext(ctx, retryDelay)
	if err != nil && !errors.Is(err, context.DeadlineExceeded) {
		return nil, err
	}
	if !locked {
		var holder string
		if existing, loadErr := Load(dir); loadErr == nil {
			holder = existing.RunID
		}
		return nil, abbrerrors.LockedError{Holder: holder}
	}

	if err := save(dir, h); err != nil {
		_ = fl.Unlock()
		return nil, err
	}
	return &Lock{dir: dir, flock: fl}, nil
}

// Release removes the holder record and unlocks.
func (l *Lock) Release() error {
	err := os.Remove(filepath.Join(l.dir, holderFile))
	if os.IsNotExist(err) {
		err = nil // Already deleted, not an error
	}
	return multierr.Append(err, l.flock.Unlock())
}

// Load reads the holder record of the current or last run.
func Load(dir string) (*Holder, error) {
	data, err := os.ReadFile(filepath.Join(dir, holderFile))
	if err != nil {
		return nil, err
	}

	var h Holder
	if unmarshalErr := json.Unmarshal(data, &h); unmarshalErr != nil {
		return nil, unmarshalErr
	}
	return &h, nil
}

func save(dir string, h Holder) error {
	data, err := json.MarshalIndent(h, "", "  ")
	if err != nil {
		return err
	}
	//nolint:gosec // G306: 0644 is appropriate for user-readable run files
	return os.WriteFile(filepath.Join(dir, holderFile), data, 0o644)
}

// SanitizePath converts an absolute path to a safe directory name.
// "/Users/abatilo/blog" -> "Users-abatilo-blog"
func SanitizePath(path string) string {
	// Remove leading slash
	result := strings.TrimPrefix(path, "/")

	// Replace non-alphanumeric chars with dash
	re := regexp.MustCompile(`[^a-zA-Z0-9]+`)
	result = re.ReplaceAllString(result, "-")

	// Trim leading/trailing dashes
	return strings.Trim(result, "-")
}

// cacheDir returns the XDG cache directory for abbrlink.
func cacheDir() string {
	if xdgCache := os.Getenv("XDG_CACHE_HOME"); xdgCache != "" {
		return filepath.Join(xdgCache, "abbrlink")
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		// Last resort - use temp directory
		return filepath.Join(os.TempDir(), "abbrlink")
	}

	if runtime.GOOS == "darwin" {
		return filepath.Join(homeDir, "Library", "Caches", "abbrlink")
	}
	return filepath.Join(homeDir, ".cache", "abbrlink")
}

//nolint:revive // Package name intentionally matches stdlib for domain clarity
package errors

import "fmt"

// NotInitializedError indicates the collection has no settings file.
type NotInitializedError struct {
	Path string
}

func (e NotInitializedError) Error() string {
	return fmt.Sprintf("abbrlink not initialized in %s: run 'abbrlink init' first", e.Path)
}

// AlreadyInitializedError indicates the settings file already exists.
type AlreadyInitializedError struct {
	Path string
}

func (e AlreadyInitializedError) Error() string {
	return fmt.Sprintf("abbrlink already initialized: %s", e.Path)
}

// ConfigurationError indicates a setting outside its allowed range.
type ConfigurationError struct {
	Field  string
	Value  string
	Reason string
}

func (e ConfigurationError) Error() string {
	return fmt.Sprintf("invalid %s %q: %s", e.Field, e.Value, e.Reason)
}

// IOError wraps a failure reading or writing a single document.
type IOError struct {
	Op   string
	Path string
	Err  error
}

func (e IOError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.Path, e.Err)
}

func (e IOError) Unwrap() error {
	return e.Err
}

// LockedError indicates another run holds the collection lock.
type LockedError struct {
	Holder string
}

func (e LockedError) Error() string {
	if e.Holder == "" {
		return "another abbrlink run is in progress"
	}
	return fmt.Sprintf("another abbrlink run is in progress (run %s)", e.Holder)
}

// UnresolvedCollisionError indicates a single document could not be given
// an identifier that differs from the rest of the collection.
type UnresolvedCollisionError struct {
	Path   string
	Rounds int
}

func (e UnresolvedCollisionError) Error() string {
	return fmt.Sprintf("abbrlink for %s still collides after %d rounds", e.Path, e.Rounds)
}

// UnknownKeyError indicates a settings key that does not exist.
type UnknownKeyError struct {
	Key string
}

func (e UnknownKeyError) Error() string {
	return fmt.Sprintf("unknown setting: %s", e.Key)
}

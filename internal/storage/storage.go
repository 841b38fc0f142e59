package storage

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/abatilo/abbrlink/internal/config"
	"github.com/abatilo/abbrlink/internal/document"
	abbrerrors "github.com/abatilo/abbrlink/internal/errors"
)

const fileExt = ".md"

// AbbrlinkKey is the front matter field an identifier is stored under.
const AbbrlinkKey = "abbrlink"

// Document is a handle to one markdown file in the collection.
type Document struct {
	Path    string    // absolute path
	Rel     string    // path relative to the collection root
	Name    string    // base name without extension
	ModTime time.Time // file modification time at enumeration
}

// Store handles document file operations for a collection directory.
type Store struct {
	basePath string
}

// NewStore creates a Store rooted at the nearest collection root above cwd.
func NewStore() (*Store, error) {
	root, err := FindCollectionRoot()
	if err != nil {
		return nil, err
	}
	return &Store{basePath: root}, nil
}

// NewStoreWithPath creates a Store with a custom base path.
func NewStoreWithPath(path string) *Store {
	return &Store{basePath: path}
}

// BasePath returns the base path of the store.
func (s *Store) BasePath() string {
	return s.basePath
}

// SettingsPath returns the settings file location for this collection.
func (s *Store) SettingsPath() string {
	return config.Path(s.basePath)
}

// IsInitialized checks if the settings file exists.
func (s *Store) IsInitialized() bool {
	info, err := os.Stat(s.SettingsPath())
	return err == nil && !info.IsDir()
}

// Init writes the settings file in the collection root.
func (s *Store) Init(force bool, c config.Config) error {
	return s.InitAt(s.SettingsPath(), force, c)
}

// InitAt writes the settings file to path.
func (s *Store) InitAt(path string, force bool, c config.Config) error {
	if info, err := os.Stat(path); err == nil && !info.IsDir() && !force {
		return abbrerrors.AlreadyInitializedError{Path: path}
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil { //nolint:gosec // collection dirs are user-readable
		return err
	}
	return config.Save(path, c)
}

// IsDocument reports whether path names a markdown document.
func IsDocument(path string) bool {
	return strings.EqualFold(filepath.Ext(path), fileExt)
}

// IsHidden reports whether a directory name is skipped during scans.
func IsHidden(name string) bool {
	return strings.HasPrefix(name, ".")
}

// Dirs returns every directory that Enumerate would descend into, starting
// with root itself.
func (s *Store) Dirs(root string) ([]string, error) {
	var dirs []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if path != s.basePath && IsHidden(d.Name()) {
			return filepath.SkipDir
		}
		dirs = append(dirs, path)
		return nil
	})
	return dirs, err
}

// Enumerate returns every markdown document under the base path, sorted by
// relative path. Hidden directories are skipped.
func (s *Store) Enumerate() ([]Document, error) {
	var docs []Document
	err := filepath.WalkDir(s.basePath, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if path != s.basePath && IsHidden(d.Name()) {
				return filepath.SkipDir
			}
			return nil
		}
		if !IsDocument(path) {
			return nil
		}
		doc, statErr := s.Stat(path)
		if statErr != nil {
			return statErr
		}
		docs = append(docs, doc)
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.Slice(docs, func(i, j int) bool {
		return docs[i].Rel < docs[j].Rel
	})
	return docs, nil
}

// Stat builds a Document handle for a single file.
func (s *Store) Stat(path string) (Document, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return Document{}, err
	}
	info, err := os.Stat(abs)
	if err != nil {
		return Document{}, abbrerrors.IOError{Op: "stat", Path: path, Err: err}
	}
	root, err := filepath.Abs(s.basePath)
	if err != nil {
		return Document{}, err
	}
	rel, err := filepath.Rel(root, abs)
	if err != nil {
		rel = abs
	}
	return Document{
		Path:    abs,
		Rel:     filepath.ToSlash(rel),
		Name:    strings.TrimSuffix(filepath.Base(abs), filepath.Ext(abs)),
		ModTime: info.ModTime(),
	}, nil
}

// ReadText returns the raw text of a document.
func (s *Store) ReadText(doc Document) (string, error) {
	content, err := os.ReadFile(doc.Path)
	if err != nil {
		return "", abbrerrors.IOError{Op: "read", Path: doc.Rel, Err: err}
	}
	return string(content), nil
}

// WriteIdentifier sets the abbrlink field of a document, leaving the rest
// of its front matter and body as they were.
func (s *Store) WriteIdentifier(doc Document, id string) error {
	info, err := os.Stat(doc.Path)
	if err != nil {
		return abbrerrors.IOError{Op: "write", Path: doc.Rel, Err: err}
	}
	content, err := os.ReadFile(doc.Path)
	if err != nil {
		return abbrerrors.IOError{Op: "write", Path: doc.Rel, Err: err}
	}
	updated, err := document.SetField(content, AbbrlinkKey, id)
	if err != nil {
		return abbrerrors.IOError{Op: "write", Path: doc.Rel, Err: err}
	}
	if err := os.WriteFile(doc.Path, updated, info.Mode().Perm()); err != nil {
		return abbrerrors.IOError{Op: "write", Path: doc.Rel, Err: err}
	}
	return nil
}

// FindCollectionRoot walks up from cwd looking for a settings file.
// Returns cwd when none is found.
func FindCollectionRoot() (string, error) {
	cwd, err := os.Getwd()
	if err != nil {
		return "", err
	}

	dir := cwd
	for {
		_, err := os.Stat(config.Path(dir))
		if err == nil {
			return dir, nil
		}
		if !errors.Is(err, fs.ErrNotExist) {
			return "", err
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			// Reached root without finding a settings file
			return cwd, nil
		}
		dir = parent
	}
}

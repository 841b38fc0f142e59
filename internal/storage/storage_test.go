//nolint:testpackage // Tests require internal access for thorough testing
package storage

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/abatilo/abbrlink/internal/config"
	abbrerrors "github.com/abatilo/abbrlink/internal/errors"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("Failed to create directories: %v", err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("Failed to write %s: %v", path, err)
	}
}

func TestEnumerate(t *testing.T) {
	tmpDir := t.TempDir()
	writeFile(t, filepath.Join(tmpDir, "b.md"), "b")
	writeFile(t, filepath.Join(tmpDir, "a.md"), "a")
	writeFile(t, filepath.Join(tmpDir, "posts", "c.MD"), "c")
	writeFile(t, filepath.Join(tmpDir, "notes.txt"), "not markdown")
	writeFile(t, filepath.Join(tmpDir, ".obsidian", "hidden.md"), "hidden")

	store := NewStoreWithPath(tmpDir)
	docs, err := store.Enumerate()
	if err != nil {
		t.Fatalf("Enumerate failed: %v", err)
	}

	var rels, names []string
	for _, d := range docs {
		rels = append(rels, d.Rel)
		names = append(names, d.Name)
	}
	if diff := cmp.Diff([]string{"a.md", "b.md", "posts/c.MD"}, rels); diff != "" {
		t.Errorf("Enumerate rel paths mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"a", "b", "c"}, names); diff != "" {
		t.Errorf("Enumerate names mismatch (-want +got):\n%s", diff)
	}
	for _, d := range docs {
		if !filepath.IsAbs(d.Path) {
			t.Errorf("Path %q should be absolute", d.Path)
		}
		if d.ModTime.IsZero() {
			t.Errorf("ModTime for %s should be set", d.Rel)
		}
	}
}

func TestDirs(t *testing.T) {
	tmpDir := t.TempDir()
	writeFile(t, filepath.Join(tmpDir, "posts", "2024", "a.md"), "a")
	writeFile(t, filepath.Join(tmpDir, ".git", "objects", "x"), "x")

	store := NewStoreWithPath(tmpDir)
	dirs, err := store.Dirs(tmpDir)
	if err != nil {
		t.Fatalf("Dirs failed: %v", err)
	}
	want := []string{tmpDir, filepath.Join(tmpDir, "posts"), filepath.Join(tmpDir, "posts", "2024")}
	if diff := cmp.Diff(want, dirs); diff != "" {
		t.Errorf("Dirs mismatch (-want +got):\n%s", diff)
	}

	sub, err := store.Dirs(filepath.Join(tmpDir, "posts", "2024"))
	if err != nil {
		t.Fatalf("Dirs failed: %v", err)
	}
	if len(sub) != 1 {
		t.Errorf("Dirs(subdir) = %v, want just the subdir", sub)
	}
}

func TestReadWriteIdentifier(t *testing.T) {
	tmpDir := t.TempDir()
	path := filepath.Join(tmpDir, "post.md")
	writeFile(t, path, "---\ntitle: Post\n---\nBody\n")

	store := NewStoreWithPath(tmpDir)
	doc, err := store.Stat(path)
	if err != nil {
		t.Fatalf("Stat failed: %v", err)
	}

	if err = store.WriteIdentifier(doc, "1a2b3c4d"); err != nil {
		t.Fatalf("WriteIdentifier failed: %v", err)
	}
	// Writing the same value twice leaves the file unchanged.
	if err = store.WriteIdentifier(doc, "1a2b3c4d"); err != nil {
		t.Fatalf("WriteIdentifier failed: %v", err)
	}

	text, err := store.ReadText(doc)
	if err != nil {
		t.Fatalf("ReadText failed: %v", err)
	}
	want := "---\ntitle: Post\nabbrlink: 1a2b3c4d\n---\nBody\n"
	if diff := cmp.Diff(want, text); diff != "" {
		t.Errorf("document mismatch (-want +got):\n%s", diff)
	}
}

func TestReadTextMissing(t *testing.T) {
	store := NewStoreWithPath(t.TempDir())
	_, err := store.ReadText(Document{Path: filepath.Join(store.BasePath(), "gone.md"), Rel: "gone.md"})

	var ioErr abbrerrors.IOError
	if !errors.As(err, &ioErr) {
		t.Fatalf("ReadText error = %v, want IOError", err)
	}
	if ioErr.Op != "read" || ioErr.Path != "gone.md" {
		t.Errorf("IOError = %+v", ioErr)
	}
	if !errors.Is(err, fs.ErrNotExist) {
		t.Error("IOError should wrap fs.ErrNotExist")
	}
}

func TestWriteIdentifierReadOnly(t *testing.T) {
	if runtime.GOOS == "windows" || os.Getuid() == 0 {
		t.Skip("permission bits are not enforced")
	}
	tmpDir := t.TempDir()
	path := filepath.Join(tmpDir, "locked.md")
	writeFile(t, path, "---\ntitle: x\n---\n")
	if err := os.Chmod(path, 0o444); err != nil {
		t.Fatalf("Chmod failed: %v", err)
	}

	store := NewStoreWithPath(tmpDir)
	doc, err := store.Stat(path)
	if err != nil {
		t.Fatalf("Stat failed: %v", err)
	}
	err = store.WriteIdentifier(doc, "1a2b3c4d")
	var ioErr abbrerrors.IOError
	if !errors.As(err, &ioErr) {
		t.Fatalf("WriteIdentifier error = %v, want IOError", err)
	}
}

func TestInit(t *testing.T) {
	tmpDir := t.TempDir()
	store := NewStoreWithPath(tmpDir)

	if store.IsInitialized() {
		t.Error("Store should not be initialized yet")
	}
	if err := store.Init(false, config.Default()); err != nil {
		t.Fatalf("Init failed: %v", err)
	}
	if !store.IsInitialized() {
		t.Error("Store should be initialized")
	}

	err := store.Init(false, config.Default())
	var already abbrerrors.AlreadyInitializedError
	if !errors.As(err, &already) {
		t.Errorf("second Init error = %v, want AlreadyInitializedError", err)
	}
	if err = store.Init(true, config.Default()); err != nil {
		t.Errorf("forced Init failed: %v", err)
	}
}

func TestInitAtCustomPath(t *testing.T) {
	tmpDir := t.TempDir()
	store := NewStoreWithPath(tmpDir)
	path := filepath.Join(tmpDir, "settings", "abbrlink.yaml")

	if err := store.InitAt(path, false, config.Default()); err != nil {
		t.Fatalf("InitAt failed: %v", err)
	}
	if _, err := os.Stat(path); err != nil {
		t.Errorf("settings file not written at %s: %v", path, err)
	}
	if store.IsInitialized() {
		t.Error("the default settings path should stay untouched")
	}

	err := store.InitAt(path, false, config.Default())
	var already abbrerrors.AlreadyInitializedError
	if !errors.As(err, &already) || already.Path != path {
		t.Errorf("second InitAt error = %v, want AlreadyInitializedError for %s", err, path)
	}
}

func TestIsDocument(t *testing.T) {
	tests := []struct {
		path string
		want bool
	}{
		{"post.md", true},
		{"POST.MD", true},
		{"dir/post.md", true},
		{"post.markdown", false},
		{"post.txt", false},
		{"md", false},
	}
	for _, tt := range tests {
		if got := IsDocument(tt.path); got != tt.want {
			t.Errorf("IsDocument(%q) = %v, want %v", tt.path, got, tt.want)
		}
	}
}

//nolint:gocognit // Test setup/teardown requires multiple nested subtests
func TestFindCollectionRoot(t *testing.T) {
	tmpDir := t.TempDir()

	// Resolve symlinks in temp dir (macOS /var -> /private/var)
	var err error
	tmpDir, err = filepath.EvalSymlinks(tmpDir)
	if err != nil {
		t.Fatalf("Failed to resolve symlinks: %v", err)
	}

	grandchild := filepath.Join(tmpDir, "parent", "child", "grandchild")
	if err = os.MkdirAll(grandchild, 0o755); err != nil {
		t.Fatalf("Failed to create directories: %v", err)
	}

	t.Run("finds settings in parent directory", func(t *testing.T) {
		parent := filepath.Join(tmpDir, "parent")
		settings := config.Path(parent)
		writeFile(t, settings, "hash_length: 8\n")
		defer os.Remove(settings)

		t.Chdir(grandchild)

		root, err := FindCollectionRoot() //nolint:govet // Intentional shadow in subtest
		if err != nil {
			t.Fatalf("FindCollectionRoot() error = %v", err)
		}
		if root != parent {
			t.Errorf("FindCollectionRoot() = %q, want %q", root, parent)
		}
	})

	t.Run("falls back to cwd", func(t *testing.T) {
		t.Chdir(grandchild)

		root, err := FindCollectionRoot() //nolint:govet // Intentional shadow in subtest
		if err != nil {
			t.Fatalf("FindCollectionRoot() error = %v", err)
		}
		if !strings.HasPrefix(root, tmpDir) || root != grandchild {
			t.Errorf("FindCollectionRoot() = %q, want %q", root, grandchild)
		}
	})
}

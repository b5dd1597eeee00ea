package upload

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func newTestStore(t *testing.T, maxSize int64) *Store {
	t.Helper()

	s, err := New(filepath.Join(t.TempDir(), "data"), maxSize)
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	return s
}

func TestSaveAndReadFirst(t *testing.T) {
	s := newTestStore(t, 1024)

	path, err := s.Save("notes.txt", strings.NewReader("hello world"))
	if err != nil {
		t.Fatalf("save: %v", err)
	}
	if filepath.Dir(path) != s.Dir() {
		t.Fatalf("file saved outside store: %q", path)
	}

	name, text, err := s.ReadFirst()
	if err != nil {
		t.Fatalf("read first: %v", err)
	}
	if name != "notes.txt" || text != "hello world" {
		t.Fatalf("unexpected file: %q %q", name, text)
	}
}

func TestSaveStripsDirectories(t *testing.T) {
	s := newTestStore(t, 1024)

	path, err := s.Save("../../etc/evil.txt", strings.NewReader("x"))
	if err != nil {
		t.Fatalf("save: %v", err)
	}
	if path != filepath.Join(s.Dir(), "evil.txt") {
		t.Fatalf("unexpected path: %q", path)
	}
}

func TestSaveRejectsUnsupportedType(t *testing.T) {
	s := newTestStore(t, 1024)

	for _, name := range []string{"report.pdf", "noext", "archive.txt.gz"} {
		if _, err := s.Save(name, strings.NewReader("x")); err != ErrUnsupportedType {
			t.Fatalf("%s: expected ErrUnsupportedType, got %v", name, err)
		}
	}

	if _, err := s.Save("UPPER.TXT", strings.NewReader("x")); err != nil {
		t.Fatalf("expected upper-case extension to be accepted: %v", err)
	}
}

func TestSaveRejectsTooLarge(t *testing.T) {
	s := newTestStore(t, 4)

	if _, err := s.Save("big.txt", strings.NewReader("12345")); err != ErrFileTooLarge {
		t.Fatalf("expected ErrFileTooLarge, got %v", err)
	}

	paths, err := s.List()
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(paths) != 0 {
		t.Fatalf("expected partial file to be removed, got %v", paths)
	}

	if _, err = s.Save("fits.txt", strings.NewReader("1234")); err != nil {
		t.Fatalf("expected file at limit to be accepted: %v", err)
	}
}

func TestListIsSortedAndSkipsDirectories(t *testing.T) {
	s := newTestStore(t, 1024)

	for _, name := range []string{"b.txt", "a.txt"} {
		if _, err := s.Save(name, strings.NewReader(name)); err != nil {
			t.Fatalf("save %s: %v", name, err)
		}
	}
	if _, err := s.ForUser(42).Save("c.txt", strings.NewReader("c")); err != nil {
		t.Fatalf("save for user: %v", err)
	}

	paths, err := s.List()
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	want := []string{filepath.Join(s.Dir(), "a.txt"), filepath.Join(s.Dir(), "b.txt")}
	if len(paths) != len(want) || paths[0] != want[0] || paths[1] != want[1] {
		t.Fatalf("unexpected paths: %v", paths)
	}
}

func TestClearRemovesFiles(t *testing.T) {
	s := newTestStore(t, 1024)

	if _, err := s.Save("a.txt", strings.NewReader("a")); err != nil {
		t.Fatalf("save: %v", err)
	}
	if err := s.Clear(); err != nil {
		t.Fatalf("clear: %v", err)
	}

	paths, err := s.List()
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(paths) != 0 {
		t.Fatalf("expected store to be empty, got %v", paths)
	}

	if _, _, err = s.ReadFirst(); err != ErrNoFile {
		t.Fatalf("expected ErrNoFile, got %v", err)
	}
}

func TestClearMissingDirectory(t *testing.T) {
	s := newTestStore(t, 1024)

	if err := os.RemoveAll(s.Dir()); err != nil {
		t.Fatalf("remove dir: %v", err)
	}
	if err := s.Clear(); err != nil {
		t.Fatalf("expected clearing missing directory to succeed: %v", err)
	}
}

func TestReadFirstRejectsBinary(t *testing.T) {
	s := newTestStore(t, 1024)

	if _, err := s.Save("bin.txt", strings.NewReader("\xff\xfe\x00")); err != nil {
		t.Fatalf("save: %v", err)
	}
	if _, _, err := s.ReadFirst(); err != ErrNotText {
		t.Fatalf("expected ErrNotText, got %v", err)
	}
}

func TestForUserIsolatesFiles(t *testing.T) {
	s := newTestStore(t, 1024)

	alice := s.ForUser(1)
	bob := s.ForUser(2)

	if _, err := alice.Save("a.txt", strings.NewReader("alice")); err != nil {
		t.Fatalf("save: %v", err)
	}

	if _, _, err := bob.ReadFirst(); err != ErrNoFile {
		t.Fatalf("expected bob to see no files, got %v", err)
	}
}

func TestClearAllRemovesUserDirectories(t *testing.T) {
	s := newTestStore(t, 1024)

	if _, err := s.ForUser(1).Save("a.txt", strings.NewReader("a")); err != nil {
		t.Fatalf("save: %v", err)
	}
	if _, err := s.Save("root.txt", strings.NewReader("r")); err != nil {
		t.Fatalf("save: %v", err)
	}

	if err := s.ClearAll(); err != nil {
		t.Fatalf("clear all: %v", err)
	}

	entries, err := os.ReadDir(s.Dir())
	if err != nil {
		t.Fatalf("read dir: %v", err)
	}
	if len(entries) != 0 {
		t.Fatalf("expected empty directory, got %d entries", len(entries))
	}
}

func TestClearAllKeepsForeignEntries(t *testing.T) {
	s := newTestStore(t, 1024)

	if _, err := s.ForUser(7).Save("a.txt", strings.NewReader("a")); err != nil {
		t.Fatalf("save: %v", err)
	}
	foreign := []string{".env", "main.go"}
	for _, name := range foreign {
		if err := os.WriteFile(filepath.Join(s.Dir(), name), []byte("keep"), 0o600); err != nil {
			t.Fatalf("write %s: %v", name, err)
		}
	}
	if err := os.MkdirAll(filepath.Join(s.Dir(), "src", "pkg"), 0o750); err != nil {
		t.Fatalf("mkdir: %v", err)
	}

	if err := s.ClearAll(); err != nil {
		t.Fatalf("clear all: %v", err)
	}

	for _, name := range append(foreign, "src") {
		if _, err := os.Stat(filepath.Join(s.Dir(), name)); err != nil {
			t.Fatalf("expected %s to survive: %v", name, err)
		}
	}
	if _, err := os.Stat(filepath.Join(s.Dir(), "7")); !os.IsNotExist(err) {
		t.Fatalf("expected user directory to be removed, got %v", err)
	}
}

func TestForUserDoesNotCreateDirectory(t *testing.T) {
	s := newTestStore(t, 1024)

	user := s.ForUser(9)
	if err := user.Clear(); err != nil {
		t.Fatalf("clear: %v", err)
	}
	if _, _, err := user.ReadFirst(); err != ErrNoFile {
		t.Fatalf("expected ErrNoFile, got %v", err)
	}

	if _, err := os.Stat(user.Dir()); !os.IsNotExist(err) {
		t.Fatalf("expected no user directory, got %v", err)
	}
}

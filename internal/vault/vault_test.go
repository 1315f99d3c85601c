package vault

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/starford/raido/internal/models"
)

func tempVault(t *testing.T) *FS {
	t.Helper()
	dir := t.TempDir()
	fs, err := NewFS(dir)
	if err != nil {
		t.Fatalf("NewFS: %v", err)
	}
	return fs
}

func TestWriteAndRead(t *testing.T) {
	v := tempVault(t)
	content := []byte("# Hello\nWorld\n")
	if err := v.Write("doc.md", content); err != nil {
		t.Fatalf("Write: %v", err)
	}
	got, err := v.Read("doc.md")
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if string(got) != string(content) {
		t.Errorf("content mismatch: got %q", got)
	}
}

func TestWriteCreatesSubdirs(t *testing.T) {
	v := tempVault(t)
	if err := v.Write("a/b/c.md", []byte("deep")); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if !v.Exists("a/b/c.md") {
		t.Error("file missing after write")
	}
}

func TestList(t *testing.T) {
	v := tempVault(t)
	_ = v.Write("a.md", []byte("a"))
	_ = v.Write("sub/b.md", []byte("b"))
	_ = v.Write("readme.txt", []byte("not md"))

	items, err := v.List("")
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(items) != 2 {
		t.Errorf("len = %d, want 2", len(items))
	}
}

func TestListSkipsHiddenDirs(t *testing.T) {
	v := tempVault(t)
	_ = v.Write("a.md", []byte("a"))
	if err := os.MkdirAll(filepath.Join(v.Root(), ".git"), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(v.Root(), ".git", "x.md"), []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	items, err := v.List("")
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(items) != 1 {
		t.Errorf("items = %+v", items)
	}
}

func TestGlob(t *testing.T) {
	v := tempVault(t)
	_ = v.Write("docs/a.md", []byte("a"))
	_ = v.Write("docs/b.md", []byte("b"))
	_ = v.Write("docs/deep/c.md", []byte("c"))
	_ = v.Write("top.md", []byte("t"))

	got, err := v.Glob("docs/*.md")
	if err != nil {
		t.Fatalf("Glob: %v", err)
	}
	if !reflect.DeepEqual(got, []string{"docs/a.md", "docs/b.md"}) {
		t.Errorf("got %v", got)
	}

	got, err = v.Glob("**/*.md")
	if err != nil {
		t.Fatalf("Glob: %v", err)
	}
	want := []string{"docs/a.md", "docs/b.md", "docs/deep/c.md", "top.md"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("got %v, want %v", got, want)
	}

	got, err = v.Glob("top.md", "missing.md")
	if err != nil {
		t.Fatalf("Glob: %v", err)
	}
	if !reflect.DeepEqual(got, []string{"top.md"}) {
		t.Errorf("got %v", got)
	}
}

func TestTraversalBlocked(t *testing.T) {
	v := tempVault(t)
	cases := []string{
		"../../etc/passwd",
		"../outside.md",
		"/etc/shadow",
	}
	for _, p := range cases {
		if _, err := v.Read(p); err == nil {
			t.Errorf("expected error for path %q", p)
		}
		if err := v.Write(p, []byte("x")); err == nil {
			t.Errorf("expected error for write to %q", p)
		}
	}
}

func TestAtomicWriteOverwrites(t *testing.T) {
	v := tempVault(t)
	_ = v.Write("atomic.md", []byte("original"))
	if err := v.Write("atomic.md", []byte("updated")); err != nil {
		t.Fatalf("Write: %v", err)
	}
	got, _ := v.Read("atomic.md")
	if string(got) != "updated" {
		t.Errorf("content = %q", got)
	}
}

func TestListReportsUnreadableEntries(t *testing.T) {
	v := tempVault(t)
	_ = v.Write("good.md", []byte("fine"))
	// A dangling symlink walks like a file but cannot be read.
	if err := os.Symlink(filepath.Join(v.Root(), "nope"), filepath.Join(v.Root(), "bad.md")); err != nil {
		t.Skipf("symlink: %v", err)
	}

	items, err := v.List("")
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(items) != 2 {
		t.Fatalf("len = %d, want 2: %+v", len(items), items)
	}
	byPath := map[string]models.DocInfo{}
	for _, it := range items {
		byPath[it.Path] = it
	}
	if byPath["good.md"].Err != "" || byPath["good.md"].Checksum == "" {
		t.Errorf("good.md = %+v", byPath["good.md"])
	}
	if byPath["bad.md"].Err == "" {
		t.Errorf("bad.md = %+v, want Err set", byPath["bad.md"])
	}
}

func TestGlobSkipsUnreadableEntries(t *testing.T) {
	v := tempVault(t)
	_ = v.Write("good.md", []byte("fine"))
	if err := os.Symlink(filepath.Join(v.Root(), "nope"), filepath.Join(v.Root(), "bad.md")); err != nil {
		t.Skipf("symlink: %v", err)
	}

	got, err := v.Glob("*.md")
	if err != nil {
		t.Fatalf("Glob: %v", err)
	}
	if !reflect.DeepEqual(got, []string{"good.md"}) {
		t.Errorf("Glob = %v, want [good.md]", got)
	}
}

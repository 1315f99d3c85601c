// Package vault provides the document-tree filesystem abstraction: reading,
// writing, enumerating, and glob-matching Markdown documents under a root.
package vault

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"

	"github.com/starford/raido/internal/apperr"
	"github.com/starford/raido/internal/models"
	"github.com/starford/raido/internal/pathutil"
)

// Provider is the interface for document-tree file operations. All paths are
// relative to the vault root and use forward slashes.
type Provider interface {
	// Root returns the absolute vault root directory.
	Root() string
	// List returns metadata for every .md file under dir. An unreadable
	// entry is returned with DocInfo.Err set instead of aborting the walk.
	List(dir string) ([]models.DocInfo, error)
	// Glob expands user patterns into concrete document paths. A pattern
	// without glob metacharacters passes through when the file exists.
	Glob(patterns ...string) ([]string, error)
	// Read returns the raw bytes of the file at path.
	Read(path string) ([]byte, error)
	// Write atomically writes content to path.
	Write(path string, content []byte) error
	// Exists reports whether path names an existing file.
	Exists(path string) bool
}

// FS implements Provider backed by the local file system.
type FS struct {
	root string // absolute path to the vault root
}

// NewFS creates an FS provider rooted at the given directory, which must
// already exist.
func NewFS(root string) (*FS, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("vault: resolve root: %w", err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return nil, fmt.Errorf("vault: stat root: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("vault: root is not a directory: %s", abs)
	}
	return &FS{root: abs}, nil
}

// Root implements Provider.
func (f *FS) Root() string { return f.root }

// safePath resolves a relative path against the vault root and rejects any
// result that escapes it (directory traversal).
func (f *FS) safePath(rel string) (string, error) {
	if rel == "" {
		return f.root, nil
	}
	cleaned := filepath.Clean(filepath.FromSlash(rel))
	if filepath.IsAbs(cleaned) {
		return "", fmt.Errorf("vault: absolute paths not allowed: %s", rel)
	}
	joined := filepath.Join(f.root, cleaned)
	abs, err := filepath.Abs(joined)
	if err != nil {
		return "", fmt.Errorf("vault: resolve path: %w", err)
	}
	if !strings.HasPrefix(abs, f.root+string(os.PathSeparator)) && abs != f.root {
		return "", fmt.Errorf("vault: path escapes vault root: %s", rel)
	}
	return abs, nil
}

// List walks dir (relative to root) and returns metadata for every .md file.
// An entry that cannot be statted or read is reported with DocInfo.Err and
// the walk keeps going; only a failure on the base directory itself is fatal.
func (f *FS) List(dir string) ([]models.DocInfo, error) {
	base, err := f.safePath(dir)
	if err != nil {
		return nil, err
	}
	var out []models.DocInfo
	relPath := func(p string) string {
		rel, _ := filepath.Rel(f.root, p)
		return pathutil.ToPortable(rel)
	}
	err = filepath.WalkDir(base, func(p string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			if p == base {
				return walkErr
			}
			out = append(out, models.DocInfo{Path: relPath(p), Err: walkErr.Error()})
			if d != nil && d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if d.IsDir() {
			if strings.HasPrefix(d.Name(), ".") && p != base {
				return filepath.SkipDir
			}
			return nil
		}
		if !strings.HasSuffix(strings.ToLower(d.Name()), ".md") {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			out = append(out, models.DocInfo{Path: relPath(p), Err: err.Error()})
			return nil
		}
		data, err := os.ReadFile(p)
		if err != nil {
			out = append(out, models.DocInfo{Path: relPath(p), Err: err.Error()})
			return nil
		}
		out = append(out, models.DocInfo{
			Path:      relPath(p),
			Checksum:  checksum(data),
			UpdatedAt: info.ModTime(),
		})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("vault: list: %w", err)
	}
	return out, nil
}

// Glob expands patterns against the vault's .md files. Patterns use path.Match
// syntax per segment, with "**" matching any number of directories. Literal
// paths pass through when the file exists.
func (f *FS) Glob(patterns ...string) ([]string, error) {
	docs, err := f.List("")
	if err != nil {
		return nil, err
	}
	seen := map[string]bool{}
	var out []string
	add := func(p string) {
		if !seen[p] {
			seen[p] = true
			out = append(out, p)
		}
	}
	for _, pat := range patterns {
		pat = pathutil.Normalize(pat)
		if !strings.ContainsAny(pat, "*?[") {
			if f.Exists(pat) {
				add(pat)
			}
			continue
		}
		for _, d := range docs {
			if d.Err != "" {
				continue
			}
			ok, err := matchGlob(pat, d.Path)
			if err != nil {
				return nil, fmt.Errorf("vault: bad pattern %q: %w", pat, err)
			}
			if ok {
				add(d.Path)
			}
		}
	}
	sort.Strings(out)
	return out, nil
}

// matchGlob matches a forward-slash pattern against a path, segment by
// segment; a "**" segment matches zero or more directories.
func matchGlob(pattern, name string) (bool, error) {
	ps := strings.Split(pattern, "/")
	ns := strings.Split(name, "/")
	return matchSegments(ps, ns)
}

func matchSegments(ps, ns []string) (bool, error) {
	for len(ps) > 0 {
		if ps[0] == "**" {
			for skip := 0; skip <= len(ns); skip++ {
				ok, err := matchSegments(ps[1:], ns[skip:])
				if err != nil || ok {
					return ok, err
				}
			}
			return false, nil
		}
		if len(ns) == 0 {
			return false, nil
		}
		ok, err := path.Match(ps[0], ns[0])
		if err != nil || !ok {
			return ok, err
		}
		ps, ns = ps[1:], ns[1:]
	}
	return len(ns) == 0, nil
}

// Read returns the raw bytes of a vault file.
func (f *FS) Read(p string) ([]byte, error) {
	abs, err := f.safePath(p)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(abs)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("vault: read %s: %w", p, apperr.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("vault: read %s: %w", p, err)
	}
	return data, nil
}

// Write atomically writes content: tmp file → fsync → rename.
func (f *FS) Write(p string, content []byte) error {
	abs, err := f.safePath(p)
	if err != nil {
		return err
	}
	dir := filepath.Dir(abs)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("vault: mkdir: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".raido-tmp-*")
	if err != nil {
		return fmt.Errorf("vault: create temp: %w", err)
	}
	tmpName := tmp.Name()

	success := false
	defer func() {
		if !success {
			_ = tmp.Close()
			_ = os.Remove(tmpName)
		}
	}()

	if _, err := tmp.Write(content); err != nil {
		return fmt.Errorf("vault: write temp: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		return fmt.Errorf("vault: fsync: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("vault: close temp: %w", err)
	}
	if err := os.Rename(tmpName, abs); err != nil {
		return fmt.Errorf("vault: rename: %w", err)
	}
	success = true
	return nil
}

// Exists reports whether path names an existing regular file.
func (f *FS) Exists(p string) bool {
	abs, err := f.safePath(p)
	if err != nil {
		return false
	}
	info, err := os.Stat(abs)
	return err == nil && !info.IsDir()
}

func checksum(data []byte) string {
	h := sha256.Sum256(data)
	return hex.EncodeToString(h[:])
}

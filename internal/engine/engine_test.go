package engine

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/starford/raido/internal/models"
	"github.com/starford/raido/internal/vault"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestEngine(t *testing.T, files map[string]string) (*Engine, string) {
	t.Helper()
	root := t.TempDir()
	for p, content := range files {
		abs := filepath.Join(root, filepath.FromSlash(p))
		if err := os.MkdirAll(filepath.Dir(abs), 0o755); err != nil {
			t.Fatalf("mkdir: %v", err)
		}
		if err := os.WriteFile(abs, []byte(content), 0o644); err != nil {
			t.Fatalf("write %s: %v", p, err)
		}
	}
	store, err := vault.NewFS(root)
	if err != nil {
		t.Fatalf("NewFS: %v", err)
	}
	return New(store, WithLogger(discardLogger())), root
}

func readDoc(t *testing.T, root, p string) string {
	t.Helper()
	b, err := os.ReadFile(filepath.Join(root, filepath.FromSlash(p)))
	if err != nil {
		t.Fatalf("read %s: %v", p, err)
	}
	return string(b)
}

func docExists(root, p string) bool {
	_, err := os.Stat(filepath.Join(root, filepath.FromSlash(p)))
	return err == nil
}

func findChanges(res *models.OperationResult, typ string) []models.Change {
	var out []models.Change
	for _, c := range res.Changes {
		if c.Type == typ {
			out = append(out, c)
		}
	}
	return out
}

func TestMoveRewritesIncomingLinks(t *testing.T) {
	e, root := newTestEngine(t, map[string]string{
		"docs/a.md": "# A\n\nbody\n",
		"docs/c.md": "see [A](./a.md) for details\n",
	})

	res := e.Move(MoveOptions{From: "docs/a.md", To: "docs/b.md"})
	if !res.Success {
		t.Fatalf("move failed: %v", res.Errors)
	}

	updates := findChanges(res, models.ChangeLinkUpdated)
	if len(updates) != 1 {
		t.Fatalf("expected exactly one link-updated change, got %d: %+v", len(updates), updates)
	}
	ch := updates[0]
	if ch.FilePath != "docs/c.md" || ch.OldValue != "./a.md" || ch.NewValue != "./b.md" {
		t.Errorf("unexpected change: %+v", ch)
	}

	if docExists(root, "docs/a.md") {
		t.Error("source still exists after move")
	}
	if got := readDoc(t, root, "docs/b.md"); got != "# A\n\nbody\n" {
		t.Errorf("destination content changed: %q", got)
	}
	if got := readDoc(t, root, "docs/c.md"); !strings.Contains(got, "(./b.md)") {
		t.Errorf("referrer not rewritten: %q", got)
	}
	if len(res.ModifiedFiles) != 1 || res.ModifiedFiles[0] != "docs/c.md" {
		t.Errorf("modified files = %v", res.ModifiedFiles)
	}
}

func TestMoveRewritesOwnOutgoingLinks(t *testing.T) {
	e, root := newTestEngine(t, map[string]string{
		"docs/a.md": "see [C](./c.md)\n",
		"docs/c.md": "# C\n",
	})

	res := e.Move(MoveOptions{From: "docs/a.md", To: "other/b.md"})
	if !res.Success {
		t.Fatalf("move failed: %v", res.Errors)
	}

	got := readDoc(t, root, "other/b.md")
	if !strings.Contains(got, "(../docs/c.md)") {
		t.Errorf("outgoing link not rewritten for new location: %q", got)
	}
	updates := findChanges(res, models.ChangeLinkUpdated)
	if len(updates) != 1 || updates[0].FilePath != "other/b.md" {
		t.Errorf("own-link change not attributed to the new path: %+v", updates)
	}
}

func TestMoveDryRunWritesNothing(t *testing.T) {
	e, root := newTestEngine(t, map[string]string{
		"docs/a.md": "# A\n",
		"docs/c.md": "[A](./a.md)\n",
	})

	res := e.Move(MoveOptions{From: "docs/a.md", To: "docs/b.md", DryRun: true})
	if !res.Success {
		t.Fatalf("dry run failed: %v", res.Errors)
	}
	if len(findChanges(res, models.ChangeLinkUpdated)) != 1 {
		t.Error("dry run should still report the computed changes")
	}
	if !docExists(root, "docs/a.md") || docExists(root, "docs/b.md") {
		t.Error("dry run touched the filesystem")
	}
	if got := readDoc(t, root, "docs/c.md"); got != "[A](./a.md)\n" {
		t.Errorf("dry run modified referrer: %q", got)
	}
}

func TestMoveDestinationExists(t *testing.T) {
	e, _ := newTestEngine(t, map[string]string{
		"a.md": "# A\n",
		"b.md": "# B\n",
	})

	res := e.Move(MoveOptions{From: "a.md", To: "b.md"})
	if res.Success {
		t.Fatal("expected failure when destination exists")
	}
	if len(res.Errors) == 0 || !strings.Contains(res.Errors[0], "already exists") {
		t.Errorf("errors = %v", res.Errors)
	}
}

func TestMoveStrictUnresolvedTarget(t *testing.T) {
	files := map[string]string{
		"docs/a.md": "[gone](./missing.md)\n",
	}

	e, root := newTestEngine(t, files)
	res := e.Move(MoveOptions{From: "docs/a.md", To: "docs/b.md", Strict: true})
	if res.Success {
		t.Fatal("strict move with unresolved target should fail")
	}
	if !docExists(root, "docs/a.md") {
		t.Error("strict failure must not mutate the vault")
	}

	e, root = newTestEngine(t, files)
	res = e.Move(MoveOptions{From: "docs/a.md", To: "docs/b.md"})
	if !res.Success {
		t.Fatalf("non-strict move failed: %v", res.Errors)
	}
	if len(res.Warnings) == 0 {
		t.Error("expected a warning for the unresolved target")
	}
	if !docExists(root, "docs/b.md") {
		t.Error("non-strict move should complete")
	}
}

func TestSplitByHeader(t *testing.T) {
	e, root := newTestEngine(t, map[string]string{
		"docs/all.md": "# T\n\n## One\nX\n\n## Two\nY\n",
	})

	res := e.Split(SplitOptions{File: "docs/all.md", Strategy: SplitByHeader, Level: 2})
	if !res.Success {
		t.Fatalf("split failed: %v", res.Errors)
	}
	if len(res.CreatedFiles) != 2 {
		t.Fatalf("created = %v", res.CreatedFiles)
	}
	if res.CreatedFiles[0] != "docs/one.md" || res.CreatedFiles[1] != "docs/two.md" {
		t.Errorf("unexpected section paths: %v", res.CreatedFiles)
	}
	if got := readDoc(t, root, "docs/one.md"); !strings.HasPrefix(got, "## One\nX\n") {
		t.Errorf("one.md = %q", got)
	}
	if got := readDoc(t, root, "docs/two.md"); got != "## Two\nY\n" {
		t.Errorf("two.md = %q", got)
	}
	if !docExists(root, "docs/all.md") {
		t.Error("source should be kept by default")
	}
}

func TestSplitIntoOtherDirRewritesLinks(t *testing.T) {
	e, root := newTestEngine(t, map[string]string{
		"docs/all.md": "## One\n[C](./c.md)\n",
		"docs/c.md":   "# C\n",
	})

	res := e.Split(SplitOptions{File: "docs/all.md", Strategy: SplitByHeader, Level: 2, OutputDir: "out"})
	if !res.Success {
		t.Fatalf("split failed: %v", res.Errors)
	}
	got := readDoc(t, root, "out/one.md")
	if !strings.Contains(got, "(../docs/c.md)") {
		t.Errorf("section link not rewritten for output dir: %q", got)
	}
}

func TestSplitDeleteSourceAndFrontmatter(t *testing.T) {
	e, root := newTestEngine(t, map[string]string{
		"n.md": "---\ntitle: All\n---\n## One\nX\n## Two\nY\n",
	})

	res := e.Split(SplitOptions{
		File:            "n.md",
		Strategy:        SplitByHeader,
		Level:           2,
		KeepFrontmatter: true,
		DeleteSource:    true,
	})
	if !res.Success {
		t.Fatalf("split failed: %v", res.Errors)
	}
	if docExists(root, "n.md") {
		t.Error("source should be deleted")
	}
	for _, p := range res.CreatedFiles {
		if got := readDoc(t, root, p); !strings.HasPrefix(got, "---\ntitle: All\n---\n") {
			t.Errorf("%s missing propagated frontmatter: %q", p, got)
		}
	}
}

func TestJoinManualOrder(t *testing.T) {
	e, root := newTestEngine(t, map[string]string{
		"a.md": "# A\nbody a\n",
		"b.md": "# B\nbody b\n",
	})

	res := e.Join(JoinOptions{
		Files:    []string{"a.md", "b.md"},
		Output:   "all.md",
		Strategy: JoinManual,
		Order:    []string{"b.md", "a.md"},
	})
	if !res.Success {
		t.Fatalf("join failed: %v", res.Errors)
	}
	got := readDoc(t, root, "all.md")
	if !strings.HasPrefix(got, "# B\nbody b\n") {
		t.Errorf("manual order not honored: %q", got)
	}
	if !strings.Contains(got, "# A\nbody a\n") {
		t.Errorf("second section missing: %q", got)
	}
	if !docExists(root, "a.md") || !docExists(root, "b.md") {
		t.Error("join must not delete sources")
	}
}

func TestJoinDependencyOrderFromFrontmatter(t *testing.T) {
	e, root := newTestEngine(t, map[string]string{
		"a.md": "---\ndependencies:\n  - ./b.md\n---\n# A\n",
		"b.md": "# B\n",
	})

	res := e.Join(JoinOptions{
		Files:    []string{"a.md", "b.md"},
		Output:   "all.md",
		Strategy: JoinByDependency,
	})
	if !res.Success {
		t.Fatalf("join failed: %v", res.Errors)
	}
	got := readDoc(t, root, "all.md")
	if strings.Index(got, "# B") > strings.Index(got, "# A") {
		t.Errorf("dependency must come first: %q", got)
	}
}

func TestJoinOutputExists(t *testing.T) {
	e, _ := newTestEngine(t, map[string]string{
		"a.md":   "# A\n",
		"b.md":   "# B\n",
		"all.md": "old\n",
	})

	res := e.Join(JoinOptions{
		Files:    []string{"a.md", "b.md"},
		Output:   "all.md",
		Strategy: JoinAlphabetical,
	})
	if res.Success {
		t.Fatal("expected failure when output exists")
	}
}

func TestJoinDuplicateHeadersWarn(t *testing.T) {
	e, _ := newTestEngine(t, map[string]string{
		"a.md": "# Same\nfrom a\n",
		"b.md": "# Same\nfrom b\n",
	})

	res := e.Join(JoinOptions{
		Files:    []string{"a.md", "b.md"},
		Output:   "all.md",
		Strategy: JoinAlphabetical,
		DryRun:   true,
	})
	if !res.Success {
		t.Fatalf("join failed: %v", res.Errors)
	}
	found := false
	for _, w := range res.Warnings {
		if strings.Contains(w, models.ConflictDuplicateHeaders) {
			found = true
		}
	}
	if !found {
		t.Errorf("expected duplicate-headers conflict warning, got %v", res.Warnings)
	}
}

func TestMergeRedirectsAndDeletes(t *testing.T) {
	e, root := newTestEngine(t, map[string]string{
		"a.md": "# A\nbody a\n",
		"b.md": "# B\nbody b\n",
		"c.md": "[A](./a.md) and [B](./b.md)\n",
	})

	res := e.Merge(MergeOptions{JoinOptions: JoinOptions{
		Files:    []string{"a.md", "b.md"},
		Output:   "m.md",
		Strategy: JoinAlphabetical,
	}})
	if !res.Success {
		t.Fatalf("merge failed: %v", res.Errors)
	}

	if docExists(root, "a.md") || docExists(root, "b.md") {
		t.Error("merged sources should be deleted")
	}
	if !docExists(root, "m.md") {
		t.Fatal("output missing")
	}
	got := readDoc(t, root, "c.md")
	if got != "[A](./m.md) and [B](./m.md)\n" {
		t.Errorf("incoming links not redirected: %q", got)
	}
	if len(res.DeletedFiles) != 2 {
		t.Errorf("deleted files = %v", res.DeletedFiles)
	}
}

func TestMergeDryRunWritesNothing(t *testing.T) {
	e, root := newTestEngine(t, map[string]string{
		"a.md": "# A\n",
		"b.md": "# B\n",
		"c.md": "[A](./a.md)\n",
	})

	res := e.Merge(MergeOptions{JoinOptions: JoinOptions{
		Files:    []string{"a.md", "b.md"},
		Output:   "m.md",
		Strategy: JoinAlphabetical,
		DryRun:   true,
	}})
	if !res.Success {
		t.Fatalf("dry run failed: %v", res.Errors)
	}
	if docExists(root, "m.md") || !docExists(root, "a.md") {
		t.Error("dry run touched the filesystem")
	}
	if got := readDoc(t, root, "c.md"); got != "[A](./a.md)\n" {
		t.Errorf("dry run modified referrer: %q", got)
	}
}

func TestCheckReportsUnresolvedTargets(t *testing.T) {
	files := map[string]string{
		"a.md": "[gone](./missing.md)\n[ok](./b.md)\n",
		"b.md": "# B\n",
	}

	e, _ := newTestEngine(t, files)
	res := e.Check(CheckOptions{})
	if !res.Success {
		t.Fatalf("non-strict check failed: %v", res.Errors)
	}
	if len(res.Warnings) != 1 || !strings.Contains(res.Warnings[0], "./missing.md") {
		t.Errorf("warnings = %v", res.Warnings)
	}

	e, _ = newTestEngine(t, files)
	res = e.Check(CheckOptions{Strict: true})
	if res.Success {
		t.Fatal("strict check should fail on unresolved target")
	}
}

func TestMoveEmitsEvents(t *testing.T) {
	var kinds []string
	e, _ := newTestEngine(t, map[string]string{"a.md": "# A\n"})
	e.events = func(ev Event) { kinds = append(kinds, ev.Kind) }

	res := e.Move(MoveOptions{From: "a.md", To: "b.md"})
	if !res.Success {
		t.Fatalf("move failed: %v", res.Errors)
	}
	want := map[string]bool{EventOperationStart: false, EventTxnExecuted: false, EventOperationDone: false}
	for _, k := range kinds {
		if _, ok := want[k]; ok {
			want[k] = true
		}
	}
	for k, seen := range want {
		if !seen {
			t.Errorf("event %s not emitted (got %v)", k, kinds)
		}
	}
}

func TestSplitJoinRoundTripRecoversTitles(t *testing.T) {
	e, root := newTestEngine(t, map[string]string{
		"docs/all.md": "## Alpha\ncontent a\n\n## Beta\ncontent b\n",
	})

	sres := e.Split(SplitOptions{File: "docs/all.md", Strategy: SplitByHeader, Level: 2})
	if !sres.Success {
		t.Fatalf("split failed: %v", sres.Errors)
	}

	jres := e.Join(JoinOptions{
		Files:    sres.CreatedFiles,
		Output:   "docs/rejoined.md",
		Strategy: JoinManual,
		Order:    sres.CreatedFiles,
	})
	if !jres.Success {
		t.Fatalf("join failed: %v", jres.Errors)
	}

	got := readDoc(t, root, "docs/rejoined.md")
	alpha, beta := strings.Index(got, "## Alpha"), strings.Index(got, "## Beta")
	if alpha < 0 || beta < 0 || beta < alpha {
		t.Errorf("section titles not recovered in order: %q", got)
	}
}

func TestMoveInvalidOptions(t *testing.T) {
	e, _ := newTestEngine(t, nil)
	if res := e.Move(MoveOptions{From: "a.md"}); res.Success {
		t.Error("missing destination should fail validation")
	}
	if res := e.Move(MoveOptions{From: "a.md", To: "a.md"}); res.Success {
		t.Error("identical source and destination should fail")
	}
}

func danglingSymlink(t *testing.T, root, p string) {
	t.Helper()
	abs := filepath.Join(root, filepath.FromSlash(p))
	if err := os.Symlink(filepath.Join(root, "nope"), abs); err != nil {
		t.Skipf("symlink: %v", err)
	}
}

func TestCheckContinuesPastUnreadableFile(t *testing.T) {
	e, root := newTestEngine(t, map[string]string{
		"good.md": "[gone](./missing.md)\n",
	})
	danglingSymlink(t, root, "bad.md")

	res := e.Check(CheckOptions{})
	if res.Success {
		t.Fatal("expected failure for the unreadable entry")
	}
	if len(res.Errors) != 1 || !strings.Contains(res.Errors[0], "bad.md") {
		t.Errorf("errors = %v", res.Errors)
	}
	if len(res.Warnings) != 1 || !strings.Contains(res.Warnings[0], "./missing.md") {
		t.Errorf("readable documents were not validated: warnings = %v", res.Warnings)
	}
}

func TestMoveContinuesPastUnreadableReferrer(t *testing.T) {
	e, root := newTestEngine(t, map[string]string{
		"docs/a.md": "# A\n",
		"docs/c.md": "[A](./a.md)\n",
	})
	danglingSymlink(t, root, "docs/bad.md")

	res := e.Move(MoveOptions{From: "docs/a.md", To: "docs/b.md"})
	if res.Success {
		t.Fatal("expected failure for the unreadable entry")
	}
	if len(res.Errors) != 1 || !strings.Contains(res.Errors[0], "bad.md") {
		t.Errorf("errors = %v", res.Errors)
	}
	if !docExists(root, "docs/b.md") || docExists(root, "docs/a.md") {
		t.Error("move did not complete for the readable files")
	}
	if got := readDoc(t, root, "docs/c.md"); !strings.Contains(got, "(./b.md)") {
		t.Errorf("referrer not rewritten: %q", got)
	}
}

func TestMoveEnvelopeListsMovedFile(t *testing.T) {
	e, _ := newTestEngine(t, map[string]string{"docs/a.md": "# A\n"})
	res := e.Move(MoveOptions{From: "docs/a.md", To: "docs/b.md"})
	if !res.Success {
		t.Fatalf("move failed: %v", res.Errors)
	}
	if len(res.CreatedFiles) != 1 || res.CreatedFiles[0] != "docs/b.md" {
		t.Errorf("created files = %v", res.CreatedFiles)
	}
	if len(res.DeletedFiles) != 1 || res.DeletedFiles[0] != "docs/a.md" {
		t.Errorf("deleted files = %v", res.DeletedFiles)
	}

	// The same lists are reported when the moved file's own links change.
	e, _ = newTestEngine(t, map[string]string{
		"docs/a.md": "[C](./c.md)\n",
		"docs/c.md": "# C\n",
	})
	res = e.Move(MoveOptions{From: "docs/a.md", To: "other/b.md"})
	if !res.Success {
		t.Fatalf("move failed: %v", res.Errors)
	}
	if len(res.CreatedFiles) != 1 || res.CreatedFiles[0] != "other/b.md" {
		t.Errorf("created files = %v", res.CreatedFiles)
	}
	if len(res.DeletedFiles) != 1 || res.DeletedFiles[0] != "docs/a.md" {
		t.Errorf("deleted files = %v", res.DeletedFiles)
	}
}

package pathutil

import "testing"

func TestResolveAbsolute(t *testing.T) {
	cases := []struct {
		href, source, want string
	}{
		{"./a.md", "docs/c.md", "docs/a.md"},
		{"../img/x.png", "docs/sub/c.md", "docs/img/x.png"},
		{"a.md", "docs/c.md", "docs/a.md"},
		{"/abs/a.md", "docs/c.md", "/abs/a.md"},
		{"https://example.com/a", "docs/c.md", "https://example.com/a"},
		{"#section", "docs/c.md", "#section"},
		{"./a.md#frag", "docs/c.md", "docs/a.md"},
	}
	for _, c := range cases {
		if got := ResolveAbsolute(c.href, c.source); got != c.want {
			t.Errorf("ResolveAbsolute(%q, %q) = %q, want %q", c.href, c.source, got, c.want)
		}
	}
}

func TestResolveRelative(t *testing.T) {
	cases := []struct {
		target, source, want string
	}{
		{"docs/a.md", "docs/c.md", "./a.md"},
		{"docs/a.md", "docs/sub/c.md", "../a.md"},
		{"docs/sub/a.md", "docs/c.md", "./sub/a.md"},
	}
	for _, c := range cases {
		if got := ResolveRelative(c.target, c.source); got != c.want {
			t.Errorf("ResolveRelative(%q, %q) = %q, want %q", c.target, c.source, got, c.want)
		}
	}
}

func TestUpdateForSourceMove(t *testing.T) {
	// A link from docs/a.md to ./b.md must still reach docs/b.md after
	// the source moves into a subdirectory.
	got := UpdateForSourceMove("./b.md", "docs/a.md", "docs/sub/a.md")
	if got != "../b.md" {
		t.Errorf("got %q, want %q", got, "../b.md")
	}
}

func TestUpdateForSourceMove_Fragment(t *testing.T) {
	got := UpdateForSourceMove("./b.md#usage", "docs/a.md", "other/a.md")
	if got != "../docs/b.md#usage" {
		t.Errorf("got %q, want %q", got, "../docs/b.md#usage")
	}
}

func TestUpdateForSourceMove_Passthrough(t *testing.T) {
	for _, href := range []string{"https://x.test/a", "mailto:a@b.c", "#anchor", "/abs/a.md"} {
		if got := UpdateForSourceMove(href, "docs/a.md", "docs/b/a.md"); got != href {
			t.Errorf("href %q changed to %q", href, got)
		}
	}
}

func TestUpdateForTargetMove(t *testing.T) {
	got := UpdateForTargetMove("./a.md", "docs/c.md", "docs/a.md", "docs/b.md")
	if got != "./b.md" {
		t.Errorf("got %q, want %q", got, "./b.md")
	}
}

func TestUpdateForTargetMove_PreservesFragment(t *testing.T) {
	got := UpdateForTargetMove("./a.md#sec", "docs/c.md", "docs/a.md", "docs/sub/b.md")
	if got != "./sub/b.md#sec" {
		t.Errorf("got %q, want %q", got, "./sub/b.md#sec")
	}
}

func TestUpdateForTargetMove_NonMatching(t *testing.T) {
	got := UpdateForTargetMove("./other.md", "docs/c.md", "docs/a.md", "docs/b.md")
	if got != "./other.md" {
		t.Errorf("non-matching href rewritten: %q", got)
	}
}

func TestIsExternal(t *testing.T) {
	cases := map[string]bool{
		"https://x.test":  true,
		"http://x.test":   true,
		"mailto:a@b.c":    true,
		"//cdn.x.test/a":  true,
		"./a.md":          false,
		"a.md":            false,
		"../a.md":         false,
		"dir/sub:file.md": false,
	}
	for href, want := range cases {
		if got := IsExternal(href); got != want {
			t.Errorf("IsExternal(%q) = %v, want %v", href, got, want)
		}
	}
}

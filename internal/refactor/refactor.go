// Package refactor rewrites link hrefs across a document when a file moves.
//
// The implementation substitutes text in place using patterns anchored on the
// escaped original href. This is a documented best-effort strategy: it is
// exact for links the parser located correctly, and tolerant of small
// position drift for import tokens. The Rewriter interface exists so a full
// syntax-tree rewrite can replace it without changing any caller.
package refactor

import (
	"regexp"
	"sort"
	"strings"

	"github.com/starford/raido/internal/models"
	"github.com/starford/raido/internal/parser"
	"github.com/starford/raido/internal/pathutil"
)

// Rewriter computes updated document content for a file move. Implementations
// never write files; persistence belongs to the transaction layer.
type Rewriter interface {
	// ForTargetMove rewrites every link in doc whose resolved path equals
	// movedFrom so it points at movedTo, preserving link text, titles, and
	// quoting. Returns the updated content and an ordered change list.
	ForTargetMove(doc *parser.Document, content, movedFrom, movedTo string) (string, []models.Change)

	// ForSourceMove rewrites every outgoing relative link, image, embed, and
	// import in doc so it still resolves after the document itself moves to
	// newPath.
	ForSourceMove(doc *parser.Document, content, newPath string) (string, []models.Change)
}

// PatternRewriter is the pattern-substitution Rewriter.
type PatternRewriter struct{}

// New returns a PatternRewriter.
func New() *PatternRewriter {
	return &PatternRewriter{}
}

type editKind int

const (
	editHref editKind = iota
	editImport
)

// edit is one pending in-line substitution, positioned in the original
// content.
type edit struct {
	line int
	col  int
	old  string
	new  string
	kind editKind
}

// ForTargetMove implements Rewriter.
func (r *PatternRewriter) ForTargetMove(doc *parser.Document, content, movedFrom, movedTo string) (string, []models.Change) {
	from := pathutil.Normalize(movedFrom)
	to := pathutil.Normalize(movedTo)

	var edits []edit
	for _, l := range doc.Links {
		if l.Type == parser.LinkExternal || l.Type == parser.LinkAnchor || l.Type == parser.LinkReference {
			continue
		}
		if pathutil.Normalize(l.ResolvedPath) != from {
			continue
		}
		if next := pathutil.UpdateForTargetMove(l.Href, doc.FilePath, from, to); next != l.Href {
			edits = append(edits, edit{l.Line, l.Column, l.Href, next, editHref})
		}
	}
	for _, e := range doc.Embeds {
		if pathutil.Normalize(e.ResolvedPath) != from {
			continue
		}
		if next := pathutil.UpdateForTargetMove(e.Href, doc.FilePath, from, to); next != e.Href {
			edits = append(edits, edit{e.Line, e.Column, e.Href, next, editHref})
		}
	}
	for _, d := range doc.References {
		if pathutil.IsExternal(d.URL) || pathutil.IsAnchor(d.URL) {
			continue
		}
		if pathutil.ResolveAbsolute(d.URL, doc.FilePath) != from {
			continue
		}
		if next := pathutil.UpdateForTargetMove(d.URL, doc.FilePath, from, to); next != d.URL {
			edits = append(edits, edit{d.Line, 1, d.URL, next, editHref})
		}
	}
	for _, imp := range doc.Imports {
		if pathutil.Normalize(imp.ResolvedPath) != from {
			continue
		}
		if next := pathutil.UpdateForTargetMove(imp.Href, doc.FilePath, from, to); next != imp.Href {
			edits = append(edits, edit{imp.Line, imp.Column, imp.Href, next, editImport})
		}
	}
	return apply(doc.FilePath, content, edits)
}

// ForSourceMove implements Rewriter.
func (r *PatternRewriter) ForSourceMove(doc *parser.Document, content, newPath string) (string, []models.Change) {
	var edits []edit
	relative := func(href string) bool {
		return !pathutil.IsExternal(href) && !pathutil.IsAnchor(href) && !strings.HasPrefix(href, "/")
	}
	for _, l := range doc.Links {
		if l.Type == parser.LinkExternal || l.Type == parser.LinkAnchor || l.Type == parser.LinkReference {
			continue
		}
		if !relative(l.Href) {
			continue
		}
		if next := pathutil.UpdateForSourceMove(l.Href, doc.FilePath, newPath); next != l.Href {
			edits = append(edits, edit{l.Line, l.Column, l.Href, next, editHref})
		}
	}
	for _, e := range doc.Embeds {
		if !relative(e.Href) {
			continue
		}
		if next := pathutil.UpdateForSourceMove(e.Href, doc.FilePath, newPath); next != e.Href {
			edits = append(edits, edit{e.Line, e.Column, e.Href, next, editHref})
		}
	}
	for _, d := range doc.References {
		if !relative(d.URL) {
			continue
		}
		if next := pathutil.UpdateForSourceMove(d.URL, doc.FilePath, newPath); next != d.URL {
			edits = append(edits, edit{d.Line, 1, d.URL, next, editHref})
		}
	}
	for _, imp := range doc.Imports {
		if !relative(imp.Href) {
			continue
		}
		if next := pathutil.UpdateForSourceMove(imp.Href, doc.FilePath, newPath); next != imp.Href {
			edits = append(edits, edit{imp.Line, imp.Column, imp.Href, next, editImport})
		}
	}
	return apply(doc.FilePath, content, edits)
}

// apply performs the pending edits against content. Edits run in (line desc,
// column desc) order so an earlier substitution never shifts the offsets of
// edits still pending on the same line.
func apply(filePath, content string, edits []edit) (string, []models.Change) {
	if len(edits) == 0 {
		return content, nil
	}
	sort.SliceStable(edits, func(i, j int) bool {
		if edits[i].line != edits[j].line {
			return edits[i].line > edits[j].line
		}
		return edits[i].col > edits[j].col
	})

	lines := strings.Split(content, "\n")
	var changes []models.Change
	for _, e := range edits {
		var ok bool
		switch e.kind {
		case editImport:
			ok = applyImport(lines, e)
		default:
			ok = applyHref(lines, e)
		}
		if ok {
			changes = append(changes, models.Change{
				Type:     models.ChangeLinkUpdated,
				FilePath: filePath,
				OldValue: e.old,
				NewValue: e.new,
				Line:     e.line,
			})
		}
	}
	return strings.Join(lines, "\n"), changes
}

// hrefPattern matches the escaped original href followed by a delimiter (or
// end of line), so a textually similar but longer path is never touched.
func hrefPattern(old string) *regexp.Regexp {
	return regexp.MustCompile(regexp.QuoteMeta(old) + `([)\s"'>|\]]|$)`)
}

// applyHref substitutes the first occurrence of the href at or after the
// edit's column on its line.
func applyHref(lines []string, e edit) bool {
	if e.line < 1 || e.line > len(lines) {
		return false
	}
	idx := e.line - 1
	start := e.col - 1
	if start < 0 || start > len(lines[idx]) {
		start = 0
	}
	seg := lines[idx][start:]
	loc := hrefPattern(e.old).FindStringSubmatchIndex(seg)
	if loc == nil && start > 0 {
		// Column drift: fall back to the whole line.
		start = 0
		seg = lines[idx]
		loc = hrefPattern(e.old).FindStringSubmatchIndex(seg)
	}
	if loc == nil {
		return false
	}
	tail := seg[loc[2]:loc[3]] // preserved delimiter
	lines[idx] = lines[idx][:start+loc[0]] + e.new + tail + seg[loc[1]:]
	return true
}

// applyImport substitutes a literal "@href" token. The parser can mislocate
// import lines, so the recorded line is tried first and then up to two lines
// in either direction. Best-effort: a token not found within that window is
// left unchanged.
func applyImport(lines []string, e edit) bool {
	token := "@" + e.old
	replacement := "@" + e.new
	for _, off := range []int{0, -1, 1, -2, 2} {
		idx := e.line - 1 + off
		if idx < 0 || idx >= len(lines) {
			continue
		}
		loc := hrefPattern(token).FindStringSubmatchIndex(lines[idx])
		if loc == nil {
			continue
		}
		tail := lines[idx][loc[2]:loc[3]]
		lines[idx] = lines[idx][:loc[0]] + replacement + tail + lines[idx][loc[1]:]
		return true
	}
	return false
}

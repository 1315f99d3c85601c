// Package parser extracts typed links, headings, reference definitions, and
// frontmatter from Markdown content, with source positions for every record.
package parser

import (
	"fmt"
	"os"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/starford/raido/internal/pathutil"
)

// LinkType classifies a parsed link.
type LinkType string

const (
	LinkInternal  LinkType = "internal"
	LinkExternal  LinkType = "external"
	LinkAnchor    LinkType = "anchor"
	LinkImage     LinkType = "image"
	LinkReference LinkType = "reference"
	LinkImport    LinkType = "import"
	LinkEmbed     LinkType = "embed"
)

var (
	inlineLinkRe = regexp.MustCompile(`(!)?\[([^\]]*)\]\(\s*(<[^>]*>|[^)\s]+)(?:\s+("[^"]*"|'[^']*'))?\s*\)`)
	refLinkRe    = regexp.MustCompile(`\[([^\]]+)\]\[([^\]]*)\]`)
	refDefRe     = regexp.MustCompile(`^\s{0,3}\[([^\]]+)\]:\s*(\S+)(?:\s+"([^"]*)")?\s*$`)
	headerRe     = regexp.MustCompile(`^(#{1,6})(?:\s+(.*?))?\s*$`)
	importRe     = regexp.MustCompile(`(^|\s)@([~./A-Za-z0-9_][^\s]*)`)
	embedRe      = regexp.MustCompile(`!\[\[([^\]|]*)(?:\|[^\]]*)?\]\]`)
)

// Link is a single link occurrence. Line and Column are 1-based and index
// into the original bytes the document was parsed from; a Link is never
// updated after parsing.
type Link struct {
	Type         LinkType
	Href         string
	Text         string
	Title        string
	ResolvedPath string
	Line         int
	Column       int
	Absolute     bool
}

// ReferenceDef is the out-of-line target of a reference-style link.
type ReferenceDef struct {
	ID    string
	URL   string
	Title string
	Line  int
}

// Header is a Markdown heading.
type Header struct {
	Level int
	Text  string
	Line  int
}

// Document is the parsed form of one Markdown file. It is rebuilt from the
// file's current bytes at the start of every refactor pass and never mutated
// in place.
type Document struct {
	FilePath    string
	Links       []Link
	References  []ReferenceDef
	Headers     []Header
	Frontmatter map[string]interface{}
	Imports     []Link
	Embeds      []Link
}

// ParseFile reads and parses a Markdown file. A read failure is returned as
// a wrapped error carrying the path.
func ParseFile(path string) (*Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("parser: read %s: %w", path, err)
	}
	return Parse(path, data), nil
}

// Parse builds a Document from raw Markdown bytes. Parsing is stateless and
// idempotent: identical bytes yield structurally equal documents. Malformed
// link syntax is skipped, never reported as an error.
func Parse(filePath string, data []byte) *Document {
	doc := &Document{FilePath: pathutil.Normalize(filePath)}

	lines := strings.Split(string(data), "\n")
	fmEnd := frontmatterEnd(lines)
	if fmEnd > 0 {
		doc.Frontmatter = parseFrontmatter(lines[1:fmEnd])
	}

	inFence := false
	for i := fmEnd + 1; i < len(lines); i++ {
		line := lines[i]
		lineNum := i + 1

		if strings.HasPrefix(strings.TrimSpace(line), "```") {
			inFence = !inFence
			continue
		}
		if inFence {
			continue
		}

		if m := headerRe.FindStringSubmatch(line); m != nil {
			doc.Headers = append(doc.Headers, Header{
				Level: len(m[1]),
				Text:  strings.TrimSpace(m[2]),
				Line:  lineNum,
			})
			// fall through: heading text may itself contain links
		}
		if m := refDefRe.FindStringSubmatch(line); m != nil {
			doc.References = append(doc.References, ReferenceDef{
				ID:    m[1],
				URL:   m[2],
				Title: m[3],
				Line:  lineNum,
			})
			continue
		}

		scan := maskInlineCode(line)
		doc.Embeds = append(doc.Embeds, parseEmbeds(doc.FilePath, scan, lineNum)...)
		// Embeds share the "![[" opener with images; blank them before the
		// inline pass so the two patterns never overlap.
		scan = embedRe.ReplaceAllStringFunc(scan, maskSameLength)
		inline := parseInlineLinks(doc.FilePath, scan, lineNum)
		doc.Links = append(doc.Links, inline...)
		scan = maskSpans(scan, inlineSpans(scan))
		doc.Links = append(doc.Links, parseReferenceLinks(scan, lineNum)...)
		doc.Imports = append(doc.Imports, parseImports(doc.FilePath, scan, lineNum)...)
	}
	return doc
}

// frontmatterEnd returns the line index of the closing "---" of a leading
// frontmatter block, or -1 when the document has none.
func frontmatterEnd(lines []string) int {
	if len(lines) == 0 || strings.TrimSpace(lines[0]) != "---" {
		return -1
	}
	for i := 1; i < len(lines); i++ {
		if strings.TrimSpace(lines[i]) == "---" {
			return i
		}
	}
	return -1
}

// parseFrontmatter decodes the YAML between the frontmatter delimiters.
// Invalid YAML yields nil rather than an error.
func parseFrontmatter(lines []string) map[string]interface{} {
	var fm map[string]interface{}
	if err := yaml.Unmarshal([]byte(strings.Join(lines, "\n")), &fm); err != nil {
		return nil
	}
	return fm
}

// maskInlineCode blanks backtick code spans so their contents never match
// link patterns, while preserving byte offsets for column positions.
func maskInlineCode(line string) string {
	b := []byte(line)
	inCode := false
	for i := range b {
		if b[i] == '`' {
			inCode = !inCode
			b[i] = ' '
			continue
		}
		if inCode {
			b[i] = ' '
		}
	}
	return string(b)
}

func maskSameLength(s string) string {
	return strings.Repeat(" ", len(s))
}

func inlineSpans(line string) [][]int {
	var spans [][]int
	for _, m := range inlineLinkRe.FindAllStringIndex(line, -1) {
		spans = append(spans, m)
	}
	return spans
}

func maskSpans(line string, spans [][]int) string {
	b := []byte(line)
	for _, s := range spans {
		for i := s[0]; i < s[1]; i++ {
			b[i] = ' '
		}
	}
	return string(b)
}

func classify(href string) LinkType {
	switch {
	case pathutil.IsExternal(href):
		return LinkExternal
	case pathutil.IsAnchor(href):
		return LinkAnchor
	default:
		return LinkInternal
	}
}

func stripHrefBrackets(href string) string {
	if strings.HasPrefix(href, "<") && strings.HasSuffix(href, ">") {
		return href[1 : len(href)-1]
	}
	return href
}

func parseInlineLinks(filePath, line string, lineNum int) []Link {
	var out []Link
	for _, m := range inlineLinkRe.FindAllStringSubmatchIndex(line, -1) {
		bang := m[2] >= 0
		text := line[m[4]:m[5]]
		href := stripHrefBrackets(line[m[6]:m[7]])
		title := ""
		if m[8] >= 0 {
			title = strings.Trim(line[m[8]:m[9]], `"'`)
		}
		if href == "" {
			continue
		}
		lt := classify(href)
		if bang {
			lt = LinkImage
		}
		l := Link{
			Type:     lt,
			Href:     href,
			Text:     text,
			Title:    title,
			Line:     lineNum,
			Column:   m[0] + 1,
			Absolute: strings.HasPrefix(href, "/"),
		}
		if !pathutil.IsExternal(href) && !pathutil.IsAnchor(href) {
			l.ResolvedPath = pathutil.ResolveAbsolute(href, filePath)
		}
		out = append(out, l)
	}
	return out
}

func parseReferenceLinks(line string, lineNum int) []Link {
	var out []Link
	for _, m := range refLinkRe.FindAllStringSubmatchIndex(line, -1) {
		text := line[m[2]:m[3]]
		id := line[m[4]:m[5]]
		if id == "" {
			id = text // collapsed form [text][]
		}
		out = append(out, Link{
			Type:   LinkReference,
			Href:   id,
			Text:   text,
			Line:   lineNum,
			Column: m[0] + 1,
		})
	}
	return out
}

func parseImports(filePath, line string, lineNum int) []Link {
	var out []Link
	for _, m := range importRe.FindAllStringSubmatchIndex(line, -1) {
		href := strings.TrimRight(line[m[4]:m[5]], ".,;:)")
		if href == "" || strings.Contains(href, "@") {
			continue // looks like an email local part, not an import
		}
		out = append(out, Link{
			Type:         LinkImport,
			Href:         href,
			ResolvedPath: pathutil.ResolveAbsolute(href, filePath),
			Line:         lineNum,
			Column:       m[4], // the "@" itself
			Absolute:     strings.HasPrefix(href, "/"),
		})
	}
	return out
}

func parseEmbeds(filePath, line string, lineNum int) []Link {
	var out []Link
	for _, m := range embedRe.FindAllStringSubmatchIndex(line, -1) {
		href := strings.TrimSpace(line[m[2]:m[3]])
		if href == "" {
			continue
		}
		out = append(out, Link{
			Type:         LinkEmbed,
			Href:         href,
			ResolvedPath: pathutil.ResolveAbsolute(href, filePath),
			Line:         lineNum,
			Column:       m[0] + 1,
		})
	}
	return out
}

// Title returns the document title: frontmatter "title" if present, else the
// first level-1 heading, else the empty string.
func (d *Document) Title() string {
	if d.Frontmatter != nil {
		if t, ok := d.Frontmatter["title"].(string); ok && t != "" {
			return t
		}
	}
	for _, h := range d.Headers {
		if h.Level == 1 {
			return h.Text
		}
	}
	return ""
}

// ResolveReference returns the definition for a reference-style link's ID,
// matched case-insensitively per CommonMark.
func (d *Document) ResolveReference(id string) (ReferenceDef, bool) {
	for _, r := range d.References {
		if strings.EqualFold(r.ID, id) {
			return r, true
		}
	}
	return ReferenceDef{}, false
}

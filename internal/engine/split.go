package engine

import (
	"fmt"
	"path"
	"strings"

	"github.com/starford/raido/internal/models"
	"github.com/starford/raido/internal/parser"
	"github.com/starford/raido/internal/pathutil"
	"github.com/starford/raido/internal/split"
)

// Split partitions one document into section files. Section links are
// rewritten so they still resolve from the output directory. The source
// document is left in place unless DeleteSource is set.
func (e *Engine) Split(opts SplitOptions) *models.OperationResult {
	res := models.NewOperationResult()
	if err := opts.Validate(); err != nil {
		res.AddError(fmt.Sprintf("split: invalid options: %v", err))
		return res
	}

	file := pathutil.Normalize(pathutil.ToPortable(opts.File))
	if !e.store.Exists(file) {
		res.AddError(fmt.Sprintf("split: source not found: %s", file))
		return res
	}
	outDir := path.Dir(file)
	if opts.OutputDir != "" {
		outDir = pathutil.Normalize(pathutil.ToPortable(opts.OutputDir))
	}
	e.emit(EventOperationStart, file, "split into "+outDir)

	raw, err := e.store.Read(file)
	if err != nil {
		res.AddError(fmt.Sprintf("split: read %s: %v", file, err))
		return res
	}

	strategy := buildSplitStrategy(opts)
	sr := strategy.Split(string(raw), path.Base(file))
	for _, w := range sr.Warnings {
		res.AddWarning(w)
	}
	for _, msg := range sr.Errors {
		res.AddError("split: " + msg)
	}
	if len(sr.Sections) == 0 {
		return res
	}

	frontmatter, _ := split.ExtractFrontmatter(string(raw))
	if opts.DeleteSource && strings.TrimSpace(strings.TrimPrefix(sr.Remaining, frontmatter)) != "" {
		res.AddWarning(fmt.Sprintf("split: %s: content outside any section is discarded with the source", file))
	}

	type pendingCreate struct {
		path    string
		content string
	}
	var creates []pendingCreate
	used := map[string]bool{}
	for _, sec := range sr.Sections {
		target := path.Join(outDir, sec.Filename)
		target = uniquePath(target, used, e.store.Exists)
		used[target] = true

		content := sec.Content
		if opts.KeepFrontmatter && frontmatter != "" {
			content = frontmatter + "\n" + content
		}
		// Relative links were written against the source's directory; rewrite
		// them for where the section lands.
		doc := parser.Parse(file, []byte(content))
		content, chs := e.rewriter.ForSourceMove(doc, content, target)
		for _, ch := range chs {
			ch.FilePath = target
			res.Changes = append(res.Changes, ch)
		}

		creates = append(creates, pendingCreate{path: target, content: content})
		res.CreatedFiles = append(res.CreatedFiles, target)
		res.Changes = append(res.Changes, models.Change{
			Type:     models.ChangeFileCreated,
			FilePath: target,
			NewValue: sec.Title,
		})
		e.emit(EventFileQueued, target, "section "+sec.Title)
	}

	if opts.DeleteSource {
		res.DeletedFiles = append(res.DeletedFiles, file)
		res.Changes = append(res.Changes, models.Change{
			Type:     models.ChangeFileDeleted,
			FilePath: file,
		})
	}

	if opts.DryRun {
		e.emit(EventOperationDone, file, "dry run, no files written")
		return res
	}

	m := e.newTxn(opts.Backup, false)
	for _, c := range creates {
		if err := m.Create(c.path, []byte(c.content)); err != nil {
			res.AddError(fmt.Sprintf("split: queue create %s: %v", c.path, err))
			return res
		}
	}
	if opts.DeleteSource {
		if err := m.Delete(file); err != nil {
			res.AddError(fmt.Sprintf("split: queue delete %s: %v", file, err))
			return res
		}
	}

	e.runTxn(m, res)
	e.emit(EventOperationDone, file, "split finished")
	return res
}

func buildSplitStrategy(opts SplitOptions) split.Strategy {
	switch opts.Strategy {
	case SplitBySize:
		return &split.SizeStrategy{MaxBytes: opts.MaxBytes, PreserveFrontmatter: true}
	case SplitByMarker:
		return &split.MarkerStrategy{Markers: opts.Markers, PreserveFrontmatter: true}
	case SplitByLines:
		return &split.LineStrategy{Lines: opts.Lines, PreserveFrontmatter: true}
	default:
		return &split.HeaderStrategy{Level: opts.Level, PreserveFrontmatter: true}
	}
}

// uniquePath appends -2, -3, ... before the extension until the path neither
// exists on disk nor collides with one picked earlier in the batch.
func uniquePath(p string, used map[string]bool, exists func(string) bool) string {
	if !used[p] && !exists(p) {
		return p
	}
	ext := path.Ext(p)
	stem := strings.TrimSuffix(p, ext)
	for n := 2; ; n++ {
		cand := fmt.Sprintf("%s-%d%s", stem, n, ext)
		if !used[cand] && !exists(cand) {
			return cand
		}
	}
}

package engine

import (
	"fmt"

	"github.com/starford/raido/internal/models"
	"github.com/starford/raido/internal/parser"
	"github.com/starford/raido/internal/pathutil"
)

// Move relocates one document and redirects every link in the vault that
// pointed at it. The moved document's own outgoing links are rewritten first,
// against its new location; referring documents are rewritten afterwards.
// All writes happen in one transaction.
func (e *Engine) Move(opts MoveOptions) *models.OperationResult {
	res := models.NewOperationResult()
	if err := opts.Validate(); err != nil {
		res.AddError(fmt.Sprintf("move: invalid options: %v", err))
		return res
	}

	from := pathutil.Normalize(pathutil.ToPortable(opts.From))
	to := pathutil.Normalize(pathutil.ToPortable(opts.To))
	if from == to {
		res.AddError(fmt.Sprintf("move: source and destination are the same path: %s", from))
		return res
	}
	if !e.store.Exists(from) {
		res.AddError(fmt.Sprintf("move: source not found: %s", from))
		return res
	}
	if e.store.Exists(to) {
		res.AddError(fmt.Sprintf("move: destination already exists: %s", to))
		return res
	}
	e.emit(EventOperationStart, from, "move "+from+" to "+to)

	raw, err := e.store.Read(from)
	if err != nil {
		res.AddError(fmt.Sprintf("move: read %s: %v", from, err))
		return res
	}
	doc := parser.Parse(from, raw)

	// The document's own links first, so they resolve from the new location.
	newContent, ownChanges := e.rewriter.ForSourceMove(doc, string(raw), to)
	for _, ch := range ownChanges {
		ch.FilePath = to
		res.Changes = append(res.Changes, ch)
	}
	e.verifyTargets(parser.Parse(to, []byte(newContent)), opts.Strict, res, from, to)
	if !res.Success {
		return res
	}

	// Then every other document that points at the old location.
	type pendingUpdate struct {
		path    string
		content string
	}
	var updates []pendingUpdate
	docs, err := e.store.List(".")
	if err != nil {
		res.AddError(fmt.Sprintf("move: list vault: %v", err))
		return res
	}
	for _, info := range docs {
		if info.Path == from {
			continue
		}
		if info.Err != "" {
			res.AddError(fmt.Sprintf("move: %s: %s", info.Path, info.Err))
			continue
		}
		b, err := e.store.Read(info.Path)
		if err != nil {
			res.AddError(fmt.Sprintf("move: read %s: %v", info.Path, err))
			continue
		}
		d := parser.Parse(info.Path, b)
		updated, chs := e.rewriter.ForTargetMove(d, string(b), from, to)
		if updated == string(b) {
			continue
		}
		updates = append(updates, pendingUpdate{path: info.Path, content: updated})
		res.ModifiedFiles = append(res.ModifiedFiles, info.Path)
		res.Changes = append(res.Changes, chs...)
		e.emit(EventFileQueued, info.Path, fmt.Sprintf("%d link(s) to rewrite", len(chs)))
	}

	res.CreatedFiles = append(res.CreatedFiles, to)
	res.DeletedFiles = append(res.DeletedFiles, from)
	res.Changes = append(res.Changes, models.Change{
		Type:     models.ChangeFileMoved,
		FilePath: to,
		OldValue: from,
		NewValue: to,
	})

	if opts.DryRun {
		e.emit(EventOperationDone, to, "dry run, no files written")
		return res
	}

	m := e.newTxn(opts.Backup, opts.ContinueOnError)
	if newContent == string(raw) {
		err = m.Move(from, to)
	} else {
		// Content changed with the move, so the rename is expressed as a
		// create of the rewritten bytes plus a delete of the source.
		if err = m.Create(to, []byte(newContent)); err == nil {
			err = m.Delete(from)
		}
	}
	if err != nil {
		res.AddError(fmt.Sprintf("move: queue steps: %v", err))
		return res
	}
	for _, u := range updates {
		if err := m.Update(u.path, []byte(u.content)); err != nil {
			res.AddError(fmt.Sprintf("move: queue update %s: %v", u.path, err))
			return res
		}
	}

	e.runTxn(m, res)
	e.emit(EventOperationDone, to, "move finished")
	return res
}

// verifyTargets checks that every internal target of doc names an existing
// file. Misses are warnings, or errors in strict mode. Paths being created or
// removed by the running operation are passed in ignore.
func (e *Engine) verifyTargets(doc *parser.Document, strict bool, res *models.OperationResult, ignore ...string) {
	skip := make(map[string]bool, len(ignore))
	for _, p := range ignore {
		skip[pathutil.Normalize(p)] = true
	}
	report := func(l parser.Link) {
		target := pathutil.Normalize(l.ResolvedPath)
		if target == "" || skip[target] || e.store.Exists(target) {
			return
		}
		msg := fmt.Sprintf("%s:%d: link target not found: %s", doc.FilePath, l.Line, l.Href)
		if strict {
			res.AddError(msg)
		} else {
			res.AddWarning(msg)
		}
	}
	for _, l := range doc.Links {
		if l.Type == parser.LinkExternal || l.Type == parser.LinkAnchor || l.Type == parser.LinkReference {
			continue
		}
		report(l)
	}
	for _, l := range doc.Imports {
		report(l)
	}
	for _, l := range doc.Embeds {
		report(l)
	}
}

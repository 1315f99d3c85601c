package engine

import (
	"fmt"

	"github.com/starford/raido/internal/join"
	"github.com/starford/raido/internal/models"
	"github.com/starford/raido/internal/parser"
	"github.com/starford/raido/internal/pathutil"
	"github.com/starford/raido/internal/split"
)

// Join combines the input documents into one output document. Sources are
// left in place; Merge is the variant that consumes them.
func (e *Engine) Join(opts JoinOptions) *models.OperationResult {
	res := models.NewOperationResult()
	jr, _ := e.planJoin(opts, res)
	if jr == nil {
		return res
	}
	output := pathutil.Normalize(pathutil.ToPortable(opts.Output))

	if opts.DryRun {
		e.emit(EventOperationDone, output, "dry run, no files written")
		return res
	}

	m := e.newTxn(opts.Backup, false)
	if err := m.Create(output, []byte(jr.Content)); err != nil {
		res.AddError(fmt.Sprintf("join: queue create %s: %v", output, err))
		return res
	}

	e.runTxn(m, res)
	e.emit(EventOperationDone, output, "join finished")
	return res
}

// Merge combines the input documents into one output document, deletes the
// sources, and redirects every link elsewhere in the vault that pointed at a
// source so it points at the output.
func (e *Engine) Merge(opts MergeOptions) *models.OperationResult {
	res := models.NewOperationResult()
	jr, inputs := e.planJoin(opts.JoinOptions, res)
	if jr == nil {
		return res
	}
	output := pathutil.Normalize(pathutil.ToPortable(opts.Output))

	merged := make(map[string]bool, len(inputs))
	for _, p := range inputs {
		merged[p] = true
	}

	// Redirect incoming links. A referrer may point at several sources, so
	// its content accumulates rewrites before a single update is queued.
	type pendingUpdate struct {
		path    string
		content string
	}
	var updates []pendingUpdate
	docs, err := e.store.List(".")
	if err != nil {
		res.AddError(fmt.Sprintf("merge: list vault: %v", err))
		return res
	}
	for _, info := range docs {
		if merged[info.Path] {
			continue
		}
		if info.Err != "" {
			res.AddError(fmt.Sprintf("merge: %s: %s", info.Path, info.Err))
			continue
		}
		b, err := e.store.Read(info.Path)
		if err != nil {
			res.AddError(fmt.Sprintf("merge: read %s: %v", info.Path, err))
			continue
		}
		content := string(b)
		var changes []models.Change
		for _, src := range inputs {
			d := parser.Parse(info.Path, []byte(content))
			next, chs := e.rewriter.ForTargetMove(d, content, src, output)
			content = next
			changes = append(changes, chs...)
		}
		if content == string(b) {
			continue
		}
		updates = append(updates, pendingUpdate{path: info.Path, content: content})
		res.ModifiedFiles = append(res.ModifiedFiles, info.Path)
		res.Changes = append(res.Changes, changes...)
		e.emit(EventFileQueued, info.Path, fmt.Sprintf("%d link(s) to redirect", len(changes)))
	}

	for _, p := range inputs {
		res.DeletedFiles = append(res.DeletedFiles, p)
		res.Changes = append(res.Changes, models.Change{
			Type:     models.ChangeFileDeleted,
			FilePath: p,
		})
	}

	if opts.DryRun {
		e.emit(EventOperationDone, output, "dry run, no files written")
		return res
	}

	m := e.newTxn(opts.Backup, opts.ContinueOnError)
	if err := m.Create(output, []byte(jr.Content)); err != nil {
		res.AddError(fmt.Sprintf("merge: queue create %s: %v", output, err))
		return res
	}
	for _, u := range updates {
		if err := m.Update(u.path, []byte(u.content)); err != nil {
			res.AddError(fmt.Sprintf("merge: queue update %s: %v", u.path, err))
			return res
		}
	}
	for _, p := range inputs {
		if err := m.Delete(p); err != nil {
			res.AddError(fmt.Sprintf("merge: queue delete %s: %v", p, err))
			return res
		}
	}

	e.runTxn(m, res)
	e.emit(EventOperationDone, output, "merge finished")
	return res
}

// planJoin validates options, loads the input sections, and runs the
// ordering strategy. On failure it records errors in res and returns nil.
// On success the combined result is folded into res and returned together
// with the resolved input paths.
func (e *Engine) planJoin(opts JoinOptions, res *models.OperationResult) (*join.Result, []string) {
	if err := opts.Validate(); err != nil {
		res.AddError(fmt.Sprintf("join: invalid options: %v", err))
		return nil, nil
	}

	inputs, err := e.store.Glob(opts.Files...)
	if err != nil {
		res.AddError(fmt.Sprintf("join: expand inputs: %v", err))
		return nil, nil
	}
	if len(inputs) < 2 {
		res.AddError(fmt.Sprintf("join: need at least two input documents, got %d", len(inputs)))
		return nil, nil
	}
	output := pathutil.Normalize(pathutil.ToPortable(opts.Output))
	if e.store.Exists(output) {
		res.AddError(fmt.Sprintf("join: output already exists: %s", output))
		return nil, nil
	}
	for _, p := range inputs {
		if p == output {
			res.AddError(fmt.Sprintf("join: output %s is also an input", output))
			return nil, nil
		}
	}
	e.emit(EventOperationStart, output, fmt.Sprintf("join %d documents", len(inputs)))

	sections := make([]join.Section, 0, len(inputs))
	for i, p := range inputs {
		sec, err := e.loadSection(p, i)
		if err != nil {
			res.AddError(fmt.Sprintf("join: %v", err))
			return nil, nil
		}
		sections = append(sections, sec)
	}

	jr := buildJoinStrategy(opts).Join(sections)
	for _, w := range jr.Warnings {
		res.AddWarning(w)
	}
	for _, c := range jr.Conflicts {
		state := "unresolved"
		if c.AutoResolved {
			state = "auto-resolved"
		}
		res.AddWarning(fmt.Sprintf("conflict (%s, %s): %s", c.Type, state, c.Description))
	}
	for _, url := range jr.DeduplicatedLinks {
		res.AddWarning("deduplicated reference definition: " + url)
	}
	if !jr.Success {
		res.Success = false
		return nil, nil
	}

	res.CreatedFiles = append(res.CreatedFiles, output)
	res.Changes = append(res.Changes, models.Change{
		Type:     models.ChangeFileCreated,
		FilePath: output,
	})
	return jr, inputs
}

// loadSection reads one input document and derives its join metadata.
// Dependencies come from the frontmatter "dependencies" list plus any import
// or embed targets, all resolved to vault-relative paths.
func (e *Engine) loadSection(p string, order int) (join.Section, error) {
	raw, err := e.store.Read(p)
	if err != nil {
		return join.Section{}, fmt.Errorf("read %s: %w", p, err)
	}
	doc := parser.Parse(p, raw)
	_, body := split.ExtractFrontmatter(string(raw))

	var deps []string
	if doc.Frontmatter != nil {
		if list, ok := doc.Frontmatter["dependencies"].([]interface{}); ok {
			for _, v := range list {
				if s, ok := v.(string); ok && s != "" {
					deps = append(deps, pathutil.ResolveAbsolute(s, p))
				}
			}
		}
	}
	for _, l := range doc.Imports {
		if l.ResolvedPath != "" {
			deps = append(deps, l.ResolvedPath)
		}
	}
	for _, l := range doc.Embeds {
		if l.ResolvedPath != "" {
			deps = append(deps, l.ResolvedPath)
		}
	}

	return join.Section{
		FilePath:     p,
		Content:      body,
		Frontmatter:  doc.Frontmatter,
		Title:        doc.Title(),
		Dependencies: deps,
		Order:        order,
	}, nil
}

func buildJoinStrategy(opts JoinOptions) join.Strategy {
	switch opts.Strategy {
	case JoinAlphabetical:
		return &join.AlphabeticalStrategy{Primary: opts.Primary}
	case JoinManual:
		return &join.ManualStrategy{Order: opts.Order, Primary: opts.Primary}
	case JoinChronological:
		return &join.ChronologicalStrategy{Primary: opts.Primary}
	default:
		return &join.DependencyStrategy{Primary: opts.Primary}
	}
}

package engine

import (
	"fmt"
	"sort"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/starford/raido/internal/models"
	"github.com/starford/raido/internal/parser"
)

// checkParallelism bounds concurrent document parses during a check.
const checkParallelism = 8

// Check validates that every internal link, import, and embed in the selected
// documents resolves to an existing file. Nothing is written. Unresolved
// targets are warnings, or errors in strict mode.
func (e *Engine) Check(opts CheckOptions) *models.OperationResult {
	res := models.NewOperationResult()

	var paths []string
	var err error
	if len(opts.Paths) == 0 {
		infos, lerr := e.store.List(".")
		if lerr != nil {
			res.AddError(fmt.Sprintf("check: list vault: %v", lerr))
			return res
		}
		for _, info := range infos {
			if info.Err != "" {
				res.AddError(fmt.Sprintf("check: %s: %s", info.Path, info.Err))
				continue
			}
			paths = append(paths, info.Path)
		}
	} else {
		paths, err = e.store.Glob(opts.Paths...)
		if err != nil {
			res.AddError(fmt.Sprintf("check: expand inputs: %v", err))
			return res
		}
	}
	e.emit(EventOperationStart, "", fmt.Sprintf("check %d documents", len(paths)))

	var mu sync.Mutex
	docs := make([]*parser.Document, 0, len(paths))

	var g errgroup.Group
	g.SetLimit(checkParallelism)
	for _, p := range paths {
		p := p
		g.Go(func() error {
			b, err := e.store.Read(p)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				// Per-file diagnostic; the remaining documents are
				// still validated.
				res.AddError(fmt.Sprintf("check: read %s: %v", p, err))
				return nil
			}
			docs = append(docs, parser.Parse(p, b))
			return nil
		})
	}
	_ = g.Wait() // goroutines record failures on res and never fail the group

	sort.Strings(res.Errors)
	sort.Slice(docs, func(i, j int) bool { return docs[i].FilePath < docs[j].FilePath })
	for _, d := range docs {
		e.verifyTargets(d, opts.Strict, res)
	}

	e.emit(EventOperationDone, "", fmt.Sprintf("check finished, %d warnings, %d errors", len(res.Warnings), len(res.Errors)))
	return res
}

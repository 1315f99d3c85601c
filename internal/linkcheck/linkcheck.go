// Package linkcheck validates external URLs referenced by documents.
//
// URLs are deduplicated across documents and probed concurrently with a
// bounded worker count. Responses behind authentication are reported as a
// distinct status rather than broken: a 401/403, or a redirect landing on a
// login page, usually means the target exists but cannot be verified
// anonymously.
package linkcheck

import (
	"context"
	"fmt"
	"net/http"
	"sort"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/starford/raido/internal/parser"
	"github.com/starford/raido/internal/pathutil"
)

// Status classifies the outcome of probing one URL.
type Status string

const (
	StatusOK     Status = "ok"
	StatusBroken Status = "broken"
	StatusAuth   Status = "auth-required"
)

// Ref is one place a URL appears.
type Ref struct {
	FilePath string `json:"filePath"`
	Line     int    `json:"line"`
}

// Result is the verdict for one unique URL.
type Result struct {
	URL    string `json:"url"`
	Status Status `json:"status"`
	Code   int    `json:"code,omitempty"`
	Detail string `json:"detail,omitempty"`
	Refs   []Ref  `json:"refs"`
}

// Checker probes external URLs.
type Checker struct {
	client      *http.Client
	parallelism int
	timeout     time.Duration
	userAgent   string
}

// Option configures a Checker.
type Option func(*Checker)

// WithClient overrides the HTTP client.
func WithClient(c *http.Client) Option {
	return func(ch *Checker) { ch.client = c }
}

// WithParallelism bounds concurrent probes.
func WithParallelism(n int) Option {
	return func(ch *Checker) { ch.parallelism = n }
}

// WithTimeout sets the per-request timeout.
func WithTimeout(d time.Duration) Option {
	return func(ch *Checker) { ch.timeout = d }
}

// New returns a Checker with sane probe defaults.
func New(opts ...Option) *Checker {
	ch := &Checker{
		client:      &http.Client{},
		parallelism: 8,
		timeout:     10 * time.Second,
		userAgent:   "raido-linkcheck/1.0",
	}
	for _, opt := range opts {
		opt(ch)
	}
	return ch
}

// Check probes every unique external URL referenced by docs and returns one
// Result per URL, ordered by URL. mailto addresses are not probed.
func (c *Checker) Check(ctx context.Context, docs []*parser.Document) []Result {
	refs := collectRefs(docs)

	urls := make([]string, 0, len(refs))
	for u := range refs {
		urls = append(urls, u)
	}
	sort.Strings(urls)

	results := make([]Result, len(urls))
	var mu sync.Mutex

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.parallelism)
	for i, u := range urls {
		i, u := i, u
		g.Go(func() error {
			r := c.probe(gctx, u)
			r.Refs = refs[u]
			mu.Lock()
			results[i] = r
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()
	return results
}

// collectRefs gathers every external URL with the places it appears.
func collectRefs(docs []*parser.Document) map[string][]Ref {
	refs := map[string][]Ref{}
	add := func(url, file string, line int) {
		if strings.HasPrefix(url, "mailto:") || strings.HasPrefix(url, "//") {
			return
		}
		refs[url] = append(refs[url], Ref{FilePath: file, Line: line})
	}
	for _, d := range docs {
		for _, l := range d.Links {
			if l.Type == parser.LinkExternal {
				add(l.Href, d.FilePath, l.Line)
			}
		}
		for _, rd := range d.References {
			if pathutil.IsExternal(rd.URL) {
				add(rd.URL, d.FilePath, rd.Line)
			}
		}
	}
	return refs
}

// probe issues a HEAD request, retrying as GET when the server rejects HEAD.
func (c *Checker) probe(ctx context.Context, url string) Result {
	resp, err := c.do(ctx, http.MethodHead, url)
	if err == nil && (resp.StatusCode == http.StatusMethodNotAllowed || resp.StatusCode == http.StatusNotImplemented) {
		resp.Body.Close()
		resp, err = c.do(ctx, http.MethodGet, url)
	}
	if err != nil {
		return Result{URL: url, Status: StatusBroken, Detail: err.Error()}
	}
	defer resp.Body.Close()
	return classify(url, resp)
}

func (c *Checker) do(ctx context.Context, method, url string) (*http.Response, error) {
	rctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()
	req, err := http.NewRequestWithContext(rctx, method, url, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", c.userAgent)
	return c.client.Do(req)
}

// loginMarkers appear in URLs that sites redirect anonymous visitors to.
var loginMarkers = []string{"login", "signin", "sign-in", "auth", "sso"}

func classify(url string, resp *http.Response) Result {
	code := resp.StatusCode
	switch {
	case code == http.StatusUnauthorized || code == http.StatusForbidden:
		return Result{URL: url, Status: StatusAuth, Code: code}
	case code >= 200 && code < 400:
		// The client follows redirects; landing on a login page means the
		// original target is behind authentication.
		final := strings.ToLower(resp.Request.URL.String())
		if final != strings.ToLower(url) {
			for _, m := range loginMarkers {
				if strings.Contains(final, m) {
					return Result{URL: url, Status: StatusAuth, Code: code,
						Detail: fmt.Sprintf("redirected to %s", resp.Request.URL)}
				}
			}
		}
		return Result{URL: url, Status: StatusOK, Code: code}
	default:
		return Result{URL: url, Status: StatusBroken, Code: code}
	}
}

package linkcheck

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/starford/raido/internal/parser"
)

func testServer(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/ok", func(w http.ResponseWriter, r *http.Request) {})
	mux.HandleFunc("/missing", func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	})
	mux.HandleFunc("/private", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	})
	mux.HandleFunc("/docs", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/login?next=/docs", http.StatusFound)
	})
	mux.HandleFunc("/login", func(w http.ResponseWriter, r *http.Request) {})
	mux.HandleFunc("/headless", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodHead {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func resultFor(t *testing.T, results []Result, url string) Result {
	t.Helper()
	for _, r := range results {
		if r.URL == url {
			return r
		}
	}
	t.Fatalf("no result for %s in %+v", url, results)
	return Result{}
}

func TestCheckClassifiesResponses(t *testing.T) {
	srv := testServer(t)
	content := "[ok](" + srv.URL + "/ok)\n" +
		"[gone](" + srv.URL + "/missing)\n" +
		"[private](" + srv.URL + "/private)\n" +
		"[docs](" + srv.URL + "/docs)\n" +
		"[headless](" + srv.URL + "/headless)\n"
	doc := parser.Parse("a.md", []byte(content))

	c := New(WithTimeout(5 * time.Second))
	results := c.Check(context.Background(), []*parser.Document{doc})
	if len(results) != 5 {
		t.Fatalf("expected 5 results, got %d", len(results))
	}

	if r := resultFor(t, results, srv.URL+"/ok"); r.Status != StatusOK {
		t.Errorf("/ok: %+v", r)
	}
	if r := resultFor(t, results, srv.URL+"/missing"); r.Status != StatusBroken || r.Code != http.StatusNotFound {
		t.Errorf("/missing: %+v", r)
	}
	if r := resultFor(t, results, srv.URL+"/private"); r.Status != StatusAuth {
		t.Errorf("/private: %+v", r)
	}
	if r := resultFor(t, results, srv.URL+"/docs"); r.Status != StatusAuth {
		t.Errorf("redirect to login should report auth-required: %+v", r)
	}
	if r := resultFor(t, results, srv.URL+"/headless"); r.Status != StatusOK {
		t.Errorf("HEAD 405 should fall back to GET: %+v", r)
	}
}

func TestCheckDeduplicatesURLs(t *testing.T) {
	srv := testServer(t)
	url := srv.URL + "/ok"
	docs := []*parser.Document{
		parser.Parse("a.md", []byte("[x]("+url+")\n")),
		parser.Parse("b.md", []byte("line\n\n[y]("+url+")\n")),
	}

	results := New().Check(context.Background(), docs)
	if len(results) != 1 {
		t.Fatalf("expected one deduplicated result, got %d", len(results))
	}
	if len(results[0].Refs) != 2 {
		t.Errorf("refs = %+v", results[0].Refs)
	}
}

func TestCheckUnreachableHost(t *testing.T) {
	doc := parser.Parse("a.md", []byte("[dead](http://127.0.0.1:1/x)\n"))
	results := New(WithTimeout(2*time.Second)).Check(context.Background(), []*parser.Document{doc})
	if len(results) != 1 {
		t.Fatalf("results = %+v", results)
	}
	if results[0].Status != StatusBroken || results[0].Detail == "" {
		t.Errorf("unreachable host should be broken with detail: %+v", results[0])
	}
}

func TestCheckSkipsMailto(t *testing.T) {
	doc := parser.Parse("a.md", []byte("[mail](mailto:x@example.com)\n"))
	results := New().Check(context.Background(), []*parser.Document{doc})
	if len(results) != 0 {
		t.Errorf("mailto should not be probed: %+v", results)
	}
}

package docload

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
)

// docsServer serves a small documentation site and records which paths
// were requested.
type docsServer struct {
	*httptest.Server
	mu   sync.Mutex
	hits map[string]int
}

func newDocsServer(t *testing.T) *docsServer {
	t.Helper()
	ds := &docsServer{hits: map[string]int{}}

	mux := http.NewServeMux()
	page := func(path, body string) {
		mux.HandleFunc(path, func(w http.ResponseWriter, r *http.Request) {
			ds.mu.Lock()
			ds.hits[path]++
			ds.mu.Unlock()
			w.Header().Set("Content-Type", "text/html")
			_, _ = w.Write([]byte(body))
		})
	}

	page("/", `<html><head><title>API Docs</title></head><body>
<h1>Getting started</h1>
<p>This guide covers authentication, pagination and error handling for the API.</p>
<a href="/auth">Authentication</a>
<a href="/guide.pdf">PDF version</a>
<a href="mailto:support@example.com">Contact</a>
<a href="#section">Jump</a>
</body></html>`)

	page("/auth", `<html><head><title>Auth</title></head><body>
<h1>Authentication</h1>
<p>Requests are authenticated with a bearer token passed in the Authorization header.</p>
<a href="/deep">Deeper page</a>
</body></html>`)

	page("/deep", `<html><body>
<h1>Deep page</h1>
<p>This page sits two link hops away from the root of the documentation site.</p>
</body></html>`)

	ds.Server = httptest.NewServer(mux)
	t.Cleanup(ds.Close)
	return ds
}

func (ds *docsServer) hitCount(path string) int {
	ds.mu.Lock()
	defer ds.mu.Unlock()
	return ds.hits[path]
}

func TestLoadURLCrawlsSameOrigin(t *testing.T) {
	ds := newDocsServer(t)
	loader := testLoader(t)

	chunks, err := loader.LoadURL(context.Background(), ds.URL+"/", 1)
	if err != nil {
		t.Fatalf("LoadURL: %v", err)
	}

	if ds.hitCount("/") != 1 || ds.hitCount("/auth") != 1 {
		t.Errorf("hits: / = %d, /auth = %d, want 1 each", ds.hitCount("/"), ds.hitCount("/auth"))
	}
	// maxDepth 1 means one hop from the seed; /deep is two hops.
	if ds.hitCount("/deep") != 0 {
		t.Errorf("/deep fetched despite depth bound")
	}

	var sawAuth bool
	for _, c := range chunks {
		if strings.Contains(c.Content, "bearer token") {
			sawAuth = true
		}
	}
	if !sawAuth {
		t.Errorf("no chunk from the crawled /auth page; got %d chunks", len(chunks))
	}
}

func TestLoadURLSkipsNonContentLinks(t *testing.T) {
	ds := newDocsServer(t)
	loader := testLoader(t)

	if _, err := loader.LoadURL(context.Background(), ds.URL+"/", 2); err != nil {
		t.Fatalf("LoadURL: %v", err)
	}
	if ds.hitCount("/guide.pdf") != 0 {
		t.Errorf("pdf link was followed")
	}
}

func TestLoadURLDepthZeroFetchesOnlySeed(t *testing.T) {
	ds := newDocsServer(t)
	loader := testLoader(t)

	if _, err := loader.LoadURL(context.Background(), ds.URL+"/", 0); err != nil {
		t.Fatalf("LoadURL: %v", err)
	}
	if ds.hitCount("/auth") != 0 {
		t.Errorf("link followed with maxDepth 0")
	}
}

func TestLoadURLUnreachable(t *testing.T) {
	ds := newDocsServer(t)
	seed := ds.URL + "/"
	ds.Close()

	_, err := testLoader(t).LoadURL(context.Background(), seed, 1)
	var fetchErr *FetchError
	if !errors.As(err, &fetchErr) {
		t.Fatalf("err = %v, want *FetchError", err)
	}
	if fetchErr.URL != seed {
		t.Errorf("FetchError.URL = %q, want %q", fetchErr.URL, seed)
	}
}

func TestLoadURLRejectsUnsafeTargets(t *testing.T) {
	loader := testLoader(t)

	tests := []string{
		"ftp://example.com/docs",
		"http://metadata.google.internal/computeMetadata",
		"http://169.254.169.254/latest/meta-data",
	}
	for _, target := range tests {
		t.Run(target, func(t *testing.T) {
			_, err := loader.LoadURL(context.Background(), target, 1)
			if !errors.Is(err, ErrUnsafeURL) {
				t.Errorf("err = %v, want ErrUnsafeURL", err)
			}
		})
	}
}

func TestLoadURLCancelledContext(t *testing.T) {
	ds := newDocsServer(t)
	loader := testLoader(t)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	chunks, err := loader.LoadURL(ctx, ds.URL+"/", 1)
	if len(chunks) != 0 {
		t.Errorf("cancelled crawl produced %d chunks", len(chunks))
	}
	if !errors.Is(err, context.Canceled) {
		t.Errorf("err = %v, want context.Canceled", err)
	}
}

// A crawl cancelled after pages have been fetched keeps those pages'
// chunks and reports the cancellation.
func TestLoadURLMidCrawlCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	var mu sync.Mutex
	hits := map[string]int{}
	mux := http.NewServeMux()
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		hits["/"]++
		mu.Unlock()
		w.Header().Set("Content-Type", "text/html")
		_, _ = w.Write([]byte(`<html><head><title>Docs</title></head><body>
<h1>Overview</h1>
<p>This page describes the API surface in enough detail to produce a chunk.</p>
<a href="/auth">Authentication</a>
</body></html>`))
		cancel()
	})
	mux.HandleFunc("/auth", func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		hits["/auth"]++
		mu.Unlock()
		_, _ = w.Write([]byte(`<body><h1>Auth</h1><p>Never reached by a cancelled crawl, or so this test asserts.</p></body>`))
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	chunks, err := testLoader(t).LoadURL(ctx, srv.URL+"/", 1)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
	if len(chunks) == 0 {
		t.Fatal("partial chunks discarded on cancellation")
	}

	mu.Lock()
	defer mu.Unlock()
	if hits["/"] != 1 {
		t.Errorf("seed fetched %d times", hits["/"])
	}
	if hits["/auth"] != 0 {
		t.Errorf("link followed after cancellation")
	}
}

func TestLoadDispatch(t *testing.T) {
	ds := newDocsServer(t)
	loader := testLoader(t)

	if _, err := loader.Load(context.Background(), ds.URL+"/", 0); err != nil {
		t.Errorf("Load(url): %v", err)
	}

	path := writeFile(t, "doc.yaml", "settings:\n  mode: production\n  region: eu-west-1\n  tier: standard\n")
	if _, err := loader.Load(context.Background(), path, 0); err != nil {
		t.Errorf("Load(file): %v", err)
	}
}

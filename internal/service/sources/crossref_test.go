package sources

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestCrossrefClient_LookupDOI(t *testing.T) {
	tests := []struct {
		name         string
		status       int
		body         string
		wantNil      bool
		wantErr      bool
		wantTitle    string
		wantAbstract string
	}{
		{
			name:         "found",
			status:       http.StatusOK,
			body:         `{"message": {"title": ["Mitochondrial biogenesis"], "abstract": "<jats:p>Cells  make\n <jats:italic>energy</jats:italic> &amp; heat.</jats:p>"}}`,
			wantTitle:    "Mitochondrial biogenesis",
			wantAbstract: "Cells make energy & heat.",
		},
		{
			name:      "no abstract",
			status:    http.StatusOK,
			body:      `{"message": {"title": ["Only a title"]}}`,
			wantTitle: "Only a title",
		},
		{
			name:    "not found",
			status:  http.StatusNotFound,
			body:    `Resource not found.`,
			wantNil: true,
		},
		{
			name:    "server error",
			status:  http.StatusInternalServerError,
			body:    `oops`,
			wantErr: true,
		},
		{
			name:    "invalid json",
			status:  http.StatusOK,
			body:    `{"message":`,
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var gotPath, gotMailto string
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				gotPath = r.URL.Path
				gotMailto = r.URL.Query().Get("mailto")
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			c := NewCrossrefClientWithConfig(srv.URL+"/works", "me@example.com", time.Second, testLogger())
			meta, err := c.LookupDOI(context.Background(), "10.1038/nature12373")

			if tt.wantErr {
				if err == nil {
					t.Fatalf("expected error, got %+v", meta)
				}
				return
			}
			if err != nil {
				t.Fatalf("LookupDOI: %v", err)
			}
			if gotPath != "/works/10.1038/nature12373" {
				t.Errorf("path = %q", gotPath)
			}
			if gotMailto != "me@example.com" {
				t.Errorf("mailto = %q", gotMailto)
			}
			if tt.wantNil {
				if meta != nil {
					t.Errorf("expected nil, got %+v", meta)
				}
				return
			}
			if meta.Title != tt.wantTitle || meta.Abstract != tt.wantAbstract || meta.DOI != "10.1038/nature12373" {
				t.Errorf("meta = %+v", meta)
			}
		})
	}
}

func TestCrossrefClient_ConcurrentLookupsShareRequest(t *testing.T) {
	var hits atomic.Int32
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		<-release
		_, _ = w.Write([]byte(`{"message": {"title": ["T"]}}`))
	}))
	defer srv.Close()

	c := NewCrossrefClientWithConfig(srv.URL, "", 5*time.Second, testLogger())

	var wg sync.WaitGroup
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := c.LookupDOI(context.Background(), "10.1000/abc"); err != nil {
				t.Errorf("LookupDOI: %v", err)
			}
		}()
	}

	// give every goroutine time to join the in-flight call
	time.Sleep(100 * time.Millisecond)
	close(release)
	wg.Wait()

	if n := hits.Load(); n != 1 {
		t.Errorf("server hits = %d, want 1", n)
	}
}

func TestPageFetcher_FetchMarkdown(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/page":
			w.Header().Set("Content-Type", "text/html; charset=utf-8")
			_, _ = w.Write([]byte(`<html><body><h1>Cells</h1><script>alert(1)</script><p>Made of <strong>parts</strong>.</p></body></html>`))
		case "/notes.txt":
			w.Header().Set("Content-Type", "text/plain")
			_, _ = w.Write([]byte("  plain notes \n"))
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	f := NewPageFetcher(time.Second, testLogger())
	ctx := context.Background()

	got, err := f.FetchMarkdown(ctx, srv.URL+"/page")
	if err != nil {
		t.Fatalf("FetchMarkdown: %v", err)
	}
	if !strings.Contains(got, "# Cells") || !strings.Contains(got, "**parts**") {
		t.Errorf("markdown = %q", got)
	}
	if strings.Contains(got, "alert") {
		t.Errorf("script survived sanitizing: %q", got)
	}

	got, err = f.FetchMarkdown(ctx, srv.URL+"/notes.txt")
	if err != nil || got != "plain notes" {
		t.Errorf("plain text = %q, %v", got, err)
	}

	if _, err := f.FetchMarkdown(ctx, srv.URL+"/missing"); err == nil {
		t.Error("expected error for 404")
	}
}

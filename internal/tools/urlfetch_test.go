package tools

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"docuchat/internal/config"
)

func fetcher() *URLFetcher {
	return NewURLFetcher(config.ToolsConfig{URLFetcherMaxChars: 200, URLFetcherTimeout: 5})
}

func TestFetchInvalidURL(t *testing.T) {
	got := fetcher().Fetch(context.Background(), "ftp://example.com/file")
	if !strings.HasPrefix(got, "Invalid URL:") {
		t.Errorf("got %q", got)
	}
}

func TestFetchHTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}))
	defer srv.Close()
	got := fetcher().Fetch(context.Background(), srv.URL)
	if got != "Failed to fetch URL: HTTP 404" {
		t.Errorf("got %q", got)
	}
}

func TestFetchPlainText(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain")
		w.Write([]byte("just text"))
	}))
	defer srv.Close()
	got := fetcher().Fetch(context.Background(), srv.URL)
	if !strings.Contains(got, "just text") || !strings.HasPrefix(got, "Content from ") {
		t.Errorf("got %q", got)
	}
}

func TestFetchHTMLStripsChromeAndKeepsTitle(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		w.Write([]byte(`<html><head><title>My Page</title><script>bad()</script></head>
<body><nav>Menu</nav><p>Readable paragraph.</p></body></html>`))
	}))
	defer srv.Close()
	got := fetcher().Fetch(context.Background(), srv.URL)
	if !strings.Contains(got, "(My Page)") {
		t.Errorf("title missing: %q", got)
	}
	if !strings.Contains(got, "Readable paragraph.") {
		t.Errorf("content missing: %q", got)
	}
	if strings.Contains(got, "Menu") || strings.Contains(got, "bad()") {
		t.Errorf("stripped content leaked: %q", got)
	}
}

func TestFetchTruncatesLongContent(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		w.Write([]byte("<html><body><p>" + strings.Repeat("word ", 200) + "</p></body></html>"))
	}))
	defer srv.Close()
	got := fetcher().Fetch(context.Background(), srv.URL)
	if !strings.Contains(got, "[Content truncated]") {
		t.Errorf("long content not truncated: %d chars", len(got))
	}
}

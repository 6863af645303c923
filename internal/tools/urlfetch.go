package tools

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"regexp"
	"strings"
	"time"

	htmltomarkdown "github.com/JohannesKaufmann/html-to-markdown/v2"
	"golang.org/x/net/html"

	"docuchat/internal/config"
	"docuchat/pkg/logger"
)

// URLFetcher retrieves a page and returns its readable text, truncated to a
// configured size. All failures come back as message strings, with the HTTP
// status, timeout and bad-URL cases kept distinguishable.
type URLFetcher struct {
	client   *http.Client
	maxChars int
	timeout  time.Duration
	log      *logger.Logger
}

func NewURLFetcher(cfg config.ToolsConfig) *URLFetcher {
	timeout := time.Duration(cfg.URLFetcherTimeout) * time.Second
	return &URLFetcher{
		client:   &http.Client{Timeout: timeout},
		maxChars: cfg.URLFetcherMaxChars,
		timeout:  timeout,
		log:      logger.New("tools.urlfetch"),
	}
}

var excessNewlinesRe = regexp.MustCompile(`\n{3,}`)

func (f *URLFetcher) Fetch(ctx context.Context, rawURL string) string {
	parsed, err := url.Parse(rawURL)
	if err != nil || (parsed.Scheme != "http" && parsed.Scheme != "https") {
		return "Invalid URL: " + rawURL
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return "Invalid URL: " + rawURL
	}
	req.Header.Set("User-Agent", "Mozilla/5.0 (compatible; RAGBot/1.0)")
	req.Header.Set("Accept", "text/html,application/xhtml+xml,text/plain,application/json")

	resp, err := f.client.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || os.IsTimeout(err) {
			return fmt.Sprintf("Failed to fetch URL: request timed out after %s", f.timeout)
		}
		f.log.WithError(err).WithField("url", rawURL).Warn("url fetch failed")
		return "Failed to fetch URL: unexpected error."
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 400 {
		return fmt.Sprintf("Failed to fetch URL: HTTP %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		f.log.WithError(err).WithField("url", rawURL).Warn("url body read failed")
		return "Failed to fetch URL: unexpected error."
	}

	contentType := resp.Header.Get("Content-Type")
	if strings.Contains(contentType, "text/plain") || strings.Contains(contentType, "application/json") {
		text := string(body)
		if len(text) > f.maxChars {
			text = text[:f.maxChars]
		}
		return fmt.Sprintf("Content from %s:\n\n%s", rawURL, text)
	}

	title, text := f.readableText(body)
	if strings.TrimSpace(text) == "" {
		return "No readable text content found at " + rawURL
	}
	if len(text) > f.maxChars {
		text = text[:f.maxChars] + "\n\n[Content truncated]"
	}

	header := "Content from " + rawURL
	if title != "" {
		header += " (" + title + ")"
	}
	return header + ":\n\n" + text
}

// readableText drops non-content subtrees, then converts the remaining HTML
// to markdown for the model.
func (f *URLFetcher) readableText(page []byte) (title, text string) {
	doc, err := html.Parse(bytes.NewReader(page))
	if err != nil {
		return "", ""
	}
	title = findTitle(doc)
	pruneChrome(doc)

	var cleaned bytes.Buffer
	if err := html.Render(&cleaned, doc); err != nil {
		return title, ""
	}
	markdown, err := htmltomarkdown.ConvertString(cleaned.String())
	if err != nil {
		f.log.WithError(err).Warn("markdown conversion failed")
		return title, ""
	}
	return title, strings.TrimSpace(excessNewlinesRe.ReplaceAllString(markdown, "\n\n"))
}

var chromeTags = map[string]bool{
	"script": true, "style": true, "nav": true, "footer": true,
	"header": true, "aside": true, "iframe": true,
}

func pruneChrome(n *html.Node) {
	var next *html.Node
	for child := n.FirstChild; child != nil; child = next {
		next = child.NextSibling
		if child.Type == html.ElementNode && chromeTags[child.Data] {
			n.RemoveChild(child)
			continue
		}
		pruneChrome(child)
	}
}

func findTitle(n *html.Node) string {
	if n.Type == html.ElementNode && n.Data == "title" {
		var sb strings.Builder
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			if c.Type == html.TextNode {
				sb.WriteString(c.Data)
			}
		}
		return strings.TrimSpace(sb.String())
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if title := findTitle(c); title != "" {
			return title
		}
	}
	return ""
}

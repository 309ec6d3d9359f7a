package sources

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	md "github.com/JohannesKaufmann/html-to-markdown"
)

const (
	// DefaultFetchTimeout bounds a page download.
	DefaultFetchTimeout = 15 * time.Second

	// maxPageBytes caps how much of a page is read.
	maxPageBytes = 5 << 20

	userAgent = "neurostudy/1.0 (+https://github.com/neurostudy)"
)

// PageFetcher downloads web pages and converts them to markdown in two stages:
// sanitize the HTML, then convert it.
type PageFetcher struct {
	httpClient *http.Client
	sanitizer  *HTMLSanitizer
	converter  *md.Converter
	logger     *slog.Logger
}

// NewPageFetcher creates a fetcher with the given timeout.
func NewPageFetcher(timeout time.Duration, logger *slog.Logger) *PageFetcher {
	if timeout <= 0 {
		timeout = DefaultFetchTimeout
	}
	return &PageFetcher{
		httpClient: &http.Client{Timeout: timeout},
		sanitizer:  NewHTMLSanitizer(),
		converter:  md.NewConverter("", true, nil),
		logger:     logger,
	}
}

// FetchMarkdown downloads url and returns its content as markdown. Plain-text
// and markdown responses are returned as they are.
func (f *PageFetcher) FetchMarkdown(ctx context.Context, url string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "text/html, text/plain;q=0.9, */*;q=0.5")

	resp, err := f.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }() // Error ignored: response consumed

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxPageBytes))
	if err != nil {
		return "", fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("fetch %s: status %d", url, resp.StatusCode)
	}

	contentType := strings.ToLower(resp.Header.Get("Content-Type"))
	if strings.HasPrefix(contentType, "text/plain") || strings.HasPrefix(contentType, "text/markdown") {
		return strings.TrimSpace(string(body)), nil
	}

	markdown, err := f.converter.ConvertString(f.sanitizer.Sanitize(string(body)))
	if err != nil {
		return "", fmt.Errorf("failed to convert HTML to markdown: %w", err)
	}

	f.logger.Debug("page fetched",
		"url", url,
		"bytes", len(body),
		"markdown_chars", len(markdown),
	)
	return strings.TrimSpace(markdown), nil
}

package sources

import (
	"context"
	"fmt"
	"html"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/tidwall/gjson"
	"golang.org/x/sync/singleflight"

	models "neurostudy/internal/domain/models/study"
)

const (
	// DefaultCrossrefBaseURL is the Crossref works endpoint.
	DefaultCrossrefBaseURL = "https://api.crossref.org/works/"
	// DefaultCrossrefTimeout is the default HTTP timeout for Crossref requests.
	DefaultCrossrefTimeout = 10 * time.Second
)

// CrossrefClient looks up paper metadata by DOI. Concurrent lookups of the
// same DOI share one request.
type CrossrefClient struct {
	baseURL    string
	mailto     string
	httpClient *http.Client
	stripper   *HTMLSanitizer
	group      singleflight.Group
	logger     *slog.Logger
}

// NewCrossrefClient creates a client against the public Crossref API.
func NewCrossrefClient(logger *slog.Logger) *CrossrefClient {
	return NewCrossrefClientWithConfig(DefaultCrossrefBaseURL, "", DefaultCrossrefTimeout, logger)
}

// NewCrossrefClientWithConfig creates a client with custom configuration.
// mailto is sent so requests use Crossref's polite pool.
func NewCrossrefClientWithConfig(baseURL, mailto string, timeout time.Duration, logger *slog.Logger) *CrossrefClient {
	if !strings.HasSuffix(baseURL, "/") {
		baseURL += "/"
	}
	return &CrossrefClient{
		baseURL:    baseURL,
		mailto:     mailto,
		httpClient: &http.Client{Timeout: timeout},
		stripper:   NewStrictHTMLSanitizer(),
		logger:     logger,
	}
}

// LookupDOI returns the title and abstract of doi, or nil when Crossref does
// not know it.
func (c *CrossrefClient) LookupDOI(ctx context.Context, doi string) (*models.DOIMetadata, error) {
	doi = strings.TrimSpace(doi)
	if doi == "" {
		return nil, nil
	}

	v, err, shared := c.group.Do(strings.ToLower(doi), func() (interface{}, error) {
		return c.fetch(ctx, doi)
	})
	if err != nil {
		return nil, err
	}
	if shared {
		c.logger.Debug("doi lookup shared", "doi", doi)
	}

	meta, _ := v.(*models.DOIMetadata)
	if meta == nil {
		return nil, nil
	}
	cp := *meta
	return &cp, nil
}

func (c *CrossrefClient) fetch(ctx context.Context, doi string) (*models.DOIMetadata, error) {
	endpoint := c.baseURL + url.PathEscape(doi)
	if c.mailto != "" {
		endpoint += "?mailto=" + url.QueryEscape(c.mailto)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", userAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }() // Error ignored: response consumed

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode == http.StatusNotFound {
		c.logger.Info("doi not found", "doi", doi)
		return nil, nil
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("API error (status %d): %s", resp.StatusCode, string(body))
	}
	if !gjson.ValidBytes(body) {
		return nil, fmt.Errorf("failed to parse response: invalid JSON")
	}

	msg := gjson.GetBytes(body, "message")
	meta := &models.DOIMetadata{
		DOI:      doi,
		Title:    strings.TrimSpace(msg.Get("title.0").String()),
		Abstract: c.cleanAbstract(msg.Get("abstract").String()),
	}
	if meta.Title == "" {
		meta.Title = doi
	}
	return meta, nil
}

// cleanAbstract strips JATS markup, decodes entities and collapses whitespace.
func (c *CrossrefClient) cleanAbstract(s string) string {
	return strings.Join(strings.Fields(html.UnescapeString(c.stripper.Sanitize(s))), " ")
}

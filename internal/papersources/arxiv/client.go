package arxiv

import (
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/helixir/paper-aggregator/internal/domain"
	"github.com/helixir/paper-aggregator/internal/papersources"
)

const (
	// DefaultBaseURL is the default arXiv API base URL.
	DefaultBaseURL = "https://export.arxiv.org/api"

	// MinRequestInterval is the gap arXiv asks clients to leave between requests.
	MinRequestInterval = 3 * time.Second

	// DefaultTimeout is the default request timeout.
	DefaultTimeout = 30 * time.Second

	// DefaultMaxResults is the default maximum results per request.
	DefaultMaxResults = 20

	// sourceName is the human-readable name for this source.
	sourceName = "arXiv"
)

// globalLimiter spaces every arXiv request made by this process, across all
// Client values, at least MinRequestInterval apart.
var globalLimiter = papersources.NewIntervalLimiter(MinRequestInterval)

// arxivIDRegex extracts the arXiv ID, version suffix included, from the entry URL.
var arxivIDRegex = regexp.MustCompile(`abs/(.+)$`)

// Config holds configuration for the arXiv client.
type Config struct {
	// BaseURL is the arXiv API base URL.
	BaseURL string

	// Timeout is the request timeout.
	Timeout time.Duration

	// MaxResults is the maximum results to return per search request.
	MaxResults int

	// UserAgent overrides the default User-Agent header.
	UserAgent string

	// Enabled indicates whether this source is enabled for searches.
	Enabled bool
}

// applyDefaults sets default values for unset configuration fields.
func (c *Config) applyDefaults() {
	if c.BaseURL == "" {
		c.BaseURL = DefaultBaseURL
	}
	if c.Timeout == 0 {
		c.Timeout = DefaultTimeout
	}
	if c.MaxResults == 0 {
		c.MaxResults = DefaultMaxResults
	}
	if c.UserAgent == "" {
		c.UserAgent = papersources.DefaultUserAgent
	}
}

// Client implements the papersources.PaperSource interface for arXiv.
type Client struct {
	config     Config
	httpClient *papersources.HTTPClient
}

// Ensure Client implements PaperSource interface.
var _ papersources.PaperSource = (*Client)(nil)

// New creates a new arXiv client bound to the process-wide arXiv limiter.
func New(cfg Config) *Client {
	cfg.applyDefaults()

	httpClient := papersources.NewHTTPClient(papersources.HTTPClientConfig{
		Timeout:   cfg.Timeout,
		Limiter:   globalLimiter,
		UserAgent: cfg.UserAgent,
	})

	return &Client{
		config:     cfg,
		httpClient: httpClient,
	}
}

// NewWithHTTPClient creates a new arXiv client with a custom HTTP client.
// This is useful for testing with mock servers.
func NewWithHTTPClient(cfg Config, httpClient *papersources.HTTPClient) *Client {
	cfg.applyDefaults()

	return &Client{
		config:     cfg,
		httpClient: httpClient,
	}
}

// Search queries arXiv for papers matching the given parameters.
func (c *Client) Search(ctx context.Context, params papersources.SearchParams) (*papersources.SearchResult, error) {
	startTime := time.Now()

	searchURL, err := c.buildSearchURL("all:"+params.Query, params.Offset, params.Limit, sortBy(params.Sort))
	if err != nil {
		return nil, fmt.Errorf("building search URL: %w", err)
	}

	feed, err := c.fetchFeed(ctx, searchURL)
	if err != nil {
		return nil, err
	}

	return &papersources.SearchResult{
		Papers:         c.feedToPapers(feed),
		TotalResults:   feed.TotalResults,
		Source:         domain.SourceTypeArXiv,
		SearchDuration: time.Since(startTime),
	}, nil
}

// SearchByCategory lists the newest submissions in an arXiv category
// such as "cs.LG".
func (c *Client) SearchByCategory(ctx context.Context, category string, limit int) (*papersources.SearchResult, error) {
	startTime := time.Now()

	searchURL, err := c.buildSearchURL("cat:"+category, 0, limit, "submittedDate")
	if err != nil {
		return nil, fmt.Errorf("building search URL: %w", err)
	}

	feed, err := c.fetchFeed(ctx, searchURL)
	if err != nil {
		return nil, err
	}

	return &papersources.SearchResult{
		Papers:         c.feedToPapers(feed),
		TotalResults:   feed.TotalResults,
		Source:         domain.SourceTypeArXiv,
		SearchDuration: time.Since(startTime),
	}, nil
}

// GetByID retrieves a specific paper by its arXiv ID.
func (c *Client) GetByID(ctx context.Context, id string) (*domain.Paper, error) {
	baseURL, err := url.Parse(c.config.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("parsing base URL: %w", err)
	}

	baseURL.Path = strings.TrimRight(baseURL.Path, "/") + "/query"
	query := url.Values{}
	query.Set("id_list", id)
	baseURL.RawQuery = query.Encode()

	feed, err := c.fetchFeed(ctx, baseURL.String())
	if err != nil {
		return nil, err
	}

	if len(feed.Entries) == 0 {
		return nil, domain.NewNotFoundError("paper", id)
	}

	paper := entryToPaper(&feed.Entries[0])
	if paper == nil {
		return nil, domain.NewNotFoundError("paper", id)
	}

	return paper, nil
}

// SourceType returns the source type identifier.
func (c *Client) SourceType() domain.SourceType {
	return domain.SourceTypeArXiv
}

// Name returns the human-readable name for this source.
func (c *Client) Name() string {
	return sourceName
}

// IsEnabled returns whether this source is enabled.
func (c *Client) IsEnabled() bool {
	return c.config.Enabled
}

func (c *Client) fetchFeed(ctx context.Context, rawURL string) (*Feed, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("executing request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, domain.NewExternalAPIError(
			sourceName,
			resp.StatusCode,
			papersources.ReadErrorBody(resp),
			nil,
		)
	}

	var feed Feed
	if err := xml.NewDecoder(io.LimitReader(resp.Body, papersources.MaxResponseSize)).Decode(&feed); err != nil {
		return nil, fmt.Errorf("decoding response: %w", err)
	}
	return &feed, nil
}

func (c *Client) feedToPapers(feed *Feed) []*domain.Paper {
	papers := make([]*domain.Paper, 0, len(feed.Entries))
	for i := range feed.Entries {
		if paper := entryToPaper(&feed.Entries[i]); paper != nil {
			papers = append(papers, paper)
		}
	}
	return papers
}

// buildSearchURL constructs the arXiv query API URL.
func (c *Client) buildSearchURL(searchQuery string, offset, limit int, sort string) (string, error) {
	baseURL, err := url.Parse(c.config.BaseURL)
	if err != nil {
		return "", fmt.Errorf("parsing base URL: %w", err)
	}

	baseURL.Path = strings.TrimRight(baseURL.Path, "/") + "/query"

	if limit <= 0 {
		limit = c.config.MaxResults
	}

	query := url.Values{}
	query.Set("search_query", searchQuery)
	query.Set("start", strconv.Itoa(offset))
	query.Set("max_results", strconv.Itoa(limit))
	query.Set("sortBy", sort)
	query.Set("sortOrder", "descending")

	baseURL.RawQuery = query.Encode()
	return baseURL.String(), nil
}

// sortBy maps a sort order onto arXiv's sortBy values. arXiv has no
// citation data, so citation ordering falls back to relevance.
func sortBy(order domain.SortOrder) string {
	if order == domain.SortDate {
		return "submittedDate"
	}
	return "relevance"
}

// entryToPaper converts an arXiv Atom entry to a domain Paper.
func entryToPaper(entry *Entry) *domain.Paper {
	if entry == nil {
		return nil
	}

	arxivID := extractArXivID(strings.TrimSpace(entry.ID))
	if arxivID == "" {
		return nil
	}

	authors := make([]domain.Author, 0, len(entry.Authors))
	for _, a := range entry.Authors {
		name := strings.TrimSpace(a.Name)
		if name == "" {
			continue
		}
		authors = append(authors, domain.Author{
			Name:        name,
			Affiliation: strings.TrimSpace(a.Affiliation),
		})
	}

	discipline := entry.PrimaryCategory.Term
	if discipline == "" {
		discipline = "unknown"
	}

	return &domain.Paper{
		ID:       domain.GeneratePaperID(domain.SourceTypeArXiv, arxivID),
		Title:    cleanText(entry.Title),
		Abstract: cleanText(entry.Summary),
		Authors:  authors,
		Date:     publishedDate(entry.Published),
		Source:   domain.SourceTypeArXiv,
		ExternalIDs: domain.ExternalIDs{
			ArXivID: arxivID,
			DOI:     strings.TrimSpace(entry.DOI),
		},
		Citations:  0,
		AccessType: domain.AccessTypeOpen,
		URL:        strings.TrimSpace(entry.ID),
		PDFURL:     pdfURL(entry.Links, arxivID),
		Keywords:   []string{},
		Discipline: discipline,
	}
}

// pdfURL picks the link titled "pdf" or pointing at /pdf/, falling back to
// the canonical PDF location.
func pdfURL(links []Link, arxivID string) string {
	for _, link := range links {
		if link.Title == "pdf" || strings.Contains(link.Href, "/pdf/") {
			return link.Href
		}
	}
	return "https://arxiv.org/pdf/" + arxivID + ".pdf"
}

// publishedDate reduces an Atom timestamp to its date part.
func publishedDate(published string) string {
	published = strings.TrimSpace(published)
	if t, err := time.Parse(time.RFC3339, published); err == nil {
		return t.UTC().Format("2006-01-02")
	}
	return published
}

// extractArXivID extracts the arXiv ID from the full entry URL.
// Input: "http://arxiv.org/abs/2301.12345v1" → "2301.12345v1"
func extractArXivID(entryURL string) string {
	matches := arxivIDRegex.FindStringSubmatch(entryURL)
	if len(matches) < 2 {
		return ""
	}
	return matches[1]
}

// cleanText collapses the feed's hard line wraps, then strips markup and
// decodes entities.
func cleanText(s string) string {
	return domain.CleanHTML(domain.CollapseWhitespace(s))
}

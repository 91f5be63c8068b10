package crossref

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/helixir/paper-aggregator/internal/domain"
	"github.com/helixir/paper-aggregator/internal/papersources"
)

const (
	// DefaultBaseURL is the CrossRef works endpoint.
	DefaultBaseURL = "https://api.crossref.org/v1/works"

	// DefaultRateLimit is the default rate limit for requests per second.
	DefaultRateLimit = 10.0

	// DefaultBurstSize is the default burst size for rate limiting.
	DefaultBurstSize = 5

	// DefaultTimeout is the default request timeout.
	DefaultTimeout = 30 * time.Second

	// DefaultMaxResults is the default number of rows per request.
	DefaultMaxResults = 20

	// maxRows is the CrossRef rows ceiling.
	maxRows = 1000

	sourceName = "CrossRef"
)

// openLicenseMarkers mark a license URL as an open license.
var openLicenseMarkers = []string{"creativecommons.org", "open-access"}

// Config holds configuration for the CrossRef client.
type Config struct {
	// BaseURL is the works endpoint.
	// Defaults to DefaultBaseURL.
	BaseURL string

	// Mailto is the contact address sent with every request. CrossRef
	// routes identified clients to its polite pool.
	Mailto string

	// Timeout is the request timeout.
	Timeout time.Duration

	// RateLimit is the maximum requests per second.
	RateLimit float64

	// BurstSize is the maximum burst of requests allowed.
	BurstSize int

	// MaxResults is the row count used when a search does not set one.
	MaxResults int

	// Enabled indicates whether this source is enabled for searches.
	Enabled bool
}

func (c *Config) applyDefaults() {
	if c.BaseURL == "" {
		c.BaseURL = DefaultBaseURL
	}
	if c.Timeout == 0 {
		c.Timeout = DefaultTimeout
	}
	if c.RateLimit == 0 {
		c.RateLimit = DefaultRateLimit
	}
	if c.BurstSize == 0 {
		c.BurstSize = DefaultBurstSize
	}
	if c.MaxResults == 0 {
		c.MaxResults = DefaultMaxResults
	}
}

// userAgent identifies the client, with the contact address when one is set.
func (c *Config) userAgent() string {
	if c.Mailto == "" {
		return papersources.DefaultUserAgent
	}
	return "ResearchArchive/1.0 (Academic Search Engine; mailto:" + c.Mailto + ")"
}

// Client implements the papersources.PaperSource interface for CrossRef.
type Client struct {
	config     Config
	httpClient *papersources.HTTPClient
	now        func() time.Time
}

// Ensure Client implements PaperSource interface.
var _ papersources.PaperSource = (*Client)(nil)

// New creates a new CrossRef client with the given configuration.
func New(cfg Config) *Client {
	cfg.applyDefaults()

	httpClient := papersources.NewHTTPClient(papersources.HTTPClientConfig{
		Timeout:   cfg.Timeout,
		RateLimit: cfg.RateLimit,
		BurstSize: cfg.BurstSize,
		UserAgent: cfg.userAgent(),
	})

	return &Client{
		config:     cfg,
		httpClient: httpClient,
		now:        time.Now,
	}
}

// NewWithHTTPClient creates a new CrossRef client with a custom HTTP client.
func NewWithHTTPClient(cfg Config, httpClient *papersources.HTTPClient) *Client {
	cfg.applyDefaults()
	return &Client{
		config:     cfg,
		httpClient: httpClient,
		now:        time.Now,
	}
}

// Search queries the CrossRef works endpoint.
func (c *Client) Search(ctx context.Context, params papersources.SearchParams) (*papersources.SearchResult, error) {
	startTime := time.Now()

	searchURL, err := c.buildSearchURL(params)
	if err != nil {
		return nil, fmt.Errorf("building search URL: %w", err)
	}

	var resp WorksResponse
	if err := c.getJSON(ctx, searchURL, &resp); err != nil {
		return nil, err
	}

	papers := make([]*domain.Paper, 0, len(resp.Message.Items))
	for i := range resp.Message.Items {
		if paper := c.workToPaper(&resp.Message.Items[i]); paper != nil {
			papers = append(papers, paper)
		}
	}

	total := resp.Message.TotalResults
	if total == 0 {
		total = len(papers)
	}

	return &papersources.SearchResult{
		Papers:         papers,
		TotalResults:   total,
		Source:         domain.SourceTypeCrossRef,
		SearchDuration: time.Since(startTime),
	}, nil
}

// GetByID retrieves a work by DOI.
func (c *Client) GetByID(ctx context.Context, doi string) (*domain.Paper, error) {
	doi = domain.NormalizeDOI(doi)
	if doi == "" {
		return nil, domain.NewNotFoundError("paper", doi)
	}

	fetchURL := strings.TrimSuffix(c.config.BaseURL, "/") + "/" + url.PathEscape(doi)
	if c.config.Mailto != "" {
		fetchURL += "?" + url.Values{"mailto": {c.config.Mailto}}.Encode()
	}

	var resp WorkResponse
	if err := c.getJSON(ctx, fetchURL, &resp); err != nil {
		var apiErr *domain.ExternalAPIError
		if errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusNotFound {
			return nil, domain.NewNotFoundError("paper", doi)
		}
		return nil, err
	}

	paper := c.workToPaper(&resp.Message)
	if paper == nil {
		return nil, domain.NewNotFoundError("paper", doi)
	}
	return paper, nil
}

// CitationCount returns the is-referenced-by-count of a DOI.
func (c *Client) CitationCount(ctx context.Context, doi string) (int, error) {
	paper, err := c.GetByID(ctx, doi)
	if err != nil {
		return 0, err
	}
	return paper.Citations, nil
}

// SourceType returns the source type identifier.
func (c *Client) SourceType() domain.SourceType {
	return domain.SourceTypeCrossRef
}

// Name returns the human-readable name for this source.
func (c *Client) Name() string {
	return sourceName
}

// IsEnabled returns whether this source is enabled.
func (c *Client) IsEnabled() bool {
	return c.config.Enabled
}

func (c *Client) buildSearchURL(params papersources.SearchParams) (string, error) {
	u, err := url.Parse(c.config.BaseURL)
	if err != nil {
		return "", fmt.Errorf("parsing base URL: %w", err)
	}

	rows := params.Limit
	if rows <= 0 {
		rows = c.config.MaxResults
	}
	if rows > maxRows {
		rows = maxRows
	}

	q := url.Values{}
	q.Set("query", params.Query)
	q.Set("offset", strconv.Itoa(params.Offset))
	q.Set("rows", strconv.Itoa(rows))
	q.Set("sort", sortField(params.Sort))
	q.Set("order", "desc")

	var filters []string
	if params.DateFrom != nil {
		filters = append(filters, "from-pub-date:"+params.DateFrom.Format("2006-01-02"))
	}
	if params.DateTo != nil {
		filters = append(filters, "until-pub-date:"+params.DateTo.Format("2006-01-02"))
	}
	if params.HasAbstract {
		filters = append(filters, "has-abstract:true")
	}
	if len(filters) > 0 {
		q.Set("filter", strings.Join(filters, ","))
	}

	if c.config.Mailto != "" {
		q.Set("mailto", c.config.Mailto)
	}

	u.RawQuery = q.Encode()
	return u.String(), nil
}

func (c *Client) getJSON(ctx context.Context, rawURL string, v any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("executing request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return domain.NewExternalAPIError(sourceName, resp.StatusCode, papersources.ReadErrorBody(resp), nil)
	}

	if err := json.NewDecoder(io.LimitReader(resp.Body, papersources.MaxResponseSize)).Decode(v); err != nil {
		return fmt.Errorf("decoding response: %w", err)
	}
	return nil
}

func sortField(order domain.SortOrder) string {
	switch order {
	case domain.SortDate:
		return "published"
	case domain.SortCitations:
		return "is-referenced-by-count"
	default:
		return "score"
	}
}

func (c *Client) workToPaper(work *Work) *domain.Paper {
	doi := strings.TrimSpace(work.DOI)
	if doi == "" {
		return nil
	}

	title := "Untitled"
	if len(work.Title) > 0 {
		if cleaned := domain.CleanHTML(work.Title[0]); cleaned != "" {
			title = cleaned
		}
	}

	paperURL := work.URL
	if paperURL == "" {
		paperURL = domain.DOIURL(doi)
	}

	var journal string
	if len(work.ContainerTitle) > 0 {
		journal = work.ContainerTitle[0]
	}

	keywords := work.Subject
	if keywords == nil {
		keywords = []string{}
	}
	var discipline string
	if len(work.Subject) > 0 {
		discipline = work.Subject[0]
	}

	return &domain.Paper{
		ID:          domain.GeneratePaperID(domain.SourceTypeCrossRef, doi),
		Title:       title,
		Abstract:    domain.CleanHTML(work.Abstract),
		Authors:     convertAuthors(work.Author),
		Date:        c.workDate(work),
		Source:      domain.SourceTypeCrossRef,
		ExternalIDs: domain.ExternalIDs{DOI: doi},
		Citations:   work.IsReferencedByCount,
		AccessType:  accessType(work.License),
		URL:         paperURL,
		PDFURL:      pdfLink(work.Link),
		Journal:     journal,
		Keywords:    keywords,
		Discipline:  discipline,
	}
}

// workDate takes the first of published-print, published-online and
// created. Missing month or day default to 1; no date at all means today.
func (c *Client) workDate(work *Work) string {
	for _, d := range []*DateInfo{work.PublishedPrint, work.PublishedOnline, work.Created} {
		if d == nil || len(d.DateParts) == 0 || len(d.DateParts[0]) == 0 {
			continue
		}
		parts := d.DateParts[0]
		month, day := 1, 1
		if len(parts) > 1 && parts[1] > 0 {
			month = parts[1]
		}
		if len(parts) > 2 && parts[2] > 0 {
			day = parts[2]
		}
		return fmt.Sprintf("%04d-%02d-%02d", parts[0], month, day)
	}
	return c.now().UTC().Format("2006-01-02")
}

func convertAuthors(in []Author) []domain.Author {
	authors := make([]domain.Author, 0, len(in))
	for _, a := range in {
		name := a.Name
		if name == "" {
			name = strings.TrimSpace(a.Given + " " + a.Family)
		}
		if name == "" {
			name = "Unknown"
		}

		author := domain.Author{Name: name, ORCID: a.ORCID}
		if len(a.Affiliation) > 0 {
			author.Affiliation = a.Affiliation[0].Name
		}
		authors = append(authors, author)
	}
	return authors
}

func accessType(licenses []License) domain.AccessType {
	for _, l := range licenses {
		for _, marker := range openLicenseMarkers {
			if strings.Contains(l.URL, marker) {
				return domain.AccessTypeOpen
			}
		}
	}
	return domain.AccessTypeRestricted
}

func pdfLink(links []Link) string {
	for _, l := range links {
		if strings.Contains(l.ContentType, "pdf") || strings.Contains(l.URL, ".pdf") {
			return l.URL
		}
	}
	return ""
}

package openalex

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/helixir/paper-aggregator/internal/domain"
	"github.com/helixir/paper-aggregator/internal/papersources"
)

const (
	// DefaultBaseURL is the default OpenAlex API base URL.
	DefaultBaseURL = "https://api.openalex.org"

	// DefaultRateLimit is the default rate limit for requests per second.
	// OpenAlex polite pool (with email) allows higher rates.
	DefaultRateLimit = 10.0

	// DefaultBurstSize is the default burst size for rate limiting.
	DefaultBurstSize = 10

	// DefaultTimeout is the default request timeout.
	DefaultTimeout = 30 * time.Second

	// DefaultMaxResults is the default maximum results per request.
	DefaultMaxResults = 20

	// maxPerPage is the OpenAlex per_page ceiling.
	maxPerPage = 200

	// maxKeywords caps the concepts kept as keywords.
	maxKeywords = 5

	// doiPrefix is the URL prefix that OpenAlex uses for DOIs.
	doiPrefix = "https://doi.org/"

	// openAlexIDPrefix is the URL prefix for OpenAlex IDs.
	openAlexIDPrefix = "https://openalex.org/"

	sourceName = "OpenAlex"
)

// Config holds configuration for the OpenAlex client.
type Config struct {
	// BaseURL is the OpenAlex API base URL.
	// Defaults to https://api.openalex.org
	BaseURL string

	// Email is the contact email for the polite pool.
	// See: https://docs.openalex.org/how-to-use-the-api/rate-limits-and-authentication
	Email string

	// Timeout is the request timeout.
	// Defaults to 30 seconds.
	Timeout time.Duration

	// RateLimit is the maximum requests per second.
	// Defaults to 10 req/sec.
	RateLimit float64

	// BurstSize is the maximum burst of requests allowed.
	// Defaults to 10.
	BurstSize int

	// MaxResults is the page size used when a search does not set one.
	// OpenAlex accepts at most 200.
	MaxResults int

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

// Client implements the papersources.PaperSource interface for OpenAlex.
type Client struct {
	config     Config
	httpClient *papersources.HTTPClient
	now        func() time.Time
}

// Ensure Client implements PaperSource interface.
var _ papersources.PaperSource = (*Client)(nil)

// New creates a new OpenAlex client with the given configuration.
func New(cfg Config) *Client {
	cfg.applyDefaults()

	userAgent := papersources.DefaultUserAgent
	if cfg.Email != "" {
		userAgent = "ResearchArchive/1.0 (mailto:" + cfg.Email + ")"
	}

	httpClient := papersources.NewHTTPClient(papersources.HTTPClientConfig{
		Timeout:   cfg.Timeout,
		RateLimit: cfg.RateLimit,
		BurstSize: cfg.BurstSize,
		UserAgent: userAgent,
	})

	return &Client{
		config:     cfg,
		httpClient: httpClient,
		now:        time.Now,
	}
}

// NewWithHTTPClient creates a new OpenAlex client with a custom HTTP client.
// This is useful for testing with mock servers.
func NewWithHTTPClient(cfg Config, httpClient *papersources.HTTPClient) *Client {
	cfg.applyDefaults()

	return &Client{
		config:     cfg,
		httpClient: httpClient,
		now:        time.Now,
	}
}

// Search queries OpenAlex for papers matching the given parameters.
func (c *Client) Search(ctx context.Context, params papersources.SearchParams) (*papersources.SearchResult, error) {
	startTime := time.Now()

	perPage := params.Limit
	if perPage <= 0 {
		perPage = c.config.MaxResults
	}
	if perPage > maxPerPage {
		perPage = maxPerPage
	}

	query := url.Values{}
	if params.Query != "" {
		query.Set("search", params.Query)
	}
	query.Set("page", strconv.Itoa(params.Offset/perPage+1))
	query.Set("per_page", strconv.Itoa(perPage))
	query.Set("sort", sortField(params.Sort)+":desc")
	if filters := buildFilters(params); len(filters) > 0 {
		query.Set("filter", strings.Join(filters, ","))
	}

	searchResp, err := c.fetchWorks(ctx, query)
	if err != nil {
		return nil, err
	}

	return &papersources.SearchResult{
		Papers:         worksToPapers(searchResp.Results),
		TotalResults:   searchResp.Meta.Count,
		Source:         domain.SourceTypeOpenAlex,
		SearchDuration: time.Since(startTime),
	}, nil
}

// GetByID retrieves a specific paper by its OpenAlex ID or DOI.
func (c *Client) GetByID(ctx context.Context, id string) (*domain.Paper, error) {
	fetchURL, err := c.buildGetByIDURL(id)
	if err != nil {
		return nil, fmt.Errorf("building fetch URL: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fetchURL, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("executing request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, domain.NewNotFoundError("paper", id)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, domain.NewExternalAPIError(sourceName, resp.StatusCode, papersources.ReadErrorBody(resp), nil)
	}

	var work Work
	if err := json.NewDecoder(io.LimitReader(resp.Body, papersources.MaxResponseSize)).Decode(&work); err != nil {
		return nil, fmt.Errorf("decoding response: %w", err)
	}

	paper := workToPaper(&work)
	if paper == nil {
		return nil, domain.NewNotFoundError("paper", id)
	}

	return paper, nil
}

// RelatedPapers lists works OpenAlex considers related to the given work,
// most cited first. Failures yield an empty slice.
func (c *Client) RelatedPapers(ctx context.Context, id string, limit int) []*domain.Paper {
	return c.graphWorks(ctx, "related_to:"+normalizeOpenAlexID(id), limit)
}

// CitingPapers lists works citing the given work, most cited first.
// Failures yield an empty slice.
func (c *Client) CitingPapers(ctx context.Context, id string, limit int) []*domain.Paper {
	return c.graphWorks(ctx, "cites:"+normalizeOpenAlexID(id), limit)
}

// TrendingPapers lists the most cited works published in the last days days.
func (c *Client) TrendingPapers(ctx context.Context, days, limit int) ([]*domain.Paper, error) {
	since := c.now().AddDate(0, 0, -days)

	query := url.Values{}
	query.Set("filter", "from_publication_date:"+since.Format("2006-01-02"))
	query.Set("sort", "cited_by_count:desc")
	query.Set("per_page", strconv.Itoa(clampPerPage(limit)))

	resp, err := c.fetchWorks(ctx, query)
	if err != nil {
		return nil, err
	}
	return worksToPapers(resp.Results), nil
}

// SourceType returns the source type identifier.
func (c *Client) SourceType() domain.SourceType {
	return domain.SourceTypeOpenAlex
}

// Name returns the human-readable name for this source.
func (c *Client) Name() string {
	return sourceName
}

// IsEnabled returns whether this source is enabled.
func (c *Client) IsEnabled() bool {
	return c.config.Enabled
}

func (c *Client) graphWorks(ctx context.Context, filter string, limit int) []*domain.Paper {
	query := url.Values{}
	query.Set("filter", filter)
	query.Set("sort", "cited_by_count:desc")
	query.Set("per_page", strconv.Itoa(clampPerPage(limit)))

	resp, err := c.fetchWorks(ctx, query)
	if err != nil {
		return []*domain.Paper{}
	}
	return worksToPapers(resp.Results)
}

// fetchWorks runs a GET against /works with the given query.
func (c *Client) fetchWorks(ctx context.Context, query url.Values) (*SearchResponse, error) {
	baseURL, err := url.Parse(c.config.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("parsing base URL: %w", err)
	}
	baseURL.Path = strings.TrimSuffix(baseURL.Path, "/") + "/works"

	if c.config.Email != "" {
		query.Set("mailto", c.config.Email)
	}
	baseURL.RawQuery = query.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, baseURL.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("executing request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, domain.NewExternalAPIError(sourceName, resp.StatusCode, papersources.ReadErrorBody(resp), nil)
	}

	var searchResp SearchResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, papersources.MaxResponseSize)).Decode(&searchResp); err != nil {
		return nil, fmt.Errorf("decoding response: %w", err)
	}
	return &searchResp, nil
}

// buildFilters constructs the filter query string components.
func buildFilters(params papersources.SearchParams) []string {
	var filters []string

	if params.DateFrom != nil {
		filters = append(filters, "from_publication_date:"+params.DateFrom.Format("2006-01-02"))
	}
	if params.DateTo != nil {
		filters = append(filters, "to_publication_date:"+params.DateTo.Format("2006-01-02"))
	}
	if params.OpenAccessOnly {
		filters = append(filters, "is_oa:true")
	}
	if params.MinCitations > 0 {
		filters = append(filters, fmt.Sprintf("cited_by_count:>%d", params.MinCitations-1))
	}

	return filters
}

func sortField(order domain.SortOrder) string {
	switch order {
	case domain.SortDate:
		return "publication_date"
	case domain.SortCitations:
		return "cited_by_count"
	default:
		return "relevance_score"
	}
}

func clampPerPage(limit int) int {
	switch {
	case limit <= 0:
		return DefaultMaxResults
	case limit > maxPerPage:
		return maxPerPage
	default:
		return limit
	}
}

// buildGetByIDURL constructs the URL for fetching a work by ID.
func (c *Client) buildGetByIDURL(id string) (string, error) {
	baseURL, err := url.Parse(c.config.BaseURL)
	if err != nil {
		return "", fmt.Errorf("parsing base URL: %w", err)
	}

	// OpenAlex accepts OpenAlex ids and DOI URLs in the path.
	var workID string
	switch {
	case strings.HasPrefix(id, openAlexIDPrefix):
		workID = strings.TrimPrefix(id, openAlexIDPrefix)
	case strings.HasPrefix(id, doiPrefix):
		workID = id
	case strings.HasPrefix(id, "10."):
		workID = doiPrefix + id
	case strings.HasPrefix(id, "doi:"):
		workID = doiPrefix + strings.TrimPrefix(id, "doi:")
	default:
		workID = id
	}

	baseURL.Path = strings.TrimSuffix(baseURL.Path, "/") + "/works/" + workID

	if c.config.Email != "" {
		query := url.Values{}
		query.Set("mailto", c.config.Email)
		baseURL.RawQuery = query.Encode()
	}

	return baseURL.String(), nil
}

func worksToPapers(works []Work) []*domain.Paper {
	papers := make([]*domain.Paper, 0, len(works))
	for i := range works {
		if paper := workToPaper(&works[i]); paper != nil {
			papers = append(papers, paper)
		}
	}
	return papers
}

// workToPaper converts an OpenAlex Work to a domain Paper. Works without an
// OpenAlex id are skipped.
func workToPaper(work *Work) *domain.Paper {
	if work == nil {
		return nil
	}

	openAlexID := normalizeOpenAlexID(work.ID)
	if openAlexID == "" {
		openAlexID = normalizeOpenAlexID(work.IDs.OpenAlex)
	}
	if openAlexID == "" {
		return nil
	}

	doi := domain.NormalizeDOI(work.DOI)
	if doi == "" {
		doi = domain.NormalizeDOI(work.IDs.DOI)
	}

	authors := make([]domain.Author, 0, len(work.Authorships))
	for _, authorship := range work.Authorships {
		author := domain.Author{
			Name:  authorship.Author.DisplayName,
			ORCID: normalizeORCID(authorship.Author.Orcid),
		}
		if len(authorship.Institutions) > 0 {
			author.Affiliation = authorship.Institutions[0].DisplayName
		}
		authors = append(authors, author)
	}

	title := domain.CleanHTML(work.Title)
	if title == "" {
		title = domain.CleanHTML(work.DisplayName)
	}
	if title == "" {
		title = "Untitled"
	}

	var journal, landingURL, locationPDF string
	if loc := work.PrimaryLocation; loc != nil {
		if loc.Source != nil {
			journal = loc.Source.DisplayName
		}
		landingURL = loc.LandingPageURL
		locationPDF = loc.PDFURL
	}

	access := domain.AccessTypeRestricted
	if work.OpenAccess != nil && work.OpenAccess.IsOA {
		access = domain.AccessTypeOpen
	}

	pdfURL := locationPDF
	if work.OpenAccess != nil && work.OpenAccess.OAURL != "" {
		pdfURL = work.OpenAccess.OAURL
	}

	paperURL := landingURL
	switch {
	case paperURL != "":
	case doi != "":
		paperURL = domain.DOIURL(doi)
	default:
		paperURL = work.ID
	}

	date := work.PublicationDate
	if date == "" && work.PublicationYear > 0 {
		date = fmt.Sprintf("%04d-01-01", work.PublicationYear)
	}

	keywords, discipline := conceptTags(work.Concepts)

	return &domain.Paper{
		ID:       domain.GeneratePaperID(domain.SourceTypeOpenAlex, openAlexID),
		Title:    title,
		Abstract: reconstructAbstract(work.AbstractInvertedIndex),
		Authors:  authors,
		Date:     date,
		Source:   domain.SourceTypeOpenAlex,
		ExternalIDs: domain.ExternalIDs{
			DOI:        doi,
			PMID:       normalizePMID(work.IDs.PMID),
			OpenAlexID: openAlexID,
		},
		Citations:  work.CitedByCount,
		AccessType: access,
		URL:        paperURL,
		PDFURL:     pdfURL,
		Journal:    journal,
		Keywords:   keywords,
		Discipline: discipline,
	}
}

// conceptTags keeps up to five broad, confident concepts as keywords and
// takes the first level 0 concept as the discipline.
func conceptTags(concepts []Concept) ([]string, string) {
	keywords := make([]string, 0, maxKeywords)
	var discipline string
	for _, concept := range concepts {
		if concept.Level <= 1 && concept.Score > 0.3 && len(keywords) < maxKeywords {
			keywords = append(keywords, concept.DisplayName)
		}
		if discipline == "" && concept.Level == 0 {
			discipline = concept.DisplayName
		}
	}
	return keywords, discipline
}

// normalizeOpenAlexID extracts the short ID from full OpenAlex URLs.
func normalizeOpenAlexID(id string) string {
	id = strings.TrimPrefix(strings.TrimSpace(id), openAlexIDPrefix)
	return strings.TrimSpace(id)
}

// normalizePMID strips any URL prefixes from PubMed IDs.
func normalizePMID(pmid string) string {
	pmid = strings.TrimSpace(pmid)
	pmid = strings.TrimPrefix(pmid, "https://pubmed.ncbi.nlm.nih.gov/")
	return strings.TrimSuffix(pmid, "/")
}

// normalizeORCID strips any URL prefixes from ORCID identifiers.
func normalizeORCID(orcid string) string {
	orcid = strings.TrimPrefix(strings.TrimSpace(orcid), "https://orcid.org/")
	return strings.TrimSpace(orcid)
}

// reconstructAbstract rebuilds the abstract text from OpenAlex's inverted
// index, which maps each word to the positions it occupies.
func reconstructAbstract(invertedIndex map[string][]int) string {
	if len(invertedIndex) == 0 {
		return ""
	}

	type posWord struct {
		pos  int
		word string
	}
	const maxAbstractWords = 100_000
	totalPairs := 0
	for _, positions := range invertedIndex {
		totalPairs += len(positions)
	}
	if totalPairs > maxAbstractWords {
		return ""
	}
	pairs := make([]posWord, 0, totalPairs)

	for word, positions := range invertedIndex {
		for _, pos := range positions {
			pairs = append(pairs, posWord{pos: pos, word: word})
		}
	}

	// Malformed indexes may repeat a position; order those words alphabetically.
	sort.SliceStable(pairs, func(i, j int) bool {
		if pairs[i].pos != pairs[j].pos {
			return pairs[i].pos < pairs[j].pos
		}
		return pairs[i].word < pairs[j].word
	})

	var builder strings.Builder
	builder.Grow(totalPairs * 7)
	for i, pair := range pairs {
		if i > 0 {
			builder.WriteByte(' ')
		}
		builder.WriteString(pair.word)
	}

	return builder.String()
}

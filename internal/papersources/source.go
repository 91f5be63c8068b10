// Package papersources defines the adapter contract for academic paper APIs
// and the shared plumbing the adapters are built on.
//
// Each upstream database (arXiv, PubMed, CrossRef, OpenAlex) implements
// PaperSource and normalizes its own wire format into domain.Paper. The
// Registry fans a search out to several sources concurrently and isolates
// their failures from one another.
//
// Example usage:
//
//	registry := papersources.NewRegistry()
//	registry.Register(openalex.New(openalex.Config{Enabled: true}))
//	results := registry.SearchSources(ctx, papersources.SearchParams{
//		Query: "CRISPR gene editing",
//		Limit: 20,
//	}, nil)
package papersources

import (
	"context"
	"time"

	"github.com/helixir/paper-aggregator/internal/domain"
)

// SearchParams defines the parameters for searching one source.
// All fields except Query are optional.
type SearchParams struct {
	// Query is the free-text search string (required).
	Query string

	// Offset is the zero-based index of the first result to return.
	Offset int

	// Limit caps the number of papers returned. A value of 0 uses the
	// source's default.
	Limit int

	// Sort selects the upstream ordering. Empty means relevance.
	Sort domain.SortOrder

	// DateFrom filters papers published on or after this date.
	DateFrom *time.Time

	// DateTo filters papers published on or before this date.
	DateTo *time.Time

	// OpenAccessOnly asks the source to return only open access papers.
	// Sources without such a filter ignore it.
	OpenAccessOnly bool

	// MinCitations asks the source to return papers with at least this
	// many citations. Sources without citation data ignore it.
	MinCitations int

	// HasAbstract asks the source to skip records without an abstract.
	HasAbstract bool
}

// SearchResult contains the results from a single source search.
type SearchResult struct {
	// Papers contains the normalized papers, in upstream rank order.
	Papers []*domain.Paper

	// TotalResults is the total number of matches the source reports,
	// regardless of pagination.
	TotalResults int

	// Source identifies which paper source provided these results.
	Source domain.SourceType

	// SearchDuration is the time taken to execute the search,
	// including network latency and response parsing.
	SearchDuration time.Duration
}

// PaperSource defines the interface that all paper source clients must implement.
type PaperSource interface {
	// Search queries the paper source for papers matching the given parameters.
	// A query with no matches is an empty result, not an error.
	Search(ctx context.Context, params SearchParams) (*SearchResult, error)

	// GetByID retrieves a paper by its source-specific identifier.
	// Returns an error wrapping domain.ErrNotFound if the paper does not exist.
	GetByID(ctx context.Context, id string) (*domain.Paper, error)

	// SourceType returns the type identifier for this paper source.
	SourceType() domain.SourceType

	// Name returns a human-readable name for logging and display.
	Name() string

	// IsEnabled returns whether this paper source is available for searches.
	IsEnabled() bool
}

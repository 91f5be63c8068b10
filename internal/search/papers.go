package search

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/helixir/paper-aggregator/internal/cache"
	"github.com/helixir/paper-aggregator/internal/citation"
	"github.com/helixir/paper-aggregator/internal/domain"
	"github.com/helixir/paper-aggregator/internal/observability"
	"github.com/helixir/paper-aggregator/internal/papersources"
)

const (
	// DefaultQuickLimit is the autocomplete result count when none is given.
	DefaultQuickLimit = 5

	// graphLimit caps the related and citing lists of a paper detail.
	graphLimit = 5

	featuredDays  = 90
	featuredLimit = 8
)

// quickSources are tried in order until one answers.
var quickSources = []domain.SourceType{domain.SourceTypeOpenAlex, domain.SourceTypeArXiv}

// QuickSearch answers autocomplete queries from a single source without
// touching the pipeline or the cache. OpenAlex is asked first and arXiv on
// failure; when both fail the result is empty.
func (s *Service) QuickSearch(ctx context.Context, query string, limit int) ([]*domain.Paper, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, domain.NewValidationError("query", "must not be empty")
	}
	if limit <= 0 {
		limit = DefaultQuickLimit
	}
	if limit > domain.MaxLimit {
		limit = domain.MaxLimit
	}

	for _, st := range quickSources {
		source := s.sources.Enabled(st)
		if source == nil {
			continue
		}

		start := s.now()
		result, err := source.Search(ctx, papersources.SearchParams{Query: query, Limit: limit})
		elapsed := s.now().Sub(start).Seconds()
		if err != nil {
			s.metrics.RecordSourceRequest(string(st), "error", elapsed)
			logger := observability.WithSearchContext(s.logger, query, string(st))
			logger.Warn().Err(err).Msg("quick search failed")
			continue
		}
		s.metrics.RecordSourceRequest(string(st), "success", elapsed)

		if result == nil || result.Papers == nil {
			return []*domain.Paper{}, nil
		}
		return result.Papers, nil
	}

	return []*domain.Paper{}, nil
}

// FeaturedPapers lists the most cited OpenAlex works of the last 90 days.
// Failures produce an empty list.
func (s *Service) FeaturedPapers(ctx context.Context) []*domain.Paper {
	trending, ok := s.sources.Enabled(domain.SourceTypeOpenAlex).(TrendingSource)
	if !ok {
		return []*domain.Paper{}
	}

	papers, err := trending.TrendingPapers(ctx, featuredDays, featuredLimit)
	if err != nil {
		s.logger.Warn().Err(err).Str("source", string(domain.SourceTypeOpenAlex)).Msg("featured papers failed")
		return []*domain.Paper{}
	}
	if papers == nil {
		return []*domain.Paper{}
	}
	return papers
}

// Paper returns the detail view of a paper. The id is a composite
// "<source>:<externalId>" id or a bare external id whose source is guessed
// from its shape. An unknown paper yields an error matching domain.ErrNotFound.
//
// When the paper has an OpenAlex id its related and citing works are
// fetched in parallel. Those lookups are best-effort and leave the lists
// empty on failure.
func (s *Service) Paper(ctx context.Context, id string) (*domain.PaperDetail, error) {
	s.searchCache.MaybeCleanup()
	s.paperCache.MaybeCleanup()

	key := cache.PaperKey(id)
	if detail, ok := s.paperCache.Get(key); ok {
		s.metrics.RecordCacheLookup(paperCacheName, true)
		return detail, nil
	}
	s.metrics.RecordCacheLookup(paperCacheName, false)

	paper, err := s.fetchPaper(ctx, id)
	if err != nil {
		return nil, err
	}

	detail := &domain.PaperDetail{
		Paper:         *paper.Clone(),
		RelatedPapers: []*domain.Paper{},
		CitedBy:       []*domain.Paper{},
		References:    []*domain.Paper{},
	}

	if openAlexID := graphID(paper); openAlexID != "" {
		if graph, ok := s.sources.Enabled(domain.SourceTypeOpenAlex).(GraphSource); ok {
			detail.RelatedPapers, detail.CitedBy = fetchGraph(ctx, graph, openAlexID)
		}
	}

	s.paperCache.Set(key, detail, s.paperTTL)
	return detail, nil
}

// Cite formats a paper as a citation. The paper is taken from the paper
// cache when a detail view was served recently.
func (s *Service) Cite(ctx context.Context, paperID string, format domain.CitationFormat) (*domain.Citation, error) {
	if err := citation.ValidateFormat(format); err != nil {
		return nil, err
	}

	var paper *domain.Paper
	if detail, ok := s.paperCache.Get(cache.PaperKey(paperID)); ok {
		s.metrics.RecordCacheLookup(paperCacheName, true)
		paper = &detail.Paper
	} else {
		s.metrics.RecordCacheLookup(paperCacheName, false)
		fetched, err := s.fetchPaper(ctx, paperID)
		if err != nil {
			return nil, err
		}
		paper = fetched
	}

	text, err := citation.Format(paper, format)
	if err != nil {
		return nil, err
	}
	s.metrics.RecordCitation(string(format))

	return &domain.Citation{Citation: text, Format: format}, nil
}

// fetchPaper resolves id to a source and asks that source for the record.
func (s *Service) fetchPaper(ctx context.Context, id string) (*domain.Paper, error) {
	ref, err := domain.ResolvePaperID(id)
	if err != nil {
		return nil, err
	}

	source := s.sources.Enabled(ref.Source)
	if source == nil {
		return nil, fmt.Errorf("%w: %s", domain.ErrUnknownSource, ref.Source)
	}

	logger := observability.WithPaperContext(observability.WithRequestContext(ctx, s.logger), id, string(ref.Source))

	start := s.now()
	paper, err := source.GetByID(ctx, ref.ExternalID)
	elapsed := s.now().Sub(start).Seconds()
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			s.metrics.RecordSourceRequest(string(ref.Source), "not_found", elapsed)
			return nil, err
		}
		s.metrics.RecordSourceRequest(string(ref.Source), "error", elapsed)
		logger.Warn().Err(err).Msg("paper lookup failed")
		return nil, fmt.Errorf("fetching paper %s: %w", id, err)
	}
	s.metrics.RecordSourceRequest(string(ref.Source), "success", elapsed)

	if paper == nil {
		return nil, domain.NewNotFoundError("paper", id)
	}
	return paper, nil
}

// graphID returns the OpenAlex work id for graph lookups, or "".
func graphID(p *domain.Paper) string {
	if p.ExternalIDs.OpenAlexID != "" {
		return p.ExternalIDs.OpenAlexID
	}
	if p.Source == domain.SourceTypeOpenAlex {
		if ref, err := domain.ParsePaperID(p.ID); err == nil {
			return ref.ExternalID
		}
	}
	return ""
}

func fetchGraph(ctx context.Context, graph GraphSource, id string) (related, citing []*domain.Paper) {
	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		related = graph.RelatedPapers(ctx, id, graphLimit)
	}()
	go func() {
		defer wg.Done()
		citing = graph.CitingPapers(ctx, id, graphLimit)
	}()
	wg.Wait()

	if related == nil {
		related = []*domain.Paper{}
	}
	if citing == nil {
		citing = []*domain.Paper{}
	}
	return related, citing
}

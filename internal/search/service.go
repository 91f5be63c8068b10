// Package search implements unified search across the paper sources.
//
// A search request is split evenly across the requested sources, fanned out
// in parallel, deduplicated by DOI, filtered, sorted and sliced to one page.
// Results are cached for a short time so repeated requests do not hit the
// upstream APIs. The package also serves single-paper lookups, citation
// formatting, autocomplete and the featured paper list.
package search

import (
	"context"
	"fmt"
	"math"
	"slices"
	"time"

	"github.com/rs/zerolog"

	"github.com/helixir/paper-aggregator/internal/cache"
	"github.com/helixir/paper-aggregator/internal/dedup"
	"github.com/helixir/paper-aggregator/internal/domain"
	"github.com/helixir/paper-aggregator/internal/observability"
	"github.com/helixir/paper-aggregator/internal/papersources"
)

// Cache sizing and lifetimes.
const (
	DefaultSearchCacheEntries = 500
	DefaultSearchTTL          = 15 * time.Minute
	DefaultPaperCacheEntries  = 1000
	DefaultPaperTTL           = time.Hour
)

// Cache names used as metric labels.
const (
	searchCacheName = "search"
	paperCacheName  = "paper"
)

// Sources is the part of papersources.Registry the service depends on.
type Sources interface {
	SearchSources(ctx context.Context, params papersources.SearchParams, sourceTypes []domain.SourceType) []papersources.SourceResult
	Enabled(sourceType domain.SourceType) papersources.PaperSource
}

// GraphSource is implemented by sources that know the citation graph.
type GraphSource interface {
	RelatedPapers(ctx context.Context, id string, limit int) []*domain.Paper
	CitingPapers(ctx context.Context, id string, limit int) []*domain.Paper
}

// TrendingSource is implemented by sources that can list recent highly cited work.
type TrendingSource interface {
	TrendingPapers(ctx context.Context, days, limit int) ([]*domain.Paper, error)
}

// Config holds the dependencies of a Service. Nil caches are created with
// the default sizes; a nil Metrics disables metrics.
type Config struct {
	Sources Sources
	// DefaultSources are searched when a request names none. Empty means
	// every source.
	DefaultSources []domain.SourceType

	SearchCache *cache.Cache[*domain.SearchResult]
	PaperCache  *cache.Cache[*domain.PaperDetail]
	SearchTTL   time.Duration
	PaperTTL    time.Duration
	Logger      zerolog.Logger
	Metrics     *observability.Metrics
	Now         func() time.Time
}

// Service runs searches and paper lookups against the registered sources.
// It is safe for concurrent use.
type Service struct {
	sources        Sources
	defaultSources []domain.SourceType
	searchCache    *cache.Cache[*domain.SearchResult]
	paperCache     *cache.Cache[*domain.PaperDetail]
	searchTTL      time.Duration
	paperTTL       time.Duration
	logger         zerolog.Logger
	metrics        *observability.Metrics
	now            func() time.Time
}

// New creates a Service from cfg.
func New(cfg Config) *Service {
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.SearchCache == nil {
		cfg.SearchCache = cache.New[*domain.SearchResult](
			cache.WithMaxEntries(DefaultSearchCacheEntries),
			cache.WithDefaultTTL(DefaultSearchTTL),
			cache.WithClock(cfg.Now),
		)
	}
	if cfg.PaperCache == nil {
		cfg.PaperCache = cache.New[*domain.PaperDetail](
			cache.WithMaxEntries(DefaultPaperCacheEntries),
			cache.WithDefaultTTL(DefaultPaperTTL),
			cache.WithClock(cfg.Now),
		)
	}
	if cfg.SearchTTL <= 0 {
		cfg.SearchTTL = DefaultSearchTTL
	}
	if cfg.PaperTTL <= 0 {
		cfg.PaperTTL = DefaultPaperTTL
	}

	return &Service{
		sources:        cfg.Sources,
		defaultSources: cfg.DefaultSources,
		searchCache:    cfg.SearchCache,
		paperCache:     cfg.PaperCache,
		searchTTL:      cfg.SearchTTL,
		paperTTL:       cfg.PaperTTL,
		logger:         cfg.Logger.With().Str("component", "search").Logger(),
		metrics:        cfg.Metrics,
		now:            cfg.Now,
	}
}

// Search runs a unified search. Source failures never fail the search: they
// are reported in SearchResult.Errors as "<source>: <message>" and the
// source contributes no papers. The only error returned is a validation
// error for a malformed request.
//
// Total is the sum of the totals reported by the sources and is not
// adjusted for duplicates.
func (s *Service) Search(ctx context.Context, req domain.SearchRequest) (*domain.SearchResult, error) {
	start := s.now()

	if len(req.Sources) == 0 && len(s.defaultSources) > 0 {
		req.Sources = s.defaultSources
	}
	req = req.WithDefaults()
	req.Sources = uniqueSources(req.Sources)
	if err := req.Validate(); err != nil {
		return nil, err
	}

	s.searchCache.MaybeCleanup()

	key := searchCacheKey(req)
	if cached, ok := s.searchCache.Get(key); ok {
		s.metrics.RecordCacheLookup(searchCacheName, true)
		s.logger.Debug().Str("query", req.Query).Msg("search cache hit")

		result := copyResult(cached)
		result.SearchTimeMs = s.since(start)
		return result, nil
	}
	s.metrics.RecordCacheLookup(searchCacheName, false)
	s.metrics.RecordSearchStarted()

	perSource := int(math.Ceil(float64(req.Limit) / float64(len(req.Sources))))
	params := sourceParams(req, perSource)

	// In-flight upstream calls run to completion even if the caller goes away.
	results := s.sources.SearchSources(context.WithoutCancel(ctx), params, req.Sources)

	var (
		papers []*domain.Paper
		errs   []string
		total  int
	)
	for _, sr := range results {
		if sr.Error != nil {
			s.metrics.RecordSourceRequest(string(sr.Source), "error", sr.Duration.Seconds())
			logger := observability.WithSearchContext(s.logger, req.Query, string(sr.Source))
			logger.Warn().Err(sr.Error).Msg("source search failed")
			errs = append(errs, fmt.Sprintf("%s: %s", sr.Source, sr.Error.Error()))
			continue
		}

		s.metrics.RecordSourceRequest(string(sr.Source), "success", sr.Duration.Seconds())
		if sr.Result == nil {
			continue
		}
		papers = append(papers, sr.Result.Papers...)
		total += sr.Result.TotalResults
	}

	deduped := dedup.ByDOI(papers)
	s.metrics.RecordDedupMerges(deduped.Merged)

	filtered := filterPapers(deduped.Papers, req)
	sortPapers(filtered, req.Sort)
	if len(filtered) > req.Limit {
		filtered = filtered[:req.Limit]
	}

	result := &domain.SearchResult{
		Papers:       filtered,
		Total:        total,
		Page:         req.Page,
		Pages:        domain.PageCount(total, req.Limit),
		SearchTimeMs: s.since(start),
		Errors:       errs,
	}

	if len(results) > 0 && len(errs) == len(results) {
		s.metrics.RecordSearchFailed()
		s.logger.Warn().Str("query", req.Query).Int("sources", len(results)).Msg("every source failed")
		return result, nil
	}

	s.searchCache.Set(key, copyResult(result), s.searchTTL)
	s.metrics.RecordSearchCompleted(len(result.Papers), float64(result.SearchTimeMs)/1000)

	s.logger.Info().
		Str("query", req.Query).
		Int("papers", len(result.Papers)).
		Int("total", total).
		Int("merged", deduped.Merged).
		Int("failed_sources", len(errs)).
		Int64("search_time_ms", result.SearchTimeMs).
		Msg("search completed")

	return result, nil
}

func (s *Service) since(start time.Time) int64 {
	return s.now().Sub(start).Milliseconds()
}

// sourceParams translates a request into per-source parameters. The page is
// split evenly across sources, so the offset is an approximation of a global
// offset.
func sourceParams(req domain.SearchRequest, perSource int) papersources.SearchParams {
	params := papersources.SearchParams{
		Query:          req.Query,
		Offset:         (req.Page - 1) * perSource,
		Limit:          perSource,
		Sort:           req.Sort,
		OpenAccessOnly: req.AccessType == domain.AccessFilterOpen,
		MinCitations:   req.CitationMin,
	}

	if req.DateRange != nil {
		if from, ok := domain.ParseDate(req.DateRange.From); ok {
			params.DateFrom = &from
		}
		if to, ok := domain.ParseDate(req.DateRange.To); ok {
			params.DateTo = &to
		}
	}

	return params
}

// searchCacheKey covers every field that changes the result. The query is
// used as sent upstream, so queries differing only in case are cached apart.
func searchCacheKey(req domain.SearchRequest) string {
	sources := make([]string, len(req.Sources))
	for i, st := range req.Sources {
		sources[i] = string(st)
	}
	slices.Sort(sources)

	fields := map[string]any{
		"sources":     sources,
		"page":        req.Page,
		"limit":       req.Limit,
		"sort":        req.Sort,
		"accessType":  req.AccessType,
		"citationMin": req.CitationMin,
		"discipline":  req.Discipline,
	}
	if req.DateRange != nil {
		fields["dateRange"] = *req.DateRange
	}

	return cache.SearchKey(req.Query, fields)
}

func uniqueSources(sources []domain.SourceType) []domain.SourceType {
	seen := make(map[domain.SourceType]bool, len(sources))
	out := make([]domain.SourceType, 0, len(sources))
	for _, st := range sources {
		if seen[st] {
			continue
		}
		seen[st] = true
		out = append(out, st)
	}
	return out
}

// copyResult returns a result whose slices can be changed without touching
// r. Papers are shared; they are never mutated after construction.
func copyResult(r *domain.SearchResult) *domain.SearchResult {
	c := *r
	c.Papers = slices.Clone(r.Papers)
	if c.Papers == nil {
		c.Papers = []*domain.Paper{}
	}
	c.Errors = slices.Clone(r.Errors)
	return &c
}

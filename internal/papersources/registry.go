package papersources

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/helixir/paper-aggregator/internal/domain"
)

// SourceResult holds the result of a search from one source.
type SourceResult struct {
	// Source identifies which paper source provided the result.
	Source domain.SourceType

	// Result contains the search results if the search succeeded.
	// Will be nil if Error is non-nil.
	Result *SearchResult

	// Error contains the error if the search failed.
	// Will be nil if Result is non-nil.
	Error error

	// Duration is the wall-clock time the source took.
	Duration time.Duration
}

// Registry manages paper sources and coordinates concurrent searches.
// It is safe for concurrent use.
type Registry struct {
	mu      sync.RWMutex
	sources map[domain.SourceType]PaperSource
}

// NewRegistry creates a new source registry with an empty source map.
func NewRegistry() *Registry {
	return &Registry{
		sources: make(map[domain.SourceType]PaperSource),
	}
}

// Register adds a source to the registry.
// If a source with the same type already exists, it will be replaced.
func (r *Registry) Register(source PaperSource) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sources[source.SourceType()] = source
}

// Get returns a source by type, or nil if not found.
func (r *Registry) Get(sourceType domain.SourceType) PaperSource {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.sources[sourceType]
}

// Enabled returns the enabled source of the given type, or nil.
func (r *Registry) Enabled(sourceType domain.SourceType) PaperSource {
	source := r.Get(sourceType)
	if source == nil || !source.IsEnabled() {
		return nil
	}
	return source
}

// EnabledSources returns every enabled source in domain.AllSources order.
func (r *Registry) EnabledSources() []PaperSource {
	r.mu.RLock()
	defer r.mu.RUnlock()

	sources := make([]PaperSource, 0, len(r.sources))
	for _, st := range domain.AllSources() {
		if source, ok := r.sources[st]; ok && source.IsEnabled() {
			sources = append(sources, source)
		}
	}
	return sources
}

// SearchSources searches the given sources concurrently and waits for all
// of them. If sourceTypes is empty, every enabled source is searched.
// Unknown or disabled source types are skipped.
//
// Results are returned in the order the sources were requested. A failing
// or panicking source yields a SourceResult with Error set and never
// affects the others.
func (r *Registry) SearchSources(ctx context.Context, params SearchParams, sourceTypes []domain.SourceType) []SourceResult {
	var sources []PaperSource

	if len(sourceTypes) == 0 {
		sources = r.EnabledSources()
	} else {
		r.mu.RLock()
		sources = make([]PaperSource, 0, len(sourceTypes))
		seen := make(map[domain.SourceType]bool, len(sourceTypes))
		for _, st := range sourceTypes {
			if seen[st] {
				continue
			}
			seen[st] = true
			if source, ok := r.sources[st]; ok && source.IsEnabled() {
				sources = append(sources, source)
			}
		}
		r.mu.RUnlock()
	}

	if len(sources) == 0 {
		return nil
	}

	results := make([]SourceResult, len(sources))
	var wg sync.WaitGroup

	for i, source := range sources {
		wg.Add(1)
		go func(i int, s PaperSource) {
			defer wg.Done()
			results[i] = searchOne(ctx, s, params)
		}(i, source)
	}

	wg.Wait()
	return results
}

func searchOne(ctx context.Context, s PaperSource, params SearchParams) (res SourceResult) {
	start := time.Now()
	res.Source = s.SourceType()

	defer func() {
		res.Duration = time.Since(start)
		if p := recover(); p != nil {
			res.Result = nil
			res.Error = fmt.Errorf("%s search panicked: %v", s.Name(), p)
		}
	}()

	result, err := s.Search(ctx, params)
	if err != nil {
		res.Error = err
		return res
	}
	if result == nil {
		result = &SearchResult{Source: s.SourceType()}
	}
	res.Result = result
	return res
}

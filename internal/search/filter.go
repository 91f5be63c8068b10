package search

import (
	"sort"
	"strings"
	"time"

	"github.com/helixir/paper-aggregator/internal/domain"
)

// filterPapers applies the access, citation, date and discipline filters of
// req. The result is a new slice; papers are kept in their input order.
func filterPapers(papers []*domain.Paper, req domain.SearchRequest) []*domain.Paper {
	var from, to time.Time
	var hasFrom, hasTo bool
	if req.DateRange != nil {
		from, hasFrom = domain.ParseDate(req.DateRange.From)
		to, hasTo = domain.ParseDate(req.DateRange.To)
	}
	discipline := strings.ToLower(strings.TrimSpace(req.Discipline))

	out := make([]*domain.Paper, 0, len(papers))
	for _, p := range papers {
		if req.AccessType == domain.AccessFilterOpen && p.AccessType != domain.AccessTypeOpen {
			continue
		}
		if p.Citations < req.CitationMin {
			continue
		}
		if hasFrom || hasTo {
			published, ok := p.PublishedAt()
			if !ok {
				continue
			}
			if hasFrom && published.Before(from) {
				continue
			}
			if hasTo && published.After(to) {
				continue
			}
		}
		if discipline != "" && !strings.Contains(strings.ToLower(p.Discipline), discipline) {
			continue
		}
		out = append(out, p)
	}
	return out
}

// sortPapers orders papers in place. Relevance keeps the source rank order.
// Ties keep their input order. Papers without a parseable date sort after
// every dated paper.
func sortPapers(papers []*domain.Paper, order domain.SortOrder) {
	switch order {
	case domain.SortDate:
		sort.SliceStable(papers, func(i, j int) bool {
			ti, okI := papers[i].PublishedAt()
			tj, okJ := papers[j].PublishedAt()
			if okI != okJ {
				return okI
			}
			return ti.After(tj)
		})
	case domain.SortCitations:
		sort.SliceStable(papers, func(i, j int) bool {
			return papers[i].Citations > papers[j].Citations
		})
	}
}

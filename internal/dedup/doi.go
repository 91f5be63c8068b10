// Package dedup collapses papers that different sources report for the same
// work.
//
// Matching is by DOI only. Papers without a DOI are never compared with each
// other, so the same preprint seen by two sources without a DOI survives
// twice.
package dedup

import (
	"strings"

	"github.com/helixir/paper-aggregator/internal/domain"
)

// Result is the outcome of a deduplication pass.
type Result struct {
	// Papers holds one paper per DOI in first-seen order, followed by every
	// paper without a DOI in arrival order.
	Papers []*domain.Paper

	// Merged counts the input papers absorbed into an earlier DOI group.
	Merged int
}

// ByDOI deduplicates papers by DOI. Within a DOI group the paper with the
// strictly higher information score wins and the external ids of every
// member are merged into it, so identifiers found by any source are kept. Input papers are never modified; the winner of a
// replacement is a copy.
func ByDOI(papers []*domain.Paper) Result {
	byDOI := make(map[string]*domain.Paper, len(papers))
	var order []string
	var withoutDOI []*domain.Paper
	merged := 0

	for _, p := range papers {
		if p == nil {
			continue
		}

		key := doiKey(p.ExternalIDs.DOI)
		if key == "" {
			withoutDOI = append(withoutDOI, p)
			continue
		}

		existing, ok := byDOI[key]
		if !ok {
			byDOI[key] = p
			order = append(order, key)
			continue
		}

		merged++
		if p.InformationScore() > existing.InformationScore() {
			winner := p.Clone()
			winner.ExternalIDs = existing.ExternalIDs.Merge(p.ExternalIDs)
			byDOI[key] = winner
			continue
		}

		// The kept paper's identifiers take precedence over the duplicate's.
		if ids := p.ExternalIDs.Merge(existing.ExternalIDs); ids != existing.ExternalIDs {
			kept := existing.Clone()
			kept.ExternalIDs = ids
			byDOI[key] = kept
		}
	}

	out := make([]*domain.Paper, 0, len(order)+len(withoutDOI))
	for _, key := range order {
		out = append(out, byDOI[key])
	}
	out = append(out, withoutDOI...)

	return Result{Papers: out, Merged: merged}
}

// doiKey normalizes a DOI for comparison. DOIs are case-insensitive.
func doiKey(doi string) string {
	return strings.ToLower(domain.NormalizeDOI(doi))
}

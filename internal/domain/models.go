// Package domain provides the normalized paper model, request and result
// types, identifier parsing and the error taxonomy shared by every package.
package domain

import (
	"math"
	"strings"
)

// SourceType identifies the upstream bibliographic API that produced a record.
type SourceType string

const (
	SourceTypeArXiv    SourceType = "arxiv"
	SourceTypePubMed   SourceType = "pubmed"
	SourceTypeCrossRef SourceType = "crossref"
	SourceTypeOpenAlex SourceType = "openalex"
)

// AllSources lists every supported source in default fan-out order.
func AllSources() []SourceType {
	return []SourceType{SourceTypeArXiv, SourceTypePubMed, SourceTypeCrossRef, SourceTypeOpenAlex}
}

// IsValid reports whether s names a supported source.
func (s SourceType) IsValid() bool {
	switch s {
	case SourceTypeArXiv, SourceTypePubMed, SourceTypeCrossRef, SourceTypeOpenAlex:
		return true
	default:
		return false
	}
}

// AccessType describes whether a paper's full text is freely available.
type AccessType string

const (
	AccessTypeOpen       AccessType = "open"
	AccessTypeRestricted AccessType = "restricted"
)

// AccessFilter restricts search results by access type.
type AccessFilter string

const (
	AccessFilterAny  AccessFilter = "any"
	AccessFilterOpen AccessFilter = "open"
)

// SortOrder selects how merged search results are ordered.
type SortOrder string

const (
	SortRelevance SortOrder = "relevance"
	SortDate      SortOrder = "date"
	SortCitations SortOrder = "citations"
)

// IsValid reports whether o is a supported sort order.
func (o SortOrder) IsValid() bool {
	switch o {
	case SortRelevance, SortDate, SortCitations:
		return true
	default:
		return false
	}
}

// CitationFormat names a bibliographic citation style.
type CitationFormat string

const (
	CitationFormatBibTeX CitationFormat = "bibtex"
	CitationFormatAPA    CitationFormat = "apa"
	CitationFormatMLA    CitationFormat = "mla"
)

// IsValid reports whether f is a supported citation format.
func (f CitationFormat) IsValid() bool {
	switch f {
	case CitationFormatBibTeX, CitationFormatAPA, CitationFormatMLA:
		return true
	default:
		return false
	}
}

// Search request defaults and bounds.
const (
	DefaultPage  = 1
	DefaultLimit = 20
	MaxLimit     = 100
)

// DateRange bounds publication dates inclusively. Either end may be empty.
type DateRange struct {
	From string `json:"from"`
	To   string `json:"to"`
}

// SearchRequest is a unified search across one or more sources.
type SearchRequest struct {
	Query       string       `json:"query"`
	Discipline  string       `json:"discipline,omitempty"`
	DateRange   *DateRange   `json:"dateRange,omitempty"`
	AccessType  AccessFilter `json:"accessType,omitempty"`
	CitationMin int          `json:"citationMin,omitempty"`
	Sources     []SourceType `json:"sources,omitempty"`
	Page        int          `json:"page,omitempty"`
	Limit       int          `json:"limit,omitempty"`
	Sort        SortOrder    `json:"sort,omitempty"`
}

// WithDefaults returns a copy of r with zero-valued optional fields filled in.
func (r SearchRequest) WithDefaults() SearchRequest {
	r.Query = strings.TrimSpace(r.Query)
	if r.Page <= 0 {
		r.Page = DefaultPage
	}
	if r.Limit <= 0 {
		r.Limit = DefaultLimit
	}
	if r.Sort == "" {
		r.Sort = SortRelevance
	}
	if r.AccessType == "" {
		r.AccessType = AccessFilterAny
	}
	if len(r.Sources) == 0 {
		r.Sources = AllSources()
	}
	return r
}

// Validate checks a request after defaults have been applied.
func (r SearchRequest) Validate() error {
	if strings.TrimSpace(r.Query) == "" {
		return NewValidationError("query", "must not be empty")
	}
	if r.Page < 1 {
		return NewValidationError("page", "must be at least 1")
	}
	if r.Limit < 1 || r.Limit > MaxLimit {
		return NewValidationError("limit", "must be between 1 and 100")
	}
	if !r.Sort.IsValid() {
		return NewValidationError("sort", "must be one of relevance, date, citations")
	}
	if r.AccessType != AccessFilterAny && r.AccessType != AccessFilterOpen {
		return NewValidationError("accessType", "must be one of open, any")
	}
	if r.CitationMin < 0 {
		return NewValidationError("citationMin", "must not be negative")
	}
	for _, s := range r.Sources {
		if !s.IsValid() {
			return NewValidationError("sources", "unknown source "+string(s))
		}
	}
	if r.DateRange != nil {
		if r.DateRange.From != "" {
			if _, ok := ParseDate(r.DateRange.From); !ok {
				return NewValidationError("dateRange.from", "must be a date")
			}
		}
		if r.DateRange.To != "" {
			if _, ok := ParseDate(r.DateRange.To); !ok {
				return NewValidationError("dateRange.to", "must be a date")
			}
		}
	}
	return nil
}

// SearchResult is one page of merged results. Total sums the totals each
// source reported and is not adjusted for duplicates.
type SearchResult struct {
	Papers       []*Paper `json:"papers"`
	Total        int      `json:"total"`
	Page         int      `json:"page"`
	Pages        int      `json:"pages"`
	SearchTimeMs int64    `json:"searchTimeMs"`
	Errors       []string `json:"errors,omitempty"`
}

// PageCount returns ceil(total/limit).
func PageCount(total, limit int) int {
	if limit <= 0 {
		return 0
	}
	return int(math.Ceil(float64(total) / float64(limit)))
}

// Citation is a formatted reference for a single paper.
type Citation struct {
	Citation string         `json:"citation"`
	Format   CitationFormat `json:"format"`
}

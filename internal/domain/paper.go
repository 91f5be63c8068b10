package domain

import (
	"strings"
	"time"
)

// ExternalIDs holds the identifiers a paper is known by across sources.
// A merged paper may carry identifiers from sources other than its own.
type ExternalIDs struct {
	DOI        string `json:"doi,omitempty"`
	PMID       string `json:"pmid,omitempty"`
	ArXivID    string `json:"arxivId,omitempty"`
	OpenAlexID string `json:"openAlexId,omitempty"`
}

// Merge returns the union of e and other. Non-empty values of other win.
func (e ExternalIDs) Merge(other ExternalIDs) ExternalIDs {
	merged := e
	if other.DOI != "" {
		merged.DOI = other.DOI
	}
	if other.PMID != "" {
		merged.PMID = other.PMID
	}
	if other.ArXivID != "" {
		merged.ArXivID = other.ArXivID
	}
	if other.OpenAlexID != "" {
		merged.OpenAlexID = other.OpenAlexID
	}
	return merged
}

// IsEmpty reports whether no identifier is set.
func (e ExternalIDs) IsEmpty() bool {
	return e == ExternalIDs{}
}

// Author represents a paper author with optional affiliation and ORCID.
type Author struct {
	Name        string `json:"name"`
	Affiliation string `json:"affiliation,omitempty"`
	ORCID       string `json:"orcid,omitempty"`
}

// String returns a formatted string representation of the author.
func (a Author) String() string {
	var sb strings.Builder
	sb.WriteString(a.Name)

	if a.Affiliation != "" {
		sb.WriteString(" (")
		sb.WriteString(a.Affiliation)
		sb.WriteString(")")
	}

	if a.ORCID != "" {
		sb.WriteString(" [")
		sb.WriteString(a.ORCID)
		sb.WriteString("]")
	}

	return sb.String()
}

// Paper is the normalized record every source adapter produces.
// Adapters construct a Paper once; later stages copy rather than mutate it.
type Paper struct {
	ID          string      `json:"id"`
	Title       string      `json:"title"`
	Abstract    string      `json:"abstract"`
	Authors     []Author    `json:"authors"`
	Date        string      `json:"date"`
	Source      SourceType  `json:"source"`
	ExternalIDs ExternalIDs `json:"externalIds"`
	Citations   int         `json:"citations"`
	AccessType  AccessType  `json:"accessType"`
	URL         string      `json:"url"`
	PDFURL      string      `json:"pdfUrl,omitempty"`
	Journal     string      `json:"journal,omitempty"`
	Keywords    []string    `json:"keywords,omitempty"`
	Discipline  string      `json:"discipline,omitempty"`
}

// Clone returns a deep copy of the paper.
func (p *Paper) Clone() *Paper {
	if p == nil {
		return nil
	}
	c := *p
	if p.Authors != nil {
		c.Authors = append([]Author(nil), p.Authors...)
	}
	if p.Keywords != nil {
		c.Keywords = append([]string(nil), p.Keywords...)
	}
	return &c
}

// InformationScore ranks how much metadata a paper carries. It decides which
// record survives when two papers share a DOI.
func (p *Paper) InformationScore() int {
	return len(p.Abstract) + len(p.Authors)*100 + p.Citations
}

// PublishedAt parses the paper date. Year-only and year-month dates are
// accepted and resolve to the first day of the period.
func (p *Paper) PublishedAt() (time.Time, bool) {
	return ParseDate(p.Date)
}

// Year returns the four digit publication year, or "" when unknown.
func (p *Paper) Year() string {
	return ExtractYear(p.Date)
}

// PaperDetail is a paper enriched for single-paper views. The graph fields
// are best-effort and stay empty when their lookups fail.
type PaperDetail struct {
	Paper
	FullText      string   `json:"fullText,omitempty"`
	RelatedPapers []*Paper `json:"relatedPapers"`
	CitedBy       []*Paper `json:"citedBy"`
	References    []*Paper `json:"references"`
}

var dateLayouts = []string{
	"2006-01-02",
	time.RFC3339,
	"2006-01-02T15:04:05Z",
	"2006-01",
	"2006",
}

// ParseDate parses the date formats adapters emit.
func ParseDate(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

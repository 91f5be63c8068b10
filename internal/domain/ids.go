package domain

import (
	"regexp"
	"strings"
)

var (
	arxivIDPattern  = regexp.MustCompile(`^\d{4}\.\d{4,5}`)
	pubmedIDPattern = regexp.MustCompile(`^\d+$`)
)

// PaperRef addresses a paper within one source.
type PaperRef struct {
	Source     SourceType
	ExternalID string
}

// String renders the ref as a composite paper id.
func (r PaperRef) String() string {
	return GeneratePaperID(r.Source, r.ExternalID)
}

// GeneratePaperID builds the composite "<source>:<externalId>" identifier.
func GeneratePaperID(source SourceType, externalID string) string {
	return string(source) + ":" + externalID
}

// ParsePaperID splits a composite id on its first colon. The external id may
// itself contain colons. The source is returned as given and is not checked
// against the known sources.
func ParsePaperID(id string) (PaperRef, error) {
	source, externalID, ok := strings.Cut(id, ":")
	if !ok || source == "" || externalID == "" {
		return PaperRef{}, NewValidationError("paperId", "expected <source>:<externalId>")
	}
	return PaperRef{Source: SourceType(source), ExternalID: externalID}, nil
}

// DetectSource guesses the source of a bare external id from its shape.
// The heuristic is best-effort and can misclassify: old-style arXiv ids
// such as "hep-th/9901001" are reported as CrossRef.
func DetectSource(externalID string) (SourceType, bool) {
	switch {
	case arxivIDPattern.MatchString(externalID):
		return SourceTypeArXiv, true
	case pubmedIDPattern.MatchString(externalID):
		return SourceTypePubMed, true
	case strings.Contains(externalID, "/"):
		return SourceTypeCrossRef, true
	case strings.HasPrefix(externalID, "W"):
		return SourceTypeOpenAlex, true
	default:
		return "", false
	}
}

// ResolvePaperID maps any paper identifier to a source and external id.
// A known source prefix wins; otherwise the shape of the part after the
// first colon is sniffed, then the shape of the whole id.
func ResolvePaperID(id string) (PaperRef, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return PaperRef{}, NewValidationError("paperId", "must not be empty")
	}

	if ref, err := ParsePaperID(id); err == nil {
		if ref.Source.IsValid() {
			return ref, nil
		}
		if source, ok := DetectSource(ref.ExternalID); ok {
			return PaperRef{Source: source, ExternalID: ref.ExternalID}, nil
		}
	}

	if source, ok := DetectSource(id); ok {
		return PaperRef{Source: source, ExternalID: id}, nil
	}

	return PaperRef{}, NewNotFoundError("source for paper", id)
}

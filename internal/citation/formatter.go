// Package citation renders papers as BibTeX, APA and MLA references and
// exports them as CSL-YAML. Formatting is pure: the same paper always
// produces the same string.
package citation

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/helixir/paper-aggregator/internal/domain"
)

const unknownAuthor = "Unknown Author"

// apaMaxListed is the largest author count APA lists in full.
const apaMaxListed = 7

// Format renders paper in the requested style.
func Format(paper *domain.Paper, format domain.CitationFormat) (string, error) {
	if paper == nil {
		return "", fmt.Errorf("formatting citation: %w", domain.ErrInvalidInput)
	}

	switch format {
	case domain.CitationFormatBibTeX:
		return formatBibTeX(paper), nil
	case domain.CitationFormatAPA:
		return formatAPA(paper), nil
	case domain.CitationFormatMLA:
		return formatMLA(paper), nil
	default:
		return "", ValidateFormat(format)
	}
}

// ValidateFormat returns nil for a supported format. Otherwise the error is a
// *domain.ValidationError that also matches domain.ErrUnsupportedFormat.
func ValidateFormat(format domain.CitationFormat) error {
	if format.IsValid() {
		return nil
	}
	return fmt.Errorf("%w: %w",
		domain.NewValidationError("format", fmt.Sprintf("must be one of bibtex, apa, mla; got %q", format)),
		domain.ErrUnsupportedFormat)
}

// FormatAll renders every paper and separates the entries with a blank line.
func FormatAll(papers []*domain.Paper, format domain.CitationFormat) (string, error) {
	entries := make([]string, 0, len(papers))
	for _, p := range papers {
		entry, err := Format(p, format)
		if err != nil {
			return "", err
		}
		entries = append(entries, entry)
	}
	return strings.Join(entries, "\n\n"), nil
}

// formatAuthorName inverts a display name. BibTeX and MLA use
// "Last, First Middle"; APA reduces given names to initials.
func formatAuthorName(name string, format domain.CitationFormat) string {
	parts := strings.Fields(name)
	if len(parts) == 0 {
		return strings.TrimSpace(name)
	}
	if len(parts) == 1 {
		return parts[0]
	}

	last := parts[len(parts)-1]
	given := parts[:len(parts)-1]

	if format == domain.CitationFormatAPA {
		initials := make([]string, len(given))
		for i, g := range given {
			r, _ := utf8.DecodeRuneInString(g)
			initials[i] = string(r) + "."
		}
		return last + ", " + strings.Join(initials, " ")
	}
	return last + ", " + strings.Join(given, " ")
}

func formatAuthors(authors []domain.Author, format domain.CitationFormat) string {
	if len(authors) == 0 {
		return unknownAuthor
	}

	names := make([]string, len(authors))
	for i, a := range authors {
		names[i] = formatAuthorName(a.Name, format)
	}
	n := len(names)

	switch format {
	case domain.CitationFormatBibTeX:
		return strings.Join(names, " and ")

	case domain.CitationFormatAPA:
		switch {
		case n == 1:
			return names[0]
		case n == 2:
			return names[0] + " & " + names[1]
		case n <= apaMaxListed:
			return strings.Join(names[:n-1], ", ") + ", & " + names[n-1]
		default:
			return strings.Join(names[:6], ", ") + ", ... " + names[n-1]
		}

	case domain.CitationFormatMLA:
		switch n {
		case 1:
			return names[0]
		case 2:
			return names[0] + ", and " + names[1]
		default:
			return names[0] + ", et al."
		}
	}

	return strings.Join(names, ", ")
}

// isArXivPreprint reports whether the paper should be cited as an arXiv
// preprint rather than a journal article.
func isArXivPreprint(p *domain.Paper) bool {
	return p.Journal == "" && p.Source == domain.SourceTypeArXiv
}

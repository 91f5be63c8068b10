package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/helixir/paper-aggregator/internal/domain"
)

const maxAuthorsShown = 3

func writeJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// printSearchResult writes one numbered entry per paper to out and the
// per-source failures to errOut.
func printSearchResult(out, errOut io.Writer, r *domain.SearchResult) {
	for _, e := range r.Errors {
		fmt.Fprintf(errOut, "warning: %s\n", e)
	}

	if len(r.Papers) == 0 {
		fmt.Fprintln(out, "No papers found.")
		return
	}

	for i, p := range r.Papers {
		fmt.Fprintf(out, "%d. %s\n", i+1, p.Title)
		fmt.Fprintf(out, "   %s\n", paperLine(p))
		fmt.Fprintf(out, "   %s\n", p.ID)
	}
	fmt.Fprintf(out, "\nPage %d of %d, %d results (%d ms)\n", r.Page, r.Pages, r.Total, r.SearchTimeMs)
}

// paperLine summarises authors, year, venue and counts.
func paperLine(p *domain.Paper) string {
	parts := []string{authorList(p.Authors)}
	if year := p.Year(); year != "" {
		parts = append(parts, year)
	}
	if p.Journal != "" {
		parts = append(parts, p.Journal)
	}
	parts = append(parts, fmt.Sprintf("%d citations", p.Citations))
	if p.AccessType == domain.AccessTypeOpen {
		parts = append(parts, "open access")
	}
	return strings.Join(parts, " · ")
}

func authorList(authors []domain.Author) string {
	if len(authors) == 0 {
		return "Unknown author"
	}
	names := make([]string, 0, maxAuthorsShown)
	for i, a := range authors {
		if i == maxAuthorsShown {
			break
		}
		names = append(names, a.Name)
	}
	list := strings.Join(names, ", ")
	if len(authors) > maxAuthorsShown {
		list += " et al."
	}
	return list
}

// printPaperDetail writes a paper and its graph neighbours.
func printPaperDetail(out io.Writer, d *domain.PaperDetail) {
	p := &d.Paper

	fmt.Fprintln(out, p.Title)
	fmt.Fprintln(out, paperLine(p))
	fmt.Fprintf(out, "id:  %s\n", p.ID)
	if p.ExternalIDs.DOI != "" {
		fmt.Fprintf(out, "doi: %s\n", p.ExternalIDs.DOI)
	}
	if p.URL != "" {
		fmt.Fprintf(out, "url: %s\n", p.URL)
	}
	if p.PDFURL != "" {
		fmt.Fprintf(out, "pdf: %s\n", p.PDFURL)
	}
	if p.Abstract != "" {
		fmt.Fprintf(out, "\n%s\n", p.Abstract)
	}

	printPaperList(out, "Related", d.RelatedPapers)
	printPaperList(out, "Cited by", d.CitedBy)
}

func printPaperList(out io.Writer, heading string, papers []*domain.Paper) {
	if len(papers) == 0 {
		return
	}
	fmt.Fprintf(out, "\n%s:\n", heading)
	for _, p := range papers {
		fmt.Fprintf(out, "  - %s (%s)\n", p.Title, p.ID)
	}
}

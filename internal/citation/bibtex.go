package citation

import (
	"strings"

	"github.com/helixir/paper-aggregator/internal/domain"
)

var citeKeyStopwords = map[string]bool{
	"the":  true,
	"and":  true,
	"for":  true,
	"with": true,
}

func formatBibTeX(p *domain.Paper) string {
	entryType := "article"
	fields := []string{
		bibField("author", formatAuthors(p.Authors, domain.CitationFormatBibTeX)),
		bibField("title", escapeLaTeX(p.Title)),
		bibField("year", p.Year()),
	}

	if p.Journal != "" {
		fields = append(fields, bibField("journal", escapeLaTeX(p.Journal)))
	} else if p.Source == domain.SourceTypeArXiv {
		entryType = "misc"
		fields = append(fields, bibField("howpublished", "arXiv"))
		if p.ExternalIDs.ArXivID != "" {
			fields = append(fields,
				bibField("eprint", p.ExternalIDs.ArXivID),
				bibField("archiveprefix", "arXiv"),
			)
		}
	}

	if p.ExternalIDs.DOI != "" {
		fields = append(fields, bibField("doi", p.ExternalIDs.DOI))
	}
	if p.URL != "" {
		fields = append(fields, bibField("url", p.URL))
	}
	if p.Abstract != "" {
		fields = append(fields, bibField("abstract", escapeLaTeX(p.Abstract)))
	}
	if len(p.Keywords) > 0 {
		fields = append(fields, bibField("keywords", strings.Join(p.Keywords, ", ")))
	}

	return "@" + entryType + "{" + CiteKey(p) + ",\n" + strings.Join(fields, ",\n") + "\n}"
}

func bibField(name, value string) string {
	return "  " + name + " = {" + value + "}"
}

// CiteKey builds the BibTeX key: first author's last name, year (or "nd"),
// and the first significant title word (or "paper").
func CiteKey(p *domain.Paper) string {
	lastName := "unknown"
	if len(p.Authors) > 0 {
		if parts := strings.Fields(p.Authors[0].Name); len(parts) > 0 {
			lastName = strings.ToLower(parts[len(parts)-1])
		}
	}

	year := p.Year()
	if year == "" {
		year = "nd"
	}

	return lastName + year + titleKeyword(p.Title)
}

func titleKeyword(title string) string {
	var sb strings.Builder
	for _, r := range strings.ToLower(title) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			sb.WriteRune(r)
		case r == ' ', r == '\t', r == '\n', r == '\r':
			sb.WriteRune(' ')
		}
	}

	for _, w := range strings.Fields(sb.String()) {
		if len(w) > 3 && !citeKeyStopwords[w] {
			return w
		}
	}
	return "paper"
}

// escapeLaTeX escapes LaTeX special characters in one pass, so braces
// emitted for a backslash are never escaped again.
func escapeLaTeX(s string) string {
	var sb strings.Builder
	sb.Grow(len(s))
	for _, r := range s {
		switch r {
		case '\\':
			sb.WriteString(`\textbackslash{}`)
		case '&', '%', '$', '#', '_', '{', '}':
			sb.WriteByte('\\')
			sb.WriteRune(r)
		case '~':
			sb.WriteString(`\textasciitilde{}`)
		case '^':
			sb.WriteString(`\textasciicircum{}`)
		default:
			sb.WriteRune(r)
		}
	}
	return sb.String()
}

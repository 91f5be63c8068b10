package citation

import (
	"strings"

	"github.com/helixir/paper-aggregator/internal/domain"
)

// formatAPA renders an APA 7 reference:
// Authors (Year). Title. *Journal*. https://doi.org/<doi>
func formatAPA(p *domain.Paper) string {
	year := p.Year()
	if year == "" {
		year = "n.d."
	}

	var sb strings.Builder
	sb.WriteString(formatAuthors(p.Authors, domain.CitationFormatAPA))
	sb.WriteString(" (" + year + "). " + p.Title)

	if p.Journal != "" {
		sb.WriteString(". *" + p.Journal + "*")
	} else if p.Source == domain.SourceTypeArXiv && p.ExternalIDs.ArXivID != "" {
		sb.WriteString(". *arXiv*. https://arxiv.org/abs/" + p.ExternalIDs.ArXivID)
		return sb.String()
	}

	if p.ExternalIDs.DOI != "" {
		sb.WriteString(". " + domain.DOIURL(p.ExternalIDs.DOI))
	} else if p.URL != "" {
		sb.WriteString(". " + p.URL)
	}

	return sb.String()
}

// formatMLA renders an MLA 9 reference:
// Authors. "Title." *Journal*, Year, https://doi.org/<doi>.
func formatMLA(p *domain.Paper) string {
	year := p.Year()
	if year == "" {
		year = "n.d."
	}

	var sb strings.Builder
	authors := formatAuthors(p.Authors, domain.CitationFormatMLA)
	sb.WriteString(authors)
	if !strings.HasSuffix(authors, ".") {
		sb.WriteString(".")
	}
	sb.WriteString(` "` + p.Title + `."`)

	if p.Journal != "" {
		sb.WriteString(" *" + p.Journal + "*,")
	} else if p.Source == domain.SourceTypeArXiv {
		sb.WriteString(" *arXiv*,")
	}

	sb.WriteString(" " + year)

	if p.ExternalIDs.DOI != "" {
		sb.WriteString(", " + domain.DOIURL(p.ExternalIDs.DOI))
	} else if p.URL != "" {
		sb.WriteString(", " + p.URL)
	}

	sb.WriteString(".")
	return sb.String()
}

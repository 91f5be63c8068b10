package citation

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"go.yaml.in/yaml/v3"

	"github.com/helixir/paper-aggregator/internal/domain"
)

// CSLDocument is a CSL-YAML bibliography as read by pandoc and Zotero.
type CSLDocument struct {
	References []CSLItem `yaml:"references"`
}

// CSLItem is one CSL-JSON item in its YAML form.
type CSLItem struct {
	ID             string    `yaml:"id"`
	Type           string    `yaml:"type"`
	Title          string    `yaml:"title"`
	Author         []CSLName `yaml:"author,omitempty"`
	Issued         *CSLDate  `yaml:"issued,omitempty"`
	DOI            string    `yaml:"DOI,omitempty"`
	ContainerTitle string    `yaml:"container-title,omitempty"`
	URL            string    `yaml:"URL,omitempty"`
	Abstract       string    `yaml:"abstract,omitempty"`
	Keyword        string    `yaml:"keyword,omitempty"`
	Number         string    `yaml:"number,omitempty"`
	Publisher      string    `yaml:"publisher,omitempty"`
}

// CSLName is a structured author name. Single-token names use Literal.
type CSLName struct {
	Family  string `yaml:"family,omitempty"`
	Given   string `yaml:"given,omitempty"`
	Literal string `yaml:"literal,omitempty"`
}

// CSLDate holds [[year, month, day]] with trailing parts optional.
type CSLDate struct {
	DateParts [][]int `yaml:"date-parts"`
}

// ToCSL converts a paper to a CSL item keyed by its BibTeX cite key.
func ToCSL(p *domain.Paper) CSLItem {
	item := CSLItem{
		ID:             CiteKey(p),
		Type:           "article-journal",
		Title:          p.Title,
		Author:         cslNames(p.Authors),
		Issued:         cslDate(p.Date),
		DOI:            p.ExternalIDs.DOI,
		ContainerTitle: p.Journal,
		URL:            p.URL,
		Abstract:       p.Abstract,
		Keyword:        strings.Join(p.Keywords, ", "),
	}

	if isArXivPreprint(p) {
		item.Type = "article"
		item.Publisher = "arXiv"
		item.Number = p.ExternalIDs.ArXivID
	}

	return item
}

// WriteCSL writes papers to w as a CSL-YAML document.
func WriteCSL(w io.Writer, papers []*domain.Paper) error {
	doc := CSLDocument{References: make([]CSLItem, 0, len(papers))}
	for _, p := range papers {
		if p == nil {
			continue
		}
		doc.References = append(doc.References, ToCSL(p))
	}

	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(doc); err != nil {
		return fmt.Errorf("encoding CSL-YAML: %w", err)
	}
	if err := enc.Close(); err != nil {
		return fmt.Errorf("flushing CSL-YAML: %w", err)
	}
	return nil
}

func cslNames(authors []domain.Author) []CSLName {
	names := make([]CSLName, 0, len(authors))
	for _, a := range authors {
		parts := strings.Fields(a.Name)
		switch len(parts) {
		case 0:
			continue
		case 1:
			names = append(names, CSLName{Literal: parts[0]})
		default:
			names = append(names, CSLName{
				Family: parts[len(parts)-1],
				Given:  strings.Join(parts[:len(parts)-1], " "),
			})
		}
	}
	return names
}

func cslDate(date string) *CSLDate {
	var parts []int
	for _, s := range strings.SplitN(strings.TrimSpace(date), "-", 3) {
		n, err := strconv.Atoi(s)
		if err != nil {
			break
		}
		parts = append(parts, n)
	}
	if len(parts) == 0 {
		return nil
	}
	return &CSLDate{DateParts: [][]int{parts}}
}

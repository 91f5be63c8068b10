// Package crossref provides a client for the CrossRef REST API.
//
// CrossRef is the DOI registration agency for most scholarly journals. Its
// works endpoint returns bibliographic metadata, licenses and reference
// counts for registered DOIs.
//
// API Documentation: https://api.crossref.org/swagger-ui/index.html
package crossref

// WorksResponse is the envelope returned by the works search endpoint.
type WorksResponse struct {
	Status      string       `json:"status"`
	MessageType string       `json:"message-type"`
	Message     WorksMessage `json:"message"`
}

// WorksMessage holds one page of works.
type WorksMessage struct {
	TotalResults int    `json:"total-results"`
	ItemsPerPage int    `json:"items-per-page"`
	Items        []Work `json:"items"`
}

// WorkResponse is the envelope returned when fetching a single DOI.
type WorkResponse struct {
	Status      string `json:"status"`
	MessageType string `json:"message-type"`
	Message     Work   `json:"message"`
}

// Work is a registered scholarly work.
type Work struct {
	DOI                 string    `json:"DOI"`
	Title               []string  `json:"title"`
	Author              []Author  `json:"author"`
	Abstract            string    `json:"abstract"`
	PublishedPrint      *DateInfo `json:"published-print"`
	PublishedOnline     *DateInfo `json:"published-online"`
	Created             *DateInfo `json:"created"`
	IsReferencedByCount int       `json:"is-referenced-by-count"`
	Type                string    `json:"type"`
	ContainerTitle      []string  `json:"container-title"`
	Subject             []string  `json:"subject"`
	Link                []Link    `json:"link"`
	URL                 string    `json:"URL"`
	License             []License `json:"license"`
}

// Author is a contributor. Organizations carry Name instead of Given/Family.
type Author struct {
	Given       string        `json:"given"`
	Family      string        `json:"family"`
	Name        string        `json:"name"`
	ORCID       string        `json:"ORCID"`
	Affiliation []Affiliation `json:"affiliation"`
}

// Affiliation is an author's institution.
type Affiliation struct {
	Name string `json:"name"`
}

// DateInfo wraps CrossRef's partial dates: [[year, month, day]] where month
// and day may be missing.
type DateInfo struct {
	DateParts [][]int `json:"date-parts"`
}

// Link is a full-text link.
type Link struct {
	URL         string `json:"URL"`
	ContentType string `json:"content-type"`
}

// License describes a license attached to the work.
type License struct {
	URL            string `json:"URL"`
	ContentVersion string `json:"content-version"`
}

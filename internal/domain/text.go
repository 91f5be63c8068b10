package domain

import (
	"html"
	"regexp"
	"strings"
)

var (
	htmlTagRegex    = regexp.MustCompile(`<[^>]*>`)
	whitespaceRegex = regexp.MustCompile(`\s+`)
	yearRegex       = regexp.MustCompile(`\d{4}`)
	doiPrefixRegex  = regexp.MustCompile(`^https?://(dx\.)?doi\.org/`)
)

// CleanHTML strips markup tags, decodes HTML entities and trims. Non-breaking
// spaces become plain spaces.
// Tags are removed before entities are decoded, so encoded markup such as
// "&lt;b&gt;" survives as literal text.
func CleanHTML(s string) string {
	s = htmlTagRegex.ReplaceAllString(s, "")
	s = html.UnescapeString(s)
	s = strings.ReplaceAll(s, "\u00a0", " ")
	return strings.TrimSpace(s)
}

// CollapseWhitespace replaces every whitespace run with a single space and trims.
func CollapseWhitespace(s string) string {
	return strings.TrimSpace(whitespaceRegex.ReplaceAllString(s, " "))
}

// ExtractYear returns the first four-digit run in s, or "".
func ExtractYear(s string) string {
	return yearRegex.FindString(s)
}

// NormalizeDOI strips doi.org URL prefixes and surrounding whitespace.
func NormalizeDOI(doi string) string {
	doi = strings.TrimSpace(doi)
	doi = doiPrefixRegex.ReplaceAllString(doi, "")
	return strings.TrimPrefix(doi, "doi:")
}

// DOIURL returns the resolver URL for a DOI, or "" when doi is empty.
func DOIURL(doi string) string {
	doi = NormalizeDOI(doi)
	if doi == "" {
		return ""
	}
	return "https://doi.org/" + doi
}

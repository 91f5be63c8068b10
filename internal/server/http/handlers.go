package httpserver

import (
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"reflect"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/helixir/paper-aggregator/internal/domain"
	"github.com/helixir/paper-aggregator/internal/observability"
)

const (
	maxQueryLength     = 1000
	maxRequestBodySize = 1 << 20 // 1 MB limit for request bodies
)

// searchRequestBody is the JSON request body of POST /api/search. GET
// /api/search fills the same struct from query parameters.
type searchRequestBody struct {
	Query       string            `json:"query" validate:"required,max=1000"`
	Discipline  string            `json:"discipline,omitempty" validate:"max=200"`
	DateRange   *domain.DateRange `json:"dateRange,omitempty"`
	AccessType  string            `json:"accessType,omitempty" validate:"omitempty,oneof=open any"`
	CitationMin int               `json:"citationMin,omitempty" validate:"gte=0"`
	Sources     []string          `json:"sources,omitempty" validate:"omitempty,dive,oneof=arxiv pubmed crossref openalex"`
	Page        int               `json:"page,omitempty" validate:"gte=0"`
	Limit       int               `json:"limit,omitempty" validate:"gte=0,lte=100"`
	Sort        string            `json:"sort,omitempty" validate:"omitempty,oneof=relevance date citations"`
}

func (b searchRequestBody) toDomain() domain.SearchRequest {
	req := domain.SearchRequest{
		Query:       b.Query,
		Discipline:  b.Discipline,
		DateRange:   b.DateRange,
		AccessType:  domain.AccessFilter(b.AccessType),
		CitationMin: b.CitationMin,
		Page:        b.Page,
		Limit:       b.Limit,
		Sort:        domain.SortOrder(b.Sort),
	}
	for _, s := range b.Sources {
		req.Sources = append(req.Sources, domain.SourceType(s))
	}
	return req
}

// citeRequestBody is the JSON request body of POST /api/cite.
type citeRequestBody struct {
	PaperID string `json:"paperId" validate:"required"`
	Format  string `json:"format" validate:"required,oneof=bibtex apa mla"`
}

// searchPost handles POST /api/search.
func (s *Server) searchPost(w http.ResponseWriter, r *http.Request) {
	var body searchRequestBody
	if !decodeBody(w, r, &body) {
		return
	}
	body.Query = strings.TrimSpace(body.Query)

	if err := s.validate.Struct(body); err != nil {
		writeValidationError(w, r, "invalid search request", validationProblems(err))
		return
	}

	s.runSearch(w, r, body.toDomain())
}

// searchGet handles GET /api/search.
func (s *Server) searchGet(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	body := searchRequestBody{
		Query:      strings.TrimSpace(q.Get("q")),
		Discipline: q.Get("discipline"),
		AccessType: q.Get("access"),
		Sort:       q.Get("sort"),
	}
	if body.Query == "" {
		writeValidationError(w, r, `query parameter "q" is required`, []fieldProblem{{Field: "q", Message: "is required"}})
		return
	}
	if sources := q.Get("sources"); sources != "" {
		for _, src := range strings.Split(sources, ",") {
			if src = strings.TrimSpace(src); src != "" {
				body.Sources = append(body.Sources, src)
			}
		}
	}
	if from, to := q.Get("from"), q.Get("to"); from != "" || to != "" {
		body.DateRange = &domain.DateRange{From: from, To: to}
	}

	var problems []fieldProblem
	for _, p := range []struct {
		name string
		dst  *int
	}{
		{"page", &body.Page},
		{"limit", &body.Limit},
		{"citationMin", &body.CitationMin},
	} {
		if !intParam(q, p.name, p.dst) {
			problems = append(problems, fieldProblem{Field: p.name, Message: "must be an integer"})
		}
	}
	if len(problems) > 0 {
		writeValidationError(w, r, "invalid search request", problems)
		return
	}

	if err := s.validate.Struct(body); err != nil {
		writeValidationError(w, r, "invalid search request", validationProblems(err))
		return
	}

	s.runSearch(w, r, body.toDomain())
}

func (s *Server) runSearch(w http.ResponseWriter, r *http.Request, req domain.SearchRequest) {
	result, err := s.searcher.Search(r.Context(), req)
	if err != nil {
		s.logError(r, err, "search failed")
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, result)
}

// quickSearch handles GET /api/search/quick.
func (s *Server) quickSearch(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	query := strings.TrimSpace(q.Get("q"))
	if len(query) > maxQueryLength {
		writeValidationError(w, r, "invalid quick search", []fieldProblem{{Field: "q", Message: "must be at most 1000 characters"}})
		return
	}
	var limit int
	if !intParam(q, "limit", &limit) {
		writeValidationError(w, r, "invalid quick search", []fieldProblem{{Field: "limit", Message: "must be an integer"}})
		return
	}

	papers, err := s.searcher.QuickSearch(r.Context(), query, limit)
	if err != nil {
		s.logError(r, err, "quick search failed")
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, papersResponse{Papers: papers})
}

// featuredPapers handles GET /api/papers/featured.
func (s *Server) featuredPapers(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, r, http.StatusOK, papersResponse{Papers: s.searcher.FeaturedPapers(r.Context())})
}

// getPaper handles GET /api/papers/*.
func (s *Server) getPaper(w http.ResponseWriter, r *http.Request) {
	id, err := url.PathUnescape(chi.URLParam(r, "*"))
	if err != nil || strings.TrimSpace(id) == "" {
		writeValidationError(w, r, "invalid paper id", []fieldProblem{{Field: "id", Message: "is required"}})
		return
	}

	ctx := observability.WithPaperID(r.Context(), id)
	detail, err := s.searcher.Paper(ctx, id)
	if err != nil {
		s.logError(r.WithContext(ctx), err, "paper lookup failed")
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, detail)
}

// cite handles POST /api/cite.
func (s *Server) cite(w http.ResponseWriter, r *http.Request) {
	var body citeRequestBody
	if !decodeBody(w, r, &body) {
		return
	}
	body.PaperID = strings.TrimSpace(body.PaperID)

	if err := s.validate.Struct(body); err != nil {
		writeValidationError(w, r, "invalid citation request", validationProblems(err))
		return
	}

	ctx := observability.WithPaperID(r.Context(), body.PaperID)
	citation, err := s.searcher.Cite(ctx, body.PaperID, domain.CitationFormat(body.Format))
	if err != nil {
		s.logError(r.WithContext(ctx), err, "citation failed")
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, citation)
}

// logError logs handler failures. Client errors log at debug.
func (s *Server) logError(r *http.Request, err error, msg string) {
	logger := observability.WithRequestContext(r.Context(), s.logger)
	if id := observability.PaperIDFromContext(r.Context()); id != "" {
		logger = logger.With().Str("paper_id", id).Logger()
	}
	if isClientError(err) {
		logger.Debug().Err(err).Msg(msg)
		return
	}
	logger.Error().Err(err).Msg(msg)
}

func isClientError(err error) bool {
	status, _ := errorStatus(err)
	return status < http.StatusInternalServerError && status != http.StatusTooManyRequests
}

// decodeBody reads a size-limited JSON body into dst, writing a 400 on failure.
func decodeBody(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	defer r.Body.Close()
	body, err := io.ReadAll(io.LimitReader(r.Body, maxRequestBodySize))
	if err != nil {
		writeError(w, r, http.StatusBadRequest, "failed to read request body")
		return false
	}
	if err := json.Unmarshal(body, dst); err != nil {
		writeError(w, r, http.StatusBadRequest, "invalid JSON request body")
		return false
	}
	return true
}

// intParam parses an optional integer query parameter into dst. It reports
// false when the parameter is present but not an integer.
func intParam(q url.Values, name string, dst *int) bool {
	raw := strings.TrimSpace(q.Get(name))
	if raw == "" {
		return true
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return false
	}
	*dst = v
	return true
}

// jsonFieldName reports struct fields by their JSON name in validation errors.
func jsonFieldName(fld reflect.StructField) string {
	name, _, _ := strings.Cut(fld.Tag.Get("json"), ",")
	if name == "-" {
		return ""
	}
	return name
}

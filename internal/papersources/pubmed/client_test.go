package pubmed

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/helixir/paper-aggregator/internal/domain"
	"github.com/helixir/paper-aggregator/internal/papersources"
)

const esearchResponseJSON = `{
	"header": {"type": "esearch", "version": "0.3"},
	"esearchresult": {
		"count": "2",
		"retmax": "2",
		"retstart": "0",
		"idlist": ["12345678", "87654321"],
		"querytranslation": "crispr[All Fields]"
	}
}`

const esearchEmptyResponseJSON = `{
	"esearchresult": {
		"count": "0",
		"retmax": "0",
		"retstart": "0",
		"idlist": [],
		"errorlist": {"phrasesnotfound": ["nonexistent_term_xyz"]}
	}
}`

const efetchResponseXML = `<?xml version="1.0" encoding="UTF-8" ?>
<!DOCTYPE PubmedArticleSet PUBLIC "-//NLM//DTD PubMedArticle, 1st January 2019//EN" "https://dtd.nlm.nih.gov/ncbi/pubmed/out/pubmed_190101.dtd">
<PubmedArticleSet>
	<PubmedArticle>
		<MedlineCitation Status="MEDLINE" Owner="NLM">
			<PMID Version="1">12345678</PMID>
			<DateRevised><Year>2023</Year><Month>05</Month><Day>02</Day></DateRevised>
			<Article PubModel="Print-Electronic">
				<Journal>
					<JournalIssue CitedMedium="Internet">
						<Volume>42</Volume>
						<Issue>3</Issue>
						<PubDate><Year>2023</Year><Month>Mar</Month></PubDate>
					</JournalIssue>
					<Title>Nature Biotechnology</Title>
					<ISOAbbreviation>Nat Biotechnol</ISOAbbreviation>
				</Journal>
				<ArticleTitle>Base editing with <i>CRISPR</i> &amp; Cas9</ArticleTitle>
				<ELocationID EIdType="doi" ValidYN="Y">10.1038/nbt.9999</ELocationID>
				<Abstract>
					<AbstractText Label="BACKGROUND">Gene editing is <b>precise</b>.</AbstractText>
					<AbstractText Label="RESULTS">Efficiency reached 90%.</AbstractText>
				</Abstract>
				<AuthorList CompleteYN="Y">
					<Author ValidYN="Y">
						<LastName>Doudna</LastName>
						<ForeName>Jennifer A</ForeName>
						<Initials>JA</Initials>
						<Identifier Source="ORCID">0000-0001-9161-999X</Identifier>
						<AffiliationInfo><Affiliation>UC Berkeley</Affiliation></AffiliationInfo>
						<AffiliationInfo><Affiliation>HHMI</Affiliation></AffiliationInfo>
					</Author>
					<Author ValidYN="Y">
						<CollectiveName>CRISPR Consortium</CollectiveName>
					</Author>
					<Author ValidYN="Y">
						<LastName>Zhang</LastName>
						<ForeName>Feng</ForeName>
					</Author>
				</AuthorList>
			</Article>
			<MeshHeadingList>
				<MeshHeading><DescriptorName UI="D000001">Gene Editing</DescriptorName></MeshHeading>
				<MeshHeading><DescriptorName UI="D000002">CRISPR-Cas Systems</DescriptorName></MeshHeading>
			</MeshHeadingList>
		</MedlineCitation>
		<PubmedData>
			<History>
				<PubMedPubDate PubStatus="received"><Year>2022</Year><Month>11</Month><Day>1</Day></PubMedPubDate>
				<PubMedPubDate PubStatus="pubmed"><Year>2023</Year><Month>3</Month><Day>7</Day></PubMedPubDate>
			</History>
			<ArticleIdList>
				<ArticleId IdType="pubmed">12345678</ArticleId>
				<ArticleId IdType="doi">10.1038/nbt.1234</ArticleId>
			</ArticleIdList>
		</PubmedData>
	</PubmedArticle>
	<PubmedArticle>
		<MedlineCitation Status="MEDLINE" Owner="NLM">
			<PMID Version="1">87654321</PMID>
			<Article PubModel="Print">
				<Journal>
					<JournalIssue>
						<PubDate><Year>2021</Year><Month>Dec</Month><Day>15</Day></PubDate>
					</JournalIssue>
					<ISOAbbreviation>Cell Rep</ISOAbbreviation>
				</Journal>
				<ArticleTitle>Second article</ArticleTitle>
				<ELocationID EIdType="doi" ValidYN="Y">10.1016/j.celrep.2021.1</ELocationID>
			</Article>
		</MedlineCitation>
		<PubmedData>
			<ArticleIdList>
				<ArticleId IdType="pubmed">87654321</ArticleId>
			</ArticleIdList>
		</PubmedData>
	</PubmedArticle>
</PubmedArticleSet>`

const efetchEmptyResponseXML = `<?xml version="1.0" encoding="UTF-8" ?>
<PubmedArticleSet></PubmedArticleSet>`

// newTestClient creates a client configured for testing with the given server URL.
func newTestClient(serverURL string) *Client {
	cfg := Config{
		BaseURL: serverURL,
		Timeout: 5 * time.Second,
		Enabled: true,
	}

	httpClient := papersources.NewHTTPClient(papersources.HTTPClientConfig{
		Timeout:   cfg.Timeout,
		RateLimit: 100,
		BurstSize: 100,
		UserAgent: "TestClient/1.0",
	})

	return NewWithHTTPClient(cfg, httpClient)
}

func TestNew_AppliesDefaults(t *testing.T) {
	client := New(Config{Enabled: true})

	assert.Equal(t, DefaultBaseURL, client.config.BaseURL)
	assert.Equal(t, DefaultTimeout, client.config.Timeout)
	assert.Equal(t, DefaultRateLimit, client.config.RateLimit)
	assert.Equal(t, DefaultBurstSize, client.config.BurstSize)
	assert.Equal(t, DefaultMaxResults, client.config.MaxResults)
}

func TestClient_Metadata(t *testing.T) {
	client := New(Config{Enabled: false})

	assert.Equal(t, domain.SourceTypePubMed, client.SourceType())
	assert.Equal(t, "PubMed", client.Name())
	assert.False(t, client.IsEnabled())

	var _ papersources.PaperSource = client
}

func TestClient_Search(t *testing.T) {
	t.Run("successful search", func(t *testing.T) {
		var efetchCalls int
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			q := r.URL.Query()
			switch {
			case strings.HasSuffix(r.URL.Path, "/esearch.fcgi"):
				assert.Equal(t, "pubmed", q.Get("db"))
				assert.Equal(t, "crispr", q.Get("term"))
				assert.Equal(t, "json", q.Get("retmode"))
				assert.Equal(t, "relevance", q.Get("sort"))
				assert.Equal(t, "20", q.Get("retstart"))
				assert.Equal(t, "10", q.Get("retmax"))
				assert.Empty(t, q.Get("datetype"))
				w.Header().Set("Content-Type", "application/json")
				_, _ = w.Write([]byte(esearchResponseJSON))
			case strings.HasSuffix(r.URL.Path, "/efetch.fcgi"):
				efetchCalls++
				assert.Equal(t, "12345678,87654321", q.Get("id"))
				assert.Equal(t, "xml", q.Get("retmode"))
				assert.Equal(t, "abstract", q.Get("rettype"))
				w.Header().Set("Content-Type", "application/xml")
				_, _ = w.Write([]byte(efetchResponseXML))
			default:
				t.Errorf("unexpected path %s", r.URL.Path)
			}
		}))
		defer server.Close()

		client := newTestClient(server.URL)
		result, err := client.Search(context.Background(), papersources.SearchParams{
			Query:  "crispr",
			Offset: 20,
			Limit:  10,
		})
		require.NoError(t, err)

		assert.Equal(t, 1, efetchCalls)
		assert.Equal(t, 2, result.TotalResults)
		assert.Equal(t, domain.SourceTypePubMed, result.Source)
		require.Len(t, result.Papers, 2)

		p := result.Papers[0]
		assert.Equal(t, "pubmed:12345678", p.ID)
		assert.Equal(t, "Base editing with CRISPR & Cas9", p.Title)
		assert.Equal(t, "Gene editing is precise. Efficiency reached 90%.", p.Abstract)
		assert.Equal(t, "2023-03-07", p.Date)
		assert.Equal(t, "12345678", p.ExternalIDs.PMID)
		assert.Equal(t, "10.1038/nbt.1234", p.ExternalIDs.DOI)
		assert.Equal(t, "https://pubmed.ncbi.nlm.nih.gov/12345678/", p.URL)
		assert.Equal(t, "Nature Biotechnology", p.Journal)
		assert.Equal(t, []string{"Gene Editing", "CRISPR-Cas Systems"}, p.Keywords)
		assert.Equal(t, DefaultDiscipline, p.Discipline)
		assert.Equal(t, domain.AccessTypeOpen, p.AccessType)
		assert.Zero(t, p.Citations)

		require.Len(t, p.Authors, 2)
		assert.Equal(t, domain.Author{
			Name:        "Jennifer A Doudna",
			Affiliation: "UC Berkeley",
			ORCID:       "0000-0001-9161-999X",
		}, p.Authors[0])
		assert.Equal(t, "Feng Zhang", p.Authors[1].Name)

		second := result.Papers[1]
		assert.Equal(t, "10.1016/j.celrep.2021.1", second.ExternalIDs.DOI)
		assert.Equal(t, "2021-12-15", second.Date)
		assert.Equal(t, "Cell Rep", second.Journal)
		assert.Empty(t, second.Authors)
		assert.Equal(t, []string{}, second.Keywords)
	})

	t.Run("empty id list skips efetch", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if strings.HasSuffix(r.URL.Path, "/efetch.fcgi") {
				t.Error("efetch must not be called for an empty page")
			}
			_, _ = w.Write([]byte(esearchEmptyResponseJSON))
		}))
		defer server.Close()

		client := newTestClient(server.URL)
		result, err := client.Search(context.Background(), papersources.SearchParams{Query: "nonexistent_term_xyz"})
		require.NoError(t, err)
		assert.Empty(t, result.Papers)
		assert.Zero(t, result.TotalResults)
	})

	t.Run("date range and identity params", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			q := r.URL.Query()
			assert.Equal(t, "secret", q.Get("api_key"))
			assert.Equal(t, "paper-aggregator", q.Get("tool"))
			assert.Equal(t, "ops@example.org", q.Get("email"))
			if strings.HasSuffix(r.URL.Path, "/esearch.fcgi") {
				assert.Equal(t, "pdat", q.Get("datetype"))
				assert.Equal(t, "2020/01/01", q.Get("mindate"))
				assert.Equal(t, "2021/06/30", q.Get("maxdate"))
				assert.Equal(t, "pub_date", q.Get("sort"))
			}
			_, _ = w.Write([]byte(esearchEmptyResponseJSON))
		}))
		defer server.Close()

		client := newTestClient(server.URL)
		client.config.APIKey = "secret"
		client.config.Tool = "paper-aggregator"
		client.config.Email = "ops@example.org"

		from := time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)
		to := time.Date(2021, 6, 30, 0, 0, 0, 0, time.UTC)
		_, err := client.Search(context.Background(), papersources.SearchParams{
			Query:    "covid",
			DateFrom: &from,
			DateTo:   &to,
			Sort:     domain.SortDate,
		})
		require.NoError(t, err)
	})

	t.Run("server error", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte("maintenance"))
		}))
		defer server.Close()

		client := newTestClient(server.URL)
		_, err := client.Search(context.Background(), papersources.SearchParams{Query: "x"})
		require.Error(t, err)

		var apiErr *domain.ExternalAPIError
		require.True(t, errors.As(err, &apiErr))
		assert.Equal(t, http.StatusServiceUnavailable, apiErr.StatusCode)
		assert.ErrorIs(t, err, domain.ErrServiceUnavailable)
	})

	t.Run("malformed json", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte("{not json"))
		}))
		defer server.Close()

		client := newTestClient(server.URL)
		_, err := client.Search(context.Background(), papersources.SearchParams{Query: "x"})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "failed to parse JSON response")
	})
}

func TestClient_GetByID(t *testing.T) {
	t.Run("found", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.True(t, strings.HasSuffix(r.URL.Path, "/efetch.fcgi"))
			assert.Equal(t, "12345678", r.URL.Query().Get("id"))
			_, _ = w.Write([]byte(efetchResponseXML))
		}))
		defer server.Close()

		client := newTestClient(server.URL)
		paper, err := client.GetByID(context.Background(), "12345678")
		require.NoError(t, err)
		assert.Equal(t, "pubmed:12345678", paper.ID)
	})

	t.Run("not found", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(efetchEmptyResponseXML))
		}))
		defer server.Close()

		client := newTestClient(server.URL)
		_, err := client.GetByID(context.Background(), "1")
		assert.ErrorIs(t, err, domain.ErrNotFound)
	})
}

func TestFormatDate(t *testing.T) {
	tests := []struct {
		name             string
		year, month, day string
		expected         string
	}{
		{"full numeric", "2023", "3", "7", "2023-03-07"},
		{"month name", "2021", "Dec", "15", "2021-12-15"},
		{"full month name", "2019", "September", "", "2019-09-01"},
		{"year only", "2020", "", "", "2020-01-01"},
		{"invalid day", "2020", "02", "99", "2020-02-01"},
		{"missing year", "", "05", "01", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, formatDate(tt.year, tt.month, tt.day))
		})
	}
}

func TestParseMonth(t *testing.T) {
	assert.Equal(t, time.March, parseMonth("3"))
	assert.Equal(t, time.March, parseMonth("Mar"))
	assert.Equal(t, time.October, parseMonth("october"))
	assert.Equal(t, time.January, parseMonth("13"))
	assert.Equal(t, time.January, parseMonth("bogus"))
}

func TestExtractDOI_ELocationFallback(t *testing.T) {
	article := Article{ELocationID: []ELocationID{
		{EIdType: "pii", Value: "S0092"},
		{EIdType: "doi", Valid: "N", Value: "10.bad/1"},
		{EIdType: "doi", Valid: "Y", Value: " 10.good/2 "},
	}}
	assert.Equal(t, "10.good/2", extractDOI(article, PubmedData{}))
}

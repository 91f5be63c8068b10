package main

import (
	"strings"

	"github.com/spf13/cobra"

	"github.com/helixir/paper-aggregator/internal/domain"
)

var searchCmd = &cobra.Command{
	Use:   "search <query>",
	Short: "Run a unified search across the paper sources",
	Long: `Search fans the query out to the selected sources, merges the results,
collapses duplicates by DOI and prints one page. Sources that fail are
reported on stderr; the remaining results are still printed.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		req, err := searchRequestFromFlags(cmd, strings.Join(args, " "))
		if err != nil {
			return err
		}

		result, err := service.Search(cmd.Context(), req)
		if err != nil {
			return err
		}

		if asJSON, _ := cmd.Flags().GetBool("json"); asJSON {
			return writeJSON(cmd.OutOrStdout(), result)
		}
		printSearchResult(cmd.OutOrStdout(), cmd.ErrOrStderr(), result)
		return nil
	},
}

func init() {
	addSearchFlags(searchCmd)

	rootCmd.AddCommand(searchCmd)
}

func addSearchFlags(cmd *cobra.Command) {
	cmd.Flags().StringSlice("sources", nil, "sources to query (arxiv,pubmed,crossref,openalex)")
	cmd.Flags().Int("limit", domain.DefaultLimit, "results per page (max 100)")
	cmd.Flags().Int("page", domain.DefaultPage, "page number")
	cmd.Flags().String("sort", string(domain.SortRelevance), "sort order (relevance, date, citations)")
	cmd.Flags().Bool("open", false, "only open access papers")
	cmd.Flags().Int("min-citations", 0, "minimum citation count")
	cmd.Flags().String("from", "", "publication date range start (YYYY-MM-DD)")
	cmd.Flags().String("to", "", "publication date range end (YYYY-MM-DD)")
	cmd.Flags().String("discipline", "", "discipline filter (substring match)")
	cmd.Flags().Bool("json", false, "output results as JSON")
}

func searchRequestFromFlags(cmd *cobra.Command, query string) (domain.SearchRequest, error) {
	flags := cmd.Flags()

	sources, err := flags.GetStringSlice("sources")
	if err != nil {
		return domain.SearchRequest{}, err
	}
	limit, _ := flags.GetInt("limit")
	page, _ := flags.GetInt("page")
	sortOrder, _ := flags.GetString("sort")
	open, _ := flags.GetBool("open")
	minCitations, _ := flags.GetInt("min-citations")
	from, _ := flags.GetString("from")
	to, _ := flags.GetString("to")
	discipline, _ := flags.GetString("discipline")

	req := domain.SearchRequest{
		Query:       query,
		Discipline:  discipline,
		CitationMin: minCitations,
		Page:        page,
		Limit:       limit,
		Sort:        domain.SortOrder(sortOrder),
		AccessType:  domain.AccessFilterAny,
	}
	if open {
		req.AccessType = domain.AccessFilterOpen
	}
	for _, s := range sources {
		req.Sources = append(req.Sources, domain.SourceType(strings.ToLower(strings.TrimSpace(s))))
	}
	if from != "" || to != "" {
		req.DateRange = &domain.DateRange{From: from, To: to}
	}

	return req, nil
}

package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/helixir/paper-aggregator/internal/citation"
	"github.com/helixir/paper-aggregator/internal/domain"
)

var exportCmd = &cobra.Command{
	Use:   "export <paperId>...",
	Short: "Export papers as a CSL-YAML bibliography",
	Long: `Export looks up each paper and writes them as a CSL-YAML document that
pandoc and Zotero can read. Lookups run in argument order; the first failing
lookup aborts the export.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		papers := make([]*domain.Paper, 0, len(args))
		for _, id := range args {
			detail, err := service.Paper(cmd.Context(), id)
			if err != nil {
				return fmt.Errorf("export %s: %w", id, err)
			}
			papers = append(papers, &detail.Paper)
		}

		var out io.Writer = cmd.OutOrStdout()
		if path, _ := cmd.Flags().GetString("output"); path != "" {
			f, err := os.Create(path)
			if err != nil {
				return fmt.Errorf("create output file: %w", err)
			}
			defer f.Close()
			out = f
		}

		return citation.WriteCSL(out, papers)
	},
}

func init() {
	exportCmd.Flags().StringP("output", "o", "", "write to file instead of stdout")

	rootCmd.AddCommand(exportCmd)
}

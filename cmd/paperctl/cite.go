package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/helixir/paper-aggregator/internal/domain"
)

var citeCmd = &cobra.Command{
	Use:   "cite <paperId>",
	Short: "Print a formatted citation for a paper",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		format, _ := cmd.Flags().GetString("format")

		c, err := service.Cite(cmd.Context(), args[0], domain.CitationFormat(format))
		if err != nil {
			return err
		}
		_, err = fmt.Fprintln(cmd.OutOrStdout(), c.Citation)
		return err
	},
}

func init() {
	citeCmd.Flags().StringP("format", "f", string(domain.CitationFormatBibTeX), "citation format (bibtex, apa, mla)")

	rootCmd.AddCommand(citeCmd)
}

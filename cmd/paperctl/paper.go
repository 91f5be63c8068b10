package main

import (
	"github.com/spf13/cobra"
)

var paperCmd = &cobra.Command{
	Use:   "paper <paperId>",
	Short: "Show a paper with its related and citing works",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		detail, err := service.Paper(cmd.Context(), args[0])
		if err != nil {
			return err
		}

		if asJSON, _ := cmd.Flags().GetBool("json"); asJSON {
			return writeJSON(cmd.OutOrStdout(), detail)
		}
		printPaperDetail(cmd.OutOrStdout(), detail)
		return nil
	},
}

func init() {
	paperCmd.Flags().Bool("json", false, "output the paper as JSON")

	rootCmd.AddCommand(paperCmd)
}

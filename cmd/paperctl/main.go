// Package main is the entry point for the paperctl CLI, which runs unified
// searches, paper lookups and citation formatting without the HTTP server.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/helixir/paper-aggregator/internal/config"
	"github.com/helixir/paper-aggregator/internal/observability"
	"github.com/helixir/paper-aggregator/internal/search"
)

// version is set at build time via ldflags.
var version = "dev"

// service is built from the loaded configuration before any subcommand runs.
var service *search.Service

// rootCmd is the base command for the paperctl CLI.
var rootCmd = &cobra.Command{
	Use:   "paperctl",
	Short: "Search arXiv, PubMed, CrossRef and OpenAlex from the command line",
	Long: `paperctl runs the paper aggregator's unified search, paper lookup and
citation formatting directly against the upstream APIs.

Paper ids take the form <source>:<id>, for example arxiv:1706.03762,
pubmed:31452104, crossref:10.1038/nature14539 or openalex:W2741809807.
Bare DOIs, PMIDs, arXiv ids and OpenAlex work ids are recognised too.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if cmd.Name() == versionCmd.Name() {
			return nil
		}

		cfgFile, _ := cmd.Flags().GetString("config")
		cfg, err := config.LoadFile(cfgFile)
		if err != nil {
			return err
		}

		verbose, _ := cmd.Flags().GetBool("verbose")
		service = newService(cfg, verbose)
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().String("config", "", "config file (default: ./config.yaml, ./config/config.yaml or /etc/paper-aggregator/config.yaml)")
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "log source requests to stderr")
}

// newService wires the search service with logging to stderr. Metrics are
// not collected for one-shot commands.
func newService(cfg *config.Config, verbose bool) *search.Service {
	logCfg := cfg.Logging.LoggerConfig()
	logCfg.Format = "console"
	logCfg.Level = zerolog.WarnLevel.String()
	if verbose {
		logCfg.Level = zerolog.DebugLevel.String()
	}
	logger := observability.NewLoggerTo(os.Stderr, logCfg)

	return search.New(search.Config{
		Sources:        cfg.Sources.NewRegistry(),
		DefaultSources: cfg.DefaultSources(),
		SearchTTL:      cfg.Cache.SearchTTL,
		PaperTTL:       cfg.Cache.PaperTTL,
		Logger:         logger,
	})
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		stop()
		os.Exit(1)
	}
}

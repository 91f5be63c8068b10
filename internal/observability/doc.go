// Package observability provides logging and metrics support for the
// paper aggregator.
//
// # Logging
//
// Create a logger from configuration:
//
//	logger := observability.NewLogger(observability.LoggingConfig{
//	    Level:   "info",
//	    Format:  "json",
//	    Service: "paper-aggregator",
//	})
//	logger = observability.WithRequestContext(ctx, logger)
//	logger.Info().Str("source", "arxiv").Msg("search finished")
//
// # Metrics
//
// NewMetrics registers every collector with the default Prometheus
// registry under the given namespace; NewMetricsWith takes an explicit
// registry. A nil *Metrics accepts every Record call and does nothing.
//
//	metrics := observability.NewMetrics("paper_aggregator")
//	metrics.RecordSourceRequest("pubmed", "success", 0.42)
//
// # Standard Fields
//
//   - request_id: HTTP request correlation identifier
//   - query: search query
//   - source: paper source (arxiv, pubmed, crossref, openalex)
//   - paper_id: composite paper identifier
package observability

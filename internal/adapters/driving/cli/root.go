// Package cli implements the command-line driving adapter. Commands are
// thin: they parse flags, call the core services through their driving
// ports, and format output.
package cli

import (
	"github.com/spf13/cobra"

	"github.com/apidex-labs/apidex/internal/core/ports/driven"
	"github.com/apidex-labs/apidex/internal/core/ports/driving"
	"github.com/apidex-labs/apidex/internal/logger"
)

// version is set at build time via -ldflags.
var version = "dev"

// Services wired in by the composition root before Execute.
var (
	searchService driving.SearchService
	ingestService driving.IngestService
	profileStore  driven.ProfileStore
	documentStore driven.DocumentStore
)

var verbose bool

var rootCmd = &cobra.Command{
	Use:   "apidex",
	Short: "Hybrid search over an API catalog",
	Long: `apidex indexes normalised API specifications and answers natural
language queries with a hybrid retrieval pipeline: BM25 keyword search and
vector similarity search run in parallel, candidates are merged, re-ranked
by a cross-encoder, and scored on text relevance, performance, geography,
freshness, permissions, history, and popularity.`,
	PersistentPreRun: func(_ *cobra.Command, _ []string) {
		logger.SetVerbose(verbose)
	},
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
}

// Wiring carries the service implementations the commands depend on.
type Wiring struct {
	Search    driving.SearchService
	Ingest    driving.IngestService
	Profiles  driven.ProfileStore
	Documents driven.DocumentStore
}

// Configure installs the services the commands will use. Call once from
// the composition root before Execute.
func Configure(w Wiring) {
	searchService = w.Search
	ingestService = w.Ingest
	profileStore = w.Profiles
	documentStore = w.Documents
}

// Execute runs the root command. The composition root passes the build
// version for the version subcommand.
func Execute(buildVersion string) error {
	if buildVersion != "" {
		version = buildVersion
	}
	return rootCmd.Execute()
}

package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/apidex-labs/apidex/internal/core/domain"
)

var (
	searchLimit      int
	searchJSON       bool
	searchEnv        string
	searchRegion     string
	searchExcludePII bool
	searchScopes     []string
	userScopes       []string
	userRegion       string
)

var searchCmd = &cobra.Command{
	Use:   "search [query]",
	Short: "Search the API catalog",
	Long: `Performs hybrid search across all indexed API specifications.
Combines keyword (BM25) and semantic (vector) search, then ranks results
on text relevance, endpoint performance, geography, freshness, permission
fit, historical success, and popularity.`,
	Args: cobra.ExactArgs(1),
	RunE: runSearch,
}

func init() {
	searchCmd.Flags().IntVarP(&searchLimit, "limit", "n", 10, "maximum number of results")
	searchCmd.Flags().BoolVar(&searchJSON, "json", false, "output results as JSON")
	searchCmd.Flags().StringVar(&searchEnv, "env", "", "restrict to one environment (dev, staging, prod)")
	searchCmd.Flags().StringVar(&searchRegion, "region", "", "restrict to one deployment region")
	searchCmd.Flags().BoolVar(&searchExcludePII, "exclude-pii", false, "drop endpoints that handle personal data")
	searchCmd.Flags().StringSliceVar(&searchScopes, "within-scopes", nil, "keep only endpoints whose required scopes are within this set")
	searchCmd.Flags().StringSliceVar(&userScopes, "user-scopes", nil, "OAuth scopes held by the caller, for permission-fit scoring")
	searchCmd.Flags().StringVar(&userRegion, "user-region", "", "caller's home region, for geography scoring")
	rootCmd.AddCommand(searchCmd)
}

func runSearch(cmd *cobra.Command, args []string) error {
	query := args[0]

	if searchService == nil {
		return errors.New("search service not configured")
	}

	opts := domain.SearchOptions{
		Limit: searchLimit,
		Filters: domain.FilterSet{
			Environment:  domain.Environment(searchEnv),
			Region:       searchRegion,
			ExcludePII:   searchExcludePII,
			WithinScopes: searchScopes,
		},
		User: domain.UserContext{
			GrantedScopes: userScopes,
			Region:        userRegion,
		},
	}

	resp, err := searchService.Search(cmd.Context(), query, opts)
	if err != nil {
		return fmt.Errorf("search failed: %w", err)
	}

	if searchJSON {
		return outputSearchJSON(cmd, resp)
	}

	return outputSearchTable(cmd, resp)
}

func outputSearchJSON(cmd *cobra.Command, resp *domain.SearchResponse) error {
	data, err := json.MarshalIndent(resp, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal results: %w", err)
	}
	cmd.Println(string(data))
	return nil
}

func outputSearchTable(cmd *cobra.Command, resp *domain.SearchResponse) error {
	if resp.Degraded.Any() {
		cmd.Printf("Degraded: %s\n", degradationNotice(resp.Degraded))
	}

	if len(resp.Results) == 0 {
		cmd.Println("No results found.")
		return nil
	}

	cmd.Println("Results:")
	cmd.Println()
	for i := range resp.Results {
		r := &resp.Results[i]
		doc := r.Document

		cmd.Printf("  [%d] %s (%.3f)\n", i+1, r.DocumentID, r.FinalScore)
		cmd.Printf("      %s %s", doc.SourceType, doc.Environment)
		if doc.Region != "" {
			cmd.Printf(" %s", doc.Region)
		}
		if doc.OwnerSystem != "" {
			cmd.Printf("  owner: %s", doc.OwnerSystem)
		}
		cmd.Println()
		c := r.Components
		cmd.Printf("      text %.2f  perf %.2f  geo %.2f  fresh %.2f  perm %.2f  hist %.2f  pop %.2f\n",
			c.TextRelevance, c.Performance, c.Geography, c.Freshness,
			c.PermissionFit, c.HistoricalSuccess, c.Popularity)
		if len(r.Citations) > 0 && r.Citations[0].Snippet != "" {
			cmd.Printf("      %s\n", r.Citations[0].Snippet)
		}
		cmd.Println()
	}

	return nil
}

// degradationNotice renders the Degraded flags as a short comma list.
func degradationNotice(d domain.Degradation) string {
	parts := make([]string, 0, 3)
	if d.VectorSearch {
		parts = append(parts, "vector search skipped")
	}
	if d.Rerank {
		parts = append(parts, "re-ranking skipped")
	}
	if d.Deadline {
		parts = append(parts, "deadline expired")
	}
	return strings.Join(parts, ", ")
}

package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/sercha-music/internal/adapters/driving/tui/styles"
	"github.com/custodia-labs/sercha-music/internal/core/domain"
)

var searchCmd = &cobra.Command{
	Use:   "search [query]",
	Short: "Search the library in plain language",
	Long: `Finds the songs in your library that best match a natural-language query.

Songs are retrieved by embedding similarity. When nothing clears the
similarity threshold, a language model reads the whole library in chunks
and picks the best matches instead. Each result carries a short reason.

Examples:
  sercha-music search "songs for a rainy sunday"
  sercha-music search -n 5 --no-reasoning "upbeat 80s synth"`,
	Args: cobra.ExactArgs(1),
	RunE: runSearch,
}

func init() {
	searchCmd.Flags().IntP("limit", "n", domain.DefaultResultCount, "number of songs to return")
	searchCmd.Flags().Int("chunk-size", domain.DefaultChunkSize, "songs per language-model call when reducing")
	searchCmd.Flags().Float64("threshold", domain.DefaultSimilarityThreshold, "minimum embedding similarity (0-1)")
	searchCmd.Flags().Bool("no-reasoning", false, "skip per-song explanations")
	searchCmd.Flags().Bool("json", false, "output results as JSON")
	rootCmd.AddCommand(searchCmd)
}

func runSearch(cmd *cobra.Command, args []string) error {
	if err := requireEngine(); err != nil {
		return err
	}

	opts, err := searchOptions(cmd)
	if err != nil {
		return err
	}
	query := domain.Query{Text: args[0], Options: opts}
	if err := query.Validate(); err != nil {
		return err
	}

	result, err := searchService.Search(cmd.Context(), query)
	if err != nil {
		return fmt.Errorf("search failed: %w", err)
	}

	if asJSON, _ := cmd.Flags().GetBool("json"); asJSON {
		return outputSearchJSON(cmd.OutOrStdout(), result)
	}
	outputSearchText(cmd.OutOrStdout(), result)
	return nil
}

// searchOptions starts from the configured defaults and applies the flags
// the user set explicitly.
func searchOptions(cmd *cobra.Command) (domain.SearchOptions, error) {
	opts := searchDefaults()
	flags := cmd.Flags()

	if flags.Changed("limit") {
		n, err := flags.GetInt("limit")
		if err != nil {
			return opts, err
		}
		opts.ResultCount = n
	}
	if flags.Changed("chunk-size") {
		n, err := flags.GetInt("chunk-size")
		if err != nil {
			return opts, err
		}
		opts.ChunkSize = n
	}
	if flags.Changed("threshold") {
		t, err := flags.GetFloat64("threshold")
		if err != nil {
			return opts, err
		}
		opts.SimilarityThreshold = t
	}
	if off, _ := flags.GetBool("no-reasoning"); off {
		opts.UseReasoning = false
	}
	return opts, nil
}

func outputSearchJSON(w io.Writer, result *domain.SearchResult) error {
	data, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal results: %w", err)
	}
	_, err = fmt.Fprintln(w, string(data))
	return err
}

func outputSearchText(w io.Writer, result *domain.SearchResult) {
	s := styles.DefaultStyles()

	if len(result.Items) == 0 {
		fmt.Fprintln(w, "No matching songs found.")
		return
	}

	fmt.Fprintln(w, s.Title.Render(fmt.Sprintf("%d songs for %q", len(result.Items), result.Query.Text)))
	if result.FellBack {
		fmt.Fprintln(w, s.Muted.Render("No song cleared the similarity threshold; ranked the full library instead."))
	}
	fmt.Fprintln(w)

	for i := range result.Items {
		item := &result.Items[i]
		line := s.Rank.Render(fmt.Sprintf("%d.", i+1)) + s.Song.Render(item.Title)
		if item.ContributorNames() != "" {
			line += " - " + item.ContributorNames()
		}
		fmt.Fprintln(w, line)

		var details []string
		if item.Collection != "" {
			details = append(details, item.Collection)
		}
		if item.ExternalLink != "" {
			details = append(details, item.ExternalLink)
		}
		if len(details) > 0 {
			fmt.Fprintln(w, "    "+s.Muted.Render(strings.Join(details, "  ")))
		}
		if item.Reasoning != "" {
			fmt.Fprintln(w, s.Reasoning.Render(item.Reasoning))
		}
	}

	fmt.Fprintln(w)
	fmt.Fprintln(w, s.Muted.Render(fmt.Sprintf("%s search, %s", result.Strategy, formatUsage(result.Usage))))
}

func formatUsage(u domain.TokenUsage) string {
	return fmt.Sprintf("%d tokens in, %d out over %d requests", u.InputTokens, u.OutputTokens, u.RequestCount)
}

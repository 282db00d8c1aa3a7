package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/markdave123-py/officerag/internal/models"
)

var (
	queryTopK       int
	queryJSON       bool
	querySearchOnly bool
)

var queryCmd = &cobra.Command{
	Use:   "query [question]",
	Short: "Answer a question from the ingested documents",
	Long: `Embeds the question, retrieves the closest chunks and asks the generation
backend for an answer grounded on them. --search-only prints the chunks
without generating.`,
	Args: cobra.ExactArgs(1),
	RunE: runQuery,
}

func init() {
	queryCmd.Flags().IntVarP(&queryTopK, "top-k", "k", 0, "number of chunks to retrieve (0 uses TOP_K)")
	queryCmd.Flags().BoolVar(&queryJSON, "json", false, "output the result as JSON")
	queryCmd.Flags().BoolVar(&querySearchOnly, "search-only", false, "print matches without generating an answer")
	rootCmd.AddCommand(queryCmd)
}

func runQuery(cmd *cobra.Command, args []string) error {
	if err := requireServices(); err != nil {
		return err
	}

	if querySearchOnly {
		matches, err := queries.Search(cmd.Context(), args[0], queryTopK)
		if err != nil {
			return fmt.Errorf("search failed: %w", err)
		}
		if queryJSON {
			return printJSON(cmd, matches)
		}
		printMatches(cmd, matches)
		return nil
	}

	answer, err := queries.Answer(cmd.Context(), args[0], queryTopK)
	if err != nil {
		return fmt.Errorf("query failed: %w", err)
	}
	if queryJSON {
		return printJSON(cmd, answer)
	}
	if answer.Answer != "" {
		cmd.Println(answer.Answer)
		cmd.Println()
	}
	printMatches(cmd, answer.References)
	return nil
}

func printMatches(cmd *cobra.Command, matches []models.Match) {
	cmd.Println("References:")
	for i, m := range matches {
		cmd.Printf("  [%d] %s %s (%.3f)\n", i+1, m.Filename, matchLocator(m), m.Score)
	}
}

func matchLocator(m models.Match) string {
	switch {
	case m.Page != nil:
		return fmt.Sprintf("page %d", *m.Page)
	case m.Slide != nil:
		return fmt.Sprintf("slide %d", *m.Slide)
	case m.Sheet != nil && m.StartRow != nil && m.EndRow != nil:
		return fmt.Sprintf("sheet %s rows %d-%d", *m.Sheet, *m.StartRow, *m.EndRow)
	case m.Sheet != nil:
		return "sheet " + *m.Sheet
	default:
		return ""
	}
}

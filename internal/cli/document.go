package cli

import (
	"encoding/json"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/markdave123-py/officerag/internal/models"
)

var listJSON bool

var ingestCmd = &cobra.Command{
	Use:   "ingest [file...]",
	Short: "Ingest local files",
	Long: `Stores each file, chunks it, embeds the chunks and writes them to the vector
index. Files are processed one after another; a failure stops the run.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runIngest,
}

var deleteCmd = &cobra.Command{
	Use:   "delete [filename]",
	Short: "Delete a document and its vectors",
	Args:  cobra.ExactArgs(1),
	RunE:  runDelete,
}

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List ingested documents",
	Args:  cobra.NoArgs,
	RunE:  runList,
}

func init() {
	listCmd.Flags().BoolVar(&listJSON, "json", false, "output documents as JSON")
	rootCmd.AddCommand(ingestCmd, deleteCmd, listCmd)
}

func runIngest(cmd *cobra.Command, args []string) error {
	if err := requireServices(); err != nil {
		return err
	}
	for _, path := range args {
		doc, err := ingestor.IngestFile(cmd.Context(), path)
		if err != nil {
			return fmt.Errorf("ingest %s: %w", path, err)
		}
		cmd.Printf("%s: %s, %d chunks\n", doc.Filename, doc.Status, doc.TotalChunks)
	}
	return nil
}

func runDelete(cmd *cobra.Command, args []string) error {
	if err := requireServices(); err != nil {
		return err
	}
	if err := ingestor.Delete(cmd.Context(), args[0]); err != nil {
		return fmt.Errorf("delete %s: %w", args[0], err)
	}
	cmd.Printf("deleted %s\n", args[0])
	return nil
}

func runList(cmd *cobra.Command, _ []string) error {
	if err := requireServices(); err != nil {
		return err
	}
	docs, err := ingestor.List(cmd.Context())
	if err != nil {
		return err
	}
	if listJSON {
		return printJSON(cmd, docs)
	}
	if len(docs) == 0 {
		cmd.Println("No documents.")
		return nil
	}
	tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "FILENAME\tFORMAT\tSTATUS\tCHUNKS\tLOCATOR")
	for _, d := range docs {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%s\n", d.Filename, d.Format, d.Status, d.TotalChunks, locatorSummary(d))
	}
	return tw.Flush()
}

func locatorSummary(d models.Document) string {
	switch {
	case d.TotalPages != nil:
		return fmt.Sprintf("%d pages", *d.TotalPages)
	case d.TotalSlides != nil:
		return fmt.Sprintf("%d slides", *d.TotalSlides)
	case len(d.SheetNames) > 0:
		return fmt.Sprintf("%d sheets", len(d.SheetNames))
	default:
		return "-"
	}
}

func printJSON(cmd *cobra.Command, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal output: %w", err)
	}
	cmd.Println(string(data))
	return nil
}

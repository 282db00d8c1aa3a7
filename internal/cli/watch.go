package cli

import (
	"log/slog"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/markdave123-py/officerag/internal/watcher"
)

var watchDebounce time.Duration

var watchCmd = &cobra.Command{
	Use:   "watch [dir]",
	Short: "Keep a directory in sync with the index",
	Long: `Watches the directory, then ingests every supported file in it that is not
indexed yet. New or changed files are re-ingested and removed files are
deleted from the index. Runs until interrupted.`,
	Args: cobra.ExactArgs(1),
	RunE: runWatch,
}

func init() {
	watchCmd.Flags().DurationVar(&watchDebounce, "debounce", 500*time.Millisecond, "quiet period before a changed file is processed")
	rootCmd.AddCommand(watchCmd)
}

func runWatch(cmd *cobra.Command, args []string) error {
	if err := requireServices(); err != nil {
		return err
	}
	w := watcher.New(args[0])
	w.Debounce = watchDebounce

	cmd.Printf("watching %s\n", args[0])
	return w.Sync(cmd.Context(), ingestor, func(c watcher.Change, err error) {
		if err != nil {
			slog.Error("sync failed", "path", c.Path, "change", c.Type.String(), "error", err)
			return
		}
		cmd.Printf("%s %s\n", c.Type, filepath.Base(c.Path))
	})
}

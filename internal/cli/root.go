package cli

import (
	"context"
	"errors"
	"os"

	"github.com/spf13/cobra"

	"github.com/markdave123-py/officerag/internal/app"
	"github.com/markdave123-py/officerag/internal/config"
	"github.com/markdave123-py/officerag/internal/logging"
	"github.com/markdave123-py/officerag/internal/models"
)

// DocumentIngestor is the coordinator surface the commands drive.
type DocumentIngestor interface {
	IngestFile(ctx context.Context, path string) (*models.Document, error)
	Delete(ctx context.Context, filename string) error
	List(ctx context.Context) ([]models.Document, error)
	Get(ctx context.Context, filename string) (*models.Document, error)
}

// QueryRunner answers questions and runs bare similarity searches.
type QueryRunner interface {
	Answer(ctx context.Context, question string, topK int) (*models.Answer, error)
	Search(ctx context.Context, text string, topK int) ([]models.Match, error)
}

var (
	ingestor DocumentIngestor
	queries  QueryRunner
	closeApp func() error

	configFile string
)

var rootCmd = &cobra.Command{
	Use:   "officerag",
	Short: "Ingest office documents and query them",
	Long: `officerag chunks PDF, spreadsheet, presentation and word-processing files,
embeds the chunks into a vector index and answers questions from them.
Backends are chosen through the same environment variables as the API server.`,
	SilenceUsage:       true,
	PersistentPreRunE:  wireServices,
	PersistentPostRunE: closeServices,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "YAML file with chunking settings (overrides CONFIG_FILE)")
}

// Execute runs the root command.
func Execute(ctx context.Context) error {
	rootCmd.SetOut(os.Stdout)
	return rootCmd.ExecuteContext(ctx)
}

// wireServices builds the application unless services were injected already.
func wireServices(cmd *cobra.Command, _ []string) error {
	if ingestor != nil && queries != nil {
		return nil
	}
	if configFile != "" {
		if err := os.Setenv("CONFIG_FILE", configFile); err != nil {
			return err
		}
	}
	cfg := config.LoadConfig()
	logging.Setup(cfg.LogJSON)
	if err := cfg.Validate(); err != nil {
		return err
	}

	a, err := app.NewApp(cmd.Context(), cfg)
	if err != nil {
		return err
	}
	ingestor, queries, closeApp = a.Coordinator, a.Queries, a.Close
	return nil
}

func closeServices(*cobra.Command, []string) error {
	if closeApp == nil {
		return nil
	}
	err := closeApp()
	closeApp = nil
	return err
}

func requireServices() error {
	if ingestor == nil || queries == nil {
		return errors.New("services not configured")
	}
	return nil
}

package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/brightpath/assistant/core/retrieval"
)

var (
	backfillContent string
	backfillMock    bool
)

// contentItem is one entry of the backfill content file.
type contentItem struct {
	SourceID string   `yaml:"id"`
	Kind     string   `yaml:"kind"`
	Content  string   `yaml:"content"`
	Title    string   `yaml:"title"`
	Slug     string   `yaml:"slug"`
	Parents  []string `yaml:"parents"`
}

// fileSource serves backfill candidates from a YAML content dump.
type fileSource struct {
	items []contentItem
}

func (s *fileSource) MissingEmbeddings(_ context.Context, existing map[string]bool) ([]*retrieval.Record, error) {
	var records []*retrieval.Record
	for _, item := range s.items {
		id := retrieval.ContentID(retrieval.Kind(item.Kind), item.SourceID)
		if existing[id] {
			continue
		}
		records = append(records, &retrieval.Record{
			ID:      id,
			Content: item.Content,
			Metadata: retrieval.Metadata{
				Kind:      retrieval.Kind(item.Kind),
				Title:     item.Title,
				Slug:      item.Slug,
				ParentIDs: item.Parents,
			},
		})
	}
	return records, nil
}

var backfillCmd = &cobra.Command{
	Use:   "backfill",
	Short: "Embed content that has no stored vector yet",
	Long:  `Backfill scans a content dump, embeds anything missing from the store in batches, and persists the results. It only runs when invoked explicitly.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		data, err := os.ReadFile(backfillContent)
		if err != nil {
			return fmt.Errorf("read content file: %w", err)
		}
		var items []contentItem
		if err := yaml.Unmarshal(data, &items); err != nil {
			return fmt.Errorf("parse content file: %w", err)
		}

		a, err := buildApp(backfillMock, "")
		if err != nil {
			return err
		}
		defer a.close()

		backfiller := retrieval.NewBackfiller(a.store, &fileSource{items: items}, a.cfg.Retrieval.BatchSize, a.logger)
		stats, err := backfiller.Run(cmd.Context())
		if err != nil {
			return err
		}

		fmt.Printf("scanned %d, embedded %d, upserted %d in %d batches (%d skipped, %d failed)\n",
			stats.Scanned, stats.Embedded, stats.Upserted, stats.Batches, stats.Skipped, stats.Failed)
		return nil
	},
}

func init() {
	backfillCmd.Flags().StringVar(&backfillContent, "content", "", "path to YAML content dump")
	backfillCmd.Flags().BoolVar(&backfillMock, "mock", false, "run without provider credentials")
	backfillCmd.MarkFlagRequired("content")
	rootCmd.AddCommand(backfillCmd)
}

package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"campaignforge/internal/datasource"
	"campaignforge/internal/embedding"
	"campaignforge/internal/retrieval"
)

var indexFromGCS bool

var indexCmd = &cobra.Command{
	Use:   "index [corpus-dir]",
	Short: "Embed the CSV corpus into the retrieval index",
	Long: `Reads every CSV in the corpus directory, flattens each row to text,
embeds it, and stores it in the sqlite index. Re-running only adds rows that
are not already indexed. With --gcs the corpus is read from the configured
bucket instead of local disk, using the argument as object prefix.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		dir := cfg.DataDir
		if len(args) > 0 {
			dir = args[0]
		}

		ctx := context.Background()

		embProvider := cfg.EmbeddingProvider
		if embProvider == "" {
			embProvider = cfg.Provider
		}
		engine, err := embedding.NewEngine(ctx, embedding.Config{
			Provider:      embProvider,
			GeminiAPIKey:  cfg.GeminiAPIKey,
			GeminiModel:   cfg.EmbeddingModel,
			OpenAIAPIKey:  cfg.OpenAIAPIKey,
			OpenAIBaseURL: cfg.OpenAIBaseURL,
			OpenAIModel:   cfg.EmbeddingModel,
		})
		if err != nil {
			return fmt.Errorf("failed to create embedding engine: %w", err)
		}

		index, err := retrieval.Open(cfg.VectorDBPath, engine)
		if err != nil {
			return err
		}
		defer index.Close()

		var added int
		source := dir
		if indexFromGCS {
			if cfg.GCSBucket == "" {
				return fmt.Errorf("GCS_BUCKET is not configured")
			}
			reader, err := datasource.NewGCSReader(ctx, cfg.GCSBucket)
			if err != nil {
				return err
			}
			defer reader.Close()

			prefix := ""
			if len(args) > 0 {
				prefix = args[0]
			}
			docs, err := retrieval.LoadCorpusGCS(ctx, reader, prefix)
			if err != nil {
				return err
			}
			added, err = index.Add(ctx, docs)
			if err != nil {
				return err
			}
			source = "gs://" + cfg.GCSBucket + "/" + prefix
		} else {
			added, err = retrieval.BuildIndex(ctx, index, dir)
			if err != nil {
				return err
			}
		}

		total, err := index.Count(ctx)
		if err != nil {
			return err
		}

		fmt.Printf("Indexed %d new documents (%d total) from %s\n", added, total, source)
		return nil
	},
}

func init() {
	indexCmd.Flags().BoolVar(&indexFromGCS, "gcs", false, "read the corpus from the configured GCS bucket")
	rootCmd.AddCommand(indexCmd)
}

package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"time"

	"github.com/spf13/cobra"

	"campaignforge/internal/datasource"
	"campaignforge/internal/embedding"
	"campaignforge/internal/llm"
	"campaignforge/internal/mailer"
	"campaignforge/internal/models"
	"campaignforge/internal/pipeline"
	"campaignforge/internal/retrieval"
	"campaignforge/internal/websearch"
)

var (
	runDomain   string
	runProvider string
	sendEmails  bool
)

var runCmd = &cobra.Command{
	Use:   "run <goal>",
	Short: "Run the full campaign pipeline for a goal and print each stage",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
		defer stop()

		deps, cleanup, err := buildDeps(ctx)
		if err != nil {
			return err
		}
		defer cleanup()

		st := models.CampaignState{
			Goal:     args[0],
			Domain:   models.ParseDomain(runDomain),
			Provider: models.ParseProvider(runProvider),
		}

		runner := pipeline.NewRunner(deps, time.Duration(cfg.StepDelaySeconds)*time.Second)

		events := make(chan pipeline.Event, len(pipeline.Stages()))
		done := make(chan pipeline.Outcome, 1)
		go func() {
			done <- runner.Run(ctx, st, events)
			close(events)
		}()

		for ev := range events {
			fmt.Printf("\n===== %s =====\n%s\n", ev.Stage, ev.Stage.Output(ev.State))
		}

		outcome := <-done
		fmt.Printf("\nStatus: %s\n", outcome.Status)
		if outcome.Err != nil {
			return fmt.Errorf("pipeline stopped at %s: %w", outcome.FailedStage, outcome.Err)
		}
		return nil
	},
}

// buildDeps wires the pipeline dependencies from the environment. Missing
// optional pieces (index, web search, SMTP) leave nil deps and the stages
// degrade accordingly.
func buildDeps(ctx context.Context) (pipeline.Deps, func(), error) {
	cleanup := func() {}

	backend, err := llm.NewBackendForProvider(ctx, runProvider, llm.BackendConfig{
		GeminiAPIKey:  cfg.GeminiAPIKey,
		GeminiModel:   cfg.GeminiModel,
		OpenAIAPIKey:  cfg.OpenAIAPIKey,
		OpenAIBaseURL: cfg.OpenAIBaseURL,
		OpenAIModel:   cfg.OpenAIModel,
		Timeout:       time.Duration(cfg.RequestTimeoutSeconds) * time.Second,
	})
	if err != nil {
		return pipeline.Deps{}, cleanup, err
	}

	policy := llm.DefaultRetryPolicy()
	policy.MaxAttempts = cfg.MaxRetries
	deps := pipeline.Deps{LLM: llm.NewClient(backend, policy)}

	embProvider := cfg.EmbeddingProvider
	if embProvider == "" {
		embProvider = runProvider
	}
	if engine, err := embedding.NewEngine(ctx, embedding.Config{
		Provider:      embProvider,
		GeminiAPIKey:  cfg.GeminiAPIKey,
		GeminiModel:   cfg.EmbeddingModel,
		OpenAIAPIKey:  cfg.OpenAIAPIKey,
		OpenAIBaseURL: cfg.OpenAIBaseURL,
		OpenAIModel:   cfg.EmbeddingModel,
	}); err == nil {
		if index, err := retrieval.Open(cfg.VectorDBPath, engine); err == nil {
			deps.Index = index
			cleanup = func() { index.Close() }
		}
	}

	if cfg.SerperAPIKey != "" {
		deps.Web = websearch.NewSerperClient(cfg.SerperAPIKey)
	}

	if sendEmails {
		if cfg.RecipientsFile != "" {
			deps.Recipients = datasource.NewCSVRecipientSource(cfg.RecipientsFile)
		}
		if sender, err := mailer.NewSMTPSender(mailer.SMTPConfig{
			Server:   cfg.SMTPHost,
			Port:     cfg.SMTPPort,
			Sender:   cfg.SenderEmail,
			Password: cfg.SMTPPassword,
		}); err == nil {
			deps.Mailer = sender
		}
	}

	return deps, cleanup, nil
}

func init() {
	runCmd.Flags().StringVar(&runDomain, "domain", "automotive", "campaign vertical: automotive, healthcare or energy")
	runCmd.Flags().StringVar(&runProvider, "provider", "gemini", "generation provider: gemini or openai")
	runCmd.Flags().BoolVar(&sendEmails, "send-emails", false, "actually deliver emails in the final stage")
	rootCmd.AddCommand(runCmd)
}

package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"

	"campaignforge/internal/api"
	"campaignforge/internal/config"
	"campaignforge/internal/datasource"
	"campaignforge/internal/embedding"
	"campaignforge/internal/llm"
	"campaignforge/internal/logger"
	"campaignforge/internal/mailer"
	"campaignforge/internal/models"
	"campaignforge/internal/pipeline"
	"campaignforge/internal/retrieval"
	"campaignforge/internal/run"
	"campaignforge/internal/store"
	"campaignforge/internal/websearch"
)

func main() {
	cfg := config.Load()
	logger.Setup(cfg.LogLevel)

	ctx := context.Background()

	st, err := store.NewPostgresStore(cfg.DatabaseURL)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create PostgreSQL store")
	}
	defer st.Close()

	policy := llm.DefaultRetryPolicy()
	policy.MaxAttempts = cfg.MaxRetries

	// One client per configured provider, so each campaign runs on the
	// provider it was created with.
	clients := make(map[models.Provider]*llm.Client)
	if cfg.GeminiAPIKey != "" {
		backend, err := llm.NewGeminiBackend(ctx, cfg.GeminiAPIKey, cfg.GeminiModel)
		if err != nil {
			log.Warn().Err(err).Msg("Gemini backend unavailable")
		} else {
			clients[models.ProviderGemini] = llm.NewClient(backend, policy)
		}
	}
	if cfg.OpenAIAPIKey != "" {
		backend := llm.NewOpenAIBackend(cfg.OpenAIAPIKey, cfg.OpenAIBaseURL, cfg.OpenAIModel,
			time.Duration(cfg.RequestTimeoutSeconds)*time.Second)
		clients[models.ProviderOpenAI] = llm.NewClient(backend, policy)
	}

	defaultClient := clients[models.ParseProvider(cfg.Provider)]
	if defaultClient == nil {
		log.Fatal().Str("provider", cfg.Provider).Msg("No generation backend configured for the default provider")
	}

	deps := pipeline.Deps{LLM: defaultClient, Clients: clients}

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
		log.Warn().Err(err).Msg("Embedding engine unavailable, stages run without retrieval context")
	} else {
		index, err := retrieval.Open(cfg.VectorDBPath, engine)
		if err != nil {
			log.Warn().Err(err).Msg("Retrieval index unavailable, stages run without retrieval context")
		} else {
			defer index.Close()
			deps.Index = index
		}
	}

	if cfg.SerperAPIKey != "" {
		deps.Web = websearch.NewSerperClient(cfg.SerperAPIKey)
	}

	if cfg.RecipientsFile != "" {
		deps.Recipients = datasource.NewCSVRecipientSource(cfg.RecipientsFile)
	}

	if sender, err := mailer.NewSMTPSender(mailer.SMTPConfig{
		Server:   cfg.SMTPHost,
		Port:     cfg.SMTPPort,
		Sender:   cfg.SenderEmail,
		Password: cfg.SMTPPassword,
	}); err != nil {
		log.Warn().Err(err).Msg("SMTP not configured, email stage will report missing credentials")
	} else {
		deps.Mailer = sender
	}

	runner := pipeline.NewRunner(deps, time.Duration(cfg.StepDelaySeconds)*time.Second)
	manager := run.NewManager(st, runner)

	handler := api.NewCampaignHandler(manager)
	streamHandler := api.NewStreamHandler(manager)
	router := api.SetupRoutes(handler, streamHandler, cfg.FEBaseURL)

	srv := &http.Server{
		Addr:         cfg.ServerAddr,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
		<-sigChan

		log.Info().Msg("Shutting down server...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Error().Err(err).Msg("Server shutdown failed")
		}
	}()

	log.Info().Str("addr", cfg.ServerAddr).Str("provider", cfg.Provider).Msg("Starting server")
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Fatal().Err(err).Msg("Server failed")
	}
}

package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"

	"partschat/internal/config"
	"partschat/internal/engine"
	"partschat/internal/extract"
	"partschat/internal/llm"
	"partschat/internal/logger"
	"partschat/internal/memory"
	"partschat/internal/prompt"
	"partschat/internal/services"
	"partschat/internal/storage"
	"partschat/pkg"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	// .env is optional; real deployments set the environment directly.
	_ = godotenv.Load()

	cfg, err := config.LoadConfig("config.yaml")
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	log, err := logger.New(cfg.Log)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}

	ctx := context.Background()

	chat, err := llm.NewChatModel(ctx, llm.Config{
		Provider:    cfg.Completion.Provider,
		Model:       cfg.Completion.Model,
		APIKey:      cfg.Completion.APIKey,
		BaseURL:     cfg.Completion.BaseURL,
		Temperature: cfg.Completion.Temperature,
		MaxTokens:   cfg.Completion.MaxTokens,
	})
	if err != nil {
		return fmt.Errorf("failed to create chat model: %w", err)
	}
	client := llm.NewClient(chat, llm.Config{
		Model:       cfg.Completion.Model,
		Temperature: cfg.Completion.Temperature,
		MaxTokens:   cfg.Completion.MaxTokens,
		Timeout:     cfg.CompletionTimeout(),
	}, log)

	transcripts, closeTranscripts, err := newTranscripts(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer closeTranscripts()

	search := services.NewCatalogSearch(log)
	inventory := services.NewInventory(log)
	tickets := services.NewTickets(inventory, log)
	registry, err := services.NewActionRegistry(services.Bundle{
		Search:    search,
		Inventory: inventory,
		Tickets:   tickets,
	}, log)
	if err != nil {
		return fmt.Errorf("failed to build action registry: %w", err)
	}

	store := memory.NewStore(log)
	eng := engine.New(
		store,
		prompt.NewSynthesizer(time.Now),
		client,
		registry,
		transcripts,
		extract.Lexicon(cfg.Lexicon),
		engine.Config{
			Model:             cfg.Completion.Model,
			RefineModel:       cfg.Completion.RefineModel,
			Temperature:       cfg.Completion.Temperature,
			MaxTokens:         cfg.Completion.MaxTokens,
			CompletionTimeout: cfg.CompletionTimeout(),
			EnableLearning:    cfg.Engine.EnableLearning,
			MemoryMaxAge:      time.Duration(cfg.Engine.MemoryMaxAgeHours) * time.Hour,
			SpecialOffers:     cfg.Business.SpecialOffers,
		},
		log,
	)
	fastpath := engine.NewFastPath(eng, search, log)

	idle := time.Duration(cfg.Engine.IdleTimeoutMinutes) * time.Minute
	go reapLoop(eng, idle, log)

	return chatLoop(ctx, fastpath, eng, cfg.Business.DefaultPointOfSale, log)
}

func newTranscripts(ctx context.Context, cfg *config.Config, log zerolog.Logger) (storage.TranscriptRepository, func(), error) {
	if !cfg.Redis.Enabled {
		return storage.NewMemoryTranscripts(), func() {}, nil
	}

	ttl := time.Duration(cfg.Redis.TTLSeconds) * time.Second
	repo, err := storage.NewRedisTranscripts(ctx, cfg.Redis.URL, ttl)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create redis transcripts: %w", err)
	}
	log.Info().Str("url", cfg.Redis.URL).Msg("redis transcript cache enabled")
	return repo, func() { _ = repo.Close() }, nil
}

func reapLoop(eng *engine.Engine, idle time.Duration, log zerolog.Logger) {
	ticker := time.NewTicker(10 * time.Minute)
	defer ticker.Stop()
	for range ticker.C {
		reaped := eng.ReapIdleConversations(idle)
		stats := eng.Stats()
		log.Debug().Int("reaped", reaped).Int("active", stats.ActiveConversations).Msg("idle sweep")
	}
}

func chatLoop(ctx context.Context, fastpath *engine.FastPath, eng *engine.Engine, pointOfSale string, log zerolog.Logger) error {
	conversationID := uuid.NewString()
	userID := "demo-user"

	fmt.Println("Birlo — asistente de refacciones (escribe 'salir' para terminar)")
	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print("> ")
		if !scanner.Scan() {
			break
		}
		message := strings.TrimSpace(scanner.Text())
		if message == "" {
			continue
		}
		if strings.EqualFold(message, "salir") {
			break
		}

		resp := fastpath.Process(ctx, pkg.TurnRequest{
			ConversationID: conversationID,
			UserID:         userID,
			Message:        message,
			PointOfSaleID:  pointOfSale,
		})

		fmt.Printf("\n%s\n", resp.Text)
		if len(resp.Suggestions) > 0 {
			fmt.Printf("\nSugerencias: %s\n", strings.Join(resp.Suggestions, " | "))
		}
		fmt.Println()

		log.Debug().
			Str("intent", string(resp.Intent)).
			Int64("response_time_ms", resp.Metrics.ResponseTimeMS).
			Float64("confidence", resp.Metrics.ConfidenceScore).
			Msg("turn complete")
	}

	stats := eng.Stats()
	log.Info().Int("turns", stats.TotalProcessed).Msg("session finished")
	return scanner.Err()
}

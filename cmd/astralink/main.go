// Package main boots the Astralink reply service and wires application
// dependencies. It runs a local stdin chat loop against one persona.
package main

import (
	"bufio"
	"context"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/astralinkhq/astralink/internal/config"
	"github.com/astralinkhq/astralink/internal/llm"
	"github.com/astralinkhq/astralink/internal/memory"
	"github.com/astralinkhq/astralink/internal/persona"
	"github.com/astralinkhq/astralink/internal/pipeline"
	"github.com/astralinkhq/astralink/internal/repository"
	"github.com/astralinkhq/astralink/internal/types"
)

func main() {
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	cfg := config.Load()
	slog.Info("configuration loaded", "chat_model", cfg.ChatModel, "embedding_model", cfg.EmbeddingModel)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store, err := repository.NewStore(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("failed to connect to database: %v", err)
	}
	defer store.Close()

	embedder, err := memory.NewEmbedder(ctx, cfg.GoogleAPIKey, cfg.EmbeddingModel)
	if err != nil {
		log.Fatalf("failed to create embedder: %v", err)
	}

	completer, err := llm.NewOpenAICompleter(cfg.OpenAIAPIKey, cfg.ChatModel)
	if err != nil {
		log.Fatalf("failed to create completion client: %v", err)
	}
	criticCompleter, err := llm.NewOpenAICompleter(cfg.OpenAIAPIKey, cfg.CriticModel)
	if err != nil {
		log.Fatalf("failed to create critic client: %v", err)
	}
	memoryCompleter, err := llm.NewGenAICompleter(ctx, cfg.GoogleAPIKey, cfg.MemoryModel)
	if err != nil {
		log.Fatalf("failed to create memory client: %v", err)
	}

	retriever := memory.NewRetriever(embedder, store.Memories, store.Events, cfg.TopKMemories, cfg.TopKEvents, cfg.SimilarityThreshold)
	schedule := pipeline.Schedule{MaxAttempts: cfg.RewriteAttempts, Step: 0.15}

	orchestrator := pipeline.NewOrchestrator(
		store.Personas,
		retriever,
		store.Events,
		embedder,
		persona.NewFingerprintBuilder(completer),
		persona.NewAdaptationEngine(store.Feedback),
		pipeline.NewContentPlanner(completer),
		pipeline.NewStyleRewriter(completer, schedule),
		pipeline.NewCritic(criticCompleter),
		pipeline.NewReranker(embedder, pipeline.NewCentroidCache()),
		memory.NewExtractor(memoryCompleter, store.Memories, embedder),
		laneTemperatures(cfg.RewriteLanes),
	)

	if cfg.PersonaID == "" || cfg.UserID == "" {
		log.Fatal("PERSONA_ID and USER_ID environment variables are required for the chat loop")
	}

	fmt.Println("astralink ready. Type a message, or /quit to exit.")
	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print("> ")
		if !scanner.Scan() {
			break
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if line == "/quit" {
			break
		}

		resp, err := orchestrator.Reply(ctx, types.ReplyRequest{
			UserID:    cfg.UserID,
			PersonaID: cfg.PersonaID,
			Message:   line,
		})
		if err != nil {
			slog.Error("reply failed", "error", err.Error())
			continue
		}
		if resp.Fallback {
			slog.Info("served fallback reply", "reply_id", resp.ReplyID)
		}
		fmt.Println(resp.Text)
	}

	fmt.Println("bye")
}

// laneTemperatures spreads the configured number of rewrite lanes across
// a fixed temperature band.
func laneTemperatures(lanes int) []float64 {
	if lanes <= 0 {
		lanes = 3
	}
	temps := make([]float64, lanes)
	for i := range temps {
		temps[i] = 0.9 - 0.2*float64(i)
		if temps[i] < 0.1 {
			temps[i] = 0.1
		}
	}
	return temps
}

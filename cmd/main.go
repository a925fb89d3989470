package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"docqa/internal/config"
	"docqa/internal/embedding"
	"docqa/internal/llmservice"
	"docqa/internal/rag"
	"docqa/internal/server"
	"docqa/internal/summarizer"
	"docqa/internal/vectorstore"
	"docqa/internal/vectorstore/chromem"
	"docqa/internal/vectorstore/memory"
	"docqa/internal/vectorstore/pgvector"
	"docqa/internal/vectorstore/qdrant"
)

const configFilePath = "./configs/config.yaml"

func main() {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	zerolog.SetGlobalLevel(zerolog.InfoLevel)
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339}).With().Caller().Logger()

	configPath := flag.String("config", configFilePath, "Path to the config file")
	reset := flag.Bool("reset", false, "Drop the vector collection and exit")
	debug := flag.Bool("debug", false, "Enable debug logging")
	flag.Parse()

	if *debug {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	}

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		log.Fatal().Err(err).Msg("Error loading config")
	}

	store, err := newStore(cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("Error creating vector store")
	}

	if *reset {
		if err := store.Drop(context.Background()); err != nil {
			log.Fatal().Err(err).Msg("Error dropping collection")
		}
		log.Info().Str("collection", cfg.VectorStore.Collection).Msg("Collection dropped")
		return
	}

	embedder, err := embedding.New(cfg.Embedding)
	if err != nil {
		log.Fatal().Err(err).Msg("Error initializing embedder")
	}

	llm, err := llmservice.New(cfg.Summarizer.LLM, cfg.Summarizer.Timeout())
	if err != nil {
		log.Fatal().Err(err).Msg("Error initializing LLM client")
	}

	counter, err := summarizer.TiktokenCounter(cfg.Summarizer.TokenEncoding)
	if err != nil {
		log.Fatal().Err(err).Msg("Error loading tokenizer")
	}

	themes := summarizer.New(llm, counter, cfg.Summarizer.TokenBudget, cfg.Summarizer.Temperature)

	svc := rag.NewService(store, embedder, themes, rag.Options{
		TopK:           cfg.RAG.TopK,
		ScoreThreshold: cfg.RAG.ScoreThreshold,
		ChunkSize:      cfg.RAG.ChunkSize,
		ChunkOverlap:   cfg.RAG.ChunkOverlap,
	})

	srv := &http.Server{
		Addr:    cfg.Server.Addr,
		Handler: server.New(svc).Handler(),
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		log.Info().Str("addr", cfg.Server.Addr).Str("store", cfg.VectorStore.Provider).Msg("Server listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("Server failed")
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Error shutting down server")
	}
}

func newStore(cfg *config.Config) (vectorstore.Store, error) {
	vs := cfg.VectorStore
	switch vs.Provider {
	case "qdrant":
		return qdrant.New(qdrant.Config{
			URL:        vs.Qdrant.URL,
			APIKey:     vs.Qdrant.APIKey,
			Collection: vs.Collection,
			Timeout:    vs.Qdrant.Timeout(),
		}), nil
	case "chromem":
		return chromem.New(chromem.Config{
			Path:       vs.Chromem.Path,
			Collection: vs.Collection,
			InMemory:   vs.Chromem.InMemory,
			Compress:   vs.Chromem.Compress,
		})
	case "pgvector":
		return pgvector.Connect(pgvector.Config{
			URL:   vs.Database.URL,
			Key:   vs.Database.Key,
			Debug: vs.Database.Debug,
		}), nil
	case "memory":
		return memory.New(), nil
	default:
		return nil, fmt.Errorf("unknown vector store provider: %s", vs.Provider)
	}
}

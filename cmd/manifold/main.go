package main

import (
	"context"
	"flag"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/abelprasad/Manifold/internal/config"
	"github.com/abelprasad/Manifold/internal/embedding"
	"github.com/abelprasad/Manifold/internal/extractor"
	"github.com/abelprasad/Manifold/internal/helper"
	"github.com/abelprasad/Manifold/internal/index"
	"github.com/abelprasad/Manifold/internal/pipeline"
	"github.com/abelprasad/Manifold/internal/recognizer"
	"github.com/abelprasad/Manifold/internal/search"
)

func main() {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	zerolog.SetGlobalLevel(zerolog.InfoLevel)
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339}).With().Caller().Logger()

	configPath := flag.String("config", "./configs/config.yaml", "Path to the config file")
	query := flag.String("query", "", "Query to run against the ingested documents")
	topK := flag.Int("top-k", 0, "Number of results to return (default from config)")
	showStats := flag.Bool("stats", false, "Print corpus statistics after ingestion")
	debug := flag.Bool("debug", false, "Enable debug logging")
	flag.Parse()

	if *debug {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	}

	files := flag.Args()
	if len(files) == 0 {
		log.Fatal().Msg("Provide at least one document to ingest: manifold [flags] <file>...")
	}

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		log.Fatal().Err(err).Msg("Error loading config")
	}
	log.Debug().Interface("config", cfg).Msg("Loaded config")

	embedder, err := embedding.NewEmbedder(&cfg.EmbedLLM)
	if err != nil {
		log.Fatal().Err(err).Msg("Error initializing embedder")
	}

	var rec extractor.Recognizer
	if cfg.Recognizer.Enabled {
		r, err := recognizer.NewLLMRecognizer(&cfg.Recognizer.LLM)
		if err != nil {
			log.Fatal().Err(err).Msg("Error initializing recognizer")
		}
		rec = r
	}

	timeout := time.Duration(cfg.ProviderTimeoutSecs) * time.Second
	idx, err := index.New(embedder, timeout)
	if err != nil {
		log.Fatal().Err(err).Msg("Error creating corpus index")
	}

	svc := pipeline.New(extractor.New(rec), idx, cfg.Search.ChunkWindow)
	engine := search.NewEngine(idx, embedder, search.Options{
		Timeout:           timeout,
		HighlightTopK:     cfg.Search.HighlightTopK,
		HighlightMinScore: cfg.Search.HighlightMinScore,
	})

	ctx := context.Background()
	for _, path := range files {
		data, err := os.ReadFile(path)
		if err != nil {
			log.Fatal().Err(err).Msgf("Error reading %s", path)
		}
		doc, err := svc.Ingest(ctx, filepath.Base(path), data)
		if err != nil {
			// A failed upload aborts that document only.
			log.Error().Err(err).Msgf("Error ingesting %s", path)
			continue
		}
		doc.Pages = nil
		helper.PrettyPrint(doc)
	}

	if *showStats {
		helper.PrettyPrint(idx.Stats())
	}

	if *query != "" {
		k := *topK
		if k <= 0 {
			k = cfg.Search.DefaultTopK
		}
		results, err := engine.Search(ctx, *query, k)
		if err != nil {
			log.Fatal().Err(err).Msg("Error searching")
		}
		log.Info().Str("query", *query).Int("results", len(results)).Msg("Search results")
		helper.PrettyPrint(results)
	}
}

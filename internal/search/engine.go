// Package search ranks the corpus against natural-language queries and
// extracts query-relevant sub-spans from matched chunks.
package search

import (
	"context"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/tmc/langchaingo/embeddings"

	"github.com/abelprasad/Manifold/internal/index"
	"github.com/abelprasad/Manifold/internal/models"
)

// Options tunes the engine. Unset values fall back to the defaults below;
// HighlightMinScore is a pointer so an explicit zero threshold sticks.
type Options struct {
	Timeout           time.Duration
	HighlightTopK     int
	HighlightMinScore *float64
}

const (
	defaultHighlightTopK     = 8
	defaultHighlightMinScore = 0.25
)

type Engine struct {
	idx               *index.Index
	embedder          embeddings.Embedder
	timeout           time.Duration
	highlightTopK     int
	highlightMinScore float64
	log               zerolog.Logger
}

func NewEngine(idx *index.Index, embedder embeddings.Embedder, opts Options) *Engine {
	if opts.HighlightTopK == 0 {
		opts.HighlightTopK = defaultHighlightTopK
	}
	minScore := defaultHighlightMinScore
	if opts.HighlightMinScore != nil {
		minScore = *opts.HighlightMinScore
	}
	return &Engine{
		idx:               idx,
		embedder:          embedder,
		timeout:           opts.Timeout,
		highlightTopK:     opts.HighlightTopK,
		highlightMinScore: minScore,
		log:               log.With().Str("component", "search").Logger(),
	}
}

// Search embeds the query once, scores every indexed chunk, and returns the
// top-k results sorted descending by raw similarity with ties broken by
// ascending chunk id. The call is read-only with respect to the corpus
// index; on error no partial result set is returned.
func (e *Engine) Search(ctx context.Context, query string, topK int) ([]models.SearchResult, error) {
	if topK <= 0 {
		return nil, &models.ValidationError{Field: "top_k", Reason: "must be a positive integer"}
	}
	if strings.TrimSpace(query) == "" {
		return nil, &models.ValidationError{Field: "query", Reason: "must not be blank"}
	}
	if e.idx.Count() == 0 {
		return nil, models.ErrEmptyCorpus
	}

	start := time.Now()
	queryEmbedding, err := e.embedQuery(ctx, query)
	if err != nil {
		return nil, err
	}

	scored, err := e.idx.Query(ctx, queryEmbedding)
	if err != nil {
		return nil, err
	}

	sort.SliceStable(scored, func(i, j int) bool {
		if scored[i].Similarity != scored[j].Similarity {
			return scored[i].Similarity > scored[j].Similarity
		}
		return scored[i].ChunkID < scored[j].ChunkID
	})
	if topK > len(scored) {
		topK = len(scored)
	}

	results := make([]models.SearchResult, 0, topK)
	for _, sc := range scored[:topK] {
		highlights, err := e.highlightWithEmbedding(ctx, queryEmbedding, sc.Text, e.highlightTopK, e.highlightMinScore)
		if err != nil {
			return nil, err
		}
		results = append(results, models.SearchResult{
			ChunkID:            sc.ChunkID,
			PageNum:            sc.PageNum,
			Filename:           sc.Filename,
			Text:               sc.Text,
			SimilarityScore:    float64(sc.Similarity),
			ScorePercentage:    scorePercentage(sc.Similarity),
			SemanticHighlights: highlights,
		})
	}

	e.log.Debug().
		Str("query", query).
		Int("results", len(results)).
		Dur("elapsed", time.Since(start)).
		Msg("search completed")
	return results, nil
}

func (e *Engine) embedQuery(ctx context.Context, query string) ([]float32, error) {
	if e.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.timeout)
		defer cancel()
	}
	embedding, err := e.embedder.EmbedQuery(ctx, query)
	if err != nil {
		return nil, models.NewProviderError("embed", err)
	}
	return embedding, nil
}

// scorePercentage maps a raw cosine similarity to the 0-100 display range,
// rounded to one decimal. Negative similarities display as 0.
func scorePercentage(similarity float32) float64 {
	p := float64(similarity)
	if p < 0 {
		p = 0
	}
	if p > 1 {
		p = 1
	}
	return math.Round(p*1000) / 10
}

package search

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/abelprasad/Manifold/internal/index"
	"github.com/abelprasad/Manifold/internal/models"
)

type fakeEmbedder struct {
	vectors map[string][]float32
	err     error
}

func (f *fakeEmbedder) EmbedDocuments(_ context.Context, texts []string) ([][]float32, error) {
	if f.err != nil {
		return nil, f.err
	}
	out := make([][]float32, len(texts))
	for i, t := range texts {
		out[i] = f.vec(t)
	}
	return out, nil
}

func (f *fakeEmbedder) EmbedQuery(_ context.Context, text string) ([]float32, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.vec(text), nil
}

func (f *fakeEmbedder) vec(text string) []float32 {
	if v, ok := f.vectors[text]; ok {
		return append([]float32(nil), v...)
	}
	return []float32{0, 0, 1}
}

func chunksFrom(texts ...string) []models.Chunk {
	chunks := make([]models.Chunk, 0, len(texts))
	for i, t := range texts {
		chunks = append(chunks, models.Chunk{ChunkID: i, PageNum: 1, Text: t, EndPos: len(t)})
	}
	return chunks
}

func docNamed(name string) models.Document {
	return models.Document{ID: name + "-id", Filename: name, SafeFilename: "20240101_000000_" + name}
}

func newEngine(t *testing.T, emb *fakeEmbedder) (*Engine, *index.Index) {
	t.Helper()
	idx, err := index.New(emb, 0)
	require.NoError(t, err)
	return NewEngine(idx, emb, Options{}), idx
}

func TestSearch_ValidatesInput(t *testing.T) {
	eng, _ := newEngine(t, &fakeEmbedder{})
	ctx := context.Background()

	var valErr *models.ValidationError

	_, err := eng.Search(ctx, "anything", 0)
	require.ErrorAs(t, err, &valErr)
	assert.Equal(t, "top_k", valErr.Field)

	_, err = eng.Search(ctx, "anything", -3)
	require.ErrorAs(t, err, &valErr)

	_, err = eng.Search(ctx, "   ", 5)
	require.ErrorAs(t, err, &valErr)
	assert.Equal(t, "query", valErr.Field)
}

func TestSearch_EmptyCorpus(t *testing.T) {
	eng, _ := newEngine(t, &fakeEmbedder{})

	_, err := eng.Search(context.Background(), "weapon", 5)
	assert.ErrorIs(t, err, models.ErrEmptyCorpus)
}

func TestSearch_RanksWeaponChunkFirst(t *testing.T) {
	sedan := "The suspect was seen driving a red sedan."
	knife := "A knife was found at the scene."
	car := "I saw a red car speeding away."

	emb := &fakeEmbedder{vectors: map[string][]float32{
		sedan:    {0.9, 0.1, 0},
		knife:    {0.1, 0.9, 0},
		car:      {0.8, 0.1, 0.1},
		"weapon": {0, 1, 0},
	}}
	eng, idx := newEngine(t, emb)
	ctx := context.Background()

	require.NoError(t, idx.Add(ctx, chunksFrom(sedan, knife), docNamed("report.pdf")))
	require.NoError(t, idx.Add(ctx, chunksFrom(car), docNamed("statement.pdf")))

	results, err := eng.Search(ctx, "weapon", 10)
	require.NoError(t, err)
	require.Len(t, results, 3)

	assert.Equal(t, knife, results[0].Text)
	assert.Equal(t, "report.pdf", results[0].Filename)

	// Strictly descending by raw similarity.
	for i := 1; i < len(results); i++ {
		assert.GreaterOrEqual(t, results[i-1].SimilarityScore, results[i].SimilarityScore)
	}
}

func TestSearch_TruncatesToTopK(t *testing.T) {
	eng, idx := newEngine(t, &fakeEmbedder{})
	ctx := context.Background()

	require.NoError(t, idx.Add(ctx, chunksFrom("one", "two", "three"), docNamed("a.pdf")))

	results, err := eng.Search(ctx, "query", 2)
	require.NoError(t, err)
	assert.Len(t, results, 2)

	// Fewer results than top_k when the corpus is smaller.
	results, err = eng.Search(ctx, "query", 50)
	require.NoError(t, err)
	assert.Len(t, results, 3)
}

func TestSearch_TiesBreakByAscendingChunkID(t *testing.T) {
	emb := &fakeEmbedder{vectors: map[string][]float32{
		"twin one":  {0, 1, 0},
		"twin two":  {0, 1, 0},
		"unrelated": {1, 0, 0},
		"query":     {0, 1, 0},
	}}
	eng, idx := newEngine(t, emb)
	ctx := context.Background()

	require.NoError(t, idx.Add(ctx, chunksFrom("twin one", "twin two", "unrelated"), docNamed("a.pdf")))

	results, err := eng.Search(ctx, "query", 3)
	require.NoError(t, err)
	require.Len(t, results, 3)

	assert.Equal(t, 0, results[0].ChunkID)
	assert.Equal(t, 1, results[1].ChunkID)
	assert.Equal(t, results[0].SimilarityScore, results[1].SimilarityScore)
	assert.Equal(t, 2, results[2].ChunkID)
}

func TestSearch_ScorePercentage(t *testing.T) {
	emb := &fakeEmbedder{vectors: map[string][]float32{
		"exact match": {0, 1, 0},
		"query":       {0, 1, 0},
	}}
	eng, idx := newEngine(t, emb)
	ctx := context.Background()

	require.NoError(t, idx.Add(ctx, chunksFrom("exact match"), docNamed("a.pdf")))

	results, err := eng.Search(ctx, "query", 1)
	require.NoError(t, err)
	require.Len(t, results, 1)

	assert.InDelta(t, 1.0, results[0].SimilarityScore, 1e-4)
	assert.InDelta(t, 100.0, results[0].ScorePercentage, 0.1)
}

func TestSearch_ProviderFailure(t *testing.T) {
	emb := &fakeEmbedder{}
	eng, idx := newEngine(t, emb)
	ctx := context.Background()

	require.NoError(t, idx.Add(ctx, chunksFrom("one"), docNamed("a.pdf")))

	emb.err = errors.New("provider down")
	_, err := eng.Search(ctx, "query", 5)

	var provErr *models.ProviderError
	require.ErrorAs(t, err, &provErr)
	assert.Equal(t, "embed", provErr.Op)
}

func TestNewEngine_ExplicitZeroHighlightMinScore(t *testing.T) {
	text := "Nothing relevant here."
	emb := &fakeEmbedder{vectors: map[string][]float32{
		text:    {1, 0, 0},
		"query": {0, 1, 0},
	}}
	idx, err := index.New(emb, 0)
	require.NoError(t, err)
	ctx := context.Background()
	require.NoError(t, idx.Add(ctx, chunksFrom(text), docNamed("a.pdf")))

	// A zero threshold is a real setting, not a request for the default:
	// even a zero-similarity span survives the filter.
	zero := 0.0
	eng := NewEngine(idx, emb, Options{HighlightMinScore: &zero})
	assert.Zero(t, eng.highlightMinScore)

	results, err := eng.Search(ctx, "query", 1)
	require.NoError(t, err)
	require.Len(t, results, 1)
	require.Len(t, results[0].SemanticHighlights, 1)
	assert.Equal(t, text, results[0].SemanticHighlights[0].SpanText)

	// Unset still means the default.
	eng = NewEngine(idx, emb, Options{})
	assert.Equal(t, defaultHighlightMinScore, eng.highlightMinScore)
}

func TestScorePercentage_Clamps(t *testing.T) {
	assert.Equal(t, 0.0, scorePercentage(-0.4))
	assert.Equal(t, 100.0, scorePercentage(1.2))
	assert.InDelta(t, 73.2, scorePercentage(0.732), 1e-9)
}

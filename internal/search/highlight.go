package search

import (
	"context"
	"math"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/abelprasad/Manifold/internal/models"
)

// maxSpanLen cuts terminator-free runs into fixed windows so a wall of text
// still yields scoreable candidates.
const maxSpanLen = 300

// Highlight finds the sub-spans of resultText most relevant to the query,
// for display emphasis only. Returned spans are exact substrings of
// resultText in their original order of appearance.
func (e *Engine) Highlight(ctx context.Context, query, resultText string, topK int, minScore float64) ([]models.Highlight, error) {
	if strings.TrimSpace(query) == "" {
		return nil, &models.ValidationError{Field: "query", Reason: "must not be blank"}
	}
	queryEmbedding, err := e.embedQuery(ctx, query)
	if err != nil {
		return nil, err
	}
	return e.highlightWithEmbedding(ctx, queryEmbedding, resultText, topK, minScore)
}

func (e *Engine) highlightWithEmbedding(ctx context.Context, queryEmbedding []float32, resultText string, topK int, minScore float64) ([]models.Highlight, error) {
	if topK <= 0 {
		return nil, nil
	}

	var (
		spanTexts []string
		positions []int
	)
	for _, s := range candidateSpans(resultText) {
		trimmed := strings.TrimSpace(resultText[s[0]:s[1]])
		if trimmed == "" {
			continue
		}
		spanTexts = append(spanTexts, trimmed)
		positions = append(positions, s[0])
	}
	if len(spanTexts) == 0 {
		return nil, nil
	}

	embedCtx := ctx
	if e.timeout > 0 {
		var cancel context.CancelFunc
		embedCtx, cancel = context.WithTimeout(ctx, e.timeout)
		defer cancel()
	}
	vectors, err := e.embedder.EmbedDocuments(embedCtx, spanTexts)
	if err != nil {
		return nil, models.NewProviderError("embed", err)
	}

	type scoredSpan struct {
		pos   int
		text  string
		score float64
	}
	var spans []scoredSpan
	for i, vec := range vectors {
		score := cosine(queryEmbedding, vec)
		if score < minScore {
			continue
		}
		spans = append(spans, scoredSpan{pos: positions[i], text: spanTexts[i], score: score})
	}

	sort.SliceStable(spans, func(i, j int) bool { return spans[i].score > spans[j].score })
	if topK < len(spans) {
		spans = spans[:topK]
	}
	// Reading order, so the UI can render the spans in sequence.
	sort.Slice(spans, func(i, j int) bool { return spans[i].pos < spans[j].pos })

	highlights := make([]models.Highlight, 0, len(spans))
	for _, s := range spans {
		highlights = append(highlights, models.Highlight{SpanText: s.text, Score: s.score})
	}
	return highlights, nil
}

// candidateSpans splits text at sentence-like boundaries, returning
// [start, end) offsets. Terminator-free runs longer than maxSpanLen are cut
// into fixed windows.
func candidateSpans(text string) [][2]int {
	var raw [][2]int
	start := 0
	for i := 0; i < len(text); i++ {
		if !isTerminator(text[i]) {
			continue
		}
		j := i
		for j+1 < len(text) && isTerminator(text[j+1]) {
			j++
		}
		raw = append(raw, [2]int{start, j + 1})
		start = j + 1
		i = j
	}
	if start < len(text) {
		raw = append(raw, [2]int{start, len(text)})
	}

	var spans [][2]int
	for _, s := range raw {
		for s[1]-s[0] > maxSpanLen {
			cut := s[0] + maxSpanLen
			// The window cut must not land inside a multi-byte rune.
			for cut > s[0] && !utf8.RuneStart(text[cut]) {
				cut--
			}
			if cut == s[0] {
				cut = s[0] + maxSpanLen
			}
			spans = append(spans, [2]int{s[0], cut})
			s[0] = cut
		}
		if s[1] > s[0] {
			spans = append(spans, s)
		}
	}
	return spans
}

func isTerminator(c byte) bool {
	return c == '.' || c == '!' || c == '?'
}

// cosine is the same similarity function the retriever ranks with, applied
// locally to highlight spans.
func cosine(a, b []float32) float64 {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	var dot, normA, normB float64
	for i := 0; i < n; i++ {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}

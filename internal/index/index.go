// Package index holds the in-memory corpus: every admitted chunk with its
// embedding and document provenance. Chunk ids are unique and strictly
// increasing within a corpus generation; Clear starts a new generation and
// resets the id space. All state is intentionally lost on Clear or process
// restart.
package index

import (
	"context"
	"fmt"
	"runtime"
	"strconv"
	"sync"
	"time"

	"github.com/philippgille/chromem-go"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/tmc/langchaingo/embeddings"

	"github.com/abelprasad/Manifold/internal/models"
)

// Index is the only shared mutable resource of the pipeline. A single
// coarse RWMutex serializes Add and Clear against each other and against
// in-flight reads; embedding provider calls never run under the lock.
type Index struct {
	embedder embeddings.Embedder
	timeout  time.Duration
	log      zerolog.Logger

	mu         sync.RWMutex
	db         *chromem.DB
	collection *chromem.Collection
	chunks     []models.IndexedChunk
	documents  map[string]models.Document // keyed by document id
	docOrder   []string
	generation int
	dim        int
}

func New(embedder embeddings.Embedder, timeout time.Duration) (*Index, error) {
	db := chromem.NewDB()
	col, err := db.GetOrCreateCollection(collectionName(0), nil, nil)
	if err != nil {
		return nil, fmt.Errorf("creating corpus collection: %w", err)
	}
	return &Index{
		embedder:   embedder,
		timeout:    timeout,
		log:        log.With().Str("component", "index").Logger(),
		db:         db,
		collection: col,
		documents:  make(map[string]models.Document),
	}, nil
}

func collectionName(generation int) string {
	return fmt.Sprintf("corpus-gen-%d", generation)
}

// Add embeds the chunks, renumbers them into the global id space of the
// current generation and appends them together with the document
// association. Appending is additive across calls; nothing is overwritten.
// On any error the index is left unchanged.
func (idx *Index) Add(ctx context.Context, chunks []models.Chunk, doc models.Document) error {
	vectors, err := idx.embedChunks(ctx, chunks)
	if err != nil {
		return err
	}

	idx.mu.Lock()
	defer idx.mu.Unlock()

	if _, exists := idx.documents[doc.ID]; exists {
		return &models.IndexStateError{Op: "add", Reason: fmt.Sprintf("document id %q already admitted", doc.ID)}
	}
	if idx.dim != 0 && len(vectors) > 0 && len(vectors[0]) != idx.dim {
		return &models.IndexStateError{Op: "add", Reason: fmt.Sprintf("embedding dimension %d does not match corpus dimension %d", len(vectors[0]), idx.dim)}
	}

	base := len(idx.chunks)
	indexed := make([]models.IndexedChunk, 0, len(chunks))
	docs := make([]chromem.Document, 0, len(chunks))
	for i, ch := range chunks {
		ch.ChunkID = base + i
		ch.DocumentID = doc.ID
		ch.Filename = doc.Filename
		indexed = append(indexed, models.IndexedChunk{Chunk: ch, Embedding: vectors[i]})
		docs = append(docs, chromem.Document{
			ID:      strconv.Itoa(ch.ChunkID),
			Content: ch.Text,
			Metadata: map[string]string{
				"filename":    ch.Filename,
				"page_num":    strconv.Itoa(ch.PageNum),
				"chunk_id":    strconv.Itoa(ch.ChunkID),
				"document_id": ch.DocumentID,
			},
			// chromem normalizes stored vectors; keep our copy raw.
			Embedding: append([]float32(nil), vectors[i]...),
		})
	}

	if len(docs) > 0 {
		if err := idx.collection.AddDocuments(ctx, docs, runtime.NumCPU()); err != nil {
			// A failed batch may have stored part of itself; drop those ids
			// so the collection never drifts from the chunk slice. The
			// caller's context may already be dead, so the rollback gets its
			// own.
			ids := make([]string, len(docs))
			for i, d := range docs {
				ids[i] = d.ID
			}
			if delErr := idx.collection.Delete(context.Background(), nil, nil, ids...); delErr != nil {
				idx.log.Warn().Err(delErr).Msg("failed to roll back partially stored batch")
			}
			return &models.IndexStateError{Op: "add", Reason: err.Error()}
		}
		if idx.dim == 0 {
			idx.dim = len(vectors[0])
		}
	}

	idx.chunks = append(idx.chunks, indexed...)
	doc.TotalChunks = len(chunks)
	idx.documents[doc.ID] = doc
	idx.docOrder = append(idx.docOrder, doc.ID)

	idx.log.Info().
		Str("filename", doc.Filename).
		Int("pages", doc.PageCount).
		Int("chunks", len(chunks)).
		Int("corpus_chunks", len(idx.chunks)).
		Msg("document admitted to corpus")
	return nil
}

func (idx *Index) embedChunks(ctx context.Context, chunks []models.Chunk) ([][]float32, error) {
	if len(chunks) == 0 {
		return nil, nil
	}
	texts := make([]string, len(chunks))
	for i, ch := range chunks {
		texts[i] = ch.Text
	}

	if idx.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, idx.timeout)
		defer cancel()
	}
	vectors, err := idx.embedder.EmbedDocuments(ctx, texts)
	if err != nil {
		return nil, models.NewProviderError("embed", err)
	}
	if len(vectors) != len(chunks) {
		return nil, &models.IndexStateError{Op: "add", Reason: fmt.Sprintf("provider returned %d embeddings for %d chunks", len(vectors), len(chunks))}
	}
	return vectors, nil
}

// Query scores the whole current generation against the query embedding.
// Results come back ordered by similarity; deterministic tie-breaking is the
// retriever's concern. The call is read-only.
func (idx *Index) Query(ctx context.Context, queryEmbedding []float32) ([]models.ScoredChunk, error) {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	count := len(idx.chunks)
	if count == 0 {
		return nil, models.ErrEmptyCorpus
	}

	results, err := idx.collection.QueryWithOptions(ctx, chromem.QueryOptions{
		QueryEmbedding: queryEmbedding,
		NResults:       count,
	})
	if err != nil {
		return nil, fmt.Errorf("querying corpus collection: %w", err)
	}

	scored := make([]models.ScoredChunk, 0, len(results))
	for _, res := range results {
		id, err := strconv.Atoi(res.ID)
		if err != nil || id < 0 || id >= count {
			return nil, &models.IndexStateError{Op: "query", Reason: fmt.Sprintf("unknown chunk id %q in collection", res.ID)}
		}
		scored = append(scored, models.ScoredChunk{IndexedChunk: idx.chunks[id], Similarity: res.Similarity})
	}
	return scored, nil
}

// Clear atomically discards every indexed chunk and document association
// and starts a new generation with the id counter back at zero. If the new
// generation cannot be set up, the old state stays fully intact.
func (idx *Index) Clear() error {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	oldName := collectionName(idx.generation)
	col, err := idx.db.GetOrCreateCollection(collectionName(idx.generation+1), nil, nil)
	if err != nil {
		return &models.IndexStateError{Op: "clear", Reason: err.Error()}
	}

	idx.collection = col
	idx.generation++
	idx.chunks = nil
	idx.documents = make(map[string]models.Document)
	idx.docOrder = nil
	idx.dim = 0

	// The old collection is unreachable once the swap happened; deletion is
	// best effort.
	if err := idx.db.DeleteCollection(oldName); err != nil {
		idx.log.Warn().Err(err).Str("collection", oldName).Msg("failed to drop previous generation collection")
	}

	idx.log.Info().Int("generation", idx.generation).Msg("corpus cleared")
	return nil
}

// Count returns the number of indexed chunks currently held.
func (idx *Index) Count() int {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	return len(idx.chunks)
}

// Generation returns the current corpus generation, starting at 0.
func (idx *Index) Generation() int {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	return idx.generation
}

// Documents lists the admitted documents in admission order.
func (idx *Index) Documents() []models.Document {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	out := make([]models.Document, 0, len(idx.docOrder))
	for _, name := range idx.docOrder {
		out = append(out, idx.documents[name])
	}
	return out
}

// Stats derives corpus-wide counters from document and chunk state. Pure
// read, may run concurrently with searches.
func (idx *Index) Stats() models.Stats {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	stats := models.Stats{
		TotalDocuments: len(idx.documents),
		TotalChunks:    len(idx.chunks),
		EmbeddingDim:   idx.dim,
	}
	for _, name := range idx.docOrder {
		doc := idx.documents[name]
		for _, pg := range doc.Pages {
			stats.TotalCharacters += pg.CharCount
			if pg.Method == models.MethodRecognized {
				stats.PagesRecognized++
			} else {
				stats.PagesDirect++
			}
		}
		stats.Documents = append(stats.Documents, models.DocumentStats{
			Filename:   doc.Filename,
			PageCount:  doc.PageCount,
			ChunkCount: doc.TotalChunks,
		})
	}
	return stats
}

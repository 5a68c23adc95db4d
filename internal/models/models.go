package models

import "time"

// Extraction methods recorded per page.
const (
	MethodDirect     = "direct"
	MethodRecognized = "recognized"
)

// PageText is the text of a single physical page, produced once by the
// extractor and immutable afterwards.
type PageText struct {
	PageNum   int    `json:"page_num"` // 1-based
	Text      string `json:"text"`
	Method    string `json:"method"`
	CharCount int    `json:"char_count"`
}

// PageImage addresses one page of a document for the fallback recognition
// provider. Data carries the full document bytes; rasterizing the addressed
// page is the provider's concern.
type PageImage struct {
	Data     []byte
	MIMEType string
	PageNum  int
}

// Chunk is a bounded slice of a page's text, the unit of indexing and
// retrieval. StartPos/EndPos are pre-trim offsets into the source page
// text, not global offsets.
type Chunk struct {
	ChunkID    int    `json:"chunk_id"`
	DocumentID string `json:"document_id"`
	Filename   string `json:"filename"`
	PageNum    int    `json:"page_num"`
	Text       string `json:"text"`
	StartPos   int    `json:"start_pos"`
	EndPos     int    `json:"end_pos"`
}

// IndexedChunk is a chunk admitted to the corpus index together with its
// embedding. It lives until the next full index clear.
type IndexedChunk struct {
	Chunk
	Embedding []float32 `json:"-"`
}

// ScoredChunk pairs an indexed chunk with its raw similarity against a
// query embedding.
type ScoredChunk struct {
	IndexedChunk
	Similarity float32
}

// Document describes one uploaded document and owns its page sequence.
// Chunks reference it by ID but do not own it.
type Document struct {
	ID           string     `json:"document_id"`
	Filename     string     `json:"filename"`
	SafeFilename string     `json:"safe_filename"`
	PageCount    int        `json:"page_count"`
	TotalChunks  int        `json:"total_chunks"`
	UploadTime   time.Time  `json:"upload_time"`
	FileSizeMB   float64    `json:"file_size_mb"`
	Pages        []PageText `json:"-"`
}

// Highlight is a sub-span of a matched chunk's text flagged as most
// relevant to a query. SpanText is always a literal substring of the
// parent result's text.
type Highlight struct {
	SpanText string  `json:"span_text"`
	Score    float64 `json:"score"`
}

// SearchResult is one ranked chunk returned for a query, ephemeral per call.
type SearchResult struct {
	ChunkID            int         `json:"chunk_id"`
	PageNum            int         `json:"page_num"`
	Filename           string      `json:"filename"`
	Text               string      `json:"text"`
	SimilarityScore    float64     `json:"similarity_score"`
	ScorePercentage    float64     `json:"score_percentage"`
	SemanticHighlights []Highlight `json:"semantic_highlights"`
}

// DocumentStats is the per-document slice of the corpus statistics.
type DocumentStats struct {
	Filename   string `json:"filename"`
	PageCount  int    `json:"page_count"`
	ChunkCount int    `json:"chunk_count"`
}

// Stats aggregates corpus-wide counters. Derived read-only from the index.
type Stats struct {
	TotalDocuments  int             `json:"total_documents"`
	TotalChunks     int             `json:"total_chunks"`
	TotalCharacters int             `json:"total_characters"`
	PagesDirect     int             `json:"pages_direct_text"`
	PagesRecognized int             `json:"pages_with_recognition"`
	EmbeddingDim    int             `json:"embedding_dim"`
	Documents       []DocumentStats `json:"documents"`
}

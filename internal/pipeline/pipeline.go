// Package pipeline orchestrates one document's path from raw bytes to
// corpus admission: extract, chunk, index.
package pipeline

import (
	"context"
	"math"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/abelprasad/Manifold/internal/chunker"
	"github.com/abelprasad/Manifold/internal/extractor"
	"github.com/abelprasad/Manifold/internal/helper"
	"github.com/abelprasad/Manifold/internal/index"
	"github.com/abelprasad/Manifold/internal/models"
)

type Service struct {
	extractor *extractor.Extractor
	idx       *index.Index
	window    int
	log       zerolog.Logger
}

func New(ex *extractor.Extractor, idx *index.Index, window int) *Service {
	return &Service{
		extractor: ex,
		idx:       idx,
		window:    window,
		log:       log.With().Str("component", "pipeline").Logger(),
	}
}

// Ingest processes one uploaded document. A single bad page never fails the
// upload; a failed upload never mutates the index.
func (s *Service) Ingest(ctx context.Context, filename string, data []byte) (models.Document, error) {
	pages, err := s.extractor.Extract(ctx, filename, data)
	if err != nil {
		return models.Document{}, err
	}

	id, err := helper.GenerateUUID()
	if err != nil {
		return models.Document{}, err
	}

	now := time.Now()
	doc := models.Document{
		ID:           id,
		Filename:     filename,
		SafeFilename: now.Format("20060102_150405") + "_" + filename,
		PageCount:    len(pages),
		UploadTime:   now,
		FileSizeMB:   math.Round(float64(len(data))/(1<<20)*100) / 100,
		Pages:        pages,
	}

	chunks := chunker.Chunk(pages, s.window)
	doc.TotalChunks = len(chunks)

	if err := s.idx.Add(ctx, chunks, doc); err != nil {
		return models.Document{}, err
	}

	recognized := 0
	for _, pg := range pages {
		if pg.Method == models.MethodRecognized {
			recognized++
		}
	}
	s.log.Info().
		Str("filename", filename).
		Int("pages", len(pages)).
		Int("chunks", len(chunks)).
		Int("pages_recognized", recognized).
		Msg("document ingested")
	return doc, nil
}

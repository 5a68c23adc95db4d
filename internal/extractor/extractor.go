// Package extractor turns document bytes into per-page text. PDF pages that
// yield too little direct text fall back to an external recognition
// provider; a failed recognition never fails the whole document.
package extractor

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/ledongthuc/pdf"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/abelprasad/Manifold/internal/models"
)

// minDirectChars is the stripped-text threshold below which a page is
// treated as non-extractable and sent to the recognizer.
const minDirectChars = 50

// Recognizer is the external image-to-text capability used for pages the
// direct path cannot read. A nil recognizer disables the fallback.
type Recognizer interface {
	Recognize(ctx context.Context, img models.PageImage) (string, error)
}

type Extractor struct {
	rec Recognizer
	log zerolog.Logger
}

func New(rec Recognizer) *Extractor {
	return &Extractor{rec: rec, log: log.With().Str("component", "extractor").Logger()}
}

// Extract produces one PageText per physical page, in page order. Per-page
// failures are absorbed into the page record; only a failure to open or
// parse the whole document is returned, as an ExtractionError.
func (e *Extractor) Extract(ctx context.Context, filename string, data []byte) ([]models.PageText, error) {
	var (
		pages []models.PageText
		err   error
	)
	switch ext := strings.ToLower(filepath.Ext(filename)); ext {
	case ".pdf":
		pages, err = e.extractPDF(ctx, data)
	case ".txt":
		pages, err = extractText(data)
	case ".md":
		pages, err = extractMarkdown(data)
	case ".docx":
		pages, err = extractDOCX(data)
	case ".xlsx":
		pages, err = extractXLSX(data)
	case ".ods":
		pages, err = extractODS(data)
	default:
		err = fmt.Errorf("unsupported file format: %s", ext)
	}
	if err != nil {
		return nil, &models.ExtractionError{Filename: filename, Err: err}
	}
	return pages, nil
}

func (e *Extractor) extractPDF(ctx context.Context, data []byte) ([]models.PageText, error) {
	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, err
	}

	numPages := reader.NumPage()
	pages := make([]models.PageText, 0, numPages)
	for i := 1; i <= numPages; i++ {
		page := reader.Page(i)
		var text string
		if !page.V.IsNull() {
			// A page that fails direct extraction rides the fallback path
			// like a scanned page would.
			if t, err := page.GetPlainText(nil); err == nil {
				text = t
			} else {
				e.log.Debug().Int("page", i).Err(err).Msg("direct extraction failed")
			}
		}
		pages = append(pages, e.resolvePage(ctx, i, text, data, "application/pdf"))
	}
	return pages, nil
}

// resolvePage keeps the direct text when it clears the threshold, otherwise
// invokes the recognizer and tags the page as recognized.
func (e *Extractor) resolvePage(ctx context.Context, pageNum int, direct string, doc []byte, mimeType string) models.PageText {
	if len(strings.TrimSpace(direct)) >= minDirectChars {
		return models.PageText{
			PageNum:   pageNum,
			Text:      direct,
			Method:    models.MethodDirect,
			CharCount: len(direct),
		}
	}
	text := e.recognize(ctx, pageNum, doc, mimeType)
	return models.PageText{
		PageNum:   pageNum,
		Text:      text,
		Method:    models.MethodRecognized,
		CharCount: len(text),
	}
}

// recognize absorbs recognizer failures into a sentinel page text so a
// single bad page never fails the upload.
func (e *Extractor) recognize(ctx context.Context, pageNum int, doc []byte, mimeType string) string {
	if e.rec == nil {
		return recognitionSentinel(errors.New("no recognizer configured"))
	}
	text, err := e.rec.Recognize(ctx, models.PageImage{Data: doc, MIMEType: mimeType, PageNum: pageNum})
	if err != nil {
		e.log.Warn().Int("page", pageNum).Err(err).Msg("page recognition failed")
		return recognitionSentinel(err)
	}
	return text
}

func recognitionSentinel(err error) string {
	return fmt.Sprintf("[recognition error on this page: %v]", err)
}

// Package recognizer implements the fallback page recognition capability
// with a multimodal chat model. The page is shipped to the model as a binary
// part together with a transcription prompt; rasterization is the model
// provider's concern.
package recognizer

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/ollama"
	"github.com/tmc/langchaingo/llms/openai"

	"github.com/abelprasad/Manifold/internal/config"
	"github.com/abelprasad/Manifold/internal/models"
)

const transcribePrompt = "Transcribe all text visible on page %d of the attached document. Return only the transcribed text, without commentary."

// LLMRecognizer satisfies the extractor's Recognizer interface.
type LLMRecognizer struct {
	model llms.Model
	log   zerolog.Logger
}

func NewLLMRecognizer(cfg *config.LLMConfig) (*LLMRecognizer, error) {
	var (
		model llms.Model
		err   error
	)
	switch cfg.Provider {
	case "ollama", "":
		model, err = ollama.New(
			ollama.WithServerURL(cfg.BaseURL),
			ollama.WithModel(cfg.Model),
		)
	case "openai":
		opts := []openai.Option{
			openai.WithToken(strings.TrimPrefix(cfg.Key, "Bearer ")),
			openai.WithModel(cfg.Model),
		}
		if cfg.BaseURL != "" {
			opts = append(opts, openai.WithBaseURL(cfg.BaseURL))
		}
		model, err = openai.New(opts...)
	default:
		return nil, fmt.Errorf("unsupported recognition provider: %s", cfg.Provider)
	}
	if err != nil {
		return nil, fmt.Errorf("initializing recognition model: %w", err)
	}
	return &LLMRecognizer{
		model: model,
		log:   log.With().Str("component", "recognizer").Logger(),
	}, nil
}

// Recognize asks the model to transcribe the addressed page.
func (r *LLMRecognizer) Recognize(ctx context.Context, img models.PageImage) (string, error) {
	r.log.Debug().Int("page", img.PageNum).Str("mime", img.MIMEType).Msg("recognizing page")

	messages := []llms.MessageContent{
		{
			Role: llms.ChatMessageTypeHuman,
			Parts: []llms.ContentPart{
				llms.TextPart(fmt.Sprintf(transcribePrompt, img.PageNum)),
				llms.BinaryPart(img.MIMEType, img.Data),
			},
		},
	}

	resp, err := r.model.GenerateContent(ctx, messages)
	if err != nil {
		return "", err
	}
	if len(resp.Choices) == 0 {
		return "", errors.New("recognition model returned no choices")
	}
	return resp.Choices[0].Content, nil
}

package chat

import (
	"context"

	"github.com/rs/zerolog/log"

	"github.com/aosmith-syr/gravitychat/internal/prompt"
	"github.com/aosmith-syr/gravitychat/pkg/models"
)

// NoInfoAnswer is returned when retrieval finds nothing.
const NoInfoAnswer = "I couldn't find relevant information in our knowledge base to answer your question. Please try rephrasing your question or contact a LIGO scientist for assistance."

// Default request values applied when the caller omits them.
const (
	DefaultTopK      = 5
	DefaultMaxTokens = 500
)

// Retriever yields chunks for a question. Implementations never error; a
// failed backend degrades to a local fallback inside the retriever.
type Retriever interface {
	Retrieve(ctx context.Context, query string, topK int) []models.DocumentChunk
}

// Generator turns prompts into answer text and never fails.
type Generator interface {
	Generate(ctx context.Context, userPrompt, systemPrompt string, maxTokens int) string
}

// Service runs the ask pipeline: retrieve, assemble prompts, generate, cite.
type Service struct {
	Retriever Retriever
	Generator Generator
}

// NewService creates the chat pipeline service.
func NewService(r Retriever, g Generator) *Service {
	return &Service{Retriever: r, Generator: g}
}

// Ask answers the question grounded in retrieved context. It always returns
// a usable response; degraded paths lower the confidence rather than error.
func (s *Service) Ask(ctx context.Context, req models.ChatRequest) models.ChatResponse {
	if req.TopK == 0 {
		req.TopK = DefaultTopK
	}
	if req.MaxTokens == 0 {
		req.MaxTokens = DefaultMaxTokens
	}

	chunks := s.Retriever.Retrieve(ctx, req.Question, req.TopK)
	if len(chunks) == 0 {
		return models.ChatResponse{
			Answer:      NoInfoAnswer,
			Citations:   []models.Citation{},
			SourcesUsed: 0,
			Confidence:  models.ConfidenceLow,
		}
	}

	userPrompt, systemPrompt := prompt.BuildPrompts(req.Question, chunks)
	answer := s.Generator.Generate(ctx, userPrompt, systemPrompt, req.MaxTokens)

	// Title matching under-counts when the answer paraphrases; cite the
	// whole retrieved set in that case.
	citations := prompt.ExtractCitations(answer, chunks)
	if len(citations) == 0 {
		citations = make([]models.Citation, 0, len(chunks))
		for _, doc := range chunks {
			citations = append(citations, prompt.Cite(doc))
		}
	}

	log.Info().
		Int("retrieved", len(chunks)).
		Int("citations", len(citations)).
		Msg("answered question")

	return models.ChatResponse{
		Answer:      answer,
		Citations:   citations,
		SourcesUsed: len(citations),
		Confidence:  confidenceFor(len(citations)),
	}
}

// confidenceFor maps the number of sources used to a confidence level:
// 0 sources is low, 1 is medium, 2 or more is high.
func confidenceFor(sources int) string {
	switch {
	case sources >= 2:
		return models.ConfidenceHigh
	case sources == 1:
		return models.ConfidenceMedium
	default:
		return models.ConfidenceLow
	}
}

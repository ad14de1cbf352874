package chat

import (
	"context"
	"strings"
	"testing"

	"github.com/aosmith-syr/gravitychat/internal/generate"
	"github.com/aosmith-syr/gravitychat/internal/retriever"
	"github.com/aosmith-syr/gravitychat/internal/store"
	"github.com/aosmith-syr/gravitychat/pkg/models"
)

// MockRetriever implements Retriever with an injectable result.
type MockRetriever struct {
	RetrieveFunc func(ctx context.Context, query string, topK int) []models.DocumentChunk
}

func (m *MockRetriever) Retrieve(ctx context.Context, query string, topK int) []models.DocumentChunk {
	return m.RetrieveFunc(ctx, query, topK)
}

// MockGenerator implements Generator with an injectable answer.
type MockGenerator struct {
	GenerateFunc func(ctx context.Context, userPrompt, systemPrompt string, maxTokens int) string
}

func (m *MockGenerator) Generate(ctx context.Context, userPrompt, systemPrompt string, maxTokens int) string {
	return m.GenerateFunc(ctx, userPrompt, systemPrompt, maxTokens)
}

// localService wires the real retriever and generator over the in-memory
// fixture corpus with no AI backend, the same shape the server takes when no
// provider is configured.
func localService() *Service {
	r := retriever.NewService(nil, store.NewMemoryWithFixtures())
	g := generate.NewGenerator(nil)
	return NewService(r, g)
}

func TestAskKnownTopic(t *testing.T) {
	svc := localService()

	resp := svc.Ask(context.Background(), models.ChatRequest{Question: "What is LIGO?"})

	if !strings.Contains(resp.Answer, "LIGO") {
		t.Errorf("Expected the answer to mention LIGO, got %q", resp.Answer)
	}
	if resp.SourcesUsed != 1 {
		t.Errorf("Expected exactly 1 source used, got %d", resp.SourcesUsed)
	}
	if resp.Confidence != models.ConfidenceMedium {
		t.Errorf("Expected medium confidence for a single source, got %q", resp.Confidence)
	}
	if len(resp.Citations) != resp.SourcesUsed {
		t.Errorf("Expected citations count %d to equal sources used %d", len(resp.Citations), resp.SourcesUsed)
	}
	if resp.Citations[0].Title != "Introduction to LIGO" {
		t.Errorf("Expected the introduction fixture to be cited, got %q", resp.Citations[0].Title)
	}
}

func TestAskUnknownTopic(t *testing.T) {
	svc := localService()

	resp := svc.Ask(context.Background(), models.ChatRequest{Question: "asdfqwerty nonsense"})

	if resp.Answer != NoInfoAnswer {
		t.Errorf("Expected the no-information answer, got %q", resp.Answer)
	}
	if resp.SourcesUsed != 0 {
		t.Errorf("Expected 0 sources used, got %d", resp.SourcesUsed)
	}
	if resp.Confidence != models.ConfidenceLow {
		t.Errorf("Expected low confidence, got %q", resp.Confidence)
	}
	if len(resp.Citations) != 0 {
		t.Errorf("Expected no citations, got %+v", resp.Citations)
	}
}

func TestAskAppliesDefaults(t *testing.T) {
	var gotTopK, gotMaxTokens int
	svc := NewService(
		&MockRetriever{
			RetrieveFunc: func(ctx context.Context, query string, topK int) []models.DocumentChunk {
				gotTopK = topK
				return nil
			},
		},
		&MockGenerator{
			GenerateFunc: func(ctx context.Context, userPrompt, systemPrompt string, maxTokens int) string {
				gotMaxTokens = maxTokens
				return "unused"
			},
		},
	)

	svc.Ask(context.Background(), models.ChatRequest{Question: "anything"})
	if gotTopK != DefaultTopK {
		t.Errorf("Expected default topK %d, got %d", DefaultTopK, gotTopK)
	}
	// Generator is not reached when retrieval is empty.
	if gotMaxTokens != 0 {
		t.Errorf("Expected generator to be skipped, but it received maxTokens=%d", gotMaxTokens)
	}

	svc = NewService(
		&MockRetriever{
			RetrieveFunc: func(ctx context.Context, query string, topK int) []models.DocumentChunk {
				return []models.DocumentChunk{{ID: "x", Title: "Some Doc", Content: "text"}}
			},
		},
		&MockGenerator{
			GenerateFunc: func(ctx context.Context, userPrompt, systemPrompt string, maxTokens int) string {
				gotMaxTokens = maxTokens
				return "answer"
			},
		},
	)
	svc.Ask(context.Background(), models.ChatRequest{Question: "anything", TopK: 3, MaxTokens: 900})
	if gotMaxTokens != 900 {
		t.Errorf("Expected caller's maxTokens to pass through, got %d", gotMaxTokens)
	}
}

func TestAskCitationExtraction(t *testing.T) {
	chunks := []models.DocumentChunk{
		{ID: "a", Title: "Detector Noise Primer", Content: "noise"},
		{ID: "b", Title: "Gravity Spy Handbook", Content: "classification"},
	}
	ret := &MockRetriever{
		RetrieveFunc: func(ctx context.Context, query string, topK int) []models.DocumentChunk {
			return chunks
		},
	}

	svc := NewService(ret, &MockGenerator{
		GenerateFunc: func(ctx context.Context, userPrompt, systemPrompt string, maxTokens int) string {
			return "According to the Gravity Spy Handbook, volunteers classify glitches."
		},
	})
	resp := svc.Ask(context.Background(), models.ChatRequest{Question: "how are glitches classified?"})
	if resp.SourcesUsed != 1 || resp.Citations[0].Title != "Gravity Spy Handbook" {
		t.Errorf("Expected only the mentioned title cited, got %+v", resp.Citations)
	}
	if resp.Confidence != models.ConfidenceMedium {
		t.Errorf("Expected medium confidence, got %q", resp.Confidence)
	}
}

func TestAskCitesAllWhenNoTitleMatches(t *testing.T) {
	chunks := []models.DocumentChunk{
		{ID: "a", Title: "Detector Noise Primer", Content: "noise"},
		{ID: "b", Title: "Gravity Spy Handbook", Content: "classification"},
	}
	svc := NewService(
		&MockRetriever{
			RetrieveFunc: func(ctx context.Context, query string, topK int) []models.DocumentChunk {
				return chunks
			},
		},
		&MockGenerator{
			GenerateFunc: func(ctx context.Context, userPrompt, systemPrompt string, maxTokens int) string {
				return "A paraphrased answer that names no document."
			},
		},
	)

	resp := svc.Ask(context.Background(), models.ChatRequest{Question: "glitches?"})
	if resp.SourcesUsed != 2 {
		t.Errorf("Expected the full retrieved set cited, got %d", resp.SourcesUsed)
	}
	if resp.Confidence != models.ConfidenceHigh {
		t.Errorf("Expected high confidence for 2 sources, got %q", resp.Confidence)
	}
	if resp.Citations[0].Title != "Detector Noise Primer" || resp.Citations[1].Title != "Gravity Spy Handbook" {
		t.Errorf("Expected citations in retrieval order, got %+v", resp.Citations)
	}
}

func TestConfidenceFor(t *testing.T) {
	tests := []struct {
		sources  int
		expected string
	}{
		{0, models.ConfidenceLow},
		{1, models.ConfidenceMedium},
		{2, models.ConfidenceHigh},
		{5, models.ConfidenceHigh},
	}

	for _, tt := range tests {
		if got := confidenceFor(tt.sources); got != tt.expected {
			t.Errorf("confidenceFor(%d) = %q, want %q", tt.sources, got, tt.expected)
		}
	}
}

package generate

import (
	"context"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/aosmith-syr/gravitychat/internal/ai"
)

// cannedAnswer maps a topic keyword to a fixed local answer. Lookup order
// matters: the first key found in the question wins.
type cannedAnswer struct {
	keyword string
	text    string
}

// cannedAnswers is the fixed fallback table, initialized once at startup.
var cannedAnswers = []cannedAnswer{
	{
		keyword: "ligo",
		text:    "LIGO (Laser Interferometer Gravitational-Wave Observatory) is a large-scale physics experiment designed to detect cosmic gravitational waves. The observatory uses laser interferometry to measure minute ripples in space-time caused by passing gravitational waves from cataclysmic cosmic events such as merging neutron stars or black holes.",
	},
	{
		keyword: "gravity spy",
		text:    "Gravity Spy is a citizen science project that helps classify glitches in LIGO data. Volunteers examine spectrograms of gravitational wave detector noise to identify and categorize different types of instrumental artifacts that could interfere with gravitational wave detection.",
	},
	{
		keyword: "alog",
		text:    "aLOGs contain detailed information about instrumental glitches detected in LIGO data. These logs help scientists understand the sources of noise and improve detector sensitivity by identifying and mitigating systematic issues.",
	},
	{
		keyword: "glitch",
		text:    "Glitches in LIGO data are instrumental artifacts that can interfere with gravitational wave detection. They can be caused by various sources including environmental factors, detector hardware issues, or external disturbances. Gravity Spy helps classify these glitches to improve data quality.",
	},
}

// Generator produces answer text. It never fails: when the completion
// backend is unavailable, erroring, or unconfigured, a deterministic canned
// answer is returned instead.
type Generator struct {
	Client ai.Client
}

// NewGenerator creates a generator around the given client. The client may
// be nil, in which case every call takes the fallback path.
func NewGenerator(client ai.Client) *Generator {
	return &Generator{Client: client}
}

// Generate submits both prompts to the backend and returns the completion,
// or a canned answer when the backend cannot be reached.
func (g *Generator) Generate(ctx context.Context, userPrompt, systemPrompt string, maxTokens int) string {
	if g.Client == nil {
		return fallbackAnswer(userPrompt)
	}

	text, err := g.Client.Complete(ctx, systemPrompt, userPrompt, maxTokens)
	if err != nil {
		log.Warn().Err(err).Msg("completion backend failed, using canned fallback")
		return fallbackAnswer(userPrompt)
	}
	log.Info().Int("chars", len(text)).Msg("generated response")
	return text
}

// HealthCheck probes the backend with a minimal request. It never panics or
// errors; any failure collapses to false.
func (g *Generator) HealthCheck(ctx context.Context) bool {
	if g.Client == nil {
		return false
	}
	text, err := g.Client.Complete(ctx, "", "Hello", 10)
	if err != nil {
		log.Debug().Err(err).Msg("completion health check failed")
		return false
	}
	return len(text) > 0
}

// fallbackAnswer is the deterministic, side-effect-free local substitute for
// a hosted completion. The question is recovered from the "Question:" marker
// in the user prompt and matched case-insensitively against the canned
// table.
func fallbackAnswer(userPrompt string) string {
	question := "your question"
	if _, after, found := strings.Cut(userPrompt, "Question:"); found {
		line, _, _ := strings.Cut(after, "\n")
		if q := strings.TrimSpace(line); q != "" {
			question = q
		}
	}

	lowered := strings.ToLower(question)
	for _, ca := range cannedAnswers {
		if strings.Contains(lowered, ca.keyword) {
			return "Based on the LIGO/Gravity Spy knowledge base, " + ca.text
		}
	}

	return "Thank you for your question about '" + question + "'. Based on the available LIGO and Gravity Spy documentation, I can provide information about gravitational wave detection, detector technology, and citizen science opportunities. Could you please be more specific about what aspect you'd like to learn about?"
}

package prompt

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/aosmith-syr/gravitychat/pkg/models"
)

// DataDelimiter encloses the retrieved context block in the user prompt.
const DataDelimiter = "~~~"

// SystemPrompt is the fixed instructional template sent with every
// completion request. It is a process-wide constant, never parametrized per
// call.
const SystemPrompt = `You are a LIGO scientist tasked with responding to citizen scientists with factual,
accessible responses. These might be any questions about LIGO technology, scientific
results, or questions about citizen scientist tasks related to Zooniverse or Gravity Spy.
Your goal is to help citizen scientists with factual responses to their questions that
will enable them to interpret Gravity Spy Glitches and their origins. Use clear, simple
language and avoid technical jargon to ensure accessibility. Translate acronyms to full
words based upon LIGO Abbreviations and Acronyms whenever possible.

IMPORTANT INSTRUCTIONS:
1. Answer ONLY using the provided context between the ` + DataDelimiter + ` markers
2. Always cite your sources using the format [text](url) for URLs
3. If you reference a document, include the title and authors
4. Use phrases like "according to" or "as mentioned in" when citing
5. If the context doesn't contain enough information, clearly state this
6. Expand acronyms when possible (e.g., LIGO = Laser Interferometer Gravitational-Wave Observatory)
7. Maintain a neutral, informative tone
8. Use "some" rather than "all" when referring to data to avoid extremes

When generating summaries, format all URLs without hashtags following this format:
[template_link_text](template_link_url).

Structure responses logically, highlighting common or recent issues, and
maintain a neutral, informative tone. Phrase interpretations with rhetoric like
"an" (as opposed to "the") and "some" as opposed to "all" when referring to the
data. This will avoid extremes when there is a lack of clarity.`

// BuildPrompts formats the question and retrieved chunks into the user
// prompt and returns it with the fixed system prompt. Pure function, no side
// effects.
func BuildPrompts(question string, chunks []models.DocumentChunk) (userPrompt, systemPrompt string) {
	var b strings.Builder
	b.WriteString("Question: ")
	b.WriteString(question)
	b.WriteString("\n\nContext from LIGO/Gravity Spy knowledge base:\n")
	b.WriteString(DataDelimiter)
	b.WriteString("\n")
	b.WriteString(formatChunks(chunks))
	b.WriteString("\n")
	b.WriteString(DataDelimiter)
	b.WriteString("\n\nPlease answer the question using ONLY the provided context. If the context doesn't contain enough information to answer the question, please say so clearly.")

	return b.String(), SystemPrompt
}

// formatChunks renders each chunk with a fixed field order, one blank line
// between chunks, preserving input order.
func formatChunks(chunks []models.DocumentChunk) string {
	parts := make([]string, 0, len(chunks))
	for i, doc := range chunks {
		authors := doc.Authors
		if authors == "" {
			authors = "Unknown"
		}
		year := "Unknown"
		if doc.Year != 0 {
			year = strconv.Itoa(doc.Year)
		}
		url := doc.URL
		if url == "" {
			url = "Not available"
		}
		parts = append(parts, fmt.Sprintf(
			"Document %d:\nTitle: %s\nAuthors: %s\nSource: %s\nYear: %s\nURL: %s\n\nContent:\n%s",
			i+1, doc.Title, authors, doc.Source, year, url, doc.Content,
		))
	}
	return strings.Join(parts, "\n\n")
}

// ExtractCitations returns a citation for each chunk whose title appears,
// case-insensitively, as a substring of the answer. Order follows the input
// chunk order, not appearance order in the answer.
//
// This is a deliberately conservative heuristic: it under-counts when the
// model paraphrases a title, and a short generic title can over-match. Both
// are accepted limitations, not defects.
func ExtractCitations(answer string, chunks []models.DocumentChunk) []models.Citation {
	lowered := strings.ToLower(answer)

	citations := []models.Citation{}
	for _, doc := range chunks {
		if doc.Title == "" || !strings.Contains(lowered, strings.ToLower(doc.Title)) {
			continue
		}
		citations = append(citations, Cite(doc))
	}
	return citations
}

// Cite builds the citation view of a chunk, carrying the retrieval score
// through when one is set.
func Cite(doc models.DocumentChunk) models.Citation {
	c := models.Citation{
		Title:   doc.Title,
		Authors: doc.Authors,
		URL:     doc.URL,
		Year:    doc.Year,
		Source:  doc.Source,
	}
	if doc.Score != 0 {
		score := doc.Score
		c.RelevanceScore = &score
	}
	return c
}

package prompt

import (
	"strings"
	"testing"

	"github.com/aosmith-syr/gravitychat/pkg/models"
)

func TestBuildPrompts(t *testing.T) {
	chunks := []models.DocumentChunk{
		{
			Title:   "Introduction to LIGO",
			Authors: "B. P. Abbott, R. Abbott",
			Content: "LIGO detects gravitational waves.",
			Source:  "Zotero",
			Year:    2016,
			URL:     "https://example.org/ligo-intro",
		},
		{
			Title:   "Understanding aLOGs",
			Content: "aLOGs are electronic logbooks.",
			Source:  "Local",
		},
	}

	user, system := BuildPrompts("What is LIGO?", chunks)

	if system != SystemPrompt {
		t.Error("Expected the fixed system prompt to be returned unchanged")
	}
	if !strings.Contains(system, "citizen scientists") {
		t.Error("Expected system prompt to address citizen scientists")
	}

	if !strings.Contains(user, "Question: What is LIGO?") {
		t.Errorf("Expected question in user prompt, got:\n%s", user)
	}
	if strings.Count(user, DataDelimiter) != 2 {
		t.Errorf("Expected exactly two %q delimiters, got %d", DataDelimiter, strings.Count(user, DataDelimiter))
	}

	// Context block sits between the delimiters.
	start := strings.Index(user, DataDelimiter)
	end := strings.LastIndex(user, DataDelimiter)
	block := user[start+len(DataDelimiter) : end]
	if !strings.Contains(block, "Document 1:") || !strings.Contains(block, "Document 2:") {
		t.Errorf("Expected numbered documents inside delimiters, got:\n%s", block)
	}
	if strings.Index(block, "Introduction to LIGO") > strings.Index(block, "Understanding aLOGs") {
		t.Error("Expected chunks rendered in input order")
	}

	if !strings.Contains(user, "Authors: B. P. Abbott, R. Abbott") {
		t.Error("Expected authors to be rendered")
	}
	if !strings.Contains(user, "Year: 2016") {
		t.Error("Expected year to be rendered")
	}

	// Missing fields get placeholders, never empty values.
	if !strings.Contains(user, "Authors: Unknown") {
		t.Error("Expected 'Unknown' for missing authors")
	}
	if !strings.Contains(user, "Year: Unknown") {
		t.Error("Expected 'Unknown' for missing year")
	}
	if !strings.Contains(user, "URL: Not available") {
		t.Error("Expected 'Not available' for missing URL")
	}
}

func TestBuildPromptsEmptyContext(t *testing.T) {
	user, _ := BuildPrompts("anything", nil)
	if strings.Count(user, DataDelimiter) != 2 {
		t.Errorf("Expected two delimiters even with no chunks, got %d", strings.Count(user, DataDelimiter))
	}
}

func TestExtractCitations(t *testing.T) {
	chunks := []models.DocumentChunk{
		{Title: "Introduction to LIGO", URL: "https://example.org/a", Score: 0.84},
		{Title: "Gravity Spy Citizen Science", URL: "https://example.org/b"},
		{Title: "Understanding aLOGs", URL: "https://example.org/c"},
	}

	tests := []struct {
		name           string
		answer         string
		expectedTitles []string
	}{
		{
			name:           "single title cited",
			answer:         "According to Introduction to LIGO, the detector uses laser interferometry.",
			expectedTitles: []string{"Introduction to LIGO"},
		},
		{
			name:           "two titles cited in chunk order",
			answer:         "As mentioned in Understanding aLOGs and in Introduction to LIGO, logs record detector state.",
			expectedTitles: []string{"Introduction to LIGO", "Understanding aLOGs"},
		},
		{
			name:           "case-insensitive match",
			answer:         "see INTRODUCTION TO LIGO for details",
			expectedTitles: []string{"Introduction to LIGO"},
		},
		{
			name:           "no titles mentioned",
			answer:         "The context does not contain enough information.",
			expectedTitles: []string{},
		},
		{
			name:           "empty answer",
			answer:         "",
			expectedTitles: []string{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ExtractCitations(tt.answer, chunks)
			if len(got) != len(tt.expectedTitles) {
				t.Fatalf("Expected %d citations, got %d: %+v", len(tt.expectedTitles), len(got), got)
			}
			for i, title := range tt.expectedTitles {
				if got[i].Title != title {
					t.Errorf("Citation %d: expected %q, got %q", i, title, got[i].Title)
				}
			}
		})
	}
}

func TestExtractCitationsSkipsEmptyTitles(t *testing.T) {
	chunks := []models.DocumentChunk{{Title: "", Content: "untitled"}}
	got := ExtractCitations("any answer at all", chunks)
	if len(got) != 0 {
		t.Errorf("Expected no citations for untitled chunks, got %+v", got)
	}
}

func TestCite(t *testing.T) {
	doc := models.DocumentChunk{
		Title:   "Introduction to LIGO",
		Authors: "B. P. Abbott",
		URL:     "https://example.org/a",
		Year:    2016,
		Source:  "Zotero",
		Score:   0.84,
	}

	c := Cite(doc)
	if c.Title != doc.Title || c.Authors != doc.Authors || c.URL != doc.URL || c.Year != doc.Year || c.Source != doc.Source {
		t.Errorf("Citation fields do not match chunk: %+v", c)
	}
	if c.RelevanceScore == nil || *c.RelevanceScore != 0.84 {
		t.Errorf("Expected relevance score 0.84, got %v", c.RelevanceScore)
	}

	doc.Score = 0
	c = Cite(doc)
	if c.RelevanceScore != nil {
		t.Errorf("Expected omitted relevance score for zero score, got %v", *c.RelevanceScore)
	}
}

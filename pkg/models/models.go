package models

import "time"

// DocumentChunk is a retrievable unit of document text with provenance
// metadata. Chunks are immutable once created.
type DocumentChunk struct {
	ID         string         `json:"id"`
	Content    string         `json:"content"`
	Title      string         `json:"title"`
	Authors    string         `json:"authors,omitempty"`
	URL        string         `json:"url,omitempty"`
	Year       int            `json:"year,omitempty"`
	Source     string         `json:"source"`
	ChunkIndex int            `json:"chunk_index"`
	Metadata   map[string]any `json:"metadata,omitempty"`
	Score      float64        `json:"score,omitempty"`
}

// ChatRequest is the body of POST /ask.
type ChatRequest struct {
	Question  string         `json:"question"`
	TopK      int            `json:"top_k,omitempty"`
	MaxTokens int            `json:"max_tokens,omitempty"`
	Filters   map[string]any `json:"filters,omitempty"`
}

// Citation is a derived view over a DocumentChunk referenced by an answer.
type Citation struct {
	Title          string   `json:"title"`
	Authors        string   `json:"authors,omitempty"`
	URL            string   `json:"url,omitempty"`
	Year           int      `json:"year,omitempty"`
	Source         string   `json:"source"`
	RelevanceScore *float64 `json:"relevance_score,omitempty"`
}

// Confidence levels derived from the number of sources used.
const (
	ConfidenceLow    = "low"
	ConfidenceMedium = "medium"
	ConfidenceHigh   = "high"
)

// ChatResponse is the answer envelope. SourcesUsed always equals
// len(Citations).
type ChatResponse struct {
	Answer      string     `json:"answer"`
	Citations   []Citation `json:"citations"`
	SourcesUsed int        `json:"sources_used"`
	Confidence  string     `json:"confidence"`
}

// HealthResponse is returned by / and /healthz.
type HealthResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
	Version string `json:"version"`
}

// IndexStatus reports the state of the document index.
type IndexStatus struct {
	Status         string    `json:"status"`
	TotalDocuments int       `json:"total_documents"`
	LastUpdated    time.Time `json:"last_updated"`
	IndexName      string    `json:"index_name"`
	Mode           string    `json:"mode"`
}

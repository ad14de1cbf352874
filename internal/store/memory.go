package store

import (
	"context"
	"strings"
	"sync"
	"time"
	"unicode"

	"github.com/aosmith-syr/gravitychat/pkg/models"
)

// stopWords are dropped during tokenization; a query consisting only of
// these (or of punctuation) produces no tokens and therefore matches
// nothing.
var stopWords = map[string]struct{}{
	"a": {}, "an": {}, "and": {}, "are": {}, "as": {}, "at": {}, "be": {},
	"but": {}, "by": {}, "can": {}, "do": {}, "does": {}, "for": {},
	"from": {}, "has": {}, "have": {}, "how": {}, "i": {}, "in": {},
	"is": {}, "it": {}, "me": {}, "of": {}, "on": {}, "or": {}, "tell": {},
	"that": {}, "the": {}, "this": {}, "to": {}, "was": {}, "what": {},
	"when": {}, "where": {}, "which": {}, "who": {}, "why": {}, "will": {},
	"with": {}, "you": {},
}

// Tokenize lowercases the query, splits on non-alphanumeric runs and drops
// stop words.
func Tokenize(query string) []string {
	fields := strings.FieldsFunc(strings.ToLower(query), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	toks := make([]string, 0, len(fields))
	for _, f := range fields {
		if _, stop := stopWords[f]; stop {
			continue
		}
		toks = append(toks, f)
	}
	return toks
}

// MatchKeywords returns the chunks whose lowercased content or title
// contains any query token as a substring, preserving input order and
// truncated to topK. No scoring is applied.
func MatchKeywords(query string, docs []models.DocumentChunk, topK int) []models.DocumentChunk {
	tokens := Tokenize(query)
	if len(tokens) == 0 || topK <= 0 {
		return []models.DocumentChunk{}
	}

	matched := []models.DocumentChunk{}
	for _, doc := range docs {
		content := strings.ToLower(doc.Content)
		title := strings.ToLower(doc.Title)
		for _, tok := range tokens {
			if strings.Contains(content, tok) || strings.Contains(title, tok) {
				matched = append(matched, doc)
				break
			}
		}
		if len(matched) == topK {
			break
		}
	}
	return matched
}

// Memory is an in-memory DocumentStore holding chunks in insertion order.
// Reads vastly outnumber writes; writes only happen during seeding or an
// in-process ingest.
type Memory struct {
	mu      sync.RWMutex
	docs    []models.DocumentChunk
	index   map[string]int
	updated time.Time
}

// NewMemory creates an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{index: map[string]int{}}
}

// NewMemoryWithFixtures creates an in-memory store seeded with the fixed
// fixture documents.
func NewMemoryWithFixtures() *Memory {
	m := NewMemory()
	for _, d := range FixtureDocuments {
		_ = m.Upsert(context.Background(), d, nil)
	}
	return m
}

func (m *Memory) Mode() string { return "memory" }

// Search applies the keyword algorithm over the stored chunks. The query
// vector is ignored.
func (m *Memory) Search(ctx context.Context, query string, queryVec []float32, k int) ([]models.DocumentChunk, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return MatchKeywords(query, m.docs, k), nil
}

// Upsert adds a chunk, replacing any existing chunk with the same id in
// place so iteration order stays stable.
func (m *Memory) Upsert(ctx context.Context, c models.DocumentChunk, contentVec []float32) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if i, ok := m.index[c.ID]; ok {
		m.docs[i] = c
	} else {
		m.index[c.ID] = len(m.docs)
		m.docs = append(m.docs, c)
	}
	m.updated = time.Now()
	return nil
}

// Stats reports document count and last write time.
func (m *Memory) Stats(ctx context.Context) (IndexStats, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return IndexStats{TotalDocuments: len(m.docs), LastUpdated: m.updated}, nil
}

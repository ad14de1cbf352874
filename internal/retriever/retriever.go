package retriever

import (
	"context"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/aosmith-syr/gravitychat/internal/ai"
	"github.com/aosmith-syr/gravitychat/internal/store"
	"github.com/aosmith-syr/gravitychat/pkg/models"
)

// Service retrieves document chunks for a query. Retrieval never surfaces an
// error: when the backend store fails, the keyword algorithm runs over the
// fixed fixture corpus instead.
type Service struct {
	Client ai.Client
	Store  store.DocumentStore
}

// NewService creates a new retriever with the provided AI client and store.
// The client may be nil; queries are then matched without an embedding.
func NewService(client ai.Client, st store.DocumentStore) *Service {
	return &Service{
		Client: client,
		Store:  st,
	}
}

// Retrieve returns up to topK chunks relevant to the query, in store order.
// An empty or stopword-only query matches nothing.
func (s *Service) Retrieve(ctx context.Context, query string, topK int) []models.DocumentChunk {
	query = strings.TrimSpace(query)

	var head []float32
	if s.Client != nil {
		var err error
		head, err = s.Client.Embed(ctx, query)
		if err != nil {
			log.Debug().Err(err).Msg("query embedding unavailable, searching without a vector")
			head = nil
		}
	}

	res, err := s.Store.Search(ctx, query, head, topK)
	if err != nil {
		log.Warn().Err(err).Str("query", truncate(query, 50)).Msg("store search failed, falling back to fixture corpus")
		return store.MatchKeywords(query, store.FixtureDocuments, topK)
	}
	if res == nil {
		res = []models.DocumentChunk{}
	}
	return res
}

func truncate(s string, n int) string {
	if len(s) > n {
		return s[:n]
	}
	return s
}

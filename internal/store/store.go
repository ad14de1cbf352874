package store

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	pgvector "github.com/pgvector/pgvector-go"

	"github.com/aosmith-syr/gravitychat/pkg/models"
)

// IndexStats describes the state of the document index.
type IndexStats struct {
	TotalDocuments int
	LastUpdated    time.Time
}

// DocumentStore is the backend the retriever searches. Implementations must
// return results in a stable order.
type DocumentStore interface {
	// Search returns up to k chunks relevant to the query. queryVec may be
	// nil when no embedding is available; implementations that cannot use
	// it must ignore it.
	Search(ctx context.Context, query string, queryVec []float32, k int) ([]models.DocumentChunk, error)
	Upsert(ctx context.Context, c models.DocumentChunk, contentVec []float32) error
	Stats(ctx context.Context) (IndexStats, error)
	Mode() string
}

// Postgres is a DocumentStore backed by Postgres with pgvector.
type Postgres struct {
	pool *pgxpool.Pool
}

// NewPostgres creates a store connected to the given database URL.
func NewPostgres(ctx context.Context, url string) (*Postgres, error) {
	cfg, err := pgxpool.ParseConfig(url)
	if err != nil {
		return nil, err
	}
	p, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, err
	}
	return &Postgres{pool: p}, nil
}

func (s *Postgres) Close() { s.pool.Close() }

func (s *Postgres) Mode() string { return "postgres" }

// Migrate applies necessary database migrations and schema setup.
func (s *Postgres) Migrate(ctx context.Context, dim int) error {
	q := `
CREATE EXTENSION IF NOT EXISTS vector;

CREATE TABLE IF NOT EXISTS documents (
  id           TEXT PRIMARY KEY,
  title        TEXT NOT NULL,
  authors      TEXT,
  year         INT,
  url          TEXT,
  source       TEXT NOT NULL,
  chunk_index  INT NOT NULL DEFAULT 0,
  content      TEXT NOT NULL,
  metadata     JSONB,
  content_vec  vector(%d),
  created_at   TIMESTAMP WITH TIME ZONE DEFAULT now(),
  ts_fielded   tsvector GENERATED ALWAYS AS (
	setweight(to_tsvector('english', coalesce(title,'')), 'A') ||
	setweight(to_tsvector('english', coalesce(content,'')), 'B')
  ) STORED
);

CREATE INDEX IF NOT EXISTS documents_source_idx
  ON documents (source);

CREATE INDEX IF NOT EXISTS documents_ts_fielded_gin
  ON documents USING GIN (ts_fielded);

CREATE INDEX IF NOT EXISTS documents_content_vec_idx
  ON documents USING ivfflat (content_vec vector_cosine_ops) WITH (lists = 100);
`
	_, err := s.pool.Exec(ctx, fmt.Sprintf(q, dim))
	return err
}

// Upsert inserts or replaces a document chunk.
func (s *Postgres) Upsert(ctx context.Context, c models.DocumentChunk, contentVec []float32) error {
	var cv any
	if contentVec != nil {
		cv = pgvector.NewVector(contentVec)
	} else {
		cv = (*pgvector.Vector)(nil)
	}

	var meta any
	if c.Metadata != nil {
		b, err := json.Marshal(c.Metadata)
		if err != nil {
			return fmt.Errorf("marshal metadata: %w", err)
		}
		meta = b
	}

	const q = `
		INSERT INTO documents (
			id, title, authors, year, url, source, chunk_index, content, metadata, content_vec, created_at
		) VALUES (
			$1,$2,$3,NULLIF($4,0),$5,$6,$7,$8,$9,$10,now()
		)
		ON CONFLICT (id) DO UPDATE SET
			title       = EXCLUDED.title,
			authors     = EXCLUDED.authors,
			year        = EXCLUDED.year,
			url         = EXCLUDED.url,
			source      = EXCLUDED.source,
			chunk_index = EXCLUDED.chunk_index,
			content     = EXCLUDED.content,
			metadata    = EXCLUDED.metadata,
			content_vec = COALESCE(EXCLUDED.content_vec, documents.content_vec),
			created_at  = now();`

	_, err := s.pool.Exec(ctx, q,
		c.ID, c.Title, c.Authors, c.Year, c.URL, c.Source, c.ChunkIndex, c.Content, meta, cv,
	)
	return err
}

// Search ranks documents lexically (tsquery over title and content) and,
// when a query embedding is provided, by cosine similarity of the content
// vector. A plain ILIKE token match is kept as a floor so that short or
// unstemmable tokens still hit.
func (s *Postgres) Search(ctx context.Context, query string, queryVec []float32, k int) ([]models.DocumentChunk, error) {
	qtext := strings.TrimSpace(query)
	if qtext == "" || k <= 0 {
		return []models.DocumentChunk{}, nil
	}

	tokens := Tokenize(qtext)
	if len(tokens) == 0 {
		return []models.DocumentChunk{}, nil
	}

	var qv any
	if queryVec != nil {
		qv = pgvector.NewVector(queryVec)
	} else {
		qv = (*pgvector.Vector)(nil)
	}

	q := fmt.Sprintf(`
WITH q AS (
  SELECT
    $1::vector AS qv,
    to_tsquery('english', array_to_string($2::text[], ' | ')) AS tq,
    $2::text[] AS toks
),
cand AS (
  SELECT
    id, title, authors, year, url, source, chunk_index, content, metadata, created_at,

    CASE WHEN (SELECT qv FROM q) IS NULL OR content_vec IS NULL THEN 0
         ELSE LEAST(GREATEST((1.0 - (content_vec <=> (SELECT qv FROM q))), 0), 1)
    END AS sem_sim,

    LEAST(GREATEST(ts_rank_cd(ts_fielded, (SELECT tq FROM q)), 0), 1) AS lex_sim,

    CASE WHEN EXISTS (
      SELECT 1 FROM unnest((SELECT toks FROM q)) t
      WHERE lower(content) LIKE '%%' || t || '%%'
         OR lower(title)   LIKE '%%' || t || '%%'
    ) THEN 1 ELSE 0 END AS tok_hit
  FROM documents
)
SELECT id, title, authors, year, url, source, chunk_index, content, metadata,
  (0.60 * sem_sim + 0.35 * lex_sim + 0.05 * tok_hit) AS score
FROM cand
WHERE sem_sim > 0 OR lex_sim > 0 OR tok_hit = 1
ORDER BY score DESC, created_at ASC
LIMIT %d;
`, k)

	rows, err := s.pool.Query(ctx, q, qv, tokens)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.DocumentChunk
	for rows.Next() {
		var c models.DocumentChunk
		var authors, url *string
		var year *int
		var meta []byte
		if err := rows.Scan(
			&c.ID, &c.Title, &authors, &year, &url, &c.Source, &c.ChunkIndex, &c.Content, &meta, &c.Score,
		); err != nil {
			return nil, err
		}
		if authors != nil {
			c.Authors = *authors
		}
		if url != nil {
			c.URL = *url
		}
		if year != nil {
			c.Year = *year
		}
		if len(meta) > 0 {
			if err := json.Unmarshal(meta, &c.Metadata); err != nil {
				return nil, fmt.Errorf("unmarshal metadata for %s: %w", c.ID, err)
			}
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// Stats reports document count and freshness.
func (s *Postgres) Stats(ctx context.Context) (IndexStats, error) {
	const q = `SELECT count(*), COALESCE(max(created_at), to_timestamp(0)) FROM documents`
	var st IndexStats
	if err := s.pool.QueryRow(ctx, q).Scan(&st.TotalDocuments, &st.LastUpdated); err != nil {
		return IndexStats{}, err
	}
	return st, nil
}

// Ping checks the database connectivity.
func (s *Postgres) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	return s.pool.Ping(ctx)
}

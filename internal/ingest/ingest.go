package ingest

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/karrick/godirwalk"
	"github.com/rs/zerolog/log"

	"github.com/aosmith-syr/gravitychat/internal/ai"
	"github.com/aosmith-syr/gravitychat/internal/blob"
	"github.com/aosmith-syr/gravitychat/internal/store"
	"github.com/aosmith-syr/gravitychat/internal/zotero"
	"github.com/aosmith-syr/gravitychat/pkg/models"
)

// FileSystemWalker defines the interface for walking directories
type FileSystemWalker interface {
	Walk(root string, options *godirwalk.Options) error
}

// FileReader defines the interface for reading files
type FileReader interface {
	ReadFile(filename string) ([]byte, error)
}

// DefaultFileSystemWalker implements FileSystemWalker using godirwalk
type DefaultFileSystemWalker struct{}

func (d *DefaultFileSystemWalker) Walk(root string, options *godirwalk.Options) error {
	return godirwalk.Walk(root, options)
}

// DefaultFileReader implements FileReader using os
type DefaultFileReader struct{}

func (d *DefaultFileReader) ReadFile(filename string) ([]byte, error) {
	return os.ReadFile(filename)
}

// Ingestor populates the document store from the Zotero group library and,
// optionally, a local documents directory. Ingestion is an offline batch
// operation; it never interleaves with live query traffic.
type Ingestor struct {
	Store      store.DocumentStore
	Client     ai.Client
	Zotero     *zotero.Client
	Blobs      *blob.Client
	DocsRoot   string
	Walker     FileSystemWalker
	FileReader FileReader
}

// New creates an Ingestor with the default filesystem dependencies.
func New(st store.DocumentStore, client ai.Client, z *zotero.Client, blobs *blob.Client, docsRoot string) *Ingestor {
	return &Ingestor{
		Store:      st,
		Client:     client,
		Zotero:     z,
		Blobs:      blobs,
		DocsRoot:   docsRoot,
		Walker:     &DefaultFileSystemWalker{},
		FileReader: &DefaultFileReader{},
	}
}

// Run syncs the Zotero library and then the local docs directory when one is
// configured. Transient backend failures degrade (mock records, nil
// embeddings, skipped blobs) instead of aborting the batch.
func (ix *Ingestor) Run(ctx context.Context, limit int) error {
	records, live := ix.Zotero.Sync(ctx, limit)
	if !live {
		log.Warn().Msg("zotero unreachable; ingesting the mock record set")
	}

	for i, chunk := range zotero.ToChunks(records) {
		rec := records[i]
		if url := ix.archiveRecord(ctx, rec); url != "" {
			if chunk.Metadata == nil {
				chunk.Metadata = map[string]any{}
			}
			chunk.Metadata["blob_url"] = url
		}
		ix.upsert(ctx, chunk)
	}

	if ix.DocsRoot == "" {
		return nil
	}
	return ix.ingestLocal(ctx)
}

// archiveRecord stores the normalized record alongside the index so the
// original bibliography survives Zotero outages. Failures are logged, not
// fatal.
func (ix *Ingestor) archiveRecord(ctx context.Context, rec zotero.Record) string {
	if ix.Blobs == nil {
		return ""
	}
	b, err := json.Marshal(rec)
	if err != nil {
		log.Warn().Err(err).Str("id", rec.ID).Msg("marshal record failed, skipping archive")
		return ""
	}
	url, err := ix.Blobs.Store(ctx, "zotero/"+rec.ID+".json", b)
	if err != nil {
		log.Warn().Err(err).Str("id", rec.ID).Msg("blob upload failed, skipping archive")
		return ""
	}
	return url
}

// ingestLocal walks the docs directory and indexes markdown and plain-text
// files as single chunks.
func (ix *Ingestor) ingestLocal(ctx context.Context) error {
	return ix.Walker.Walk(ix.DocsRoot, &godirwalk.Options{
		Unsorted: true,
		Callback: func(path string, de *godirwalk.Dirent) error {
			// de may be nil when a test walker synthesizes entries
			if de != nil && de.IsDir() {
				return nil
			}
			if shouldSkip(path) {
				return nil
			}

			b, err := ix.FileReader.ReadFile(path)
			if err != nil {
				log.Warn().Err(err).Str("path", path).Msg("failed to read file")
				return nil
			}

			select {
			case <-ctx.Done():
				return ctx.Err()
			default:
			}

			ix.upsert(ctx, localChunk(ix.DocsRoot, path, string(b)))
			return nil
		},
	})
}

// upsert embeds and stores one chunk. Embedding failures leave the vector
// nil; the lexical index still serves the chunk.
func (ix *Ingestor) upsert(ctx context.Context, chunk models.DocumentChunk) {
	var vec []float32
	if ix.Client != nil {
		var err error
		vec, err = ix.Client.Embed(ctx, chunk.Content)
		if err != nil {
			log.Warn().Err(err).Str("id", chunk.ID).Msg("embedding failed, indexing without a vector")
			vec = nil
		}
	}

	log.Info().Str("id", chunk.ID).Str("source", chunk.Source).Bool("embedded", vec != nil).Msg("indexing chunk")
	if err := ix.Store.Upsert(ctx, chunk, vec); err != nil {
		log.Error().Err(err).Str("id", chunk.ID).Msg("upsert failed")
	}
}

// localChunk builds a DocumentChunk from a file under the docs root. The id
// is derived from the relative path so re-runs update in place.
func localChunk(root, path, content string) models.DocumentChunk {
	relPath := rel(root, path)
	return models.DocumentChunk{
		ID:         "local-" + uuid.NewSHA1(uuid.NameSpaceURL, []byte(relPath)).String(),
		Content:    content,
		Title:      titleOf(relPath, content),
		Source:     "Local",
		ChunkIndex: 0,
		Metadata:   map[string]any{"path": relPath},
	}
}

// titleOf uses the first markdown heading when present, else the file name
// without extension.
func titleOf(relPath, content string) string {
	for _, line := range strings.Split(content, "\n") {
		line = strings.TrimSpace(line)
		if strings.HasPrefix(line, "#") {
			if t := strings.TrimSpace(strings.TrimLeft(line, "#")); t != "" {
				return t
			}
		}
	}
	base := filepath.Base(relPath)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// shouldSkip returns true if the file at path should be skipped.
func shouldSkip(path string) bool {
	p := strings.ToLower(path)
	if strings.Contains(p, "/.git/") ||
		strings.Contains(p, "/node_modules/") ||
		strings.Contains(p, "/.venv/") ||
		strings.Contains(p, "/venv/") ||
		strings.Contains(p, "/__pycache__/") ||
		strings.Contains(p, "/.cache/") {
		return true
	}
	switch filepath.Ext(p) {
	case ".md", ".txt":
		return false
	}
	return true
}

func rel(root, p string) string {
	r, err := filepath.Rel(root, p)
	if err != nil {
		return p
	}
	return r
}

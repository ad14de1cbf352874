package main

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/spf13/pflag"

	"github.com/aosmith-syr/gravitychat/internal/ai"
	"github.com/aosmith-syr/gravitychat/internal/auth"
	"github.com/aosmith-syr/gravitychat/internal/blob"
	"github.com/aosmith-syr/gravitychat/internal/config"
	"github.com/aosmith-syr/gravitychat/internal/ingest"
	"github.com/aosmith-syr/gravitychat/internal/store"
	"github.com/aosmith-syr/gravitychat/internal/zotero"
)

func main() {
	fs := pflag.NewFlagSet("gravitychat-ingest", pflag.ExitOnError)
	fs.Int("limit", 100, "Maximum number of Zotero items to fetch")
	fs.String("mint-token", "", "Mint an API bearer token for the given subject and exit")

	cfg, err := config.Load("", fs)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	fs.Usage = cfg.Usage

	if subject, _ := fs.GetString("mint-token"); subject != "" {
		auth.Init(cfg.Auth.JwtSecret, true)
		token, err := auth.GenerateToken(subject, 24*time.Hour)
		if err != nil {
			log.Fatalf("Failed to mint token: %v", err)
		}
		fmt.Println(token)
		return
	}

	if strings.TrimSpace(cfg.Database) == "" {
		log.Fatal("GRAVITYCHAT_DB_URL is required for ingestion (env/file/flag)")
	}

	provider := strings.ToLower(cfg.Provider)
	log.Printf("using provider: %s", provider)
	var clientConfig *ai.ClientConfig
	switch provider {
	case "azure", "openai":
		clientConfig = &ai.ClientConfig{
			APIKey:          cfg.APIKey,
			Endpoint:        cfg.Endpoint,
			CompletionModel: cfg.CompletionModel,
			EmbedModel:      cfg.EmbedModel,
			Dim:             cfg.Dim,
			Provider:        ai.ProviderAzure,
		}
	case "vertexai", "google":
		clientConfig = &ai.ClientConfig{
			APIKey:          cfg.APIKey,
			CompletionModel: cfg.CompletionModel,
			EmbedModel:      cfg.EmbedModel,
			Dim:             cfg.Dim,
			ProjectID:       cfg.ProjectID,
			Location:        cfg.Location,
			Provider:        ai.ProviderVertexAI,
		}
	case "stub":
		clientConfig = &ai.ClientConfig{
			Dim:      cfg.Dim,
			Provider: ai.ProviderStub,
		}
	default:
		log.Fatalf("unsupported provider: %s", provider)
	}

	ctx := context.Background()

	st, err := store.NewPostgres(ctx, cfg.Database)
	if err != nil {
		log.Fatal(err)
	}
	defer st.Close()

	client, err := ai.NewClient(clientConfig)
	if err != nil {
		log.Fatal(err)
	}

	dim := client.Dim()
	if dim == 0 {
		dim = 1536
	}
	if err := st.Migrate(ctx, dim); err != nil {
		log.Fatal(err)
	}

	z := zotero.NewClient(cfg.ZoteroAPIKey, cfg.ZoteroGroupID)
	blobs := blob.NewClient(cfg.StorageAccount, cfg.Container, cfg.StorageSAS)

	ix := ingest.New(st, client, z, blobs, cfg.DocsRoot)

	limit, _ := fs.GetInt("limit")
	if err := ix.Run(ctx, limit); err != nil {
		log.Fatal(err)
	}
}

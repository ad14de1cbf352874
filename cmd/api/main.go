package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/hlog"
	"github.com/spf13/pflag"

	"github.com/aosmith-syr/gravitychat/internal/ai"
	"github.com/aosmith-syr/gravitychat/internal/auth"
	"github.com/aosmith-syr/gravitychat/internal/chat"
	"github.com/aosmith-syr/gravitychat/internal/config"
	"github.com/aosmith-syr/gravitychat/internal/generate"
	"github.com/aosmith-syr/gravitychat/internal/retriever"
	"github.com/aosmith-syr/gravitychat/internal/store"
	"github.com/aosmith-syr/gravitychat/pkg/models"
)

const version = "1.0.0"

func main() {
	// Create flagset for configuration
	fs := pflag.NewFlagSet("gravitychat-api", pflag.ExitOnError)

	// Load configuration
	cfg, err := config.Load("", fs)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	fs.Usage = cfg.Usage

	// Set up logging
	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil {
		log.Fatalf("Invalid log level '%s': %v", cfg.LogLevel, err)
	}
	logger := zerolog.New(os.Stdout).Level(level).With().Timestamp().Logger()
	logger.Info().Str("provider", cfg.Provider).Str("log_level", cfg.LogLevel).Bool("auth_enabled", cfg.Auth.Enabled).Msg("starting gravitychat api")

	clientConfig, err := clientConfigFor(cfg)
	if err != nil {
		log.Fatalf("%v", err)
	}

	auth.Init(cfg.Auth.JwtSecret, cfg.Auth.Enabled)

	ctx := context.Background()

	c, err := ai.NewClient(clientConfig)
	if err != nil {
		log.Fatalf("Failed to create AI client: %v", err)
	}

	// Select the document store once at startup: Postgres when a database
	// URL is configured, otherwise the in-memory store seeded with the
	// fixture corpus.
	var st store.DocumentStore
	if strings.TrimSpace(cfg.Database) != "" {
		pg, err := store.NewPostgres(ctx, cfg.Database)
		if err != nil {
			log.Fatalf("Failed to connect to database: %v", err)
		}
		defer pg.Close()

		dim := c.Dim()
		if dim == 0 {
			dim = 1536
		}
		if err := pg.Migrate(ctx, dim); err != nil {
			log.Fatalf("Failed to migrate database: %v", err)
		}
		st = pg
	} else {
		logger.Info().Msg("no database configured, serving the in-memory fixture corpus")
		st = store.NewMemoryWithFixtures()
	}

	ret := retriever.NewService(c, st)
	gen := generate.NewGenerator(c)
	svc := chat.NewService(ret, gen)

	mux := http.NewServeMux()

	health := func(message string) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			writeJSON(w, http.StatusOK, models.HealthResponse{
				Status:  "healthy",
				Message: message,
				Version: version,
			})
		}
	}
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/" {
			http.NotFound(w, r)
			return
		}
		health("GRAVITYchat API is running")(w, r)
	})
	mux.HandleFunc("/healthz", health("All services operational"))

	// Auth status endpoint (always available)
	mux.HandleFunc("/auth/status", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]bool{"enabled": auth.IsEnabled()})
	})

	mux.HandleFunc("/ask", auth.OptionalMiddleware(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}
		start := time.Now()

		var req models.ChatRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "Invalid request body", http.StatusBadRequest)
			return
		}
		if msg := validateRequest(req); msg != "" {
			http.Error(w, msg, http.StatusBadRequest)
			return
		}

		ctx, cancel := context.WithTimeout(r.Context(), 60*time.Second)
		defer cancel()

		res := svc.Ask(ctx, req)
		writeJSON(w, http.StatusOK, res)

		hlog.FromRequest(r).Info().
			Str("path", "/ask").
			Str("question", truncate(req.Question, 100)).
			Int("sources_used", res.SourcesUsed).
			Str("confidence", res.Confidence).
			Dur("dur", time.Since(start)).
			Msg("served")
	}))

	mux.HandleFunc("/index/status", auth.OptionalMiddleware(func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()

		stats, err := st.Stats(ctx)
		status := "healthy"
		if err != nil {
			hlog.FromRequest(r).Warn().Err(err).Msg("index stats unavailable")
			status = "degraded"
		}
		writeJSON(w, http.StatusOK, models.IndexStatus{
			Status:         status,
			TotalDocuments: stats.TotalDocuments,
			LastUpdated:    stats.LastUpdated,
			IndexName:      cfg.IndexName,
			Mode:           st.Mode(),
		})
	}))

	handler := hlog.NewHandler(logger)(
		hlog.AccessHandler(func(r *http.Request, status, size int, dur time.Duration) {
			logger.Info().Str("method", r.Method).Str("path", r.URL.Path).Int("status", status).Int("size", size).Dur("dur", dur).Msg("http")
		})(recoverer(logger, mux)),
	)

	address := fmt.Sprintf(":%d", cfg.Port)
	s := &http.Server{Addr: address, Handler: handler}
	logger.Info().Str("addr", s.Addr).Msg("api server listening")
	log.Fatal(s.ListenAndServe())
}

// clientConfigFor maps the configured provider name to an AI client config.
func clientConfigFor(cfg config.Specification) (*ai.ClientConfig, error) {
	switch strings.ToLower(cfg.Provider) {
	case "azure", "openai":
		return &ai.ClientConfig{
			APIKey:          cfg.APIKey,
			Endpoint:        cfg.Endpoint,
			CompletionModel: cfg.CompletionModel,
			EmbedModel:      cfg.EmbedModel,
			Dim:             cfg.Dim,
			Provider:        ai.ProviderAzure,
		}, nil
	case "vertexai", "google":
		return &ai.ClientConfig{
			APIKey:          cfg.APIKey,
			CompletionModel: cfg.CompletionModel,
			EmbedModel:      cfg.EmbedModel,
			Dim:             cfg.Dim,
			ProjectID:       cfg.ProjectID,
			Location:        cfg.Location,
			Provider:        ai.ProviderVertexAI,
		}, nil
	case "stub":
		return &ai.ClientConfig{
			Dim:      cfg.Dim,
			Provider: ai.ProviderStub,
		}, nil
	default:
		return nil, fmt.Errorf("unsupported provider: %s", cfg.Provider)
	}
}

// validateRequest enforces the request bounds before anything reaches the
// pipeline. Zero values mean "use the default".
func validateRequest(req models.ChatRequest) string {
	q := strings.TrimSpace(req.Question)
	if q == "" {
		return "question is required"
	}
	if len(req.Question) > 1000 {
		return "question must be at most 1000 characters"
	}
	if req.TopK != 0 && (req.TopK < 1 || req.TopK > 20) {
		return "top_k must be between 1 and 20"
	}
	if req.MaxTokens != 0 && (req.MaxTokens < 100 || req.MaxTokens > 2000) {
		return "max_tokens must be between 100 and 2000"
	}
	return ""
}

// recoverer is the outermost guard: an unexpected panic in a handler is
// reported as a generic server error with no partial response.
func recoverer(logger zerolog.Logger, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				logger.Error().Interface("panic", rec).Str("path", r.URL.Path).Msg("handler panicked")
				http.Error(w, "Internal server error", http.StatusInternalServerError)
			}
		}()
		next.ServeHTTP(w, r)
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("failed to encode response: %v", err)
	}
}

func truncate(s string, n int) string {
	if len(s) > n {
		return s[:n]
	}
	return s
}

package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"github.com/spf13/pflag"
	"gopkg.in/yaml.v3"
)

type Specification struct {
	Provider        string            `yaml:"provider"`
	APIKey          string            `yaml:"providerApiKey" envconfig:"PROVIDER_API_KEY"`
	Endpoint        string            `yaml:"providerEndpoint" envconfig:"PROVIDER_ENDPOINT"`
	CompletionModel string            `yaml:"providerCompletionModel" envconfig:"PROVIDER_COMPLETION_MODEL"`
	EmbedModel      string            `yaml:"providerEmbedModel" envconfig:"PROVIDER_EMBEDDING_MODEL"`
	ProjectID       string            `yaml:"providerProjectID" envconfig:"PROVIDER_PROJECT_ID"`
	Location        string            `yaml:"providerLocation" envconfig:"PROVIDER_LOCATION"`
	Dim             int               `yaml:"providerDim" envconfig:"EMBED_DIM"`
	Database        string            `yaml:"database" envconfig:"DB_URL"`
	IndexName       string            `yaml:"indexName" split_words:"true"`
	ZoteroAPIKey    string            `yaml:"zoteroApiKey" envconfig:"ZOTERO_API_KEY"`
	ZoteroGroupID   string            `yaml:"zoteroGroupID" envconfig:"ZOTERO_GROUP_ID"`
	StorageAccount  string            `yaml:"storageAccount" split_words:"true"`
	StorageSAS      string            `yaml:"storageSAS" envconfig:"STORAGE_SAS"`
	Container       string            `yaml:"storageContainer" envconfig:"STORAGE_CONTAINER"`
	DocsRoot        string            `yaml:"docsRoot" split_words:"true"`
	LogLevel        string            `yaml:"logLevel" split_words:"true"`
	Port            int               `yaml:"port" split_words:"true"`
	Auth            AuthSpecification `yaml:"auth"`

	flags *pflag.FlagSet `ignored:"true"`
}

type AuthSpecification struct {
	Enabled   bool   `yaml:"enabled"`
	JwtSecret string `yaml:"jwtSecret" split_words:"true"`
}

const envPrefix = "GRAVITYCHAT"

func (s *Specification) Usage() {
	fmt.Fprint(os.Stderr, s.flags.FlagUsages())
}

// Load => defaults < .env < YAML < env < flags.
// configPath may be ""; if so we auto-discover.
func Load(configPath string, fs *pflag.FlagSet) (Specification, error) {
	var cfg Specification

	// set defaults (lowest precedence)
	setDefaults(&cfg)
	bindFlags(fs, &cfg)

	// .env files seed the process environment before envconfig runs; a
	// missing file is not an error
	_ = godotenv.Load()

	// config file
	path := configPath
	if path == "" {
		if v := os.Getenv(envPrefix + "_CONFIG"); v != "" {
			path = v
		} else {
			for _, cand := range []string{
				"config/gravitychat.yaml",
				"config/config.yaml",
				"./gravitychat.yaml",
				"./config.yaml",
			} {
				if fileExists(cand) {
					path = cand
					break
				}
			}
		}
	}

	if path != "" {
		if !fileExists(path) {
			return Specification{}, fmt.Errorf("config file not found: %s", path)
		}
		if err := loadYAML(path, &cfg); err != nil {
			return Specification{}, fmt.Errorf("load yaml %s: %w", path, err)
		}
	}

	// env overrides config file
	if err := envconfig.Process(envPrefix, &cfg); err != nil {
		return Specification{}, fmt.Errorf("env override: %w", err)
	}

	// flags override everything
	if err := fs.Parse(os.Args[1:]); err != nil {
		return Specification{}, err
	}
	applyChangedFlags(fs, &cfg)

	// Minimal sanity
	if strings.TrimSpace(cfg.LogLevel) == "" {
		cfg.LogLevel = "info"
	}
	if cfg.Auth.Enabled && strings.TrimSpace(cfg.Auth.JwtSecret) == "" {
		return Specification{}, fmt.Errorf("GRAVITYCHAT_AUTH_JWT_SECRET is required when auth is enabled")
	}
	return cfg, nil
}

// ---------- helpers ----------

func loadYAML(path string, into any) error {
	b, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	return yaml.Unmarshal(b, into)
}

func fileExists(p string) bool {
	fi, err := os.Stat(p)
	return err == nil && !fi.IsDir()
}

func bindFlags(fs *pflag.FlagSet, c *Specification) {
	fs.String("config", "", "Path to config file")

	// If --config is provided on the command line, capture it now so
	// config discovery (which runs before flags.Parse) can use it.
	for i, a := range os.Args {
		if a == "--config" {
			if i+1 < len(os.Args) && !strings.HasPrefix(os.Args[i+1], "-") {
				_ = os.Setenv(envPrefix+"_CONFIG", os.Args[i+1])
			}
		} else if strings.HasPrefix(a, "--config=") {
			parts := strings.SplitN(a, "=", 2)
			if len(parts) == 2 {
				_ = os.Setenv(envPrefix+"_CONFIG", parts[1])
			}
		}
	}

	fs.String("provider", c.Provider, "Provider (e.g., stub, azure, vertexai)")
	fs.String("provider-api-key", c.APIKey, "Provider API key")
	fs.String("provider-endpoint", c.Endpoint, "Provider endpoint URL (Azure OpenAI resource)")
	fs.String("provider-completion-model", c.CompletionModel, "Provider completion model/deployment")
	fs.String("provider-embedding-model", c.EmbedModel, "Provider embedding model/deployment")
	fs.String("provider-project-id", c.ProjectID, "Provider project ID")
	fs.String("provider-location", c.Location, "Provider location/region")

	fs.Int("embed-dim", c.Dim, "Embedding dimensionality")

	fs.String("db-url", c.Database, "Database URL (DSN); empty selects the in-memory store")
	fs.String("index-name", c.IndexName, "Logical name of the document index")

	fs.String("zotero-api-key", c.ZoteroAPIKey, "Zotero API key")
	fs.String("zotero-group-id", c.ZoteroGroupID, "Zotero group library ID")

	fs.String("storage-account", c.StorageAccount, "Blob storage account name")
	fs.String("storage-sas", c.StorageSAS, "Blob storage SAS token")
	fs.String("storage-container", c.Container, "Blob storage container name")

	fs.String("docs-root", c.DocsRoot, "Optional local documents directory to ingest")

	fs.String("log-level", c.LogLevel, "Log level (debug|info|warn|error)")
	fs.Int("port", c.Port, "API server port")

	fs.Bool("auth-enabled", c.Auth.Enabled, "Enable JWT bearer authentication")
	fs.String("auth-jwt-secret", c.Auth.JwtSecret, "JWT secret for signing tokens")

	// Used later for usage/help
	// create a shallow copy of fs (so Usage can be called safely without mutating caller)
	copied := pflag.NewFlagSet("temp", pflag.ContinueOnError)
	*copied = *fs
	c.flags = copied
}

func applyChangedFlags(fs *pflag.FlagSet, c *Specification) {
	setStr := func(name string, dst *string) {
		if fs.Changed(name) {
			v, _ := fs.GetString(name)
			*dst = v
		}
	}
	setInt := func(name string, dst *int) {
		if fs.Changed(name) {
			v, _ := fs.GetInt(name)
			*dst = v
		}
	}
	setBool := func(name string, dst *bool) {
		if fs.Changed(name) {
			v, _ := fs.GetBool(name)
			*dst = v
		}
	}

	// (We ignore --config here; it's for discovery.)
	setStr("provider", &c.Provider)
	setStr("provider-api-key", &c.APIKey)
	setStr("provider-endpoint", &c.Endpoint)
	setStr("provider-completion-model", &c.CompletionModel)
	setStr("provider-embedding-model", &c.EmbedModel)
	setStr("provider-project-id", &c.ProjectID)
	setStr("provider-location", &c.Location)

	setInt("embed-dim", &c.Dim)

	setStr("db-url", &c.Database)
	setStr("index-name", &c.IndexName)

	setStr("zotero-api-key", &c.ZoteroAPIKey)
	setStr("zotero-group-id", &c.ZoteroGroupID)

	setStr("storage-account", &c.StorageAccount)
	setStr("storage-sas", &c.StorageSAS)
	setStr("storage-container", &c.Container)

	setStr("docs-root", &c.DocsRoot)

	setStr("log-level", &c.LogLevel)
	setInt("port", &c.Port)

	setBool("auth-enabled", &c.Auth.Enabled)
	setStr("auth-jwt-secret", &c.Auth.JwtSecret)
}

func setDefaults(c *Specification) {
	c.LogLevel = "info"
	c.Provider = "stub"
	c.IndexName = "gravitychat-docs"
	c.Container = "gravitychat-documents"
	c.Location = "us-central1"
	c.Dim = 0
	c.Port = 8000
	c.Auth.Enabled = false
}

package ai

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"
)

const azureAPIVersion = "2024-02-15-preview"

// AzureClient talks to an Azure OpenAI resource. Models are deployment
// names, not raw model ids.
type AzureClient struct {
	config *ClientConfig
	http   *http.Client
}

func NewAzureClient(config *ClientConfig) *AzureClient {
	// Set default deployments if not provided
	if config.CompletionModel == "" {
		config.CompletionModel = "gpt-4"
	}
	if config.EmbedModel == "" {
		config.EmbedModel = "text-embedding-ada-002"
	}
	if config.Dim == 0 {
		switch config.EmbedModel {
		case "text-embedding-3-small", "text-embedding-ada-002":
			config.Dim = 1536
		case "text-embedding-3-large":
			config.Dim = 3072
		default:
			config.Dim = 1536
		}
	}

	// Create HTTP client with optional TLS skip verification
	transport := &http.Transport{}

	// Check for environment variable to skip TLS verification (for corporate proxies, etc.)
	if skipTLS, _ := strconv.ParseBool(os.Getenv("GRAVITYCHAT_SKIP_TLS_VERIFY")); skipTLS {
		transport.TLSClientConfig = &tls.Config{
			InsecureSkipVerify: true,
		}
	}

	httpClient := &http.Client{
		Timeout:   30 * time.Second,
		Transport: transport,
	}

	return &AzureClient{
		config: config,
		http:   httpClient,
	}
}

// Complete sends a chat completion request with the fixed sampling
// configuration (temperature 0.7, top-p 0.9, no penalties).
func (c *AzureClient) Complete(ctx context.Context, systemPrompt, userPrompt string, maxTokens int) (string, error) {
	if c.config.APIKey == "" || c.config.Endpoint == "" {
		return "", errors.New("PROVIDER_API_KEY or PROVIDER_ENDPOINT unset")
	}

	payload := map[string]any{
		"messages": []map[string]string{
			{"role": "system", "content": systemPrompt},
			{"role": "user", "content": userPrompt},
		},
		"max_tokens":        maxTokens,
		"temperature":       0.7,
		"top_p":             0.9,
		"frequency_penalty": 0.0,
		"presence_penalty":  0.0,
	}

	var buf bytes.Buffer
	_ = json.NewEncoder(&buf).Encode(payload)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.deploymentURL(c.config.CompletionModel, "chat/completions"), &buf)
	if err != nil {
		return "", err
	}

	c.setHeaders(req)

	resp, err := c.http.Do(req)
	if err != nil {
		return "", err
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			log.Printf("Failed to close response body: %v", err)
		}
	}()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var e struct{ Error struct{ Message string } }
		_ = json.NewDecoder(resp.Body).Decode(&e)
		if e.Error.Message != "" {
			return "", errors.New(e.Error.Message)
		}
		return "", errors.New(resp.Status)
	}

	var out struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", err
	}
	if len(out.Choices) == 0 {
		return "", errors.New("no choices")
	}

	return strings.TrimSpace(out.Choices[0].Message.Content), nil
}

// Embed implements the embedding functionality
func (c *AzureClient) Embed(ctx context.Context, text string) ([]float32, error) {
	if c.config.APIKey == "" || c.config.Endpoint == "" {
		return nil, errors.New("PROVIDER_API_KEY or PROVIDER_ENDPOINT unset")
	}

	payload := map[string]string{
		"input": text,
	}

	b, _ := json.Marshal(payload)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.deploymentURL(c.config.EmbedModel, "embeddings"), bytes.NewReader(b))
	if err != nil {
		return nil, err
	}

	c.setHeaders(req)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			log.Printf("Failed to close response body: %v", err)
		}
	}()

	if resp.StatusCode != http.StatusOK {
		return nil, errors.New("azure embedding non-200")
	}

	var out struct {
		Data []struct {
			Embedding []float32 `json:"embedding"`
		} `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, err
	}
	if len(out.Data) == 0 {
		return nil, errors.New("no embedding")
	}
	return out.Data[0].Embedding, nil
}

func (c *AzureClient) Dim() int {
	return c.config.Dim
}

func (c *AzureClient) deploymentURL(deployment, op string) string {
	return strings.TrimSuffix(c.config.Endpoint, "/") +
		"/openai/deployments/" + deployment + "/" + op +
		"?api-version=" + azureAPIVersion
}

// setHeaders sets common headers for Azure OpenAI requests
func (c *AzureClient) setHeaders(req *http.Request) {
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("api-key", c.config.APIKey)
}

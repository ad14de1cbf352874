package blob

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
)

// Client uploads blobs to an Azure Blob Storage container using a SAS token.
// An unconfigured client still hands back stable mock URLs so that offline
// ingestion runs end to end.
type Client struct {
	Account   string
	Container string
	SAS       string

	http *http.Client
}

// NewClient creates a blob client. Any of account, container or SAS may be
// empty, which leaves the client in mock mode.
func NewClient(account, container, sas string) *Client {
	return &Client{
		Account:   account,
		Container: container,
		SAS:       strings.TrimPrefix(sas, "?"),
		http:      &http.Client{Timeout: 60 * time.Second},
	}
}

// Configured reports whether real uploads are possible.
func (c *Client) Configured() bool {
	return c.Account != "" && c.Container != "" && c.SAS != ""
}

// Store uploads data under the given key and returns the blob URL. In mock
// mode it returns a deterministic placeholder URL and no error.
func (c *Client) Store(ctx context.Context, key string, data []byte) (string, error) {
	if !c.Configured() {
		url := "https://mockstorage.blob.core.windows.net/" + c.Container + "/" + key
		log.Debug().Str("key", key).Msg("blob storage not configured, returning mock URL")
		return url, nil
	}

	base := "https://" + c.Account + ".blob.core.windows.net/" + c.Container + "/" + key
	req, err := http.NewRequestWithContext(ctx, http.MethodPut, base+"?"+c.SAS, bytes.NewReader(data))
	if err != nil {
		return "", err
	}
	req.Header.Set("x-ms-blob-type", "BlockBlob")
	req.Header.Set("Content-Type", "application/octet-stream")

	resp, err := c.http.Do(req)
	if err != nil {
		return "", err
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			log.Warn().Err(err).Msg("failed to close blob response body")
		}
	}()

	if resp.StatusCode != http.StatusCreated {
		return "", errors.New("blob upload failed: " + resp.Status)
	}
	return base, nil
}

package remote

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/example/factbot/pkg/models"
)

// ContentBatch is one payload from the remote content API. Everything is
// keyed by stable integer ids; the caller feeds the batch to the merger.
type ContentBatch struct {
	Facts      []models.Fact                `json:"facts"`
	Categories []models.Category            `json:"categories"`
	Questions  []models.QuestionWithOptions `json:"questions"`
}

// Client fetches content batches from the remote API.
type Client struct {
	baseURL string
	apiKey  string
	http    *http.Client
}

// New creates a client for the content API at baseURL
func New(baseURL, apiKey string) *Client {
	return &Client{
		baseURL: baseURL,
		apiKey:  apiKey,
		http:    &http.Client{Timeout: 30 * time.Second},
	}
}

// FetchContent downloads the facts, categories and questions updated since
// the given time. A zero time fetches everything.
func (c *Client) FetchContent(since time.Time) (*ContentBatch, error) {
	endpoint, err := url.Parse(c.baseURL + "/v1/content")
	if err != nil {
		return nil, fmt.Errorf("failed to build content URL: %v", err)
	}
	if !since.IsZero() {
		q := endpoint.Query()
		q.Set("updated_since", since.UTC().Format(time.RFC3339))
		endpoint.RawQuery = q.Encode()
	}

	req, err := http.NewRequest("GET", endpoint.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %v", err)
	}
	req.Header.Set("Accept", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch content: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("content API returned %d: %s", resp.StatusCode, string(body))
	}

	var batch ContentBatch
	if err := json.NewDecoder(resp.Body).Decode(&batch); err != nil {
		return nil, fmt.Errorf("failed to decode content batch: %v", err)
	}
	return &batch, nil
}

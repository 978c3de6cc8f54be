package embedding

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
)

const (
	// DefaultDimension is the output width of the default embedding model.
	DefaultDimension = 768

	defaultModel     = "text-embedding-004"
	defaultBaseURL   = "https://generativelanguage.googleapis.com"
	defaultCacheSize = 10000
	requestTimeout   = 30 * time.Second

	maxRetries        = 3
	initialBackoff    = 100 * time.Millisecond
	maxBackoff        = 5 * time.Second
	backoffMultiplier = 2.0
)

// Gemini generates embeddings through the Google Generative Language API.
// Results are cached by content hash so repeated texts skip the network.
type Gemini struct {
	apiKey     string
	baseURL    string
	model      string
	dimension  int
	httpClient *http.Client
	retryCfg   RetryConfig
	cacheSize  int
	cache      *lru.Cache[string, []float32]
}

// NewGemini creates a Gemini embedder. The API key is required.
func NewGemini(apiKey string, opts ...GeminiOption) (*Gemini, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, ErrNoAPIKey
	}

	g := &Gemini{
		apiKey:     apiKey,
		baseURL:    defaultBaseURL,
		model:      defaultModel,
		dimension:  DefaultDimension,
		httpClient: &http.Client{Timeout: requestTimeout},
		retryCfg:   DefaultRetryConfig(),
	}
	for _, opt := range opts {
		opt(g)
	}

	cache, err := lru.New[string, []float32](g.cacheSizeOrDefault())
	if err != nil {
		return nil, fmt.Errorf("creating embedding cache: %w", err)
	}
	g.cache = cache

	return g, nil
}

func (g *Gemini) cacheSizeOrDefault() int {
	if g.cacheSize > 0 {
		return g.cacheSize
	}
	return defaultCacheSize
}

// Embed implements Embedder. Transient provider failures are retried with
// exponential backoff before surfacing the error.
func (g *Gemini) Embed(ctx context.Context, text string) ([]float32, error) {
	if strings.TrimSpace(text) == "" {
		return nil, ErrEmptyText
	}

	key := ComputeHash(text)
	if vec, ok := g.cache.Get(key); ok {
		return vec, nil
	}

	vec, err := retryWithBackoff(ctx, g.retryCfg, func() ([]float32, error) {
		return g.embedOnce(ctx, text)
	})
	if err != nil {
		return nil, err
	}

	g.cache.Add(key, vec)
	return vec, nil
}

// Dimension implements Embedder.
func (g *Gemini) Dimension() int { return g.dimension }

// CacheLen returns the number of cached embeddings.
func (g *Gemini) CacheLen() int { return g.cache.Len() }

type embedContentRequest struct {
	Model   string       `json:"model"`
	Content embedContent `json:"content"`
}

type embedContent struct {
	Parts []embedPart `json:"parts"`
}

type embedPart struct {
	Text string `json:"text"`
}

type embedContentResponse struct {
	Embedding struct {
		Values []float32 `json:"values"`
	} `json:"embedding"`
}

func (g *Gemini) embedOnce(ctx context.Context, text string) ([]float32, error) {
	reqBody := embedContentRequest{
		Model:   "models/" + g.model,
		Content: embedContent{Parts: []embedPart{{Text: text}}},
	}
	payload, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("marshaling embed request: %w", err)
	}

	url := fmt.Sprintf("%s/v1beta/models/%s:embedContent?key=%s", g.baseURL, g.model, g.apiKey)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("creating embed request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := g.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrProviderFailed, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading embed response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: status %d: %s", ErrProviderFailed, resp.StatusCode, truncate(string(body), 200))
	}

	var parsed embedContentResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, fmt.Errorf("decoding embed response: %w", err)
	}
	if len(parsed.Embedding.Values) == 0 {
		return nil, fmt.Errorf("%w: empty embedding in response", ErrProviderFailed)
	}

	return parsed.Embedding.Values, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}

package oracle

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"time"
)

const (
	ProviderWorkersAI = "workersai"

	EnvWorkersAIAccountID = "WORKERS_AI_ACCOUNT_ID"
	EnvWorkersAIAPIToken  = "WORKERS_AI_API_TOKEN"

	workersAIEmbedModel     = "@cf/baai/bge-base-en-v1.5"
	workersAISummarizeModel = "@cf/meta/llama-3.1-8b-instruct"
)

// WorkersAIProvider implements Oracle using the Cloudflare Workers AI REST
// API. bge-base-en-v1.5 produces 768-dimensional embeddings.
type WorkersAIProvider struct {
	accountID  string
	apiToken   string
	httpClient *http.Client
	cache      *Cache
	retry      RetryConfig
}

// NewWorkersAIProvider creates a Workers AI oracle. Credentials fall back to
// the environment when empty.
func NewWorkersAIProvider(accountID, apiToken string, cache *Cache) (*WorkersAIProvider, error) {
	if accountID == "" {
		accountID = os.Getenv(EnvWorkersAIAccountID)
	}
	if apiToken == "" {
		apiToken = os.Getenv(EnvWorkersAIAPIToken)
	}
	if accountID == "" || apiToken == "" {
		return nil, fmt.Errorf("%w: %s and %s must be set", ErrNoProvider, EnvWorkersAIAccountID, EnvWorkersAIAPIToken)
	}

	return &WorkersAIProvider{
		accountID: accountID,
		apiToken:  apiToken,
		httpClient: &http.Client{
			Timeout: 60 * time.Second,
		},
		cache: cache,
		retry: DefaultRetryConfig(),
	}, nil
}

func (w *WorkersAIProvider) modelURL(model string) string {
	return fmt.Sprintf("https://api.cloudflare.com/client/v4/accounts/%s/ai/run/%s", w.accountID, model)
}

func (w *WorkersAIProvider) headers() map[string]string {
	return map[string]string{"Authorization": "Bearer " + w.apiToken}
}

func (w *WorkersAIProvider) Summarize(ctx context.Context, text string) (*Summary, error) {
	if err := ValidateDoc(text); err != nil {
		return nil, err
	}

	return retryRateLimited(ctx, w.retry, func() (*Summary, error) {
		reqBody := map[string]interface{}{
			"messages": []map[string]string{
				{"role": "user", "content": fmt.Sprintf(summarizePrompt, text)},
			},
		}

		var apiResp struct {
			Result struct {
				Response string `json:"response"`
			} `json:"result"`
			Success bool `json:"success"`
		}
		if err := postJSON(ctx, w.httpClient, "summarize", w.modelURL(workersAISummarizeModel), w.headers(), reqBody, &apiResp); err != nil {
			return nil, err
		}

		summary, err := parseSummaryJSON(apiResp.Result.Response)
		if err != nil {
			return nil, malformed("summarize", err)
		}
		return summary, nil
	})
}

func (w *WorkersAIProvider) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if err := ValidateTexts(texts); err != nil {
		return nil, err
	}

	result, misses, missIdx := cachedBatch(w.cache, texts)
	if len(misses) == 0 {
		return result, nil
	}

	vectors, err := retryRateLimited(ctx, w.retry, func() ([][]float32, error) {
		reqBody := map[string]interface{}{"text": misses}

		var apiResp struct {
			Result struct {
				Data [][]float32 `json:"data"`
			} `json:"result"`
			Success bool `json:"success"`
		}
		if err := postJSON(ctx, w.httpClient, "embed", w.modelURL(workersAIEmbedModel), w.headers(), reqBody, &apiResp); err != nil {
			return nil, err
		}
		if err := checkVectors("embed", len(misses), len(apiResp.Result.Data), apiResp.Result.Data); err != nil {
			return nil, err
		}
		return apiResp.Result.Data, nil
	})
	if err != nil {
		return nil, err
	}

	if err := fillBatch(w.cache, result, missIdx, misses, vectors); err != nil {
		return nil, malformed("embed", err)
	}
	return result, nil
}

func (w *WorkersAIProvider) Dimension() int {
	return Dimension
}

func (w *WorkersAIProvider) Provider() string {
	return ProviderWorkersAI
}

func (w *WorkersAIProvider) Close() error {
	w.httpClient.CloseIdleConnections()
	return nil
}

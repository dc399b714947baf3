package oracle

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"time"
)

const (
	ProviderGemini = "gemini"

	EnvGeminiAPIKey = "GEMINI_API_KEY"

	geminiEmbedModel     = "text-embedding-004"
	geminiSummarizeModel = "gemini-1.5-flash"
	geminiBaseURL        = "https://generativelanguage.googleapis.com/v1beta/models"
)

// GeminiProvider implements Oracle using the Google Generative Language API.
// text-embedding-004 is asked for 768-dimensional output to match the rest
// of the index.
type GeminiProvider struct {
	apiKey     string
	httpClient *http.Client
	cache      *Cache
	retry      RetryConfig
}

// NewGeminiProvider creates a Gemini oracle. The key falls back to the
// environment when empty.
func NewGeminiProvider(apiKey string, cache *Cache) (*GeminiProvider, error) {
	if apiKey == "" {
		apiKey = os.Getenv(EnvGeminiAPIKey)
	}
	if apiKey == "" {
		return nil, fmt.Errorf("%w: %s not set", ErrNoProvider, EnvGeminiAPIKey)
	}

	return &GeminiProvider{
		apiKey: apiKey,
		httpClient: &http.Client{
			Timeout: 60 * time.Second,
		},
		cache: cache,
		retry: DefaultRetryConfig(),
	}, nil
}

func (g *GeminiProvider) Summarize(ctx context.Context, text string) (*Summary, error) {
	if err := ValidateDoc(text); err != nil {
		return nil, err
	}

	url := fmt.Sprintf("%s/%s:generateContent?key=%s", geminiBaseURL, geminiSummarizeModel, g.apiKey)

	return retryRateLimited(ctx, g.retry, func() (*Summary, error) {
		reqBody := map[string]interface{}{
			"contents": []map[string]interface{}{
				{
					"parts": []map[string]string{
						{"text": fmt.Sprintf(summarizePrompt, text)},
					},
				},
			},
		}

		var apiResp struct {
			Candidates []struct {
				Content struct {
					Parts []struct {
						Text string `json:"text"`
					} `json:"parts"`
				} `json:"content"`
			} `json:"candidates"`
		}
		if err := postJSON(ctx, g.httpClient, "summarize", url, nil, reqBody, &apiResp); err != nil {
			return nil, err
		}
		if len(apiResp.Candidates) == 0 || len(apiResp.Candidates[0].Content.Parts) == 0 {
			return nil, malformed("summarize", fmt.Errorf("empty completion"))
		}

		summary, err := parseSummaryJSON(apiResp.Candidates[0].Content.Parts[0].Text)
		if err != nil {
			return nil, malformed("summarize", err)
		}
		return summary, nil
	})
}

func (g *GeminiProvider) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if err := ValidateTexts(texts); err != nil {
		return nil, err
	}

	result, misses, missIdx := cachedBatch(g.cache, texts)
	if len(misses) == 0 {
		return result, nil
	}

	url := fmt.Sprintf("%s/%s:batchEmbedContents?key=%s", geminiBaseURL, geminiEmbedModel, g.apiKey)

	vectors, err := retryRateLimited(ctx, g.retry, func() ([][]float32, error) {
		requests := make([]map[string]interface{}, len(misses))
		for i, text := range misses {
			requests[i] = map[string]interface{}{
				"model": "models/" + geminiEmbedModel,
				"content": map[string]interface{}{
					"parts": []map[string]string{{"text": text}},
				},
				"outputDimensionality": Dimension,
			}
		}
		reqBody := map[string]interface{}{"requests": requests}

		var apiResp struct {
			Embeddings []struct {
				Values []float32 `json:"values"`
			} `json:"embeddings"`
		}
		if err := postJSON(ctx, g.httpClient, "embed", url, nil, reqBody, &apiResp); err != nil {
			return nil, err
		}

		vectors := make([][]float32, len(apiResp.Embeddings))
		for i, e := range apiResp.Embeddings {
			vectors[i] = e.Values
		}
		if err := checkVectors("embed", len(misses), len(vectors), vectors); err != nil {
			return nil, err
		}
		return vectors, nil
	})
	if err != nil {
		return nil, err
	}

	if err := fillBatch(g.cache, result, missIdx, misses, vectors); err != nil {
		return nil, malformed("embed", err)
	}
	return result, nil
}

func (g *GeminiProvider) Dimension() int {
	return Dimension
}

func (g *GeminiProvider) Provider() string {
	return ProviderGemini
}

func (g *GeminiProvider) Close() error {
	g.httpClient.CloseIdleConnections()
	return nil
}

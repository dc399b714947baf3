package oracle

import (
	"fmt"
	"os"
)

// NewFromEnv builds an Oracle. A non-empty provider name is honored and
// fails loudly when its credentials are missing; an empty name auto-detects
// from the environment and falls back to the local provider so the pipeline
// always has an oracle.
func NewFromEnv(provider string, cacheLen int) (Oracle, error) {
	cache := NewCache(cacheLen)

	switch provider {
	case ProviderWorkersAI:
		return NewWorkersAIProvider("", "", cache)
	case ProviderGemini:
		return NewGeminiProvider("", cache)
	case ProviderLocal:
		return NewLocalProvider(cache)
	case "":
		if os.Getenv(EnvWorkersAIAccountID) != "" && os.Getenv(EnvWorkersAIAPIToken) != "" {
			return NewWorkersAIProvider("", "", cache)
		}
		if os.Getenv(EnvGeminiAPIKey) != "" {
			return NewGeminiProvider("", cache)
		}
		return NewLocalProvider(cache)
	default:
		return nil, fmt.Errorf("unknown oracle provider %q", provider)
	}
}

// Package oracle is the client for the external summarize/embed model.
//
// The oracle is a capability interface with two operations: one title+summary
// per document, and one embedding vector per chunk (batched). Providers talk
// to real APIs over HTTP; the local provider is deterministic and keeps the
// whole pipeline runnable offline. All providers share the retry policy
// (rate-limited responses only) and an LRU embedding cache keyed by content
// hash.
package oracle

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"

	lru "github.com/hashicorp/golang-lru/v2"
)

// Dimension is the embedding vector size. Query and chunk embeddings must
// live in the same space or similarity scores are meaningless, so this is a
// package constant rather than provider configuration.
const Dimension = 768

// MaxInputChars bounds a single summarize or embed input. Oversized input
// fails explicitly; the oracle never silently truncates.
const MaxInputChars = 32000

// MaxBatchSize bounds one embedding batch.
const MaxBatchSize = 100

var (
	ErrEmptyText     = errors.New("text cannot be empty")
	ErrTextTooLarge  = errors.New("text exceeds oracle input limit")
	ErrBatchTooLarge = errors.New("batch size exceeds limit")
	ErrNoProvider    = errors.New("no oracle provider configured")
)

// Summary is the whole-document output of the summarize capability.
type Summary struct {
	Title   string
	Summary string
}

// Oracle generates document summaries and chunk embeddings.
type Oracle interface {
	// Summarize produces a title and short summary for the whole document.
	Summarize(ctx context.Context, text string) (*Summary, error)

	// EmbedBatch produces one Dimension-length vector per input text, in
	// input order.
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)

	// Dimension returns the embedding dimension (always Dimension).
	Dimension() int

	// Provider returns the provider name for logging.
	Provider() string

	// Close releases provider resources.
	Close() error
}

// ValidateTexts checks a batch embedding input.
func ValidateTexts(texts []string) error {
	if len(texts) == 0 {
		return fmt.Errorf("embed: no texts provided")
	}
	if len(texts) > MaxBatchSize {
		return fmt.Errorf("%w: max %d texts", ErrBatchTooLarge, MaxBatchSize)
	}
	for i, text := range texts {
		if text == "" {
			return fmt.Errorf("%w: text at index %d", ErrEmptyText, i)
		}
		if len(text) > MaxInputChars {
			return fmt.Errorf("%w: text at index %d has %d chars", ErrTextTooLarge, i, len(text))
		}
	}
	return nil
}

// ValidateDoc checks a summarize input.
func ValidateDoc(text string) error {
	if text == "" {
		return ErrEmptyText
	}
	if len(text) > MaxInputChars {
		return fmt.Errorf("%w: %d chars", ErrTextTooLarge, len(text))
	}
	return nil
}

// ComputeHash returns the cache key for a text: hex SHA-256.
func ComputeHash(text string) string {
	h := sha256.Sum256([]byte(text))
	return hex.EncodeToString(h[:])
}

// Cache is an in-memory LRU of embedding vectors by content hash. Vectors
// are copied on both sides so callers can't mutate cached entries.
type Cache struct {
	cache *lru.Cache[string, []float32]
}

// NewCache creates an embedding cache; maxLen <= 0 gets a default of 10k.
func NewCache(maxLen int) *Cache {
	if maxLen <= 0 {
		maxLen = 10000
	}
	cache, err := lru.New[string, []float32](maxLen)
	if err != nil {
		// Only reachable with a non-positive size, which we just excluded.
		cache, _ = lru.New[string, []float32](10000)
	}
	return &Cache{cache: cache}
}

// Get returns a copy of the cached vector for hash, if present.
func (c *Cache) Get(hash string) ([]float32, bool) {
	v, ok := c.cache.Get(hash)
	if !ok {
		return nil, false
	}
	out := make([]float32, len(v))
	copy(out, v)
	return out, true
}

// Set stores a copy of the vector under hash.
func (c *Cache) Set(hash string, v []float32) {
	stored := make([]float32, len(v))
	copy(stored, v)
	c.cache.Add(hash, stored)
}

// Len returns the current cache size.
func (c *Cache) Len() int {
	return c.cache.Len()
}

// cachedBatch resolves cache hits for a batch and returns the misses.
// result has len(texts) slots with hits filled in; missIdx maps each entry
// of misses back to its slot.
func cachedBatch(cache *Cache, texts []string) (result [][]float32, misses []string, missIdx []int) {
	result = make([][]float32, len(texts))
	for i, text := range texts {
		if cache != nil {
			if v, ok := cache.Get(ComputeHash(text)); ok {
				result[i] = v
				continue
			}
		}
		misses = append(misses, text)
		missIdx = append(missIdx, i)
	}
	return result, misses, missIdx
}

// fillBatch stores freshly computed vectors into the result slots and cache.
func fillBatch(cache *Cache, result [][]float32, missIdx []int, misses []string, vectors [][]float32) error {
	if len(vectors) != len(missIdx) {
		return fmt.Errorf("expected %d vectors, got %d", len(missIdx), len(vectors))
	}
	for j, v := range vectors {
		result[missIdx[j]] = v
		if cache != nil {
			cache.Set(ComputeHash(misses[j]), v)
		}
	}
	return nil
}

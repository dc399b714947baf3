package oracle

import (
	"context"
	"hash/fnv"
	"math"
	"strings"
	"unicode"
)

const ProviderLocal = "local"

// LocalProvider implements Oracle without network access. Embeddings are
// bag-of-words feature hashing: each token hashes to a bucket with a signed
// weight, and the vector is L2-normalized. Texts sharing vocabulary land
// near each other, which is enough for tests and offline use. Summaries are
// extractive.
type LocalProvider struct {
	cache *Cache
}

// NewLocalProvider creates the deterministic offline oracle.
func NewLocalProvider(cache *Cache) (*LocalProvider, error) {
	return &LocalProvider{cache: cache}, nil
}

func (l *LocalProvider) Summarize(ctx context.Context, text string) (*Summary, error) {
	if err := ValidateDoc(text); err != nil {
		return nil, err
	}

	sentences := splitSentences(text)
	title := firstNonEmptyLine(text)
	if title == "" && len(sentences) > 0 {
		title = sentences[0]
	}
	title = clip(title, 80)

	summary := strings.Join(firstN(sentences, 2), " ")
	summary = clip(summary, 300)

	return &Summary{Title: title, Summary: summary}, nil
}

func (l *LocalProvider) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if err := ValidateTexts(texts); err != nil {
		return nil, err
	}

	result, misses, missIdx := cachedBatch(l.cache, texts)
	vectors := make([][]float32, len(misses))
	for i, text := range misses {
		vectors[i] = hashEmbed(text)
	}
	if err := fillBatch(l.cache, result, missIdx, misses, vectors); err != nil {
		return nil, malformed("embed", err)
	}
	return result, nil
}

func (l *LocalProvider) Dimension() int {
	return Dimension
}

func (l *LocalProvider) Provider() string {
	return ProviderLocal
}

func (l *LocalProvider) Close() error {
	return nil
}

// hashEmbed maps each lowercased token to a bucket via FNV-1a; the hash's
// low bit picks the sign so unrelated vocabularies cancel rather than
// accumulate. The result is unit length.
func hashEmbed(text string) []float32 {
	vector := make([]float32, Dimension)

	for _, token := range tokenize(text) {
		h := fnv.New32a()
		_, _ = h.Write([]byte(token))
		sum := h.Sum32()

		bucket := int(sum>>1) % Dimension
		if sum&1 == 0 {
			vector[bucket] += 1.0
		} else {
			vector[bucket] -= 1.0
		}
	}

	var norm float64
	for _, v := range vector {
		norm += float64(v) * float64(v)
	}
	if norm == 0 {
		// No tokens at all. Keep the vector deterministic and nonzero.
		vector[0] = 1.0
		return vector
	}
	scale := float32(1.0 / math.Sqrt(norm))
	for i := range vector {
		vector[i] *= scale
	}
	return vector
}

func tokenize(text string) []string {
	return strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsNumber(r)
	})
}

func splitSentences(text string) []string {
	var out []string
	var cur strings.Builder
	for _, r := range text {
		cur.WriteRune(r)
		if r == '.' || r == '!' || r == '?' {
			if s := strings.TrimSpace(cur.String()); s != "" {
				out = append(out, s)
			}
			cur.Reset()
		}
	}
	if s := strings.TrimSpace(cur.String()); s != "" {
		out = append(out, s)
	}
	return out
}

func firstNonEmptyLine(text string) string {
	for _, line := range strings.Split(text, "\n") {
		if s := strings.TrimSpace(line); s != "" {
			return s
		}
	}
	return ""
}

func firstN(s []string, n int) []string {
	if len(s) > n {
		return s[:n]
	}
	return s
}

func clip(s string, n int) string {
	if len(s) <= n {
		return s
	}
	cut := strings.LastIndexByte(s[:n], ' ')
	if cut <= 0 {
		cut = n
	}
	return s[:cut]
}

package types

// Chunk is a bounded-length segment of a document's extracted text. Chunks
// are the unit of embedding; they are never persisted relationally, only
// their vectors reach the index.
type Chunk struct {
	Index   int    // 0-based position in document order
	Content string
	Start   int // rune offset into the normalized text
	End     int // exclusive
}

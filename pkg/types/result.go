package types

// SearchResult is one ranked hit from semantic retrieval. Score is the
// cosine similarity of the best-matching chunk; Excerpt is that chunk's
// stored text, for display.
type SearchResult struct {
	Link    Link
	Score   float64
	Excerpt string
	Rank    int // 1-based position in the result list
}

// Validate checks result invariants before it is handed to a renderer.
func (r *SearchResult) Validate() error {
	if r.Link.ID == "" {
		return ErrMissingLink
	}
	if r.Rank < 1 {
		return ErrInvalidRank
	}
	if r.Score < -1 || r.Score > 1 {
		return ErrInvalidScore
	}
	return nil
}

// Package vecindex is the chunk embedding index. One row per (link, chunk)
// holds the vector blob plus a short excerpt of the chunk text, so search
// results can show context without re-reading blobs. Nearest-neighbor
// queries are brute-force cosine over all rows, which is fine at personal
// archive scale.
package vecindex

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"time"
	"unicode/utf8"

	"github.com/seen-labs/seen/internal/sqlitedb"
)

// ExcerptLen caps the stored chunk excerpt.
const ExcerptLen = 200

// Entry is one chunk embedding keyed by (link id, chunk index).
type Entry struct {
	LinkID     string
	ChunkIndex int
	Vector     []float32
	Excerpt    string
}

// Match is one nearest-neighbor hit.
type Match struct {
	LinkID     string
	ChunkIndex int
	Score      float64
	Excerpt    string
}

var migrations = []sqlitedb.Migration{
	{
		Version: "1.0.0",
		Up:      migrationV1Up,
		Down:    migrationV1Down,
	},
}

const migrationV1Up = `
-- Schema version tracking
CREATE TABLE IF NOT EXISTS schema_version (
    version TEXT PRIMARY KEY,
    applied_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
);

-- Chunk embeddings
CREATE TABLE IF NOT EXISTS vectors (
    link_id TEXT NOT NULL,
    chunk_index INTEGER NOT NULL,
    vector BLOB NOT NULL,
    dimension INTEGER NOT NULL,
    excerpt TEXT,
    created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
    PRIMARY KEY (link_id, chunk_index)
);

CREATE INDEX IF NOT EXISTS idx_vectors_link ON vectors(link_id);
`

const migrationV1Down = `
DROP TABLE IF EXISTS vectors;
DROP TABLE IF EXISTS schema_version;
`

// Index is a SQLite-backed vector index.
type Index struct {
	db        *sql.DB
	dimension int
}

// New opens (or creates) the index at dbPath. Every stored vector must have
// the given dimension.
func New(dbPath string, dimension int) (*Index, error) {
	if dimension <= 0 {
		return nil, fmt.Errorf("vecindex: dimension must be positive, got %d", dimension)
	}

	db, err := sqlitedb.Open(dbPath)
	if err != nil {
		return nil, fmt.Errorf("vecindex: open database: %w", err)
	}
	if err := sqlitedb.Migrate(context.Background(), db, migrations); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("vecindex: apply migrations: %w", err)
	}

	return &Index{db: db, dimension: dimension}, nil
}

// Close closes the underlying database.
func (idx *Index) Close() error {
	return idx.db.Close()
}

// Dimension returns the index's vector dimension.
func (idx *Index) Dimension() int {
	return idx.dimension
}

// Upsert writes entries, replacing any existing row with the same
// (link id, chunk index). All entries go in one transaction.
func (idx *Index) Upsert(ctx context.Context, entries []Entry) error {
	if len(entries) == 0 {
		return nil
	}
	for _, e := range entries {
		if len(e.Vector) != idx.dimension {
			return fmt.Errorf("vecindex: entry %s-%d has dimension %d, want %d",
				e.LinkID, e.ChunkIndex, len(e.Vector), idx.dimension)
		}
	}

	tx, err := idx.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("vecindex: begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	query := `
		INSERT INTO vectors (link_id, chunk_index, vector, dimension, excerpt, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(link_id, chunk_index) DO UPDATE SET
			vector = excluded.vector,
			dimension = excluded.dimension,
			excerpt = excluded.excerpt
	`
	now := time.Now()
	for _, e := range entries {
		excerpt := clipExcerpt(e.Excerpt)
		if _, err := tx.ExecContext(ctx, query,
			e.LinkID, e.ChunkIndex, serializeVector(e.Vector), idx.dimension, excerpt, now); err != nil {
			return fmt.Errorf("vecindex: upsert %s-%d: %w", e.LinkID, e.ChunkIndex, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("vecindex: commit: %w", err)
	}
	return nil
}

// clipExcerpt caps the excerpt at ExcerptLen bytes, backing off to a
// rune boundary so a multi-byte character is never stored half-cut.
func clipExcerpt(s string) string {
	if len(s) <= ExcerptLen {
		return s
	}
	cut := ExcerptLen
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut]
}

// Query returns the limit nearest entries to vector by cosine similarity,
// best first. A non-positive limit returns no matches.
func (idx *Index) Query(ctx context.Context, vector []float32, limit int) ([]Match, error) {
	if limit <= 0 {
		return []Match{}, nil
	}
	if len(vector) != idx.dimension {
		return nil, fmt.Errorf("vecindex: query vector has dimension %d, want %d", len(vector), idx.dimension)
	}

	rows, err := idx.db.QueryContext(ctx, "SELECT link_id, chunk_index, vector, excerpt FROM vectors")
	if err != nil {
		return nil, fmt.Errorf("vecindex: query vectors: %w", err)
	}
	defer func() { _ = rows.Close() }()

	matches := make([]Match, 0, 256)
	for rows.Next() {
		var m Match
		var blob []byte
		var excerpt sql.NullString
		if err := rows.Scan(&m.LinkID, &m.ChunkIndex, &blob, &excerpt); err != nil {
			return nil, fmt.Errorf("vecindex: scan row: %w", err)
		}

		stored := deserializeVector(blob)
		if len(stored) != idx.dimension {
			continue // Dimension mismatch, skip
		}

		m.Score = cosineSimilarity(vector, stored)
		m.Excerpt = excerpt.String
		matches = append(matches, m)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	sort.Slice(matches, func(i, j int) bool {
		return matches[i].Score > matches[j].Score
	})

	if limit > len(matches) {
		limit = len(matches)
	}
	return matches[:limit], nil
}

// DeleteByLink removes every vector belonging to linkID. Deleting a link
// with no vectors is not an error.
func (idx *Index) DeleteByLink(ctx context.Context, linkID string) error {
	if _, err := idx.db.ExecContext(ctx, "DELETE FROM vectors WHERE link_id = ?", linkID); err != nil {
		return fmt.Errorf("vecindex: delete link %s: %w", linkID, err)
	}
	return nil
}

// CountByLink returns the number of vectors stored for linkID.
func (idx *Index) CountByLink(ctx context.Context, linkID string) (int, error) {
	var count int
	err := idx.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM vectors WHERE link_id = ?", linkID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("vecindex: count link %s: %w", linkID, err)
	}
	return count, nil
}

// TrimBeyond removes vectors for linkID with chunk_index >= keep, leaving
// exactly the first keep chunks.
func (idx *Index) TrimBeyond(ctx context.Context, linkID string, keep int) error {
	if keep < 0 {
		keep = 0
	}
	if _, err := idx.db.ExecContext(ctx,
		"DELETE FROM vectors WHERE link_id = ? AND chunk_index >= ?", linkID, keep); err != nil {
		return fmt.Errorf("vecindex: trim link %s: %w", linkID, err)
	}
	return nil
}

// ListLinkIDs returns the distinct link ids present in the index.
func (idx *Index) ListLinkIDs(ctx context.Context) ([]string, error) {
	rows, err := idx.db.QueryContext(ctx, "SELECT DISTINCT link_id FROM vectors")
	if err != nil {
		return nil, fmt.Errorf("vecindex: list link ids: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("vecindex: scan link id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

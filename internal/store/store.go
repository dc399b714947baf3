// Package store is the relational metadata layer. One row per archived
// link; a row existing here means the link's blob and vectors were already
// committed, so this table is always written last and deleted first.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/seen-labs/seen/internal/sqlitedb"
	"github.com/seen-labs/seen/pkg/types"
)

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

-- Archived links
CREATE TABLE IF NOT EXISTS links (
    id TEXT PRIMARY KEY,
    url TEXT NOT NULL,
    created_at TIMESTAMP NOT NULL,
    bucket_path TEXT NOT NULL,
    content_type TEXT NOT NULL,
    size INTEGER NOT NULL,
    title TEXT,
    summary TEXT,
    chunk_count INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_links_url ON links(url);
CREATE INDEX IF NOT EXISTS idx_links_created ON links(created_at);
`

const migrationV1Down = `
DROP TABLE IF EXISTS links;
DROP TABLE IF EXISTS schema_version;
`

// Store is a SQLite-backed link metadata store.
type Store struct {
	db *sql.DB
}

// New opens (or creates) the store at dbPath and applies migrations.
func New(dbPath string) (*Store, error) {
	db, err := sqlitedb.Open(dbPath)
	if err != nil {
		return nil, fmt.Errorf("store: open database: %w", err)
	}
	if err := sqlitedb.Migrate(context.Background(), db, migrations); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("store: apply migrations: %w", err)
	}
	return &Store{db: db}, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) querier() sqlitedb.Querier {
	return s.db
}

// insertLinkWithQuerier is the internal implementation that uses a querier
func (s *Store) insertLinkWithQuerier(ctx context.Context, q sqlitedb.Querier, link *types.Link) error {
	query := `
		INSERT INTO links (id, url, created_at, bucket_path, content_type, size, title, summary, chunk_count)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	if link.CreatedAt.IsZero() {
		link.CreatedAt = time.Now().UTC()
	}
	_, err := q.ExecContext(ctx, query,
		link.ID, link.URL, link.CreatedAt, link.BucketPath,
		link.ContentType, link.Size, link.Title, link.Summary, link.ChunkCount)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: %s", types.ErrDuplicateLink, link.ID)
		}
		return fmt.Errorf("store: insert link: %w", err)
	}
	return nil
}

// InsertLink creates the metadata row for a link. Inserting an id that
// already has a row returns ErrDuplicateLink; the existing row is never
// overwritten.
func (s *Store) InsertLink(ctx context.Context, link *types.Link) error {
	return s.insertLinkWithQuerier(ctx, s.querier(), link)
}

const linkColumns = "id, url, created_at, bucket_path, content_type, size, title, summary, chunk_count"

func scanLink(row interface{ Scan(...interface{}) error }) (*types.Link, error) {
	var link types.Link
	var title, summary sql.NullString
	err := row.Scan(&link.ID, &link.URL, &link.CreatedAt, &link.BucketPath,
		&link.ContentType, &link.Size, &title, &summary, &link.ChunkCount)
	if err != nil {
		return nil, err
	}
	link.Title = title.String
	link.Summary = summary.String
	return &link, nil
}

// getLinkWithQuerier is the internal implementation that uses a querier
func (s *Store) getLinkWithQuerier(ctx context.Context, q sqlitedb.Querier, id string) (*types.Link, error) {
	row := q.QueryRowContext(ctx, "SELECT "+linkColumns+" FROM links WHERE id = ?", id)
	link, err := scanLink(row)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%w: %s", types.ErrLinkNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("store: get link: %w", err)
	}
	return link, nil
}

// GetLink fetches one link by id.
func (s *Store) GetLink(ctx context.Context, id string) (*types.Link, error) {
	return s.getLinkWithQuerier(ctx, s.querier(), id)
}

// GetLinkByURL fetches one link by its stored URL.
func (s *Store) GetLinkByURL(ctx context.Context, url string) (*types.Link, error) {
	row := s.querier().QueryRowContext(ctx, "SELECT "+linkColumns+" FROM links WHERE url = ? LIMIT 1", url)
	link, err := scanLink(row)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%w: url %s", types.ErrLinkNotFound, url)
	}
	if err != nil {
		return nil, fmt.Errorf("store: get link by url: %w", err)
	}
	return link, nil
}

// ListRecent returns the n most recently created links, newest first.
func (s *Store) ListRecent(ctx context.Context, n int) ([]*types.Link, error) {
	if n <= 0 {
		return []*types.Link{}, nil
	}

	rows, err := s.querier().QueryContext(ctx,
		"SELECT "+linkColumns+" FROM links ORDER BY created_at DESC, id LIMIT ?", n)
	if err != nil {
		return nil, fmt.Errorf("store: list recent: %w", err)
	}
	defer func() { _ = rows.Close() }()

	links := make([]*types.Link, 0, n)
	for rows.Next() {
		link, err := scanLink(rows)
		if err != nil {
			return nil, fmt.Errorf("store: scan link: %w", err)
		}
		links = append(links, link)
	}
	return links, rows.Err()
}

// GetLinks fetches links by id, skipping ids with no row. The result
// preserves the order of ids.
func (s *Store) GetLinks(ctx context.Context, ids []string) ([]*types.Link, error) {
	links := make([]*types.Link, 0, len(ids))
	for _, id := range ids {
		link, err := s.GetLink(ctx, id)
		if err != nil {
			if errors.Is(err, types.ErrLinkNotFound) {
				continue
			}
			return nil, err
		}
		links = append(links, link)
	}
	return links, nil
}

// Count returns the number of archived links.
func (s *Store) Count(ctx context.Context) (int, error) {
	var count int
	if err := s.querier().QueryRowContext(ctx, "SELECT COUNT(*) FROM links").Scan(&count); err != nil {
		return 0, fmt.Errorf("store: count links: %w", err)
	}
	return count, nil
}

// DeleteLink removes a link's metadata row. Returns ErrLinkNotFound when no
// row exists.
func (s *Store) DeleteLink(ctx context.Context, id string) error {
	result, err := s.querier().ExecContext(ctx, "DELETE FROM links WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("store: delete link: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("store: delete link: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("%w: %s", types.ErrLinkNotFound, id)
	}
	return nil
}

// ListIDs returns every link id in the store.
func (s *Store) ListIDs(ctx context.Context) ([]string, error) {
	rows, err := s.querier().QueryContext(ctx, "SELECT id FROM links")
	if err != nil {
		return nil, fmt.Errorf("store: list ids: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("store: scan id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// isUniqueViolation matches the unique constraint error of both SQLite
// drivers.
func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}

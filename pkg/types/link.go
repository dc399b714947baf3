package types

import "time"

// Link is the persisted record of one ingested document. One row per
// successfully ingested URL; the row is inserted only after every chunk
// vector is indexed, so a visible Link always has its full vector set.
type Link struct {
	ID          string    // content-addressed, derived from the normalized URL
	URL         string    // as submitted
	CreatedAt   time.Time // commit time
	BucketPath  string    // blob store key, content/<id>.<ext>
	ContentType string    // from the fetch response
	Size        int64     // raw content bytes
	Title       string    // oracle-generated
	Summary     string    // oracle-generated
	ChunkCount  int       // vector entries indexed under this id
}

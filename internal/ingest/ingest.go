// Package ingest sequences the write path: fetch, extract, chunk,
// summarize/embed, then persist across the three stores in commit order.
// Blob and vectors land before the metadata row, so a crash mid-pipeline
// leaves at most orphaned vectors; a links row always has its full vector
// set.
package ingest

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/singleflight"

	"github.com/seen-labs/seen/internal/blobstore"
	"github.com/seen-labs/seen/internal/chunker"
	"github.com/seen-labs/seen/internal/extractor"
	"github.com/seen-labs/seen/internal/fetcher"
	"github.com/seen-labs/seen/internal/oracle"
	"github.com/seen-labs/seen/internal/store"
	"github.com/seen-labs/seen/internal/vecindex"
	"github.com/seen-labs/seen/pkg/types"
)

// Orchestrator runs ingestion end to end. Safe for concurrent use;
// ingestions of the same id are serialized, different ids run in parallel.
type Orchestrator struct {
	fetcher       *fetcher.Fetcher
	oracle        oracle.Oracle
	blobs         *blobstore.Store
	vectors       *vecindex.Index
	links         *store.Store
	maxChunkChars int
	log           *logrus.Logger

	inflight singleflight.Group
}

// New wires an ingestion orchestrator. maxChunkChars <= 0 gets the chunker
// default.
func New(f *fetcher.Fetcher, oc oracle.Oracle, blobs *blobstore.Store, vectors *vecindex.Index, links *store.Store, maxChunkChars int, log *logrus.Logger) *Orchestrator {
	if maxChunkChars <= 0 {
		maxChunkChars = chunker.DefaultMaxChars
	}
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Orchestrator{
		fetcher:       f,
		oracle:        oc,
		blobs:         blobs,
		vectors:       vectors,
		links:         links,
		maxChunkChars: maxChunkChars,
		log:           log,
	}
}

// Ingest archives one URL and returns its link, or the existing link when
// the URL was already archived. Concurrent calls for the same id share one
// attempt.
func (o *Orchestrator) Ingest(ctx context.Context, rawURL string) (*types.Link, error) {
	id := types.LinkIDFromURL(rawURL)

	v, err, _ := o.inflight.Do(id, func() (interface{}, error) {
		return o.ingestOne(ctx, id, types.NormalizeURL(rawURL))
	})
	if err != nil {
		return nil, err
	}
	return v.(*types.Link), nil
}

func (o *Orchestrator) ingestOne(ctx context.Context, id, url string) (*types.Link, error) {
	log := o.log.WithFields(logrus.Fields{
		"attempt": uuid.NewString(),
		"link_id": id,
		"url":     url,
	})

	// Step 1: dedup. An existing row means the whole pipeline already ran.
	existing, err := o.links.GetLink(ctx, id)
	if err == nil {
		log.Debug("link already archived")
		return existing, nil
	}
	if !errors.Is(err, types.ErrLinkNotFound) {
		return nil, err
	}

	// Step 2: fetch.
	fetched, err := o.fetcher.Fetch(ctx, url)
	if err != nil {
		log.WithError(err).Warn("fetch failed")
		return nil, err
	}

	// Step 3: extract.
	extracted, err := extractor.Extract(fetched.Body, fetched.ContentType, url)
	if err != nil {
		log.WithError(err).Warn("extract failed")
		return nil, err
	}

	// Step 4: chunk. Empty text yields zero chunks and the pipeline still
	// proceeds; the document keeps a title and summary.
	chunks := chunker.Split(extracted.Text, o.maxChunkChars)

	// Step 5: summarize and embed. Nothing has been written yet, so any
	// oracle failure aborts cleanly.
	summary, err := o.summarize(ctx, extracted)
	if err != nil {
		log.WithError(err).Warn("summarize failed")
		return nil, err
	}
	vectors, err := o.embedChunks(ctx, chunks)
	if err != nil {
		log.WithError(err).Warn("embed failed")
		return nil, err
	}

	// Step 6: blob.
	bucketPath := blobstore.KeyFor(id, extractor.ExtensionFor(fetched.ContentType))
	if err := o.blobs.Put(bucketPath, fetched.Body); err != nil {
		log.WithError(err).Error("blob write failed")
		return nil, err
	}

	// Step 7: vectors before metadata. A failure past this point leaves
	// orphaned vectors, which are inert until Reconcile collects them.
	entries := make([]vecindex.Entry, len(chunks))
	for i, chunk := range chunks {
		entries[i] = vecindex.Entry{
			LinkID:     id,
			ChunkIndex: chunk.Index,
			Vector:     vectors[i],
			Excerpt:    chunk.Content,
		}
	}
	if err := o.vectors.Upsert(ctx, entries); err != nil {
		log.WithError(err).Error("vector upsert failed")
		return nil, err
	}

	// Step 8: commit metadata. Only now does the link become visible.
	link := &types.Link{
		ID:          id,
		URL:         url,
		BucketPath:  bucketPath,
		ContentType: fetched.ContentType,
		Size:        fetched.Size,
		Title:       summary.Title,
		Summary:     summary.Summary,
		ChunkCount:  len(chunks),
	}
	if err := o.links.InsertLink(ctx, link); err != nil {
		if errors.Is(err, types.ErrDuplicateLink) {
			return o.adoptWinner(ctx, id, len(chunks), log)
		}
		log.WithError(err).Error("metadata commit failed")
		return nil, err
	}

	log.WithFields(logrus.Fields{
		"chunks": len(chunks),
		"size":   link.Size,
		"type":   link.ContentType,
	}).Info("link archived")
	return link, nil
}

// adoptWinner resolves a lost commit race: another attempt inserted the row
// first. This attempt's surplus vectors are trimmed to the winner's chunk
// count so the visible record matches exactly one vector set. Indices below
// that count keep whichever upsert landed last; if the two attempts fetched
// different content, those vectors can come from the losing fetch. Both
// attempts embedded the same URL moments apart, so a rewritten record only
// appears when the page itself changed mid-race.
func (o *Orchestrator) adoptWinner(ctx context.Context, id string, attempted int, log *logrus.Entry) (*types.Link, error) {
	winner, err := o.links.GetLink(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("lost commit race but winner not readable: %w", err)
	}
	if attempted > winner.ChunkCount {
		if err := o.vectors.TrimBeyond(ctx, id, winner.ChunkCount); err != nil {
			return nil, err
		}
	}
	log.WithField("winner_chunks", winner.ChunkCount).Info("adopted concurrent ingestion")
	return winner, nil
}

// summarize produces the document title and summary. Whitespace-only text
// skips the oracle and keeps the extractor's title; very long documents are
// summarized from a prefix.
func (o *Orchestrator) summarize(ctx context.Context, extracted *extractor.Extracted) (*oracle.Summary, error) {
	text := strings.TrimSpace(extracted.Text)
	if text == "" {
		return &oracle.Summary{Title: extracted.Title}, nil
	}
	if len(text) > oracle.MaxInputChars {
		text = text[:oracle.MaxInputChars]
	}

	summary, err := o.oracle.Summarize(ctx, text)
	if err != nil {
		return nil, err
	}
	if summary.Title == "" {
		summary.Title = extracted.Title
	}
	return summary, nil
}

// embedChunks returns one vector per chunk, batching within the oracle's
// batch limit. Zero chunks embed nothing.
func (o *Orchestrator) embedChunks(ctx context.Context, chunks []types.Chunk) ([][]float32, error) {
	if len(chunks) == 0 {
		return nil, nil
	}

	texts := make([]string, len(chunks))
	for i, chunk := range chunks {
		texts[i] = chunk.Content
	}

	vectors := make([][]float32, 0, len(texts))
	for start := 0; start < len(texts); start += oracle.MaxBatchSize {
		end := start + oracle.MaxBatchSize
		if end > len(texts) {
			end = len(texts)
		}
		batch, err := o.oracle.EmbedBatch(ctx, texts[start:end])
		if err != nil {
			return nil, err
		}
		vectors = append(vectors, batch...)
	}
	return vectors, nil
}

// Delete removes an archived link entirely. The metadata row goes first so
// the link is never visible without its vectors; the vector and blob
// removals that follow can at worst leave inert orphans.
func (o *Orchestrator) Delete(ctx context.Context, rawURL string) error {
	id := types.LinkIDFromURL(rawURL)

	link, err := o.links.GetLink(ctx, id)
	if err != nil {
		return err
	}
	if err := o.links.DeleteLink(ctx, id); err != nil {
		return err
	}
	if err := o.vectors.DeleteByLink(ctx, id); err != nil {
		return err
	}
	if err := o.blobs.Delete(link.BucketPath); err != nil {
		return err
	}

	o.log.WithFields(logrus.Fields{"link_id": id, "url": link.URL}).Info("link deleted")
	return nil
}

// Reconcile sweeps the vector index for link ids with no metadata row and
// removes their vectors. Returns the number of orphaned links collected.
func (o *Orchestrator) Reconcile(ctx context.Context) (int, error) {
	vectorIDs, err := o.vectors.ListLinkIDs(ctx)
	if err != nil {
		return 0, err
	}
	rowIDs, err := o.links.ListIDs(ctx)
	if err != nil {
		return 0, err
	}

	known := make(map[string]struct{}, len(rowIDs))
	for _, id := range rowIDs {
		known[id] = struct{}{}
	}

	removed := 0
	for _, id := range vectorIDs {
		if _, ok := known[id]; ok {
			continue
		}
		if err := o.vectors.DeleteByLink(ctx, id); err != nil {
			return removed, err
		}
		removed++
	}

	if removed > 0 {
		o.log.WithField("orphans", removed).Info("reconciled vector index")
	}
	return removed, nil
}

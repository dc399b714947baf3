// Package search sequences the read path: embed the query, overfetch
// nearest chunks, collapse to the best chunk per link, hydrate rows, rank.
package search

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/sirupsen/logrus"

	"github.com/seen-labs/seen/internal/oracle"
	"github.com/seen-labs/seen/internal/store"
	"github.com/seen-labs/seen/internal/vecindex"
	"github.com/seen-labs/seen/pkg/types"
)

// DefaultOverfetch compensates for per-link collapsing: several of a
// document's chunks can fill the raw neighbor list, so the index is asked
// for more hits than the caller wants links.
const DefaultOverfetch = 4

// Orchestrator runs semantic retrieval over the vector index and metadata
// store.
type Orchestrator struct {
	oracle    oracle.Oracle
	vectors   *vecindex.Index
	links     *store.Store
	overfetch int
	minScore  float64
	log       *logrus.Logger
}

// New wires a retrieval orchestrator. overfetch <= 0 gets the default;
// minScore 0 keeps every hit.
func New(oc oracle.Oracle, vectors *vecindex.Index, links *store.Store, overfetch int, minScore float64, log *logrus.Logger) *Orchestrator {
	if overfetch <= 0 {
		overfetch = DefaultOverfetch
	}
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Orchestrator{
		oracle:    oc,
		vectors:   vectors,
		links:     links,
		overfetch: overfetch,
		minScore:  minScore,
		log:       log,
	}
}

// Search returns the topK most relevant links for the query, best first.
// topK <= 0 short-circuits before any oracle call.
func (o *Orchestrator) Search(ctx context.Context, query string, topK int) ([]types.SearchResult, error) {
	if topK <= 0 {
		return []types.SearchResult{}, nil
	}

	embedded, err := o.oracle.EmbedBatch(ctx, []string{query})
	if err != nil {
		return nil, err
	}

	matches, err := o.vectors.Query(ctx, embedded[0], topK*o.overfetch)
	if err != nil {
		return nil, err
	}

	best := collapse(matches)

	results := make([]types.SearchResult, 0, len(best))
	for _, m := range best {
		if o.minScore > 0 && m.Score < o.minScore {
			continue
		}
		link, err := o.links.GetLink(ctx, m.LinkID)
		if errors.Is(err, types.ErrLinkNotFound) {
			// Orphaned vector from an aborted ingestion. Drop the hit.
			o.log.WithField("link_id", m.LinkID).Debug("dropping orphaned vector hit")
			continue
		}
		if err != nil {
			// Metadata store failure, not a missing row. Abort rather than
			// return a quietly shrunken result set.
			return nil, fmt.Errorf("search: hydrate %s: %w", m.LinkID, err)
		}
		results = append(results, types.SearchResult{
			Link:    *link,
			Score:   m.Score,
			Excerpt: m.Excerpt,
		})
	}

	sort.SliceStable(results, func(i, j int) bool {
		if results[i].Score != results[j].Score {
			return results[i].Score > results[j].Score
		}
		return results[i].Link.CreatedAt.After(results[j].Link.CreatedAt)
	})

	if len(results) > topK {
		results = results[:topK]
	}
	for i := range results {
		results[i].Rank = i + 1
	}
	return results, nil
}

// collapse keeps the best-scoring chunk per link, preserving score order.
func collapse(matches []vecindex.Match) []vecindex.Match {
	seen := make(map[string]struct{}, len(matches))
	out := make([]vecindex.Match, 0, len(matches))
	for _, m := range matches {
		if _, ok := seen[m.LinkID]; ok {
			continue
		}
		seen[m.LinkID] = struct{}{}
		out = append(out, m)
	}
	return out
}

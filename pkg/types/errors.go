package types

import (
	"errors"
	"fmt"
)

// Sentinel errors shared across the pipeline.
var (
	ErrUnsupportedContentType = errors.New("unsupported content type")
	ErrDuplicateLink          = errors.New("link already exists")
	ErrLinkNotFound           = errors.New("link not found")
	ErrBlobNotFound           = errors.New("blob not found")
	ErrUnauthorized           = errors.New("caller not authorized")

	// Search result validation errors.
	ErrMissingLink  = errors.New("result is missing its link")
	ErrInvalidRank  = errors.New("rank must be >= 1")
	ErrInvalidScore = errors.New("score must be a cosine similarity in [-1, 1]")
)

// FetchReason classifies why a content fetch failed.
type FetchReason string

const (
	FetchTimeout           FetchReason = "timeout"
	FetchNetwork           FetchReason = "network"
	FetchTooLarge          FetchReason = "too-large"
	FetchBadStatus         FetchReason = "non-2xx"
	FetchUnsupportedScheme FetchReason = "unsupported-scheme"
)

// FetchError reports a failed content fetch. The ingestion pipeline aborts
// on any FetchError; nothing has been written at that point.
type FetchError struct {
	Reason FetchReason
	URL    string
	Status int // set for non-2xx
	Err    error
}

func (e *FetchError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("fetch %s: %s (status %d)", e.URL, e.Reason, e.Status)
	}
	return fmt.Sprintf("fetch %s: %s", e.URL, e.Reason)
}

func (e *FetchError) Unwrap() error { return e.Err }

// OracleReason classifies a summarize/embed oracle failure.
type OracleReason string

const (
	OracleRateLimited OracleReason = "rate-limited"
	OracleQuota       OracleReason = "quota"
	OracleMalformed   OracleReason = "malformed-response"
	OracleTimeout     OracleReason = "timeout"
)

// OracleError reports a failed oracle call. Rate-limited responses are the
// only class retried before one of these surfaces.
type OracleError struct {
	Reason OracleReason
	Op     string // "summarize" or "embed"
	Err    error
}

func (e *OracleError) Error() string {
	return fmt.Sprintf("oracle %s: %s", e.Op, e.Reason)
}

func (e *OracleError) Unwrap() error { return e.Err }

// IsRateLimited reports whether err is an OracleError for a rate-limited
// response, the one retryable oracle failure.
func IsRateLimited(err error) bool {
	var oe *OracleError
	return errors.As(err, &oe) && oe.Reason == OracleRateLimited
}

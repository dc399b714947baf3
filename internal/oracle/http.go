package oracle

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/seen-labs/seen/pkg/types"
)

// postJSON sends one JSON request and decodes the JSON response into out.
// HTTP failures are classified into the oracle error taxonomy so the retry
// layer can tell rate limits apart from everything else.
func postJSON(ctx context.Context, client *http.Client, op, url string, headers map[string]string, reqBody, out interface{}) error {
	body, err := json.Marshal(reqBody)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := client.Do(req)
	if err != nil {
		// Deadline and transport failures alike: the call never produced a
		// usable response.
		return &types.OracleError{Reason: types.OracleTimeout, Op: op, Err: err}
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode != http.StatusOK {
		bodyBytes, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		apiErr := fmt.Errorf("api error %d: %s", resp.StatusCode, string(bodyBytes))
		switch resp.StatusCode {
		case http.StatusTooManyRequests:
			return &types.OracleError{Reason: types.OracleRateLimited, Op: op, Err: apiErr}
		case http.StatusPaymentRequired, http.StatusForbidden:
			return &types.OracleError{Reason: types.OracleQuota, Op: op, Err: apiErr}
		default:
			return &types.OracleError{Reason: types.OracleMalformed, Op: op, Err: apiErr}
		}
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return &types.OracleError{Reason: types.OracleMalformed, Op: op, Err: fmt.Errorf("decode response: %w", err)}
	}
	return nil
}

func malformed(op string, err error) error {
	return &types.OracleError{Reason: types.OracleMalformed, Op: op, Err: err}
}

// parseSummaryJSON extracts a {"title": ..., "summary": ...} object from a
// model completion. Models wrap the object in prose or code fences often
// enough that we scan for the outermost braces instead of decoding the raw
// completion.
func parseSummaryJSON(completion string) (*Summary, error) {
	start := bytes.IndexByte([]byte(completion), '{')
	end := bytes.LastIndexByte([]byte(completion), '}')
	if start < 0 || end <= start {
		return nil, errors.New("no JSON object in completion")
	}

	var parsed struct {
		Title   string `json:"title"`
		Summary string `json:"summary"`
	}
	if err := json.Unmarshal([]byte(completion[start:end+1]), &parsed); err != nil {
		return nil, fmt.Errorf("parse summary object: %w", err)
	}
	if parsed.Title == "" && parsed.Summary == "" {
		return nil, errors.New("summary object has no title or summary")
	}
	return &Summary{Title: parsed.Title, Summary: parsed.Summary}, nil
}

// checkVectors enforces the fixed embedding dimension on provider output.
func checkVectors(op string, want, got int, vectors [][]float32) error {
	if got != want {
		return &types.OracleError{
			Reason: types.OracleMalformed,
			Op:     op,
			Err:    fmt.Errorf("expected %d vectors, got %d", want, got),
		}
	}
	for i, v := range vectors {
		if len(v) != Dimension {
			return &types.OracleError{
				Reason: types.OracleMalformed,
				Op:     op,
				Err:    fmt.Errorf("vector %d has dimension %d, want %d", i, len(v), Dimension),
			}
		}
	}
	return nil
}

const summarizePrompt = `Summarize the following document. Respond with a single JSON object: {"title": "<concise title, max 80 chars>", "summary": "<2-3 sentence summary>"}. No other text.

Document:
%s`

// Package es wraps the search engine behind a narrow consumer interface.
// Repositories depend on Engine, never on the underlying client, mirroring
// how the rest of the codebase isolates external stores.
package es

import (
	"context"
	"encoding/json"
	"net/http"
)

// Engine executes structured queries against one logical index.
type Engine interface {
	// Search runs a query body against an index. Transport and engine
	// failures are folded into the returned Response (status plus error
	// info) so callers classify exactly one shape; the error return covers
	// request construction only.
	Search(ctx context.Context, index string, body any) (*Response, error)
	Ping(ctx context.Context) error
}

// Response is the engine's search response envelope. Status is always set:
// 200 is injected on success, engine errors keep the engine's own status,
// transport failures surface as 500.
type Response struct {
	Status       int                    `json:"status"`
	Took         int64                  `json:"took"`
	TimedOut     bool                   `json:"timed_out,omitempty"`
	Hits         Hits                   `json:"hits"`
	Aggregations map[string]Aggregation `json:"aggregations,omitempty"`
	Error        *ErrorInfo             `json:"error,omitempty"`
}

// OK reports whether the engine answered the query successfully.
func (r *Response) OK() bool { return r.Status == http.StatusOK }

// Hits is the matched-document section of a response.
type Hits struct {
	Total Total `json:"total"`
	Hits  []Hit `json:"hits"`
}

// Total is the engine-reported hit count. Relation is "eq" when exact
// total tracking is on, which every query built here requests.
type Total struct {
	Value    int64  `json:"value"`
	Relation string `json:"relation,omitempty"`
}

// Hit is a single matched document.
type Hit struct {
	Index  string          `json:"_index,omitempty"`
	ID     string          `json:"_id,omitempty"`
	Score  *float64        `json:"_score,omitempty"`
	Source json.RawMessage `json:"_source,omitempty"`
}

// Aggregation is a terms aggregation result.
type Aggregation struct {
	DocCountErrorUpperBound int64    `json:"doc_count_error_upper_bound,omitempty"`
	SumOtherDocCount        int64    `json:"sum_other_doc_count,omitempty"`
	Buckets                 []Bucket `json:"buckets"`
}

// Bucket is a single aggregation bucket.
type Bucket struct {
	Key      string `json:"key"`
	DocCount int64  `json:"doc_count"`
}

// ErrorInfo is the engine's structured error body.
type ErrorInfo struct {
	Type      string      `json:"type,omitempty"`
	Reason    string      `json:"reason,omitempty"`
	Index     string      `json:"index,omitempty"`
	RootCause []RootCause `json:"root_cause,omitempty"`
}

// RootCause is one entry of an engine error's root_cause list.
type RootCause struct {
	Type         string `json:"type,omitempty"`
	Reason       string `json:"reason,omitempty"`
	Index        string `json:"index,omitempty"`
	ResourceType string `json:"resource.type,omitempty"`
	ResourceID   string `json:"resource.id,omitempty"`
}

// FirstRootCause returns the first structured root cause, or nil.
func (e *ErrorInfo) FirstRootCause() *RootCause {
	if e == nil || len(e.RootCause) == 0 {
		return nil
	}
	return &e.RootCause[0]
}

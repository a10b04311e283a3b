// Package oracle is the LLM boundary of the repair pipeline. Every judgment
// call (diagnosis, template rewriting, redirects, split decisions) goes
// through the Client interface, so the pipeline itself never touches a
// provider SDK directly.
package oracle

import "context"

// QueryRequest is one free-form LLM query.
type QueryRequest struct {
	Prompt       string
	SystemPrompt string
	Temperature  float32
}

// Client answers queries with raw model text. Implementations are expected
// to be safe for concurrent use.
type Client interface {
	Query(ctx context.Context, req QueryRequest) (string, error)
}

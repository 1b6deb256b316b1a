package ai

import "context"

// Client port for the upstream LLM completion backend. Both methods
// return the model's raw text reply; prompt construction lives with the
// implementation.
type Client interface {
	AnalyzeCompliance(ctx context.Context, documentText string) (string, error)
	GeneratePolicy(ctx context.Context, control, documentText string) (string, error)
}

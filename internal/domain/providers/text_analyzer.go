package providers

import (
	"context"
	"errors"
)

// ErrOracleUnauthorized is returned when a provider rejects its credentials.
var ErrOracleUnauthorized = errors.New("oracle provider unauthorized")

// TextAnalyzer sends a prompt to an external text-understanding service and
// returns its raw reply.
type TextAnalyzer interface {
	// Name identifies the provider in logs and metrics
	Name() string

	// Complete returns the raw text produced for prompt
	Complete(ctx context.Context, prompt string) (string, error)
}

// AnalystSystemPrompt is sent by providers that support a separate system message
const AnalystSystemPrompt = "You are a careful medical document analyst. You reply with a single strict JSON object and nothing else."

package providers

import "context"

// TextExtractor converts a binary document into plain text
type TextExtractor interface {
	Extract(ctx context.Context, document []byte) (string, error)
}

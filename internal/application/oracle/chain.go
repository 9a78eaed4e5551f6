package oracle

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/zatekoja/Medicalreportanalysis/backend/internal/domain/providers"
	"github.com/zatekoja/Medicalreportanalysis/backend/internal/infrastructure/observability"
	"go.opentelemetry.io/otel/attribute"
)

// DefaultCallTimeout is used when a provider is configured without a timeout
const DefaultCallTimeout = 30 * time.Second

// ErrChainExhausted is returned when no provider produced a valid reply
var ErrChainExhausted = errors.New("all oracle providers failed")

// Provider is one entry of a fallback chain
type Provider struct {
	Analyzer providers.TextAnalyzer
	Timeout  time.Duration
}

// Attempt records the outcome of a single provider call
type Attempt struct {
	Provider string
	Duration time.Duration
	Err      error
}

// Chain is an ordered list of providers tried one after another
type Chain struct {
	providers []Provider
}

// NewChain creates a chain; nil analyzers are skipped.
func NewChain(entries ...Provider) *Chain {
	chain := &Chain{}
	for _, p := range entries {
		if p.Analyzer == nil {
			continue
		}
		if p.Timeout <= 0 {
			p.Timeout = DefaultCallTimeout
		}
		chain.providers = append(chain.providers, p)
	}
	return chain
}

// Len returns the number of providers in the chain
func (c *Chain) Len() int {
	return len(c.providers)
}

// Close releases providers that hold background resources
func (c *Chain) Close() error {
	if c == nil {
		return nil
	}
	var errs []error
	for _, p := range c.providers {
		if closer, ok := p.Analyzer.(io.Closer); ok {
			errs = append(errs, closer.Close())
		}
	}
	return errors.Join(errs...)
}

// Primary returns a chain holding only the first provider
func (c *Chain) Primary() *Chain {
	if c == nil || len(c.providers) == 0 {
		return &Chain{}
	}
	return &Chain{providers: c.providers[:1:1]}
}

// Run sends prompt to each provider in order until parse accepts a reply.
// Calls are sequential and each is bounded by the provider timeout; a
// timeout, a transport error and an unparsable reply all move on to the
// next provider.
func Run[T any](ctx context.Context, chain *Chain, prompt string, parse func(string) (T, error)) (T, []Attempt, error) {
	var zero T
	if chain == nil || len(chain.providers) == 0 {
		return zero, nil, fmt.Errorf("%w: no providers configured", ErrChainExhausted)
	}

	logger := observability.LoggerFromContext(ctx)
	attempts := make([]Attempt, 0, len(chain.providers))
	var errs []error

	for i, p := range chain.providers {
		if err := ctx.Err(); err != nil {
			errs = append(errs, err)
			break
		}

		name := p.Analyzer.Name()
		result, attempt := callProvider(ctx, p, prompt, parse)
		attempts = append(attempts, attempt)

		if attempt.Err == nil {
			if i > 0 {
				logger.Info().
					Str("provider", name).
					Int("attempt", i+1).
					Msg("oracle fallback succeeded")
			}
			return result, attempts, nil
		}

		logger.Warn().
			Err(attempt.Err).
			Str("provider", name).
			Int("attempt", i+1).
			Dur("duration", attempt.Duration).
			Msg("oracle provider attempt failed")
		errs = append(errs, fmt.Errorf("%s: %w", name, attempt.Err))
	}

	return zero, attempts, fmt.Errorf("%w: %w", ErrChainExhausted, errors.Join(errs...))
}

func callProvider[T any](ctx context.Context, p Provider, prompt string, parse func(string) (T, error)) (T, Attempt) {
	var zero T
	name := p.Analyzer.Name()

	ctx, span := observability.StartSpan(ctx, "oracle.complete")
	defer span.End()
	observability.SetSpanAttributes(span, attribute.String("oracle.provider", name))

	callCtx, cancel := context.WithTimeout(ctx, p.Timeout)
	defer cancel()

	start := time.Now()
	raw, err := p.Analyzer.Complete(callCtx, prompt)
	if err == nil && callCtx.Err() != nil {
		err = callCtx.Err()
	}
	if err != nil {
		observability.RecordError(span, err)
		return zero, Attempt{Provider: name, Duration: time.Since(start), Err: err}
	}

	result, err := parse(raw)
	if err != nil {
		observability.RecordError(span, err)
		return zero, Attempt{Provider: name, Duration: time.Since(start), Err: err}
	}

	return result, Attempt{Provider: name, Duration: time.Since(start)}
}

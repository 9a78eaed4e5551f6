// Package analyzers builds the configured oracle provider chain.
package analyzers

import (
	"fmt"

	"github.com/zatekoja/Medicalreportanalysis/backend/internal/application/oracle"
	"github.com/zatekoja/Medicalreportanalysis/backend/internal/domain/providers"
	"github.com/zatekoja/Medicalreportanalysis/backend/internal/infrastructure/clients/chatcompletion"
	"github.com/zatekoja/Medicalreportanalysis/backend/internal/infrastructure/clients/openai"
	"github.com/zatekoja/Medicalreportanalysis/backend/internal/infrastructure/observability"
	"github.com/zatekoja/Medicalreportanalysis/backend/pkg/config"
)

// New creates the text analyzer for a provider block
func New(cfg *config.ProviderConfig) (providers.TextAnalyzer, error) {
	var (
		analyzer providers.TextAnalyzer
		err      error
	)
	switch cfg.Kind {
	case "chat":
		analyzer, err = chatcompletion.NewClient(cfg)
	case "responses":
		analyzer, err = openai.NewClient(cfg)
	default:
		return nil, fmt.Errorf("unknown oracle provider kind %q", cfg.Kind)
	}
	if err != nil {
		return nil, err
	}
	return analyzer, nil
}

// NewChain creates the primary/fallback chain. The primary provider is
// required; a fallback without credentials is left out.
func NewChain(cfg *config.OracleConfig) (*oracle.Chain, error) {
	primary, err := New(&cfg.Primary)
	if err != nil {
		return nil, fmt.Errorf("primary oracle: %w", err)
	}
	entries := []oracle.Provider{{Analyzer: primary, Timeout: cfg.Primary.Timeout}}

	logger := observability.GetLogger()
	if cfg.Fallback.APIKey == "" {
		logger.Warn().Msg("fallback oracle has no api key, analysis runs without a fallback")
		return oracle.NewChain(entries...), nil
	}

	fallback, err := New(&cfg.Fallback)
	if err != nil {
		return nil, fmt.Errorf("fallback oracle: %w", err)
	}
	entries = append(entries, oracle.Provider{Analyzer: fallback, Timeout: cfg.Fallback.Timeout})

	logger.Info().
		Str("primary", primary.Name()).
		Str("fallback", fallback.Name()).
		Msg("oracle chain configured")
	return oracle.NewChain(entries...), nil
}

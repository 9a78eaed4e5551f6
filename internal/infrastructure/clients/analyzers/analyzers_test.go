package analyzers

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zatekoja/Medicalreportanalysis/backend/pkg/config"
)

func provider(kind, key, model string) config.ProviderConfig {
	return config.ProviderConfig{Kind: kind, APIKey: key, Model: model, Timeout: time.Second, RateLimitRPM: -1}
}

func TestNew(t *testing.T) {
	chat := provider("chat", "k", "gpt-4o-mini")
	analyzer, err := New(&chat)
	require.NoError(t, err)
	assert.Equal(t, "chat-completions:gpt-4o-mini", analyzer.Name())

	responses := provider("responses", "k", "gpt-4.1-mini")
	analyzer, err = New(&responses)
	require.NoError(t, err)
	assert.Equal(t, "openai-responses:gpt-4.1-mini", analyzer.Name())

	unknown := provider("smoke-signals", "k", "m")
	_, err = New(&unknown)
	assert.Error(t, err)
}

func TestNewChain(t *testing.T) {
	cfg := config.OracleConfig{
		Primary:  provider("chat", "k", "gpt-4o-mini"),
		Fallback: provider("responses", "k", "gpt-4.1-mini"),
	}
	chain, err := NewChain(&cfg)
	require.NoError(t, err)
	assert.Equal(t, 2, chain.Len())

	cfg.Fallback.APIKey = ""
	chain, err = NewChain(&cfg)
	require.NoError(t, err)
	assert.Equal(t, 1, chain.Len())

	cfg.Primary.APIKey = ""
	_, err = NewChain(&cfg)
	assert.Error(t, err)
}

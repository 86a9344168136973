package openai

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ersonp/hindsight-core/internal/infrastructure/config"
)

func TestNewClient(t *testing.T) {
	tests := []struct {
		name    string
		cfg     config.LLMConfig
		wantErr bool
	}{
		{name: "valid config", cfg: config.LLMConfig{APIKey: "test-key"}},
		{name: "valid config with model", cfg: config.LLMConfig{APIKey: "test-key", Model: "gpt-4"}},
		{name: "missing API key", cfg: config.LLMConfig{}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client, err := NewClient(tt.cfg)
			if tt.wantErr {
				require.Error(t, err)
				assert.Nil(t, client)
				return
			}
			require.NoError(t, err)
			assert.NotNil(t, client)
		})
	}
}

func TestNewClientDefaultModel(t *testing.T) {
	client, err := NewClient(config.LLMConfig{APIKey: "test-key"})
	require.NoError(t, err)
	assert.Equal(t, "gpt-4o-mini", client.model)
}

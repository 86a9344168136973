package openai

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ersonp/hindsight-core/internal/infrastructure/config"
)

func TestNewEmbedder(t *testing.T) {
	tests := []struct {
		name    string
		cfg     config.EmbedderConfig
		wantErr bool
	}{
		{name: "valid config", cfg: config.EmbedderConfig{APIKey: "test-key"}},
		{name: "valid config with model", cfg: config.EmbedderConfig{APIKey: "test-key", Model: "text-embedding-3-large"}},
		{name: "missing API key", cfg: config.EmbedderConfig{}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e, err := NewEmbedder(tt.cfg)
			if tt.wantErr {
				require.Error(t, err)
				assert.Nil(t, e)
				return
			}
			require.NoError(t, err)
			assert.NotNil(t, e)
		})
	}
}

func TestEmbedBatchEmptyInput(t *testing.T) {
	e, err := NewEmbedder(config.EmbedderConfig{APIKey: "test-key"})
	require.NoError(t, err)

	embeddings, err := e.EmbedBatch(context.Background(), nil)
	require.NoError(t, err)
	assert.Nil(t, embeddings)
}

package handlers

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ersonp/hindsight-core/internal/domain/mocks"
	"github.com/ersonp/hindsight-core/internal/domain/services"
	"github.com/ersonp/hindsight-core/internal/infrastructure/config"
	"github.com/ersonp/hindsight-core/internal/infrastructure/store/sqlite"
)

func newTestEngine(t *testing.T) *services.Engine {
	t.Helper()
	repo, err := sqlite.NewRepository(config.StoreConfig{Path: ":memory:"})
	require.NoError(t, err)
	require.NoError(t, repo.EnsureSchema(context.Background()))
	t.Cleanup(func() { repo.Close() })

	llm := &mocks.LLMClient{Response: `{"facts": [{"factual_core": "Alice likes tea", "fact_type": "world"}]}`}
	return services.NewEngine(repo, llm, &mocks.Embedder{Dim: 8}, nil, &mocks.EntityResolver{}, nil, nil, services.DefaultTuning())
}

func TestRetainHandlerLiteralContent(t *testing.T) {
	h := NewRetainHandler(newTestEngine(t))

	result, err := h.Handle(context.Background(), RetainRequest{BankID: "b1", Content: "Alice likes tea."})
	require.NoError(t, err)
	assert.Len(t, result.UnitIDs, 1)
}

func TestRetainHandlerFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "note.txt")
	require.NoError(t, os.WriteFile(path, []byte("Alice likes tea."), 0644))

	h := NewRetainHandler(newTestEngine(t))
	result, err := h.Handle(context.Background(), RetainRequest{BankID: "b1", FilePath: path})
	require.NoError(t, err)
	assert.Len(t, result.UnitIDs, 1)
}

func TestRetainHandlerValidation(t *testing.T) {
	h := NewRetainHandler(newTestEngine(t))
	ctx := context.Background()

	_, err := h.Handle(ctx, RetainRequest{Content: "x"})
	assert.Error(t, err, "bank id is required")

	_, err = h.Handle(ctx, RetainRequest{BankID: "b1"})
	assert.Error(t, err, "content is required")

	_, err = h.Handle(ctx, RetainRequest{BankID: "b1", Content: "x", FilePath: "y"})
	assert.Error(t, err, "content and file are mutually exclusive")
}

func TestRecallHandlerRoundTrip(t *testing.T) {
	engine := newTestEngine(t)
	retain := NewRetainHandler(engine)
	recall := NewRecallHandler(engine)
	ctx := context.Background()

	_, err := retain.Handle(ctx, RetainRequest{BankID: "b1", Content: "Alice likes tea."})
	require.NoError(t, err)

	result, err := recall.Handle(ctx, RecallRequest{BankID: "b1", Query: "tea"})
	require.NoError(t, err)
	assert.Len(t, result.Results, 1)

	_, err = recall.Handle(ctx, RecallRequest{BankID: "b1", Query: "tea", Budget: "ENORMOUS"})
	assert.Error(t, err)
}

func TestBankHandlerDelete(t *testing.T) {
	engine := newTestEngine(t)
	retain := NewRetainHandler(engine)
	bank := NewBankHandler(engine)
	recall := NewRecallHandler(engine)
	ctx := context.Background()

	_, err := retain.Handle(ctx, RetainRequest{BankID: "b1", Content: "Alice likes tea."})
	require.NoError(t, err)

	require.NoError(t, bank.Delete(ctx, "b1"))

	result, err := recall.Handle(ctx, RecallRequest{BankID: "b1", Query: "tea"})
	require.NoError(t, err)
	assert.Empty(t, result.Results)

	assert.Error(t, bank.Delete(ctx, ""))
}

package dedup

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ersonp/hindsight-core/internal/domain/entities"
	"github.com/ersonp/hindsight-core/internal/infrastructure/config"
	"github.com/ersonp/hindsight-core/internal/infrastructure/store/sqlite"
)

func seedFact(t *testing.T, repo *sqlite.Repository, bankID, text string, embedding []float32) {
	t.Helper()
	ctx := context.Background()
	rtx, err := repo.BeginRetain(ctx)
	require.NoError(t, err)
	require.NoError(t, rtx.EnsureBankExists(ctx, bankID, bankID))
	_, err = rtx.InsertFactsBatch(ctx, []entities.Unit{{
		BankID:      bankID,
		FactText:    text,
		FactType:    entities.FactTypeWorld,
		Embedding:   embedding,
		MentionedAt: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
	}})
	require.NoError(t, err)
	require.NoError(t, rtx.Commit(ctx))
}

func newCheckerFixture(t *testing.T) (*Checker, *sqlite.Repository) {
	t.Helper()
	repo, err := sqlite.NewRepository(config.StoreConfig{Path: ":memory:"})
	require.NoError(t, err)
	require.NoError(t, repo.EnsureSchema(context.Background()))
	t.Cleanup(func() { repo.Close() })
	return NewChecker(repo, 0), repo
}

func TestIsDuplicateExactMatch(t *testing.T) {
	checker, repo := newCheckerFixture(t)
	seedFact(t, repo, "b1", "Alice likes tea", []float32{1, 0, 0})

	dup, err := checker.IsDuplicate(context.Background(), "b1", "Alice likes tea", []float32{1, 0, 0})
	require.NoError(t, err)
	assert.True(t, dup)
}

func TestIsDuplicateRequiresBothConditions(t *testing.T) {
	checker, repo := newCheckerFixture(t)
	seedFact(t, repo, "b1", "Alice likes tea", []float32{1, 0, 0})

	// Same vector, unrelated text: not a duplicate.
	dup, err := checker.IsDuplicate(context.Background(), "b1", "Bob moved to Berlin for a new job", []float32{1, 0, 0})
	require.NoError(t, err)
	assert.False(t, dup)

	// Near-identical text, distant vector: not a duplicate.
	dup, err = checker.IsDuplicate(context.Background(), "b1", "Alice likes tea", []float32{0, 1, 0})
	require.NoError(t, err)
	assert.False(t, dup)
}

func TestIsDuplicateEmptyBank(t *testing.T) {
	checker, _ := newCheckerFixture(t)
	dup, err := checker.IsDuplicate(context.Background(), "empty", "anything", []float32{1})
	require.NoError(t, err)
	assert.False(t, dup)
}

func TestIsDuplicateCaseAndWhitespaceFolding(t *testing.T) {
	checker, repo := newCheckerFixture(t)
	seedFact(t, repo, "b1", "Alice  likes tea", []float32{1, 0, 0})

	dup, err := checker.IsDuplicate(context.Background(), "b1", "alice likes TEA", []float32{1, 0, 0})
	require.NoError(t, err)
	assert.True(t, dup)
}

func TestNearEquivalentTextJaccard(t *testing.T) {
	assert.True(t, nearEquivalentText("Alice likes tea", "Alice likes tea."))
	assert.False(t, nearEquivalentText("Alice likes tea", "Alice likes coffee and cake in the morning"))
}

package sqlite

import (
	"context"
	"testing"
	"time"

	"github.com/ersonp/hindsight-core/internal/domain/entities"
	"github.com/ersonp/hindsight-core/internal/domain/ports"
	"github.com/ersonp/hindsight-core/internal/infrastructure/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRepo(t *testing.T) *Repository {
	t.Helper()
	repo, err := NewRepository(config.StoreConfig{Path: ":memory:"})
	require.NoError(t, err)
	require.NoError(t, repo.EnsureSchema(context.Background()))
	t.Cleanup(func() { repo.Close() })
	return repo
}

func TestNewRepositoryRequiresPath(t *testing.T) {
	_, err := NewRepository(config.StoreConfig{Path: ""})
	assert.Error(t, err)
}

func TestEnsureBankExistsIsIdempotent(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	rtx, err := repo.BeginRetain(ctx)
	require.NoError(t, err)
	require.NoError(t, rtx.EnsureBankExists(ctx, "b1", "Alice"))
	require.NoError(t, rtx.EnsureBankExists(ctx, "b1", "Alice Again"))
	require.NoError(t, rtx.Commit(ctx))

	profile, err := repo.GetBankProfile(ctx, "b1")
	require.NoError(t, err)
	assert.Equal(t, "Alice", profile.Name)
}

func TestGetBankProfileMissing(t *testing.T) {
	repo := newTestRepo(t)
	_, err := repo.GetBankProfile(context.Background(), "missing")
	assert.ErrorIs(t, err, ports.ErrBankNotFound)
}

func TestStoreChunksAndFacts(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	rtx, err := repo.BeginRetain(ctx)
	require.NoError(t, err)
	require.NoError(t, rtx.EnsureBankExists(ctx, "b1", "Alice"))

	docID, err := rtx.HandleDocumentTracking(ctx, "b1", "", "para one. para two.", true)
	require.NoError(t, err)

	chunkIDs, err := rtx.StoreChunksBatch(ctx, "b1", docID, []string{"para one.", "para two."})
	require.NoError(t, err)
	require.Len(t, chunkIDs, 2)

	units := []entities.Unit{
		{
			BankID:      "b1",
			ChunkID:     chunkIDs[0],
			FactText:    "Alice likes tea",
			FactType:    entities.FactTypeWorld,
			Embedding:   []float32{1, 0, 0},
			MentionedAt: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		},
	}
	unitIDs, err := rtx.InsertFactsBatch(ctx, units)
	require.NoError(t, err)
	require.Len(t, unitIDs, 1)

	require.NoError(t, rtx.Commit(ctx))

	hits, err := repo.SearchUnits(ctx, "b1", []float32{1, 0, 0}, "", nil, 10)
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, "Alice likes tea", hits[0].Unit.FactText)
	assert.InDelta(t, 1.0, hits[0].Similarity, 1e-9)

	text, err := repo.GetChunkText(ctx, chunkIDs[0])
	require.NoError(t, err)
	assert.Equal(t, "para one.", text)
}

func TestDocumentUpsertReplacesContent(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	rtx, err := repo.BeginRetain(ctx)
	require.NoError(t, err)
	require.NoError(t, rtx.EnsureBankExists(ctx, "b1", "Alice"))

	docID, err := rtx.HandleDocumentTracking(ctx, "b1", "d9", "v1 content", true)
	require.NoError(t, err)
	chunkIDs, err := rtx.StoreChunksBatch(ctx, "b1", docID, []string{"v1 content"})
	require.NoError(t, err)
	_, err = rtx.InsertFactsBatch(ctx, []entities.Unit{{
		BankID: "b1", ChunkID: chunkIDs[0], FactText: "v1 fact",
		FactType: entities.FactTypeWorld, Embedding: []float32{1, 0},
		MentionedAt: time.Now(),
	}})
	require.NoError(t, err)
	require.NoError(t, rtx.Commit(ctx))

	rtx2, err := repo.BeginRetain(ctx)
	require.NoError(t, err)
	_, err = rtx2.HandleDocumentTracking(ctx, "b1", "d9", "v2 content", true)
	require.NoError(t, err)
	require.NoError(t, rtx2.Commit(ctx))

	hits, err := repo.SearchUnits(ctx, "b1", []float32{1, 0}, "", nil, 10)
	require.NoError(t, err)
	assert.Empty(t, hits, "upserting a document should cascade-delete its prior facts")
}

func TestEntityLinksAndFindOrCreate(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	rtx, err := repo.BeginRetain(ctx)
	require.NoError(t, err)
	require.NoError(t, rtx.EnsureBankExists(ctx, "b1", "Alice"))

	id1, err := rtx.FindOrCreateEntity(ctx, "b1", "Bob")
	require.NoError(t, err)
	id2, err := rtx.FindOrCreateEntity(ctx, "b1", "Bob")
	require.NoError(t, err)
	assert.Equal(t, id1, id2, "FindOrCreateEntity must be idempotent per bank/name")

	unitIDs, err := rtx.InsertFactsBatch(ctx, []entities.Unit{{
		BankID: "b1", FactText: "Bob likes tea", FactType: entities.FactTypeWorld,
		Embedding: []float32{1}, MentionedAt: time.Now(),
	}})
	require.NoError(t, err)

	require.NoError(t, rtx.InsertEntityLinks(ctx, []entities.EntityLink{
		{UnitID: unitIDs[0], EntityID: id1, Confidence: 0.9},
	}))
	require.NoError(t, rtx.Commit(ctx))

	names, err := repo.GetEntityNamesForUnits(ctx, unitIDs)
	require.NoError(t, err)
	assert.Equal(t, []string{"Bob"}, names[unitIDs[0]])
}

func TestDeleteBankCascades(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	rtx, err := repo.BeginRetain(ctx)
	require.NoError(t, err)
	require.NoError(t, rtx.EnsureBankExists(ctx, "b1", "Alice"))
	_, err = rtx.InsertFactsBatch(ctx, []entities.Unit{{
		BankID: "b1", FactText: "fact", FactType: entities.FactTypeWorld,
		Embedding: []float32{1}, MentionedAt: time.Now(),
	}})
	require.NoError(t, err)
	require.NoError(t, rtx.Commit(ctx))

	require.NoError(t, repo.DeleteBank(ctx, "b1"))

	_, err = repo.GetBankProfile(ctx, "b1")
	assert.ErrorIs(t, err, ports.ErrBankNotFound)

	hits, err := repo.SearchUnits(ctx, "b1", []float32{1}, "", nil, 10)
	require.NoError(t, err)
	assert.Empty(t, hits)
}

func TestTemporalCandidatesInWindow(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	rtx, err := repo.BeginRetain(ctx)
	require.NoError(t, err)
	require.NoError(t, rtx.EnsureBankExists(ctx, "b1", "Alice"))

	base := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	_, err = rtx.InsertFactsBatch(ctx, []entities.Unit{
		{BankID: "b1", FactText: "near", FactType: entities.FactTypeWorld, Embedding: []float32{1}, MentionedAt: base.Add(time.Hour)},
		{BankID: "b1", FactText: "far", FactType: entities.FactTypeWorld, Embedding: []float32{1}, MentionedAt: base.Add(72 * time.Hour)},
	})
	require.NoError(t, err)

	candidates, err := rtx.TemporalCandidatesInWindow(ctx, "b1", base.Add(-24*time.Hour), base.Add(24*time.Hour))
	require.NoError(t, err)
	require.Len(t, candidates, 1)

	require.NoError(t, rtx.Rollback(ctx))
}

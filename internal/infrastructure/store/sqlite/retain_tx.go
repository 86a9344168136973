package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/ersonp/hindsight-core/internal/domain/entities"
	"github.com/ersonp/hindsight-core/internal/domain/ports"
	"github.com/ersonp/hindsight-core/internal/infrastructure/vectorindex"
)

// retainTx implements ports.RetainStore over one *sql.Tx. It also satisfies
// ports.EntityBank so it can be handed directly to an entity resolver
// constructed for the same transaction.
type retainTx struct {
	tx *sql.Tx
}

func (r *retainTx) EnsureBankExists(ctx context.Context, bankID, name string) error {
	_, err := r.tx.ExecContext(ctx, `
		INSERT INTO banks (id, name, description, background, created_at)
		VALUES (?, ?, '', '', ?)
		ON CONFLICT(id) DO NOTHING`,
		bankID, name, timeNow())
	if err != nil {
		return fmt.Errorf("ensuring bank exists: %w", err)
	}
	return nil
}

func (r *retainTx) HandleDocumentTracking(ctx context.Context, bankID, documentID, content string, isFirstBatch bool) (string, error) {
	if documentID == "" {
		documentID = generateUUID()
	}

	var exists bool
	err := r.tx.QueryRowContext(ctx, `SELECT 1 FROM documents WHERE id = ?`, documentID).Scan(new(int))
	if err == nil {
		exists = true
	} else if !errors.Is(err, sql.ErrNoRows) {
		return "", fmt.Errorf("checking document existence: %w", err)
	}

	now := timeNow()

	if !exists {
		_, err := r.tx.ExecContext(ctx, `
			INSERT INTO documents (id, bank_id, content, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?)`,
			documentID, bankID, content, now, now)
		if err != nil {
			return "", fmt.Errorf("creating document: %w", err)
		}
		return documentID, nil
	}

	if isFirstBatch {
		if _, err := r.tx.ExecContext(ctx, `
			DELETE FROM units WHERE chunk_id IN (SELECT id FROM chunks WHERE document_id = ?)`,
			documentID); err != nil {
			return "", fmt.Errorf("cascading fact delete: %w", err)
		}
		if _, err := r.tx.ExecContext(ctx, `DELETE FROM chunks WHERE document_id = ?`, documentID); err != nil {
			return "", fmt.Errorf("cascading chunk delete: %w", err)
		}
		if _, err := r.tx.ExecContext(ctx, `
			UPDATE documents SET content = ?, updated_at = ? WHERE id = ?`,
			content, now, documentID); err != nil {
			return "", fmt.Errorf("replacing document content: %w", err)
		}
		return documentID, nil
	}

	_, err = r.tx.ExecContext(ctx, `
		UPDATE documents SET content = content || ?, updated_at = ? WHERE id = ?`,
		content, now, documentID)
	if err != nil {
		return "", fmt.Errorf("appending document content: %w", err)
	}
	return documentID, nil
}

func (r *retainTx) StoreChunksBatch(ctx context.Context, bankID, documentID string, chunks []string) ([]string, error) {
	var start int
	if err := r.tx.QueryRowContext(ctx, `
		SELECT COALESCE(MAX(chunk_index) + 1, 0) FROM chunks WHERE document_id = ?`,
		documentID).Scan(&start); err != nil {
		return nil, fmt.Errorf("reading next chunk index: %w", err)
	}
	ids := make([]string, len(chunks))
	for i, text := range chunks {
		id := generateUUID()
		_, err := r.tx.ExecContext(ctx, `
			INSERT INTO chunks (id, bank_id, document_id, chunk_index, chunk_text)
			VALUES (?, ?, ?, ?, ?)`,
			id, bankID, documentID, start+i, text)
		if err != nil {
			return nil, fmt.Errorf("storing chunk %d: %w", i, err)
		}
		ids[i] = id
	}
	return ids, nil
}

func (r *retainTx) InsertFactsBatch(ctx context.Context, units []entities.Unit) ([]string, error) {
	ids := make([]string, len(units))
	dims := map[string]int{}
	for i, u := range units {
		id := u.ID
		if id == "" {
			id = generateUUID()
		}

		if _, known := dims[u.BankID]; !known {
			var stored []byte
			err := r.tx.QueryRowContext(ctx, `SELECT embedding FROM units WHERE bank_id = ? LIMIT 1`, u.BankID).Scan(&stored)
			if err != nil && !errors.Is(err, sql.ErrNoRows) {
				return nil, fmt.Errorf("fact %d: reading bank embedding dimension: %w", i, err)
			}
			dims[u.BankID] = len(u.Embedding)
			if err == nil {
				dims[u.BankID] = len(stored) / 4
			}
		}
		if len(u.Embedding) != dims[u.BankID] {
			return nil, fmt.Errorf("fact %d: embedding has %d dimensions, bank %s uses %d", i, len(u.Embedding), u.BankID, dims[u.BankID])
		}

		if u.MentionedAt.IsZero() {
			return nil, fmt.Errorf("fact %d: mentioned_at must be set", i)
		}
		u.MentionedAt = u.MentionedAt.UTC()
		u.OccurredStart = utcOrNil(u.OccurredStart)
		u.OccurredEnd = utcOrNil(u.OccurredEnd)
		if u.OccurredStart != nil && u.OccurredEnd != nil && u.OccurredStart.After(*u.OccurredEnd) {
			return nil, fmt.Errorf("fact %d: occurred_start is after occurred_end", i)
		}
		u.FactType = entities.NormalizeFactType(string(u.FactType))

		var chunkID any
		if u.ChunkID != "" {
			chunkID = u.ChunkID
		}

		_, err := r.tx.ExecContext(ctx, `
			INSERT INTO units (
				id, bank_id, chunk_id, fact_text, fact_type, embedding, mentioned_at,
				occurred_start, occurred_end, emotional_significance, reasoning_motivation,
				preferences_opinions, sensory_details, observations, confidence
			) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			id, u.BankID, chunkID, u.FactText, string(u.FactType),
			vectorindex.EncodeEmbedding(u.Embedding), u.MentionedAt,
			nullableTime(u.OccurredStart), nullableTime(u.OccurredEnd),
			u.EmotionalSignificance, u.ReasoningMotivation, u.PreferencesOpinions,
			u.SensoryDetails, u.Observations, nullableFloat(u.Confidence),
		)
		if err != nil {
			return nil, fmt.Errorf("inserting fact %d: %w", i, err)
		}
		ids[i] = id
	}
	return ids, nil
}

func (r *retainTx) FindOrCreateEntity(ctx context.Context, bankID, name string) (string, error) {
	normalized := entities.NormalizeName(name)
	if normalized == "" {
		return "", fmt.Errorf("empty entity name after normalization")
	}

	id := generateUUID()
	_, err := r.tx.ExecContext(ctx, `
		INSERT INTO entities (id, bank_id, name, normalized_name)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(bank_id, normalized_name) DO NOTHING`,
		id, bankID, name, normalized)
	if err != nil {
		return "", fmt.Errorf("inserting entity: %w", err)
	}

	err = r.tx.QueryRowContext(ctx, `
		SELECT id FROM entities WHERE bank_id = ? AND normalized_name = ?`,
		bankID, normalized).Scan(&id)
	if err != nil {
		return "", fmt.Errorf("resolving entity id: %w", err)
	}
	return id, nil
}

func (r *retainTx) InsertEntityLinks(ctx context.Context, links []entities.EntityLink) error {
	for _, l := range links {
		_, err := r.tx.ExecContext(ctx, `
			INSERT INTO entity_links (unit_id, entity_id, confidence)
			VALUES (?, ?, ?)
			ON CONFLICT(unit_id, entity_id) DO UPDATE SET confidence = excluded.confidence`,
			l.UnitID, l.EntityID, l.Confidence)
		if err != nil {
			return fmt.Errorf("inserting entity link: %w", err)
		}
	}
	return nil
}

func (r *retainTx) InsertFactLinks(ctx context.Context, links []entities.FactLink) error {
	for _, l := range links {
		_, err := r.tx.ExecContext(ctx, `
			INSERT INTO unit_links (src_unit_id, dst_unit_id, kind, weight, metadata)
			VALUES (?, ?, ?, ?, ?)
			ON CONFLICT(src_unit_id, dst_unit_id, kind) DO UPDATE SET weight = excluded.weight, metadata = excluded.metadata`,
			l.SrcUnitID, l.DstUnitID, string(l.Kind), l.Weight, l.Metadata)
		if err != nil {
			return fmt.Errorf("inserting fact link: %w", err)
		}
	}
	return nil
}

func (r *retainTx) TemporalCandidatesInWindow(ctx context.Context, bankID string, start, end time.Time) ([]ports.TemporalCandidate, error) {
	rows, err := r.tx.QueryContext(ctx, `
		SELECT id, mentioned_at FROM units
		WHERE bank_id = ? AND mentioned_at >= ? AND mentioned_at <= ?`,
		bankID, start, end)
	if err != nil {
		return nil, fmt.Errorf("querying temporal candidates: %w", err)
	}
	defer rows.Close()

	var out []ports.TemporalCandidate
	for rows.Next() {
		var c ports.TemporalCandidate
		if err := rows.Scan(&c.UnitID, &c.MentionedAt); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (r *retainTx) SemanticCandidates(ctx context.Context, bankID string) ([]ports.SemanticCandidate, error) {
	rows, err := r.tx.QueryContext(ctx, `SELECT id, embedding FROM units WHERE bank_id = ?`, bankID)
	if err != nil {
		return nil, fmt.Errorf("querying semantic candidates: %w", err)
	}
	defer rows.Close()

	var out []ports.SemanticCandidate
	for rows.Next() {
		var c ports.SemanticCandidate
		var blob []byte
		if err := rows.Scan(&c.UnitID, &blob); err != nil {
			return nil, err
		}
		c.Embedding = vectorindex.DecodeEmbedding(blob)
		out = append(out, c)
	}
	return out, rows.Err()
}

func (r *retainTx) Commit(ctx context.Context) error {
	return r.tx.Commit()
}

func (r *retainTx) Rollback(ctx context.Context) error {
	err := r.tx.Rollback()
	if errors.Is(err, sql.ErrTxDone) {
		return nil
	}
	return err
}

func utcOrNil(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	u := t.UTC()
	return &u
}

func nullableTime(t *time.Time) any {
	if t == nil {
		return nil
	}
	return *t
}

func nullableFloat(f *float64) any {
	if f == nil {
		return nil
	}
	return *f
}

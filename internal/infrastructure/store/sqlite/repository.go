// Package sqlite implements the store ports on top of a single SQLite
// database file: every relational table plus the embedded vector index
// (internal/infrastructure/vectorindex) share one connection and, during
// retain, one transaction, so a commit is atomic across facts, links,
// chunks, and entities with no two-phase commit against a separate vector
// service.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/ersonp/hindsight-core/internal/domain/entities"
	"github.com/ersonp/hindsight-core/internal/domain/ports"
	"github.com/ersonp/hindsight-core/internal/infrastructure/config"
	"github.com/ersonp/hindsight-core/internal/infrastructure/vectorindex"
	"github.com/google/uuid"
	_ "modernc.org/sqlite" // pure Go sqlite driver
)

func generateUUID() string {
	return uuid.New().String()
}

// timeNow returns the current time; overridable in tests.
var timeNow = time.Now

// Repository implements ports.Store using SQLite.
type Repository struct {
	db *sql.DB
}

// NewRepository opens the database file at cfg.Path (":memory:" is valid for
// tests) and configures it for single-writer, many-reader concurrent use.
func NewRepository(cfg config.StoreConfig) (*Repository, error) {
	if cfg.Path == "" {
		return nil, errors.New("sqlite path is required")
	}

	busyTimeout := cfg.BusyTimeout
	if busyTimeout == 0 {
		busyTimeout = 5000
	}

	// Pragmas go in the DSN so they apply to every pooled connection,
	// not just the one a bare Exec happens to land on.
	dsn := fmt.Sprintf("%s?_pragma=foreign_keys(1)&_pragma=busy_timeout(%d)", cfg.Path, busyTimeout)
	if cfg.Path != ":memory:" {
		dsn += "&_pragma=journal_mode(WAL)"
	}
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("opening sqlite database: %w", err)
	}

	if cfg.Path == ":memory:" {
		// A pure in-memory database is private to its connection; capping
		// the pool at one keeps every query on the same database instead
		// of silently fanning out to empty siblings.
		db.SetMaxOpenConns(1)
	} else if cfg.PoolSize > 0 {
		db.SetMaxOpenConns(cfg.PoolSize)
	}

	return &Repository{db: db}, nil
}

// Close closes the database connection.
func (r *Repository) Close() error {
	return r.db.Close()
}

// EnsureSchema creates the database schema if it doesn't exist.
func (r *Repository) EnsureSchema(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("creating schema: %w", err)
	}
	return nil
}

// BeginRetain opens a transaction-scoped RetainStore.
func (r *Repository) BeginRetain(ctx context.Context) (ports.RetainStore, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("beginning transaction: %w", err)
	}
	return &retainTx{tx: tx}, nil
}

// DeleteBank removes a bank and every row that references it.
func (r *Repository) DeleteBank(ctx context.Context, bankID string) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM banks WHERE id = ?`, bankID); err != nil {
		tx.Rollback()
		return fmt.Errorf("deleting bank: %w", err)
	}
	return tx.Commit()
}

// GetBankProfile loads the bank's persisted name/description/background.
func (r *Repository) GetBankProfile(ctx context.Context, bankID string) (*entities.Bank, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT id, name, description, background, created_at FROM banks WHERE id = ?`, bankID)

	var b entities.Bank
	if err := row.Scan(&b.ID, &b.Name, &b.Description, &b.Background, &b.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ports.ErrBankNotFound
		}
		return nil, fmt.Errorf("scanning bank: %w", err)
	}
	return &b, nil
}

// SearchUnits ranks stored units in bankID against queryEmbedding.
func (r *Repository) SearchUnits(ctx context.Context, bankID string, queryEmbedding []float32, factType string, window *ports.TemporalConstraint, limit int) ([]ports.RecallHit, error) {
	query := `
		SELECT id, bank_id, chunk_id, fact_text, fact_type, embedding, mentioned_at,
		       occurred_start, occurred_end, emotional_significance, reasoning_motivation,
		       preferences_opinions, sensory_details, observations, confidence
		FROM units WHERE bank_id = ?`
	args := []any{bankID}

	if factType != "" {
		query += " AND fact_type = ?"
		args = append(args, factType)
	}
	if window != nil && !window.Start.IsZero() {
		query += " AND mentioned_at >= ?"
		args = append(args, window.Start)
	}
	if window != nil && !window.End.IsZero() {
		query += " AND mentioned_at <= ?"
		args = append(args, window.End)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying units: %w", err)
	}
	defer rows.Close()

	var units []entities.Unit
	for rows.Next() {
		u, err := scanUnit(rows)
		if err != nil {
			return nil, err
		}
		units = append(units, u)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	candidates := make([]vectorindex.Candidate, len(units))
	byID := make(map[string]entities.Unit, len(units))
	for i, u := range units {
		candidates[i] = vectorindex.Candidate{ID: u.ID, Embedding: u.Embedding}
		byID[u.ID] = u
	}

	scored := vectorindex.TopK(queryEmbedding, candidates, limit)
	hits := make([]ports.RecallHit, len(scored))
	for i, s := range scored {
		hits[i] = ports.RecallHit{Unit: byID[s.ID], Similarity: s.Similarity}
	}
	return hits, nil
}

// GetEntityNamesForUnits returns, for each requested unit id, linked entity
// names.
func (r *Repository) GetEntityNamesForUnits(ctx context.Context, unitIDs []string) (map[string][]string, error) {
	result := make(map[string][]string, len(unitIDs))
	if len(unitIDs) == 0 {
		return result, nil
	}

	placeholders, args := inClause(unitIDs)
	query := fmt.Sprintf(`
		SELECT entity_links.unit_id, entities.name
		FROM entity_links
		JOIN entities ON entities.id = entity_links.entity_id
		WHERE entity_links.unit_id IN (%s)`, placeholders)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying entity names: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var unitID, name string
		if err := rows.Scan(&unitID, &name); err != nil {
			return nil, err
		}
		result[unitID] = append(result[unitID], name)
	}
	return result, rows.Err()
}

// GetChunkText returns the source chunk text a unit was extracted from.
func (r *Repository) GetChunkText(ctx context.Context, chunkID string) (string, error) {
	var text string
	err := r.db.QueryRowContext(ctx, `SELECT chunk_text FROM chunks WHERE id = ?`, chunkID).Scan(&text)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	return text, err
}

func inClause(ids []string) (string, []any) {
	placeholders := make([]byte, 0, len(ids)*2)
	args := make([]any, len(ids))
	for i, id := range ids {
		if i > 0 {
			placeholders = append(placeholders, ',')
		}
		placeholders = append(placeholders, '?')
		args[i] = id
	}
	return string(placeholders), args
}

func scanUnit(rows *sql.Rows) (entities.Unit, error) {
	var u entities.Unit
	var chunkID sql.NullString
	var factType string
	var embedding []byte
	var occurredStart, occurredEnd sql.NullTime
	var confidence sql.NullFloat64

	err := rows.Scan(&u.ID, &u.BankID, &chunkID, &u.FactText, &factType, &embedding, &u.MentionedAt,
		&occurredStart, &occurredEnd, &u.EmotionalSignificance, &u.ReasoningMotivation,
		&u.PreferencesOpinions, &u.SensoryDetails, &u.Observations, &confidence)
	if err != nil {
		return u, fmt.Errorf("scanning unit: %w", err)
	}

	u.ChunkID = chunkID.String
	u.FactType = entities.FactType(factType)
	u.Embedding = vectorindex.DecodeEmbedding(embedding)
	if occurredStart.Valid {
		t := occurredStart.Time
		u.OccurredStart = &t
	}
	if occurredEnd.Valid {
		t := occurredEnd.Time
		u.OccurredEnd = &t
	}
	if confidence.Valid {
		c := confidence.Float64
		u.Confidence = &c
	}
	return u, nil
}

package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/predictos/predictbot/internal/domain"
)

// DecisionStore implements domain.DecisionStore using PostgreSQL. Rows are
// append-only; the archiver drains aged rows to blob storage.
type DecisionStore struct {
	pool *pgxpool.Pool
}

// NewDecisionStore creates a DecisionStore backed by the given connection pool.
func NewDecisionStore(pool *pgxpool.Pool) *DecisionStore {
	return &DecisionStore{pool: pool}
}

// Append records a served decision. The detail map is stored as JSONB.
func (s *DecisionStore) Append(ctx context.Context, kind string, detail map[string]any) error {
	detailJSON, err := json.Marshal(detail)
	if err != nil {
		return fmt.Errorf("postgres: marshal decision detail: %w", err)
	}

	const query = `INSERT INTO decision_log (kind, detail) VALUES ($1, $2)`
	if _, err := s.pool.Exec(ctx, query, kind, detailJSON); err != nil {
		return fmt.Errorf("postgres: append decision %s: %w", kind, err)
	}
	return nil
}

// ListBefore returns up to limit decisions created strictly before the cutoff,
// oldest first. A limit of zero or less means no limit.
func (s *DecisionStore) ListBefore(ctx context.Context, before time.Time, limit int) ([]domain.DecisionRecord, error) {
	query := `SELECT id, kind, detail, created_at FROM decision_log
		WHERE created_at < $1 ORDER BY created_at ASC`
	args := []any{before}
	if limit > 0 {
		query += " LIMIT $2"
		args = append(args, limit)
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("postgres: list decisions: %w", err)
	}
	defer rows.Close()

	var records []domain.DecisionRecord
	for rows.Next() {
		var r domain.DecisionRecord
		var detailJSON []byte

		if err := rows.Scan(&r.ID, &r.Kind, &detailJSON, &r.CreatedAt); err != nil {
			return nil, fmt.Errorf("postgres: scan decision: %w", err)
		}
		if detailJSON != nil {
			if err := json.Unmarshal(detailJSON, &r.Detail); err != nil {
				return nil, fmt.Errorf("postgres: unmarshal decision detail: %w", err)
			}
		}
		records = append(records, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: list decisions rows: %w", err)
	}
	return records, nil
}

// DeleteBefore removes decisions created strictly before the cutoff and
// returns the number deleted.
func (s *DecisionStore) DeleteBefore(ctx context.Context, before time.Time) (int64, error) {
	const query = `DELETE FROM decision_log WHERE created_at < $1`
	tag, err := s.pool.Exec(ctx, query, before)
	if err != nil {
		return 0, fmt.Errorf("postgres: delete decisions: %w", err)
	}
	return tag.RowsAffected(), nil
}

// Compile-time interface check.
var _ domain.DecisionStore = (*DecisionStore)(nil)

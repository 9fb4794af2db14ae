package risk

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/mbd888/riskops/internal/pagination"
)

// PostgresStore persists assessments in the risk_assessments table
// (see migrations/).
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore creates a PostgreSQL-backed assessment store.
func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Record(ctx context.Context, a *Assessment) error {
	factorsJSON, err := json.Marshal(a.Factors)
	if err != nil {
		return fmt.Errorf("failed to marshal factors: %w", err)
	}
	defaultedJSON, err := json.Marshal(a.Defaulted)
	if err != nil {
		return fmt.Errorf("failed to marshal defaulted signals: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO risk_assessments (id, kind, subject, score, rating, factors, defaulted, evaluated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`,
		a.ID,
		string(a.Kind),
		strings.ToUpper(a.Subject),
		a.Score,
		string(a.Rating),
		factorsJSON,
		defaultedJSON,
		a.EvaluatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to record risk assessment: %w", err)
	}
	return nil
}

func (s *PostgresStore) ListBySubject(ctx context.Context, subject string, limit int, before *pagination.Cursor) ([]*Assessment, error) {
	query := `
		SELECT id, kind, subject, score, rating, factors, defaulted, evaluated_at
		FROM risk_assessments
		WHERE subject = $1`
	args := []any{strings.ToUpper(subject)}
	if before != nil {
		query += ` AND (evaluated_at, id) < ($2, $3)`
		args = append(args, before.At, before.ID)
	}
	query += fmt.Sprintf(` ORDER BY evaluated_at DESC, id DESC LIMIT $%d`, len(args)+1)
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list risk assessments: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var result []*Assessment
	for rows.Next() {
		var a Assessment
		var factorsJSON, defaultedJSON []byte
		if err := rows.Scan(&a.ID, &a.Kind, &a.Subject, &a.Score, &a.Rating, &factorsJSON, &defaultedJSON, &a.EvaluatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan risk assessment: %w", err)
		}
		_ = json.Unmarshal(factorsJSON, &a.Factors)
		_ = json.Unmarshal(defaultedJSON, &a.Defaulted)
		result = append(result, &a)
	}
	return result, rows.Err()
}

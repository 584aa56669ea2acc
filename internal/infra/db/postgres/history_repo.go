package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	domain "github.com/bryanwahyu/phishguard/internal/domain/assessment"
)

type HistoryRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

func NewHistoryRepository(db *sql.DB, logger *slog.Logger) *HistoryRepository {
	if logger == nil {
		logger = slog.Default()
	}
	return &HistoryRepository{db: db, logger: logger}
}

// Prepend inserts one entry; ordering is by created_at on read
func (r *HistoryRepository) Prepend(ctx context.Context, e *domain.HistoryEntry) error {
	const q = `
INSERT INTO phishing_history
  (id, url, used_ai, model, verdict, risk_score, result_json, ai_error, created_at)
VALUES ($1,$2,$3,$4,$5,$6,$7::jsonb,$8,$9);
`
	result, err := json.Marshal(e.Result)
	if err != nil {
		return fmt.Errorf("encoding result: %w", err)
	}
	created := e.Timestamp
	if created.IsZero() {
		created = time.Now().UTC()
	}

	_, err = r.db.ExecContext(ctx, q,
		e.ID, e.URL, e.UsedAI, nullIfNil(e.Model),
		string(e.Result.Verdict), e.Result.RiskScore, string(result),
		nullIfBlank(e.AIError), created,
	)
	return err
}

// List returns every entry newest first
func (r *HistoryRepository) List(ctx context.Context) ([]*domain.HistoryEntry, error) {
	const q = `
SELECT id, url, used_ai, model, result_json, ai_error, created_at
FROM phishing_history
ORDER BY created_at DESC, seq DESC;
`
	rows, err := r.db.QueryContext(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []*domain.HistoryEntry{}
	for rows.Next() {
		var (
			e       domain.HistoryEntry
			model   sql.NullString
			aiErr   sql.NullString
			result  []byte
			created time.Time
		)
		if err := rows.Scan(&e.ID, &e.URL, &e.UsedAI, &model, &result, &aiErr, &created); err != nil {
			return nil, err
		}
		if err := json.Unmarshal(result, &e.Result); err != nil {
			r.logger.Warn("skipping history row with malformed result", "id", e.ID, "error", err)
			continue
		}
		if model.Valid {
			m := model.String
			e.Model = &m
		}
		e.AIError = aiErr.String
		e.Timestamp = created.UTC()
		out = append(out, &e)
	}
	return out, rows.Err()
}

// Clear deletes all entries
func (r *HistoryRepository) Clear(ctx context.Context) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM phishing_history;`)
	return err
}

var _ domain.HistoryRepository = (*HistoryRepository)(nil)

package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/lib/pq"

	domain "github.com/soc2kit/compliance-copilot/internal/domain/compliance"
)

type AnalysisRepository struct {
	db *sql.DB
}

func NewAnalysisRepository(db *sql.DB) *AnalysisRepository {
	return &AnalysisRepository{db: db}
}

// Save inserts one immutable analysis snapshot.
func (r *AnalysisRepository) Save(ctx context.Context, rec *domain.AnalysisRecord) error {
	const q = `
INSERT INTO compliance_analyses
  (id, user_id, file_name, document_text, covered, missing, reasoning, generated_policies, created_at)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9);
`
	reasoning, err := json.Marshal(rec.Reasoning)
	if err != nil {
		return fmt.Errorf("marshal reasoning: %w", err)
	}
	policies, err := marshalPolicies(rec.GeneratedPolicies)
	if err != nil {
		return err
	}
	createdAt := rec.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}

	_, err = r.db.ExecContext(ctx, q,
		rec.ID,
		rec.UserID,
		rec.FileName,
		rec.DocumentText,
		pq.Array(controlsToStrings(rec.Covered)),
		pq.Array(controlsToStrings(rec.Missing)),
		reasoning,
		policies,
		createdAt,
	)
	return err
}

// List returns all records for a user ordered by creation time descending.
func (r *AnalysisRepository) List(ctx context.Context, userID string) ([]*domain.AnalysisRecord, error) {
	const q = `
SELECT id, user_id, file_name, document_text, covered, missing, reasoning, generated_policies, created_at
FROM compliance_analyses
WHERE user_id=$1
ORDER BY created_at DESC, id DESC;
`
	rows, err := r.db.QueryContext(ctx, q, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*domain.AnalysisRecord
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

// Get returns one record owned by the user.
func (r *AnalysisRepository) Get(ctx context.Context, userID, id string) (*domain.AnalysisRecord, error) {
	const q = `
SELECT id, user_id, file_name, document_text, covered, missing, reasoning, generated_policies, created_at
FROM compliance_analyses
WHERE user_id=$1 AND id=$2;
`
	rec, err := scanRecord(r.db.QueryRowContext(ctx, q, userID, id))
	if err == sql.ErrNoRows {
		return nil, domain.ErrRecordNotFound
	}
	if err != nil {
		return nil, err
	}
	return rec, nil
}

// Delete removes one record. A repeated delete of the same id reports
// ErrRecordNotFound; callers treat that as harmless.
func (r *AnalysisRepository) Delete(ctx context.Context, userID, id string) error {
	const q = `DELETE FROM compliance_analyses WHERE user_id=$1 AND id=$2;`
	res, err := r.db.ExecContext(ctx, q, userID, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return domain.ErrRecordNotFound
	}
	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRecord(row scanner) (*domain.AnalysisRecord, error) {
	var (
		rec       domain.AnalysisRecord
		covered   pq.StringArray
		missing   pq.StringArray
		reasoning []byte
		policies  []byte
		created   time.Time
	)
	if err := row.Scan(&rec.ID, &rec.UserID, &rec.FileName, &rec.DocumentText,
		&covered, &missing, &reasoning, &policies, &created); err != nil {
		return nil, err
	}
	rec.Covered = stringsToControls(covered)
	rec.Missing = stringsToControls(missing)
	if len(reasoning) > 0 {
		if err := json.Unmarshal(reasoning, &rec.Reasoning); err != nil {
			return nil, fmt.Errorf("unmarshal reasoning: %w", err)
		}
	}
	if len(policies) > 0 {
		if err := json.Unmarshal(policies, &rec.GeneratedPolicies); err != nil {
			return nil, fmt.Errorf("unmarshal generated policies: %w", err)
		}
	}
	rec.CreatedAt = created
	return &rec, nil
}

func marshalPolicies(ps []domain.GeneratedPolicy) ([]byte, error) {
	if ps == nil {
		ps = []domain.GeneratedPolicy{}
	}
	b, err := json.Marshal(ps)
	if err != nil {
		return nil, fmt.Errorf("marshal generated policies: %w", err)
	}
	return b, nil
}

func controlsToStrings(cs []domain.Control) []string {
	out := make([]string, len(cs))
	for i, c := range cs {
		out[i] = string(c)
	}
	return out
}

func stringsToControls(ss []string) []domain.Control {
	out := make([]domain.Control, len(ss))
	for i, s := range ss {
		out[i] = domain.Control(s)
	}
	return out
}

package mysql

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	domain "github.com/soc2kit/compliance-copilot/internal/domain/compliance"
)

// AnalysisRepository is the MySQL counterpart of the postgres
// repository; covered/missing are stored as JSON arrays since MySQL has
// no native array column.
type AnalysisRepository struct {
	db *sql.DB
}

func NewAnalysisRepository(db *sql.DB) *AnalysisRepository {
	return &AnalysisRepository{db: db}
}

func (r *AnalysisRepository) Save(ctx context.Context, rec *domain.AnalysisRecord) error {
	const q = `
INSERT INTO compliance_analyses
  (id, user_id, file_name, document_text, covered, missing, reasoning, generated_policies, created_at)
VALUES (?,?,?,?,?,?,?,?,?);
`
	covered, err := marshalControls(rec.Covered)
	if err != nil {
		return err
	}
	missing, err := marshalControls(rec.Missing)
	if err != nil {
		return err
	}
	reasoning, err := json.Marshal(rec.Reasoning)
	if err != nil {
		return fmt.Errorf("marshal reasoning: %w", err)
	}
	policies := rec.GeneratedPolicies
	if policies == nil {
		policies = []domain.GeneratedPolicy{}
	}
	policiesJSON, err := json.Marshal(policies)
	if err != nil {
		return fmt.Errorf("marshal generated policies: %w", err)
	}
	createdAt := rec.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}

	_, err = r.db.ExecContext(ctx, q,
		rec.ID, rec.UserID, rec.FileName, rec.DocumentText,
		covered, missing, reasoning, policiesJSON, createdAt)
	return err
}

func (r *AnalysisRepository) List(ctx context.Context, userID string) ([]*domain.AnalysisRecord, error) {
	const q = `
SELECT id, user_id, file_name, document_text, covered, missing, reasoning, generated_policies, created_at
FROM compliance_analyses
WHERE user_id=?
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

func (r *AnalysisRepository) Get(ctx context.Context, userID, id string) (*domain.AnalysisRecord, error) {
	const q = `
SELECT id, user_id, file_name, document_text, covered, missing, reasoning, generated_policies, created_at
FROM compliance_analyses
WHERE user_id=? AND id=?;
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

func (r *AnalysisRepository) Delete(ctx context.Context, userID, id string) error {
	const q = `DELETE FROM compliance_analyses WHERE user_id=? AND id=?;`
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
		covered   []byte
		missing   []byte
		reasoning []byte
		policies  []byte
		created   time.Time
	)
	if err := row.Scan(&rec.ID, &rec.UserID, &rec.FileName, &rec.DocumentText,
		&covered, &missing, &reasoning, &policies, &created); err != nil {
		return nil, err
	}
	var err error
	if rec.Covered, err = unmarshalControls(covered); err != nil {
		return nil, err
	}
	if rec.Missing, err = unmarshalControls(missing); err != nil {
		return nil, err
	}
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

func marshalControls(cs []domain.Control) ([]byte, error) {
	if cs == nil {
		cs = []domain.Control{}
	}
	b, err := json.Marshal(cs)
	if err != nil {
		return nil, fmt.Errorf("marshal controls: %w", err)
	}
	return b, nil
}

func unmarshalControls(b []byte) ([]domain.Control, error) {
	if len(b) == 0 {
		return nil, nil
	}
	var out []domain.Control
	if err := json.Unmarshal(b, &out); err != nil {
		return nil, fmt.Errorf("unmarshal controls: %w", err)
	}
	return out, nil
}

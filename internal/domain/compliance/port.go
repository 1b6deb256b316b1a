package compliance

import "context"

// Repository port for persisting and querying analysis snapshots
type Repository interface {
	Save(ctx context.Context, rec *AnalysisRecord) error
	List(ctx context.Context, userID string) ([]*AnalysisRecord, error)
	Get(ctx context.Context, userID, id string) (*AnalysisRecord, error)
	Delete(ctx context.Context, userID, id string) error
}

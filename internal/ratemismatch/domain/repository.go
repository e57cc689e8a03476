package domain

import "context"

//go:generate mockgen -source=repository.go -destination=../mocks/mock_repository.go -package=mocks

// Repository reads booking and rate data from the reporting database.
type Repository interface {
	FetchMismatches(ctx context.Context, filter Filter) ([]Record, error)
}

// SnapshotStore keeps the last query result on local disk.
type SnapshotStore interface {
	Load(ctx context.Context) ([]Record, bool, error)
	Save(ctx context.Context, records []Record) error
	Delete(ctx context.Context) error
}

type RunRepository interface {
	Create(ctx context.Context, run *AnalysisRun) error
	ListLatest(ctx context.Context, limit int) ([]AnalysisRun, error)
	Latest(ctx context.Context) (*AnalysisRun, error)
}

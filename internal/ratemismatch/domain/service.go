package domain

import "context"

//go:generate mockgen -source=service.go -destination=../mocks/mock_service.go -package=mocks

type Service interface {
	Analyze(ctx context.Context, req AnalyzeRequest) (*Report, error)
	ListRuns(ctx context.Context) ([]AnalysisRun, error)
	LatestReport(ctx context.Context) (*Report, error)
}

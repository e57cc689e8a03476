package domain

import "errors"

var (
	ErrSourceUnavailable = errors.New("source_unavailable")
	ErrQueryFailed       = errors.New("query_failed")
	ErrSnapshotCorrupt   = errors.New("snapshot_corrupt")
	ErrNoRuns            = errors.New("no_analysis_runs")
	ErrDuplicateRun      = errors.New("duplicate_analysis_run")
)

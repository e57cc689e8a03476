package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/smallbiznis/rateboard/internal/ratemismatch/domain"
	"github.com/smallbiznis/rateboard/pkg/db"
	"gorm.io/gorm"
)

type runRepo struct {
	db *gorm.DB
}

func NewRunRepository(conn *gorm.DB) domain.RunRepository {
	return &runRepo{db: conn}
}

func (r *runRepo) Create(ctx context.Context, run *domain.AnalysisRun) error {
	if err := r.db.WithContext(ctx).Create(run).Error; err != nil {
		if db.IsDuplicateKeyErr(err) {
			return fmt.Errorf("%w: %s", domain.ErrDuplicateRun, run.ID)
		}
		return err
	}
	return nil
}

func (r *runRepo) ListLatest(ctx context.Context, limit int) ([]domain.AnalysisRun, error) {
	var runs []domain.AnalysisRun
	err := r.db.WithContext(ctx).
		Order("finished_at DESC").
		Order("id DESC").
		Limit(limit).
		Find(&runs).Error
	return runs, err
}

func (r *runRepo) Latest(ctx context.Context) (*domain.AnalysisRun, error) {
	var run domain.AnalysisRun
	err := r.db.WithContext(ctx).Order("finished_at DESC").Order("id DESC").First(&run).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrNoRuns
	}
	if err != nil {
		return nil, err
	}
	return &run, nil
}

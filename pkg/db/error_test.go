package db

import (
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"gorm.io/gorm"
)

func TestIsConnectionError(t *testing.T) {
	assert.True(t, IsConnectionError(&pgconn.PgError{Code: "08006"}))
	assert.True(t, IsConnectionError(fmt.Errorf("query: %w", &pgconn.PgError{Code: "57P01"})))
	assert.True(t, IsConnectionError(errors.New("dial tcp 10.0.0.1:5432: connect: connection refused")))
	assert.False(t, IsConnectionError(&pgconn.PgError{Code: "42P01"}))
	assert.False(t, IsConnectionError(nil))
}

func TestIsDuplicateKeyErr(t *testing.T) {
	assert.True(t, IsDuplicateKeyErr(gorm.ErrDuplicatedKey))
	assert.True(t, IsDuplicateKeyErr(&pgconn.PgError{Code: "23505"}))
	assert.True(t, IsDuplicateKeyErr(errors.New("UNIQUE constraint failed: analysis_runs.id")))
	assert.False(t, IsDuplicateKeyErr(errors.New("boom")))
}

func TestDialectRejectsUnknownType(t *testing.T) {
	_, err := Dialect(Config{Type: "oracle"})
	assert.Error(t, err)

	d, err := Dialect(Config{Type: "postgres", Host: "h", Port: "5432", User: "u", Name: "n", SSLMode: "disable"})
	assert.NoError(t, err)
	assert.Equal(t, "postgres", d.Name())
}

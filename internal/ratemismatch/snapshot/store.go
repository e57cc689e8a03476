package snapshot

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/smallbiznis/rateboard/internal/config"
	"github.com/smallbiznis/rateboard/internal/ratemismatch/domain"
	"go.uber.org/zap"
)

// Store persists query results as a CSV file. A present file is reused as-is;
// it is only replaced after an explicit Delete.
type Store struct {
	path string
	log  *zap.Logger
}

func New(cfg config.Config, log *zap.Logger) domain.SnapshotStore {
	return NewStore(cfg.SnapshotPath, log)
}

func NewStore(path string, log *zap.Logger) *Store {
	return &Store{path: path, log: log.Named("ratemismatch.snapshot")}
}

func (s *Store) Path() string { return s.path }

func (s *Store) Load(ctx context.Context) ([]domain.Record, bool, error) {
	f, err := os.Open(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	defer f.Close()

	records, err := read(f)
	if err != nil {
		return nil, false, fmt.Errorf("%w: %s: %v", domain.ErrSnapshotCorrupt, s.path, err)
	}
	s.log.Info("snapshot reused", zap.String("path", s.path), zap.Int("rows", len(records)))
	return records, true, nil
}

// Save writes to a temporary file in the same directory and renames it into
// place so readers never see a partial snapshot.
func (s *Store) Save(ctx context.Context, records []domain.Record) error {
	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(s.path)+".*.tmp")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	if err := write(tmp, records); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Rename(tmp.Name(), s.path); err != nil {
		return err
	}
	s.log.Info("snapshot written", zap.String("path", s.path), zap.Int("rows", len(records)))
	return nil
}

func (s *Store) Delete(ctx context.Context) error {
	err := os.Remove(s.path)
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	if err == nil {
		s.log.Info("snapshot deleted", zap.String("path", s.path))
	}
	return nil
}

func write(w io.Writer, records []domain.Record) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(Header()); err != nil {
		return err
	}
	for _, rec := range records {
		if err := cw.Write(encode(rec)); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func read(r io.Reader) ([]domain.Record, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	positions := make(map[string]int, len(header))
	for i, name := range header {
		positions[strings.ToLower(strings.TrimSpace(name))] = i
	}
	if _, ok := positions["booking_reference"]; !ok {
		return nil, errors.New("missing booking_reference column")
	}

	records := []domain.Record{}
	line := 1
	for {
		row, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		line++
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		rec, err := decode(positions, row)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		records = append(records, rec)
	}
	return records, nil
}

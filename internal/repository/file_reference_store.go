package repository

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"

	"InvestCore/internal/domain/models"
)

// FileReferenceStore reads the immutable per-instrument reference dataset
// snapshot ({instrument}_ref.csv) produced at initial training time.
type FileReferenceStore struct {
	dir string
}

func NewFileReferenceStore(dataDir string) *FileReferenceStore {
	return &FileReferenceStore{dir: dataDir}
}

func (s *FileReferenceStore) Load(_ context.Context, instrument string) ([]models.ReferenceRow, error) {
	path := filepath.Join(s.dir, instrument+"_ref.csv")
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open reference dataset: %w", err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	out := make([]models.ReferenceRow, 0, 256)
	for {
		row, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read reference dataset: %w", err)
		}
		ref, ok := parseReferenceRow(row)
		if !ok {
			continue
		}
		out = append(out, ref)
	}
	return out, nil
}

func parseReferenceRow(row []string) (models.ReferenceRow, bool) {
	if len(row) != models.FeatureCount+2 || row[0] == models.FeatureNames[0] {
		return models.ReferenceRow{}, false
	}

	ref := models.ReferenceRow{Features: make([]float64, models.FeatureCount)}
	for i := 0; i < models.FeatureCount; i++ {
		v, err := strconv.ParseFloat(row[i], 64)
		if err != nil {
			return models.ReferenceRow{}, false
		}
		ref.Features[i] = v
	}

	var err error
	if ref.TargetVolatility, err = strconv.ParseFloat(row[models.FeatureCount], 64); err != nil {
		return models.ReferenceRow{}, false
	}
	if ref.TargetDirection, err = strconv.ParseFloat(row[models.FeatureCount+1], 64); err != nil {
		return models.ReferenceRow{}, false
	}
	return ref, true
}

// WriteReferenceCSV writes a reference snapshot in the store's format. Used
// by the bootstrap tooling and tests.
func WriteReferenceCSV(dataDir, instrument string, rows []models.ReferenceRow) error {
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return fmt.Errorf("mkdir %s: %w", dataDir, err)
	}
	f, err := os.Create(filepath.Join(dataDir, instrument+"_ref.csv"))
	if err != nil {
		return fmt.Errorf("create reference dataset: %w", err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	header := append([]string{}, models.FeatureNames[:]...)
	header = append(header, "target_vol", "target_dir")
	if err := w.Write(header); err != nil {
		return fmt.Errorf("write header: %w", err)
	}

	rec := make([]string, 0, models.FeatureCount+2)
	for _, row := range rows {
		rec = rec[:0]
		for _, v := range row.Features {
			rec = append(rec, strconv.FormatFloat(v, 'g', -1, 64))
		}
		rec = append(rec,
			strconv.FormatFloat(row.TargetVolatility, 'g', -1, 64),
			strconv.FormatFloat(row.TargetDirection, 'g', -1, 64),
		)
		if err := w.Write(rec); err != nil {
			return fmt.Errorf("write row: %w", err)
		}
	}
	w.Flush()
	return w.Error()
}

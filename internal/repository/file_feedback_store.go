package repository

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"time"

	"InvestCore/internal/domain/models"
	applogger "InvestCore/pkg/logger"
)

const feedbackFileName = "feedback_log.csv"

// FileFeedbackStore is the file-backed append-only feedback log. A single
// mutex serializes writers; the per-instrument counter is advanced only
// after the row is flushed and synced, so Count never runs ahead of or
// behind durable state.
type FileFeedbackStore struct {
	mu   sync.Mutex // serializes appends and full-log reads
	path string
	file *os.File

	countMu sync.RWMutex
	counts  map[string]int64

	logger *applogger.Logger
}

// NewFileFeedbackStore opens (or creates) the log under dataDir and rebuilds
// per-instrument counters by scanning it, which also makes a restart after a
// crash converge on the durably written rows.
func NewFileFeedbackStore(dataDir string, logger *applogger.Logger) (*FileFeedbackStore, error) {
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return nil, fmt.Errorf("mkdir %s: %w", dataDir, err)
	}
	path := filepath.Join(dataDir, feedbackFileName)

	file, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_RDWR, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open feedback log: %w", err)
	}

	s := &FileFeedbackStore{
		path:   path,
		file:   file,
		counts: make(map[string]int64),
		logger: logger.With("feedback_store"),
	}

	if err := s.recount(); err != nil {
		_ = file.Close()
		return nil, err
	}

	info, _ := file.Stat()
	if info != nil && info.Size() == 0 {
		if err := s.writeHeader(); err != nil {
			_ = file.Close()
			return nil, err
		}
	}

	return s, nil
}

// Append durably writes one record, advances the counter and returns the new
// count. The counter moves under the append lock, so each writer gets the
// count that includes exactly its own row.
func (s *FileFeedbackStore) Append(ctx context.Context, rec models.FeedbackRecord) (int64, error) {
	if len(rec.Features) != models.FeatureCount {
		return 0, fmt.Errorf("%w: record has %d features", models.ErrInvalidInput, len(rec.Features))
	}

	row := make([]string, 0, models.FeatureCount+4)
	row = append(row, rec.Instrument)
	for _, f := range rec.Features {
		row = append(row, strconv.FormatFloat(f, 'g', -1, 64))
	}
	row = append(row,
		strconv.FormatFloat(rec.TargetVolatility, 'g', -1, 64),
		strconv.FormatFloat(rec.TargetDirection, 'g', -1, 64),
		rec.Timestamp.UTC().Format(time.RFC3339Nano),
	)

	s.mu.Lock()
	defer s.mu.Unlock()

	w := csv.NewWriter(s.file)
	if err := w.Write(row); err != nil {
		return 0, fmt.Errorf("%w: %v", models.ErrStoreWrite, err)
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return 0, fmt.Errorf("%w: %v", models.ErrStoreWrite, err)
	}
	if err := s.file.Sync(); err != nil {
		return 0, fmt.Errorf("%w: sync: %v", models.ErrStoreWrite, err)
	}

	s.countMu.Lock()
	s.counts[rec.Instrument]++
	n := s.counts[rec.Instrument]
	s.countMu.Unlock()

	return n, nil
}

// Count returns the number of durably appended records for the instrument.
func (s *FileFeedbackStore) Count(_ context.Context, instrument string) (int64, error) {
	s.countMu.RLock()
	defer s.countMu.RUnlock()
	return s.counts[instrument], nil
}

// All returns the full feedback log for the instrument.
func (s *FileFeedbackStore) All(_ context.Context, instrument string) ([]models.FeedbackRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	f, err := os.Open(s.path)
	if err != nil {
		return nil, fmt.Errorf("open feedback log: %w", err)
	}
	defer f.Close()

	out := make([]models.FeedbackRecord, 0, 64)
	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	for {
		row, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read feedback log: %w", err)
		}
		rec, ok := parseFeedbackRow(row)
		if !ok || rec.Instrument != instrument {
			continue
		}
		out = append(out, rec)
	}
	return out, nil
}

// Health checks that the log file is still reachable.
func (s *FileFeedbackStore) Health(context.Context) error {
	_, err := os.Stat(s.path)
	return err
}

func (s *FileFeedbackStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.file.Close()
}

func (s *FileFeedbackStore) writeHeader() error {
	header := append([]string{"instrument"}, models.FeatureNames[:]...)
	header = append(header, "target_vol", "target_dir", "timestamp")

	w := csv.NewWriter(s.file)
	if err := w.Write(header); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	w.Flush()
	return w.Error()
}

func (s *FileFeedbackStore) recount() error {
	f, err := os.Open(s.path)
	if err != nil {
		return fmt.Errorf("open for recount: %w", err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	n := 0
	for {
		row, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			// a torn trailing line from a crash ends the scan; rows before it
			// were synced and stay counted
			s.logger.Warn("feedback log scan stopped", applogger.Error(err))
			break
		}
		if rec, ok := parseFeedbackRow(row); ok {
			s.counts[rec.Instrument]++
			n++
		}
	}
	s.logger.Info("feedback log scanned", applogger.Int("rows", n))
	return nil
}

// parseFeedbackRow decodes one CSV row, returning ok=false for the header or
// malformed rows.
func parseFeedbackRow(row []string) (models.FeedbackRecord, bool) {
	if len(row) != models.FeatureCount+4 || row[0] == "instrument" {
		return models.FeedbackRecord{}, false
	}

	rec := models.FeedbackRecord{
		Instrument: row[0],
		Features:   make([]float64, models.FeatureCount),
	}
	for i := 0; i < models.FeatureCount; i++ {
		v, err := strconv.ParseFloat(row[1+i], 64)
		if err != nil {
			return models.FeedbackRecord{}, false
		}
		rec.Features[i] = v
	}

	var err error
	if rec.TargetVolatility, err = strconv.ParseFloat(row[models.FeatureCount+1], 64); err != nil {
		return models.FeedbackRecord{}, false
	}
	if rec.TargetDirection, err = strconv.ParseFloat(row[models.FeatureCount+2], 64); err != nil {
		return models.FeedbackRecord{}, false
	}
	if ts, err := time.Parse(time.RFC3339Nano, row[models.FeatureCount+3]); err == nil {
		rec.Timestamp = ts
	}
	return rec, true
}

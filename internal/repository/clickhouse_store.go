package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"sync"
	"time"

	"InvestCore/internal/domain/models"
	pkgch "InvestCore/pkg/clickhouse"
	applogger "InvestCore/pkg/logger"
)

// Schema statements for the ClickHouse backend. MergeTree tables are
// append-only, which matches the feedback-log contract.
func ClickHouseSchema(database string) []string {
	cols := make([]string, 0, models.FeatureCount)
	for _, name := range models.FeatureNames {
		cols = append(cols, name+" Float64")
	}
	features := strings.Join(cols, ", ")
	return []string{
		fmt.Sprintf("CREATE DATABASE IF NOT EXISTS %s", database),
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s.feedback_log (
			instrument String, %s, target_vol Float64, target_dir Float64, ts DateTime64(9)
		) ENGINE=MergeTree ORDER BY (instrument, ts)`, database, features),
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s.reference_data (
			instrument String, %s, target_vol Float64, target_dir Float64
		) ENGINE=MergeTree ORDER BY instrument`, database, features),
	}
}

// CHFeedbackStore implements FeedbackStore on ClickHouse. Appends are
// serialized by a mutex and use synchronous inserts; the in-memory counter
// is seeded from the table at startup and advanced only after a confirmed
// insert, mirroring the file backend's counting discipline.
type CHFeedbackStore struct {
	db     *sql.DB
	table  string
	logger *applogger.Logger

	mu      sync.Mutex // single-writer discipline for appends
	countMu sync.RWMutex
	counts  map[string]int64
}

func NewCHFeedbackStore(ch *pkgch.Client, database string, logger *applogger.Logger) (*CHFeedbackStore, error) {
	s := &CHFeedbackStore{
		db:     ch.DB(),
		table:  database + ".feedback_log",
		logger: logger.With("ch_feedback_store"),
		counts: make(map[string]int64),
	}
	if err := s.seedCounts(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *CHFeedbackStore) seedCounts() error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	rows, err := s.db.QueryContext(ctx,
		fmt.Sprintf("SELECT instrument, count() FROM %s GROUP BY instrument", s.table))
	if err != nil {
		return fmt.Errorf("seed counts: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var instrument string
		var n int64
		if err := rows.Scan(&instrument, &n); err != nil {
			return fmt.Errorf("scan count: %w", err)
		}
		s.counts[instrument] = n
	}
	return rows.Err()
}

func (s *CHFeedbackStore) Append(ctx context.Context, rec models.FeedbackRecord) (int64, error) {
	if len(rec.Features) != models.FeatureCount {
		return 0, fmt.Errorf("%w: record has %d features", models.ErrInvalidInput, len(rec.Features))
	}

	cols := append([]string{"instrument"}, models.FeatureNames[:]...)
	cols = append(cols, "target_vol", "target_dir", "ts")
	placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(cols)), ", ")
	query := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		s.table, strings.Join(cols, ", "), placeholders)

	args := make([]interface{}, 0, len(cols))
	args = append(args, rec.Instrument)
	for _, f := range rec.Features {
		args = append(args, f)
	}
	args = append(args, rec.TargetVolatility, rec.TargetDirection, rec.Timestamp)

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		s.logger.Error("feedback insert failed",
			applogger.String("instrument", rec.Instrument),
			applogger.Error(err),
		)
		return 0, fmt.Errorf("%w: %v", models.ErrStoreWrite, err)
	}

	s.countMu.Lock()
	s.counts[rec.Instrument]++
	n := s.counts[rec.Instrument]
	s.countMu.Unlock()
	return n, nil
}

func (s *CHFeedbackStore) Count(_ context.Context, instrument string) (int64, error) {
	s.countMu.RLock()
	defer s.countMu.RUnlock()
	return s.counts[instrument], nil
}

func (s *CHFeedbackStore) All(ctx context.Context, instrument string) ([]models.FeedbackRecord, error) {
	query := fmt.Sprintf("SELECT %s, target_vol, target_dir, ts FROM %s WHERE instrument = ? ORDER BY ts",
		strings.Join(models.FeatureNames[:], ", "), s.table)

	rows, err := s.db.QueryContext(ctx, query, instrument)
	if err != nil {
		return nil, fmt.Errorf("query feedback: %w", err)
	}
	defer rows.Close()

	out := make([]models.FeedbackRecord, 0, 64)
	dest := make([]interface{}, models.FeatureCount+3)
	for rows.Next() {
		rec := models.FeedbackRecord{
			Instrument: instrument,
			Features:   make([]float64, models.FeatureCount),
		}
		for i := range rec.Features {
			dest[i] = &rec.Features[i]
		}
		dest[models.FeatureCount] = &rec.TargetVolatility
		dest[models.FeatureCount+1] = &rec.TargetDirection
		dest[models.FeatureCount+2] = &rec.Timestamp
		if err := rows.Scan(dest...); err != nil {
			return nil, fmt.Errorf("scan feedback: %w", err)
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows: %w", err)
	}
	return out, nil
}

func (s *CHFeedbackStore) Health(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *CHFeedbackStore) Close() error { return nil }

// CHReferenceStore loads reference datasets from ClickHouse.
type CHReferenceStore struct {
	db    *sql.DB
	table string
}

func NewCHReferenceStore(ch *pkgch.Client, database string) *CHReferenceStore {
	return &CHReferenceStore{db: ch.DB(), table: database + ".reference_data"}
}

func (s *CHReferenceStore) Load(ctx context.Context, instrument string) ([]models.ReferenceRow, error) {
	query := fmt.Sprintf("SELECT %s, target_vol, target_dir FROM %s WHERE instrument = ?",
		strings.Join(models.FeatureNames[:], ", "), s.table)

	rows, err := s.db.QueryContext(ctx, query, instrument)
	if err != nil {
		return nil, fmt.Errorf("query reference: %w", err)
	}
	defer rows.Close()

	out := make([]models.ReferenceRow, 0, 256)
	dest := make([]interface{}, models.FeatureCount+2)
	for rows.Next() {
		ref := models.ReferenceRow{Features: make([]float64, models.FeatureCount)}
		for i := range ref.Features {
			dest[i] = &ref.Features[i]
		}
		dest[models.FeatureCount] = &ref.TargetVolatility
		dest[models.FeatureCount+1] = &ref.TargetDirection
		if err := rows.Scan(dest...); err != nil {
			return nil, fmt.Errorf("scan reference: %w", err)
		}
		out = append(out, ref)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows: %w", err)
	}
	return out, nil
}

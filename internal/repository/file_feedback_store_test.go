package repository

import (
	"context"
	"sync"
	"testing"
	"time"

	"InvestCore/internal/domain/models"
	applogger "InvestCore/pkg/logger"
)

func testRecord(instrument string, dir float64) models.FeedbackRecord {
	features := make([]float64, models.FeatureCount)
	for i := range features {
		features[i] = float64(i) * 0.1
	}
	return models.FeedbackRecord{
		Instrument:       instrument,
		Features:         features,
		TargetVolatility: 0.42,
		TargetDirection:  dir,
		Timestamp:        time.Now().UTC(),
	}
}

func TestFileStoreAppendAndCount(t *testing.T) {
	dir := t.TempDir()
	s, err := NewFileFeedbackStore(dir, applogger.Nop())
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer s.Close()

	ctx := context.Background()
	for i := 0; i < 3; i++ {
		n, err := s.Append(ctx, testRecord("BTCUSDT", 1))
		if err != nil {
			t.Fatalf("append %d: %v", i, err)
		}
		if n != int64(i+1) {
			t.Fatalf("append %d returned count %d, want %d", i, n, i+1)
		}
	}
	if n, err := s.Append(ctx, testRecord("ETHUSDT", 0)); err != nil || n != 1 {
		t.Fatalf("append eth: count=%d err=%v", n, err)
	}

	n, err := s.Count(ctx, "BTCUSDT")
	if err != nil || n != 3 {
		t.Fatalf("count btc = %d, %v; want 3", n, err)
	}
	n, _ = s.Count(ctx, "ETHUSDT")
	if n != 1 {
		t.Fatalf("count eth = %d, want 1", n)
	}

	rows, err := s.All(ctx, "BTCUSDT")
	if err != nil {
		t.Fatalf("all: %v", err)
	}
	if len(rows) != 3 {
		t.Fatalf("all returned %d rows, want 3", len(rows))
	}
	if rows[0].TargetVolatility != 0.42 || rows[0].TargetDirection != 1 {
		t.Fatalf("row mismatch: %+v", rows[0])
	}
	if len(rows[0].Features) != models.FeatureCount {
		t.Fatalf("row has %d features", len(rows[0].Features))
	}
}

func TestFileStoreRejectsBadWidth(t *testing.T) {
	s, err := NewFileFeedbackStore(t.TempDir(), applogger.Nop())
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer s.Close()

	rec := testRecord("BTCUSDT", 1)
	rec.Features = rec.Features[:3]
	if _, err := s.Append(context.Background(), rec); err == nil {
		t.Fatalf("expected error on short feature slice")
	}
	if n, _ := s.Count(context.Background(), "BTCUSDT"); n != 0 {
		t.Fatalf("failed append must not advance count, got %d", n)
	}
}

// Reopening the store must rebuild counters from the durable log.
func TestFileStoreRecountOnReopen(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()

	s, err := NewFileFeedbackStore(dir, applogger.Nop())
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	for i := 0; i < 5; i++ {
		if _, err := s.Append(ctx, testRecord("BTCUSDT", 1)); err != nil {
			t.Fatalf("append: %v", err)
		}
	}
	if err := s.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	s2, err := NewFileFeedbackStore(dir, applogger.Nop())
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer s2.Close()

	n, err := s2.Count(ctx, "BTCUSDT")
	if err != nil || n != 5 {
		t.Fatalf("count after reopen = %d, %v; want 5", n, err)
	}
}

func TestFileStoreConcurrentAppends(t *testing.T) {
	s, err := NewFileFeedbackStore(t.TempDir(), applogger.Nop())
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer s.Close()

	ctx := context.Background()
	const writers = 8
	const perWriter = 10

	// every writer must see a distinct post-append count
	seen := make([]bool, writers*perWriter+1)
	var mu sync.Mutex

	var wg sync.WaitGroup
	for w := 0; w < writers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < perWriter; i++ {
				n, err := s.Append(ctx, testRecord("BTCUSDT", 1))
				if err != nil {
					t.Errorf("append: %v", err)
					return
				}
				mu.Lock()
				if n < 1 || n > writers*perWriter || seen[n] {
					t.Errorf("duplicate or out-of-range count %d", n)
				} else {
					seen[n] = true
				}
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	n, _ := s.Count(ctx, "BTCUSDT")
	if n != writers*perWriter {
		t.Fatalf("count = %d, want %d", n, writers*perWriter)
	}
	rows, err := s.All(ctx, "BTCUSDT")
	if err != nil {
		t.Fatalf("all: %v", err)
	}
	if len(rows) != writers*perWriter {
		t.Fatalf("log has %d rows, want %d", len(rows), writers*perWriter)
	}
}

func TestReferenceStoreRoundTrip(t *testing.T) {
	dir := t.TempDir()

	rows := make([]models.ReferenceRow, 4)
	for i := range rows {
		features := make([]float64, models.FeatureCount)
		for j := range features {
			features[j] = float64(i + j)
		}
		rows[i] = models.ReferenceRow{
			Features:         features,
			TargetVolatility: float64(i) * 0.1,
			TargetDirection:  float64(i % 2),
		}
	}
	if err := WriteReferenceCSV(dir, "BTCUSDT", rows); err != nil {
		t.Fatalf("write: %v", err)
	}

	s := NewFileReferenceStore(dir)
	got, err := s.Load(context.Background(), "BTCUSDT")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(got) != 4 {
		t.Fatalf("loaded %d rows, want 4", len(got))
	}
	if got[2].TargetVolatility != 0.2 || got[3].TargetDirection != 1 {
		t.Fatalf("row mismatch: %+v", got[2:])
	}

	if _, err := s.Load(context.Background(), "ETHUSDT"); err == nil {
		t.Fatalf("expected error for missing dataset")
	}
}

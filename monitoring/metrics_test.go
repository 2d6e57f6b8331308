package monitoring

import (
	"sync"
	"testing"
)

func TestPredictionStats(t *testing.T) {
	stats := NewPredictionStats()

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			stats.RecordPrediction("Setosa")
		}()
	}
	wg.Wait()
	stats.RecordPrediction("Virginica")
	stats.RecordError("invalid_number")

	snapshot := stats.Snapshot()
	if snapshot.Total != 12 {
		t.Fatalf("expected total 12, got %d", snapshot.Total)
	}
	if snapshot.Predictions["Setosa"] != 10 || snapshot.Predictions["Virginica"] != 1 {
		t.Fatalf("unexpected predictions %v", snapshot.Predictions)
	}
	if snapshot.Errors["invalid_number"] != 1 {
		t.Fatalf("unexpected errors %v", snapshot.Errors)
	}
	if snapshot.LastPrediction.IsZero() {
		t.Fatal("expected last prediction time")
	}

	snapshot.Predictions["Setosa"] = 0
	if stats.Snapshot().Predictions["Setosa"] != 10 {
		t.Fatal("snapshot must be a copy")
	}
}

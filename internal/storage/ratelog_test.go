package storage

import (
	"path/filepath"
	"testing"
)

func newTestRateLog(t *testing.T) *RateLog {
	t.Helper()
	path := filepath.Join(t.TempDir(), "rates.db")
	log, err := NewRateLog(path)
	if err != nil {
		t.Fatalf("Failed to open rate log: %v", err)
	}
	t.Cleanup(func() { log.Close() })
	return log
}

func TestRateLogAppendAndCount(t *testing.T) {
	log := newTestRateLog(t)

	rates := []float64{0.0, 0.0005, 0.001, 0.001, 0.0001}
	for step, rate := range rates {
		if err := log.Append(step, rate, 1.5); err != nil {
			t.Fatalf("Append step %d failed: %v", step, err)
		}
	}

	count, err := log.Count()
	if err != nil {
		t.Fatalf("Count failed: %v", err)
	}
	if count != uint64(len(rates)) {
		t.Errorf("Count = %d; want %d", count, len(rates))
	}
}

func TestRateLogRange(t *testing.T) {
	log := newTestRateLog(t)

	for step := 0; step < 10; step++ {
		if err := log.Append(step, float64(step)*0.001, 0); err != nil {
			t.Fatalf("Append failed: %v", err)
		}
	}

	entries, err := log.Range(3, 7)
	if err != nil {
		t.Fatalf("Range failed: %v", err)
	}

	if len(entries) != 4 {
		t.Fatalf("Range returned %d entries; want 4", len(entries))
	}

	for i, entry := range entries {
		wantStep := 3 + i
		if entry.Step != wantStep {
			t.Errorf("entry %d: step = %d; want %d", i, entry.Step, wantStep)
		}
		wantRate := float64(wantStep) * 0.001
		if entry.Rate != wantRate {
			t.Errorf("entry %d: rate = %v; want %v", i, entry.Rate, wantRate)
		}
	}
}

func TestRateLogInvalidInput(t *testing.T) {
	log := newTestRateLog(t)

	if err := log.Append(-1, 0.001, 0); err == nil {
		t.Error("Expected error for negative step")
	}

	if _, err := log.Range(5, 2); err == nil {
		t.Error("Expected error for inverted range")
	}
}

func TestRateLogClosed(t *testing.T) {
	log := newTestRateLog(t)
	if err := log.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	if err := log.Append(0, 0.001, 0); err == nil {
		t.Error("Expected error appending to closed log")
	}
	if _, err := log.Count(); err == nil {
		t.Error("Expected error counting on closed log")
	}
}

func TestRateLogReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rates.db")

	log, err := NewRateLog(path)
	if err != nil {
		t.Fatalf("Failed to open rate log: %v", err)
	}
	for step := 0; step < 3; step++ {
		if err := log.Append(step, 0.001, 0); err != nil {
			t.Fatalf("Append failed: %v", err)
		}
	}
	if err := log.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	reopened, err := NewRateLog(path)
	if err != nil {
		t.Fatalf("Failed to reopen rate log: %v", err)
	}
	defer reopened.Close()

	count, err := reopened.Count()
	if err != nil {
		t.Fatalf("Count failed: %v", err)
	}
	if count != 3 {
		t.Errorf("Count after reopen = %d; want 3", count)
	}
}

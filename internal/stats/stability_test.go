package stats

import (
	"math"
	"testing"
	"time"
)

func TestCalculateXmR(t *testing.T) {
	values := []float64{10, 12, 11, 13, 11}
	result := CalculateXmR(values)

	expectedAvg := 11.4
	if math.Abs(result.Average-expectedAvg) > 0.001 {
		t.Errorf("Expected average %v, got %v", expectedAvg, result.Average)
	}

	expectedAmR := 1.75
	if math.Abs(result.AmR-expectedAmR) > 0.001 {
		t.Errorf("Expected AmR %v, got %v", expectedAmR, result.AmR)
	}

	expectedUNPL := 16.055
	if math.Abs(result.UNPL-expectedUNPL) > 0.001 {
		t.Errorf("Expected UNPL %v, got %v", expectedUNPL, result.UNPL)
	}

	if !result.Stable() {
		t.Errorf("Expected 0 signals, got %v", len(result.Signals))
	}
}

func TestXmRSignals(t *testing.T) {
	values := []float64{10, 11, 10, 11, 10, 11, 10, 11, 10, 11, 100}
	result := CalculateXmR(values)
	foundOutlier := false
	for _, s := range result.Signals {
		if s.Type == "outlier" && s.Index == 10 {
			foundOutlier = true
		}
	}
	if !foundOutlier {
		t.Errorf("Expected outlier at index 10 not found. UNPL was %v, Value was 100", result.UNPL)
	}

	values = []float64{10, 10, 10, 10, 10, 10, 10, 10, 2, 2, 2, 2, 2, 2, 2, 2}
	result = CalculateXmR(values)
	foundShift := 0
	for _, s := range result.Signals {
		if s.Type == "shift" {
			foundShift++
		}
	}
	if foundShift < 2 {
		t.Errorf("Expected at least 2 shift signals, got %d", foundShift)
	}
}

func TestCalculateXmR_Empty(t *testing.T) {
	result := CalculateXmR(nil)
	if result.Average != 0 || len(result.Signals) != 0 {
		t.Errorf("Expected zero result for empty input, got %+v", result)
	}
}

func TestThroughputStability(t *testing.T) {
	// Monday
	end := time.Date(2024, 7, 1, 0, 0, 0, 0, time.UTC)

	var closed []time.Time
	for d := end.AddDate(0, 0, -56); d.Before(end); d = d.AddDate(0, 0, 1) {
		closed = append(closed, d.Add(10*time.Hour))
	}

	result := ThroughputStability(closed, end, 56)
	if len(result.Values) != 8 {
		t.Fatalf("Expected 8 weekly buckets, got %d", len(result.Values))
	}
	for i, v := range result.Values {
		if v != 7 {
			t.Errorf("Week %d: expected 7 items, got %v", i, v)
		}
	}
	if !result.Stable() {
		t.Errorf("Expected a steady team to be stable, got %v", result.Signals)
	}
}

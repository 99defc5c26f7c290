package bandwidth

import "testing"

func TestSlidingWindowMeterNoEstimateUntilWarm(t *testing.T) {
	m := NewSlidingWindowMeter()

	if got := m.BitrateEstimate(); got != NoEstimate {
		t.Fatalf("BitrateEstimate() = %d, want NoEstimate with no samples", got)
	}

	for i := 0; i < 4; i++ {
		m.Record(1_000_000)
	}
	if got := m.BitrateEstimate(); got != NoEstimate {
		t.Errorf("BitrateEstimate() = %d, want NoEstimate below minimum sample count", got)
	}

	m.Record(1_000_000)
	if got := m.BitrateEstimate(); got != 1_000_000 {
		t.Errorf("BitrateEstimate() = %d, want 1000000 after fifth sample", got)
	}
}

func TestSlidingWindowMeterMedian(t *testing.T) {
	tests := []struct {
		name    string
		samples []int64
		want    int64
	}{
		{"uniform", []int64{5, 5, 5, 5, 5}, 5},
		{"single spike ignored", []int64{100, 100, 100, 100, 9000}, 100},
		{"single dip ignored", []int64{100, 100, 100, 100, 1}, 100},
		{"odd count", []int64{10, 20, 30, 40, 50}, 30},
		{"even count upper median", []int64{10, 20, 30, 40, 50, 60}, 40},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := NewSlidingWindowMeter()
			for _, s := range tt.samples {
				m.Record(s)
			}
			if got := m.BitrateEstimate(); got != tt.want {
				t.Errorf("BitrateEstimate() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestSlidingWindowMeterEviction(t *testing.T) {
	m := NewSlidingWindowMeter()

	// Fill the window with low samples, then push it full of high ones.
	// Old samples must age out entirely.
	for i := 0; i < defaultMaxSamples; i++ {
		m.Record(100)
	}
	for i := 0; i < defaultMaxSamples; i++ {
		m.Record(9_000)
	}

	if got := m.BitrateEstimate(); got != 9_000 {
		t.Errorf("BitrateEstimate() = %d, want 9000 after full window turnover", got)
	}
}

func TestSlidingWindowMeterIgnoresNonPositive(t *testing.T) {
	m := NewSlidingWindowMeter()
	for i := 0; i < 10; i++ {
		m.Record(0)
		m.Record(-5)
	}

	if got := m.BitrateEstimate(); got != NoEstimate {
		t.Errorf("BitrateEstimate() = %d, want NoEstimate (non-positive samples ignored)", got)
	}
}

func TestSlidingWindowMeterReset(t *testing.T) {
	m := NewSlidingWindowMeter()
	for i := 0; i < 10; i++ {
		m.Record(1_000)
	}
	m.Reset()

	if got := m.BitrateEstimate(); got != NoEstimate {
		t.Errorf("BitrateEstimate() = %d, want NoEstimate after reset", got)
	}
}

func TestNilMeterSafety(t *testing.T) {
	var m *SlidingWindowMeter

	// All methods should be safe to call on nil
	m.Record(1_000)
	m.Reset()

	if got := m.BitrateEstimate(); got != NoEstimate {
		t.Errorf("BitrateEstimate() on nil = %d, want NoEstimate", got)
	}
}

func TestFixedMeter(t *testing.T) {
	if got := (FixedMeter{Bitrate: 42}).BitrateEstimate(); got != 42 {
		t.Errorf("BitrateEstimate() = %d, want 42", got)
	}
	if got := (FixedMeter{Bitrate: NoEstimate}).BitrateEstimate(); got != NoEstimate {
		t.Errorf("BitrateEstimate() = %d, want NoEstimate", got)
	}
}

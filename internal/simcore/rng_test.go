package simcore

import "testing"

func TestNewLabeledRNG_Deterministic(t *testing.T) {
	a := NewLabeledRNG(42, "DEX")
	b := NewLabeledRNG(42, "DEX")

	for i := 0; i < 50; i++ {
		va, vb := a.Uint64(), b.Uint64()
		if va != vb {
			t.Fatalf("stream diverged at sample %d: %d != %d", i, va, vb)
		}
	}
}

func TestNewLabeledRNG_LabelIndependence(t *testing.T) {
	a := NewLabeledRNG(42, "DEX")
	b := NewLabeledRNG(42, "DEX_TICKER")

	same := 0
	for i := 0; i < 100; i++ {
		if a.Uint64() == b.Uint64() {
			same++
		}
	}
	if same == 100 {
		t.Fatalf("expected label-derived streams to differ, all 100 samples matched")
	}
}

func TestHappens_Bounds(t *testing.T) {
	rng := NewLabeledRNG(1, "T")
	for i := 0; i < 1000; i++ {
		if Happens(rng, 0.0) {
			t.Fatalf("p=0 fired")
		}
	}
	for i := 0; i < 1000; i++ {
		if !Happens(rng, 1.0) {
			t.Fatalf("p=1 did not fire")
		}
	}
}

func TestHappens_Rate(t *testing.T) {
	rng := NewLabeledRNG(7, "RATE")
	const n = 10000
	fires := 0
	for i := 0; i < n; i++ {
		if Happens(rng, 0.5) {
			fires++
		}
	}
	frac := float64(fires) / float64(n)
	if frac < 0.45 || frac > 0.55 {
		t.Fatalf("p=0.5 fired %f of the time, want 0.45-0.55", frac)
	}
}

func TestSampleRangeU64_Bounds(t *testing.T) {
	rng := NewLabeledRNG(3, "RANGE")
	for i := 0; i < 1000; i++ {
		v := SampleRangeU64(rng, 10, 20)
		if v < 10 || v > 20 {
			t.Fatalf("sample %d out of [10,20]", v)
		}
	}
	if v := SampleRangeU64(rng, 5, 5); v != 5 {
		t.Fatalf("degenerate range: got %d, want 5", v)
	}
	if v := SampleRangeU64(rng, 9, 5); v != 9 {
		t.Fatalf("inverted range: got %d, want min=9", v)
	}
}

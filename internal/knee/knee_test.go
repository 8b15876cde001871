package knee

import "testing"

func TestCutoffSharpDrop(t *testing.T) {
	scores := []float64{0.92, 0.91, 0.89, 0.71, 0.69, 0.30, 0.28}
	idx := Cutoff(scores, 1.0, 1)
	if idx < 0 || idx > 5 {
		t.Fatalf("expected knee index in [0,5], got %d", idx)
	}
}

func TestCutoffFlatSequence(t *testing.T) {
	scores := []float64{0.81, 0.80, 0.79, 0.78}
	idx := Cutoff(scores, 1.0, 1)
	// A near-linear sequence should not trigger a strong-enough knee; if one
	// is still found it must at least not be the very first point.
	if idx == 0 {
		t.Fatal("flat sequence should not cut off at the very first point")
	}
}

func TestCutoffTooFewPoints(t *testing.T) {
	if idx := Cutoff([]float64{0.9, 0.8}, 1.0, 1); idx != -1 {
		t.Fatalf("expected -1 for fewer than 3 points, got %d", idx)
	}
}

func TestCutoffRespectsMinChunks(t *testing.T) {
	scores := []float64{0.95, 0.10, 0.09, 0.08, 0.07}
	idx := Cutoff(scores, 1.0, 3)
	if idx < 2 {
		t.Fatalf("expected index >= 2 to keep at least 3 chunks, got %d", idx)
	}
}

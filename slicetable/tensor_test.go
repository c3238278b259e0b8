package slicetable

import (
	"math"
	"testing"
)

func TestMagnitudeRootSumOfSquares(t *testing.T) {
	// 1x2 image with two coils: pixel 0 = (3, 4i) -> 5, pixel 1 = (0, 0) -> 0.
	tensor, err := NewTensor([]int{1, 2, 2}, []complex64{3, 4i, 0, 0})
	if err != nil {
		t.Fatal(err)
	}
	m, err := tensor.Magnitude()
	if err != nil {
		t.Fatalf("Magnitude failed: %v", err)
	}
	if got := m.At(0, 0); math.Abs(got-5) > 1e-6 {
		t.Errorf("expected 5, got %v", got)
	}
	if got := m.At(0, 1); got != 0 {
		t.Errorf("expected 0, got %v", got)
	}
}

func TestImageScalesToFullRange(t *testing.T) {
	tensor, err := NewTensor([]int{2, 2}, []complex64{0, 1, 2, 4})
	if err != nil {
		t.Fatal(err)
	}
	for _, logScale := range []bool{false, true} {
		img, err := tensor.Image(logScale)
		if err != nil {
			t.Fatalf("Image failed: %v", err)
		}
		if got := img.Gray16At(1, 1).Y; got != math.MaxUint16 {
			t.Errorf("logScale=%v: brightest pixel %d, want %d", logScale, got, math.MaxUint16)
		}
		if got := img.Gray16At(0, 0).Y; got != 0 {
			t.Errorf("logScale=%v: darkest pixel %d, want 0", logScale, got)
		}
	}
}

func TestNewTensorRejectsMismatch(t *testing.T) {
	if _, err := NewTensor([]int{2, 2}, make([]complex64, 3)); err == nil {
		t.Fatal("expected shape mismatch error")
	}
	tensor, _ := NewTensor([]int{3}, make([]complex64, 3))
	if _, err := tensor.Magnitude(); err == nil {
		t.Fatal("expected error for 1-D tensor")
	}
}

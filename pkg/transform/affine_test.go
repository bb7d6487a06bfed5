package transform

import (
	"math"
	"os"
	"path/filepath"
	"testing"
)

func TestIdentityApply(t *testing.T) {
	p := [3]float64{1.5, -2, 3}
	if got := Identity().Apply(p); got != p {
		t.Fatalf("Identity().Apply(%v) = %v", p, got)
	}
}

func TestTranslationApply(t *testing.T) {
	a := Translation(1, -2, 0.5)
	got := a.Apply([3]float64{10, 10, 10})
	want := [3]float64{11, 8, 10.5}
	if got != want {
		t.Fatalf("Apply = %v, want %v", got, want)
	}
}

func TestInverseUndoesApply(t *testing.T) {
	a := FromMatrix([4][4]float64{
		{0, -1, 0, 4},
		{1, 0, 0, -3},
		{0, 0, 2, 1},
		{0, 0, 0, 1},
	})
	inv, err := a.Inverse()
	if err != nil {
		t.Fatalf("Inverse: %v", err)
	}

	p := [3]float64{2.5, -7, 3}
	back := inv.Apply(a.Apply(p))
	for i := range p {
		if math.Abs(back[i]-p[i]) > 1e-9 {
			t.Fatalf("inverse round trip = %v, want %v", back, p)
		}
	}
}

func TestInverseSingular(t *testing.T) {
	a := FromMatrix([4][4]float64{
		{1, 0, 0, 0},
		{1, 0, 0, 0},
		{0, 0, 1, 0},
		{0, 0, 0, 1},
	})
	if _, err := a.Inverse(); err == nil {
		t.Fatal("expected error for singular matrix")
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	dir, err := os.MkdirTemp("", "brainprep-transform-*")
	if err != nil {
		t.Fatalf("Failed to create temporary directory: %v", err)
	}
	defer os.RemoveAll(dir)

	a := FromMatrix([4][4]float64{
		{0.5, 0, 0, 12},
		{0, 1, 0, -4},
		{0, 0, 1.5, 7},
		{0, 0, 0, 1},
	})

	path := filepath.Join(dir, "transform.yaml")
	if err := Save(a, path); err != nil {
		t.Fatalf("Save: %v", err)
	}

	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	am := a.Matrix()
	lm := loaded.Matrix()
	for r := 0; r < 4; r++ {
		for c := 0; c < 4; c++ {
			if math.Abs(am.At(r, c)-lm.At(r, c)) > 1e-12 {
				t.Fatalf("matrix mismatch at (%d,%d): %v != %v", r, c, lm.At(r, c), am.At(r, c))
			}
		}
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load("/nonexistent/transform.yaml"); err == nil {
		t.Fatal("expected error for missing transform file")
	}
}

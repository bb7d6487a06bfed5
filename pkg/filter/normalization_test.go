package filter

import (
	"errors"
	"math"
	"testing"

	"brainprep/pkg/volume"
)

func TestNormalizationRescalesToUnitRange(t *testing.T) {
	v := volume.New(5, 1, 1)
	copy(v.Data, []float64{0, 2, 4, 6, 8})

	out, err := NewNormalization().Execute(v, nil)
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}

	want := []float64{0, 0.25, 0.5, 0.75, 1.0}
	for i, got := range out.Data {
		if math.Abs(got-want[i]) > 1e-12 {
			t.Fatalf("Data[%d] = %v, want %v", i, got, want[i])
		}
	}
}

func TestNormalizationMinMaxProperty(t *testing.T) {
	v := volume.New(4, 4, 4)
	for i := range v.Data {
		// Arbitrary non-constant intensities, including negatives
		v.Data[i] = math.Sin(float64(i))*50 - 10
	}

	out, err := NewNormalization().Execute(v, nil)
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}

	min, max := out.MinMax()
	if math.Abs(min) > 1e-12 || math.Abs(max-1) > 1e-12 {
		t.Fatalf("output range = [%v, %v], want [0, 1]", min, max)
	}
}

func TestNormalizationPreservesGeometry(t *testing.T) {
	v := volume.New(3, 3, 3)
	v.Origin = [3]float64{5, -5, 1}
	v.Spacing = [3]float64{0.5, 0.5, 2}
	v.Set(1, 1, 1, 10)

	out, err := NewNormalization().Execute(v, nil)
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if !out.SameGeometry(v, 1e-12) {
		t.Fatal("normalization changed spatial metadata")
	}
}

func TestNormalizationConstantImage(t *testing.T) {
	v := volume.NewUniform(3, 3, 3, 42)

	_, err := NewNormalization().Execute(v, nil)
	if err == nil {
		t.Fatal("expected error for constant image")
	}

	var dErr *DegenerateIntensityRangeError
	if !errors.As(err, &dErr) {
		t.Fatalf("error type = %T, want DegenerateIntensityRangeError", err)
	}
	if dErr.Value != 42 {
		t.Errorf("reported constant = %v, want 42", dErr.Value)
	}
}

func TestNormalizationDoesNotMutateInput(t *testing.T) {
	v := volume.New(2, 1, 1)
	copy(v.Data, []float64{1, 3})

	if _, err := NewNormalization().Execute(v, nil); err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if v.Data[0] != 1 || v.Data[1] != 3 {
		t.Fatal("input volume was mutated")
	}
}

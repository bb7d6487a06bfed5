package pipeline

import (
	"math"
	"strings"
	"testing"

	"github.com/rs/zerolog"

	"brainprep/pkg/filter"
	"brainprep/pkg/volume"
)

func TestRunAppliesStepsInOrder(t *testing.T) {
	img := volume.New(5, 1, 1)
	copy(img.Data, []float64{0, 2, 4, 6, 8})

	mask := volume.New(5, 1, 1)
	mask.Set(1, 0, 0, 1)
	mask.Set(2, 0, 0, 1)

	p := New(zerolog.Nop()).
		Add("normalize", filter.NewNormalization(), nil).
		Add("skull-strip", filter.NewSkullStripping(), &filter.SkullStrippingParams{Mask: mask})

	res, err := p.Run(img)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	// Normalization first (0..8 -> 0..1), then masking
	want := []float64{0, 0.25, 0.5, 0, 0}
	for i, got := range res.Output.Data {
		if math.Abs(got-want[i]) > 1e-12 {
			t.Fatalf("Output[%d] = %v, want %v", i, got, want[i])
		}
	}

	if len(res.Intermediates) != 2 {
		t.Fatalf("got %d intermediates, want 2", len(res.Intermediates))
	}
	// First intermediate is the unmasked normalized image
	if got := res.Intermediates[0].Data[4]; got != 1 {
		t.Errorf("normalized intermediate [4] = %v, want 1", got)
	}

	// Input untouched
	if img.Data[4] != 8 {
		t.Error("pipeline mutated its input volume")
	}
}

func TestRunErrorNamesStep(t *testing.T) {
	img := volume.NewUniform(3, 3, 3, 1) // constant image breaks normalization

	p := New(zerolog.Nop()).
		Add("filtering", filter.NewFiltering(), nil).
		Add("normalize", filter.NewNormalization(), nil)

	_, err := p.Run(img)
	if err == nil {
		t.Fatal("expected error from constant-image normalization")
	}
	if !strings.Contains(err.Error(), "normalize") {
		t.Fatalf("error %q does not name the failing step", err)
	}
}

func TestRunEmptyPipeline(t *testing.T) {
	img := volume.New(2, 2, 2)
	res, err := New(zerolog.Nop()).Run(img)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if res.Output == nil || !res.Output.SameShape(img) {
		t.Fatal("empty pipeline must return the input volume")
	}
}

func TestTrackChangesDoesNotAffectResult(t *testing.T) {
	img := volume.New(4, 4, 4)
	for i := range img.Data {
		img.Data[i] = float64(i % 9)
	}

	plain, err := New(zerolog.Nop()).
		Add("normalize", filter.NewNormalization(), nil).
		Run(img)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	tracked, err := New(zerolog.Nop()).
		TrackChanges(true).
		Add("normalize", filter.NewNormalization(), nil).
		Run(img)
	if err != nil {
		t.Fatalf("Run with tracking: %v", err)
	}

	for i := range plain.Output.Data {
		if plain.Output.Data[i] != tracked.Output.Data[i] {
			t.Fatal("change tracking altered the output")
		}
	}
}

func TestStepNames(t *testing.T) {
	p := New(zerolog.Nop()).
		Add("a", filter.NewFiltering(), nil).
		Add("b", filter.NewFiltering(), nil)
	got := p.StepNames()
	if len(got) != 2 || got[0] != "a" || got[1] != "b" {
		t.Fatalf("StepNames() = %v", got)
	}
}

// Package pipeline chains pre-processing filters into an ordered sequence
// and runs them against a volume, with structured per-step logging. Steps
// run synchronously; each receives the previous step's output.
package pipeline

import (
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"brainprep/pkg/filter"
	"brainprep/pkg/metrics"
	"brainprep/pkg/volume"
)

// Step is one named filter invocation with its parameter object.
type Step struct {
	// Name identifies the step in logs and error messages.
	Name string

	// Filter is the pre-processing filter to execute.
	Filter filter.Filter

	// Params is the filter-specific parameter object, created per run.
	Params filter.Params
}

// Pipeline applies a sequence of pre-processing steps to a volume.
type Pipeline struct {
	steps []Step
	log   zerolog.Logger

	// trackChanges enables per-step change metrics in the logs. Steps
	// that change the grid (registration onto an atlas) are skipped,
	// since their input and output are not voxel-comparable.
	trackChanges bool
}

// New creates an empty pipeline logging through log.
func New(log zerolog.Logger) *Pipeline {
	return &Pipeline{log: log}
}

// TrackChanges toggles per-step change metrics and returns the pipeline
// for chaining.
func (p *Pipeline) TrackChanges(enabled bool) *Pipeline {
	p.trackChanges = enabled
	return p
}

// Add appends a step and returns the pipeline for chaining.
func (p *Pipeline) Add(name string, f filter.Filter, params filter.Params) *Pipeline {
	p.steps = append(p.steps, Step{Name: name, Filter: f, Params: params})
	return p
}

// Len returns the number of configured steps.
func (p *Pipeline) Len() int {
	return len(p.steps)
}

// StepNames returns the configured step names in execution order.
func (p *Pipeline) StepNames() []string {
	names := make([]string, len(p.steps))
	for i, s := range p.steps {
		names[i] = s.Name
	}
	return names
}

// Result holds the output of a pipeline run together with the
// intermediate volume produced by each step, in step order.
type Result struct {
	// Output is the final volume.
	Output *volume.Volume

	// Intermediates holds each step's output, indexed like the steps.
	Intermediates []*volume.Volume
}

// Run executes the steps in order. The input volume is never mutated. On
// failure the error names the offending step and no partial output is
// returned.
func (p *Pipeline) Run(in *volume.Volume) (*Result, error) {
	if in == nil {
		return nil, fmt.Errorf("pipeline: nil input volume")
	}

	res := &Result{Intermediates: make([]*volume.Volume, 0, len(p.steps))}
	cur := in

	for i, step := range p.steps {
		start := time.Now()
		out, err := step.Filter.Execute(cur, step.Params)
		if err != nil {
			return nil, fmt.Errorf("pipeline step %d (%s): %w", i+1, step.Name, err)
		}

		min, max := out.MinMax()
		ev := p.log.Info().
			Str("step", step.Name).
			Int("index", i+1).
			Dur("duration", time.Since(start)).
			Float64("min", min).
			Float64("max", max)

		if p.trackChanges && cur.SameShape(out) {
			change, cerr := metrics.Compare(cur, out)
			if cerr == nil {
				ev = ev.
					Float64("rmse", change.RMSE).
					Float64("mean_abs_diff", change.MeanAbsDiff).
					Float64("entropy_diff", change.EntropyDiff).
					Float64("ssim", change.SSIM)
			}
		}
		ev.Msg("step completed")

		res.Intermediates = append(res.Intermediates, out)
		cur = out
	}

	res.Output = cur
	return res, nil
}

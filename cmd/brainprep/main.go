package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"

	"brainprep/internal/logger"
	"brainprep/pkg/config"
	"brainprep/pkg/filter"
	"brainprep/pkg/imgio"
	"brainprep/pkg/pipeline"
	"brainprep/pkg/transform"
	"brainprep/pkg/visualization"
	"brainprep/pkg/volume"
)

func main() {
	// Parse command line arguments
	inputPath := flag.String("input", "", "Input volume (.nii or .nii.gz)")
	maskPath := flag.String("mask", "", "Brain mask volume for skull-stripping")
	atlasPath := flag.String("atlas", "", "Atlas reference volume for registration")
	transformPath := flag.String("transform", "", "Affine transform file (YAML 4x4 matrix)")
	outputPath := flag.String("output", "preprocessed.nii.gz", "Output volume filename")
	groundTruth := flag.Bool("ground-truth", false, "Treat the input as a label image (nearest-neighbor resampling, no intensity steps)")
	configPath := flag.String("config", "brainprep.yaml", "Configuration file")
	saveIntermediary := flag.Bool("save-intermediary", false, "Save each step's output volume")
	intermediaryDir := flag.String("intermediary-dir", "intermediary_results", "Directory for intermediary results")
	extractSlices := flag.Bool("extract-slices", false, "Export PNG slices of the final volume along all axes")
	slicesDir := flag.String("slices-dir", "preprocessed_slices", "Directory for exported slices")
	verbose := flag.Bool("verbose", false, "Enable debug logging")
	flag.Parse()

	// Validate inputs
	if *inputPath == "" {
		flag.Usage()
		os.Exit(1)
	}

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	log := logger.NewConsole(*verbose || cfg.Output.Verbose)

	log.Info().Str("input", *inputPath).Msg("loading input volume")
	img, err := imgio.LoadNIfTI(*inputPath)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load input volume")
	}
	log.Debug().
		Int("nx", img.Nx).Int("ny", img.Ny).Int("nz", img.Nz).
		Floats64("spacing", img.Spacing[:]).
		Msg("input volume loaded")

	var mask, atlas *volume.Volume
	if *maskPath != "" {
		if mask, err = imgio.LoadNIfTI(*maskPath); err != nil {
			log.Fatal().Err(err).Msg("failed to load brain mask")
		}
	}
	if *atlasPath != "" {
		if atlas, err = imgio.LoadNIfTI(*atlasPath); err != nil {
			log.Fatal().Err(err).Msg("failed to load atlas")
		}
	}

	var affine *transform.Affine
	if *transformPath != "" {
		if affine, err = transform.Load(*transformPath); err != nil {
			log.Fatal().Err(err).Msg("failed to load transform")
		}
	}

	p := buildPipeline(cfg, log, *groundTruth, mask, atlas, affine)
	if p.Len() == 0 {
		log.Fatal().Msg("no pre-processing steps configured; nothing to do")
	}
	log.Info().Strs("steps", p.StepNames()).Msg("running pre-processing pipeline")

	startTime := time.Now()
	res, err := p.Run(img)
	if err != nil {
		log.Fatal().Err(err).Msg("pre-processing failed")
	}
	processingTime := time.Since(startTime)

	if err := imgio.SaveNIfTI(*outputPath, res.Output); err != nil {
		log.Fatal().Err(err).Msg("failed to save output volume")
	}

	fmt.Printf("\nPre-processing completed successfully in %.2f seconds!\n", processingTime.Seconds())
	fmt.Printf("Output volume saved to: %s\n", *outputPath)

	// Save per-step volumes if requested
	if *saveIntermediary || cfg.Output.SaveIntermediaryResults {
		if err := os.MkdirAll(*intermediaryDir, 0755); err != nil {
			log.Fatal().Err(err).Msg("failed to create intermediary directory")
		}
		for i, name := range p.StepNames() {
			path := filepath.Join(*intermediaryDir, fmt.Sprintf("%02d_%s.nii.gz", i+1, name))
			if err := imgio.SaveNIfTI(path, res.Intermediates[i]); err != nil {
				log.Warn().Err(err).Str("step", name).Msg("failed to save intermediary volume")
				continue
			}
			log.Debug().Str("path", path).Msg("saved intermediary volume")
		}
		fmt.Printf("Intermediary results saved to: %s\n", *intermediaryDir)
	}

	// Export PNG slices of the final volume if requested
	if *extractSlices {
		viewer := visualization.NewViewer(res.Output)
		for _, axis := range []string{"x", "y", "z"} {
			axisDir := filepath.Join(*slicesDir, axis)
			if err := viewer.SaveSliceSequence(axis, axisDir); err != nil {
				log.Warn().Err(err).Str("axis", axis).Msg("failed to save slice sequence")
			}
		}
		fmt.Printf("Slice images saved to: %s\n", *slicesDir)
	}
}

// buildPipeline assembles the step sequence from the configuration and the
// supplied collaborators. Label images only get the geometric step; the
// intensity steps would destroy their discrete values.
func buildPipeline(cfg *config.Config, log zerolog.Logger, groundTruth bool, mask, atlas *volume.Volume, affine *transform.Affine) *pipeline.Pipeline {
	p := pipeline.New(log).TrackChanges(cfg.Output.TrackChanges)

	if cfg.Pipeline.Register && affine != nil {
		p.Add("registration", filter.NewRegistration(), &filter.RegistrationParams{
			Atlas:         atlas,
			Transform:     affine,
			IsGroundTruth: groundTruth,
		})
	}

	if groundTruth {
		return p
	}

	if cfg.Pipeline.SkullStrip && mask != nil {
		p.Add("skull-stripping", filter.NewSkullStripping(), &filter.SkullStrippingParams{Mask: mask})
	}
	if cfg.Pipeline.Normalize {
		p.Add("normalization", filter.NewNormalization(), nil)
	}
	p.Add("filtering", filter.NewFiltering(), &filter.FilteringParams{
		Atlas:          atlas,
		SmoothingSigma: cfg.Pipeline.SmoothingSigma,
		MatchHistogram: cfg.Pipeline.MatchHistogram,
		MatchPoints:    cfg.Pipeline.MatchPoints,
	})

	return p
}

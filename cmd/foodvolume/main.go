package main

import (
	"flag"
	"fmt"
	stdlog "log"
	"os"
	"time"

	"github.com/disintegration/imaging"
	"github.com/google/uuid"

	"foodvolume/internal/models"
	"foodvolume/pkg/config"
	"foodvolume/pkg/estimation"
	"foodvolume/pkg/log"
	"foodvolume/pkg/pipeline"
	"foodvolume/pkg/sampler"
	"foodvolume/pkg/segmentation"
)

func main() {
	// Parse command line arguments
	maskPath := flag.String("mask", "", "Segmentation mask image for a single estimate")
	depthPath := flag.String("depth", "", "Depth map image of the captured frame")
	responsePath := flag.String("response", "", "Segmentation response JSON document for a full frame")
	configPath := flag.String("config", "config.yaml", "Configuration file")
	flag.Parse()

	// Validate inputs
	if *depthPath == "" || (*maskPath == "" && *responsePath == "") {
		flag.Usage()
		os.Exit(1)
	}

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		stdlog.Fatalf("Failed to load configuration: %v", err)
	}
	if err := log.Configure(cfg.Logging.Level, cfg.Logging.File); err != nil {
		stdlog.Fatalf("Failed to configure logging: %v", err)
	}

	depth, err := imaging.Open(*depthPath)
	if err != nil {
		log.Fatal(log.Fields{"path": *depthPath, "error": err.Error()},
			"failed to load depth map")
	}

	detections, err := loadDetections(*maskPath, *responsePath)
	if err != nil {
		log.Fatal(log.Fields{"error": err.Error()}, "failed to load detections")
	}

	filter, err := sampler.FilterByName(cfg.Sampling.Filter)
	if err != nil {
		log.Fatal(log.Fields{"error": err.Error()}, "invalid sampling filter")
	}

	p := pipeline.New(
		sampler.New(filter),
		estimation.NewEstimator(estimatorParams(cfg)),
		cfg.Pipeline.NumWorkers,
	)

	startTime := time.Now()
	results := p.Run(depth, detections)

	log.Info(log.Fields{
		"detections": len(results),
		"elapsed":    time.Since(startTime).String(),
	}, "frame processed")

	for _, res := range results {
		if res.Volume.Available {
			fmt.Printf("%s (confidence %.2f): %.1f cm3\n",
				res.Detection.Label, res.Detection.Confidence, res.Volume.CubicCentimeters)
		} else {
			fmt.Printf("%s (confidence %.2f): volume unavailable\n",
				res.Detection.Label, res.Detection.Confidence)
		}
	}
}

// loadDetections builds the detection list either from a single mask image
// or from a segmentation response document.
func loadDetections(maskPath, responsePath string) ([]models.Detection, error) {
	if responsePath != "" {
		data, err := os.ReadFile(responsePath)
		if err != nil {
			return nil, fmt.Errorf("error reading response document: %w", err)
		}
		return segmentation.ParseResponse(data)
	}

	mask, err := imaging.Open(maskPath)
	if err != nil {
		return nil, fmt.Errorf("error loading mask image: %w", err)
	}

	return []models.Detection{{
		ID:         uuid.NewString(),
		Label:      "item",
		Confidence: 1.0,
		Mask:       mask,
	}}, nil
}

// estimatorParams maps the loaded configuration onto estimator parameters.
func estimatorParams(cfg *config.Config) estimation.Params {
	return estimation.Params{
		FOVDegrees:          cfg.Camera.FOVDegrees,
		SubjectDistanceMm:   cfg.Camera.SubjectDistanceMm,
		MaskThreshold:       cfg.Calibration.MaskThreshold,
		HeightSpanMm:        cfg.Calibration.HeightSpanMm,
		HeightDamping:       cfg.Calibration.HeightDamping,
		CorrectionFactor:    cfg.Calibration.CorrectionFactor,
		MinVolumeCm3:        cfg.Calibration.MinVolumeCm3,
		ReferencePercentile: cfg.Calibration.ReferencePercentile,
	}
}

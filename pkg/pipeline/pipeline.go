// Package pipeline runs volume estimation for every detection of a
// captured frame.
package pipeline

import (
	"image"

	"foodvolume/internal/models"
	"foodvolume/pkg/estimation"
	"foodvolume/pkg/log"
	"foodvolume/pkg/sampler"
)

// Result pairs a detection with its volume estimate. When estimation
// fails the volume is unavailable but the detection metadata stays valid.
type Result struct {
	Detection models.Detection
	Volume    models.VolumeEstimate
}

// Pipeline estimates volumes for the detections of one frame. The depth
// image is read-only and shared across workers; detections are
// independent, so they are processed concurrently.
type Pipeline struct {
	sampler    *sampler.Sampler
	estimator  *estimation.Estimator
	numWorkers int
}

// New creates a pipeline. numWorkers bounds concurrent estimations; values
// below 1 are treated as 1.
func New(s *sampler.Sampler, e *estimation.Estimator, numWorkers int) *Pipeline {
	if numWorkers < 1 {
		numWorkers = 1
	}
	return &Pipeline{
		sampler:    s,
		estimator:  e,
		numWorkers: numWorkers,
	}
}

// Run estimates the volume of every detection against the shared depth
// map. Results keep the input order. Estimation failures never abort the
// frame; they produce unavailable volumes.
func (p *Pipeline) Run(depth image.Image, detections []models.Detection) []Result {
	results := make([]Result, len(detections))

	type estimateResult struct {
		idx    int
		volume models.VolumeEstimate
	}
	resultChan := make(chan estimateResult)

	// Bound the fan-out so a frame with many detections does not spawn
	// unbounded goroutines.
	sem := make(chan struct{}, p.numWorkers)

	for i, det := range detections {
		go func(idx int, det models.Detection) {
			sem <- struct{}{}
			defer func() { <-sem }()

			resultChan <- estimateResult{
				idx:    idx,
				volume: p.estimateOne(depth, det),
			}
		}(i, det)
	}

	for range detections {
		res := <-resultChan
		results[res.idx] = Result{
			Detection: detections[res.idx],
			Volume:    res.volume,
		}
	}

	return results
}

// estimateOne runs the sampler and estimator for a single detection,
// collapsing every failure to an unavailable volume.
func (p *Pipeline) estimateOne(depth image.Image, det models.Detection) models.VolumeEstimate {
	maskIntensities, depthIntensities, width, err := p.sampler.Aligned(det.Mask, depth)
	if err != nil {
		log.Warn(log.Fields{
			"detection": det.ID,
			"label":     det.Label,
			"error":     err.Error(),
		}, "volume unavailable: sampling failed")
		return models.Unavailable()
	}

	volume, err := p.estimator.Estimate(maskIntensities, depthIntensities, width)
	if err != nil {
		log.Warn(log.Fields{
			"detection": det.ID,
			"label":     det.Label,
			"error":     err.Error(),
		}, "volume unavailable: estimation failed")
		return models.Unavailable()
	}

	log.Debug(log.Fields{
		"detection": det.ID,
		"label":     det.Label,
		"volumeCm3": volume,
	}, "volume estimated")

	return models.VolumeEstimate{CubicCentimeters: volume, Available: true}
}

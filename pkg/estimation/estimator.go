// Package estimation converts aligned mask/depth intensity pairs into a
// physical volume estimate.
//
// The depth convention is "lower value = closer to camera". The reference
// (plate/table) plane is inferred from the deepest pixels inside the mask
// footprint, which relies on the mask boundary including some visible
// background; per-pixel heights above that plane combine with a
// field-of-view derived lateral scale into cubic centimeters.
package estimation

import (
	"errors"
	"fmt"
	"math"
	"sort"

	"gonum.org/v1/gonum/stat"
)

var (
	// ErrEmptyMask indicates no pixel exceeded the mask threshold.
	ErrEmptyMask = errors.New("no pixels above mask threshold")

	// ErrNoSurface indicates no masked pixel rises above the inferred
	// reference plane (flat or fully background-level region).
	ErrNoSurface = errors.New("no pixels above reference plane")
)

// Params holds the camera geometry and calibration constants the
// estimator depends on. These are empirically tuned per device class;
// see the config package for the YAML-backed source of these values.
type Params struct {
	// FOVDegrees is the horizontal field of view of the camera
	FOVDegrees float64

	// SubjectDistanceMm is the assumed camera-to-subject distance in mm
	SubjectDistanceMm float64

	// MaskThreshold is the intensity above which a mask pixel counts as
	// inside the food region
	MaskThreshold uint8

	// HeightSpanMm maps the normalized 0-255 depth range to an assumed
	// real-world span in mm
	HeightSpanMm float64

	// HeightDamping scales converted heights down
	HeightDamping float64

	// CorrectionFactor multiplies the final volume
	CorrectionFactor float64

	// MinVolumeCm3 floors every successful estimate
	MinVolumeCm3 float64

	// ReferencePercentile selects the reference-plane depth among inside
	// pixels; 1.0 is the exact maximum
	ReferencePercentile float64
}

// DefaultParams returns the calibrated defaults for a phone-class camera
// at tabletop distance.
func DefaultParams() Params {
	return Params{
		FOVDegrees:          60.0,
		SubjectDistanceMm:   300.0,
		MaskThreshold:       128,
		HeightSpanMm:        150.0,
		HeightDamping:       0.5,
		CorrectionFactor:    0.85,
		MinVolumeCm3:        1.0,
		ReferencePercentile: 1.0,
	}
}

// Estimator computes volume estimates from aligned intensity pairs.
// It is pure and safe to call concurrently.
type Estimator struct {
	params Params
}

// NewEstimator creates an estimator with the provided parameters.
func NewEstimator(params Params) *Estimator {
	return &Estimator{params: params}
}

// Estimate returns the estimated volume in cubic centimeters for the
// region whose mask intensities exceed the threshold.
//
// Both sequences must be aligned at the same resolution, row-major with
// index i = y*width + x; the sampler package guarantees this. Failures
// return ErrEmptyMask or ErrNoSurface; the result is otherwise floored
// at MinVolumeCm3.
func (e *Estimator) Estimate(maskIntensities, depthIntensities []uint8, width int) (float64, error) {
	if len(maskIntensities) != len(depthIntensities) {
		return 0, fmt.Errorf("misaligned samples: %d mask vs %d depth values",
			len(maskIntensities), len(depthIntensities))
	}
	if width <= 0 {
		return 0, fmt.Errorf("invalid grid width %d", width)
	}

	// Step 1: collect depth values inside the mask footprint
	inside := make([]float64, 0, len(depthIntensities))
	for i, m := range maskIntensities {
		if m > e.params.MaskThreshold {
			inside = append(inside, float64(depthIntensities[i]))
		}
	}
	if len(inside) == 0 {
		return 0, ErrEmptyMask
	}

	// Step 2: infer the reference plane from the deepest inside pixels
	referenceDepth := e.referenceDepth(inside)

	// Step 3: accumulate heights above the reference plane
	heights := make([]float64, 0, len(inside))
	for _, d := range inside {
		if h := referenceDepth - d; h > 0 {
			heights = append(heights, h)
		}
	}
	if len(heights) == 0 {
		return 0, ErrNoSurface
	}

	// Step 4: average height in normalized 0-255 units
	avgHeight := stat.Mean(heights, nil)

	// Step 5: lateral mm-per-pixel at the assumed subject distance
	fovRadians := e.params.FOVDegrees * math.Pi / 180.0
	sensorWidthMm := 2.0 * e.params.SubjectDistanceMm * math.Tan(fovRadians/2.0)
	pixelSizeMm := sensorWidthMm / float64(width)

	// Step 6: normalized height to mm
	heightMm := avgHeight / 255.0 * e.params.HeightSpanMm * e.params.HeightDamping

	// Step 7: assemble the volume
	areaMm2 := float64(len(heights)) * pixelSizeMm * pixelSizeMm
	volumeCm3 := areaMm2 * heightMm / 1000.0 * e.params.CorrectionFactor

	// Step 8: floor
	if volumeCm3 < e.params.MinVolumeCm3 {
		volumeCm3 = e.params.MinVolumeCm3
	}

	return volumeCm3, nil
}

// referenceDepth returns the depth of the inferred background plane.
// At the default percentile of 1.0 this is the exact maximum, matching
// the assumption that the mask boundary shows the plate behind the food.
func (e *Estimator) referenceDepth(inside []float64) float64 {
	p := e.params.ReferencePercentile
	if p >= 1.0 {
		maxDepth := inside[0]
		for _, d := range inside[1:] {
			if d > maxDepth {
				maxDepth = d
			}
		}
		return maxDepth
	}

	sorted := make([]float64, len(inside))
	copy(sorted, inside)
	sort.Float64s(sorted)
	return stat.Quantile(p, stat.Empirical, sorted, nil)
}

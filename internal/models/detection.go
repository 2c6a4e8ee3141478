package models

import (
	"image"
)

// BoundingBox is the axis-aligned box reported by the segmentation service,
// in pixel coordinates of the captured frame.
type BoundingBox struct {
	// X0, Y0 is the top-left corner of the box
	X0, Y0 float64

	// X1, Y1 is the bottom-right corner of the box
	X1, Y1 float64
}

// Width returns the horizontal extent of the box in pixels.
func (b BoundingBox) Width() float64 {
	return b.X1 - b.X0
}

// Height returns the vertical extent of the box in pixels.
func (b BoundingBox) Height() float64 {
	return b.Y1 - b.Y0
}

// Detection is one food item reported by the segmentation service.
// The mask is already decoded by the time it reaches the estimator;
// network transport and decoding of the raw response happen upstream.
type Detection struct {
	// ID uniquely identifies this detection within the process
	ID string

	// Label is the food class name assigned by the service
	Label string

	// Confidence is the classifier score in [0, 1]
	Confidence float64

	// Box is the detection bounding box in frame coordinates
	Box BoundingBox

	// Mask is the binary segmentation mask; a pixel belongs to the
	// food region iff its intensity exceeds the configured threshold
	Mask image.Image
}

// VolumeEstimate is the estimator output for a single detection.
// When Available is false the detection itself stays valid; only the
// volume could not be computed.
type VolumeEstimate struct {
	// CubicCentimeters is the estimated volume, floored at the
	// configured minimum; meaningless when Available is false
	CubicCentimeters float64

	// Available reports whether estimation succeeded
	Available bool
}

// Unavailable is the failure result shared by every estimator error.
func Unavailable() VolumeEstimate {
	return VolumeEstimate{}
}

// Package sampler extracts aligned per-pixel intensity pairs from a
// segmentation mask and a depth map.
//
// The mask defines the working resolution: a depth map captured at a
// different resolution is resampled to the mask's dimensions before
// extraction, so both output sequences index the same pixel with
// i = y*width + x. Iterating mismatched buffers by index is exactly the
// misalignment bug this package exists to rule out.
package sampler

import (
	"bytes"
	"errors"
	"fmt"
	"image"

	"github.com/disintegration/imaging"

	// Decoders for the image formats the capture side may hand over.
	_ "image/jpeg"
	_ "image/png"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
)

// ErrDecode indicates an image buffer could not be materialized into
// raw pixel samples.
var ErrDecode = errors.New("cannot decode image samples")

// Sampler aligns mask and depth images into parallel intensity sequences.
type Sampler struct {
	// filter is used when the depth map must be resampled to the
	// mask resolution
	filter imaging.ResampleFilter
}

// New creates a sampler with the given resampling filter.
func New(filter imaging.ResampleFilter) *Sampler {
	return &Sampler{filter: filter}
}

// NewDefault creates a sampler with nearest-neighbor resampling.
// Nearest-neighbor keeps the exact sensor depth levels; interpolating
// filters invent intermediate depth values.
func NewDefault() *Sampler {
	return New(imaging.NearestNeighbor)
}

// FilterByName maps the configuration filter names to imaging filters.
func FilterByName(name string) (imaging.ResampleFilter, error) {
	switch name {
	case "nearest":
		return imaging.NearestNeighbor, nil
	case "linear":
		return imaging.Linear, nil
	default:
		return imaging.ResampleFilter{}, fmt.Errorf("unknown resampling filter %q", name)
	}
}

// Aligned produces two parallel per-pixel sequences at the mask's
// resolution: the mask intensities and the depth intensities, both 0-255,
// row-major with index i = y*width + x.
//
// The depth map is resampled to the mask resolution first when the
// dimensions differ. Returns ErrDecode when either image carries no pixels.
func (s *Sampler) Aligned(mask, depth image.Image) (maskIntensities, depthIntensities []uint8, width int, err error) {
	if mask == nil || depth == nil {
		return nil, nil, 0, fmt.Errorf("%w: nil image", ErrDecode)
	}

	mb := mask.Bounds()
	w, h := mb.Dx(), mb.Dy()
	if w <= 0 || h <= 0 {
		return nil, nil, 0, fmt.Errorf("%w: empty mask bounds %v", ErrDecode, mb)
	}

	db := depth.Bounds()
	if db.Dx() <= 0 || db.Dy() <= 0 {
		return nil, nil, 0, fmt.Errorf("%w: empty depth bounds %v", ErrDecode, db)
	}

	// Resample the depth map to the mask resolution before any
	// index-based extraction.
	if db.Dx() != w || db.Dy() != h {
		depth = imaging.Resize(depth, w, h, s.filter)
	}

	maskIntensities = intensities(mask, w, h)
	depthIntensities = intensities(depth, w, h)

	return maskIntensities, depthIntensities, w, nil
}

// AlignedFromBytes decodes the raw encoded images (PNG, JPEG, TIFF or BMP)
// before alignment, for callers holding undecoded payloads.
func (s *Sampler) AlignedFromBytes(maskData, depthData []byte) (maskIntensities, depthIntensities []uint8, width int, err error) {
	mask, _, err := image.Decode(bytes.NewReader(maskData))
	if err != nil {
		return nil, nil, 0, fmt.Errorf("%w: mask: %v", ErrDecode, err)
	}

	depth, _, err := image.Decode(bytes.NewReader(depthData))
	if err != nil {
		return nil, nil, 0, fmt.Errorf("%w: depth: %v", ErrDecode, err)
	}

	return s.Aligned(mask, depth)
}

// intensities flattens an image into row-major 8-bit intensities.
// Masks and depth maps are single-channel, so the red channel carries
// the luma; any source bit depth normalizes to 0-255 here.
func intensities(img image.Image, width, height int) []uint8 {
	bounds := img.Bounds()
	result := make([]uint8, width*height)

	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			r, _, _, _ := img.At(bounds.Min.X+x, bounds.Min.Y+y).RGBA()
			result[y*width+x] = uint8(r >> 8)
		}
	}

	return result
}

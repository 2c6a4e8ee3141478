// Package segmentation decodes the response document of the upstream
// segmentation service into detections ready for volume estimation.
//
// Only the already-received document is handled here; the network call
// that produced it lives outside this module.
package segmentation

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"image"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	jsoniter "github.com/json-iterator/go"

	_ "image/jpeg"
	_ "image/png"

	"foodvolume/internal/models"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

var validate = validator.New()

// responseItem is one detection as the service reports it: a label, a
// classifier confidence, a bounding box as [x0, y0, x1, y1] and a
// base64-encoded mask image.
type responseItem struct {
	Label      string    `json:"label" validate:"required"`
	Confidence float64   `json:"confidence" validate:"gte=0,lte=1"`
	Box        []float64 `json:"box" validate:"len=4"`
	Mask       string    `json:"mask" validate:"required"`
}

// responseDocument is the top-level service payload.
type responseDocument struct {
	Items []responseItem `json:"items" validate:"dive"`
}

// ParseResponse decodes a segmentation response document into detections.
// Each detection receives a process-unique ID. A malformed document, an
// out-of-range field or an undecodable mask fails the whole parse.
func ParseResponse(data []byte) ([]models.Detection, error) {
	var doc responseDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("error parsing segmentation response: %w", err)
	}

	if err := validate.Struct(&doc); err != nil {
		return nil, fmt.Errorf("invalid segmentation response: %w", err)
	}

	detections := make([]models.Detection, 0, len(doc.Items))
	for i, item := range doc.Items {
		mask, err := decodeMask(item.Mask)
		if err != nil {
			return nil, fmt.Errorf("detection %d (%s): %w", i, item.Label, err)
		}

		detections = append(detections, models.Detection{
			ID:         uuid.NewString(),
			Label:      item.Label,
			Confidence: item.Confidence,
			Box: models.BoundingBox{
				X0: item.Box[0],
				Y0: item.Box[1],
				X1: item.Box[2],
				Y1: item.Box[3],
			},
			Mask: mask,
		})
	}

	return detections, nil
}

// decodeMask materializes a base64-encoded mask payload into an image.
func decodeMask(payload string) (image.Image, error) {
	raw, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return nil, fmt.Errorf("error decoding mask payload: %w", err)
	}

	img, _, err := image.Decode(bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("error decoding mask image: %w", err)
	}

	return img, nil
}

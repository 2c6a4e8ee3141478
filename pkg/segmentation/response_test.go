package segmentation

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"testing"
)

// maskPayload builds a base64-encoded PNG mask of the given size and value.
func maskPayload(t *testing.T, width, height int, value uint8) string {
	img := image.NewGray(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			img.SetGray(x, y, color.Gray{Y: value})
		}
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("Failed to encode mask: %v", err)
	}
	return base64.StdEncoding.EncodeToString(buf.Bytes())
}

func TestParseResponse(t *testing.T) {
	doc := fmt.Sprintf(`{
		"items": [
			{"label": "apple", "confidence": 0.92, "box": [10, 20, 110, 140], "mask": %q},
			{"label": "rice", "confidence": 0.75, "box": [0, 0, 50, 50], "mask": %q}
		]
	}`, maskPayload(t, 8, 8, 255), maskPayload(t, 4, 4, 0))

	detections, err := ParseResponse([]byte(doc))
	if err != nil {
		t.Fatalf("ParseResponse failed: %v", err)
	}

	if len(detections) != 2 {
		t.Fatalf("Expected 2 detections, got %d", len(detections))
	}

	first := detections[0]
	if first.Label != "apple" || first.Confidence != 0.92 {
		t.Errorf("Unexpected first detection: %q %.2f", first.Label, first.Confidence)
	}
	if first.Box.X0 != 10 || first.Box.Y0 != 20 || first.Box.X1 != 110 || first.Box.Y1 != 140 {
		t.Errorf("Unexpected bounding box: %+v", first.Box)
	}
	if b := first.Mask.Bounds(); b.Dx() != 8 || b.Dy() != 8 {
		t.Errorf("Expected 8x8 mask, got %dx%d", b.Dx(), b.Dy())
	}

	if detections[0].ID == "" || detections[1].ID == "" {
		t.Error("Detections must receive IDs")
	}
	if detections[0].ID == detections[1].ID {
		t.Error("Detection IDs must be unique")
	}
}

func TestParseResponseInvalid(t *testing.T) {
	mask := maskPayload(t, 4, 4, 255)

	testCases := []struct {
		name string
		doc  string
	}{
		{
			"malformed JSON",
			`{"items": [`,
		},
		{
			"missing label",
			fmt.Sprintf(`{"items": [{"confidence": 0.5, "box": [0,0,1,1], "mask": %q}]}`, mask),
		},
		{
			"confidence out of range",
			fmt.Sprintf(`{"items": [{"label": "apple", "confidence": 1.5, "box": [0,0,1,1], "mask": %q}]}`, mask),
		},
		{
			"short box",
			fmt.Sprintf(`{"items": [{"label": "apple", "confidence": 0.5, "box": [0,0,1], "mask": %q}]}`, mask),
		},
		{
			"missing mask",
			`{"items": [{"label": "apple", "confidence": 0.5, "box": [0,0,1,1]}]}`,
		},
		{
			"mask not base64",
			`{"items": [{"label": "apple", "confidence": 0.5, "box": [0,0,1,1], "mask": "%%%"}]}`,
		},
		{
			"mask not an image",
			fmt.Sprintf(`{"items": [{"label": "apple", "confidence": 0.5, "box": [0,0,1,1], "mask": %q}]}`,
				base64.StdEncoding.EncodeToString([]byte("not an image"))),
		},
	}

	for _, tc := range testCases {
		if _, err := ParseResponse([]byte(tc.doc)); err == nil {
			t.Errorf("%s: expected error, got nil", tc.name)
		}
	}
}

func TestParseResponseEmpty(t *testing.T) {
	detections, err := ParseResponse([]byte(`{"items": []}`))
	if err != nil {
		t.Fatalf("ParseResponse failed: %v", err)
	}
	if len(detections) != 0 {
		t.Errorf("Expected no detections, got %d", len(detections))
	}
}

// Package detect defines the contract with the externally supplied
// detector and the normalized detection schema returned to callers.
package detect

import (
	"context"
	"strconv"
)

// Params are the numeric inference parameters forwarded to the detector.
type Params struct {
	Conf      float64 `json:"conf"`
	IoU       float64 `json:"iou"`
	ImageSize int     `json:"imgsz"`
	MaxDet    int     `json:"max_det"`
}

// Box is a bounding box in image pixel coordinates.
type Box struct {
	X1 float64
	Y1 float64
	X2 float64
	Y2 float64
}

// RawDetection is one entry of the detector's untrusted output.
type RawDetection struct {
	Box        Box
	Confidence *float64
	ClassIndex int
}

// Result is the detector's raw output: boxes plus the model's
// class-index to class-name mapping.
type Result struct {
	Detections []RawDetection
	Names      map[int]string
}

// Detector runs inference on an encoded image. The call is synchronous
// and treated as a black box; any failure means no usable result.
type Detector interface {
	Detect(ctx context.Context, image []byte, filename string, params Params) (*Result, error)
}

// Detection is one normalized detected object as exposed on the wire
// and persisted in audit records.
type Detection struct {
	ClassID    int        `json:"class_id"`
	ClassName  string     `json:"class_name"`
	Confidence *float64   `json:"confidence"`
	BBoxXYXY   [4]float64 `json:"bbox_xyxy"`
}

// Normalize converts raw detector output into the stable schema: class
// names fall back to the stringified id when the label map has no entry,
// box coordinates are ordered so x1<=x2 and y1<=y2, and confidences are
// clamped into [0,1].
func Normalize(result *Result) []Detection {
	detections := make([]Detection, 0, len(result.Detections))
	for _, raw := range result.Detections {
		name, ok := result.Names[raw.ClassIndex]
		if !ok {
			name = strconv.Itoa(raw.ClassIndex)
		}

		x1, x2 := ordered(raw.Box.X1, raw.Box.X2)
		y1, y2 := ordered(raw.Box.Y1, raw.Box.Y2)

		detections = append(detections, Detection{
			ClassID:    raw.ClassIndex,
			ClassName:  name,
			Confidence: clamped(raw.Confidence),
			BBoxXYXY:   [4]float64{x1, y1, x2, y2},
		})
	}
	return detections
}

func ordered(a, b float64) (float64, float64) {
	if a > b {
		return b, a
	}
	return a, b
}

func clamped(conf *float64) *float64 {
	if conf == nil {
		return nil
	}
	v := *conf
	if v < 0 {
		v = 0
	}
	if v > 1 {
		v = 1
	}
	return &v
}

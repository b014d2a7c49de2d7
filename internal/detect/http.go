package detect

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// HTTPDetector invokes a model-serving sidecar over HTTP. The sidecar
// owns the model weights; this adapter only moves bytes and parameters.
// It serves /predict and /health under the configured base URL.
type HTTPDetector struct {
	baseURL string
	device  string
	client  *http.Client
}

// NewHTTPDetector builds an adapter for the sidecar at baseURL.
// device selects the sidecar's compute target ("cpu" or "gpu").
func NewHTTPDetector(baseURL, device string, timeout time.Duration) *HTTPDetector {
	if device == "" {
		device = "cpu"
	}
	return &HTTPDetector{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		device:  device,
		client:  &http.Client{Timeout: timeout},
	}
}

type wireResponse struct {
	Boxes       [][]float64       `json:"boxes"`
	Confidences []float64         `json:"confidences"`
	Classes     []int             `json:"classes"`
	Names       map[string]string `json:"names"`
}

// Detect posts the image as multipart form data with the inference
// parameters as query values and decodes the sidecar's box list.
func (d *HTTPDetector) Detect(ctx context.Context, image []byte, filename string, params Params) (*Result, error) {
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	part, err := writer.CreateFormFile("image", filename)
	if err != nil {
		return nil, fmt.Errorf("create form file: %w", err)
	}
	if _, err := io.Copy(part, bytes.NewReader(image)); err != nil {
		return nil, fmt.Errorf("copy image data: %w", err)
	}
	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("finish form: %w", err)
	}

	query := url.Values{}
	query.Set("conf", strconv.FormatFloat(params.Conf, 'f', -1, 64))
	query.Set("iou", strconv.FormatFloat(params.IoU, 'f', -1, 64))
	query.Set("imgsz", strconv.Itoa(params.ImageSize))
	query.Set("max_det", strconv.Itoa(params.MaxDet))
	query.Set("device", d.device)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, d.baseURL+"/predict?"+query.Encode(), body)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := d.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("call detector: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("detector returned status %d", resp.StatusCode)
	}

	var wire wireResponse
	if err := json.NewDecoder(resp.Body).Decode(&wire); err != nil {
		return nil, fmt.Errorf("decode detector response: %w", err)
	}
	return fromWire(wire)
}

// Healthy probes the sidecar's health endpoint.
func (d *HTTPDetector) Healthy(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, d.baseURL+"/health", nil)
	if err != nil {
		return err
	}
	resp, err := d.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("detector unhealthy: status %d", resp.StatusCode)
	}
	return nil
}

func fromWire(wire wireResponse) (*Result, error) {
	result := &Result{
		Detections: make([]RawDetection, 0, len(wire.Boxes)),
		Names:      make(map[int]string, len(wire.Names)),
	}
	for key, name := range wire.Names {
		id, err := strconv.Atoi(key)
		if err != nil {
			return nil, fmt.Errorf("detector names map has non-numeric key %q", key)
		}
		result.Names[id] = name
	}
	for i, box := range wire.Boxes {
		if len(box) != 4 {
			return nil, fmt.Errorf("detector box %d has %d coordinates", i, len(box))
		}
		raw := RawDetection{
			Box:        Box{X1: box[0], Y1: box[1], X2: box[2], Y2: box[3]},
			ClassIndex: -1,
		}
		if i < len(wire.Confidences) {
			conf := wire.Confidences[i]
			raw.Confidence = &conf
		}
		if i < len(wire.Classes) {
			raw.ClassIndex = wire.Classes[i]
		}
		result.Detections = append(result.Detections, raw)
	}
	return result, nil
}

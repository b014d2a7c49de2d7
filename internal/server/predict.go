package server

import (
	"bytes"
	"context"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/aphidlab/inference-gateway/internal/detect"
	"github.com/aphidlab/inference-gateway/internal/naming"
	"github.com/aphidlab/inference-gateway/internal/store"
)

type predictResponse struct {
	RequestID       string             `json:"request_id"`
	Filename        string             `json:"filename"`
	Count           int                `json:"count"`
	Detections      []detect.Detection `json:"detections"`
	BlobSaved       bool               `json:"blob_saved"`
	ImageBlobName   string             `json:"image_blob_name,omitempty"`
	ImageBlobURL    string             `json:"image_blob_url,omitempty"`
	HistoryBlobName string             `json:"history_blob_name,omitempty"`
	StorageError    string             `json:"storage_error,omitempty"`
}

func (s *Server) handlePredict(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		writeDetail(w, http.StatusBadRequest, fmt.Sprintf("invalid form: %v", err))
		return
	}
	file, header, err := r.FormFile("image")
	if err != nil {
		writeDetail(w, http.StatusBadRequest, "image field is required")
		return
	}
	defer file.Close()

	if header.Filename == "" {
		writeDetail(w, http.StatusBadRequest, "missing image filename")
		return
	}

	raw, err := io.ReadAll(file)
	if err != nil {
		writeDetail(w, http.StatusBadRequest, fmt.Sprintf("read image: %v", err))
		return
	}
	if len(raw) == 0 {
		writeDetail(w, http.StatusBadRequest, "empty image")
		return
	}
	if _, _, err := image.DecodeConfig(bytes.NewReader(raw)); err != nil {
		writeDetail(w, http.StatusBadRequest, fmt.Sprintf("invalid image: %v", err))
		return
	}

	params, err := s.paramsFromQuery(r)
	if err != nil {
		writeDetail(w, http.StatusBadRequest, err.Error())
		return
	}

	result, err := s.detector.Detect(r.Context(), raw, header.Filename, params)
	if err != nil {
		s.logger.Warn().Err(err).Str("filename", header.Filename).Msg("detector call failed")
		writeDetail(w, http.StatusBadRequest, fmt.Sprintf("detection produced no usable result: %v", err))
		return
	}

	detections := detect.Normalize(result)
	s.metrics.detectionsTotal.Add(float64(len(detections)))

	requestID := naming.NewRequestID()
	safeName := naming.SanitizeFilename(header.Filename)

	resp := predictResponse{
		RequestID:  requestID,
		Filename:   header.Filename,
		Count:      len(detections),
		Detections: detections,
	}

	contentType := header.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "image/jpeg"
	}
	s.persist(r.Context(), &resp, raw, contentType, safeName, params)

	s.logger.Info().
		Str("request_id", requestID).
		Str("filename", header.Filename).
		Int("count", resp.Count).
		Bool("blob_saved", resp.BlobSaved).
		Msg("prediction served")
	writeJSON(w, http.StatusOK, resp)
}

// persist writes the image blob and then the audit record. Both writes
// are best-effort: failures land in resp.StorageError and never change
// the HTTP outcome. Partial success (image written, record not) is a
// legitimate terminal state.
func (s *Server) persist(ctx context.Context, resp *predictResponse, raw []byte, contentType, safeName string, params detect.Params) {
	if s.store == nil {
		resp.StorageError = "blob storage is not configured"
		if s.storeInitErr != "" {
			resp.StorageError = s.storeInitErr
		}
		return
	}

	imageName := naming.ImageBlobName(resp.RequestID, safeName)
	recordName := naming.RecordBlobName(resp.RequestID)
	var failures []string

	imageURL, err := s.store.PutImage(ctx, imageName, raw, contentType)
	if err != nil {
		s.metrics.storageFailures.Inc()
		s.logger.Error().Err(err).Str("request_id", resp.RequestID).Msg("image write failed")
		failures = append(failures, err.Error())
	} else {
		resp.ImageBlobName = imageName
		resp.ImageBlobURL = imageURL
	}

	record := &store.Record{
		RequestID:       resp.RequestID,
		CreatedAt:       time.Now().UTC(),
		Filename:        resp.Filename,
		Count:           resp.Count,
		Detections:      resp.Detections,
		Params:          params,
		ImageBlobName:   resp.ImageBlobName,
		ImageBlobURL:    resp.ImageBlobURL,
		HistoryBlobName: recordName,
	}
	if _, err := s.store.PutRecord(ctx, recordName, record); err != nil {
		s.metrics.storageFailures.Inc()
		s.logger.Error().Err(err).Str("request_id", resp.RequestID).Msg("record write failed")
		failures = append(failures, err.Error())
	} else {
		resp.HistoryBlobName = recordName
	}

	if len(failures) == 0 {
		resp.BlobSaved = true
		return
	}
	resp.StorageError = strings.Join(failures, "; ")
}

func (s *Server) paramsFromQuery(r *http.Request) (detect.Params, error) {
	params := s.defaults
	query := r.URL.Query()

	if raw := query.Get("conf"); raw != "" {
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return params, fmt.Errorf("conf must be a number")
		}
		params.Conf = v
	}
	if raw := query.Get("iou"); raw != "" {
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return params, fmt.Errorf("iou must be a number")
		}
		params.IoU = v
	}
	if raw := query.Get("imgsz"); raw != "" {
		v, err := strconv.Atoi(raw)
		if err != nil {
			return params, fmt.Errorf("imgsz must be an integer")
		}
		params.ImageSize = v
	}
	if raw := query.Get("max_det"); raw != "" {
		v, err := strconv.Atoi(raw)
		if err != nil {
			return params, fmt.Errorf("max_det must be an integer")
		}
		params.MaxDet = v
	}
	return params, nil
}

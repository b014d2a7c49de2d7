package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"image"
	"image/png"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"sort"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/aphidlab/inference-gateway/internal/auth"
	"github.com/aphidlab/inference-gateway/internal/detect"
	"github.com/aphidlab/inference-gateway/internal/store"
)

type fakeDetector struct {
	result     *detect.Result
	err        error
	lastParams detect.Params
}

func (d *fakeDetector) Detect(_ context.Context, _ []byte, _ string, params detect.Params) (*detect.Result, error) {
	d.lastParams = params
	if d.err != nil {
		return nil, d.err
	}
	return d.result, nil
}

type fakeStore struct {
	images        map[string][]byte
	records       map[string][]byte
	failPutImage  bool
	failPutRecord bool
	failList      bool
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		images:  make(map[string][]byte),
		records: make(map[string][]byte),
	}
}

func (f *fakeStore) PutImage(_ context.Context, name string, data []byte, _ string) (string, error) {
	if f.failPutImage {
		return "", errors.New("image container unreachable")
	}
	f.images[name] = data
	return "https://blobs.test/images/" + name, nil
}

func (f *fakeStore) PutRecord(_ context.Context, name string, record *store.Record) (string, error) {
	if f.failPutRecord {
		return "", errors.New("history container unreachable")
	}
	payload, err := json.Marshal(record)
	if err != nil {
		return "", err
	}
	f.records[name] = payload
	return "https://blobs.test/history/" + name, nil
}

func (f *fakeStore) ListRecordNames(_ context.Context, limit int) ([]string, error) {
	if f.failList {
		return nil, errors.New("listing unavailable")
	}
	names := make([]string, 0, len(f.records))
	for name := range f.records {
		names = append(names, name)
	}
	sort.Sort(sort.Reverse(sort.StringSlice(names)))
	if limit > 0 && len(names) > limit {
		names = names[:limit]
	}
	return names, nil
}

func (f *fakeStore) GetRecord(_ context.Context, name string) (map[string]any, error) {
	payload, ok := f.records[name]
	if !ok {
		return nil, fmt.Errorf("record %s not found", name)
	}
	var record map[string]any
	if err := json.Unmarshal(payload, &record); err != nil {
		return nil, &store.DecodeError{Name: name, Err: err}
	}
	return record, nil
}

func defaultResult() *detect.Result {
	conf := 0.87
	return &detect.Result{
		Detections: []detect.RawDetection{
			{Box: detect.Box{X1: 10, Y1: 12, X2: 40, Y2: 44}, Confidence: &conf, ClassIndex: 0},
		},
		Names: map[int]string{0: "aphid"},
	}
}

func defaultParams() detect.Params {
	return detect.Params{Conf: 0.25, IoU: 0.45, ImageSize: 640, MaxDet: 1000}
}

func newTestServer(detector detect.Detector, st store.Store, authorizer auth.Authorizer) *Server {
	if authorizer == nil {
		authorizer = auth.NewStaticAuthorizer("s3cret")
	}
	return New(Options{
		Detector:     detector,
		Store:        st,
		Authorizer:   authorizer,
		AuthMode:     "static",
		AdminEnabled: true,
		Defaults:     defaultParams(),
		Logger:       zerolog.Nop(),
	})
}

func pngBytes(t *testing.T) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, image.NewRGBA(image.Rect(0, 0, 2, 2))))
	return buf.Bytes()
}

func multipartBody(t *testing.T, field, filename string, data []byte) (*bytes.Buffer, string) {
	t.Helper()
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	part, err := writer.CreateFormFile(field, filename)
	require.NoError(t, err)
	_, err = part.Write(data)
	require.NoError(t, err)
	require.NoError(t, writer.Close())
	return body, writer.FormDataContentType()
}

func doPredict(t *testing.T, s *Server, target, field, filename string, data []byte) *httptest.ResponseRecorder {
	t.Helper()
	body, contentType := multipartBody(t, field, filename, data)
	req := httptest.NewRequest(http.MethodPost, target, body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	s.Routes().ServeHTTP(rec, req)
	return rec
}

func decodeBody[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	return out
}
